// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package network

import (
	"time"

	"golang.org/x/time/rate"
)

// DefPerMinute is the WeCom webhook limit: 20 messages per minute per bot.
const DefPerMinute = 20

// NewLimiter returns a limiter that allows perMinute events per minute with
// the given burst.  If perMinute is zero or negative, the limiter does not
// limit anything.
func NewLimiter(perMinute int, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(every(perMinute)), burst)
}

func every(perMinute int) time.Duration {
	return time.Minute / time.Duration(perMinute)
}
