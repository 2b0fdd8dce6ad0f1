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

package cfg

import (
	"flag"
	"strings"

	"github.com/rusq/wecombot/internal/primitive"
)

const stringSliceSep = ","

// StringSlice provides a flag.Value interface for a slice of strings.  The
// flag can be given several times, values accumulate.
type StringSlice []string

var _ flag.Value = new(StringSlice)

func (ss *StringSlice) Set(s string) error {
	*ss = primitive.Compact(append(*ss, strings.Split(s, stringSliceSep)...))
	return nil
}

func (ss *StringSlice) String() string {
	if ss == nil {
		return ""
	}
	return strings.Join(*ss, stringSliceSep)
}
