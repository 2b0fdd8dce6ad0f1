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

// Package bootstrap contains various bootstrapping functions for the
// commands.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rusq/wecombot"
	"github.com/rusq/wecombot/cmd/wecombot/internal/cfg"
)

// Limits returns the delivery limits: defaults, overridden by the settings,
// overridden by the command line flags.
func Limits(s *cfg.Settings) (wecombot.Limits, error) {
	l := wecombot.DefLimits
	if err := l.Apply(s.Limits); err != nil {
		return wecombot.Limits{}, fmt.Errorf("settings: %w", err)
	}
	if err := l.Apply(cfg.Limits); err != nil {
		return wecombot.Limits{}, fmt.Errorf("command line: %w", err)
	}
	return l, nil
}

// Registry returns the bot registry for the settings.
func Registry(s *cfg.Settings) *wecombot.Registry {
	return wecombot.NewRegistry(
		wecombot.WithBots(s.Bots),
		wecombot.WithRegistryLogger(cfg.Log),
	)
}

// Sender loads the settings and returns the initialised sender.
func Sender(ctx context.Context) (*wecombot.Sender, error) {
	s, err := cfg.LoadSettings(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	limits, err := Limits(s)
	if err != nil {
		return nil, err
	}
	reg := Registry(s)
	cfg.Log.DebugContext(ctx, "sender initialised", "bots", reg.Count(), "limits", limits)
	return wecombot.New(reg, wecombot.WithLogger(cfg.Log), wecombot.WithLimits(limits))
}
