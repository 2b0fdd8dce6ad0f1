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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/rusq/wecombot"
)

// Settings are the contents of the settings file.
//
// Example:
//
//	bots:
//	  default: https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=...
//	  alerts:
//	    name: Alerts
//	    webhook_url: https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=...
//	    description: On-call alerts
//	limits:
//	  max_attempts: 5
//	  timeout: 30s
//
// Any value can be overridden with the WECOMBOT_ environment variable, the
// double underscore separates the levels, i.e. WECOMBOT_LIMITS__TIMEOUT=10s.
type Settings struct {
	Bots   map[string]wecombot.BotConfig `yaml:"bots,omitempty"`
	Limits wecombot.Limits               `yaml:"limits,omitempty"`
}

const (
	keyBots   = "bots"
	keyLimits = "limits"
)

// LoadSettings loads the settings file at path, and overlays the
// environment variables.  Empty path or a missing file are not an error,
// then only the environment is used.
func LoadSettings(path string) (*Settings, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading settings %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("accessing settings %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	var s Settings
	if err := k.Unmarshal(keyLimits, &s.Limits); err != nil {
		return nil, fmt.Errorf("limits: %w", err)
	}
	bots, err := loadBots(k)
	if err != nil {
		return nil, err
	}
	s.Bots = bots
	return &s, nil
}

// envKey converts WECOMBOT_LIMITS__TIMEOUT to limits.timeout.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
}

// loadBots reads the bots section.  A bot is either the webhook URL string
// or the bot object.
func loadBots(k *koanf.Koanf) (map[string]wecombot.BotConfig, error) {
	raw, ok := k.Get(keyBots).(map[string]any)
	if !ok {
		return nil, nil
	}
	bots := make(map[string]wecombot.BotConfig, len(raw))
	for id, v := range raw {
		switch v := v.(type) {
		case string:
			bots[id] = wecombot.BotConfig{WebhookURL: strings.TrimSpace(v)}
		case map[string]any:
			var bc wecombot.BotConfig
			if err := k.Unmarshal(keyBots+"."+id, &bc); err != nil {
				return nil, fmt.Errorf("bot %q: %w", id, err)
			}
			bots[id] = bc
		default:
			return nil, fmt.Errorf("bot %q: expected URL or object, got %T", id, v)
		}
	}
	return bots, nil
}
