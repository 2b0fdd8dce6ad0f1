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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/wecombot"
)

const testSettings = `bots:
  default: https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=aaa
  alerts:
    name: Alerts
    webhook_url: https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=bbb
    description: On-call alerts
limits:
  max_attempts: 5
  timeout: 30s
  per_minute: 10
`

func writeSettings(t *testing.T, s string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "wecombot.yaml")
	require.NoError(t, os.WriteFile(p, []byte(s), 0o644))
	return p
}

func TestLoadSettings(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		got, err := LoadSettings(writeSettings(t, testSettings))
		require.NoError(t, err)
		assert.Equal(t, map[string]wecombot.BotConfig{
			"default": {WebhookURL: "https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=aaa"},
			"alerts": {
				Name:        "Alerts",
				WebhookURL:  "https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=bbb",
				Description: "On-call alerts",
			},
		}, got.Bots)
		assert.Equal(t, wecombot.Limits{
			MaxAttempts: 5,
			Timeout:     30 * time.Second,
			PerMinute:   10,
		}, got.Limits)
	})
	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("WECOMBOT_LIMITS__TIMEOUT", "5s")
		t.Setenv("WECOMBOT_LIMITS__MAX_ATTEMPTS", "2")
		got, err := LoadSettings(writeSettings(t, testSettings))
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, got.Limits.Timeout)
		assert.Equal(t, 2, got.Limits.MaxAttempts)
		assert.Equal(t, 10, got.Limits.PerMinute)
	})
	t.Run("missing file", func(t *testing.T) {
		got, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Empty(t, got.Bots)
		assert.Equal(t, wecombot.Limits{}, got.Limits)
	})
	t.Run("no file", func(t *testing.T) {
		got, err := LoadSettings("")
		require.NoError(t, err)
		assert.NotNil(t, got)
	})
	t.Run("invalid yaml", func(t *testing.T) {
		_, err := LoadSettings(writeSettings(t, "bots: [\n"))
		assert.Error(t, err)
	})
	t.Run("invalid bot", func(t *testing.T) {
		_, err := LoadSettings(writeSettings(t, "bots:\n  ops: 42\n"))
		assert.ErrorContains(t, err, `bot "ops"`)
	})
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "limits.timeout", envKey("WECOMBOT_LIMITS__TIMEOUT"))
	assert.Equal(t, "bots.ops", envKey("WECOMBOT_BOTS__OPS"))
	assert.Equal(t, "config", envKey("WECOMBOT_CONFIG"))
}
