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

package bootstrap

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/wecombot"
	"github.com/rusq/wecombot/cmd/wecombot/internal/cfg"
)

func TestLimits(t *testing.T) {
	tests := []struct {
		name     string
		settings wecombot.Limits
		flags    wecombot.Limits
		want     func(l *wecombot.Limits)
		wantErr  bool
	}{
		{
			name: "defaults",
			want: func(*wecombot.Limits) {},
		},
		{
			name:     "settings override defaults",
			settings: wecombot.Limits{MaxAttempts: 5, Timeout: 30 * time.Second},
			want: func(l *wecombot.Limits) {
				l.MaxAttempts = 5
				l.Timeout = 30 * time.Second
			},
		},
		{
			name:     "flags override settings",
			settings: wecombot.Limits{MaxAttempts: 5, PerMinute: 10},
			flags:    wecombot.Limits{MaxAttempts: 2},
			want: func(l *wecombot.Limits) {
				l.MaxAttempts = 2
				l.PerMinute = 10
			},
		},
		{
			name:     "no limit flag",
			settings: wecombot.Limits{PerMinute: 10},
			flags:    wecombot.Limits{PerMinute: wecombot.NoLimit},
			want: func(l *wecombot.Limits) {
				l.PerMinute = wecombot.NoLimit
			},
		},
		{
			name:     "invalid settings",
			settings: wecombot.Limits{MaxAttempts: 100},
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg.Limits = tt.flags
			t.Cleanup(func() { cfg.Limits = wecombot.Limits{} })

			got, err := Limits(&cfg.Settings{Limits: tt.settings})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			want := wecombot.DefLimits
			tt.want(&want)
			assert.Equal(t, want, got)
		})
	}
}

func TestRegistry(t *testing.T) {
	reg := Registry(&cfg.Settings{Bots: map[string]wecombot.BotConfig{
		"ops": {Name: "Ops", WebhookURL: "https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=ops"},
	}})
	assert.True(t, reg.Has("ops"))
	assert.True(t, slices.ContainsFunc(slices.Collect(reg.List()), func(b wecombot.BotInfo) bool {
		return b.ID == "ops" && b.Name == "Ops"
	}))
}

func TestSender(t *testing.T) {
	p := filepath.Join(t.TempDir(), "wecombot.yaml")
	require.NoError(t, os.WriteFile(p, []byte("bots:\n  ops: https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=ops\nlimits:\n  history_size: 10\n"), 0o644))
	cfg.ConfigFile = p
	t.Cleanup(func() { cfg.ConfigFile = "" })

	snd, err := Sender(t.Context())
	require.NoError(t, err)
	assert.True(t, snd.Registry().Has("ops"))
	assert.Equal(t, 0, snd.History().Len())
}

func TestSender_badSettings(t *testing.T) {
	p := filepath.Join(t.TempDir(), "wecombot.yaml")
	require.NoError(t, os.WriteFile(p, []byte("limits:\n  max_attempts: 0\n  timeout: -1s\n"), 0o644))
	cfg.ConfigFile = p
	t.Cleanup(func() { cfg.ConfigFile = "" })

	_, err := Sender(t.Context())
	assert.Error(t, err)
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	lg := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pb := NewProgressBar(t.Context(), &buf, "sending", lg)
	assert.NotPanics(t, func() {
		pb.Progress(t.Context(), 0.2)
		pb.Info(t.Context(), "uploading")
		pb.Progress(t.Context(), 1)
		pb.Error(t.Context(), "boom")
		pb.Finish()
	})
}

func Test_isTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, isTerminal(&buf))

	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f))
}
