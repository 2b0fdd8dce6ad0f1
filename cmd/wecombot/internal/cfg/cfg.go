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

// Package cfg contains common configuration variables.
package cfg

import (
	"flag"
	"log/slog"
	"os"

	"github.com/rusq/osenv/v2"

	"github.com/rusq/wecombot"
)

const (
	EnvConfigFile = "WECOMBOT_CONFIG"
	envPrefix     = "WECOMBOT_"
)

var (
	TraceFile   string
	LogFile     string
	Verbose     bool
	JSONHandler bool

	ConfigFile string

	// Limits are the delivery limits given on the command line.  They are
	// applied over the limits from the settings file.
	Limits wecombot.Limits

	Log = slog.Default()
)

type FlagMask int

const (
	DefaultFlags   FlagMask = 0
	OmitConfigFlag FlagMask = 1 << iota
	OmitLimitsFlags

	OmitAll = OmitConfigFlag | OmitLimitsFlags
)

// SetBaseFlags sets base flags
func SetBaseFlags(fs *flag.FlagSet, mask FlagMask) {
	fs.StringVar(&TraceFile, "trace", osenv.Value("TRACE_FILE", ""), "trace `filename`")
	fs.StringVar(&LogFile, "log", osenv.Value("LOG_FILE", ""), "log `file`, if not specified, messages are printed to STDERR")
	fs.BoolVar(&Verbose, "v", osenv.Value("DEBUG", false), "verbose messages")
	fs.BoolVar(&JSONHandler, "log-json", osenv.Value("JSON_LOG", false), "log in JSON format")

	if mask&OmitConfigFlag == 0 {
		fs.StringVar(&ConfigFile, "config", os.Getenv(EnvConfigFile), "settings `file` (YAML) with bots and limits\n(environment: "+EnvConfigFile+")")
	}
	if mask&OmitLimitsFlags == 0 {
		fs.IntVar(&Limits.MaxAttempts, "attempts", osenv.Value(envPrefix+"ATTEMPTS", 0), "number of delivery `attempts`, 0 uses the settings or the default (3)")
		fs.DurationVar(&Limits.Timeout, "timeout", 0, "HTTP request `timeout`, 0 uses the settings or the default (60s)")
		fs.IntVar(&Limits.PerMinute, "per-minute", osenv.Value(envPrefix+"PER_MINUTE", 0), "maximum `messages` per minute per bot, 0 uses the settings or the default (20),\n-1 disables the limit")
		fs.IntVar(&Limits.HistorySize, "history", osenv.Value(envPrefix+"HISTORY", 0), "message history `size`, 0 keeps all messages")
	}
}
