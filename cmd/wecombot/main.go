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

// Command wecombot sends messages to WeCom group bots and serves the bots to
// AI agents over the Model Context Protocol.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/trace"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rusq/wecombot/cmd/wecombot/internal/bots"
	"github.com/rusq/wecombot/cmd/wecombot/internal/cfg"
	"github.com/rusq/wecombot/cmd/wecombot/internal/golang/base"
	"github.com/rusq/wecombot/cmd/wecombot/internal/golang/help"
	"github.com/rusq/wecombot/cmd/wecombot/internal/send"
	"github.com/rusq/wecombot/cmd/wecombot/internal/serve"
	"github.com/rusq/wecombot/internal/mcp"
)

// secrets defines the names of the supported secret files that we load our
// secrets from.  Inexperienced windows users might have bad experience trying
// to create .env file with the notepad as it will battle for having the
// "txt" extension.  Let it have it.
var secrets = []string{".env", ".env.txt", "secrets.txt"}

func init() {
	loadSecrets(secrets)

	base.WeComBot.Commands = []*base.Command{
		serve.CmdServe,
		send.CmdSend,
		bots.CmdBots,
		CmdVersion,
	}
	mcp.Version = version
	base.Usage = mainUsage
}

func main() {
	flag.Usage = base.Usage
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		base.Usage()
	}

	if args[0] == "help" {
		if !help.Help(os.Stdout, args[1:]) {
			base.SetExitStatus(base.SInvalidParameters)
		}
		base.Exit()
		return
	}

	cmd := base.WeComBot.Lookup(args[0])
	if cmd == nil || !cmd.Runnable() {
		fmt.Fprintf(os.Stderr, "%s %s: unknown command\nRun '%s help' for usage.\n", base.CmdName, args[0], base.CmdName)
		base.SetExitStatus(base.SInvalidParameters)
		base.Exit()
		return
	}

	if err := invoke(cmd, args[1:]); err != nil {
		if base.ExitStatus() == base.SNoError {
			base.SetExitStatus(base.SApplicationError)
		}
		slog.Error("command failed", "command", cmd.Name(), "error", err, "status", base.ExitStatus())
	}
	base.Exit()
}

func mainUsage() {
	help.PrintUsage(os.Stderr, base.WeComBot)
	base.SetExitStatus(base.SHelpRequested)
	base.Exit()
}

// invoke parses the command flags, initialises the logging and tracing, and
// runs the command.
func invoke(cmd *base.Command, args []string) error {
	if !cmd.CustomFlags {
		cfg.SetBaseFlags(&cmd.Flag, cmd.FlagMask)
		cmd.Flag.Usage = func() { help.Help(os.Stderr, strings.Fields(cmd.LongName())) }
		if err := cmd.Flag.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				base.SetExitStatus(base.SHelpRequested)
				return nil
			}
			base.SetExitStatus(base.SInvalidParameters)
			return err
		}
		args = cmd.Flag.Args()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg, err := initLog(cfg.LogFile, cfg.JSONHandler, cfg.Verbose)
	if err != nil {
		base.SetExitStatus(base.SInitializationError)
		return err
	}
	cfg.Log = lg
	lg.DebugContext(ctx, "wecombot", "version", version, "command", cmd.LongName())

	stopTrace := initTrace(cfg.TraceFile)
	base.AtExit(stopTrace)

	ctx, task := trace.NewTask(ctx, "command")
	defer task.End()
	trace.Log(ctx, "command", cmd.LongName())

	return cmd.Run(ctx, cmd, args)
}

// loadSecrets load secrets from the files in secrets slice.
func loadSecrets(files []string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}
