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

// Package serve contains the CLI command for starting the WeCom bot MCP
// server.
package serve

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/rusq/osenv/v2"

	"github.com/rusq/wecombot/cmd/wecombot/internal/bootstrap"
	"github.com/rusq/wecombot/cmd/wecombot/internal/cfg"
	"github.com/rusq/wecombot/cmd/wecombot/internal/golang/base"
	"github.com/rusq/wecombot/internal/mcp"
)

//go:embed assets/serve.md
var mdServe string

// CmdServe is the "wecombot serve" command.
var CmdServe = &base.Command{
	UsageLine:  "wecombot serve [flags]",
	Short:      "start the MCP server",
	Long:       mdServe,
	PrintFlags: true,
	Run:        runServe,
}

const defListenAddr = "127.0.0.1:8483"

var (
	listenAddr string
	transport  string
)

func init() {
	CmdServe.Flag.StringVar(&transport, "transport", osenv.Value("MCP_TRANSPORT", string(mcp.TransportStdio)), "MCP transport: \"stdio\" or \"http\"")
	CmdServe.Flag.StringVar(&listenAddr, "listen", osenv.Value("MCP_LISTEN", defListenAddr), "address to listen on when -transport=http")
}

func runServe(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) > 0 {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("serve: unexpected arguments: %v", args)
	}
	lg := cfg.Log

	snd, err := bootstrap.Sender(ctx)
	if err != nil {
		base.SetExitStatus(base.SConfigError)
		return fmt.Errorf("serve: %w", err)
	}
	if n := snd.Registry().Count(); n == 0 {
		lg.WarnContext(ctx, "serve: no bots configured, all sends will fail until configured")
	} else {
		lg.InfoContext(ctx, "serve: bots configured", "count", n)
	}

	srv := mcp.New(snd, mcp.WithLogger(lg))

	switch mcp.Transport(strings.ToLower(transport)) {
	case mcp.TransportStdio, "":
		return srv.ServeStdio(ctx)
	case mcp.TransportHTTP:
		return srv.ServeHTTP(ctx, listenAddr)
	default:
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("serve: unknown transport %q (use %q or %q)", transport, mcp.TransportStdio, mcp.TransportHTTP)
	}
}
