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

package mcp

// In this file: progress and log notifications to the client.

import (
	"context"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/rusq/wecombot"
)

const (
	methodProgress = "notifications/progress"
	methodMessage  = "notifications/message"
)

// notifier reports the progress of the call to the client that made it.  It
// implements wecombot.Observer.  Progress is reported only if the client has
// sent the progress token with the request.
type notifier struct {
	srv   *mcpsrv.MCPServer
	token mcplib.ProgressToken
	lg    *slog.Logger
}

var _ wecombot.Observer = (*notifier)(nil)

// observe attaches the notifier for the request to the context.
func (s *Server) observe(ctx context.Context, req mcplib.CallToolRequest) context.Context {
	n := &notifier{srv: s.mcp, lg: s.logger}
	if req.Params.Meta != nil {
		n.token = req.Params.Meta.ProgressToken
	}
	return wecombot.WithObserver(ctx, n)
}

func (n *notifier) Progress(ctx context.Context, progress float64) {
	if n.token == nil {
		return
	}
	n.notify(ctx, methodProgress, map[string]any{
		"progressToken": n.token,
		"progress":      progress,
		"total":         1.0,
	})
}

func (n *notifier) Info(ctx context.Context, msg string) {
	n.notify(ctx, methodMessage, logParams(mcplib.LoggingLevelInfo, msg))
}

func (n *notifier) Error(ctx context.Context, msg string) {
	n.notify(ctx, methodMessage, logParams(mcplib.LoggingLevelError, msg))
}

func logParams(level mcplib.LoggingLevel, msg string) map[string]any {
	return map[string]any{
		"level":  level,
		"logger": serverName,
		"data":   msg,
	}
}

// notify sends the notification to the client of the current session.
// There's no session outside of a client request, in which case the
// notification is dropped.
func (n *notifier) notify(ctx context.Context, method string, params map[string]any) {
	if n.srv == nil {
		return
	}
	if err := n.srv.SendNotificationToClient(ctx, method, params); err != nil {
		n.lg.DebugContext(ctx, "notification dropped", "method", method, "error", err)
	}
}
