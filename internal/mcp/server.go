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

// In this file: MCP server construction and transport management.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/rusq/wecombot"
	"github.com/rusq/wecombot/internal/history"
)

//go:generate mockgen -source server.go -destination mock_mcp/mock_mcp.go -package mock_mcp

const (
	serverName   = "wecom-bot-mcp-server"
	endpointPath = "/mcp"
	healthPath   = "/healthcheck"

	shutdownTimeout = 10 * time.Second
)

// Version is reported to the clients in the initialize response.  It is set
// by the cmd at startup.
var Version = "dev"

// Transport selects how the MCP server communicates with its client.
type Transport string

const (
	// TransportStdio uses stdin/stdout for communication (default, suitable
	// for local agent integrations).
	TransportStdio Transport = "stdio"
	// TransportHTTP uses Streamable HTTP transport (suitable for remote
	// agents or when multiple concurrent clients are needed).
	TransportHTTP Transport = "http"
)

// Transports lists the supported transports.
var Transports = []Transport{TransportStdio, TransportHTTP}

// Sender is the delivery pipeline, as used by the tool handlers.
// *wecombot.Sender implements it.
type Sender interface {
	SendMessage(ctx context.Context, msg wecombot.Message) (*wecombot.Result, error)
	SendFile(ctx context.Context, path string, botID string) (*wecombot.Result, error)
	SendImage(ctx context.Context, src string, botID string) (*wecombot.Result, error)
	UploadMedia(ctx context.Context, path string, kind string, botID string) (*wecombot.Result, error)
	SendTemplateCard(ctx context.Context, card wecombot.TemplateCard) (*wecombot.Result, error)
	Registry() *wecombot.Registry
	History() *history.Log
}

// Server wraps an MCP server and the sender.
type Server struct {
	mcp    *mcpsrv.MCPServer
	snd    Sender
	logger *slog.Logger
}

// Option is the signature of the option-setting function.
type Option func(*Server)

// WithLogger sets the logger.  If lg is nil, slog.Default is used.
func WithLogger(lg *slog.Logger) Option {
	return func(s *Server) {
		if lg != nil {
			s.logger = lg
		}
	}
}

// New creates a new MCP server backed by the given Sender.  The server is
// populated with all tools, resources and prompts but does not start
// listening until one of the Serve* methods is called.
func New(snd Sender, opts ...Option) *Server {
	s := &Server{
		snd:    snd,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	mcpServer := mcpsrv.NewMCPServer(
		serverName,
		Version,
		mcpsrv.WithInstructions(instructions(snd.Registry())),
		mcpsrv.WithToolCapabilities(false),
		mcpsrv.WithResourceCapabilities(false, false),
		mcpsrv.WithPromptCapabilities(false),
		mcpsrv.WithLogging(),
		mcpsrv.WithRecovery(),
	)

	for _, t := range s.tools() {
		mcpServer.AddTool(t.Tool, t.Handler)
	}
	for _, r := range s.resources() {
		mcpServer.AddResource(r.Resource, r.Handler)
	}
	for _, p := range s.prompts() {
		mcpServer.AddPrompt(p.Prompt, p.Handler)
	}

	s.mcp = mcpServer
	return s
}

// instructions returns the server instructions that describe the available
// bots to the connecting agent.
func instructions(reg *wecombot.Registry) string {
	return `You are connected to a WeCom bot MCP server.

Available tools allow you to:
- Send text, markdown and markdown_v2 messages, with mentions
- Send files and images, and upload voice and file media
- Send text_notice and news_notice template cards
- List the configured bots

The history of the sent messages is available as the wecom://messages
resource, and the markdown reference as wecom://markdown-capabilities.

` + reg.Instructions()
}

// ServeStdio runs the MCP server over stdin/stdout until ctx is cancelled.
// This is the standard transport used by local agent integrations.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := mcpsrv.NewStdioServer(s.mcp)
	s.logger.InfoContext(ctx, "mcp server listening on stdio")
	if err := srv.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("mcp stdio server error: %w", err)
	}
	return nil
}

// ServeHTTP runs the MCP server as a Streamable HTTP server on addr until
// ctx is cancelled.  addr should be a host:port string such as
// "127.0.0.1:8483".  The MCP endpoint is served at /mcp.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	streamSrv := mcpsrv.NewStreamableHTTPServer(s.mcp, mcpsrv.WithEndpointPath(endpointPath))
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.router(streamSrv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.InfoContext(ctx, "mcp server listening on http", "addr", addr, "endpoint", endpointPath)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcp http server error: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		s.logger.Info("mcp server shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			return fmt.Errorf("mcp http server shutdown error: %w", err)
		}
		return nil
	})
	return eg.Wait()
}

// router returns the HTTP handler that serves the MCP endpoint h and the
// health check.
func (s *Server) router(h http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	r.Get(healthPath, s.handleHealth)
	r.Handle(endpointPath, h)
	return r
}

type health struct {
	Status string `json:"status"`
	Server string `json:"server"`
	Bots   int    `json:"bots"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health{Status: "ok", Server: serverName, Bots: s.snd.Registry().Count()}); err != nil {
		s.logger.WarnContext(r.Context(), "healthcheck", "error", err)
	}
}

// tools returns all MCP tools that this server exposes.
func (s *Server) tools() []mcpsrv.ServerTool {
	return []mcpsrv.ServerTool{
		s.toolSendMessage(),
		s.toolSendFile(),
		s.toolSendImage(),
		s.toolUploadMedia(),
		s.toolTemplateCard(wecombot.CardTextNotice),
		s.toolTemplateCard(wecombot.CardNewsNotice),
		s.toolListBots(),
	}
}

// errorResult is the payload of the failed tool call.
type errorResult struct {
	Status    string             `json:"status"`
	ErrorCode wecombot.ErrorCode `json:"error_code"`
	Message   string             `json:"message"`
}

// resultErr is a helper that wraps an error in a CallToolResult with
// IsError=true.  The text is the JSON with the error code and the message.
func resultErr(err error) *mcplib.CallToolResult {
	e := wecombot.AsError(err)
	data, merr := json.Marshal(errorResult{Status: "error", ErrorCode: e.Code, Message: e.Error()})
	if merr != nil {
		data = []byte(err.Error())
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
		IsError: true,
	}
}

// resultJSON is a helper that serialises v to JSON and returns a CallToolResult.
func resultJSON(v any) (*mcplib.CallToolResult, error) {
	return mcplib.NewToolResultJSON(v)
}
