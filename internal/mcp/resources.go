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

// In this file: MCP resources and prompts.

import (
	"context"
	_ "embed"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"
)

const (
	uriMessages             = "wecom://messages"
	uriMarkdownCapabilities = "wecom://markdown-capabilities"

	mimeMarkdown = "text/markdown"
)

var (
	//go:embed assets/markdown_capabilities.md
	markdownCapabilities string
	//go:embed assets/message_guidelines.md
	messageGuidelines string
)

// resources returns all MCP resources that this server exposes.
func (s *Server) resources() []mcpsrv.ServerResource {
	return []mcpsrv.ServerResource{
		{
			Resource: mcplib.NewResource(uriMessages, "Message History",
				mcplib.WithResourceDescription("Messages sent during this session, oldest first."),
				mcplib.WithMIMEType(mimeMarkdown),
			),
			Handler: s.handleMessages,
		},
		{
			Resource: mcplib.NewResource(uriMarkdownCapabilities, "Markdown Capabilities",
				mcplib.WithResourceDescription("Markdown features supported by each WeCom message type."),
				mcplib.WithMIMEType(mimeMarkdown),
			),
			Handler: staticResource(markdownCapabilities),
		},
	}
}

func (s *Server) handleMessages(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	hist := s.snd.History()
	s.logger.DebugContext(ctx, "mcp: read message history", "entries", hist.Len())
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: mimeMarkdown,
			Text:     hist.Format(),
		},
	}, nil
}

// staticResource returns the handler that serves the text.
func staticResource(text string) mcpsrv.ResourceHandlerFunc {
	return func(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: mimeMarkdown,
				Text:     text,
			},
		}, nil
	}
}

// prompts returns all MCP prompts that this server exposes.
func (s *Server) prompts() []mcpsrv.ServerPrompt {
	return []mcpsrv.ServerPrompt{
		{
			Prompt: mcplib.NewPrompt("wecom_message_guidelines",
				mcplib.WithPromptDescription("Guidelines for composing WeCom messages: message types, formatting, limits and bot selection."),
			),
			Handler: s.handleGuidelines,
		},
	}
}

func (s *Server) handleGuidelines(_ context.Context, _ mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	text := messageGuidelines
	if s.snd.Registry().HasMultiple() {
		text += "\n" + s.snd.Registry().Instructions() + "\n"
	}
	return mcplib.NewGetPromptResult(
		"WeCom message guidelines",
		[]mcplib.PromptMessage{
			mcplib.NewPromptMessage(mcplib.RoleUser, mcplib.NewTextContent(text)),
		},
	), nil
}
