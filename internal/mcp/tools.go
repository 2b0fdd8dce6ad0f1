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

// In this file: MCP tool definitions and handler implementations.

import (
	"context"
	"slices"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/rusq/wecombot"
)

// botIDParam is the optional bot_id parameter shared by all sending tools.
func botIDParam() mcplib.ToolOption {
	return mcplib.WithString("bot_id",
		mcplib.Description("ID of the bot to send with, see list_wecom_bots.  Can be omitted if only one bot is configured, or if there's a \"default\" bot."),
	)
}

// ─── send_message ─────────────────────────────────────────────────────────────

func (s *Server) toolSendMessage() mcpsrv.ServerTool {
	tool := mcplib.NewTool("send_message",
		mcplib.WithDescription(`Send a message to the WeCom group chat.

Message types:
- markdown_v2 (default): full markdown with tables, lists and code blocks, no mentions.
- markdown: basic markdown, supports font colours and mentions by user ID.
- text: plain text, supports mentions by user ID and by mobile number.

URLs and file paths in the content are sent as is, do not modify them.`),
		mcplib.WithString("content",
			mcplib.Description("Message content."),
			mcplib.Required(),
		),
		mcplib.WithString("msg_type",
			mcplib.Description("Message type."),
			mcplib.Enum(wecombot.MessageTypes...),
			mcplib.DefaultString(wecombot.DefMessageType),
		),
		mcplib.WithArray("mentioned_list",
			mcplib.Description(`User IDs to mention, "@all" mentions everyone.  Ignored for markdown_v2.`),
			mcplib.WithStringItems(),
		),
		mcplib.WithArray("mentioned_mobile_list",
			mcplib.Description("Mobile numbers to mention.  Used with text messages only."),
			mcplib.WithStringItems(),
		),
		botIDParam(),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleSendMessage}
}

func (s *Server) handleSendMessage(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	content, _ := stringArg(req, "content")
	m := wecombot.Message{
		Content:             content,
		Type:                stringOr(req, "msg_type", wecombot.DefMessageType),
		MentionedList:       stringsArg(req, "mentioned_list"),
		MentionedMobileList: stringsArg(req, "mentioned_mobile_list"),
		BotID:               stringOr(req, "bot_id", ""),
	}
	s.logger.DebugContext(ctx, "mcp: send_message", "type", m.Type, "bot_id", m.BotID, "len", len(m.Content))
	return s.result(s.snd.SendMessage(s.observe(ctx, req), m))
}

// ─── send_wecom_file ──────────────────────────────────────────────────────────

func (s *Server) toolSendFile() mcpsrv.ServerTool {
	tool := mcplib.NewTool("send_wecom_file",
		mcplib.WithDescription("Upload a local file and send it to the WeCom group chat.  The file size must be between 5 bytes and 20 MiB."),
		mcplib.WithString("file_path",
			mcplib.Description("Path to the local file."),
			mcplib.Required(),
		),
		botIDParam(),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleSendFile}
}

func (s *Server) handleSendFile(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	path, _ := stringArg(req, "file_path")
	s.logger.DebugContext(ctx, "mcp: send_wecom_file", "path", path)
	return s.result(s.snd.SendFile(s.observe(ctx, req), path, stringOr(req, "bot_id", "")))
}

// ─── send_wecom_image ─────────────────────────────────────────────────────────

func (s *Server) toolSendImage() mcpsrv.ServerTool {
	tool := mcplib.NewTool("send_wecom_image",
		mcplib.WithDescription("Send a JPG or PNG image (up to 2 MiB) to the WeCom group chat.  The image can be a local file or an http(s) URL, the URL is downloaded first."),
		mcplib.WithString("image_path",
			mcplib.Description("Path to the local image file, or the image URL."),
			mcplib.Required(),
		),
		botIDParam(),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleSendImage}
}

func (s *Server) handleSendImage(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	src, _ := stringArg(req, "image_path")
	s.logger.DebugContext(ctx, "mcp: send_wecom_image", "src", src)
	return s.result(s.snd.SendImage(s.observe(ctx, req), src, stringOr(req, "bot_id", "")))
}

// ─── upload_wecom_media ───────────────────────────────────────────────────────

func (s *Server) toolUploadMedia() mcpsrv.ServerTool {
	tool := mcplib.NewTool("upload_wecom_media",
		mcplib.WithDescription(`Upload a file or a voice recording to WeCom without sending it.

Returns the media_id, that is valid for 3 days.  Voice must be in AMR format
and up to 2 MiB, files up to 20 MiB.`),
		mcplib.WithString("file_path",
			mcplib.Description("Path to the local file."),
			mcplib.Required(),
		),
		mcplib.WithString("upload_media_type",
			mcplib.Description("Media type."),
			mcplib.Enum(wecombot.MediaFile, wecombot.MediaVoice),
			mcplib.DefaultString(wecombot.MediaFile),
		),
		botIDParam(),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleUploadMedia}
}

func (s *Server) handleUploadMedia(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	path, _ := stringArg(req, "file_path")
	kind := stringOr(req, "upload_media_type", wecombot.MediaFile)
	s.logger.DebugContext(ctx, "mcp: upload_wecom_media", "path", path, "kind", kind)
	return s.result(s.snd.UploadMedia(s.observe(ctx, req), path, kind, stringOr(req, "bot_id", "")))
}

// ─── send_wecom_template_card_* ───────────────────────────────────────────────

// cardDescriptions are the descriptions of the template card tools.
var cardDescriptions = map[string]string{
	wecombot.CardTextNotice: `Send a text notice template card to the WeCom group chat.

The card shows the source, the main title, optional emphasis content, quote
area, sub title text, horizontal content and jump lists.  Clicking the card
opens the card_action target.`,
	wecombot.CardNewsNotice: `Send a news notice template card to the WeCom group chat.

Same as the text notice, plus an image: either card_image or image_text_area
must be given.  Optional vertical_content_list adds secondary lines under
the image.`,
}

func (s *Server) toolTemplateCard(cardType string) mcpsrv.ServerTool {
	opts := []mcplib.ToolOption{
		mcplib.WithDescription(cardDescriptions[cardType]),
		mcplib.WithObject("source",
			mcplib.Description(`Card source, e.g. {"icon_url": "...", "desc": "Monitoring", "desc_color": 0}.`),
			mcplib.Required(),
		),
		mcplib.WithObject("main_title",
			mcplib.Description(`Main title, e.g. {"title": "Build failed", "desc": "main branch"}.`),
			mcplib.Required(),
		),
		mcplib.WithObject("card_action",
			mcplib.Description(`Click action, e.g. {"type": 1, "url": "https://..."}.`),
			mcplib.Required(),
		),
		mcplib.WithObject("emphasis_content",
			mcplib.Description(`Emphasised figure, e.g. {"title": "100", "desc": "errors"}.`),
		),
		mcplib.WithObject("quote_area",
			mcplib.Description(`Quote area, e.g. {"type": 0, "title": "...", "quote_text": "..."}.`),
		),
		mcplib.WithString("sub_title_text",
			mcplib.Description("Secondary text under the main title."),
		),
		mcplib.WithArray("horizontal_content_list",
			mcplib.Description(`Key/value lines, e.g. [{"keyname": "Owner", "value": "ops"}].`),
			mcplib.Items(map[string]any{"type": "object"}),
		),
		mcplib.WithArray("jump_list",
			mcplib.Description(`Links, e.g. [{"type": 1, "title": "Logs", "url": "https://..."}].`),
			mcplib.Items(map[string]any{"type": "object"}),
		),
	}
	if cardType == wecombot.CardNewsNotice {
		opts = append(opts,
			mcplib.WithObject("card_image",
				mcplib.Description(`Card image, e.g. {"url": "https://...", "aspect_ratio": 1.3}.`),
			),
			mcplib.WithObject("image_text_area",
				mcplib.Description(`Image with text, e.g. {"type": 1, "url": "https://...", "title": "...", "image_url": "https://..."}.`),
			),
			mcplib.WithArray("vertical_content_list",
				mcplib.Description(`Secondary lines, e.g. [{"title": "...", "desc": "..."}].`),
				mcplib.Items(map[string]any{"type": "object"}),
			),
		)
	}
	opts = append(opts, botIDParam())

	tool := mcplib.NewTool("send_wecom_template_card_"+cardType, opts...)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleTemplateCard(cardType)}
}

func (s *Server) handleTemplateCard(cardType string) mcpsrv.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		card := wecombot.TemplateCard{
			CardType:              cardType,
			Source:                objectArg(req, "source"),
			MainTitle:             objectArg(req, "main_title"),
			CardAction:            objectArg(req, "card_action"),
			EmphasisContent:       objectArg(req, "emphasis_content"),
			QuoteArea:             objectArg(req, "quote_area"),
			SubTitleText:          stringOr(req, "sub_title_text", ""),
			HorizontalContentList: objectsArg(req, "horizontal_content_list"),
			JumpList:              objectsArg(req, "jump_list"),
			BotID:                 stringOr(req, "bot_id", ""),
		}
		if cardType == wecombot.CardNewsNotice {
			card.CardImage = objectArg(req, "card_image")
			card.ImageTextArea = objectArg(req, "image_text_area")
			card.VerticalContentList = objectsArg(req, "vertical_content_list")
		}
		s.logger.DebugContext(ctx, "mcp: send template card", "type", cardType, "title", card.Title())
		return s.result(s.snd.SendTemplateCard(s.observe(ctx, req), card))
	}
}

// ─── list_wecom_bots ──────────────────────────────────────────────────────────

func (s *Server) toolListBots() mcpsrv.ServerTool {
	tool := mcplib.NewTool("list_wecom_bots",
		mcplib.WithDescription("List the configured WeCom bots.  Use the id of the bot as the bot_id parameter of the sending tools."),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleListBots}
}

// botList is the result of list_wecom_bots.
type botList struct {
	Bots       []wecombot.BotInfo `json:"bots"`
	Count      int                `json:"count"`
	DefaultBot string             `json:"default_bot,omitempty"`
}

func (s *Server) handleListBots(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	reg := s.snd.Registry()
	bots := slices.Collect(reg.List())
	if bots == nil {
		bots = []wecombot.BotInfo{}
	}
	res := botList{Bots: bots, Count: len(bots)}
	if reg.Has(wecombot.DefaultBotID) {
		res.DefaultBot = wecombot.DefaultBotID
	}
	s.logger.DebugContext(ctx, "mcp: list_wecom_bots", "count", res.Count)
	return resultJSON(res)
}

// result converts the result of the sender call to the tool result.
func (s *Server) result(r *wecombot.Result, err error) (*mcplib.CallToolResult, error) {
	if err != nil {
		e := wecombot.AsError(err)
		s.logger.Warn("mcp: call failed", "code", e.Code, "error", e.Error())
		return resultErr(e), nil
	}
	return resultJSON(r)
}
