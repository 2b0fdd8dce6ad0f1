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

package wecombot

// In this file: text and markdown messages.

import (
	"context"
	"strings"

	"github.com/rusq/wecombot/internal/primitive"
	"github.com/rusq/wecombot/internal/textutil"
	"github.com/rusq/wecombot/internal/webhook"
)

// Message types accepted by SendMessage.
const (
	TypeText       = webhook.TypeText
	TypeMarkdown   = webhook.TypeMarkdown
	TypeMarkdownV2 = webhook.TypeMarkdownV2
)

// DefMessageType is the message type used when none is given.
const DefMessageType = TypeMarkdownV2

// MessageTypes lists the message types accepted by SendMessage.
var MessageTypes = []string{TypeText, TypeMarkdown, TypeMarkdownV2}

// Message is the text message to send.
type Message struct {
	// Content is the message text, must not be blank.
	Content string
	// Type is one of MessageTypes, DefMessageType if empty.
	Type string
	// MentionedList is the list of user IDs to mention, "@all" mentions
	// everyone.  Used with text and markdown.
	MentionedList []string
	// MentionedMobileList is the list of mobile numbers to mention.  Used
	// with text only.
	MentionedMobileList []string
	// BotID selects the bot, see Registry.Get.
	BotID string
}

// SendMessage sends the text message.
func (s *Sender) SendMessage(ctx context.Context, m Message) (*Result, error) {
	c := s.begin(ctx, "SendMessage")
	c.progress(0.1, "Sending message")

	msgType, err := validateMessage(m)
	if err != nil {
		return nil, c.fail(err)
	}
	c.lg = c.lg.With("msgtype", msgType)
	webhookURL, err := s.resolveURL(c, m.BotID)
	if err != nil {
		return nil, c.fail(err)
	}
	c.progress(0.4, "Preparing message content")
	content, err := prepareContent(m.Content, msgType)
	if err != nil {
		return nil, c.fail(err)
	}
	payload := s.buildMessage(c, msgType, content, primitive.Compact(m.MentionedList), primitive.Compact(m.MentionedMobileList))

	c.progress(0.6, "Sending message to WeCom")
	resp, err := s.transmit(c, webhookURL, msgType, func(ctx context.Context) (*webhook.Response, error) {
		return s.tr.Send(ctx, webhookURL, payload)
	})
	if err != nil {
		return nil, c.fail(err)
	}
	c.progress(0.8, "Checking response")
	if err := checkResponse(resp, "message"); err != nil {
		return nil, c.fail(err)
	}
	s.record(c, content)
	return c.done(success("Message sent successfully")), nil
}

// validateMessage checks the content and the message type, and returns the
// effective type.
func validateMessage(m Message) (string, error) {
	if strings.TrimSpace(m.Content) == "" {
		return "", errValidation("Message content cannot be empty")
	}
	msgType := strings.TrimSpace(m.Type)
	if msgType == "" {
		msgType = DefMessageType
	}
	if !isMessageType(msgType) {
		return "", errValidation("Invalid message type: %s. Allowed values: %s", m.Type, strings.Join(MessageTypes, ", "))
	}
	return msgType, nil
}

func isMessageType(t string) bool {
	for _, mt := range MessageTypes {
		if t == mt {
			return true
		}
	}
	return false
}

// prepareContent normalizes the content for sending.
func prepareContent(content string, msgType string) (string, error) {
	out, err := textutil.Normalize(content, msgType)
	if err != nil {
		return "", newErr(CodeValidation, err, "Text encoding error: %s", err)
	}
	return out, nil
}

func (s *Sender) buildMessage(c *call, msgType string, content string, mentioned, mentionedMobile []string) *webhook.Message {
	switch msgType {
	case TypeText:
		return webhook.NewText(content, mentioned, mentionedMobile)
	case TypeMarkdown:
		if len(mentionedMobile) > 0 {
			c.lg.DebugContext(c.ctx, "markdown does not support mentions by mobile number, ignoring", "n", len(mentionedMobile))
		}
		return webhook.NewMarkdown(withMentions(content, mentioned))
	default:
		if len(mentioned)+len(mentionedMobile) > 0 {
			c.lg.DebugContext(c.ctx, "markdown_v2 does not support mentions, ignoring")
		}
		return webhook.NewMarkdownV2(content)
	}
}

// withMentions appends the <@userid> mention tags to the markdown content.
func withMentions(content string, mentioned []string) string {
	if len(mentioned) == 0 {
		return content
	}
	var sb strings.Builder
	sb.WriteString(content)
	sb.WriteString("\n")
	for i, id := range mentioned {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("<@" + strings.TrimPrefix(id, "@") + ">")
	}
	return sb.String()
}
