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

package webhook

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
)

// Message types accepted by the webhook.
const (
	TypeText         = "text"
	TypeMarkdown     = "markdown"
	TypeMarkdownV2   = "markdown_v2"
	TypeNews         = "news"
	TypeFile         = "file"
	TypeVoice        = "voice"
	TypeImage        = "image"
	TypeTemplateCard = "template_card"
)

// Message is the request body of the webhook send call.  Exactly one of the
// payload fields matching MsgType is set.
type Message struct {
	MsgType      string    `json:"msgtype"`
	Text         *Text     `json:"text,omitempty"`
	Markdown     *Markdown `json:"markdown,omitempty"`
	MarkdownV2   *Markdown `json:"markdown_v2,omitempty"`
	Image        *Image    `json:"image,omitempty"`
	File         *Media    `json:"file,omitempty"`
	TemplateCard any       `json:"template_card,omitempty"`
}

type Text struct {
	Content             string   `json:"content"`
	MentionedList       []string `json:"mentioned_list,omitempty"`
	MentionedMobileList []string `json:"mentioned_mobile_list,omitempty"`
}

type Markdown struct {
	Content string `json:"content"`
}

type Image struct {
	Base64 string `json:"base64"`
	MD5    string `json:"md5"`
}

type Media struct {
	MediaID string `json:"media_id"`
}

func NewText(content string, mentioned, mentionedMobile []string) *Message {
	return &Message{
		MsgType: TypeText,
		Text: &Text{
			Content:             content,
			MentionedList:       mentioned,
			MentionedMobileList: mentionedMobile,
		},
	}
}

func NewMarkdown(content string) *Message {
	return &Message{MsgType: TypeMarkdown, Markdown: &Markdown{Content: content}}
}

func NewMarkdownV2(content string) *Message {
	return &Message{MsgType: TypeMarkdownV2, MarkdownV2: &Markdown{Content: content}}
}

// NewImage returns the image message for the raw image data.  The webhook
// wants the image inline as base64 with the md5 hex digest of the raw bytes.
func NewImage(data []byte) *Message {
	sum := md5.Sum(data)
	return &Message{
		MsgType: TypeImage,
		Image: &Image{
			Base64: base64.StdEncoding.EncodeToString(data),
			MD5:    hex.EncodeToString(sum[:]),
		},
	}
}

func NewFile(mediaID string) *Message {
	return &Message{MsgType: TypeFile, File: &Media{MediaID: mediaID}}
}

// NewTemplateCard wraps the card, which must marshal to the template_card
// object.
func NewTemplateCard(card any) *Message {
	return &Message{MsgType: TypeTemplateCard, TemplateCard: card}
}
