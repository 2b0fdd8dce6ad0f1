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

// In this file: template cards.

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rusq/wecombot/internal/textutil"
	"github.com/rusq/wecombot/internal/webhook"
)

// Template card types.
const (
	CardTextNotice = "text_notice"
	CardNewsNotice = "news_notice"
)

// CardTypes lists the supported template card types.
var CardTypes = []string{CardTextNotice, CardNewsNotice}

// TemplateCard is the template card message.  The nested objects are passed
// to the webhook as is, see the WeCom group bot documentation for their
// fields.
type TemplateCard struct {
	CardType   string         `json:"card_type" validate:"required,oneof=text_notice news_notice"`
	Source     map[string]any `json:"source" validate:"required,min=1"`
	MainTitle  map[string]any `json:"main_title" validate:"required,min=1"`
	CardAction map[string]any `json:"card_action" validate:"required,min=1"`

	EmphasisContent       map[string]any   `json:"emphasis_content,omitempty"`
	QuoteArea             map[string]any   `json:"quote_area,omitempty"`
	SubTitleText          string           `json:"sub_title_text,omitempty"`
	HorizontalContentList []map[string]any `json:"horizontal_content_list,omitempty"`
	JumpList              []map[string]any `json:"jump_list,omitempty"`
	CardImage             map[string]any   `json:"card_image,omitempty"`
	ImageTextArea         map[string]any   `json:"image_text_area,omitempty"`
	VerticalContentList   []map[string]any `json:"vertical_content_list,omitempty"`

	// BotID selects the bot, see Registry.Get.
	BotID string `json:"-"`
}

const newsNoticeImage = "card_image or image_text_area"

// templateCardValidation is the struct level validation: news_notice cards
// need an image.
func templateCardValidation(sl validator.StructLevel) {
	card := sl.Current().Interface().(TemplateCard)
	if card.CardType == CardNewsNotice && len(card.CardImage) == 0 && len(card.ImageTextArea) == 0 {
		sl.ReportError(card.CardImage, newsNoticeImage, "CardImage", "required", "")
	}
}

// Title returns the main title of the card, if it has one.
func (t *TemplateCard) Title() string {
	s, _ := t.MainTitle["title"].(string)
	return s
}

// SendTemplateCard sends the template card.
func (s *Sender) SendTemplateCard(ctx context.Context, card TemplateCard) (*Result, error) {
	c := s.begin(ctx, "SendTemplateCard")
	c.progress(0.1, "Sending template card: %s", card.CardType)

	if err := validateCard(&card); err != nil {
		return nil, c.fail(err)
	}
	webhookURL, err := s.resolveURL(c, card.BotID)
	if err != nil {
		return nil, c.fail(err)
	}
	if err := prepareCard(&card); err != nil {
		return nil, c.fail(err)
	}

	c.progress(0.6, "Sending template card to WeCom")
	payload := webhook.NewTemplateCard(card)
	resp, err := s.transmit(c, webhookURL, payload.MsgType, func(ctx context.Context) (*webhook.Response, error) {
		return s.tr.Send(ctx, webhookURL, payload)
	})
	if err != nil {
		return nil, c.fail(err)
	}
	if err := checkResponse(resp, "template card"); err != nil {
		return nil, c.fail(err)
	}
	s.record(c, fmt.Sprintf("[template_card:%s] %s", card.CardType, card.Title()))
	return c.done(success("Template card sent successfully")), nil
}

// validateCard checks the required fields and the card type.  Invalid type
// is reported before the missing fields.
func validateCard(card *TemplateCard) error {
	card.CardType = strings.TrimSpace(card.CardType)
	err := validate.Struct(card)
	if err == nil {
		return nil
	}
	var vErr validator.ValidationErrors
	if !errors.As(err, &vErr) {
		return newErr(CodeValidation, err, "Invalid template card: %v", err)
	}
	for _, fe := range vErr {
		if fe.StructField() == "CardType" && fe.Tag() == "oneof" {
			return errValidation("Invalid template_card_type: %s. Allowed values: %s", card.CardType, strings.Join(CardTypes, ", "))
		}
	}
	missing := make([]string, 0, len(vErr))
	for _, fe := range vErr {
		missing = append(missing, fe.Field())
	}
	return errValidation("Missing required template card fields: %s", strings.Join(missing, ", "))
}

// prepareCard fixes the encoding of the title texts.  The maps are cloned,
// the caller's card is not modified.
func prepareCard(card *TemplateCard) error {
	for _, m := range []*map[string]any{&card.MainTitle, &card.EmphasisContent, &card.QuoteArea} {
		if *m == nil {
			continue
		}
		*m = maps.Clone(*m)
		for k, v := range *m {
			s, ok := v.(string)
			if !ok {
				continue
			}
			fixed, err := textutil.Normalize(s, TypeText)
			if err != nil {
				return newErr(CodeValidation, err, "Text encoding error: %s", err)
			}
			(*m)[k] = fixed
		}
	}
	if card.SubTitleText != "" {
		fixed, err := textutil.Normalize(card.SubTitleText, TypeText)
		if err != nil {
			return newErr(CodeValidation, err, "Text encoding error: %s", err)
		}
		card.SubTitleText = fixed
	}
	return nil
}
