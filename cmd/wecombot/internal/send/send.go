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

// Package send contains the one-shot delivery command.
package send

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rusq/wecombot"
	"github.com/rusq/wecombot/cmd/wecombot/internal/bootstrap"
	"github.com/rusq/wecombot/cmd/wecombot/internal/cfg"
	"github.com/rusq/wecombot/cmd/wecombot/internal/golang/base"
)

//go:embed assets/send.md
var mdSend string

// CmdSend is the "wecombot send" command.
var CmdSend = &base.Command{
	UsageLine:  "wecombot send [flags] [content...]",
	Short:      "send a message, file, image or template card",
	Long:       mdSend,
	PrintFlags: true,
	Run:        runSend,
}

type params struct {
	botID          string
	msgType        string
	mentions       cfg.StringSlice
	mentionsMobile cfg.StringSlice
	file           string
	image          string
	upload         string
	kind           string
	card           string
	jsonOutput     bool
}

var p params

func init() {
	CmdSend.Flag.StringVar(&p.botID, "bot", "", "bot `id`, see 'wecombot bots'")
	CmdSend.Flag.StringVar(&p.msgType, "type", wecombot.DefMessageType, "message `type`: "+strings.Join(wecombot.MessageTypes, ", "))
	CmdSend.Flag.Var(&p.mentions, "mention", "comma-separated user `IDs` to mention, @all mentions everyone")
	CmdSend.Flag.Var(&p.mentionsMobile, "mention-mobile", "comma-separated mobile `numbers` to mention (text messages)")
	CmdSend.Flag.StringVar(&p.file, "file", "", "send the `file`")
	CmdSend.Flag.StringVar(&p.image, "image", "", "send the image from local `path or URL`")
	CmdSend.Flag.StringVar(&p.upload, "upload", "", "upload the `file` without sending, prints the media_id")
	CmdSend.Flag.StringVar(&p.kind, "kind", wecombot.MediaFile, "media `kind` for -upload: file or voice")
	CmdSend.Flag.StringVar(&p.card, "card", "", "send the template card from the JSON `file`")
	CmdSend.Flag.BoolVar(&p.jsonOutput, "json", false, "print the result as JSON")
}

// errAmbiguous is returned when more than one of -file, -image, -upload and
// -card is given.
var errAmbiguous = errors.New("only one of -file, -image, -upload or -card can be given")

// sendFunc performs the delivery.
type sendFunc func(ctx context.Context, snd *wecombot.Sender) (*wecombot.Result, error)

func runSend(ctx context.Context, cmd *base.Command, args []string) error {
	fn, title, err := p.action(args, os.Stdin)
	if err != nil {
		base.SetExitStatus(base.SInvalidParameters)
		return err
	}

	snd, err := bootstrap.Sender(ctx)
	if err != nil {
		base.SetExitStatus(base.SConfigError)
		return err
	}

	pb := bootstrap.NewProgressBar(ctx, os.Stderr, title, cfg.Log)
	res, err := fn(wecombot.WithObserver(ctx, pb), snd)
	pb.Finish()
	if err != nil {
		base.SetExitStatus(statusOf(err))
		return err
	}
	return p.print(os.Stdout, res)
}

// action returns the delivery function for the parameters and the
// arguments.
func (p *params) action(args []string, stdin io.Reader) (sendFunc, string, error) {
	var n int
	for _, s := range []string{p.file, p.image, p.upload, p.card} {
		if s != "" {
			n++
		}
	}
	if n > 1 {
		return nil, "", errAmbiguous
	}
	if n == 1 && len(args) > 0 {
		return nil, "", fmt.Errorf("unexpected arguments: %v", args)
	}

	switch {
	case p.file != "":
		return func(ctx context.Context, snd *wecombot.Sender) (*wecombot.Result, error) {
			return snd.SendFile(ctx, p.file, p.botID)
		}, "sending file", nil
	case p.image != "":
		return func(ctx context.Context, snd *wecombot.Sender) (*wecombot.Result, error) {
			return snd.SendImage(ctx, p.image, p.botID)
		}, "sending image", nil
	case p.upload != "":
		return func(ctx context.Context, snd *wecombot.Sender) (*wecombot.Result, error) {
			return snd.UploadMedia(ctx, p.upload, p.kind, p.botID)
		}, "uploading", nil
	case p.card != "":
		card, err := readCard(p.card)
		if err != nil {
			return nil, "", err
		}
		if card.BotID == "" {
			card.BotID = p.botID
		}
		return func(ctx context.Context, snd *wecombot.Sender) (*wecombot.Result, error) {
			return snd.SendTemplateCard(ctx, card)
		}, "sending card", nil
	}

	content, err := readContent(args, stdin)
	if err != nil {
		return nil, "", err
	}
	m := wecombot.Message{
		Content:             content,
		Type:                p.msgType,
		MentionedList:       p.mentions,
		MentionedMobileList: p.mentionsMobile,
		BotID:               p.botID,
	}
	return func(ctx context.Context, snd *wecombot.Sender) (*wecombot.Result, error) {
		return snd.SendMessage(ctx, m)
	}, "sending message", nil
}

// readContent returns the message content: the arguments joined with
// spaces, or the standard input if the only argument is "-".
func readContent(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	if len(args) == 0 {
		return "", errors.New("nothing to send: provide the content, or one of -file, -image, -upload or -card")
	}
	return strings.Join(args, " "), nil
}

// cardFile is the template card file, it may carry the bot_id.
type cardFile struct {
	wecombot.TemplateCard
	BotID string `json:"bot_id,omitempty"`
}

func readCard(filename string) (wecombot.TemplateCard, error) {
	f, err := os.Open(filename)
	if err != nil {
		return wecombot.TemplateCard{}, err
	}
	defer f.Close()
	var cf cardFile
	if err := json.NewDecoder(f).Decode(&cf); err != nil {
		return wecombot.TemplateCard{}, fmt.Errorf("card %s: %w", filename, err)
	}
	card := cf.TemplateCard
	card.BotID = cf.BotID
	return card, nil
}

// statusOf returns the exit status for the error.
func statusOf(err error) base.StatusCode {
	switch wecombot.CodeOf(err) {
	case wecombot.CodeValidation, wecombot.CodeFile:
		return base.SUserError
	case wecombot.CodeNetwork, wecombot.CodeAPIFailure:
		return base.SDeliveryError
	default:
		return base.SApplicationError
	}
}

func (p *params) print(w io.Writer, r *wecombot.Result) error {
	if p.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprintln(w, r.Message)
	if r.FileName != "" {
		fmt.Fprintf(w, "  file:   %s (%s)\n", r.FileName, humanize.IBytes(uint64(r.FileSize)))
	}
	if r.ImagePath != "" {
		fmt.Fprintf(w, "  image:  %s (%s)\n", r.ImagePath, humanize.IBytes(uint64(r.FileSize)))
	}
	if r.MediaID != "" {
		fmt.Fprintf(w, "  media:  %s %s\n", r.MediaType, r.MediaID)
	}
	if r.MediaURL != "" {
		fmt.Fprintf(w, "  url:    %s\n", r.MediaURL)
	}
	return nil
}
