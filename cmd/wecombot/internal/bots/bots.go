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

// Package bots contains the command that lists the configured bots.
package bots

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/rusq/wecombot"
	"github.com/rusq/wecombot/cmd/wecombot/internal/bootstrap"
	"github.com/rusq/wecombot/cmd/wecombot/internal/cfg"
	"github.com/rusq/wecombot/cmd/wecombot/internal/golang/base"
)

//go:embed assets/bots.md
var mdBots string

// CmdBots is the "wecombot bots" command.
var CmdBots = &base.Command{
	UsageLine:  "wecombot bots [flags]",
	Short:      "list configured bots",
	Long:       mdBots,
	FlagMask:   cfg.OmitLimitsFlags,
	PrintFlags: true,
	Run:        runBots,
}

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var formats = []string{formatText, formatJSON, formatYAML}

var (
	format       string
	instructions bool
)

func init() {
	CmdBots.Flag.StringVar(&format, "format", formatText, "output `format`: text, json or yaml")
	CmdBots.Flag.BoolVar(&instructions, "instructions", false, "print the bot selection instructions sent to MCP clients")
}

func runBots(ctx context.Context, cmd *base.Command, args []string) error {
	if !slices.Contains(formats, format) {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("unknown format %q, use one of %v", format, formats)
	}
	s, err := cfg.LoadSettings(cfg.ConfigFile)
	if err != nil {
		base.SetExitStatus(base.SConfigError)
		return err
	}
	reg := bootstrap.Registry(s)
	if instructions {
		fmt.Fprintln(os.Stdout, reg.Instructions())
		return nil
	}
	return list(os.Stdout, reg, format)
}

// listing is the machine readable list of bots.
type listing struct {
	Bots       []wecombot.BotInfo `json:"bots" yaml:"bots"`
	Count      int                `json:"count" yaml:"count"`
	DefaultBot string             `json:"default_bot,omitempty" yaml:"default_bot,omitempty"`
}

func list(w io.Writer, reg *wecombot.Registry, format string) error {
	l := listing{Bots: slices.Collect(reg.List())}
	if l.Bots == nil {
		l.Bots = []wecombot.BotInfo{}
	}
	l.Count = len(l.Bots)
	if reg.Has(wecombot.DefaultBotID) {
		l.DefaultBot = wecombot.DefaultBotID
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(l)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(l); err != nil {
			return err
		}
		return enc.Close()
	default:
		return printText(w, l)
	}
}

var (
	idColor      = color.New(color.FgCyan, color.Bold).SprintFunc()
	defaultColor = color.New(color.FgGreen).SprintFunc()
	missingColor = color.New(color.FgRed).SprintFunc()
)

func printText(w io.Writer, l listing) error {
	if l.Count == 0 {
		_, err := fmt.Fprintln(w, "No bots configured.  Set "+wecombot.EnvWebhookURL+" or "+wecombot.EnvBots+" environment variable.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION\tWEBHOOK")
	for _, b := range l.Bots {
		id := idColor(b.ID)
		if b.ID == l.DefaultBot {
			id += " " + defaultColor("(default)")
		}
		hook := "yes"
		if !b.HasWebhook {
			hook = missingColor("missing")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, b.Name, b.Description, hook)
	}
	return tw.Flush()
}
