// Package base defines shared basic pieces of the wecombot command.
//
// The command subsystem is based on golang's `go` command implementation, which
// is BSD-licensed:
//
//	Copyright 2017 The Go Authors. All rights reserved.
//	Use of this source code is governed by a BSD-style
//	license that can be found in the LICENSE file.
package base

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rusq/wecombot/cmd/wecombot/internal/cfg"
)

// CmdName is the name of the executable.
const CmdName = "wecombot"

// A Command is an implementation of a wecombot command.
type Command struct {
	// Run runs the command.
	// The args are the arguments after the command name.
	Run func(ctx context.Context, cmd *Command, args []string) error

	// UsageLine is the one-line usage message.
	UsageLine string

	// Short is the short description shown in the 'wecombot help' output.
	Short string

	// Long is the long message shown in the 'wecombot help <this-command>' output.
	Long string

	// Flag is a set of flags specific to this command.
	Flag flag.FlagSet

	// FlagMask is a set of base flags that are not used by the command.
	FlagMask cfg.FlagMask

	// CustomFlags indicates that the command will do its own
	// flag parsing.
	CustomFlags bool

	// PrintFlags indicates that generic help handler should print the
	// flags in the flagset.  Set it to false, if a Long lists all the flags.
	// It only matters for the commands that have no subcommands.
	PrintFlags bool

	// Commands lists the available commands and help topics.
	// The order here is the order in which they are printed by 'wecombot help'.
	Commands []*Command
}

// WeComBot is the root command.
var WeComBot = &Command{
	UsageLine: CmdName,
	Long:      `Wecombot sends messages, files, images and template cards to WeCom group bots, and serves them to AI agents over MCP.`,
	// Commands initialised in main.
}

var (
	exitStatus = SNoError
	exitMu     sync.Mutex
)

// SetExitStatus sets the exit status of the process, if n is greater than
// the current one.
func SetExitStatus(n StatusCode) {
	exitMu.Lock()
	if exitStatus < n {
		exitStatus = n
	}
	exitMu.Unlock()
}

// ExitStatus returns the current exit status.
func ExitStatus() StatusCode {
	exitMu.Lock()
	defer exitMu.Unlock()
	return exitStatus
}

var atExitFuncs []func()

// AtExit registers the function to be called by Exit.
func AtExit(f func()) {
	atExitFuncs = append(atExitFuncs, f)
}

// Exit runs the AtExit functions and exits with the exit status.
func Exit() {
	for _, f := range atExitFuncs {
		f()
	}
	os.Exit(int(ExitStatus()))
}

// Runnable reports whether the command can be run; otherwise
// it is a documentation pseudo-command.
func (c *Command) Runnable() bool {
	return c.Run != nil
}

// LongName returns the command's long name: all the words in the usage line
// between "wecombot" and a flag or argument.
func (c *Command) LongName() string {
	name := c.UsageLine
	if i := strings.Index(name, " ["); i >= 0 {
		name = name[:i]
	}
	if name == CmdName {
		return ""
	}
	return strings.TrimPrefix(name, CmdName+" ")
}

// Name returns the command's short name: the last word in the usage line
// before a flag or argument.
func (c *Command) Name() string {
	name := c.LongName()
	if i := strings.LastIndex(name, " "); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Lookup returns the subcommand with the given name, or nil.
func (c *Command) Lookup(name string) *Command {
	for _, sub := range c.Commands {
		if sub.Name() == name {
			return sub
		}
	}
	return nil
}

// Usage is the usage-reporting function, filled in by package main
// but here for reference by other packages.
var Usage func()

// Usage prints the short usage of the command and exits.
func (c *Command) Usage() {
	c.printUsage(os.Stderr)
	SetExitStatus(SInvalidParameters)
	Exit()
}

func (c *Command) printUsage(w io.Writer) {
	fmt.Fprintf(w, "usage: %s\n", c.UsageLine)
	fmt.Fprintf(w, "Run '%s help %s' for details.\n", CmdName, c.LongName())
}
