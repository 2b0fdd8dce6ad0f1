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

package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/rusq/wecombot"
)

const progressMax = 100

// ProgressBar displays the progress of a sender call.  It implements
// wecombot.Observer.
type ProgressBar struct {
	pb *progressbar.ProgressBar
	lg *slog.Logger
}

var _ wecombot.Observer = (*ProgressBar)(nil)

// NewProgressBar creates a new progress bar writing to w.  If the debug
// logging is enabled, the bar is silent, so that it doesn't interfere with
// the log output.  The bar is also silent if w is a file that is not a
// terminal.
func NewProgressBar(ctx context.Context, w io.Writer, title string, lg *slog.Logger) *ProgressBar {
	var pb *progressbar.ProgressBar
	if lg.Enabled(ctx, slog.LevelDebug) || !isTerminal(w) {
		pb = progressbar.DefaultSilent(progressMax, title)
	} else {
		pb = progressbar.NewOptions(
			progressMax,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(title),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetWidth(30),
		)
	}
	return &ProgressBar{pb: pb, lg: lg}
}

func (p *ProgressBar) Progress(_ context.Context, progress float64) {
	_ = p.pb.Set(int(progress * progressMax))
}

func (p *ProgressBar) Info(ctx context.Context, msg string) {
	p.pb.Describe(msg)
	p.lg.DebugContext(ctx, msg)
}

func (p *ProgressBar) Error(ctx context.Context, msg string) {
	_ = p.pb.Clear()
	p.lg.DebugContext(ctx, "call failed", "error", msg)
}

// Finish completes the bar.
func (p *ProgressBar) Finish() {
	_ = p.pb.Finish()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	return term.IsTerminal(int(f.Fd()))
}
