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

// In this file: per-call progress reporting.

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/trace"
	"time"

	"github.com/google/uuid"
)

// Observer receives progress notes of a call.  It is attached to the context
// with WithObserver.  Implementations must be safe for concurrent use, if
// the same observer is used for concurrent calls.
type Observer interface {
	// Progress is called with a monotonically increasing value in [0, 1].
	Progress(ctx context.Context, progress float64)
	// Info is called with an informational note.
	Info(ctx context.Context, msg string)
	// Error is called with the message of the error returned by the call.
	Error(ctx context.Context, msg string)
}

type obsKey struct{}

// WithObserver attaches the observer to the context.
func WithObserver(ctx context.Context, obs Observer) context.Context {
	return context.WithValue(ctx, obsKey{}, obs)
}

func observerFrom(ctx context.Context) Observer {
	if obs, ok := ctx.Value(obsKey{}).(Observer); ok && obs != nil {
		return obs
	}
	return nopObserver{}
}

type nopObserver struct{}

func (nopObserver) Progress(context.Context, float64) {}
func (nopObserver) Info(context.Context, string)      {}
func (nopObserver) Error(context.Context, string)     {}

// call is the state of a single pipeline run.
type call struct {
	ctx   context.Context
	op    string
	id    string
	start time.Time
	obs   Observer
	lg    *slog.Logger

	last float64
	task *trace.Task
}

func (s *Sender) begin(ctx context.Context, op string) *call {
	ctx, task := trace.NewTask(ctx, op)
	id := uuid.NewString()
	return &call{
		ctx:   ctx,
		op:    op,
		id:    id,
		start: s.now(),
		obs:   observerFrom(ctx),
		lg:    s.lg.With("op", op, "request_id", id),
		task:  task,
	}
}

// progress reports the progress and the note.  Values lower than the last
// reported are ignored.
func (c *call) progress(p float64, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	c.lg.DebugContext(c.ctx, msg, "progress", p)
	if p > c.last && p <= 1 {
		c.last = p
		c.obs.Progress(c.ctx, p)
	}
	c.obs.Info(c.ctx, msg)
}

// fail converts err to *Error, logs it and reports it to the observer.
func (c *call) fail(err error) error {
	e := AsError(err)
	c.lg.ErrorContext(c.ctx, "call failed", "code", e.Code, "error", e.Msg)
	c.obs.Error(c.ctx, e.Msg)
	c.end()
	return e
}

// done finishes the successful call.
func (c *call) done(r *Result) *Result {
	c.progress(1.0, "%s", r.Message)
	c.lg.InfoContext(c.ctx, r.Message, "took", time.Since(c.start))
	c.end()
	return r
}

func (c *call) end() {
	if c.task != nil {
		c.task.End()
		c.task = nil
	}
}
