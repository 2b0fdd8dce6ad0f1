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

// Package network contains the retry policy and rate limiting used for the
// outbound webhook calls.
package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/trace"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default retry parameters.
const (
	DefAttempts    = 3
	DefInitialWait = 1 * time.Second
	DefMaxWait     = 10 * time.Second
)

var (
	lg = slog.Default()
	mu sync.RWMutex
)

// ErrNoAttempts is returned if the policy allows zero attempts.
var ErrNoAttempts = errors.New("retry policy allows no attempts")

// Policy is the retry policy for a single transport call.  Zero value is
// usable: it retries every error DefAttempts times with the default
// exponential backoff.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// InitialWait is the wait after the first failed attempt, it doubles on
	// every consecutive failure.
	InitialWait time.Duration
	// MaxWait caps the wait between attempts.
	MaxWait time.Duration
	// Retryable reports whether the error is transient.  If nil, all errors
	// are retried.
	Retryable func(error) bool
	// Sleep waits for d or until ctx is done.  If nil, a timer is used.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (p Policy) attempts() int {
	if p.MaxAttempts == 0 {
		return DefAttempts
	}
	return p.MaxAttempts
}

// Backoff returns the wait duration after the failed attempt number n
// (zero-based): InitialWait * 2^n, capped at MaxWait.
func (p Policy) Backoff(n int) time.Duration {
	initial, maxWait := p.InitialWait, p.MaxWait
	if initial <= 0 {
		initial = DefInitialWait
	}
	if maxWait <= 0 {
		maxWait = DefMaxWait
	}
	if n < 0 {
		n = 0
	}
	delay := initial
	for range n {
		delay *= 2
		if delay >= maxWait {
			return maxWait
		}
	}
	return min(delay, maxWait)
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

// WithRetry runs fn until it succeeds, returns a non-retryable error, or the
// policy runs out of attempts.  Before each attempt it waits on the limiter,
// if one is given.  When the attempts are exhausted, the last error is
// returned as is.
func WithRetry(ctx context.Context, lim *rate.Limiter, p Policy, fn func(ctx context.Context) error) error {
	maxAttempts := p.attempts()
	if maxAttempts < 1 {
		return ErrNoAttempts
	}
	var lastErr error
	for attempt := range maxAttempts {
		if lim != nil {
			var err error
			trace.WithRegion(ctx, "WithRetry.wait", func() {
				err = lim.Wait(ctx)
			})
			if err != nil {
				return err
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !p.retryable(lastErr) {
			return lastErr
		}
		tracelogf(ctx, "error", "WithRetry: %[1]s (%[1]T) after %[2]d attempts", lastErr, attempt+1)
		if attempt == maxAttempts-1 {
			break
		}
		delay := p.Backoff(attempt)
		logger().WarnContext(ctx, "retrying after error", "attempt", attempt+1, "delay", delay, "error", lastErr)
		if err := p.sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry wait: %w", err)
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func tracelogf(ctx context.Context, category string, format string, a ...any) {
	trace.Logf(ctx, category, format, a...)
	logger().DebugContext(ctx, fmt.Sprintf(format, a...))
}

func logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return lg
}

// SetLogger sets the package logger.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = slog.Default()
	}
	lg = l
}
