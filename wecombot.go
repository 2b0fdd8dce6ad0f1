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

// Package wecombot delivers messages, files, images and template cards to
// WeCom group bots through their webhooks.
//
// The Sender runs every call through the same pipeline: the request is
// validated, the bot is resolved to the webhook URL with the Registry, the
// content is normalized, the webhook is called with retries, and the
// response is checked.  Successful sends are recorded in the history.  All
// errors returned by the Sender are *Error, carrying one of the ErrorCode
// values.
package wecombot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/trace"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rusq/wecombot/internal/history"
	"github.com/rusq/wecombot/internal/network"
	"github.com/rusq/wecombot/internal/webhook"
)

//go:generate mockgen -source wecombot.go -destination mock_transport_test.go -package wecombot -mock_names Transport=MockTransport

// Transport performs a single webhook call.  Retries are done by the Sender.
type Transport interface {
	// Send posts the message to the webhook.
	Send(ctx context.Context, webhookURL string, msg *webhook.Message) (*webhook.Response, error)
	// Upload uploads the file of the given kind ("file" or "voice") to the
	// upload_media endpoint of the webhook.
	Upload(ctx context.Context, webhookURL string, kind string, filename string) (*webhook.Response, error)
	// Download downloads src into w, returning the content type.
	Download(ctx context.Context, src string, w io.Writer) (string, error)
}

// Sender sends content to the bots.  Zero value is not usable, must be
// initialised with New.
type Sender struct {
	reg    *Registry
	tr     Transport
	hist   *history.Log
	lg     *slog.Logger
	limits Limits
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error // nil uses a timer

	mu       sync.Mutex
	limiters map[string]*rate.Limiter // per webhook URL
}

// Result is the result of a successful call.  Fields that are not relevant
// for the call are left empty.
type Result struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	FileName  string `json:"file_name,omitempty"`
	FileSize  int64  `json:"file_size,omitempty"`
	MediaID   string `json:"media_id,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	MediaURL  string `json:"media_url,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
}

const statusSuccess = "success"

func success(msg string) *Result {
	return &Result{Status: statusSuccess, Message: msg}
}

// Option is the signature of the option-setting function.
type Option func(*Sender)

// WithLogger sets the logger.  If not given, slog.Default is used.
func WithLogger(lg *slog.Logger) Option {
	return func(s *Sender) {
		if lg != nil {
			s.lg = lg
		}
	}
}

// WithTransport sets the webhook transport.  If not given, the HTTP webhook
// client is used.
func WithTransport(tr Transport) Option {
	return func(s *Sender) {
		if tr != nil {
			s.tr = tr
		}
	}
}

// WithLimits sets the limits.  If not given, DefLimits are used.  Limits
// are validated by New.
func WithLimits(l Limits) Option {
	return func(s *Sender) {
		s.limits = l
	}
}

// WithHistory sets the history log.  If not given, a new log with the
// capacity of Limits.HistorySize is created.
func WithHistory(h *history.Log) Option {
	return func(s *Sender) {
		if h != nil {
			s.hist = h
		}
	}
}

// New creates a new Sender that resolves bots with reg.
func New(reg *Registry, opts ...Option) (*Sender, error) {
	if reg == nil {
		return nil, errors.New("registry is nil")
	}
	s := &Sender{
		reg:      reg,
		lg:       slog.Default(),
		limits:   DefLimits,
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.limits.Validate(); err != nil {
		return nil, fmt.Errorf("limits failed validation: %w", translateErr(err))
	}
	network.SetLogger(s.lg)
	if s.tr == nil {
		s.tr = webhook.New(webhook.WithTimeout(s.limits.Timeout), webhook.WithLogger(s.lg))
	}
	if s.hist == nil {
		s.hist = history.New(s.limits.HistorySize)
	}
	return s, nil
}

// Registry returns the bot registry.
func (s *Sender) Registry() *Registry {
	return s.reg
}

// History returns the message history.
func (s *Sender) History() *history.Log {
	return s.hist
}

// limiter returns the rate limiter of the webhook.
func (s *Sender) limiter(webhookURL string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[webhookURL]
	if !ok {
		l = network.NewLimiter(s.limits.PerMinute, s.limits.Burst)
		s.limiters[webhookURL] = l
	}
	return l
}

func (s *Sender) policy() network.Policy {
	p := s.limits.policy()
	p.Retryable = webhook.IsTransient
	p.Sleep = s.sleep
	return p
}

// resolveURL returns the webhook URL of the bot.
func (s *Sender) resolveURL(c *call, botID string) (string, error) {
	c.progress(0.2, "Resolving bot")
	u, err := s.reg.WebhookURL(botID)
	if err != nil {
		return "", err
	}
	c.lg = c.lg.With("url", webhook.Redact(u))
	return u, nil
}

// transmit checks the webhook URL and calls fn with retries.  Errors that
// are not *Error are returned as NETWORK_ERROR.
func (s *Sender) transmit(c *call, webhookURL string, msgType string, fn func(ctx context.Context) (*webhook.Response, error)) (*webhook.Response, error) {
	if !validURL(webhookURL) {
		return nil, errValidation("Invalid webhook URL format: %s. URL must start with http:// or https://", webhookURL)
	}
	var resp *webhook.Response
	attempts := 0
	err := network.WithRetry(c.ctx, s.limiter(webhookURL), s.policy(), func(ctx context.Context) error {
		attempts++
		var err error
		trace.WithRegion(ctx, "transmit", func() {
			resp, err = fn(ctx)
		})
		return err
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, e
		}
		return nil, errNetwork(err, "Failed to send message via webhook: %v. URL: %s, Type: %s", err, webhook.Redact(webhookURL), msgType)
	}
	c.lg.DebugContext(c.ctx, "webhook call complete", "attempts", attempts, "status", resp.StatusCode)
	return resp, nil
}

// checkResponse checks the transport flag and the API error code of the
// response.  what is the name of the thing being sent.
func checkResponse(resp *webhook.Response, what string) error {
	if resp == nil || !resp.Success {
		return errAPI("Failed to send %s: %s", what, resp)
	}
	if !resp.Data.OK() {
		msg := resp.Data.ErrMsg
		if msg == "" {
			msg = "Unknown error"
		}
		return errAPI("WeChat API error %d: %s", resp.Data.ErrCode, msg)
	}
	return nil
}

// record appends the sent content to the history.
func (s *Sender) record(c *call, content string) {
	s.hist.Append(history.NewEntry(content, c.start))
}
