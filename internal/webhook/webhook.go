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

// Package webhook is the HTTP client for the WeCom group bot webhook API.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime/trace"
	"strings"
	"time"
)

// DefTimeout is the default timeout of a single HTTP exchange.
const DefTimeout = 60 * time.Second

// maxBody is the maximum response body size that is read.
const maxBody = 1 << 20

// UserAgent is sent with every request.
var UserAgent = "wecombot"

var (
	// ErrUploadURL is returned if the upload URL can't be derived from the
	// webhook URL.
	ErrUploadURL = errors.New("webhook URL does not end with /send")
	// ErrMediaKind is returned for unsupported upload kinds.
	ErrMediaKind = errors.New("unsupported media kind")
)

// Client calls the webhook API.  Every method performs exactly one HTTP
// exchange, retries are up to the caller.
type Client struct {
	hc  *http.Client
	lg  *slog.Logger
	ua  string
	tmo time.Duration
}

type Option func(*Client)

// WithHTTPClient sets the HTTP client.  The client timeout is overridden by
// WithTimeout if both are given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithTimeout sets the timeout of a single HTTP exchange.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.tmo = d
		}
	}
}

func WithLogger(lg *slog.Logger) Option {
	return func(c *Client) {
		if lg != nil {
			c.lg = lg
		}
	}
}

// New creates a new webhook client.
func New(opts ...Option) *Client {
	c := &Client{
		hc:  http.DefaultClient,
		lg:  slog.Default(),
		ua:  UserAgent,
		tmo: DefTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	hc := *c.hc
	hc.Timeout = c.tmo
	c.hc = &hc
	return c
}

// Send posts the message to the webhook URL.  It returns a TransportError if
// the exchange did not complete, otherwise the Response, even if the server
// did not answer with 2xx.
func (c *Client) Send(ctx context.Context, webhookURL string, msg *Message) (*Response, error) {
	ctx, task := trace.NewTask(ctx, "Send")
	defer task.End()

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s message: %w", msg.MsgType, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	c.lg.DebugContext(ctx, "sending message", "msgtype", msg.MsgType, "url", Redact(webhookURL), "size", len(body))
	return c.do(req, "send")
}

// Upload uploads the file to the upload_media endpoint that corresponds to
// the webhook URL.  kind is either "file" or "voice".
func (c *Client) Upload(ctx context.Context, webhookURL string, kind string, filename string) (*Response, error) {
	ctx, task := trace.NewTask(ctx, "Upload")
	defer task.End()

	uploadURL, err := UploadURL(webhookURL, kind)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("media", filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.lg.DebugContext(ctx, "uploading media", "kind", kind, "file", filename, "url", Redact(uploadURL), "size", buf.Len())
	return c.do(req, "upload")
}

// Download fetches src and writes the body to w.  It returns the content
// type of the response.  Anything but 200 is returned as StatusError.
func (c *Client) Download(ctx context.Context, src string, w io.Writer) (string, error) {
	ctx, task := trace.NewTask(ctx, "Download")
	defer task.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.ua)
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", newTransportError("download", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: src, Code: resp.StatusCode}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", newTransportError("download", src, err)
	}
	return resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(req *http.Request, op string) (*Response, error) {
	req.Header.Set("User-Agent", c.ua)
	u := req.URL.String()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, newTransportError(op, u, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, newTransportError(op, u, err)
	}
	r := parseResponse(resp.StatusCode, body)
	c.lg.DebugContext(req.Context(), "webhook response", "op", op, "status", resp.StatusCode, "errcode", r.Data.ErrCode)
	return r, nil
}

// UploadURL derives the upload_media URL from the webhook URL:
//
//	https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=K
//	https://qyapi.weixin.qq.com/cgi-bin/webhook/upload_media?key=K&type=file
func UploadURL(webhookURL string, kind string) (string, error) {
	if kind != TypeFile && kind != TypeVoice {
		return "", fmt.Errorf("%w: %q", ErrMediaKind, kind)
	}
	u, err := url.Parse(webhookURL)
	if err != nil {
		return "", err
	}
	dir, last := path.Split(strings.TrimSuffix(u.Path, "/"))
	if last != "send" {
		return "", ErrUploadURL
	}
	u.Path = dir + "upload_media"
	q := u.Query()
	q.Set("type", kind)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Redact hides the webhook key in the URL, so that it can be logged.
func Redact(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	q := u.Query()
	if k := q.Get("key"); k != "" {
		q.Set("key", redactKey(k))
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func redactKey(k string) string {
	if len(k) <= 8 {
		return "..."
	}
	return k[:4] + "..." + k[len(k)-4:]
}
