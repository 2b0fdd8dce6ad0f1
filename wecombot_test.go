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

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rusq/wecombot/internal/history"
	"github.com/rusq/wecombot/internal/webhook"
)

const testURL = "https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=test"

var testTime = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

var okResp = &webhook.Response{Success: true, StatusCode: 200, Data: webhook.Data{ErrCode: 0, ErrMsg: "ok"}}

func errResp(code int, msg string) *webhook.Response {
	return &webhook.Response{Success: true, StatusCode: 200, Data: webhook.Data{ErrCode: code, ErrMsg: msg}}
}

// sleepRecorder records the retry delays instead of sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

// newTestSender returns the sender with the mock transport and the
// registry built from environ.
func newTestSender(t *testing.T, tr Transport, environ ...string) (*Sender, *sleepRecorder) {
	t.Helper()
	reg := NewRegistry(
		WithEnviron(func() []string { return environ }),
		WithRegistryLogger(slog.New(slog.DiscardHandler)),
	)
	lim := DefLimits
	lim.PerMinute = 0
	s, err := New(reg, WithTransport(tr), WithLimits(lim), WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	rec := new(sleepRecorder)
	s.sleep = rec.sleep
	s.now = func() time.Time { return testTime }
	return s, rec
}

func defaultBot() string {
	return EnvWebhookURL + "=" + testURL
}

func requireCode(t *testing.T, err error, code ErrorCode) *Error {
	t.Helper()
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, code, e.Code, "error: %v", err)
	return e
}

func TestNew(t *testing.T) {
	t.Run("nil registry", func(t *testing.T) {
		_, err := New(nil)
		assert.Error(t, err)
	})
	t.Run("invalid limits", func(t *testing.T) {
		lim := DefLimits
		lim.MaxAttempts = 0
		_, err := New(NewRegistry(), WithLimits(lim))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_attempts")
	})
	t.Run("defaults", func(t *testing.T) {
		s, err := New(NewRegistry())
		require.NoError(t, err)
		assert.NotNil(t, s.tr)
		assert.NotNil(t, s.History())
		assert.Equal(t, DefLimits, s.limits)
	})
}

func TestSender_SendMessage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tr := NewMockTransport(ctrl)
		s, _ := newTestSender(t, tr, defaultBot())

		tr.EXPECT().Send(gomock.Any(), testURL, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, msg *webhook.Message) (*webhook.Response, error) {
				assert.Equal(t, webhook.TypeMarkdownV2, msg.MsgType)
				assert.Equal(t, "# Hello\n你好", msg.MarkdownV2.Content)
				return okResp, nil
			})

		r, err := s.SendMessage(t.Context(), Message{Content: "# Hello\r\n你好"})
		require.NoError(t, err)
		assert.Equal(t, &Result{Status: "success", Message: "Message sent successfully"}, r)

		require.Equal(t, 1, s.History().Len())
		e := s.History().Entries()[0]
		assert.Equal(t, "assistant", e.Role)
		assert.Equal(t, "sent", e.Status)
		assert.Equal(t, "# Hello\n你好", e.Content)
		assert.Equal(t, "2026-03-14T15:09:26Z", e.Timestamp)
	})
	t.Run("text with mentions", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tr := NewMockTransport(ctrl)
		s, _ := newTestSender(t, tr, defaultBot())

		tr.EXPECT().Send(gomock.Any(), testURL, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, msg *webhook.Message) (*webhook.Response, error) {
				require.NotNil(t, msg.Text)
				assert.Equal(t, "ping", msg.Text.Content)
				assert.Equal(t, []string{"alice", "@all"}, msg.Text.MentionedList)
				assert.Equal(t, []string{"13800000000"}, msg.Text.MentionedMobileList)
				return okResp, nil
			})

		_, err := s.SendMessage(t.Context(), Message{
			Content:             "ping",
			Type:                "text",
			MentionedList:       []string{"alice", " ", "@all", "alice"},
			MentionedMobileList: []string{"13800000000"},
		})
		require.NoError(t, err)
	})
	t.Run("markdown mentions are appended", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tr := NewMockTransport(ctrl)
		s, _ := newTestSender(t, tr, defaultBot())

		tr.EXPECT().Send(gomock.Any(), testURL, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, msg *webhook.Message) (*webhook.Response, error) {
				require.NotNil(t, msg.Markdown)
				assert.Equal(t, "**deploy done**\n<@alice> <@bob>", msg.Markdown.Content)
				return okResp, nil
			})

		_, err := s.SendMessage(t.Context(), Message{Content: "**deploy done**", Type: "markdown", MentionedList: []string{"alice", "@bob"}})
		require.NoError(t, err)
		assert.Equal(t, "**deploy done**", s.History().Entries()[0].Content)
	})
	t.Run("selects bot", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tr := NewMockTransport(ctrl)
		const alertURL = "https://example.com/cgi-bin/webhook/send?key=alert"
		s, _ := newTestSender(t, tr, defaultBot(), "WECOM_BOT_ALERT_URL="+alertURL)

		tr.EXPECT().Send(gomock.Any(), alertURL, gomock.Any()).Return(okResp, nil)
		_, err := s.SendMessage(t.Context(), Message{Content: "x", BotID: "Alert"})
		require.NoError(t, err)
	})
}

func TestSender_SendMessage_validation(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		environ []string
		wantMsg string
	}{
		{"empty content", Message{Content: ""}, []string{defaultBot()}, "Message content cannot be empty"},
		{"blank content", Message{Content: " \t\n "}, []string{defaultBot()}, "Message content cannot be empty"},
		{"invalid type", Message{Content: "x", Type: "news"}, []string{defaultBot()}, "Invalid message type: news"},
		{"invalid type wins over missing bots", Message{Content: "x", Type: "image"}, nil, "Invalid message type: image"},
		{"no bots", Message{Content: "x"}, nil, "No bots configured"},
		{"unknown bot", Message{Content: "x", BotID: "ghost"}, []string{defaultBot()}, "Bot 'ghost' not found"},
		{"bad encoding", Message{Content: "\xff\xfe\xfd"}, []string{defaultBot()}, "Text encoding error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			tr := NewMockTransport(ctrl) // no calls expected
			s, _ := newTestSender(t, tr, tt.environ...)

			_, err := s.SendMessage(t.Context(), tt.msg)
			e := requireCode(t, err, CodeValidation)
			assert.Contains(t, e.Msg, tt.wantMsg)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Zero(t, s.History().Len())
		})
	}
}

func TestSender_SendMessage_retry(t *testing.T) {
	transportErr := &webhook.TransportError{Op: "send", URL: testURL, Err: errors.New("connection refused")}

	t.Run("exhausted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tr := NewMockTransport(ctrl)
		s, rec := newTestSender(t, tr, defaultBot())

		tr.EXPECT().Send(gomock.Any(), testURL, gomock.Any()).Return(nil, transportErr).Times(3)

		_, err := s.SendMessage(t.Context(), Message{Content: "x"})
		e := requireCode(t, err, CodeNetwork)
		assert.Contains(t, e.Msg, "connection refused")
		assert.Contains(t, e.Msg, "qyapi.weixin.qq.com")
		assert.Contains(t, e.Msg, "Type: markdown_v2")
		var te *webhook.TransportError
		assert.ErrorAs(t, err, &te, "cause must be preserved")

		require.Len(t, rec.delays, 2)
		for i, d := range rec.delays {
			assert.LessOrEqual(t, d, 10*time.Second)
			if i > 0 {
				assert.GreaterOrEqual(t, d, rec.delays[i-1])
			}
		}
		assert.Zero(t, s.History().Len())
	})
	t.Run("recovers", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tr := NewMockTransport(ctrl)
		s, rec := newTestSender(t, tr, defaultBot())

		gomock.InOrder(
			tr.EXPECT().Send(gomock.Any(), testURL, gomock.Any()).Return(nil, &webhook.TransportError{Op: "send", Err: errors.New("i/o timeout"), Timeout: true}),
			tr.EXPECT().Send(gomock.Any(), testURL, gomock.Any()).Return(okResp, nil),
		)
		_, err := s.SendMessage(t.Context(), Message{Content: "x"})
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{time.Second}, rec.delays)
		assert.Equal(t, 1, s.History().Len())
	})
	t.Run("non-transient error is not retried", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tr := NewMockTransport(ctrl)
		s, rec := newTestSender(t, tr, defaultBot())

		tr.EXPECT().Send(gomock.Any(), testURL, gomock.Any()).Return(nil, errors.New("marshal failure")).Times(1)
		_, err := s.SendMessage(t.Context(), Message{Content: "x"})
		e := requireCode(t, err, CodeNetwork)
		assert.Contains(t, e.Msg, "marshal failure")
		assert.Empty(t, rec.delays)
	})
	t.Run("api errors are not retried", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tr := NewMockTransport(ctrl)
		s, _ := newTestSender(t, tr, defaultBot())

		tr.EXPECT().Send(gomock.Any(), testURL, gomock.Any()).Return(errResp(45009, "api freq out of limit"), nil).Times(1)
		_, err := s.SendMessage(t.Context(), Message{Content: "x"})
		requireCode(t, err, CodeAPIFailure)
	})
}

func TestSender_SendMessage_response(t *testing.T) {
	tests := []struct {
		name    string
		resp    *webhook.Response
		wantMsg string
	}{
		{
			name:    "transport failure",
			resp:    &webhook.Response{Success: false, StatusCode: 502, Raw: []byte("bad gateway"), Data: webhook.Data{ErrCode: webhook.NoErrCode}},
			wantMsg: "Failed to send message: status=502",
		},
		{
			name:    "api error",
			resp:    errResp(40001, "invalid credential"),
			wantMsg: "WeChat API error 40001: invalid credential",
		},
		{
			name:    "missing errcode",
			resp:    errResp(webhook.NoErrCode, ""),
			wantMsg: "WeChat API error -1: Unknown error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			tr := NewMockTransport(ctrl)
			s, _ := newTestSender(t, tr, defaultBot())
			s.History().Append(history.NewEntry("before", testTime))

			tr.EXPECT().Send(gomock.Any(), testURL, gomock.Any()).Return(tt.resp, nil)
			_, err := s.SendMessage(t.Context(), Message{Content: "x"})
			e := requireCode(t, err, CodeAPIFailure)
			assert.Contains(t, e.Msg, tt.wantMsg)
			assert.Equal(t, 1, s.History().Len(), "history must not change")
		})
	}
}

func TestSender_transmit_invalidURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	s, rec := newTestSender(t, NewMockTransport(ctrl))
	c := s.begin(t.Context(), "test")

	called := 0
	_, err := s.transmit(c, "ftp://example.com/send", "text", func(context.Context) (*webhook.Response, error) {
		called++
		return okResp, nil
	})
	e := requireCode(t, err, CodeValidation)
	assert.Contains(t, e.Msg, "ftp://example.com/send")
	assert.Zero(t, called)
	assert.Empty(t, rec.delays)
}

func TestValidateMessage(t *testing.T) {
	mt, err := validateMessage(Message{Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, DefMessageType, mt)

	for _, typ := range MessageTypes {
		mt, err := validateMessage(Message{Content: "x", Type: typ})
		require.NoError(t, err)
		assert.Equal(t, typ, mt)
	}
	for _, typ := range []string{"news", "file", "image", "template_card", "TEXT"} {
		_, err := validateMessage(Message{Content: "x", Type: typ})
		requireCode(t, err, CodeValidation)
	}
}

// recObserver records the notifications.
type recObserver struct {
	mu       sync.Mutex
	progress []float64
	infos    []string
	errors   []string
}

func (o *recObserver) Progress(_ context.Context, p float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, p)
}

func (o *recObserver) Info(_ context.Context, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.infos = append(o.infos, msg)
}

func (o *recObserver) Error(_ context.Context, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors = append(o.errors, msg)
}

func TestSender_observer(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tr := NewMockTransport(ctrl)
		s, _ := newTestSender(t, tr, defaultBot())
		tr.EXPECT().Send(gomock.Any(), testURL, gomock.Any()).Return(okResp, nil)

		obs := new(recObserver)
		_, err := s.SendMessage(WithObserver(t.Context(), obs), Message{Content: "x"})
		require.NoError(t, err)

		require.NotEmpty(t, obs.progress)
		for i := 1; i < len(obs.progress); i++ {
			assert.Greater(t, obs.progress[i], obs.progress[i-1])
		}
		assert.Equal(t, 1.0, obs.progress[len(obs.progress)-1])
		assert.Contains(t, obs.infos, "Message sent successfully")
		assert.Empty(t, obs.errors)
	})
	t.Run("failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		s, _ := newTestSender(t, NewMockTransport(ctrl))

		obs := new(recObserver)
		_, err := s.SendMessage(WithObserver(t.Context(), obs), Message{Content: ""})
		require.Error(t, err)
		assert.Equal(t, []string{err.Error()}, obs.errors)
	})
}
