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

package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/rusq/wecombot"
	"github.com/rusq/wecombot/internal/history"
	"github.com/rusq/wecombot/internal/mcp/mock_mcp"
)

const testWebhook = "https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=test-key-123456"

var discard = slog.New(slog.DiscardHandler)

// testRegistry returns the registry with the bots given as environment
// variables.
func testRegistry(env ...string) *wecombot.Registry {
	return wecombot.NewRegistry(wecombot.WithEnviron(func() []string { return env }))
}

// newTestServer creates a *Server backed by a MockSender with a single
// default bot.
func newTestServer(t *testing.T, ctrl *gomock.Controller) (*Server, *mock_mcp.MockSender) {
	t.Helper()
	return newTestServerWith(t, ctrl, testRegistry(wecombot.EnvWebhookURL+"="+testWebhook))
}

func newTestServerWith(t *testing.T, ctrl *gomock.Controller, reg *wecombot.Registry) (*Server, *mock_mcp.MockSender) {
	t.Helper()
	m := mock_mcp.NewMockSender(ctrl)
	m.EXPECT().Registry().Return(reg).AnyTimes()
	srv := New(m, WithLogger(discard))
	require.NotNil(t, srv)
	return srv, m
}

// toolReq builds a CallToolRequest with the given argument map.
func toolReq(args map[string]any) mcplib.CallToolRequest {
	req := mcplib.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// ─── New / options ────────────────────────────────────────────────────────────

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv, _ := newTestServer(t, ctrl)
	assert.NotNil(t, srv.mcp)
	assert.NotNil(t, srv.snd)
	assert.Equal(t, discard, srv.logger)
}

func TestNew_nilLogger(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mock_mcp.NewMockSender(ctrl)
	m.EXPECT().Registry().Return(testRegistry()).AnyTimes()
	assert.NotPanics(t, func() {
		srv := New(m, WithLogger(nil))
		assert.NotNil(t, srv.logger)
	})
}

func TestServer_tools(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv, _ := newTestServer(t, ctrl)

	var names []string
	for _, tool := range srv.tools() {
		names = append(names, tool.Tool.Name)
		assert.NotNil(t, tool.Handler, tool.Tool.Name)
		assert.NotEmpty(t, tool.Tool.Description, tool.Tool.Name)
	}
	assert.Equal(t, []string{
		"send_message",
		"send_wecom_file",
		"send_wecom_image",
		"upload_wecom_media",
		"send_wecom_template_card_text_notice",
		"send_wecom_template_card_news_notice",
		"list_wecom_bots",
	}, names)
}

func TestInstructions(t *testing.T) {
	t.Run("single bot", func(t *testing.T) {
		got := instructions(testRegistry(wecombot.EnvWebhookURL + "=" + testWebhook))
		assert.Contains(t, got, "WeCom bot MCP server")
		assert.Contains(t, got, "One WeCom bot is configured")
		assert.NotContains(t, got, "test-key")
	})
	t.Run("multiple bots", func(t *testing.T) {
		got := instructions(testRegistry(
			wecombot.EnvWebhookURL+"="+testWebhook,
			"WECOM_BOT_ALERTS_URL="+testWebhook,
		))
		assert.Contains(t, got, "Multiple WeCom Bots Available")
		assert.Contains(t, got, "`alerts`")
	})
	t.Run("no bots", func(t *testing.T) {
		got := instructions(testRegistry())
		assert.Contains(t, got, "No WeCom bots are configured")
	})
}

// ─── result helpers ───────────────────────────────────────────────────────────

func TestResultErr(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
	}{
		{
			name:     "typed error",
			err:      &wecombot.Error{Code: wecombot.CodeValidation, Msg: "Message content cannot be empty"},
			wantCode: "VALIDATION_ERROR",
			wantMsg:  "Message content cannot be empty",
		},
		{
			name:     "untyped error",
			err:      assert.AnError,
			wantCode: "UNKNOWN",
			wantMsg:  assert.AnError.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resultErr(tt.err)
			require.NotNil(t, r)
			assert.True(t, r.IsError)
			var got map[string]string
			require.NoError(t, json.Unmarshal([]byte(firstText(t, r)), &got))
			assert.Equal(t, "error", got["status"])
			assert.Equal(t, tt.wantCode, got["error_code"])
			assert.Equal(t, tt.wantMsg, got["message"])
		})
	}
}

func TestResultJSON(t *testing.T) {
	r, err := resultJSON(&wecombot.Result{Status: "success", Message: "Message sent successfully"})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.False(t, r.IsError)
	assert.Contains(t, firstText(t, r), `"status":"success"`)
}

// ─── http ─────────────────────────────────────────────────────────────────────

func TestServer_router(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv, _ := newTestServer(t, ctrl)

	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	ts := httptest.NewServer(srv.router(mcpHandler))
	defer ts.Close()

	t.Run("healthcheck", func(t *testing.T) {
		resp, err := http.Get(ts.URL + healthPath)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var h health
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
		assert.Equal(t, health{Status: "ok", Server: serverName, Bots: 1}, h)
	})
	t.Run("mcp endpoint", func(t *testing.T) {
		resp, err := http.Post(ts.URL+endpointPath, "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	})
	t.Run("unknown path", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/nope")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestServer_ServeHTTP_cancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv, _ := newTestServer(t, ctrl)

	ctx, cancel := context.WithCancel(t.Context())
	errC := make(chan error, 1)
	go func() {
		errC <- srv.ServeHTTP(ctx, "127.0.0.1:0")
	}()
	cancel()
	assert.NoError(t, <-errC)
}

// ─── resources and prompts ────────────────────────────────────────────────────

func TestHandleMessages(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv, m := newTestServer(t, ctrl)

	hist := history.New(0)
	m.EXPECT().History().Return(hist).Times(2)

	req := mcplib.ReadResourceRequest{}
	req.Params.URI = uriMessages

	got, err := srv.handleMessages(t.Context(), req)
	require.NoError(t, err)
	require.Len(t, got, 1)
	txt := got[0].(mcplib.TextResourceContents)
	assert.Equal(t, "No message history available.", txt.Text)

	hist.Append(history.NewEntry("hello, world", testTime))
	got, err = srv.handleMessages(t.Context(), req)
	require.NoError(t, err)
	txt = got[0].(mcplib.TextResourceContents)
	assert.Equal(t, uriMessages, txt.URI)
	assert.Equal(t, mimeMarkdown, txt.MIMEType)
	assert.Contains(t, txt.Text, "# Message History")
	assert.Contains(t, txt.Text, "## 1. Assistant")
	assert.Contains(t, txt.Text, "hello, world")
}

func TestServer_resources(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv, _ := newTestServer(t, ctrl)

	res := srv.resources()
	require.Len(t, res, 2)
	assert.Equal(t, uriMessages, res[0].Resource.URI)
	assert.Equal(t, uriMarkdownCapabilities, res[1].Resource.URI)

	req := mcplib.ReadResourceRequest{}
	req.Params.URI = uriMarkdownCapabilities
	got, err := res[1].Handler(t.Context(), req)
	require.NoError(t, err)
	require.Len(t, got, 1)
	txt := got[0].(mcplib.TextResourceContents)
	assert.Contains(t, txt.Text, "markdown_v2")
	assert.Contains(t, txt.Text, "<font color=\"info\">")
}

func TestHandleGuidelines(t *testing.T) {
	t.Run("single bot", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		srv, _ := newTestServer(t, ctrl)

		got, err := srv.handleGuidelines(t.Context(), mcplib.GetPromptRequest{})
		require.NoError(t, err)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, mcplib.RoleUser, got.Messages[0].Role)
		txt := got.Messages[0].Content.(mcplib.TextContent).Text
		assert.Contains(t, txt, "markdown_v2")
		assert.Contains(t, txt, "send_wecom_image")
		assert.Contains(t, txt, "URLs must be preserved exactly")
		assert.NotContains(t, txt, "Multiple WeCom Bots Available")
	})
	t.Run("multiple bots", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		srv, _ := newTestServerWith(t, ctrl, testRegistry(
			"WECOM_BOT_ALERTS_URL="+testWebhook,
			"WECOM_BOT_OPS_URL="+testWebhook,
		))

		got, err := srv.handleGuidelines(t.Context(), mcplib.GetPromptRequest{})
		require.NoError(t, err)
		txt := got.Messages[0].Content.(mcplib.TextContent).Text
		assert.Contains(t, txt, "Multiple WeCom Bots Available")
		assert.Contains(t, txt, "bot_id is required")
	})
}

// ─── notifications ────────────────────────────────────────────────────────────

func TestServer_observe(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv, _ := newTestServer(t, ctrl)

	req := toolReq(nil)
	req.Params.Meta = &mcplib.Meta{ProgressToken: "tok-1"}
	ctx := srv.observe(t.Context(), req)
	assert.NotNil(t, ctx)

	// no client session in the context, notifications are dropped.
	n := &notifier{srv: srv.mcp, token: "tok-1", lg: discard}
	assert.NotPanics(t, func() {
		n.Progress(ctx, 0.5)
		n.Info(ctx, "uploading")
		n.Error(ctx, "failed")
	})

	var nilSrv notifier
	assert.NotPanics(t, func() {
		nilSrv.Progress(ctx, 1)
		nilSrv.Info(ctx, "x")
	})
}

func TestLogParams(t *testing.T) {
	got := logParams(mcplib.LoggingLevelError, "boom")
	assert.Equal(t, map[string]any{
		"level":  mcplib.LoggingLevelError,
		"logger": serverName,
		"data":   "boom",
	}, got)
}
