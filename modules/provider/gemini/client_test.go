package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/sigma/internal/completion"
	"github.com/flemzord/sigma/internal/dialogue"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, logBuf *bytes.Buffer) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	if logBuf == nil {
		logBuf = &bytes.Buffer{}
	}
	p := &Provider{
		config: Config{
			APIKey:  "test-key",
			Model:   "gemini-1.5-flash",
			BaseURL: srv.URL + "/v1beta",
			Timeout: "60s",
		},
		logger: slog.New(slog.NewTextHandler(logBuf, nil)),
		client: srv.Client(),
	}
	return p
}

var helloTurns = dialogue.Build(nil, "Ada", "Hi")

func TestComplete_Success(t *testing.T) {
	var got generateRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1beta/models/gemini-1.5-flash:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Hello!"}],"role":"model"}}]}`)
	}, nil)

	res := p.Complete(context.Background(), helloTurns)

	if !res.OK() || res.Reply() != "Hello!" {
		t.Fatalf("result = %+v, want Hello!", res)
	}
	if len(got.Contents) != 1 || got.Contents[0].Role != "user" || got.Contents[0].Parts[0].Text != "Ada: Hi" {
		t.Errorf("request contents = %+v", got.Contents)
	}
}

func TestComplete_RequestShape(t *testing.T) {
	var raw map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}, nil)

	p.Complete(context.Background(), dialogue.Build([]string{"hi", "Bot: yo"}, "Ada", "sup"))

	contents, ok := raw["contents"].([]any)
	if !ok || len(contents) != 3 {
		t.Fatalf("contents = %v", raw["contents"])
	}
	second := contents[1].(map[string]any)
	if second["role"] != "model" {
		t.Errorf("second role = %v, want model", second["role"])
	}
	parts := second["parts"].([]any)
	if parts[0].(map[string]any)["text"] != "Bot: yo" {
		t.Errorf("second part = %v", parts[0])
	}
}

func TestComplete_Fallbacks(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason completion.Reason
		wantReply  string
	}{
		{name: "server error", status: 500, body: `{"error":"boom"}`, wantReason: completion.ReasonStatus, wantReply: completion.FallbackFailure},
		{name: "bad request", status: 400, body: `{}`, wantReason: completion.ReasonStatus, wantReply: completion.FallbackFailure},
		{name: "rate limited", status: 429, body: ``, wantReason: completion.ReasonStatus, wantReply: completion.FallbackFailure},
		{name: "empty object", status: 200, body: `{}`, wantReason: completion.ReasonMalformed, wantReply: completion.FallbackMalformed},
		{name: "empty candidates", status: 200, body: `{"candidates":[]}`, wantReason: completion.ReasonMalformed, wantReply: completion.FallbackMalformed},
		{name: "no content", status: 200, body: `{"candidates":[{"finishReason":"SAFETY"}]}`, wantReason: completion.ReasonMalformed, wantReply: completion.FallbackMalformed},
		{name: "no parts", status: 200, body: `{"candidates":[{"content":{"parts":[]}}]}`, wantReason: completion.ReasonMalformed, wantReply: completion.FallbackMalformed},
		{name: "part without text", status: 200, body: `{"candidates":[{"content":{"parts":[{"inlineData":{}}]}}]}`, wantReason: completion.ReasonMalformed, wantReply: completion.FallbackMalformed},
		{name: "not json", status: 200, body: `<html>`, wantReason: completion.ReasonMalformed, wantReply: completion.FallbackMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, &logs)

			res := p.Complete(context.Background(), helloTurns)

			if res.Fallback != tt.wantReason {
				t.Errorf("reason = %v, want %v", res.Fallback, tt.wantReason)
			}
			if res.Reply() != tt.wantReply {
				t.Errorf("reply = %q, want %q", res.Reply(), tt.wantReply)
			}
			if res.Err == nil {
				t.Error("expected a cause in Err")
			}
			if logs.Len() == 0 {
				t.Error("expected the failure to be logged")
			}
		})
	}
}

func TestComplete_MalformedLogsPayload(t *testing.T) {
	var logs bytes.Buffer
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"promptFeedback":{"blockReason":"OTHER"}}`)
	}, &logs)

	p.Complete(context.Background(), helloTurns)

	if !strings.Contains(logs.String(), "blockReason") {
		t.Errorf("raw payload not logged: %s", logs.String())
	}
}

func TestComplete_TransportError(t *testing.T) {
	var logs bytes.Buffer
	p := newTestProvider(t, func(http.ResponseWriter, *http.Request) {}, &logs)
	p.config.BaseURL = "http://127.0.0.1:1"

	res := p.Complete(context.Background(), helloTurns)

	if res.Fallback != completion.ReasonTransport {
		t.Errorf("reason = %v, want transport", res.Fallback)
	}
	if res.Reply() != completion.FallbackFailure {
		t.Errorf("reply = %q", res.Reply())
	}
	if strings.Contains(logs.String(), "test-key") {
		t.Error("API key leaked into logs")
	}
}

func TestComplete_Timeout(t *testing.T) {
	release := make(chan struct{})
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, nil)
	defer close(release)
	p.client.Timeout = 50 * time.Millisecond

	res := p.Complete(context.Background(), helloTurns)

	if res.Fallback != completion.ReasonTransport {
		t.Errorf("reason = %v, want transport", res.Fallback)
	}
}

func TestComplete_NoRetry(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, nil)

	p.Complete(context.Background(), helloTurns)

	if n := calls.Load(); n != 1 {
		t.Errorf("requests = %d, want exactly 1", n)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate([]byte("abc"), 5); got != "abc" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate([]byte("abcdef"), 3); got != "abc…" {
		t.Errorf("truncate long = %q", got)
	}
}
