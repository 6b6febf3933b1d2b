package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flemzord/sigma/internal/security"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	both := AuthConfig{BearerToken: "my-token", BasicUser: "admin", BasicPass: "pass"}

	tests := []struct {
		name     string
		cfg      AuthConfig
		setup    func(*http.Request)
		wantCode int
	}{
		{
			name:     "valid bearer",
			cfg:      AuthConfig{BearerToken: "secret-token"},
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret-token") },
			wantCode: http.StatusOK,
		},
		{
			name:     "invalid bearer",
			cfg:      AuthConfig{BearerToken: "secret-token"},
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer wrong-token") },
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "valid basic",
			cfg:      AuthConfig{BasicUser: "admin", BasicPass: "pass123"},
			setup:    func(r *http.Request) { r.SetBasicAuth("admin", "pass123") },
			wantCode: http.StatusOK,
		},
		{
			name:     "invalid basic",
			cfg:      AuthConfig{BasicUser: "admin", BasicPass: "pass123"},
			setup:    func(r *http.Request) { r.SetBasicAuth("admin", "nope") },
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "no header",
			cfg:      AuthConfig{BearerToken: "secret-token"},
			setup:    func(*http.Request) {},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "both configured, bearer",
			cfg:      both,
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer my-token") },
			wantCode: http.StatusOK,
		},
		{
			name:     "both configured, basic",
			cfg:      both,
			setup:    func(r *http.Request) { r.SetBasicAuth("admin", "pass") },
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := authMiddleware(tt.cfg, nil, nil)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			tt.setup(req)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
		})
	}
}

func TestAuthMiddleware_RateLimitedAndAudited(t *testing.T) {
	t.Parallel()

	var events []security.AuditEvent
	audit := security.NewAuditLogger(security.AuditLoggerConfig{
		OnEvent: func(e security.AuditEvent) { events = append(events, e) },
	})
	limiter := security.NewRateLimiter(map[string]security.Limit{
		authRateBucket: {Count: 2, Window: time.Minute},
	})
	handler := authMiddleware(AuthConfig{BearerToken: "tok"}, audit, limiter)(okHandler())

	codes := make([]int, 0, 3)
	for _, token := range []string{"tok", "bad", "tok"} {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	want := []int{http.StatusOK, http.StatusUnauthorized, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d: status = %d, want %d", i, codes[i], want[i])
		}
	}

	wantTypes := []security.EventType{security.EventAuthSuccess, security.EventAuthFailure, security.EventRateLimit}
	if len(events) != len(wantTypes) {
		t.Fatalf("events = %d, want %d", len(events), len(wantTypes))
	}
	for i, et := range wantTypes {
		if events[i].Type != et {
			t.Errorf("event %d = %q, want %q", i, events[i].Type, et)
		}
		if events[i].Metadata["path"] != "/status" {
			t.Errorf("event %d path = %q", i, events[i].Metadata["path"])
		}
	}
}

func TestAuthConfig_IsConfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  AuthConfig
		want bool
	}{
		{"empty", AuthConfig{}, false},
		{"bearer only", AuthConfig{BearerToken: "tok"}, true},
		{"basic complete", AuthConfig{BasicUser: "u", BasicPass: "p"}, true},
		{"basic partial user", AuthConfig{BasicUser: "u"}, false},
		{"basic partial pass", AuthConfig{BasicPass: "p"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cfg.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}
