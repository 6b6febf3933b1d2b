package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const healthPingTimeout = 2 * time.Second

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"` // "ok" or "degraded"
	Sessions int    `json:"sessions"`
	Error    string `json:"error,omitempty"`
}

// handleHealth returns 200 while the session store answers a ping and 503
// otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok"}

		if g.sessions != nil {
			resp.Sessions = g.sessions.Sessions()
		}

		if g.store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
			defer cancel()
			if err := g.store.Ping(ctx); err != nil {
				resp.Status = "degraded"
				resp.Error = "session store unreachable"
				g.logger.Warn("health check: session store ping failed", "error", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
