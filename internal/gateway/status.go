package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds int64  `json:"uptime_seconds"`
	StartedAt     string `json:"started_at"`
	Sessions      int    `json:"sessions"`
	Model         string `json:"model,omitempty"`
	Webhooks      bool   `json:"webhooks"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			UptimeSeconds: int64(time.Since(g.startedAt).Seconds()),
			StartedAt:     g.startedAt.UTC().Format(time.RFC3339),
			Webhooks:      g.dispatcher.Has("telegram"),
		}
		if g.sessions != nil {
			resp.Sessions = g.sessions.Sessions()
		}
		if g.model != nil {
			resp.Model = g.model.ModelName()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
