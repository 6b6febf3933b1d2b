package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/flemzord/sigma/internal/completion"
	"github.com/flemzord/sigma/internal/dialogue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// maxResponseSize caps the response body read (10 MB).
const maxResponseSize = 10 * 1024 * 1024

// maxLoggedPayload caps how much of an unexpected payload is logged.
const maxLoggedPayload = 4096

var (
	errStatus    = errors.New("gemini: unexpected status")
	errMalformed = errors.New("gemini: response has no candidate text")
)

// endpoint returns <base_url>/models/<model>:generateContent?key=<api_key>.
func (p *Provider) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		p.config.BaseURL, p.config.Model, url.QueryEscape(p.config.APIKey))
}

// Complete implements completion.Completer. Exactly one HTTP request is made
// per call; failures map to a fallback Result and are never retried.
func (p *Provider) Complete(ctx context.Context, turns []dialogue.Turn) completion.Result {
	ctx, span := p.tracer.Start(ctx, "gemini.generateContent",
		attribute.String("gemini.model", p.config.Model),
		attribute.Int("gemini.turns", len(turns)),
	)
	defer span.End()

	start := time.Now()
	res := p.complete(ctx, turns)
	p.metrics.ObserveCompletion(res.Fallback.String(), time.Since(start))

	if !res.OK() {
		span.SetStatus(codes.Error, res.Fallback.String())
		if res.Err != nil {
			span.RecordError(res.Err)
		}
	}
	return res
}

func (p *Provider) complete(ctx context.Context, turns []dialogue.Turn) completion.Result {
	body, err := json.Marshal(generateRequest{Contents: turns})
	if err != nil {
		return completion.Failure(completion.ReasonTransport, fmt.Errorf("gemini: marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
	if err != nil {
		return completion.Failure(completion.ReasonTransport, fmt.Errorf("gemini: create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		p.logger.Error("gemini request failed", "error", err)
		return completion.Failure(completion.ReasonTransport, fmt.Errorf("gemini: do request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		p.logger.Error("gemini response read failed", "status", resp.StatusCode, "error", err)
		return completion.Failure(completion.ReasonTransport, fmt.Errorf("gemini: read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		p.logger.Error("gemini API error",
			"status", resp.StatusCode,
			"body", truncate(raw, maxLoggedPayload),
		)
		return completion.Failure(completion.ReasonStatus, fmt.Errorf("%w: %d", errStatus, resp.StatusCode))
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		p.logger.Error("unexpected gemini response format",
			"payload", truncate(raw, maxLoggedPayload),
			"error", err,
		)
		return completion.Failure(completion.ReasonMalformed, fmt.Errorf("gemini: decode response: %w", err))
	}

	text, ok := gr.firstText()
	if !ok {
		p.logger.Error("unexpected gemini response format", "payload", truncate(raw, maxLoggedPayload))
		return completion.Failure(completion.ReasonMalformed, errMalformed)
	}
	return completion.Success(text)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "…"
}
