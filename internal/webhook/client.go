package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/botcrew/internal/config"
	"github.com/nextlevelbuilder/botcrew/internal/persona"
	"github.com/nextlevelbuilder/botcrew/internal/tracing"
)

// ErrNoEndpoint is returned when a persona has no usable webhook URL.
var ErrNoEndpoint = errors.New("no webhook endpoint configured")

const maxResponseBytes = 1 << 20

// Response is the decoded backend reply.
type Response struct {
	Answer   string `json:"answer"`
	Text     string `json:"text"`
	Endpoint string `json:"-"` // URL that produced the reply
}

// Reply returns the text to post back to the chat, or "" when the backend
// produced nothing usable.
func (r *Response) Reply() string {
	if r == nil || strings.TrimSpace(r.Answer) == "" {
		return ""
	}
	return r.Answer
}

// Client posts payloads to persona backends. Safe for concurrent use.
type Client struct {
	http       *http.Client
	preferTest bool
	limit      rate.Limit
	burst      int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter // persona id → limiter
}

// NewClient creates a client from the webhook config section.
func NewClient(cfg config.WebhookConfig) *Client {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout()},
		preferTest: cfg.PreferTestURL,
		limit:      limit,
		burst:      burst,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Endpoints returns the URLs Send tries for p, in order.
func (c *Client) Endpoints(p *persona.Persona) []string {
	test := firstNonEmpty(p.TestWebhookURL, p.WebhookURL)
	prod := firstNonEmpty(p.ProductionWebhookURL, p.WebhookURL)

	var out []string
	if c.preferTest && test != "" {
		out = append(out, test)
	}
	if prod != "" && (len(out) == 0 || out[0] != prod) {
		out = append(out, prod)
	}
	return out
}

// Send posts payload to p's backend, falling back from the test URL to the
// production URL on any failure. A 200 response with a body is a success.
func (c *Client) Send(ctx context.Context, p *persona.Persona, payload Payload) (*Response, error) {
	endpoints := c.Endpoints(p)
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("persona %s: %w", p.ID, ErrNoEndpoint)
	}

	ctx, span := tracing.Tracer().Start(ctx, "webhook.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("persona.id", p.ID),
			attribute.Int("webhook.endpoints", len(endpoints)),
		))
	defer span.End()

	if err := c.limiter(p.ID).Wait(ctx); err != nil {
		span.SetStatus(codes.Error, "rate limited")
		return nil, fmt.Errorf("persona %s: webhook rate limit: %w", p.ID, err)
	}

	var errs []error
	for _, url := range endpoints {
		payload.WebhookURL = url
		resp, err := c.post(ctx, url, payload)
		if err == nil {
			span.SetAttributes(attribute.String("webhook.endpoint", url))
			slog.Debug("webhook answered", "persona", p.ID, "url", url, "answer_len", len(resp.Answer))
			return resp, nil
		}
		slog.Warn("webhook endpoint failed", "persona", p.ID, "url", url, "error", err)
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	span.RecordError(err)
	span.SetStatus(codes.Error, "all endpoints failed")
	return nil, fmt.Errorf("persona %s: webhook: %w", p.ID, err)
}

func (c *Client) post(ctx context.Context, url string, payload Payload) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	out := &Response{Endpoint: url}
	if err := json.Unmarshal(data, out); err != nil {
		// A non-JSON 200 still counts as answered; the caller sends the
		// fallback text.
		slog.Debug("webhook response is not JSON", "url", url, "error", err)
	}
	return out, nil
}

func (c *Client) limiter(personaID string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[personaID]
	if !ok {
		l = rate.NewLimiter(c.limit, c.burst)
		c.limiters[personaID] = l
	}
	return l
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
