package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nextlevelbuilder/botcrew/internal/config"
	"github.com/nextlevelbuilder/botcrew/internal/persona"
)

func testConfig() config.WebhookConfig {
	return config.WebhookConfig{TimeoutSeconds: 5, PreferTestURL: true}
}

func TestEndpoints(t *testing.T) {
	c := NewClient(testConfig())
	tests := []struct {
		name string
		p    persona.Persona
		want []string
	}{
		{"only webhook url", persona.Persona{WebhookURL: "http://a"}, []string{"http://a"}},
		{"test and production", persona.Persona{WebhookURL: "http://a", TestWebhookURL: "http://t", ProductionWebhookURL: "http://p"}, []string{"http://t", "http://p"}},
		{"production falls back to webhook url", persona.Persona{WebhookURL: "http://a", TestWebhookURL: "http://t"}, []string{"http://t", "http://a"}},
		{"nothing", persona.Persona{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Endpoints(&tt.p)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Endpoints = %v, want %v", got, tt.want)
			}
		})
	}

	prodOnly := NewClient(config.WebhookConfig{PreferTestURL: false})
	got := prodOnly.Endpoints(&persona.Persona{WebhookURL: "http://a", TestWebhookURL: "http://t", ProductionWebhookURL: "http://p"})
	if len(got) != 1 || got[0] != "http://p" {
		t.Errorf("prefer_test_url=false: %v", got)
	}
}

func TestSend_TestURLAnswers(t *testing.T) {
	var received Payload
	var requestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Request-ID")
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Write([]byte(`{"answer": "hello there", "text": "ignored"}`))
	}))
	defer srv.Close()

	p := &persona.Persona{ID: "siphon", WebhookURL: srv.URL + "/test", ProductionWebhookURL: srv.URL + "/prod"}
	resp, err := NewClient(testConfig()).Send(context.Background(), p, Payload{ChatInput: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.Reply() != "hello there" || resp.Endpoint != srv.URL+"/test" {
		t.Errorf("response = %+v", resp)
	}
	if received.WebhookURL != srv.URL+"/test" || received.ChatInput != "hi" {
		t.Errorf("payload = %+v", received)
	}
	if requestID == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestSend_FallsBackToProduction(t *testing.T) {
	var prodHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/test":
			http.NotFound(w, r)
		case "/prod":
			prodHits.Add(1)
			var p Payload
			json.NewDecoder(r.Body).Decode(&p)
			if p.WebhookURL != "http://"+r.Host+"/prod" {
				t.Errorf("payload webhookUrl = %q", p.WebhookURL)
			}
			w.Write([]byte(`{"answer": "from prod"}`))
		}
	}))
	defer srv.Close()

	p := &persona.Persona{ID: "siphon", WebhookURL: srv.URL + "/test", ProductionWebhookURL: srv.URL + "/prod"}
	resp, err := NewClient(testConfig()).Send(context.Background(), p, Payload{})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.Reply() != "from prod" || prodHits.Load() != 1 {
		t.Errorf("response = %+v, prod hits = %d", resp, prodHits.Load())
	}
}

func TestSend_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/empty":
			w.WriteHeader(http.StatusOK)
		case "/huge":
			w.Write([]byte(`{"answer": "` + strings.Repeat("x", maxResponseBytes) + `"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`boom`))
		}
	}))
	defer srv.Close()

	c := NewClient(testConfig())
	for _, path := range []string{"/empty", "/huge", "/error"} {
		t.Run(path, func(t *testing.T) {
			p := &persona.Persona{ID: "siphon", WebhookURL: srv.URL + path}
			if _, err := c.Send(context.Background(), p, Payload{}); err == nil {
				t.Error("expected error")
			}
		})
	}

	t.Run("no endpoint", func(t *testing.T) {
		_, err := c.Send(context.Background(), &persona.Persona{ID: "ghost"}, Payload{})
		if !errors.Is(err, ErrNoEndpoint) {
			t.Errorf("err = %v, want ErrNoEndpoint", err)
		}
	})
}

func TestSend_NonJSONBodyIsAnswerless(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`Workflow was started`))
	}))
	defer srv.Close()

	resp, err := NewClient(testConfig()).Send(context.Background(), &persona.Persona{ID: "siphon", WebhookURL: srv.URL}, Payload{})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.Reply() != "" {
		t.Errorf("Reply() = %q, want empty", resp.Reply())
	}
}

func TestSend_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer": "ok"}`))
	}))
	defer srv.Close()

	c := NewClient(config.WebhookConfig{TimeoutSeconds: 5, RequestsPerMinute: 1, Burst: 1})
	p := &persona.Persona{ID: "siphon", WebhookURL: srv.URL}
	if _, err := c.Send(context.Background(), p, Payload{}); err != nil {
		t.Fatalf("first Send: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Send(ctx, p, Payload{}); err == nil {
		t.Error("second Send inside the same minute should wait past the deadline")
	}

	// Limiters are per persona.
	other := &persona.Persona{ID: "alpha", WebhookURL: srv.URL}
	if _, err := c.Send(context.Background(), other, Payload{}); err != nil {
		t.Errorf("other persona limited: %v", err)
	}
}
