package config

import "time"

// TelegramConfig holds the settings shared by every persona bot.
// Bot tokens live in the persona files, not here.
type TelegramConfig struct {
	Proxy              string `json:"proxy,omitempty"`                // HTTP proxy for the Bot API
	PollTimeoutSeconds int    `json:"poll_timeout_seconds,omitempty"` // long-polling timeout (default 30)
	DecisionTTLSeconds int    `json:"decision_ttl_seconds,omitempty"` // how long a routing decision is shared between bots (default 120)
}

// PollTimeout returns the long-polling timeout in seconds, as telego expects.
func (t TelegramConfig) PollTimeout() int {
	if t.PollTimeoutSeconds <= 0 {
		return 30
	}
	return t.PollTimeoutSeconds
}

// DecisionTTL returns the routing decision lifetime.
func (t TelegramConfig) DecisionTTL() time.Duration {
	if t.DecisionTTLSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(t.DecisionTTLSeconds) * time.Second
}

// WebhookConfig configures calls to the persona answer backends.
type WebhookConfig struct {
	TimeoutSeconds    int  `json:"timeout_seconds,omitempty"`     // per request (default 60)
	RequestsPerMinute int  `json:"requests_per_minute,omitempty"` // per persona, 0 = unlimited (default 30)
	Burst             int  `json:"burst,omitempty"`               // limiter burst (default 5)
	PreferTestURL     bool `json:"prefer_test_url"`               // try the test URL before production (default true)
}

// Timeout returns the per-request timeout.
func (w WebhookConfig) Timeout() time.Duration {
	if w.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(w.TimeoutSeconds) * time.Second
}
