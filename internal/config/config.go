package config

import (
	"os"
	"time"

	"github.com/nextlevelbuilder/botcrew/internal/routing"
)

// Config is the root configuration for the botcrew gateway.
type Config struct {
	Routing   RoutingConfig   `json:"routing"`
	Personas  PersonasConfig  `json:"personas"`
	Webhook   WebhookConfig   `json:"webhook"`
	Telegram  TelegramConfig  `json:"telegram"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
}

// RoutingConfig tunes the target-resolution cascade.
type RoutingConfig struct {
	RandomResponseProbability    float64 `json:"random_response_probability"`    // chance an unaddressed group message gets an answer (default 0.10)
	SecondaryResponseProbability float64 `json:"secondary_response_probability"` // chance the second-mentioned persona answers too (default 0.15)
	MinNamePartLength            int     `json:"min_name_part_length"`           // floor for substring name matches (default 4)
	DefaultPersonaProbability    float64 `json:"default_persona_probability"`    // pick weight for personas without their own (default 0.1)
}

// PersonasConfig locates persona definition files.
type PersonasConfig struct {
	Dir        string `json:"dir"`                   // one JSON5 file per persona (default "./bots_configs")
	Watch      bool   `json:"watch"`                 // reload on change (default true)
	DebounceMS int    `json:"debounce_ms,omitempty"` // coalesce rapid edits (default 500)
}

// TelemetryConfig configures OpenTelemetry export for traces and spans.
// When Enabled is false, spans are no-ops.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`      // enable OTLP export (default false)
	Endpoint    string            `json:"endpoint,omitempty"`     // OTLP endpoint (e.g. "localhost:4317", "https://otel.example.com:4318")
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`     // plain-text transport (default false, set true for local dev)
	ServiceName string            `json:"service_name,omitempty"` // OTEL service name (default "botcrew")
	Headers     map[string]string `json:"headers,omitempty"`      // extra headers (e.g. auth tokens for cloud backends)
}

// RoutingSettings converts the routing section into engine settings.
func (c *Config) RoutingSettings() routing.Settings {
	return routing.Settings{
		RandomResponseProbability:    c.Routing.RandomResponseProbability,
		SecondaryResponseProbability: c.Routing.SecondaryResponseProbability,
		MinNamePartLength:            c.Routing.MinNamePartLength,
		DefaultPersonaProbability:    c.Routing.DefaultPersonaProbability,
	}
}

// PersonasDir returns the expanded persona definitions directory.
func (c *Config) PersonasDir() string {
	return ExpandHome(c.Personas.Dir)
}

// PersonaDebounce returns the watcher debounce as a duration.
func (c *Config) PersonaDebounce() time.Duration {
	return time.Duration(c.Personas.DebounceMS) * time.Millisecond
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
