package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/titanous/json5"

	"github.com/nextlevelbuilder/botcrew/internal/routing"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Routing: RoutingConfig{
			RandomResponseProbability:    routing.DefaultRandomResponseProbability,
			SecondaryResponseProbability: routing.DefaultSecondaryResponseProbability,
			MinNamePartLength:            routing.DefaultMinNamePartLength,
			DefaultPersonaProbability:    routing.DefaultPersonaProbability,
		},
		Personas: PersonasConfig{
			Dir:        "./bots_configs",
			Watch:      true,
			DebounceMS: 500,
		},
		Webhook: WebhookConfig{
			TimeoutSeconds:    60,
			RequestsPerMinute: 30,
			Burst:             5,
			PreferTestURL:     true,
		},
		Telegram: TelegramConfig{
			PollTimeoutSeconds: 30,
			DecisionTTLSeconds: 120,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "botcrew",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the routing engine cannot use.
func (c *Config) Validate() error {
	probs := map[string]float64{
		"routing.random_response_probability":    c.Routing.RandomResponseProbability,
		"routing.secondary_response_probability": c.Routing.SecondaryResponseProbability,
		"routing.default_persona_probability":    c.Routing.DefaultPersonaProbability,
	}
	for key, v := range probs {
		if v < 0 || v > 1 {
			return fmt.Errorf("config: %s = %v, want a value in [0,1]", key, v)
		}
	}
	if c.Routing.MinNamePartLength < 0 {
		return fmt.Errorf("config: routing.min_name_part_length = %d, want >= 0", c.Routing.MinNamePartLength)
	}
	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("config: telemetry.protocol %q, want grpc or http", c.Telemetry.Protocol)
	}
	return nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				*dst = n
			}
		}
	}
	envBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	// Routing
	envFloat("BOTCREW_RANDOM_RESPONSE_PROBABILITY", &c.Routing.RandomResponseProbability)
	envFloat("BOTCREW_SECONDARY_RESPONSE_PROBABILITY", &c.Routing.SecondaryResponseProbability)
	envInt("BOTCREW_MIN_NAME_PART_LENGTH", &c.Routing.MinNamePartLength)

	// Personas
	envStr("BOTCREW_PERSONAS_DIR", &c.Personas.Dir)
	envBool("BOTCREW_PERSONAS_WATCH", &c.Personas.Watch)

	// Webhook
	envInt("BOTCREW_WEBHOOK_TIMEOUT_SECONDS", &c.Webhook.TimeoutSeconds)
	envInt("BOTCREW_WEBHOOK_RPM", &c.Webhook.RequestsPerMinute)
	envBool("BOTCREW_WEBHOOK_PREFER_TEST_URL", &c.Webhook.PreferTestURL)

	// Telegram
	envStr("BOTCREW_TELEGRAM_PROXY", &c.Telegram.Proxy)

	// Telemetry
	envStr("BOTCREW_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("BOTCREW_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("BOTCREW_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	envBool("BOTCREW_TELEMETRY_ENABLED", &c.Telemetry.Enabled)
	envBool("BOTCREW_TELEMETRY_INSECURE", &c.Telemetry.Insecure)
}

// Hash returns a short SHA-256 hash of the config, logged at startup so
// operators can tell which settings are live.
func (c *Config) Hash() string {
	data, _ := json.Marshal(c)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}
