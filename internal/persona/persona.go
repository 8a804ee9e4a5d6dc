// Package persona defines the chatbot identities that share a group chat
// and the registry snapshots the routing engine reads.
//
// A persona is loaded from one JSON5 file and is immutable afterwards.
// Registries are immutable too: reloads and handle resolution publish a new
// *Registry through Store instead of mutating the current one.
package persona

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPersona is returned by Validate for definitions missing a
// required field.
var ErrInvalidPersona = errors.New("invalid persona")

// Persona is one configured bot identity.
type Persona struct {
	ID                        string   `json:"id"`
	Name                      string   `json:"name"`
	Token                     string   `json:"token"`
	WebhookURL                string   `json:"webhookUrl"`
	TestWebhookURL            string   `json:"testWebhookUrl,omitempty"`
	ProductionWebhookURL      string   `json:"productionWebhookUrl,omitempty"`
	NameVariations            []string `json:"nameVariations,omitempty"`
	RandomResponseProbability float64  `json:"randomResponseProbability,omitempty"` // 0 = use the routing default
	TempFilesDir              string   `json:"tempFilesDir,omitempty"`
}

// Validate checks the fields every persona needs to run.
func (p *Persona) Validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("%w: nil definition", ErrInvalidPersona)
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidPersona)
	case strings.TrimSpace(p.Token) == "":
		return fmt.Errorf("%w: %s: missing token", ErrInvalidPersona, p.ID)
	case strings.TrimSpace(p.WebhookURL) == "":
		return fmt.Errorf("%w: %s: missing webhookUrl", ErrInvalidPersona, p.ID)
	case p.RandomResponseProbability < 0 || p.RandomResponseProbability > 1:
		return fmt.Errorf("%w: %s: randomResponseProbability %v outside [0,1]", ErrInvalidPersona, p.ID, p.RandomResponseProbability)
	}
	return nil
}

// CredentialPrefix returns the numeric bot id encoded before ':' in the
// Telegram token ("123456:ABC..." → "123456"). Messages authored by the
// persona carry this id as the sender id.
func (p *Persona) CredentialPrefix() string {
	if p == nil {
		return ""
	}
	prefix, _, _ := strings.Cut(p.Token, ":")
	return prefix
}

// DisplayName returns the configured name, falling back to the id.
func (p *Persona) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// String implements fmt.Stringer for log lines: "Name (id)".
func (p *Persona) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%s)", p.DisplayName(), p.ID)
}
