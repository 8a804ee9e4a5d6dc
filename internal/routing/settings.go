package routing

import (
	"math/rand/v2"
)

// Settings holds the tunables of the target-resolution cascade.
// It is passed by value into the engine; there are no package-level knobs.
type Settings struct {
	// RandomResponseProbability is the chance that someone answers a group
	// message that addressed no persona.
	RandomResponseProbability float64
	// SecondaryResponseProbability is the chance that the second-mentioned
	// persona answers as well.
	SecondaryResponseProbability float64
	// MinNamePartLength guards substring matches: shorter names and tokens
	// never match as parts of longer words.
	MinNamePartLength int
	// DefaultPersonaProbability is the pick weight for personas without a
	// configured random_response_probability.
	DefaultPersonaProbability float64
}

const (
	DefaultRandomResponseProbability    = 0.10
	DefaultSecondaryResponseProbability = 0.15
	DefaultMinNamePartLength            = 4
	DefaultPersonaProbability           = 0.1
)

// DefaultSettings returns the stock cascade settings.
func DefaultSettings() Settings {
	return Settings{
		RandomResponseProbability:    DefaultRandomResponseProbability,
		SecondaryResponseProbability: DefaultSecondaryResponseProbability,
		MinNamePartLength:            DefaultMinNamePartLength,
		DefaultPersonaProbability:    DefaultPersonaProbability,
	}
}

// withDefaults fills zero fields. Probabilities of exactly zero are kept:
// they are a valid way to switch a rule off.
func (s Settings) withDefaults() Settings {
	if s.MinNamePartLength <= 0 {
		s.MinNamePartLength = DefaultMinNamePartLength
	}
	if s.DefaultPersonaProbability <= 0 {
		s.DefaultPersonaProbability = DefaultPersonaProbability
	}
	return s
}

// Rand is the source of randomness used by the cascade.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// DefaultRand draws from the process-wide generator, which is safe for
// concurrent use.
var DefaultRand Rand = globalRand{}

func orDefault(rng Rand) Rand {
	if rng == nil {
		return DefaultRand
	}
	return rng
}
