package routing

import (
	"slices"

	"github.com/nextlevelbuilder/botcrew/internal/persona"
)

// DetectAll runs DetectName for every persona in reg and returns the
// positive results ordered by position. Equal positions keep registry order.
func (m Matcher) DetectAll(text string, entities []Entity, reg *persona.Registry) []Mention {
	if text == "" || reg.Len() == 0 {
		return nil
	}
	var out []Mention
	for _, p := range reg.Personas() {
		res := m.DetectName(text, entities, p, reg.Handle(p.ID))
		if res.Mentioned {
			out = append(out, Mention{Persona: p, Result: res})
		}
	}
	slices.SortStableFunc(out, func(a, b Mention) int {
		return a.Result.Position - b.Result.Position
	})
	return out
}

// PersonasMentionedIn returns, in registry order, the personas whose names
// appear anywhere in text.
func (m Matcher) PersonasMentionedIn(text string, reg *persona.Registry) []*persona.Persona {
	if text == "" || reg.Len() == 0 {
		return nil
	}
	var out []*persona.Persona
	for _, p := range reg.Personas() {
		if m.MentionsName(text, p) {
			out = append(out, p)
		}
	}
	return out
}

// Picker performs probability-weighted selection among personas.
type Picker struct {
	defaultWeight float64
}

// NewPicker creates a picker using the default weight from s.
func NewPicker(s Settings) Picker {
	return Picker{defaultWeight: s.withDefaults().DefaultPersonaProbability}
}

func (pk Picker) weight(p *persona.Persona) float64 {
	if p.RandomResponseProbability > 0 {
		return p.RandomResponseProbability
	}
	return pk.defaultWeight
}

// Pick chooses one candidate with chance proportional to its weight.
// It returns nil for no candidates and the only candidate without drawing.
func (pk Picker) Pick(rng Rand, candidates []*persona.Persona) *persona.Persona {
	candidates = slices.DeleteFunc(slices.Clone(candidates), func(p *persona.Persona) bool { return p == nil })
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return candidates[0]
	}

	total := 0.0
	for _, p := range candidates {
		total += pk.weight(p)
	}
	draw := orDefault(rng).Float64() * total

	acc := 0.0
	for _, p := range candidates {
		acc += pk.weight(p)
		if draw <= acc {
			return p
		}
	}

	// Floating-point slack only: fall back to the heaviest candidate.
	best := candidates[0]
	for _, p := range candidates[1:] {
		if pk.weight(p) > pk.weight(best) {
			best = p
		}
	}
	return best
}

// ProbabilisticPick is Pick with the stock default weight.
func ProbabilisticPick(rng Rand, candidates []*persona.Persona) *persona.Persona {
	return NewPicker(DefaultSettings()).Pick(rng, candidates)
}
