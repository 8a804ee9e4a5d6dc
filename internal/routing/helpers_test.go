package routing

import (
	"github.com/nextlevelbuilder/botcrew/internal/persona"
)

// scriptedRand replays fixed draws and counts how many were taken.
type scriptedRand struct {
	draws []float64
	calls int
}

func (s *scriptedRand) Float64() float64 {
	if len(s.draws) == 0 {
		s.calls++
		return 0
	}
	v := s.draws[s.calls%len(s.draws)]
	s.calls++
	return v
}

func script(draws ...float64) *scriptedRand {
	return &scriptedRand{draws: draws}
}

func newPersona(id, token string, prob float64, names ...string) *persona.Persona {
	return &persona.Persona{
		ID:                        id,
		Name:                      names[0],
		Token:                     token,
		WebhookURL:                "http://localhost/" + id,
		NameVariations:            names,
		RandomResponseProbability: prob,
	}
}

// crew is a registry with three personas and resolved handles.
func crew() (*persona.Registry, *persona.Persona, *persona.Persona, *persona.Persona) {
	siphon := newPersona("siphon", "111:AAA", 0.1, "Сифон", "Siphon", "Сифоненко")
	alpha := newPersona("alpha", "222:BBB", 0.3, "Alpha", "Альфа")
	beta := newPersona("beta", "333:CCC", 0.6, "Beta", "Бета")
	reg := persona.NewRegistry([]*persona.Persona{siphon, alpha, beta}, map[string]string{
		"siphon": "siphon_bot",
		"alpha":  "alpha_bot",
		"beta":   "beta_bot",
	})
	return reg, siphon, alpha, beta
}
