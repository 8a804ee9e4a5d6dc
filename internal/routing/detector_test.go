package routing

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/nextlevelbuilder/botcrew/internal/persona"
)

func ids(mentions []Mention) []string {
	out := make([]string, len(mentions))
	for i, m := range mentions {
		out[i] = m.Persona.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDetectAll_OrdersByPosition(t *testing.T) {
	m := NewMatcher(DefaultSettings())
	reg, _, _, _ := crew()

	tests := []struct {
		name     string
		text     string
		entities []Entity
		want     []string
	}{
		{name: "later registry entry mentioned first", text: "beta, then alpha", want: []string{"beta", "alpha"}},
		{name: "registry order when positions differ the other way", text: "alpha and beta", want: []string{"alpha", "beta"}},
		{name: "three personas", text: "Бета, Сифон і Альфа", want: []string{"beta", "siphon", "alpha"}},
		{
			name:     "mention entity before a plain name",
			text:     "@alpha_bot ask Beta",
			entities: []Entity{{Offset: 0, Length: 10, Kind: EntityMention}},
			want:     []string{"alpha", "beta"},
		},
		{
			name:     "plain name before a mention entity",
			text:     "Beta, ask @alpha_bot",
			entities: []Entity{{Offset: 10, Length: 10, Kind: EntityMention}},
			want:     []string{"beta", "alpha"},
		},
		{name: "nobody", text: "hello there", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(m.DetectAll(tt.text, tt.entities, reg))
			if !equalIDs(got, tt.want) {
				t.Errorf("DetectAll(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectAll_TiesKeepRegistryOrder(t *testing.T) {
	m := NewMatcher(DefaultSettings())
	first := newPersona("first", "1:A", 0, "Twin")
	second := newPersona("second", "2:B", 0, "Twin")
	reg := persona.NewRegistry([]*persona.Persona{first, second}, nil)

	for i := 0; i < 20; i++ {
		got := ids(m.DetectAll("twin here", nil, reg))
		if !equalIDs(got, []string{"first", "second"}) {
			t.Fatalf("run %d: got %v", i, got)
		}
	}
}

func TestDetectAll_EmptyInputs(t *testing.T) {
	m := NewMatcher(DefaultSettings())
	reg, _, _, _ := crew()
	if got := m.DetectAll("", nil, reg); len(got) != 0 {
		t.Errorf("empty text: %v", got)
	}
	if got := m.DetectAll("alpha", nil, nil); len(got) != 0 {
		t.Errorf("nil registry: %v", got)
	}
	if got := m.DetectAll("alpha", nil, persona.NewRegistry(nil, nil)); len(got) != 0 {
		t.Errorf("empty registry: %v", got)
	}
}

func TestPersonasMentionedIn(t *testing.T) {
	m := NewMatcher(DefaultSettings())
	reg, _, _, _ := crew()

	got := m.PersonasMentionedIn("beta said alpha is wrong", reg)
	if len(got) != 2 || got[0].ID != "alpha" || got[1].ID != "beta" {
		t.Errorf("got %v, want registry order [alpha beta]", got)
	}
	if got := m.PersonasMentionedIn("nobody here", reg); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestPick_EdgeCases(t *testing.T) {
	pk := NewPicker(DefaultSettings())
	_, siphon, _, _ := crew()

	if got := pk.Pick(script(0.5), nil); got != nil {
		t.Errorf("empty candidates: got %v", got)
	}

	rng := script(0.5)
	if got := pk.Pick(rng, []*persona.Persona{siphon}); got != siphon {
		t.Errorf("single candidate: got %v", got)
	}
	if rng.calls != 0 {
		t.Errorf("single candidate consumed %d draws", rng.calls)
	}
}

func TestPick_ScriptedDraws(t *testing.T) {
	pk := NewPicker(DefaultSettings())
	_, siphon, alpha, beta := crew() // weights 0.1, 0.3, 0.6
	candidates := []*persona.Persona{siphon, alpha, beta}

	tests := []struct {
		draw float64
		want *persona.Persona
	}{
		{0.0, siphon},
		{0.05, siphon},
		{0.1, siphon},
		{0.2, alpha},
		{0.39, alpha},
		{0.5, beta},
		{0.99, beta},
		{2.0, beta}, // out of range draw hits the heaviest-weight fallback
	}
	for _, tt := range tests {
		if got := pk.Pick(script(tt.draw), candidates); got != tt.want {
			t.Errorf("draw %v: got %v, want %v", tt.draw, got, tt.want)
		}
	}
}

func TestPick_DefaultWeight(t *testing.T) {
	pk := NewPicker(DefaultSettings())
	a := newPersona("a", "1:A", 0, "A")
	b := newPersona("b", "2:B", 0, "B")
	// Both default to 0.1: total 0.2, so 0.49 → draw 0.098 → a; 0.51 → 0.102 → b.
	if got := pk.Pick(script(0.49), []*persona.Persona{a, b}); got != a {
		t.Errorf("got %v, want a", got)
	}
	if got := pk.Pick(script(0.51), []*persona.Persona{a, b}); got != b {
		t.Errorf("got %v, want b", got)
	}
}

func TestPick_DoesNotReorderInput(t *testing.T) {
	_, siphon, alpha, beta := crew()
	candidates := []*persona.Persona{siphon, alpha, beta}
	ProbabilisticPick(script(5.0), candidates)
	if candidates[0] != siphon || candidates[1] != alpha || candidates[2] != beta {
		t.Error("Pick mutated the candidate slice")
	}
}

func TestPick_Distribution(t *testing.T) {
	pk := NewPicker(DefaultSettings())
	_, siphon, alpha, beta := crew()
	candidates := []*persona.Persona{siphon, alpha, beta}
	rng := rand.New(rand.NewPCG(42, 7))

	const trials = 100000
	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		counts[pk.Pick(rng, candidates).ID]++
	}

	want := map[string]float64{"siphon": 0.1, "alpha": 0.3, "beta": 0.6}
	for id, p := range want {
		freq := float64(counts[id]) / trials
		if math.Abs(freq-p) > 0.01 {
			t.Errorf("%s picked with frequency %.4f, want %.2f ± 0.01", id, freq, p)
		}
	}
}
