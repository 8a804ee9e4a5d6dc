package routing

import (
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/nextlevelbuilder/botcrew/internal/persona"
)

// tokenSeparators split words in the primary pass, together with whitespace.
const tokenSeparators = ",.!?;:)(-+"

// stripSet is trimmed from both ends of words in the secondary pass.
const stripSet = ",.!?;:)(-+"

// Matcher finds persona names in text.
type Matcher struct {
	minLen int
}

// NewMatcher creates a matcher using the length floor from s.
func NewMatcher(s Settings) Matcher {
	return Matcher{minLen: s.withDefaults().MinNamePartLength}
}

// DetectName reports whether p is mentioned in text. Rules, first match wins:
//  1. an "@handle" mention entity;
//  2. a token equal to a name variant, a token containing a long enough
//     variant, or a multi-word variant found as a phrase;
//  3. a punctuation-trimmed word equal to, containing, or contained in a
//     variant, with the same length floor on both sides.
func (m Matcher) DetectName(text string, entities []Entity, p *persona.Persona, handle string) MentionResult {
	if text == "" || p == nil {
		return NotMentioned()
	}
	if r, ok := matchEntity(text, entities, handle); ok {
		return r
	}
	normalized := strings.ToLower(text)
	if r, ok := m.matchTokens(normalized, p.NameVariations); ok {
		return r
	}
	if r, ok := m.matchWords(normalized, p.NameVariations); ok {
		return r
	}
	return NotMentioned()
}

// MentionsName is the existence-only form of DetectName used for quoted
// text: entities are not considered.
func (m Matcher) MentionsName(text string, p *persona.Persona) bool {
	return m.DetectName(text, nil, p, "").Mentioned
}

func matchEntity(text string, entities []Entity, handle string) (MentionResult, bool) {
	if handle == "" || len(entities) == 0 {
		return MentionResult{}, false
	}
	want := "@" + strings.TrimPrefix(handle, "@")
	units := utf16.Encode([]rune(text))
	for _, e := range entities {
		if e.Kind != EntityMention || e.Offset < 0 || e.Length <= 0 || e.Offset+e.Length > len(units) {
			continue
		}
		got := string(utf16.Decode(units[e.Offset : e.Offset+e.Length]))
		if strings.EqualFold(got, want) {
			return MentionResult{
				Mentioned: true,
				NameFound: want,
				Method:    MethodMentionEntity,
				Position:  e.Offset,
			}, true
		}
	}
	return MentionResult{}, false
}

func (m Matcher) matchTokens(normalized string, variations []string) (MentionResult, bool) {
	tokens := strings.FieldsFunc(normalized, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(tokenSeparators, r)
	})

	for _, variant := range variations {
		name := strings.ToLower(variant)
		if name == "" {
			continue
		}
		for _, tok := range tokens {
			if tok == name {
				return found(variant, MethodExactWord, indexUTF16(normalized, tok)), true
			}
			if m.longEnough(name) && strings.Contains(tok, name) {
				return found(variant, MethodSubstringContains, indexUTF16(normalized, tok)), true
			}
		}
		if strings.Contains(name, " ") {
			if pos := indexUTF16(normalized, name); pos >= 0 {
				return found(variant, MethodPhraseMatch, pos), true
			}
		}
	}
	return MentionResult{}, false
}

func (m Matcher) matchWords(normalized string, variations []string) (MentionResult, bool) {
	for _, raw := range strings.Fields(normalized) {
		word := strings.Trim(raw, stripSet)
		if word == "" {
			continue
		}
		for _, variant := range variations {
			name := strings.ToLower(variant)
			if name == "" {
				continue
			}
			if word == name ||
				(m.longEnough(name) && strings.Contains(word, name)) ||
				(m.longEnough(word) && strings.Contains(name, word)) {
				return found(variant, MethodWordMatch, indexUTF16(normalized, word)), true
			}
		}
	}
	return MentionResult{}, false
}

func (m Matcher) longEnough(s string) bool {
	return utf8.RuneCountInString(s) >= m.minLen
}

func found(name string, method MentionMethod, pos int) MentionResult {
	return MentionResult{Mentioned: true, NameFound: name, Method: method, Position: pos}
}

// indexUTF16 is strings.Index with the result expressed in UTF-16 code
// units, the unit Telegram uses for entity offsets.
func indexUTF16(s, sub string) int {
	i := strings.Index(s, sub)
	if i < 0 {
		return -1
	}
	return utf16Len(s[:i])
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
