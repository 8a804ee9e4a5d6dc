// Package routing decides which personas answer a chat message.
//
// The flow is: Name Matcher (DetectName) → Multi-Persona Detector
// (DetectAll, PersonasMentionedIn, ProbabilisticPick) and Quote Context
// Resolver (ResolveQuote) → Engine.Resolve, an ordered rule table.
// Nothing in this package performs I/O or keeps state between calls.
package routing

import (
	"github.com/nextlevelbuilder/botcrew/internal/persona"
)

// ChatKind distinguishes one-to-one chats from group chats.
type ChatKind string

const (
	ChatPrivate ChatKind = "private"
	ChatGroup   ChatKind = "group"
)

// EntityMention is the entity kind of an "@username" reference.
const EntityMention = "mention"

// Entity is a structured annotation over the message text. Offset and
// Length are in UTF-16 code units, as Telegram reports them.
type Entity struct {
	Offset int
	Length int
	Kind   string
}

// QuotedMessage is the message being replied to.
type QuotedMessage struct {
	Text        string
	AuthorName  string
	AuthorID    int64
	AuthorIsBot bool
}

// InboundMessage is a decoded message awaiting routing.
type InboundMessage struct {
	Text     string
	Kind     ChatKind
	Entities []Entity
	Quoted   *QuotedMessage // nil when the message is not a reply
	// ReceiverID is the numeric id of the bot connection that received the
	// message; it identifies the persona in private chats.
	ReceiverID int64
}

// IsPrivate reports whether the message came from a one-to-one chat.
func (m *InboundMessage) IsPrivate() bool {
	return m != nil && m.Kind == ChatPrivate
}

// MentionMethod names the matcher rule that found a persona name.
type MentionMethod string

const (
	MethodMentionEntity     MentionMethod = "mention_entity"
	MethodExactWord         MentionMethod = "exact_word"
	MethodSubstringContains MentionMethod = "substring_contains"
	MethodPhraseMatch       MentionMethod = "phrase_match"
	MethodWordMatch         MentionMethod = "word_match"
)

// MentionResult is the outcome of DetectName. Position is a UTF-16 offset
// into the text, or -1 when not mentioned.
type MentionResult struct {
	Mentioned bool
	NameFound string
	Method    MentionMethod
	Position  int
}

// NotMentioned is the zero-match result.
func NotMentioned() MentionResult {
	return MentionResult{Position: -1}
}

// Mention pairs a persona with the result that found it.
type Mention struct {
	Persona *persona.Persona
	Result  MentionResult
}

// QuoteContext holds the facts derived from the replied-to message.
type QuoteContext struct {
	HasQuotedMessage bool
	IsReplyToPersona bool
	ReplyToPersonaID string // "" unless IsReplyToPersona
	QuotedText       string
	QuotedAuthor     string
	PersonasInQuote  []*persona.Persona
}

// Reason explains why a persona was chosen.
type Reason string

const (
	ReasonPrivateChat       Reason = "private_chat"
	ReasonTextMention       Reason = "text_mention"
	ReasonFirstTextMention  Reason = "first_text_mention"
	ReasonSecondTextMention Reason = "second_text_mention"
	ReasonQuoteMention      Reason = "quote_mention"
	ReasonReplyToPersona    Reason = "reply_to_persona"
	ReasonRandomResponse    Reason = "random_response"
)

// Priority 1 is the primary responder; 2 may answer in addition.
const (
	PriorityPrimary   = 1
	PrioritySecondary = 2
)

// TargetDecision is one persona selected to respond.
type TargetDecision struct {
	Persona  *persona.Persona
	Reason   Reason
	Priority int
}

// Decisions is the ordered engine output; the first entry is the primary
// responder.
type Decisions []TargetDecision

// Find returns the decision for the given persona id, if any.
func (d Decisions) Find(personaID string) (TargetDecision, bool) {
	for _, td := range d {
		if td.Persona != nil && td.Persona.ID == personaID {
			return td, true
		}
	}
	return TargetDecision{}, false
}

// Primary returns the first decision, if any.
func (d Decisions) Primary() (TargetDecision, bool) {
	if len(d) == 0 {
		return TargetDecision{}, false
	}
	return d[0], true
}
