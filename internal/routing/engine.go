package routing

import (
	"log/slog"
	"strconv"

	"github.com/nextlevelbuilder/botcrew/internal/persona"
)

// Resolution is the full outcome of one cascade run.
type Resolution struct {
	Decisions Decisions
	Rule      string // name of the rule that terminated the cascade
	Mentions  []Mention
	Quote     QuoteContext
}

// evaluation carries the inputs of one cascade run and memoizes the
// derived facts shared by several rules.
type evaluation struct {
	msg *InboundMessage
	reg *persona.Registry
	rng Rand

	mentions []Mention
	quote    QuoteContext
}

// rule is one step of the cascade. The first rule whose match returns
// true terminates evaluation with the output of decide, even when that
// output is empty.
type rule struct {
	name   string
	match  func(e *Engine, ev *evaluation) bool
	decide func(e *Engine, ev *evaluation) Decisions
}

// Engine resolves which personas answer a message.
// It is stateless and safe for concurrent use.
type Engine struct {
	settings Settings
	matcher  Matcher
	picker   Picker
	rules    []rule
}

// NewEngine builds an engine with the given settings.
func NewEngine(s Settings) *Engine {
	s = s.withDefaults()
	return &Engine{
		settings: s,
		matcher:  NewMatcher(s),
		picker:   NewPicker(s),
		rules:    cascade,
	}
}

// Settings returns the effective settings.
func (e *Engine) Settings() Settings { return e.settings }

// Matcher returns the name matcher the engine uses.
func (e *Engine) Matcher() Matcher { return e.matcher }

// Resolve returns the ordered list of personas that should respond.
// A nil rng uses DefaultRand.
func (e *Engine) Resolve(msg *InboundMessage, reg *persona.Registry, rng Rand) Decisions {
	return e.Explain(msg, reg, rng).Decisions
}

// Explain runs the cascade and returns the decisions along with the rule
// that produced them and the facts it inspected.
func (e *Engine) Explain(msg *InboundMessage, reg *persona.Registry, rng Rand) Resolution {
	if msg == nil || reg.Len() == 0 {
		return Resolution{Rule: "none"}
	}

	ev := &evaluation{msg: msg, reg: reg, rng: orDefault(rng)}
	if !msg.IsPrivate() {
		ev.mentions = e.matcher.DetectAll(msg.Text, msg.Entities, reg)
		ev.quote = e.matcher.ResolveQuote(msg, reg)
	}

	for _, r := range e.rules {
		if !r.match(e, ev) {
			continue
		}
		decisions := r.decide(e, ev)
		slog.Debug("routing cascade resolved",
			"rule", r.name,
			"targets", len(decisions),
			"mentions", len(ev.mentions),
			"quote_personas", len(ev.quote.PersonasInQuote),
		)
		return Resolution{Decisions: decisions, Rule: r.name, Mentions: ev.mentions, Quote: ev.quote}
	}
	return Resolution{Rule: "none", Mentions: ev.mentions, Quote: ev.quote}
}

var cascade = []rule{
	{name: "private_chat", match: matchPrivate, decide: decidePrivate},
	{name: "single_mention", match: matchSingleMention, decide: decideSingleMention},
	{name: "multiple_mentions", match: matchMultipleMentions, decide: decideMultipleMentions},
	{name: "quote_mentions", match: matchQuoteMentions, decide: decideQuoteMentions},
	{name: "reply_to_persona", match: matchReplyToPersona, decide: decideReplyToPersona},
	{name: "random_response", match: matchAlways, decide: decideRandom},
}

func matchPrivate(_ *Engine, ev *evaluation) bool { return ev.msg.IsPrivate() }

// decidePrivate answers with the persona owning the receiving connection.
// An unknown receiver yields no targets, not a fall-through.
func decidePrivate(_ *Engine, ev *evaluation) Decisions {
	p, ok := ev.reg.ByCredentialPrefix(strconv.FormatInt(ev.msg.ReceiverID, 10))
	if !ok {
		return nil
	}
	return Decisions{{Persona: p, Reason: ReasonPrivateChat, Priority: PriorityPrimary}}
}

func matchSingleMention(_ *Engine, ev *evaluation) bool { return len(ev.mentions) == 1 }

func decideSingleMention(_ *Engine, ev *evaluation) Decisions {
	return Decisions{{Persona: ev.mentions[0].Persona, Reason: ReasonTextMention, Priority: PriorityPrimary}}
}

func matchMultipleMentions(_ *Engine, ev *evaluation) bool { return len(ev.mentions) > 1 }

func decideMultipleMentions(e *Engine, ev *evaluation) Decisions {
	out := Decisions{{Persona: ev.mentions[0].Persona, Reason: ReasonFirstTextMention, Priority: PriorityPrimary}}
	if ev.rng.Float64() < e.settings.SecondaryResponseProbability {
		out = append(out, TargetDecision{Persona: ev.mentions[1].Persona, Reason: ReasonSecondTextMention, Priority: PrioritySecondary})
	}
	return out
}

func matchQuoteMentions(_ *Engine, ev *evaluation) bool { return len(ev.quote.PersonasInQuote) > 0 }

func decideQuoteMentions(e *Engine, ev *evaluation) Decisions {
	p := e.picker.Pick(ev.rng, ev.quote.PersonasInQuote)
	if p == nil {
		return nil
	}
	return Decisions{{Persona: p, Reason: ReasonQuoteMention, Priority: PriorityPrimary}}
}

func matchReplyToPersona(_ *Engine, ev *evaluation) bool {
	if !ev.quote.IsReplyToPersona {
		return false
	}
	_, ok := ev.reg.ByID(ev.quote.ReplyToPersonaID)
	return ok
}

func decideReplyToPersona(_ *Engine, ev *evaluation) Decisions {
	p, _ := ev.reg.ByID(ev.quote.ReplyToPersonaID)
	return Decisions{{Persona: p, Reason: ReasonReplyToPersona, Priority: PriorityPrimary}}
}

func matchAlways(*Engine, *evaluation) bool { return true }

func decideRandom(e *Engine, ev *evaluation) Decisions {
	if ev.rng.Float64() >= e.settings.RandomResponseProbability {
		return nil
	}
	p := e.picker.Pick(ev.rng, ev.reg.Personas())
	if p == nil {
		return nil
	}
	return Decisions{{Persona: p, Reason: ReasonRandomResponse, Priority: PriorityPrimary}}
}
