package routing

import (
	"fmt"
	"strconv"

	"github.com/mattn/go-runewidth"

	"github.com/nextlevelbuilder/botcrew/internal/persona"
)

// maxQuoteWidth caps quoted text in FormatQuote.
const maxQuoteWidth = 100

// ResolveQuote derives the QuoteContext of msg. Messages that are not
// replies get the zero context.
func (m Matcher) ResolveQuote(msg *InboundMessage, reg *persona.Registry) QuoteContext {
	var qc QuoteContext
	if msg == nil || msg.Quoted == nil {
		return qc
	}
	quoted := msg.Quoted
	qc.HasQuotedMessage = true

	if quoted.AuthorIsBot && quoted.AuthorID != 0 {
		if p, ok := reg.ByCredentialPrefix(strconv.FormatInt(quoted.AuthorID, 10)); ok {
			qc.IsReplyToPersona = true
			qc.ReplyToPersonaID = p.ID
		}
	}

	if quoted.Text != "" {
		qc.QuotedText = quoted.Text
		qc.QuotedAuthor = quoted.AuthorName
		if qc.QuotedAuthor == "" {
			qc.QuotedAuthor = "unknown"
		}
		qc.PersonasInQuote = m.PersonasMentionedIn(quoted.Text, reg)
	}
	return qc
}

// FormatQuote renders a quote as `author: "text"`, truncating long text.
func FormatQuote(text, author string) string {
	if text == "" {
		return ""
	}
	return fmt.Sprintf("%s: \"%s\"", author, runewidth.Truncate(text, maxQuoteWidth, "..."))
}
