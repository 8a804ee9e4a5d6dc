// Package webhook talks to the per-persona answer backends (n8n-style
// workflows). Each request carries the message, the quote context, and how
// the persona was addressed; the backend replies with the answer text.
package webhook

import (
	"strconv"

	"github.com/nextlevelbuilder/botcrew/internal/persona"
	"github.com/nextlevelbuilder/botcrew/internal/routing"
)

// Payload is the JSON body posted to a backend. Field names are part of
// the backend contract and must not change.
type Payload struct {
	WebhookURL           string `json:"webhookUrl"`
	TestWebhookURL       string `json:"testWebhookUrl,omitempty"`
	ProductionWebhookURL string `json:"productionWebhookUrl,omitempty"`
	SessionID            string `json:"sessionId"`
	MessageID            string `json:"messageId"`
	UserID               string `json:"userId"`
	Username             string `json:"username"`
	ChatInput            string `json:"chatInput"`
	Source               string `json:"source"`
	ChatID               int64  `json:"chatId"`
	ThreadID             int    `json:"threadId,omitempty"`
	BotID                string `json:"botId"`
	BotName              string `json:"botName"`

	IsQuoting      bool   `json:"is_quoting"`
	QuotedText     string `json:"quoted_text"`
	QuotedUsername string `json:"quoted_username"`

	QuoteInfo   QuoteInfo   `json:"quoteInfo"`
	BotNameInfo BotNameInfo `json:"botNameInfo"`
}

// QuoteInfo repeats the quote fields under their older names.
type QuoteInfo struct {
	HasQuotedMessage bool   `json:"hasQuotedMessage"`
	IsReplyToBot     bool   `json:"isReplyToBot"`
	QuotedMessage    string `json:"quotedMessage"`
	QuotedUsername   string `json:"quotedUsername"`
}

// BotNameInfo tells the backend how its persona was addressed.
type BotNameInfo struct {
	Mentioned bool   `json:"mentioned"`
	NameFound string `json:"nameFound"`
	Method    string `json:"method"`
}

// Message is the transport-neutral part of an inbound chat message.
type Message struct {
	ChatID    int64
	MessageID int
	ThreadID  int
	UserID    int64
	Username  string
	Text      string
}

// BuildPayload assembles the request body for persona p.
func BuildPayload(p *persona.Persona, msg Message, qc routing.QuoteContext, mention routing.MentionResult) Payload {
	return Payload{
		WebhookURL:           p.WebhookURL,
		TestWebhookURL:       p.TestWebhookURL,
		ProductionWebhookURL: p.ProductionWebhookURL,
		SessionID:            strconv.FormatInt(msg.ChatID, 10),
		MessageID:            strconv.Itoa(msg.MessageID),
		UserID:               strconv.FormatInt(msg.UserID, 10),
		Username:             msg.Username,
		ChatInput:            msg.Text,
		Source:               "telegram",
		ChatID:               msg.ChatID,
		ThreadID:             msg.ThreadID,
		BotID:                p.ID,
		BotName:              p.Name,

		IsQuoting:      qc.HasQuotedMessage,
		QuotedText:     qc.QuotedText,
		QuotedUsername: qc.QuotedAuthor,

		QuoteInfo: QuoteInfo{
			HasQuotedMessage: qc.HasQuotedMessage,
			IsReplyToBot:     qc.IsReplyToPersona,
			QuotedMessage:    qc.QuotedText,
			QuotedUsername:   qc.QuotedAuthor,
		},
		BotNameInfo: BotNameInfo{
			Mentioned: mention.Mentioned,
			NameFound: mention.NameFound,
			Method:    string(mention.Method),
		},
	}
}
