package telegram

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nextlevelbuilder/botcrew/internal/dispatch"
	"github.com/nextlevelbuilder/botcrew/internal/persona"
	"github.com/nextlevelbuilder/botcrew/internal/routing"
	"github.com/nextlevelbuilder/botcrew/internal/tracing"
	"github.com/nextlevelbuilder/botcrew/internal/webhook"
)

const (
	apologyText     = "Sorry, an error occurred while processing your request. Please try again later."
	cannotAnswer    = "Sorry, I can't answer right now. Please try again later."
	fileUnsupported = "I received your file, but I can't process files yet. Please send text messages."
)

// handleMessage processes one incoming Telegram message.
func (c *Channel) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.From == nil || isServiceMessage(msg) {
		return
	}
	if msg.From.ID == c.botID {
		return
	}

	if strings.HasPrefix(msg.Text, "/") {
		c.handleBotCommand(ctx, msg)
		return
	}

	in := toInbound(msg, c.botID)
	key := dispatch.KeyFor(msg.Chat.ID, msg.From.ID, msg.Date, in)
	res := c.dispatcher.Resolve(ctx, key, in)

	target, ok := res.Decisions.Find(c.personaID)
	if !ok {
		slog.Debug("message not addressed to persona",
			"persona", c.personaID, "chat_id", msg.Chat.ID, "rule", res.Rule)
		return
	}

	if isFileMessage(msg) {
		c.reply(ctx, msg, fileUnsupported, false)
		return
	}

	c.answer(ctx, msg, in, target, res.Quote)
}

// answer forwards a targeted message to the persona's backend and posts the reply.
func (c *Channel) answer(ctx context.Context, msg *telego.Message, in *routing.InboundMessage, target routing.TargetDecision, qc routing.QuoteContext) {
	ctx, span := tracing.Tracer().Start(ctx, "telegram.answer")
	defer span.End()

	p := target.Persona
	reg := c.dispatcher.Registry()
	mention := c.dispatcher.Engine().Matcher().DetectName(in.Text, in.Entities, p, reg.Handle(p.ID))

	span.SetAttributes(
		attribute.String("persona.id", p.ID),
		attribute.String("routing.reason", string(target.Reason)),
		attribute.Int("routing.priority", target.Priority),
	)

	c.sendTyping(ctx, msg.Chat.ID, forumThreadID(msg))

	payload := webhook.BuildPayload(p, webhookMessage(msg), qc, mention)
	resp, err := c.backend.Send(ctx, p, payload)
	if err != nil {
		slog.Error("webhook call failed",
			"persona", p.ID, "chat_id", msg.Chat.ID, "priority", target.Priority, "error", err)
		// Secondary responders stay silent so one failure yields one apology.
		if target.Priority == routing.PriorityPrimary {
			c.reply(ctx, msg, apologyText, false)
		}
		return
	}

	text := resp.Reply()
	if text == "" {
		slog.Warn("webhook returned no answer", "persona", p.ID, "endpoint", resp.Endpoint)
		text = cannotAnswer
	}
	c.reply(ctx, msg, text, true)
}

// reply answers msg in its chat. Quiet replies go out without a
// notification and stay in the message's forum topic.
func (c *Channel) reply(ctx context.Context, msg *telego.Message, text string, quiet bool) {
	threadID := resolveThreadIDForSend(forumThreadID(msg))
	for i, chunk := range chunkText(text, maxMessageLen) {
		params := tu.Message(tu.ID(msg.Chat.ID), chunk)
		if i == 0 {
			params.ReplyParameters = &telego.ReplyParameters{
				MessageID:                msg.MessageID,
				AllowSendingWithoutReply: true,
			}
		}
		if quiet {
			params.DisableNotification = true
			if threadID > 0 {
				params.MessageThreadID = threadID
			}
		}
		if _, err := c.api.SendMessage(ctx, params); err != nil {
			slog.Error("failed to send telegram reply",
				"persona", c.personaID, "chat_id", msg.Chat.ID, "error", err)
			return
		}
	}
}

func (c *Channel) sendTyping(ctx context.Context, chatID int64, threadID int) {
	action := tu.ChatAction(tu.ID(chatID), telego.ChatActionTyping)
	if sendThreadID := resolveThreadIDForSend(threadID); sendThreadID > 0 {
		action.MessageThreadID = sendThreadID
	}
	if err := c.api.SendChatAction(ctx, action); err != nil {
		slog.Debug("typing indicator failed", "persona", c.personaID, "chat_id", chatID, "error", err)
	}
}

// personaFor returns the current definition of this channel's persona.
func (c *Channel) personaFor(reg *persona.Registry) *persona.Persona {
	p, _ := reg.ByID(c.personaID)
	return p
}
