package telegram

import (
	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/botcrew/internal/routing"
	"github.com/nextlevelbuilder/botcrew/internal/webhook"
)

// isGroupChat reports whether the chat is a basic group or supergroup.
func isGroupChat(chat telego.Chat) bool {
	return chat.Type == "group" || chat.Type == "supergroup"
}

// chatKind maps Telegram chat types onto routing kinds. Channels count as
// groups: several personas may read them.
func chatKind(chat telego.Chat) routing.ChatKind {
	if chat.Type == "private" {
		return routing.ChatPrivate
	}
	return routing.ChatGroup
}

// routingText returns the text the router reads: the message text, or the
// caption of a media message.
func routingText(msg *telego.Message) (string, []telego.MessageEntity) {
	if msg.Text != "" {
		return msg.Text, msg.Entities
	}
	return msg.Caption, msg.CaptionEntities
}

// toInbound converts a Telegram message as received by the bot with id
// receiverID.
func toInbound(msg *telego.Message, receiverID int64) *routing.InboundMessage {
	text, entities := routingText(msg)
	in := &routing.InboundMessage{
		Text:       text,
		Kind:       chatKind(msg.Chat),
		Entities:   toEntities(entities),
		ReceiverID: receiverID,
	}
	if reply := msg.ReplyToMessage; reply != nil {
		q := &routing.QuotedMessage{Text: reply.Text}
		if reply.From != nil {
			q.AuthorID = reply.From.ID
			q.AuthorIsBot = reply.From.IsBot
			q.AuthorName = displayName(reply.From)
		}
		in.Quoted = q
	}
	return in
}

func toEntities(entities []telego.MessageEntity) []routing.Entity {
	if len(entities) == 0 {
		return nil
	}
	out := make([]routing.Entity, 0, len(entities))
	for _, e := range entities {
		out = append(out, routing.Entity{Offset: e.Offset, Length: e.Length, Kind: e.Type})
	}
	return out
}

// displayName prefers the username, then the first name.
func displayName(u *telego.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// forumThreadID returns the topic of a forum message, or 0 outside forums.
// In non-forum groups message_thread_id is reply context, not a topic.
func forumThreadID(msg *telego.Message) int {
	if !isGroupChat(msg.Chat) || !msg.Chat.IsForum {
		return 0
	}
	if msg.MessageThreadID == 0 {
		return telegramGeneralTopicID
	}
	return msg.MessageThreadID
}

// webhookMessage extracts the transport-neutral message fields.
func webhookMessage(msg *telego.Message) webhook.Message {
	text, _ := routingText(msg)
	out := webhook.Message{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		ThreadID:  msg.MessageThreadID,
		Text:      text,
	}
	if msg.From != nil {
		out.UserID = msg.From.ID
		out.Username = displayName(msg.From)
	}
	return out
}

// isFileMessage reports whether the message carries a document or photo.
func isFileMessage(msg *telego.Message) bool {
	return msg.Document != nil || len(msg.Photo) > 0
}

// isServiceMessage returns true if the Telegram message is a service/system message
// (member added/removed, title changed, pinned, etc.) rather than a user-sent message.
func isServiceMessage(msg *telego.Message) bool {
	if msg.Text != "" || msg.Caption != "" {
		return false
	}
	if msg.Photo != nil || msg.Audio != nil || msg.Video != nil ||
		msg.Document != nil || msg.Voice != nil || msg.VideoNote != nil ||
		msg.Sticker != nil || msg.Animation != nil || msg.Contact != nil ||
		msg.Location != nil || msg.Venue != nil || msg.Poll != nil {
		return false
	}
	return true
}
