package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// parseCommand splits "/cmd@handle args" into the lowercased command and
// the addressed handle ("" when the command is bare).
func parseCommand(text string) (cmd, handle string) {
	if len(text) == 0 || text[0] != '/' {
		return "", ""
	}
	cmd = strings.Fields(text)[0]
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd, handle = cmd[:at], cmd[at+1:]
	}
	return strings.ToLower(cmd), handle
}

// addressedToMe reports whether a command is meant for this bot. Bare
// commands in groups reach every bot, so only private chats answer them.
func (c *Channel) addressedToMe(msg *telego.Message, handle string) bool {
	if handle != "" {
		return strings.EqualFold(handle, c.username)
	}
	return msg.Chat.Type == "private"
}

// handleBotCommand answers /start and /help. Other commands are ignored.
// Returns true if the message was answered.
func (c *Channel) handleBotCommand(ctx context.Context, msg *telego.Message) bool {
	cmd, handle := parseCommand(msg.Text)
	if !c.addressedToMe(msg, handle) {
		return false
	}

	p := c.personaFor(c.dispatcher.Registry())
	if p == nil {
		return false
	}

	var text string
	switch cmd {
	case "/start":
		text = fmt.Sprintf("Hi! I'm %s. How can I help?", p.DisplayName())
	case "/help":
		text = fmt.Sprintf("I'm %s. I can answer your questions and help out. "+
			"Just mention me by name or reply to my messages.", p.DisplayName())
	default:
		slog.Debug("telegram command ignored", "persona", c.personaID, "command", cmd)
		return false
	}

	out := tu.Message(tu.ID(msg.Chat.ID), text)
	if sendThreadID := resolveThreadIDForSend(forumThreadID(msg)); sendThreadID > 0 {
		out.MessageThreadID = sendThreadID
	}
	if _, err := c.api.SendMessage(ctx, out); err != nil {
		slog.Error("failed to answer command", "persona", c.personaID, "command", cmd, "error", err)
	}
	return true
}

// SyncMenuCommands registers bot commands with Telegram via setMyCommands.
func (c *Channel) SyncMenuCommands(ctx context.Context, commands []telego.BotCommand) error {
	if err := c.bot.DeleteMyCommands(ctx, nil); err != nil {
		slog.Debug("deleteMyCommands failed (may not exist)", "error", err)
	}

	if len(commands) == 0 {
		return nil
	}

	if len(commands) > 100 {
		commands = commands[:100]
	}

	return c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: commands,
	})
}

// DefaultMenuCommands returns the default bot menu commands.
func DefaultMenuCommands() []telego.BotCommand {
	return []telego.BotCommand{
		{Command: "start", Description: "Start chatting with the bot"},
		{Command: "help", Description: "Show what this bot can do"},
	}
}
