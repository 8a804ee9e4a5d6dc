package telegram

import (
	"context"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text, cmd, handle string
	}{
		{"/start", "/start", ""},
		{"/HELP extra words", "/help", ""},
		{"/help@siphon_bot", "/help", "siphon_bot"},
		{"/start@Alpha_Bot now", "/start", "Alpha_Bot"},
		{"hello", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, handle := parseCommand(tt.text)
			if cmd != tt.cmd || handle != tt.handle {
				t.Errorf("parseCommand(%q) = %q, %q", tt.text, cmd, handle)
			}
		})
	}
}

func TestHandleBotCommand_Private(t *testing.T) {
	f := newFixture(t, 0.99)
	f.siphon.handleMessage(context.Background(), privateMessage("/start"))

	sent := sentBy(f.siphon)
	if len(sent) != 1 || sent[0].Text != "Hi! I'm Siphon. How can I help?" {
		t.Fatalf("sent = %+v", sent)
	}
	if len(f.backend.calls()) != 0 {
		t.Error("commands are not forwarded to the backend")
	}
}

func TestHandleBotCommand_GroupNeedsHandle(t *testing.T) {
	f := newFixture(t, 0.99)

	f.siphon.handleMessage(context.Background(), groupMessage("/help"))
	f.siphon.handleMessage(context.Background(), groupMessage("/help@alpha_bot"))
	if n := len(sentBy(f.siphon)); n != 0 {
		t.Fatalf("siphon answered %d commands not addressed to it", n)
	}

	f.alpha.handleMessage(context.Background(), groupMessage("/help@ALPHA_BOT"))
	sent := sentBy(f.alpha)
	if len(sent) != 1 || !strings.HasPrefix(sent[0].Text, "I'm Alpha.") {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestHandleBotCommand_UnknownIgnored(t *testing.T) {
	f := newFixture(t, 0.99)
	f.siphon.handleMessage(context.Background(), privateMessage("/reset"))
	if n := len(sentBy(f.siphon)); n != 0 {
		t.Errorf("sent %d messages, want 0", n)
	}
}

func TestDefaultMenuCommands(t *testing.T) {
	cmds := DefaultMenuCommands()
	if len(cmds) != 2 || cmds[0].Command != "start" || cmds[1].Command != "help" {
		t.Errorf("commands = %+v", cmds)
	}
}
