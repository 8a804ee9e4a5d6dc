package telegram

import (
	"context"
	"sync"
	"testing"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/botcrew/internal/channels"
	"github.com/nextlevelbuilder/botcrew/internal/dispatch"
	"github.com/nextlevelbuilder/botcrew/internal/persona"
	"github.com/nextlevelbuilder/botcrew/internal/routing"
	"github.com/nextlevelbuilder/botcrew/internal/webhook"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []*telego.SendMessageParams
	actions []*telego.SendChatActionParams
}

func (f *fakeSender) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, params)
	return &telego.Message{}, nil
}

func (f *fakeSender) SendChatAction(_ context.Context, params *telego.SendChatActionParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, params)
	return nil
}

func (f *fakeSender) messages() []*telego.SendMessageParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*telego.SendMessageParams(nil), f.sent...)
}

type fakeBackend struct {
	mu       sync.Mutex
	answer   string
	err      error
	payloads []webhook.Payload
}

func (f *fakeBackend) Send(_ context.Context, _ *persona.Persona, payload webhook.Payload) (*webhook.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	if f.err != nil {
		return nil, f.err
	}
	return &webhook.Response{Answer: f.answer, Endpoint: payload.WebhookURL}, nil
}

func (f *fakeBackend) calls() []webhook.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]webhook.Payload(nil), f.payloads...)
}

// fixedRand always draws the same value.
type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

// fixture wires two persona channels to one dispatcher and backend.
type fixture struct {
	store   *persona.Store
	backend *fakeBackend
	siphon  *Channel
	alpha   *Channel
}

func newFixture(t *testing.T, draw float64) *fixture {
	t.Helper()
	siphon := &persona.Persona{
		ID: "siphon", Name: "Siphon", Token: "111:AAA",
		WebhookURL: "http://backend/siphon", NameVariations: []string{"Siphon", "Сифон"},
	}
	alpha := &persona.Persona{
		ID: "alpha", Name: "Alpha", Token: "222:BBB",
		WebhookURL: "http://backend/alpha", NameVariations: []string{"Alpha"},
	}
	store := persona.NewStore([]*persona.Persona{siphon, alpha})
	store.SetHandle("siphon", "siphon_bot")
	store.SetHandle("alpha", "alpha_bot")

	d := dispatch.New(routing.NewEngine(routing.DefaultSettings()), store, dispatch.WithRand(fixedRand(draw)))
	backend := &fakeBackend{answer: "hello there"}

	mk := func(p *persona.Persona, botID int64, username string) *Channel {
		return &Channel{
			BaseChannel: channels.NewBaseChannel("telegram:" + p.ID),
			api:         &fakeSender{},
			personaID:   p.ID,
			botID:       botID,
			username:    username,
			store:       store,
			dispatcher:  d,
			backend:     backend,
		}
	}
	return &fixture{
		store:   store,
		backend: backend,
		siphon:  mk(siphon, 111, "siphon_bot"),
		alpha:   mk(alpha, 222, "alpha_bot"),
	}
}

func sentBy(c *Channel) []*telego.SendMessageParams {
	return c.api.(*fakeSender).messages()
}

func user() *telego.User {
	return &telego.User{ID: 42, FirstName: "Olena", Username: "olena"}
}

func groupMessage(text string) *telego.Message {
	return &telego.Message{
		MessageID: 10,
		Date:      1700000000,
		Chat:      telego.Chat{ID: -100, Type: "supergroup"},
		From:      user(),
		Text:      text,
	}
}

func privateMessage(text string) *telego.Message {
	return &telego.Message{
		MessageID: 5,
		Date:      1700000000,
		Chat:      telego.Chat{ID: 42, Type: "private"},
		From:      user(),
		Text:      text,
	}
}
