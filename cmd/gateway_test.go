package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/nextlevelbuilder/botcrew/internal/channels"
	"github.com/nextlevelbuilder/botcrew/internal/persona"
)

type stubChannel struct {
	*channels.BaseChannel
	startErr error
}

func (s *stubChannel) Start(context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.SetRunning(true)
	return nil
}

func (s *stubChannel) Stop(context.Context) error {
	s.SetRunning(false)
	return nil
}

func TestRunningPersonas_SkipsFailedBots(t *testing.T) {
	mgr := channels.NewManager()
	mgr.RegisterChannel("telegram:siphon", &stubChannel{BaseChannel: channels.NewBaseChannel("telegram:siphon")})
	mgr.RegisterChannel("telegram:alpha", &stubChannel{
		BaseChannel: channels.NewBaseChannel("telegram:alpha"),
		startErr:    errors.New("401 Unauthorized"),
	})
	if err := mgr.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	defer mgr.StopAll(context.Background())

	ids := runningPersonas(mgr, map[string]string{
		"telegram:siphon": "siphon",
		"telegram:alpha":  "alpha",
	})
	if len(ids) != 1 || ids[0] != "siphon" {
		t.Fatalf("running = %v, want [siphon]", ids)
	}

	store := persona.NewStore([]*persona.Persona{
		{ID: "siphon", Token: "111:AAA", WebhookURL: "http://h"},
		{ID: "alpha", Token: "222:BBB", WebhookURL: "http://h"},
	})
	store.Retain(ids)
	if _, ok := store.Snapshot().ByID("alpha"); ok {
		t.Error("persona without a running bot is still routable")
	}
	if store.Snapshot().Len() != 1 {
		t.Errorf("registry size = %d, want 1", store.Snapshot().Len())
	}
}
