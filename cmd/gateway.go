package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/nextlevelbuilder/botcrew/internal/channels"
	"github.com/nextlevelbuilder/botcrew/internal/channels/telegram"
	"github.com/nextlevelbuilder/botcrew/internal/config"
	"github.com/nextlevelbuilder/botcrew/internal/dispatch"
	"github.com/nextlevelbuilder/botcrew/internal/persona"
	"github.com/nextlevelbuilder/botcrew/internal/routing"
	"github.com/nextlevelbuilder/botcrew/internal/tracing"
	"github.com/nextlevelbuilder/botcrew/internal/webhook"
)

const shutdownBudget = 10 * time.Second

// errNoPersonas aborts startup when the personas dir yields nothing to run.
var errNoPersonas = errors.New("no valid persona definitions found")

func runGateway() error {
	setupLogging()

	// Load config
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Telemetry, Version)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	personasDir := cfg.PersonasDir()
	personas, err := persona.LoadDir(personasDir)
	if err != nil {
		return fmt.Errorf("load personas: %w", err)
	}
	if len(personas) == 0 {
		slog.Error("no personas to run", "dir", personasDir)
		return errNoPersonas
	}
	if err := persona.EnsureTempDirs(personas); err != nil {
		return err
	}

	store := persona.NewStore(personas)

	// Persona directory watcher: edits to names and probabilities apply
	// without a restart. New personas need a restart to get a bot.
	if cfg.Personas.Watch {
		if w, err := persona.NewWatcher(personasDir, store, cfg.PersonaDebounce()); err != nil {
			slog.Warn("persona watcher unavailable", "error", err)
		} else if err := w.Start(ctx); err != nil {
			slog.Warn("persona watcher start failed", "error", err)
			w.Stop()
		} else {
			defer w.Stop()
		}
	}

	engine := routing.NewEngine(cfg.RoutingSettings())
	dispatcher := dispatch.New(engine, store, dispatch.WithTTL(cfg.Telegram.DecisionTTL()))
	backend := webhook.NewClient(cfg.Webhook)

	channelMgr := channels.NewManager()
	deps := telegram.Deps{Store: store, Dispatcher: dispatcher, Backend: backend}
	channelPersona := make(map[string]string, len(personas))
	for _, p := range personas {
		ch, err := telegram.New(p, cfg.Telegram, deps)
		if err != nil {
			slog.Error("failed to create persona bot", "persona", p.ID, "error", err)
			continue
		}
		channelMgr.RegisterChannel(ch.Name(), ch)
		channelPersona[ch.Name()] = p.ID
	}

	if err := channelMgr.StartAll(ctx); err != nil {
		slog.Error("failed to start channels", "error", err)
		return err
	}

	// Only personas with a running bot may be picked; a decision naming
	// one without a bot would leave the message unanswered.
	store.Retain(runningPersonas(channelMgr, channelPersona))

	slog.Info("botcrew gateway started",
		"version", Version,
		"config", cfgPath,
		"config_hash", cfg.Hash(),
		"personas", store.Snapshot().Len(),
		"channels", channelMgr.GetEnabledChannels(),
	)

	<-ctx.Done()
	slog.Info("graceful shutdown initiated")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownBudget)
	defer cancel()
	if err := channelMgr.StopAll(stopCtx); err != nil {
		slog.Warn("channels did not stop cleanly", "error", err)
	}
	slog.Info("botcrew gateway stopped")
	return nil
}

// runningPersonas maps the manager's running channels back to persona ids.
func runningPersonas(mgr *channels.Manager, channelPersona map[string]string) []string {
	var ids []string
	for name, running := range mgr.GetStatus() {
		if id, ok := channelPersona[name]; ok && running {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
