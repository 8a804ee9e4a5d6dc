package channels

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Manager manages all registered channels and their lifecycle.
type Manager struct {
	channels map[string]Channel
	mu       sync.RWMutex
}

// NewManager creates a new channel manager.
// Channels are registered externally via RegisterChannel.
func NewManager() *Manager {
	return &Manager{channels: make(map[string]Channel)}
}

// StartAll starts all registered channels concurrently. A channel that
// fails to start is logged and skipped; StartAll errors only when no
// channel could start.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.channels) == 0 {
		slog.Warn("no channels enabled")
		return nil
	}

	slog.Info("starting all channels", "count", len(m.channels))

	var g errgroup.Group
	var started sync.Map
	for name, channel := range m.channels {
		g.Go(func() error {
			slog.Info("starting channel", "channel", name)
			if err := channel.Start(ctx); err != nil {
				slog.Error("failed to start channel", "channel", name, "error", err)
				return nil
			}
			started.Store(name, true)
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	started.Range(func(any, any) bool { n++; return true })
	if n == 0 {
		return fmt.Errorf("none of %d channels started", len(m.channels))
	}

	slog.Info("all channels started", "running", n, "total", len(m.channels))
	return nil
}

// StopAll gracefully stops all channels concurrently within ctx.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	slog.Info("stopping all channels")

	g, ctx := errgroup.WithContext(ctx)
	for name, channel := range m.channels {
		g.Go(func() error {
			slog.Info("stopping channel", "channel", name)
			if err := channel.Stop(ctx); err != nil {
				slog.Error("error stopping channel", "channel", name, "error", err)
				return fmt.Errorf("stop %s: %w", name, err)
			}
			return nil
		})
	}
	err := g.Wait()

	slog.Info("all channels stopped")
	return err
}

// GetChannel returns a channel by name.
func (m *Manager) GetChannel(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	channel, ok := m.channels[name]
	return channel, ok
}

// GetStatus returns the running status of all channels.
func (m *Manager) GetStatus() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]bool, len(m.channels))
	for name, channel := range m.channels {
		status[name] = channel.IsRunning()
	}
	return status
}

// GetEnabledChannels returns the sorted names of all registered channels.
func (m *Manager) GetEnabledChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RegisterChannel adds a channel to the manager.
func (m *Manager) RegisterChannel(name string, channel Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[name] = channel
}

// UnregisterChannel removes a channel from the manager.
func (m *Manager) UnregisterChannel(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, name)
}
