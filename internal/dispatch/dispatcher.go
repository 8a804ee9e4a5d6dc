// Package dispatch shares one routing decision between all persona bots.
//
// Every bot in a group receives its own copy of each message. Resolving
// independently would roll the random rules once per bot and could make two
// personas answer, or none. The Dispatcher resolves a message the first
// time any bot asks and hands the cached result to the others.
package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nextlevelbuilder/botcrew/internal/persona"
	"github.com/nextlevelbuilder/botcrew/internal/routing"
	"github.com/nextlevelbuilder/botcrew/internal/tracing"
)

const (
	// maxTrackedMessages caps the decision cache so a flood of messages
	// cannot grow it without bound.
	maxTrackedMessages = 4096

	defaultTTL = 2 * time.Minute
)

// Key identifies one chat message across bot connections. Message ids are
// not used: in basic groups each bot sees a different id for the same
// message.
type Key struct {
	ChatID   int64
	SenderID int64
	Date     int64
	// Receiver is set for private chats only, where every bot has its own
	// conversation with the sender.
	Receiver int64
	Digest   uint64
}

// KeyFor builds the cache key of a message.
func KeyFor(chatID, senderID, date int64, msg *routing.InboundMessage) Key {
	k := Key{ChatID: chatID, SenderID: senderID, Date: date}
	if msg == nil {
		return k
	}
	if msg.IsPrivate() {
		k.Receiver = msg.ReceiverID
	}
	sum := sha256.Sum256([]byte(msg.Text))
	k.Digest = binary.BigEndian.Uint64(sum[:8])
	return k
}

type entry struct {
	created time.Time
	res     routing.Resolution
}

// Dispatcher resolves each message once and caches the outcome for a TTL.
// Safe for concurrent use.
type Dispatcher struct {
	engine *routing.Engine
	store  *persona.Store
	rng    routing.Rand
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[Key]*entry
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithRand injects the randomness source.
func WithRand(rng routing.Rand) Option {
	return func(d *Dispatcher) { d.rng = rng }
}

// WithTTL sets how long a decision is shared.
func WithTTL(ttl time.Duration) Option {
	return func(d *Dispatcher) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a dispatcher over the personas published in store.
func New(engine *routing.Engine, store *persona.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		engine:  engine,
		store:   store,
		rng:     routing.DefaultRand,
		ttl:     defaultTTL,
		now:     time.Now,
		entries: make(map[Key]*entry),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Engine returns the routing engine.
func (d *Dispatcher) Engine() *routing.Engine { return d.engine }

// Registry returns the current persona snapshot.
func (d *Dispatcher) Registry() *persona.Registry { return d.store.Snapshot() }

// Resolve returns the routing outcome for msg, computing it on first use
// of key and replaying it for later callers within the TTL.
func (d *Dispatcher) Resolve(ctx context.Context, key Key, msg *routing.InboundMessage) routing.Resolution {
	_, span := tracing.Tracer().Start(ctx, "routing.resolve")
	defer span.End()

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if e, ok := d.entries[key]; ok && now.Sub(e.created) < d.ttl {
		span.SetAttributes(attribute.Bool("routing.cached", true), attribute.String("routing.rule", e.res.Rule))
		return e.res
	}

	d.pruneLocked(now)

	res := d.engine.Explain(msg, d.store.Snapshot(), d.rng)
	d.entries[key] = &entry{created: now, res: res}

	span.SetAttributes(
		attribute.Bool("routing.cached", false),
		attribute.String("routing.rule", res.Rule),
		attribute.Int("routing.targets", len(res.Decisions)),
	)
	if primary, ok := res.Decisions.Primary(); ok {
		slog.Info("message routed",
			"chat", key.ChatID,
			"rule", res.Rule,
			"primary", primary.Persona.ID,
			"reason", primary.Reason,
			"targets", len(res.Decisions),
		)
	} else {
		slog.Debug("message routed to nobody", "chat", key.ChatID, "rule", res.Rule)
	}
	return res
}

// pruneLocked drops expired entries once the cache reaches its cap, then
// evicts arbitrary entries if it is still full.
func (d *Dispatcher) pruneLocked(now time.Time) {
	if len(d.entries) < maxTrackedMessages {
		return
	}
	for k, e := range d.entries {
		if now.Sub(e.created) >= d.ttl {
			delete(d.entries, k)
		}
	}
	for len(d.entries) >= maxTrackedMessages {
		for k := range d.entries {
			delete(d.entries, k)
			break
		}
	}
}

// Len returns the number of cached decisions.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
