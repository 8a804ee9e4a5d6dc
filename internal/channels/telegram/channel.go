package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/botcrew/internal/channels"
	"github.com/nextlevelbuilder/botcrew/internal/config"
	"github.com/nextlevelbuilder/botcrew/internal/dispatch"
	"github.com/nextlevelbuilder/botcrew/internal/persona"
	"github.com/nextlevelbuilder/botcrew/internal/webhook"
)

// Backend posts a payload to a persona's answer backend.
type Backend interface {
	Send(ctx context.Context, p *persona.Persona, payload webhook.Payload) (*webhook.Response, error)
}

// sender is the part of the Bot API used to answer messages.
type sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendChatAction(ctx context.Context, params *telego.SendChatActionParams) error
}

// Deps are the collaborators shared by all persona channels.
type Deps struct {
	Store      *persona.Store
	Dispatcher *dispatch.Dispatcher
	Backend    Backend
}

// Channel is one persona's Telegram bot connection, using long polling.
type Channel struct {
	*channels.BaseChannel
	bot        *telego.Bot
	api        sender
	personaID  string
	botID      int64
	username   string
	config     config.TelegramConfig
	store      *persona.Store
	dispatcher *dispatch.Dispatcher
	backend    Backend

	inflight   sync.WaitGroup     // message handlers still running
	pollCancel context.CancelFunc // cancels the long polling context
	pollDone   chan struct{}      // closed when polling goroutine exits
}

// New creates the bot connection for persona p.
func New(p *persona.Persona, cfg config.TelegramConfig, deps Deps) (*Channel, error) {
	var opts []telego.BotOption

	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		opts = append(opts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			},
		}))
	}

	bot, err := telego.NewBot(p.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot for %s: %w", p.ID, err)
	}

	return &Channel{
		BaseChannel: channels.NewBaseChannel("telegram:" + p.ID),
		bot:         bot,
		api:         bot,
		personaID:   p.ID,
		config:      cfg,
		store:       deps.Store,
		dispatcher:  deps.Dispatcher,
		backend:     deps.Backend,
	}, nil
}

// PersonaID returns the id of the persona this bot speaks for.
func (c *Channel) PersonaID() string { return c.personaID }

// Start resolves the bot identity and begins long polling for updates.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting telegram bot (polling mode)", "persona", c.personaID)

	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("getMe for %s: %w", c.personaID, err)
	}
	c.botID = me.ID
	c.username = me.Username
	c.store.SetHandle(c.personaID, me.Username)

	// Create a cancellable context for the polling goroutine.
	// Stop() cancels this context to cleanly shut down long polling.
	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        c.config.PollTimeout(),
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	c.SetRunning(true)
	slog.Info("telegram bot connected", "persona", c.personaID, "username", me.Username, "bot_id", me.ID)

	go func() {
		if err := c.SyncMenuCommands(pollCtx, DefaultMenuCommands()); err != nil {
			slog.Warn("failed to sync telegram menu commands", "persona", c.personaID, "error", err)
		}
	}()

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("telegram updates channel closed", "persona", c.personaID)
					return
				}
				if update.Message == nil {
					slog.Debug("telegram update skipped (no message)", "persona", c.personaID, "update_id", update.UpdateID)
					continue
				}
				// Backend calls can take up to a minute; keep polling meanwhile.
				c.inflight.Add(1)
				go func(msg *telego.Message) {
					defer c.inflight.Done()
					c.handleMessage(pollCtx, msg)
				}(update.Message)
			}
		}
	}()

	return nil
}

// Stop cancels long polling and waits, bounded by ctx, for the polling
// goroutine and in-flight handlers to exit.
func (c *Channel) Stop(ctx context.Context) error {
	slog.Info("stopping telegram bot", "persona", c.personaID)
	c.SetRunning(false)

	if c.pollCancel != nil {
		c.pollCancel()
	}
	if c.pollDone == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		<-c.pollDone
		c.inflight.Wait()
		close(done)
	}()

	timeout := time.NewTimer(10 * time.Second)
	defer timeout.Stop()
	select {
	case <-done:
		slog.Info("telegram bot stopped", "persona", c.personaID)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop %s: %w", c.personaID, ctx.Err())
	case <-timeout.C:
		slog.Warn("telegram polling goroutine did not exit within timeout", "persona", c.personaID)
		return nil
	}
}

// telegramGeneralTopicID is the fixed topic ID for the "General" topic in forum supergroups.
const telegramGeneralTopicID = 1

// resolveThreadIDForSend returns the thread ID for Telegram send calls.
// General topic (1) must be omitted; Telegram rejects it with "thread not found".
func resolveThreadIDForSend(threadID int) int {
	if threadID == telegramGeneralTopicID {
		return 0
	}
	return threadID
}
