// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"go.mau.fi/util/exsync"

	"github.com/aiku/revcord/pkg/bridgecache"
	"github.com/aiku/revcord/pkg/database"
)

// State is the shared bridge state: the mapping mirror, the webhooks, the
// message correlations of each direction and the recently bridged channel
// events. Every field is safe for concurrent use.
type State struct {
	Mappings *database.Registry
	Webhooks *WebhookRegistry
	// DiscordCache correlates Discord messages with their Revolt copies.
	DiscordCache *bridgecache.MessageCache
	// RevoltCache correlates Revolt messages with their Discord copies.
	RevoltCache *bridgecache.MessageCache
	Events      *bridgecache.BridgedEvents
}

// NewState builds an empty state around store.
func NewState(store database.MappingStore, discord DiscordSession, cacheSize int, log zerolog.Logger) *State {
	return &State{
		Mappings:     database.NewRegistry(store, log),
		Webhooks:     NewWebhookRegistry(discord, log),
		DiscordCache: bridgecache.NewMessageCache(bridgecache.DiscordToRevolt, cacheSize),
		RevoltCache:  bridgecache.NewMessageCache(bridgecache.RevoltToDiscord, cacheSize),
		Events:       bridgecache.NewBridgedEvents(log),
	}
}

// Bridge mirrors events between one Discord bot and one Revolt bot.
type Bridge struct {
	Config  *Config
	Log     zerolog.Logger
	Discord DiscordSession
	Revolt  RevoltAPI
	*State

	router *Router

	// discordChannels is the bridge's own view of Discord channels, used
	// for name lookups and as the previous state on channel updates.
	discordChannels *exsync.Map[string, *discordgo.Channel]

	selfMu       sync.RWMutex
	discordSelf  string
	discordAppID string

	ctx      context.Context
	cancel   context.CancelFunc
	admin    *http.Server
	stopOnce sync.Once
}

// New creates a bridge. Start must be called before events are delivered.
func New(cfg *Config, discord DiscordSession, rev RevoltAPI, store database.MappingStore, log zerolog.Logger) *Bridge {
	b := &Bridge{
		Config:          cfg,
		Log:             log,
		Discord:         discord,
		Revolt:          rev,
		State:           NewState(store, discord, cfg.Bridge.MessageCacheSize, log),
		discordChannels: exsync.NewMap[string, *discordgo.Channel](),
		ctx:             context.Background(),
	}
	b.router = NewRouter(b, b, cfg.Bridge.QueueSize, log)
	return b
}

// Start loads the mappings, starts the event workers and, when configured,
// the admin API.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.Mappings.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load mappings: %w", err)
	}
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.router.Start(b.ctx)
	b.Log.Info().Int("mappings", len(b.Mappings.All())).Msg("Bridge started")

	if addr := b.Config.AdminAPIAddr; addr != "" {
		b.admin = &http.Server{
			Addr:         addr,
			Handler:      b.AdminHandler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			b.Log.Info().Str("addr", addr).Msg("Starting bridge admin API")
			if err := b.admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				b.Log.Error().Err(err).Msg("Bridge admin API error")
			}
		}()
	}
	return nil
}

// Stop stops the admin API and the event workers. Queued events that were
// not handled yet are dropped.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		if b.admin != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := b.admin.Shutdown(shutdownCtx); err != nil {
				b.Log.Warn().Err(err).Msg("Failed to stop admin API")
			}
			cancel()
		}
		if b.cancel != nil {
			b.cancel()
		}
		b.router.Stop()
		b.Log.Info().Msg("Bridge stopped")
	})
}

func (b *Bridge) enqueue(evt Event) {
	if err := b.router.Enqueue(evt); err != nil {
		b.Log.Debug().Err(err).Stringer("event_type", evt.Type()).Msg("Dropping event")
	}
}

// DiscordSelfID returns the bot's Discord user ID once ready.
func (b *Bridge) DiscordSelfID() string {
	b.selfMu.RLock()
	defer b.selfMu.RUnlock()
	return b.discordSelf
}

func (b *Bridge) discordApplicationID() string {
	b.selfMu.RLock()
	defer b.selfMu.RUnlock()
	return b.discordAppID
}

// waitForEcho waits the configured grace period, giving the other
// platform's worker time to record the channel event it just bridged.
func (b *Bridge) waitForEcho(ctx context.Context) error {
	d := b.Config.Bridge.EchoGracePeriod
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
