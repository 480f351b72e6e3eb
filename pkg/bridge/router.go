// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultQueueSize is the number of pending events per platform.
const DefaultQueueSize = 256

// ErrRouterStopped is returned by Enqueue once the router is stopped.
var ErrRouterStopped = errors.New("event router stopped")

// Router delivers events to their handler. Each platform has its own FIFO
// queue and worker, so events of one platform are handled in the order they
// were received while the two platforms progress independently.
type Router struct {
	log     zerolog.Logger
	discord DiscordEventHandler
	revolt  RevoltEventHandler

	discordQueue chan Event
	revoltQueue  chan Event

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

func NewRouter(discord DiscordEventHandler, revolt RevoltEventHandler, queueSize int, log zerolog.Logger) *Router {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Router{
		log:          log.With().Str("component", "router").Logger(),
		discord:      discord,
		revolt:       revolt,
		discordQueue: make(chan Event, queueSize),
		revoltQueue:  make(chan Event, queueSize),
		stopChan:     make(chan struct{}),
	}
}

// Start launches one worker per platform. Workers exit when ctx is done or
// Stop is called.
func (r *Router) Start(ctx context.Context) {
	r.wg.Add(2)
	go r.worker(ctx, SideDiscord, r.discordQueue)
	go r.worker(ctx, SideRevolt, r.revoltQueue)
}

// Stop makes the workers exit after their current event and waits for them.
func (r *Router) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}

// Enqueue queues evt on its platform's queue, blocking while the queue is
// full.
func (r *Router) Enqueue(evt Event) error {
	queue := r.discordQueue
	if evt.Origin() == SideRevolt {
		queue = r.revoltQueue
	}
	select {
	case <-r.stopChan:
		return ErrRouterStopped
	default:
	}
	select {
	case queue <- evt:
		return nil
	case <-r.stopChan:
		return ErrRouterStopped
	}
}

func (r *Router) worker(ctx context.Context, side Side, queue <-chan Event) {
	defer r.wg.Done()
	log := r.log.With().Str("side", side.String()).Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case evt := <-queue:
			r.handle(ctx, log, evt)
		}
	}
}

func (r *Router) handle(ctx context.Context, log zerolog.Logger, evt Event) {
	if ce, ok := evt.(channelEvent); ok {
		if kind := ce.channelKind(); kind != ChannelKindUnknown && !kind.CanBridge() {
			log.Trace().
				Stringer("event_type", evt.Type()).
				Stringer("channel_kind", kind).
				Msg("Ignoring event for channel that cannot be bridged")
			return
		}
	}
	if err := r.dispatch(ctx, evt); err != nil {
		log.Error().Err(err).
			Stringer("event_type", evt.Type()).
			Msg("Failed to mirror event")
	}
}

// dispatch calls the handler of evt. A handler error or panic is returned
// as an error; an unknown variant is a bug in the router and panics.
func (r *Router) dispatch(ctx context.Context, evt Event) error {
	switch e := evt.(type) {
	case *DiscordMessageCreate:
		return safely(func() error { return r.discord.HandleDiscordMessageCreate(ctx, e) })
	case *DiscordMessageUpdate:
		return safely(func() error { return r.discord.HandleDiscordMessageUpdate(ctx, e) })
	case *DiscordMessageDelete:
		return safely(func() error { return r.discord.HandleDiscordMessageDelete(ctx, e) })
	case *DiscordChannelCreate:
		return safely(func() error { return r.discord.HandleDiscordChannelCreate(ctx, e) })
	case *DiscordChannelUpdate:
		return safely(func() error { return r.discord.HandleDiscordChannelUpdate(ctx, e) })
	case *DiscordChannelDelete:
		return safely(func() error { return r.discord.HandleDiscordChannelDelete(ctx, e) })
	case *RevoltMessageCreate:
		return safely(func() error { return r.revolt.HandleRevoltMessageCreate(ctx, e) })
	case *RevoltMessageUpdate:
		return safely(func() error { return r.revolt.HandleRevoltMessageUpdate(ctx, e) })
	case *RevoltMessageDelete:
		return safely(func() error { return r.revolt.HandleRevoltMessageDelete(ctx, e) })
	case *RevoltChannelCreate:
		return safely(func() error { return r.revolt.HandleRevoltChannelCreate(ctx, e) })
	case *RevoltChannelUpdate:
		return safely(func() error { return r.revolt.HandleRevoltChannelUpdate(ctx, e) })
	case *RevoltChannelDelete:
		return safely(func() error { return r.revolt.HandleRevoltChannelDelete(ctx, e) })
	default:
		panic(fmt.Sprintf("bridge: no handler for event %T", evt))
	}
}

func safely(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v\n%s", p, debug.Stack())
		}
	}()
	return fn()
}
