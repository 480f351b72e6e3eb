// Copyright 2024-2026 Aiku AI

// Package bridgecache holds the short-lived in-memory state the bridge uses
// to recognise its own echoes: the channel event records used for loop
// prevention and the per-direction message correlation caches.
package bridgecache

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTTL is how long a bridged channel event is remembered when no TTL
// is given to Add.
const DefaultTTL = 10 * time.Second

// EventType identifies the kind of channel operation that was mirrored.
type EventType int

const (
	EventChannelCreate EventType = iota + 1
	EventChannelUpdate
)

func (t EventType) String() string {
	switch t {
	case EventChannelCreate:
		return "channel_create"
	case EventChannelUpdate:
		return "channel_update"
	default:
		return "unknown"
	}
}

// BridgedEvent records that the bridge itself performed a channel operation
// on one side in response to an event on the other. From and To are channel
// IDs on the origin and destination platform.
type BridgedEvent struct {
	Type      EventType
	From      string
	To        string
	ExpiresAt time.Time
}

// BridgedEvents is the loop-prevention cache. Records expire on their own
// timer and are never refreshed.
type BridgedEvents struct {
	mu     sync.Mutex
	events []*BridgedEvent
	log    zerolog.Logger
}

// NewBridgedEvents creates an empty loop-prevention cache.
func NewBridgedEvents(log zerolog.Logger) *BridgedEvents {
	return &BridgedEvents{
		log: log.With().Str("component", "bridged_events").Logger(),
	}
}

// Add records a mirrored channel operation and schedules its removal after
// ttl. A non-positive ttl means DefaultTTL.
func (b *BridgedEvents) Add(eventType EventType, from, to string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	evt := &BridgedEvent{
		Type:      eventType,
		From:      from,
		To:        to,
		ExpiresAt: time.Now().Add(ttl),
	}
	b.mu.Lock()
	b.events = append(b.events, evt)
	b.mu.Unlock()

	b.log.Debug().
		Stringer("event_type", eventType).
		Str("from", from).
		Str("to", to).
		Dur("ttl", ttl).
		Msg("Recorded bridged event")

	time.AfterFunc(ttl, func() {
		b.remove(evt)
	})
}

// remove drops exactly the given record. Records are matched by identity so
// that two records with the same fields each live for their own TTL.
func (b *BridgedEvents) remove(evt *BridgedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.events {
		if e == evt {
			b.events = append(b.events[:i], b.events[i+1:]...)
			return
		}
	}
	b.log.Warn().
		Stringer("event_type", evt.Type).
		Str("from", evt.From).
		Str("to", evt.To).
		Msg("Bridged event already removed")
}

// Find returns the first record of the given type matching from and to. An
// empty from or to matches any value.
func (b *BridgedEvents) Find(eventType EventType, from, to string) (BridgedEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e.Type != eventType {
			continue
		}
		if from != "" && e.From != from {
			continue
		}
		if to != "" && e.To != to {
			continue
		}
		return *e, true
	}
	return BridgedEvent{}, false
}

// FindEitherWay reports whether channelID took part in a recorded operation
// of the given type, regardless of which side it was on.
func (b *BridgedEvents) FindEitherWay(eventType EventType, channelID string) (BridgedEvent, bool) {
	if channelID == "" {
		return BridgedEvent{}, false
	}
	if evt, ok := b.Find(eventType, channelID, ""); ok {
		return evt, true
	}
	return b.Find(eventType, "", channelID)
}

// Len returns the number of live records.
func (b *BridgedEvents) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
