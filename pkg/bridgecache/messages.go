// Copyright 2024-2026 Aiku AI

package bridgecache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultCacheSize is the number of correlations kept per direction when no
// size is configured.
const DefaultCacheSize = 5000

// Direction tells which platform a correlated message originated on.
type Direction int

const (
	DiscordToRevolt Direction = iota + 1
	RevoltToDiscord
)

func (d Direction) String() string {
	switch d {
	case DiscordToRevolt:
		return "discord_to_revolt"
	case RevoltToDiscord:
		return "revolt_to_discord"
	default:
		return "unknown"
	}
}

// Correlation links a source message to the copy the bridge created on the
// other platform. ChannelID is the source channel.
type Correlation struct {
	SourceMessageID string
	SourceAuthorID  string
	TargetMessageID string
	ChannelID       string
	CreatedAt       time.Time
}

// MessageCache remembers source -> target message pairs for one direction.
// It is bounded: once full, the least recently used pair is forgotten. A
// secondary index answers lookups by target message ID.
type MessageCache struct {
	direction Direction

	mu       sync.Mutex
	bySource *simplelru.LRU[string, Correlation]
	byTarget map[string]string
}

// NewMessageCache creates a correlation cache for the given direction. A
// non-positive size means DefaultCacheSize.
func NewMessageCache(direction Direction, size int) *MessageCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c := &MessageCache{
		direction: direction,
		byTarget:  make(map[string]string),
	}
	// NewLRU only fails for a non-positive size.
	c.bySource, _ = simplelru.NewLRU[string, Correlation](size, c.onEvict)
	return c
}

// onEvict runs with c.mu held, from inside Add or Remove.
func (c *MessageCache) onEvict(_ string, corr Correlation) {
	if c.byTarget[corr.TargetMessageID] == corr.SourceMessageID {
		delete(c.byTarget, corr.TargetMessageID)
	}
}

// Direction returns the direction this cache correlates.
func (c *MessageCache) Direction() Direction {
	return c.direction
}

// Record stores a correlation. Recording the same source again replaces the
// previous target.
func (c *MessageCache) Record(sourceID, authorID, targetID, channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.bySource.Peek(sourceID); ok && prev.TargetMessageID != targetID {
		delete(c.byTarget, prev.TargetMessageID)
	}
	c.bySource.Add(sourceID, Correlation{
		SourceMessageID: sourceID,
		SourceAuthorID:  authorID,
		TargetMessageID: targetID,
		ChannelID:       channelID,
		CreatedAt:       time.Now(),
	})
	c.byTarget[targetID] = sourceID
}

// FindBySource looks up the correlation for a source message.
func (c *MessageCache) FindBySource(sourceID string) (Correlation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bySource.Get(sourceID)
}

// FindByTarget looks up the correlation whose mirrored copy has the given
// message ID.
func (c *MessageCache) FindByTarget(targetID string) (Correlation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sourceID, ok := c.byTarget[targetID]
	if !ok {
		return Correlation{}, false
	}
	return c.bySource.Get(sourceID)
}

// Forget removes the correlation for a source message, if any.
func (c *MessageCache) Forget(sourceID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bySource.Remove(sourceID)
}

// Len returns the number of stored correlations.
func (c *MessageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bySource.Len()
}
