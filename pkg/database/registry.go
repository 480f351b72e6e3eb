// Copyright 2024-2026 Aiku AI

package database

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Registry wraps a MappingStore with an in-memory mirror of all mappings.
// Lookups on the message path read the mirror; every mutation goes through
// the store first and then refreshes the mirror. The store stays the source
// of truth.
type Registry struct {
	store MappingStore
	log   zerolog.Logger

	mu       sync.RWMutex
	mappings []Mapping
	loaded   bool
}

// NewRegistry creates a registry over store. Call Refresh before use.
func NewRegistry(store MappingStore, log zerolog.Logger) *Registry {
	return &Registry{
		store: store,
		log:   log.With().Str("component", "mapping_registry").Logger(),
	}
}

// Refresh reloads the mirror from the store.
func (r *Registry) Refresh(ctx context.Context) error {
	mappings, err := r.store.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load mappings: %w", err)
	}
	r.mu.Lock()
	r.mappings = mappings
	r.loaded = true
	r.mu.Unlock()
	r.log.Debug().Int("count", len(mappings)).Msg("Refreshed mappings")
	return nil
}

// Loaded reports whether the mirror has been populated at least once.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// All returns a copy of the mirrored mappings.
func (r *Registry) All() []Mapping {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.mappings)
}

// Lookup returns the first mirrored mapping matching q.
func (r *Registry) Lookup(q Query) (Mapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.mappings {
		if q.Matches(m) {
			return m, true
		}
	}
	return Mapping{}, false
}

func (r *Registry) ByDiscordChannel(channelID string) (Mapping, bool) {
	if channelID == "" {
		return Mapping{}, false
	}
	return r.Lookup(Query{DiscordChannel: channelID})
}

func (r *Registry) ByRevoltChannel(channelID string) (Mapping, bool) {
	if channelID == "" {
		return Mapping{}, false
	}
	return r.Lookup(Query{RevoltChannel: channelID})
}

// ByDiscordGuild returns some mapping inside the guild, used to find the
// Revolt server a guild is bridged to.
func (r *Registry) ByDiscordGuild(guildID string) (Mapping, bool) {
	if guildID == "" {
		return Mapping{}, false
	}
	return r.Lookup(Query{DiscordGuild: guildID})
}

// ByRevoltServer returns some mapping inside the server.
func (r *Registry) ByRevoltServer(serverID string) (Mapping, bool) {
	if serverID == "" {
		return Mapping{}, false
	}
	return r.Lookup(Query{RevoltServer: serverID})
}

// Find queries the store directly.
func (r *Registry) Find(ctx context.Context, q Query) (*Mapping, error) {
	return r.store.Find(ctx, q)
}

// FindAll queries the store directly.
func (r *Registry) FindAll(ctx context.Context) ([]Mapping, error) {
	return r.store.FindAll(ctx)
}

// Create persists m and appends it to the mirror.
func (r *Registry) Create(ctx context.Context, m *Mapping) error {
	if err := r.store.Create(ctx, m); err != nil {
		return err
	}
	r.mu.Lock()
	r.mappings = append(r.mappings, *m)
	r.mu.Unlock()
	return nil
}

// Destroy deletes matching mappings and refreshes the mirror.
func (r *Registry) Destroy(ctx context.Context, q Query) (int64, error) {
	n, err := r.store.Destroy(ctx, q)
	if err != nil {
		return 0, err
	}
	if err := r.Refresh(ctx); err != nil {
		return n, err
	}
	return n, nil
}

// Update patches matching mappings and refreshes the mirror.
func (r *Registry) Update(ctx context.Context, q Query, p Patch) (int64, error) {
	n, err := r.store.Update(ctx, q, p)
	if err != nil {
		return 0, err
	}
	if err := r.Refresh(ctx); err != nil {
		return n, err
	}
	return n, nil
}
