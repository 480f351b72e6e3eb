// Copyright 2024-2026 Aiku AI

// Package database persists channel mappings in sqlite through gorm and
// keeps an in-memory mirror of them for the hot path.
package database

import (
	"time"

	"gorm.io/gorm"
)

// Mapping is one bridged channel pair.
type Mapping struct {
	ID                 uint   `gorm:"primaryKey"`
	DiscordGuild       string `gorm:"not null;index"`
	DiscordChannel     string `gorm:"not null;uniqueIndex"`
	RevoltServer       string `gorm:"not null;index"`
	RevoltChannel      string `gorm:"not null;uniqueIndex"`
	DiscordChannelName string
	RevoltChannelName  string
	AllowBots          bool `gorm:"not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName keeps the table name stable regardless of gorm's naming strategy.
func (Mapping) TableName() string {
	return "mappings"
}

// Query selects mappings by any combination of fields. Empty fields are not
// constrained.
type Query struct {
	DiscordGuild   string
	DiscordChannel string
	RevoltServer   string
	RevoltChannel  string
}

// IsZero reports whether the query constrains nothing.
func (q Query) IsZero() bool {
	return q == Query{}
}

// Matches reports whether m satisfies the query.
func (q Query) Matches(m Mapping) bool {
	return (q.DiscordGuild == "" || q.DiscordGuild == m.DiscordGuild) &&
		(q.DiscordChannel == "" || q.DiscordChannel == m.DiscordChannel) &&
		(q.RevoltServer == "" || q.RevoltServer == m.RevoltServer) &&
		(q.RevoltChannel == "" || q.RevoltChannel == m.RevoltChannel)
}

func (q Query) apply(tx *gorm.DB) *gorm.DB {
	if q.DiscordGuild != "" {
		tx = tx.Where("discord_guild = ?", q.DiscordGuild)
	}
	if q.DiscordChannel != "" {
		tx = tx.Where("discord_channel = ?", q.DiscordChannel)
	}
	if q.RevoltServer != "" {
		tx = tx.Where("revolt_server = ?", q.RevoltServer)
	}
	if q.RevoltChannel != "" {
		tx = tx.Where("revolt_channel = ?", q.RevoltChannel)
	}
	return tx
}

// Patch lists the mutable fields of a mapping. Nil fields are left alone.
type Patch struct {
	DiscordChannelName *string
	RevoltChannelName  *string
	AllowBots          *bool
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.DiscordChannelName == nil && p.RevoltChannelName == nil && p.AllowBots == nil
}

// Apply writes the patch onto m.
func (p Patch) Apply(m *Mapping) {
	if p.DiscordChannelName != nil {
		m.DiscordChannelName = *p.DiscordChannelName
	}
	if p.RevoltChannelName != nil {
		m.RevoltChannelName = *p.RevoltChannelName
	}
	if p.AllowBots != nil {
		m.AllowBots = *p.AllowBots
	}
}

func (p Patch) columns() map[string]any {
	cols := make(map[string]any, 3)
	if p.DiscordChannelName != nil {
		cols["discord_channel_name"] = *p.DiscordChannelName
	}
	if p.RevoltChannelName != nil {
		cols["revolt_channel_name"] = *p.RevoltChannelName
	}
	if p.AllowBots != nil {
		cols["allow_bots"] = *p.AllowBots
	}
	return cols
}
