// Copyright 2024-2026 Aiku AI

package bridge

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/aiku/revcord/pkg/revolt"
)

// Side identifies one of the two bridged platforms.
type Side int

const (
	SideDiscord Side = iota + 1
	SideRevolt
)

func (s Side) String() string {
	switch s {
	case SideDiscord:
		return "discord"
	case SideRevolt:
		return "revolt"
	default:
		return "unknown"
	}
}

// Other returns the opposite platform.
func (s Side) Other() Side {
	if s == SideDiscord {
		return SideRevolt
	}
	return SideDiscord
}

// ParseSide parses "discord" or "revolt", ignoring case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "discord":
		return SideDiscord, nil
	case "revolt":
		return SideRevolt, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}

// WebhookPrefix starts the name of every webhook the bridge owns.
const WebhookPrefix = "revcord-"

// MakeWebhookName returns the name of the webhook delivering messages from
// the given Revolt channel.
func MakeWebhookName(revoltChannelID string) string {
	return WebhookPrefix + revoltChannelID
}

// ParseWebhookName extracts the Revolt channel ID from a bridge webhook
// name.
func ParseWebhookName(name string) (string, bool) {
	id, ok := strings.CutPrefix(name, WebhookPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// ChannelKind is the platform independent classification of a channel.
type ChannelKind int

const (
	ChannelKindUnknown ChannelKind = iota
	ChannelKindText
	ChannelKindVoice
	ChannelKindCategory
	ChannelKindPrivate
	ChannelKindOther
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelKindText:
		return "text"
	case ChannelKindVoice:
		return "voice"
	case ChannelKindCategory:
		return "category"
	case ChannelKindPrivate:
		return "private"
	case ChannelKindOther:
		return "other"
	default:
		return "unknown"
	}
}

// CanBridge reports whether channels of this kind can be bridged.
func (k ChannelKind) CanBridge() bool {
	return k == ChannelKindText
}

// DiscordChannelKind classifies a Discord channel. Only guild text channels
// are text; announcement channels, threads and forums are not bridged.
func DiscordChannelKind(ch *discordgo.Channel) ChannelKind {
	if ch == nil {
		return ChannelKindUnknown
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildText:
		return ChannelKindText
	case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
		return ChannelKindVoice
	case discordgo.ChannelTypeGuildCategory:
		return ChannelKindCategory
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return ChannelKindPrivate
	default:
		return ChannelKindOther
	}
}

// RevoltChannelKind classifies a Revolt channel. Text channels outside a
// server are private.
func RevoltChannelKind(ch *revolt.Channel) ChannelKind {
	if ch == nil {
		return ChannelKindUnknown
	}
	switch ch.ChannelType {
	case revolt.ChannelTypeText:
		if ch.Server == "" {
			return ChannelKindPrivate
		}
		return ChannelKindText
	case revolt.ChannelTypeVoice:
		return ChannelKindVoice
	case revolt.ChannelTypeDirectMessage, revolt.ChannelTypeGroup, revolt.ChannelTypeSavedMessages:
		return ChannelKindPrivate
	default:
		return ChannelKindOther
	}
}
