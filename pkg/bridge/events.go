// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/aiku/revcord/pkg/revolt"
)

// EventType names the six mirrored event types shared by both platforms.
type EventType int

const (
	EventMessageCreate EventType = iota + 1
	EventMessageUpdate
	EventMessageDelete
	EventChannelCreate
	EventChannelUpdate
	EventChannelDelete
)

func (t EventType) String() string {
	switch t {
	case EventMessageCreate:
		return "message_create"
	case EventMessageUpdate:
		return "message_update"
	case EventMessageDelete:
		return "message_delete"
	case EventChannelCreate:
		return "channel_create"
	case EventChannelUpdate:
		return "channel_update"
	case EventChannelDelete:
		return "channel_delete"
	default:
		return "unknown"
	}
}

// Event is a platform event queued for mirroring. The set of variants is
// closed: every implementation lives in this file and is dispatched by
// Router.
type Event interface {
	Origin() Side
	Type() EventType
	isEvent()
}

// channelEvent is implemented by the channel lifecycle variants so the
// router can drop channels that can never be bridged.
type channelEvent interface {
	channelKind() ChannelKind
}

type DiscordMessageCreate struct {
	Message *discordgo.Message
}

type DiscordMessageUpdate struct {
	Message *discordgo.Message
}

type DiscordMessageDelete struct {
	MessageID string
	ChannelID string
}

type DiscordChannelCreate struct {
	Channel *discordgo.Channel
}

// DiscordChannelUpdate carries the channel before the update when the
// bridge had seen it, nil otherwise.
type DiscordChannelUpdate struct {
	Channel *discordgo.Channel
	Before  *discordgo.Channel
}

type DiscordChannelDelete struct {
	Channel *discordgo.Channel
}

type RevoltMessageCreate struct {
	Message *revolt.Message
}

// RevoltMessageUpdate only identifies the message; handlers fetch the
// current content.
type RevoltMessageUpdate struct {
	MessageID string
	ChannelID string
}

type RevoltMessageDelete struct {
	MessageID string
	ChannelID string
}

type RevoltChannelCreate struct {
	Channel *revolt.Channel
}

type RevoltChannelUpdate struct {
	Channel *revolt.Channel
	Before  *revolt.Channel
}

// RevoltChannelDelete has the last known state of the channel in Channel,
// which is nil when the channel was never cached.
type RevoltChannelDelete struct {
	ChannelID string
	Channel   *revolt.Channel
}

func (*DiscordMessageCreate) Origin() Side { return SideDiscord }
func (*DiscordMessageUpdate) Origin() Side { return SideDiscord }
func (*DiscordMessageDelete) Origin() Side { return SideDiscord }
func (*DiscordChannelCreate) Origin() Side { return SideDiscord }
func (*DiscordChannelUpdate) Origin() Side { return SideDiscord }
func (*DiscordChannelDelete) Origin() Side { return SideDiscord }
func (*RevoltMessageCreate) Origin() Side  { return SideRevolt }
func (*RevoltMessageUpdate) Origin() Side  { return SideRevolt }
func (*RevoltMessageDelete) Origin() Side  { return SideRevolt }
func (*RevoltChannelCreate) Origin() Side  { return SideRevolt }
func (*RevoltChannelUpdate) Origin() Side  { return SideRevolt }
func (*RevoltChannelDelete) Origin() Side  { return SideRevolt }

func (*DiscordMessageCreate) Type() EventType { return EventMessageCreate }
func (*DiscordMessageUpdate) Type() EventType { return EventMessageUpdate }
func (*DiscordMessageDelete) Type() EventType { return EventMessageDelete }
func (*DiscordChannelCreate) Type() EventType { return EventChannelCreate }
func (*DiscordChannelUpdate) Type() EventType { return EventChannelUpdate }
func (*DiscordChannelDelete) Type() EventType { return EventChannelDelete }
func (*RevoltMessageCreate) Type() EventType  { return EventMessageCreate }
func (*RevoltMessageUpdate) Type() EventType  { return EventMessageUpdate }
func (*RevoltMessageDelete) Type() EventType  { return EventMessageDelete }
func (*RevoltChannelCreate) Type() EventType  { return EventChannelCreate }
func (*RevoltChannelUpdate) Type() EventType  { return EventChannelUpdate }
func (*RevoltChannelDelete) Type() EventType  { return EventChannelDelete }

func (*DiscordMessageCreate) isEvent() {}
func (*DiscordMessageUpdate) isEvent() {}
func (*DiscordMessageDelete) isEvent() {}
func (*DiscordChannelCreate) isEvent() {}
func (*DiscordChannelUpdate) isEvent() {}
func (*DiscordChannelDelete) isEvent() {}
func (*RevoltMessageCreate) isEvent()  {}
func (*RevoltMessageUpdate) isEvent()  {}
func (*RevoltMessageDelete) isEvent()  {}
func (*RevoltChannelCreate) isEvent()  {}
func (*RevoltChannelUpdate) isEvent()  {}
func (*RevoltChannelDelete) isEvent()  {}

func (e *DiscordChannelCreate) channelKind() ChannelKind { return DiscordChannelKind(e.Channel) }
func (e *DiscordChannelUpdate) channelKind() ChannelKind { return DiscordChannelKind(e.Channel) }
func (e *DiscordChannelDelete) channelKind() ChannelKind { return DiscordChannelKind(e.Channel) }
func (e *RevoltChannelCreate) channelKind() ChannelKind  { return RevoltChannelKind(e.Channel) }
func (e *RevoltChannelUpdate) channelKind() ChannelKind  { return RevoltChannelKind(e.Channel) }
func (e *RevoltChannelDelete) channelKind() ChannelKind  { return RevoltChannelKind(e.Channel) }

// DiscordEventHandler mirrors Discord events onto Revolt.
type DiscordEventHandler interface {
	HandleDiscordMessageCreate(ctx context.Context, evt *DiscordMessageCreate) error
	HandleDiscordMessageUpdate(ctx context.Context, evt *DiscordMessageUpdate) error
	HandleDiscordMessageDelete(ctx context.Context, evt *DiscordMessageDelete) error
	HandleDiscordChannelCreate(ctx context.Context, evt *DiscordChannelCreate) error
	HandleDiscordChannelUpdate(ctx context.Context, evt *DiscordChannelUpdate) error
	HandleDiscordChannelDelete(ctx context.Context, evt *DiscordChannelDelete) error
}

// RevoltEventHandler mirrors Revolt events onto Discord.
type RevoltEventHandler interface {
	HandleRevoltMessageCreate(ctx context.Context, evt *RevoltMessageCreate) error
	HandleRevoltMessageUpdate(ctx context.Context, evt *RevoltMessageUpdate) error
	HandleRevoltMessageDelete(ctx context.Context, evt *RevoltMessageDelete) error
	HandleRevoltChannelCreate(ctx context.Context, evt *RevoltChannelCreate) error
	HandleRevoltChannelUpdate(ctx context.Context, evt *RevoltChannelUpdate) error
	HandleRevoltChannelDelete(ctx context.Context, evt *RevoltChannelDelete) error
}
