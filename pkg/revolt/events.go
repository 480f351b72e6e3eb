// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package revolt

import "encoding/json"

// Event is a decoded gateway event delivered to handlers.
type Event interface {
	EventType() string
}

// ReadyEvent carries the initial state after authentication.
type ReadyEvent struct {
	Users    []User    `json:"users"`
	Servers  []Server  `json:"servers"`
	Channels []Channel `json:"channels"`
}

type MessageEvent struct {
	Message *Message
}

// MessageUpdateEvent only carries the changed fields in Data. Handlers that
// need the whole message fetch it.
type MessageUpdateEvent struct {
	ID      string          `json:"id"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type MessageDeleteEvent struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
}

type ChannelCreateEvent struct {
	Channel *Channel
}

// ChannelUpdateEvent has the merged channel after the update. Before is the
// cached state prior to it and is nil if the channel was not cached.
type ChannelUpdateEvent struct {
	Channel *Channel
	Before  *Channel
	Clear   []string
}

// ChannelDeleteEvent has the last cached state of the channel in Channel,
// or nil if it was never cached.
type ChannelDeleteEvent struct {
	ID      string
	Channel *Channel
}

func (*ReadyEvent) EventType() string         { return "Ready" }
func (*MessageEvent) EventType() string       { return "Message" }
func (*MessageUpdateEvent) EventType() string { return "MessageUpdate" }
func (*MessageDeleteEvent) EventType() string { return "MessageDelete" }
func (*ChannelCreateEvent) EventType() string { return "ChannelCreate" }
func (*ChannelUpdateEvent) EventType() string { return "ChannelUpdate" }
func (*ChannelDeleteEvent) EventType() string { return "ChannelDelete" }
