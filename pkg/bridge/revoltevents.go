// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"github.com/aiku/revcord/pkg/revolt"
)

// RegisterRevoltHandlers subscribes the bridge to the client's gateway
// events.
func (b *Bridge) RegisterRevoltHandlers(c *revolt.Client) {
	c.AddHandler(b.onRevoltEvent)
}

// onRevoltEvent converts a gateway event into its bridge variant.
func (b *Bridge) onRevoltEvent(evt revolt.Event) {
	switch e := evt.(type) {
	case *revolt.ReadyEvent:
		b.Log.Info().
			Int("servers", len(e.Servers)).
			Int("channels", len(e.Channels)).
			Msg("Connected to Revolt")
	case *revolt.MessageEvent:
		b.enqueue(&RevoltMessageCreate{Message: e.Message})
	case *revolt.MessageUpdateEvent:
		b.enqueue(&RevoltMessageUpdate{MessageID: e.ID, ChannelID: e.Channel})
	case *revolt.MessageDeleteEvent:
		b.enqueue(&RevoltMessageDelete{MessageID: e.ID, ChannelID: e.Channel})
	case *revolt.ChannelCreateEvent:
		b.enqueue(&RevoltChannelCreate{Channel: e.Channel})
	case *revolt.ChannelUpdateEvent:
		b.enqueue(&RevoltChannelUpdate{Channel: e.Channel, Before: e.Before})
	case *revolt.ChannelDeleteEvent:
		b.enqueue(&RevoltChannelDelete{ChannelID: e.ID, Channel: e.Channel})
	default:
		b.Log.Trace().Str("event_type", evt.EventType()).Msg("Unhandled Revolt event")
	}
}
