// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// RegisterDiscordHandlers subscribes the bridge to the session's events.
// The session should have SyncEvents set so that events reach the router in
// gateway order.
func (b *Bridge) RegisterDiscordHandlers(s *discordgo.Session) {
	s.AddHandler(b.onDiscordReady)
	s.AddHandler(b.onDiscordGuildCreate)
	s.AddHandler(b.onDiscordMessageCreate)
	s.AddHandler(b.onDiscordMessageUpdate)
	s.AddHandler(b.onDiscordMessageDelete)
	s.AddHandler(b.onDiscordChannelCreate)
	s.AddHandler(b.onDiscordChannelUpdate)
	s.AddHandler(b.onDiscordChannelDelete)
	s.AddHandler(b.onDiscordInteraction)
}

func (b *Bridge) onDiscordReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.selfMu.Lock()
	if r.User != nil {
		b.discordSelf = r.User.ID
	}
	if r.Application != nil {
		b.discordAppID = r.Application.ID
	}
	b.selfMu.Unlock()

	guildIDs := make([]string, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		b.rememberGuildChannels(g)
		guildIDs = append(guildIDs, g.ID)
	}
	b.Log.Info().
		Str("user_id", b.DiscordSelfID()).
		Int("guilds", len(guildIDs)).
		Msg("Connected to Discord")
	go b.onDiscordConnected(b.ctx, guildIDs)
}

// onDiscordConnected provisions webhooks for all mappings and registers the
// slash commands.
func (b *Bridge) onDiscordConnected(ctx context.Context, guildIDs []string) {
	mappings := b.Mappings.All()
	n := b.Webhooks.ProvisionAll(ctx, mappings)
	b.Log.Info().
		Int("provisioned", n).
		Int("mappings", len(mappings)).
		Msg("Provisioned webhooks")
	if b.Config.Discord.RegisterCommands {
		for _, guildID := range guildIDs {
			if err := b.registerSlashCommands(ctx, guildID); err != nil {
				b.Log.Error().Err(err).Str("guild_id", guildID).Msg("Failed to register slash commands")
			}
		}
	}
}

func (b *Bridge) onDiscordGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil {
		return
	}
	b.rememberGuildChannels(g.Guild)
}

func (b *Bridge) rememberGuildChannels(g *discordgo.Guild) {
	if g == nil {
		return
	}
	for _, ch := range g.Channels {
		if ch.GuildID == "" {
			ch.GuildID = g.ID
		}
		b.discordChannels.Set(ch.ID, ch)
	}
}

func (b *Bridge) onDiscordMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil {
		return
	}
	b.enqueue(&DiscordMessageCreate{Message: m.Message})
}

func (b *Bridge) onDiscordMessageUpdate(_ *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.Message == nil {
		return
	}
	b.enqueue(&DiscordMessageUpdate{Message: m.Message})
}

func (b *Bridge) onDiscordMessageDelete(_ *discordgo.Session, m *discordgo.MessageDelete) {
	if m.Message == nil {
		return
	}
	b.enqueue(&DiscordMessageDelete{MessageID: m.ID, ChannelID: m.ChannelID})
}

func (b *Bridge) onDiscordChannelCreate(_ *discordgo.Session, c *discordgo.ChannelCreate) {
	if c.Channel == nil {
		return
	}
	b.discordChannels.Set(c.ID, c.Channel)
	b.enqueue(&DiscordChannelCreate{Channel: c.Channel})
}

func (b *Bridge) onDiscordChannelUpdate(_ *discordgo.Session, c *discordgo.ChannelUpdate) {
	if c.Channel == nil {
		return
	}
	before, _ := b.discordChannels.Swap(c.ID, c.Channel)
	b.enqueue(&DiscordChannelUpdate{Channel: c.Channel, Before: before})
}

func (b *Bridge) onDiscordChannelDelete(_ *discordgo.Session, c *discordgo.ChannelDelete) {
	if c.Channel == nil {
		return
	}
	b.discordChannels.Delete(c.ID)
	b.enqueue(&DiscordChannelDelete{Channel: c.Channel})
}

// discordChannel returns a Discord channel from the bridge's view, asking
// the API on a miss.
func (b *Bridge) discordChannel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if ch, ok := b.discordChannels.Get(channelID); ok {
		return ch, nil
	}
	ch, err := b.Discord.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	b.discordChannels.Set(ch.ID, ch)
	return ch, nil
}

// findDiscordTextChannel looks a text channel up by name, ignoring case.
// When guildID is set only that guild is searched.
func (b *Bridge) findDiscordTextChannel(name, guildID string) (*discordgo.Channel, bool) {
	for _, ch := range b.discordChannels.CopyData() {
		if guildID != "" && ch.GuildID != guildID {
			continue
		}
		if DiscordChannelKind(ch).CanBridge() && strings.EqualFold(ch.Name, name) {
			return ch, true
		}
	}
	return nil, false
}

// discordMessageLink returns the jump URL of a Discord message.
func discordMessageLink(guildID, channelID, messageID string) string {
	if guildID == "" {
		guildID = "@me"
	}
	return "https://discord.com/channels/" + guildID + "/" + channelID + "/" + messageID
}
