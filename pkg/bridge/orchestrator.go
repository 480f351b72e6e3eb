// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/aiku/revcord/pkg/bridge/discordfmt"
	"github.com/aiku/revcord/pkg/database"
	"github.com/aiku/revcord/pkg/revolt"
)

// ConnectionPair is one mapping as shown to users.
type ConnectionPair struct {
	Discord          string `json:"discord"`
	Revolt           string `json:"revolt"`
	DiscordChannelID string `json:"discord_channel_id"`
	RevoltChannelID  string `json:"revolt_channel_id"`
	AllowBots        bool   `json:"allow_bots"`
}

// Connect links a Discord channel and a Revolt channel. Each target is a
// channel ID or a channel name, matched case-insensitively. The pair's
// webhook is provisioned once the mapping is saved.
func (b *Bridge) Connect(ctx context.Context, discordTarget, revoltTarget string) (*database.Mapping, error) {
	revoltCh, err := b.resolveRevoltChannel(revoltTarget)
	if err != nil {
		return nil, err
	}
	discordCh, err := b.resolveDiscordChannel(ctx, discordTarget)
	if err != nil {
		return nil, err
	}
	if _, ok := b.Mappings.ByDiscordChannel(discordCh.ID); ok {
		return nil, connectionError("Discord channel #%s is already connected.", discordCh.Name)
	}
	if _, ok := b.Mappings.ByRevoltChannel(revoltCh.ID); ok {
		return nil, connectionError("Revolt channel #%s is already connected.", revoltCh.Name)
	}

	mapping := &database.Mapping{
		DiscordGuild:       discordCh.GuildID,
		DiscordChannel:     discordCh.ID,
		RevoltServer:       revoltCh.Server,
		RevoltChannel:      revoltCh.ID,
		DiscordChannelName: discordCh.Name,
		RevoltChannelName:  revoltCh.Name,
	}
	if err := b.Mappings.Create(ctx, mapping); err != nil {
		return nil, fmt.Errorf("failed to save mapping: %w", err)
	}
	if _, err := b.Webhooks.Provision(ctx, discordCh.ID, revoltCh.ID); err != nil {
		return mapping, fmt.Errorf("failed to provision webhook: %w", err)
	}
	b.Log.Info().
		Str("discord_channel_id", discordCh.ID).
		Str("revolt_channel_id", revoltCh.ID).
		Msg("Connected channels")
	return mapping, nil
}

func (b *Bridge) resolveRevoltChannel(target string) (*revolt.Channel, error) {
	ch, ok := b.Revolt.CachedChannel(target)
	if !ok {
		for _, candidate := range b.Revolt.Channels() {
			if RevoltChannelKind(candidate).CanBridge() && strings.EqualFold(candidate.Name, target) {
				ch, ok = candidate, true
				break
			}
		}
	}
	if !ok {
		return nil, connectionError("Revolt channel not found.")
	}
	if !RevoltChannelKind(ch).CanBridge() {
		return nil, connectionError("Revolt channel is not a text channel.")
	}
	return ch, nil
}

func (b *Bridge) resolveDiscordChannel(ctx context.Context, target string) (*discordgo.Channel, error) {
	if isSnowflake(target) {
		ch, err := b.discordChannel(ctx, target)
		if err == nil {
			if !DiscordChannelKind(ch).CanBridge() {
				return nil, connectionError("Discord channel is not a text channel.")
			}
			return ch, nil
		}
		b.Log.Debug().Err(err).Str("target", target).Msg("Discord channel lookup by ID failed, trying by name")
	}
	ch, ok := b.findDiscordTextChannel(target, "")
	if !ok {
		return nil, connectionError("Discord channel not found.")
	}
	return ch, nil
}

func isSnowflake(s string) bool {
	if s == "" || len(s) > 22 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Disconnect removes the mapping of a channel on the given side and deletes
// the pair's webhook.
func (b *Bridge) Disconnect(ctx context.Context, side Side, channelID string) error {
	mapping, ok := b.mappingFor(side, channelID)
	if !ok {
		return connectionError("This channel is not connected to anything.")
	}
	if err := b.Webhooks.Teardown(ctx, mapping.DiscordChannel, mapping.RevoltChannel); err != nil {
		b.Log.Warn().Err(err).Str("discord_channel_id", mapping.DiscordChannel).Msg("Failed to delete webhook")
	}
	n, err := b.Mappings.Destroy(ctx, database.Query{
		DiscordChannel: mapping.DiscordChannel,
		RevoltChannel:  mapping.RevoltChannel,
	})
	if err != nil {
		return fmt.Errorf("failed to remove mapping: %w", err)
	}
	if n == 0 {
		return connectionError("No connection found.")
	}
	b.Log.Info().
		Str("discord_channel_id", mapping.DiscordChannel).
		Str("revolt_channel_id", mapping.RevoltChannel).
		Msg("Disconnected channels")
	return nil
}

func (b *Bridge) mappingFor(side Side, channelID string) (database.Mapping, bool) {
	switch side {
	case SideDiscord:
		return b.Mappings.ByDiscordChannel(channelID)
	case SideRevolt:
		return b.Mappings.ByRevoltChannel(channelID)
	default:
		return database.Mapping{}, false
	}
}

// ToggleAllowBots flips whether bot messages are forwarded on a pair and
// returns the new value.
func (b *Bridge) ToggleAllowBots(ctx context.Context, mapping database.Mapping) (bool, error) {
	allow := !mapping.AllowBots
	n, err := b.Mappings.Update(ctx, database.Query{
		DiscordChannel: mapping.DiscordChannel,
		RevoltChannel:  mapping.RevoltChannel,
	}, database.Patch{AllowBots: &allow})
	if err != nil {
		return false, fmt.Errorf("failed to update mapping: %w", err)
	}
	if n == 0 {
		b.Log.Error().
			Str("discord_channel_id", mapping.DiscordChannel).
			Str("revolt_channel_id", mapping.RevoltChannel).
			Msg("No rows affected while toggling bots")
		return false, connectionError("No connection found.")
	}
	return allow, nil
}

// ToggleAllowBotsFor is ToggleAllowBots for the mapping of a channel.
func (b *Bridge) ToggleAllowBotsFor(ctx context.Context, side Side, channelID string) (bool, error) {
	mapping, ok := b.mappingFor(side, channelID)
	if !ok {
		return false, connectionError("This channel is not connected.")
	}
	return b.ToggleAllowBots(ctx, mapping)
}

// Connections lists every persisted mapping.
func (b *Bridge) Connections(ctx context.Context) ([]ConnectionPair, error) {
	mappings, err := b.Mappings.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	pairs := make([]ConnectionPair, 0, len(mappings))
	for _, m := range mappings {
		pairs = append(pairs, ConnectionPair{
			Discord:          m.DiscordChannelName,
			Revolt:           m.RevoltChannelName,
			DiscordChannelID: m.DiscordChannel,
			RevoltChannelID:  m.RevoltChannel,
			AllowBots:        m.AllowBots,
		})
	}
	return pairs, nil
}

// PingDiscordUser mentions a Discord user in the channel connected to a
// Revolt channel, on behalf of author. query is a username, optionally with
// its legacy #discriminator. It returns the mentioned user's tag.
func (b *Bridge) PingDiscordUser(ctx context.Context, revoltChannelID string, author *revolt.User, query string) (string, error) {
	mapping, ok := b.Mappings.ByRevoltChannel(revoltChannelID)
	if !ok {
		return "", &EntityNotFoundError{Kind: "connection"}
	}
	query = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(query), "@"))
	name, _, _ := strings.Cut(query, "#")
	if name == "" {
		return "", &EntityNotFoundError{Kind: "user"}
	}
	members, err := b.Discord.GuildMembersSearch(mapping.DiscordGuild, name, 10, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to search guild members: %w", err)
	}
	var user *discordgo.User
	for _, m := range members {
		if m.User == nil {
			continue
		}
		username := strings.ToLower(m.User.Username)
		if username == query || username+"#"+m.User.Discriminator == query {
			user = m.User
			break
		}
	}
	if user == nil {
		return "", &EntityNotFoundError{Kind: "user", ID: query}
	}

	params := &discordgo.WebhookParams{
		Content:         "<@" + user.ID + ">",
		Username:        b.revoltAuthorName(author),
		AvatarURL:       b.Revolt.AvatarURL(author),
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{user.ID}},
	}
	if _, err := b.Webhooks.Send(ctx, mapping.RevoltChannel, params); err != nil {
		return "", fmt.Errorf("failed to send ping: %w", err)
	}
	return discordfmt.MentionName(user), nil
}
