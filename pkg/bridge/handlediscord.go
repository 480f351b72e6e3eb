// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.mau.fi/util/ptr"

	"github.com/aiku/revcord/pkg/bridge/discordfmt"
	"github.com/aiku/revcord/pkg/bridgecache"
	"github.com/aiku/revcord/pkg/database"
	"github.com/aiku/revcord/pkg/revolt"
)

var _ DiscordEventHandler = (*Bridge)(nil)

// parseDiscordMessage applies echo prevention and the bot policy to a
// Discord message. Returns (nil, nil) to skip silently or the mapping of
// the message's channel to proceed.
func (b *Bridge) parseDiscordMessage(msg *discordgo.Message) (*database.Mapping, error) {
	if msg == nil || msg.Author == nil {
		return nil, nil
	}

	// Echo prevention: skip own messages.
	if msg.Author.ID == b.DiscordSelfID() {
		return nil, nil
	}

	// Echo prevention: skip messages sent through bridge webhooks.
	if b.Webhooks.IsOwn(msg.WebhookID) {
		return nil, nil
	}

	if msg.Type != discordgo.MessageTypeDefault && msg.Type != discordgo.MessageTypeReply {
		return nil, nil
	}

	mapping, ok := b.Mappings.ByDiscordChannel(msg.ChannelID)
	if !ok {
		return nil, nil
	}

	if msg.Author.Bot && !mapping.AllowBots {
		b.Log.Debug().
			Str("message_id", msg.ID).
			Str("author_id", msg.Author.ID).
			Msg("Skipping bot message, bots are not allowed on this channel")
		return nil, nil
	}
	return &mapping, nil
}

// translateDiscordEmbed converts the first embed of a bot message. Failures
// are logged and the message is sent without it.
func (b *Bridge) translateDiscordEmbed(msg *discordgo.Message) []revolt.SendableEmbed {
	if !msg.Author.Bot || len(msg.Embeds) == 0 {
		return nil
	}
	embed, err := RichEmbedFromDiscord(msg.Embeds[0]).ToRevolt()
	if err != nil {
		b.Log.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to translate embed")
		return nil
	}
	return []revolt.SendableEmbed{embed}
}

func (b *Bridge) HandleDiscordMessageCreate(ctx context.Context, evt *DiscordMessageCreate) error {
	msg := evt.Message
	mapping, err := b.parseDiscordMessage(msg)
	if mapping == nil {
		return err
	}

	data := revolt.SendMessageData{
		Content: b.formatDiscordMessage(ctx, msg),
		Masquerade: &revolt.Masquerade{
			Name:   b.discordAuthorName(msg),
			Avatar: msg.Author.AvatarURL(""),
		},
	}
	replies, quoted := b.discordReply(ctx, msg)
	data.Replies = replies
	if quoted != nil {
		if embed, err := quoted.revoltReplyEmbed(); err == nil {
			data.Embeds = append(data.Embeds, embed)
		}
	}
	data.Embeds = append(data.Embeds, b.translateDiscordEmbed(msg)...)
	if data.Content == "" && len(data.Embeds) == 0 {
		b.Log.Debug().Str("message_id", msg.ID).Msg("Skipping message with nothing to bridge")
		return nil
	}

	sent, err := b.Revolt.SendMessage(ctx, mapping.RevoltChannel, data)
	if err != nil {
		if revolt.IsForbidden(err) {
			b.Log.Error().Err(err).
				Str("revolt_channel_id", mapping.RevoltChannel).
				Msg("Revolt refused the message, the bot is likely missing the Masquerade permission")
		}
		return fmt.Errorf("failed to send message to Revolt: %w", err)
	}
	b.DiscordCache.Record(msg.ID, msg.Author.ID, sent.ID, msg.ChannelID)
	b.Log.Debug().
		Str("discord_message_id", msg.ID).
		Str("revolt_message_id", sent.ID).
		Msg("Bridged message to Revolt")
	return nil
}

func (b *Bridge) HandleDiscordMessageUpdate(ctx context.Context, evt *DiscordMessageUpdate) error {
	msg := evt.Message
	mapping, err := b.parseDiscordMessage(msg)
	if mapping == nil {
		return err
	}
	corr, ok := b.DiscordCache.FindBySource(msg.ID)
	if !ok {
		return nil
	}

	var data revolt.EditMessageData
	if msg.Content != "" || len(msg.Attachments) > 0 {
		content := b.formatDiscordMessage(ctx, msg)
		data.Content = &content
	}
	data.Embeds = b.translateDiscordEmbed(msg)
	if data.Content == nil && len(data.Embeds) == 0 {
		return nil
	}
	if _, err := b.Revolt.EditMessage(ctx, mapping.RevoltChannel, corr.TargetMessageID, data); err != nil {
		return fmt.Errorf("failed to edit Revolt message: %w", err)
	}
	return nil
}

func (b *Bridge) HandleDiscordMessageDelete(ctx context.Context, evt *DiscordMessageDelete) error {
	corr, ok := b.DiscordCache.FindBySource(evt.MessageID)
	if !ok {
		return nil
	}
	mapping, ok := b.Mappings.ByDiscordChannel(corr.ChannelID)
	if !ok {
		return nil
	}
	if err := b.Revolt.DeleteMessage(ctx, mapping.RevoltChannel, corr.TargetMessageID); err != nil {
		return fmt.Errorf("failed to delete Revolt message: %w", err)
	}
	b.DiscordCache.Forget(evt.MessageID)
	return nil
}

func (b *Bridge) HandleDiscordChannelCreate(ctx context.Context, evt *DiscordChannelCreate) error {
	if !b.Config.Bridge.MirrorChannelCreate {
		return nil
	}
	ch := evt.Channel
	if err := b.waitForEcho(ctx); err != nil {
		return err
	}
	if _, ok := b.Events.FindEitherWay(bridgecache.EventChannelCreate, ch.ID); ok {
		b.Log.Debug().Str("discord_channel_id", ch.ID).Msg("Skipping channel created by the bridge")
		return nil
	}
	if _, ok := b.Mappings.ByDiscordChannel(ch.ID); ok {
		return nil
	}
	origin, ok := b.Mappings.ByDiscordGuild(ch.GuildID)
	if !ok {
		return nil
	}

	created, err := b.Revolt.CreateChannel(ctx, origin.RevoltServer, revolt.CreateChannelData{
		Name:        discordfmt.ChannelName(ch.Name),
		Description: ch.Topic,
		NSFW:        ch.NSFW,
	})
	if err != nil {
		return fmt.Errorf("failed to create Revolt channel: %w", err)
	}
	b.Events.Add(bridgecache.EventChannelCreate, ch.ID, created.ID, b.Config.Bridge.EchoTTL)

	mapping := &database.Mapping{
		DiscordGuild:       ch.GuildID,
		DiscordChannel:     ch.ID,
		RevoltServer:       origin.RevoltServer,
		RevoltChannel:      created.ID,
		DiscordChannelName: ch.Name,
		RevoltChannelName:  created.Name,
		AllowBots:          origin.AllowBots,
	}
	if err := b.Mappings.Create(ctx, mapping); err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	if _, err := b.Webhooks.Provision(ctx, ch.ID, created.ID); err != nil {
		b.Log.Error().Err(err).Str("discord_channel_id", ch.ID).Msg("Failed to provision webhook for mirrored channel")
	}
	b.Log.Info().
		Str("discord_channel_id", ch.ID).
		Str("revolt_channel_id", created.ID).
		Msg("Mirrored new Discord channel to Revolt")
	return nil
}

func discordChannelChanged(before, after *discordgo.Channel) bool {
	return before == nil ||
		before.Name != after.Name ||
		before.Topic != after.Topic ||
		before.NSFW != after.NSFW
}

func (b *Bridge) HandleDiscordChannelUpdate(ctx context.Context, evt *DiscordChannelUpdate) error {
	if !b.Config.Bridge.MirrorChannelUpdate {
		return nil
	}
	ch := evt.Channel
	mapping, ok := b.Mappings.ByDiscordChannel(ch.ID)
	if !ok || !discordChannelChanged(evt.Before, ch) {
		return nil
	}
	if err := b.waitForEcho(ctx); err != nil {
		return err
	}
	if _, ok := b.Events.FindEitherWay(bridgecache.EventChannelUpdate, ch.ID); ok {
		b.Log.Debug().Str("discord_channel_id", ch.ID).Msg("Skipping channel update made by the bridge")
		return nil
	}
	b.Events.Add(bridgecache.EventChannelUpdate, ch.ID, mapping.RevoltChannel, b.Config.Bridge.EchoTTL)

	edited, err := b.Revolt.EditChannel(ctx, mapping.RevoltChannel, revolt.EditChannelData{
		Name:        discordfmt.ChannelName(ch.Name),
		Description: ptr.Ptr(ch.Topic),
		NSFW:        ptr.Ptr(ch.NSFW),
	})
	if err != nil {
		return fmt.Errorf("failed to edit Revolt channel: %w", err)
	}
	if _, err := b.Mappings.Update(ctx, database.Query{DiscordChannel: ch.ID}, database.Patch{
		DiscordChannelName: &ch.Name,
		RevoltChannelName:  &edited.Name,
	}); err != nil {
		return fmt.Errorf("failed to update mapping names: %w", err)
	}
	return nil
}

func (b *Bridge) HandleDiscordChannelDelete(ctx context.Context, evt *DiscordChannelDelete) error {
	if !b.Config.Bridge.MirrorChannelDelete {
		return nil
	}
	ch := evt.Channel
	mapping, ok := b.Mappings.ByDiscordChannel(ch.ID)
	if !ok {
		b.Log.Debug().Str("discord_channel_id", ch.ID).Msg("Deleted Discord channel was not bridged")
		return nil
	}
	if _, err := b.Mappings.Destroy(ctx, database.Query{DiscordChannel: ch.ID}); err != nil {
		return fmt.Errorf("failed to remove mapping: %w", err)
	}
	// The webhook was deleted together with the channel.
	b.Webhooks.Forget(mapping.RevoltChannel)
	b.Log.Info().
		Str("discord_channel_id", ch.ID).
		Str("revolt_channel_id", mapping.RevoltChannel).
		Msg("Automatically disconnected deleted Discord channel")
	return nil
}
