// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.mau.fi/util/ptr"

	"github.com/aiku/revcord/pkg/bridge/revoltfmt"
	"github.com/aiku/revcord/pkg/bridge/textlimit"
	"github.com/aiku/revcord/pkg/bridgecache"
	"github.com/aiku/revcord/pkg/database"
	"github.com/aiku/revcord/pkg/revolt"
)

var _ RevoltEventHandler = (*Bridge)(nil)

// noMentions keeps mirrored messages from pinging anyone on Discord.
var noMentions = &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}

func (b *Bridge) HandleRevoltMessageCreate(ctx context.Context, evt *RevoltMessageCreate) error {
	msg := evt.Message
	if msg == nil || msg.IsSystem() {
		return nil
	}
	// Echo prevention: masqueraded copies are authored by the bridge itself.
	if msg.Author == b.Revolt.SelfID() {
		return nil
	}
	if strings.HasPrefix(msg.Content, b.Config.Bridge.CommandPrefix) {
		b.handleRevoltCommand(ctx, msg)
	}

	mapping, ok := b.Mappings.ByRevoltChannel(msg.Channel)
	if !ok {
		return nil
	}
	author, err := b.Revolt.User(ctx, msg.Author)
	if err != nil {
		return fmt.Errorf("failed to fetch message author: %w", err)
	}
	if author.IsBot() && !mapping.AllowBots {
		b.Log.Debug().
			Str("message_id", msg.ID).
			Str("author_id", author.ID).
			Msg("Skipping bot message, bots are not allowed on this channel")
		return nil
	}

	params := &discordgo.WebhookParams{
		Content:         b.formatRevoltMessage(ctx, msg),
		Username:        b.revoltAuthorName(author),
		AvatarURL:       b.Revolt.AvatarURL(author),
		AllowedMentions: noMentions,
	}
	if m := msg.Masquerade; m != nil {
		if m.Name != "" {
			params.Username = textlimit.Truncate(m.Name, textlimit.DiscordUsername)
		}
		if m.Avatar != "" {
			params.AvatarURL = m.Avatar
		}
	}
	if len(msg.Replies) > 0 {
		if rc := b.revoltReplyContext(ctx, msg.Replies[0], mapping); rc != nil {
			params.Embeds = append(params.Embeds, rc.discordReplyEmbed())
		}
	}
	if params.Content == "" && len(params.Embeds) == 0 {
		b.Log.Debug().Str("message_id", msg.ID).Msg("Skipping message with nothing to bridge")
		return nil
	}

	if _, ok := b.Webhooks.Get(mapping.RevoltChannel); !ok {
		if _, err := b.Webhooks.Provision(ctx, mapping.DiscordChannel, mapping.RevoltChannel); err != nil {
			return fmt.Errorf("failed to provision webhook: %w", err)
		}
	}
	sent, err := b.Webhooks.Send(ctx, mapping.RevoltChannel, params)
	if err != nil {
		return fmt.Errorf("failed to send message to Discord: %w", err)
	}
	b.RevoltCache.Record(msg.ID, msg.Author, sent.ID, msg.Channel)
	b.Log.Debug().
		Str("revolt_message_id", msg.ID).
		Str("discord_message_id", sent.ID).
		Msg("Bridged message to Discord")
	return nil
}

func (b *Bridge) HandleRevoltMessageUpdate(ctx context.Context, evt *RevoltMessageUpdate) error {
	corr, ok := b.RevoltCache.FindBySource(evt.MessageID)
	if !ok {
		return nil
	}
	mapping, ok := b.Mappings.ByRevoltChannel(evt.ChannelID)
	if !ok {
		return nil
	}
	msg, err := b.Revolt.FetchMessage(ctx, evt.ChannelID, evt.MessageID)
	if err != nil {
		return fmt.Errorf("failed to fetch edited message: %w", err)
	}
	content := b.formatRevoltMessage(ctx, msg)
	if content == "" {
		return nil
	}
	edit := &discordgo.WebhookEdit{
		Content:         &content,
		AllowedMentions: noMentions,
	}
	if err := b.Webhooks.Edit(ctx, mapping.RevoltChannel, corr.TargetMessageID, edit); err != nil {
		return err
	}
	return nil
}

func (b *Bridge) HandleRevoltMessageDelete(ctx context.Context, evt *RevoltMessageDelete) error {
	corr, ok := b.RevoltCache.FindBySource(evt.MessageID)
	if !ok {
		return nil
	}
	mapping, ok := b.Mappings.ByRevoltChannel(corr.ChannelID)
	if !ok {
		return nil
	}
	if err := b.Webhooks.Delete(ctx, mapping.RevoltChannel, corr.TargetMessageID); err != nil {
		return err
	}
	b.RevoltCache.Forget(evt.MessageID)
	return nil
}

func (b *Bridge) HandleRevoltChannelCreate(ctx context.Context, evt *RevoltChannelCreate) error {
	if !b.Config.Bridge.MirrorChannelCreate {
		return nil
	}
	ch := evt.Channel
	if err := b.waitForEcho(ctx); err != nil {
		return err
	}
	if _, ok := b.Events.FindEitherWay(bridgecache.EventChannelCreate, ch.ID); ok {
		b.Log.Debug().Str("revolt_channel_id", ch.ID).Msg("Skipping channel created by the bridge")
		return nil
	}
	if _, ok := b.Mappings.ByRevoltChannel(ch.ID); ok {
		return nil
	}
	origin, ok := b.Mappings.ByRevoltServer(ch.Server)
	if !ok {
		return nil
	}

	data := discordgo.GuildChannelCreateData{
		Name:  revoltfmt.ChannelName(ch.Name),
		Type:  discordgo.ChannelTypeGuildText,
		Topic: ch.Description,
		NSFW:  ch.NSFW,
	}
	// Keep the new channel in the same category as the existing pair.
	if parent, err := b.discordChannel(ctx, origin.DiscordChannel); err == nil {
		data.ParentID = parent.ParentID
	}
	created, err := b.Discord.GuildChannelCreateComplex(origin.DiscordGuild, data, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to create Discord channel: %w", err)
	}
	b.Events.Add(bridgecache.EventChannelCreate, ch.ID, created.ID, b.Config.Bridge.EchoTTL)

	mapping := &database.Mapping{
		DiscordGuild:       origin.DiscordGuild,
		DiscordChannel:     created.ID,
		RevoltServer:       ch.Server,
		RevoltChannel:      ch.ID,
		DiscordChannelName: created.Name,
		RevoltChannelName:  ch.Name,
		AllowBots:          origin.AllowBots,
	}
	if err := b.Mappings.Create(ctx, mapping); err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	if _, err := b.Webhooks.Provision(ctx, created.ID, ch.ID); err != nil {
		b.Log.Error().Err(err).Str("discord_channel_id", created.ID).Msg("Failed to provision webhook for mirrored channel")
	}
	b.Log.Info().
		Str("revolt_channel_id", ch.ID).
		Str("discord_channel_id", created.ID).
		Msg("Mirrored new Revolt channel to Discord")
	return nil
}

func revoltChannelChanged(before, after *revolt.Channel) bool {
	return before == nil ||
		before.Name != after.Name ||
		before.Description != after.Description ||
		before.NSFW != after.NSFW
}

func (b *Bridge) HandleRevoltChannelUpdate(ctx context.Context, evt *RevoltChannelUpdate) error {
	if !b.Config.Bridge.MirrorChannelUpdate {
		return nil
	}
	ch := evt.Channel
	mapping, ok := b.Mappings.ByRevoltChannel(ch.ID)
	if !ok || !revoltChannelChanged(evt.Before, ch) {
		return nil
	}
	if err := b.waitForEcho(ctx); err != nil {
		return err
	}
	if _, ok := b.Events.FindEitherWay(bridgecache.EventChannelUpdate, ch.ID); ok {
		b.Log.Debug().Str("revolt_channel_id", ch.ID).Msg("Skipping channel update made by the bridge")
		return nil
	}
	b.Events.Add(bridgecache.EventChannelUpdate, ch.ID, mapping.DiscordChannel, b.Config.Bridge.EchoTTL)

	edited, err := b.Discord.ChannelEdit(mapping.DiscordChannel, &discordgo.ChannelEdit{
		Name:  revoltfmt.ChannelName(ch.Name),
		Topic: ch.Description,
		NSFW:  ptr.Ptr(ch.NSFW),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to edit Discord channel: %w", err)
	}
	if _, err := b.Mappings.Update(ctx, database.Query{RevoltChannel: ch.ID}, database.Patch{
		DiscordChannelName: &edited.Name,
		RevoltChannelName:  &ch.Name,
	}); err != nil {
		return fmt.Errorf("failed to update mapping names: %w", err)
	}
	return nil
}

func (b *Bridge) HandleRevoltChannelDelete(ctx context.Context, evt *RevoltChannelDelete) error {
	if !b.Config.Bridge.MirrorChannelDelete {
		return nil
	}
	mapping, ok := b.Mappings.ByRevoltChannel(evt.ChannelID)
	if !ok {
		return nil
	}
	if _, err := b.Mappings.Destroy(ctx, database.Query{RevoltChannel: evt.ChannelID}); err != nil {
		return fmt.Errorf("failed to remove mapping: %w", err)
	}
	// The Discord channel survives, its webhook would be orphaned.
	if err := b.Webhooks.Teardown(ctx, mapping.DiscordChannel, mapping.RevoltChannel); err != nil {
		b.Log.Warn().Err(err).Str("discord_channel_id", mapping.DiscordChannel).Msg("Failed to delete webhook of deleted channel")
	}
	b.Log.Info().
		Str("revolt_channel_id", evt.ChannelID).
		Str("discord_channel_id", mapping.DiscordChannel).
		Msg("Automatically disconnected deleted Revolt channel")
	return nil
}
