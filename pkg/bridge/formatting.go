// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/aiku/revcord/pkg/bridge/discordfmt"
	"github.com/aiku/revcord/pkg/bridge/revoltfmt"
	"github.com/aiku/revcord/pkg/bridge/textlimit"
	"github.com/aiku/revcord/pkg/revolt"
)

// formatDiscordMessage renders a Discord message for Revolt, resolving the
// mentioned channels in the order they appear.
func (b *Bridge) formatDiscordMessage(ctx context.Context, msg *discordgo.Message) string {
	ids := discordfmt.ChannelMentionIDs(msg.Content)
	channels := make([]*discordgo.Channel, len(ids))
	for i, id := range ids {
		ch, err := b.discordChannel(ctx, id)
		if err != nil {
			b.Log.Debug().Err(err).Str("channel_id", id).Msg("Failed to resolve channel mention")
			continue
		}
		channels[i] = ch
	}
	in := discordfmt.Message{
		Content:     msg.Content,
		Mentions:    msg.Mentions,
		Channels:    channels,
		Attachments: msg.Attachments,
	}
	if len(msg.StickerItems) > 0 && msg.StickerItems[0] != nil {
		in.StickerURL = discordfmt.StickerURL(msg.StickerItems[0].ID)
	}
	return textlimit.Truncate(discordfmt.Format(in), textlimit.RevoltContent)
}

// formatRevoltMessage renders a Revolt message for Discord.
func (b *Bridge) formatRevoltMessage(ctx context.Context, msg *revolt.Message) string {
	in := revoltfmt.Message{
		Content: msg.Content,
		Channel: func(id string) (string, bool) {
			ch, err := b.Revolt.Channel(ctx, id)
			if err != nil || ch.Name == "" {
				return "", false
			}
			return ch.Name, true
		},
	}
	for _, id := range revoltfmt.MentionIDs(msg.Content) {
		u, err := b.Revolt.User(ctx, id)
		if err != nil {
			b.Log.Debug().Err(err).Str("user_id", id).Msg("Failed to resolve mention")
			continue
		}
		in.Mentions = append(in.Mentions, u)
	}
	for i := range msg.Attachments {
		if u := b.Revolt.FileURL(&msg.Attachments[i]); u != "" {
			in.Attachments = append(in.Attachments, u)
		}
	}
	opts := revoltfmt.Options{AttachmentURL: b.Revolt.AttachmentURL()}
	return textlimit.Truncate(opts.Format(in), textlimit.DiscordContent)
}

// discordAuthorName renders the display name of a Discord author for a
// Revolt masquerade.
func (b *Bridge) discordAuthorName(msg *discordgo.Message) string {
	u := msg.Author
	params := DisplaynameParams{
		Username:    u.Username,
		DisplayName: u.GlobalName,
		Platform:    SideDiscord.String(),
	}
	if u.Discriminator != "0" {
		params.Discriminator = u.Discriminator
	}
	if msg.Member != nil && msg.Member.Nick != "" {
		params.DisplayName = msg.Member.Nick
	}
	return textlimit.Truncate(b.Config.FormatDisplayname(params), textlimit.RevoltMasqueradeName)
}

// revoltAuthorName renders the display name of a Revolt author for a
// Discord webhook.
func (b *Bridge) revoltAuthorName(u *revolt.User) string {
	params := DisplaynameParams{
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		Discriminator: u.Discriminator,
		Platform:      SideRevolt.String(),
	}
	return textlimit.Truncate(b.Config.FormatDisplayname(params), textlimit.DiscordUsername)
}
