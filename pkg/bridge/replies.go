// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/aiku/revcord/pkg/bridge/textlimit"
	"github.com/aiku/revcord/pkg/database"
	"github.com/aiku/revcord/pkg/revolt"
)

const (
	replyColour          = 0x5875e8
	replyPreviewLength   = 200
	replyAttachmentsNote = "contains file embed"
)

// replyContext is the quoted message a reply refers to.
type replyContext struct {
	Author      string
	AvatarURL   string
	Link        string
	Content     string
	Attachments int
}

// discordDescription renders the quote header used in Discord embeds.
func (r replyContext) discordDescription() string {
	content := textlimit.TruncateEllipsis(r.Content, replyPreviewLength)
	switch {
	case r.Link != "" && content != "":
		return "[**Reply to:**](" + r.Link + ") " + content
	case r.Link != "":
		return "[**Reply to**](" + r.Link + ")"
	case content != "":
		return "**Reply to**: " + content
	default:
		return "**Reply to**"
	}
}

// revoltDescription renders the quote used in Revolt text embeds.
func (r replyContext) revoltDescription() string {
	content := textlimit.TruncateEllipsis(r.Content, replyPreviewLength)
	if content == "" && r.Attachments > 0 {
		content = "*" + replyAttachmentsNote + "*"
	}
	return "**Reply to**: " + content
}

// discordReplyEmbed renders the reply as the embed put on top of a webhook
// message.
func (r replyContext) discordReplyEmbed() *discordgo.MessageEmbed {
	embed := RichEmbed{
		Description:   r.discordDescription(),
		Colour:        replyColour,
		Author:        r.Author,
		AuthorIconURL: r.AvatarURL,
	}
	if r.Attachments > 0 {
		embed.Footer = replyAttachmentsNote
	}
	return embed.ToDiscord()
}

// revoltReplyContext resolves the first reply of a Revolt message for
// display on Discord. It returns nil when the replied message is unknown.
func (b *Bridge) revoltReplyContext(ctx context.Context, replyID string, mapping database.Mapping) *replyContext {
	// The replied message is a copy of a Discord message.
	if corr, ok := b.DiscordCache.FindByTarget(replyID); ok {
		orig, err := b.Discord.ChannelMessage(corr.ChannelID, corr.SourceMessageID, discordgo.WithContext(ctx))
		if err != nil {
			b.Log.Warn().Err(err).
				Str("discord_message_id", corr.SourceMessageID).
				Msg("Failed to fetch replied Discord message")
			return nil
		}
		rc := &replyContext{
			Link:        discordMessageLink(mapping.DiscordGuild, corr.ChannelID, orig.ID),
			Content:     orig.Content,
			Attachments: len(orig.Attachments),
		}
		if orig.Author != nil {
			rc.Author = orig.Author.Username
			rc.AvatarURL = orig.Author.AvatarURL("")
		}
		return rc
	}

	orig, err := b.Revolt.FetchMessage(ctx, mapping.RevoltChannel, replyID)
	if err != nil {
		b.Log.Warn().Err(err).Str("revolt_message_id", replyID).Msg("Failed to fetch replied Revolt message")
		return nil
	}
	rc := &replyContext{
		Content:     orig.Content,
		Attachments: len(orig.Attachments),
	}
	if orig.Masquerade != nil && orig.Masquerade.Name != "" {
		rc.Author = orig.Masquerade.Name
		rc.AvatarURL = orig.Masquerade.Avatar
	} else if author, err := b.Revolt.User(ctx, orig.Author); err == nil {
		rc.Author = author.Username
		rc.AvatarURL = b.Revolt.AvatarURL(author)
	}
	if corr, ok := b.RevoltCache.FindBySource(replyID); ok {
		rc.Link = discordMessageLink(mapping.DiscordGuild, mapping.DiscordChannel, corr.TargetMessageID)
	}
	return rc
}

// discordReply resolves the message a Discord message replies to. A reply
// to a message that exists on Revolt becomes a native Revolt reply;
// otherwise the quoted message is returned for rendering as an embed.
func (b *Bridge) discordReply(ctx context.Context, msg *discordgo.Message) ([]revolt.Reply, *replyContext) {
	ref := msg.MessageReference
	if ref == nil || ref.MessageID == "" {
		return nil, nil
	}
	// The replied message is a webhook copy of a Revolt message.
	if corr, ok := b.RevoltCache.FindByTarget(ref.MessageID); ok {
		return []revolt.Reply{{ID: corr.SourceMessageID}}, nil
	}
	// The replied message was itself bridged to Revolt.
	if corr, ok := b.DiscordCache.FindBySource(ref.MessageID); ok {
		return []revolt.Reply{{ID: corr.TargetMessageID}}, nil
	}

	orig := msg.ReferencedMessage
	if orig == nil {
		channelID := ref.ChannelID
		if channelID == "" {
			channelID = msg.ChannelID
		}
		var err error
		orig, err = b.Discord.ChannelMessage(channelID, ref.MessageID, discordgo.WithContext(ctx))
		if err != nil {
			b.Log.Warn().Err(err).
				Str("discord_message_id", ref.MessageID).
				Msg("Failed to fetch replied message, the bot may be missing the View Message History permission")
			return nil, nil
		}
	}
	rc := &replyContext{
		Content:     orig.Content,
		Attachments: len(orig.Attachments),
	}
	if orig.Author != nil {
		rc.Author = orig.Author.Username
		rc.AvatarURL = orig.Author.AvatarURL("")
	}
	return nil, rc
}

// revoltReplyEmbed renders a Discord reply quote as a Revolt text embed.
func (r replyContext) revoltReplyEmbed() (revolt.SendableEmbed, error) {
	return RichEmbed{
		Title:       r.Author,
		IconURL:     r.AvatarURL,
		Description: r.revoltDescription(),
	}.ToRevolt()
}
