// Copyright 2024-2026 Aiku AI

// Package discordfmt converts Discord message content to Revolt markdown.
package discordfmt

import (
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/aiku/revcord/pkg/bridge/textlimit"
)

// MaxEmojis is how many custom emojis per message are turned into links.
// The rest are left as they are.
const MaxEmojis = 5

var (
	EmojiPattern   = regexp.MustCompile(`<(:|a:)(.+?):([0-9]{1,22})>`)
	MentionPattern = regexp.MustCompile(`<@!?([0-9]{1,22})>`)
	ChannelPattern = regexp.MustCompile(`<#([0-9]{1,22})>`)
)

// Message is the Discord side input of Format.
type Message struct {
	Content string
	// Mentions holds the users mentioned in Content, in any order.
	Mentions []*discordgo.User
	// Channels holds the mentioned channels in the order their mentions
	// appear in Content. Nil entries are left unresolved.
	Channels    []*discordgo.Channel
	Attachments []*discordgo.MessageAttachment
	StickerURL  string
}

// EmojiURL returns the CDN URL of a custom Discord emoji.
func EmojiURL(id string) string {
	return "https://cdn.discordapp.com/emojis/" + id + ".webp?size=32&quality=lossless"
}

// StickerURL returns the media URL of a Discord sticker.
func StickerURL(id string) string {
	return "https://media.discordapp.net/stickers/" + id + ".webp"
}

// Format renders a Discord message as Revolt markdown: custom emojis become
// image links, user mentions become plain names, channel mentions become
// #name and attachments are appended one URL per line.
func Format(msg Message) string {
	content := replaceEmojis(msg.Content)
	content = replaceMentions(content, msg.Mentions)
	content = replaceChannels(content, msg.Channels)

	var sb strings.Builder
	sb.WriteString(content)
	sb.WriteByte('\n')
	for _, att := range msg.Attachments {
		if att == nil || att.URL == "" {
			continue
		}
		sb.WriteString(att.URL)
		sb.WriteByte('\n')
	}
	if msg.StickerURL != "" {
		sb.WriteString(msg.StickerURL)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func replaceEmojis(content string) string {
	count := 0
	return EmojiPattern.ReplaceAllStringFunc(content, func(match string) string {
		if count >= MaxEmojis {
			return match
		}
		parts := EmojiPattern.FindStringSubmatch(match)
		if len(parts) < 4 || parts[2] == "" {
			return match
		}
		count++
		return "[:" + parts[2] + ":](" + EmojiURL(parts[3]) + ")"
	})
}

// MentionName renders a user the way mentions appear on Revolt. The
// discriminator is only shown for legacy accounts that still have one.
func MentionName(u *discordgo.User) string {
	if u.Discriminator != "" && u.Discriminator != "0" {
		return u.Username + "#" + u.Discriminator
	}
	return u.Username
}

func replaceMentions(content string, mentions []*discordgo.User) string {
	if len(mentions) == 0 {
		return content
	}
	byID := make(map[string]*discordgo.User, len(mentions))
	for _, u := range mentions {
		if u != nil {
			byID[u.ID] = u
		}
	}
	return MentionPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := MentionPattern.FindStringSubmatch(match)
		u, ok := byID[parts[1]]
		if !ok {
			return match
		}
		return "[@" + MentionName(u) + "]()"
	})
}

func replaceChannels(content string, channels []*discordgo.Channel) string {
	index := 0
	return ChannelPattern.ReplaceAllStringFunc(content, func(match string) string {
		i := index
		index++
		if i >= len(channels) {
			return match
		}
		ch := channels[i]
		if ch == nil || ch.Type != discordgo.ChannelTypeGuildText {
			return match
		}
		return "#" + ch.Name
	})
}

// ChannelMentionIDs returns the IDs of the channel mentions in content, in
// order, duplicates included.
func ChannelMentionIDs(content string) []string {
	matches := ChannelPattern.FindAllStringSubmatch(content, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}
	return ids
}

// ChannelName converts a Discord channel name for use on Revolt.
func ChannelName(name string) string {
	return textlimit.Truncate(name, textlimit.RevoltChannelName)
}
