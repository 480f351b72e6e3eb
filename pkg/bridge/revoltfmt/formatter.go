// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package revoltfmt converts Revolt message content to Discord markdown.
package revoltfmt

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/aiku/revcord/pkg/bridge/textlimit"
	"github.com/aiku/revcord/pkg/revolt"
)

// MaxEmojis is how many custom emojis per message are turned into links.
const MaxEmojis = 3

var (
	// Revolt IDs are 26 character ULIDs.
	EmojiPattern   = regexp.MustCompile(`:([0-9A-Z]{26}):`)
	MentionPattern = regexp.MustCompile(`<@([0-9A-Z]{26})>`)
	ChannelPattern = regexp.MustCompile(`<#([0-9A-Z]{26})>`)
)

// ChannelResolver returns the name of a Revolt channel by ID.
type ChannelResolver func(id string) (string, bool)

// Options are the per-instance settings of Format.
type Options struct {
	// AttachmentURL is the base URL of the Revolt file server.
	AttachmentURL string
}

// Message is the Revolt side input of Format.
type Message struct {
	Content string
	// Mentions holds the users mentioned in Content, in any order.
	Mentions []*revolt.User
	// Attachments are absolute file URLs.
	Attachments []string
	// Channel resolves channel mentions. When nil they are left as is.
	Channel ChannelResolver
}

// EmojiURL returns the image URL of a custom Revolt emoji.
func (o Options) EmojiURL(id string) string {
	return strings.TrimSuffix(o.AttachmentURL, "/") + "/emojis/" + url.PathEscape(id) + "/?width=32&quality=lossless"
}

// Format renders a Revolt message as Discord markdown: custom emojis become
// bare image URLs, which Discord unfurls, user mentions become @username
// and channel mentions become #name. Attachments follow one URL per line.
func (o Options) Format(msg Message) string {
	content := o.replaceEmojis(msg.Content)
	content = replaceMentions(content, msg.Mentions)
	content = replaceChannels(content, msg.Channel)

	var sb strings.Builder
	sb.WriteString(content)
	sb.WriteByte('\n')
	for _, u := range msg.Attachments {
		if u == "" {
			continue
		}
		sb.WriteString(u)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (o Options) replaceEmojis(content string) string {
	count := 0
	return EmojiPattern.ReplaceAllStringFunc(content, func(match string) string {
		if count >= MaxEmojis {
			return match
		}
		count++
		return o.EmojiURL(match[1 : len(match)-1])
	})
}

func replaceMentions(content string, mentions []*revolt.User) string {
	if len(mentions) == 0 {
		return content
	}
	byID := make(map[string]*revolt.User, len(mentions))
	for _, u := range mentions {
		if u != nil {
			byID[u.ID] = u
		}
	}
	return MentionPattern.ReplaceAllStringFunc(content, func(match string) string {
		u, ok := byID[match[2:len(match)-1]]
		if !ok {
			return match
		}
		return "@" + u.Username
	})
}

func replaceChannels(content string, resolve ChannelResolver) string {
	if resolve == nil {
		return content
	}
	return ChannelPattern.ReplaceAllStringFunc(content, func(match string) string {
		name, ok := resolve(match[2 : len(match)-1])
		if !ok {
			return match
		}
		return "#" + name
	})
}

func uniqueSubmatches(pattern *regexp.Regexp, content string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, m := range pattern.FindAllStringSubmatch(content, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	}
	return ids
}

// MentionIDs returns the distinct user IDs mentioned in content.
func MentionIDs(content string) []string {
	return uniqueSubmatches(MentionPattern, content)
}

// ChannelMentionIDs returns the distinct channel IDs mentioned in content.
func ChannelMentionIDs(content string) []string {
	return uniqueSubmatches(ChannelPattern, content)
}

// ChannelName converts a Revolt channel name into a valid Discord text
// channel name.
func ChannelName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Join(strings.Fields(name), "-")
	return textlimit.Truncate(name, textlimit.DiscordChannelName)
}
