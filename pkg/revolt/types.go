// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package revolt

import "encoding/json"

// Channel types as reported in channel_type.
const (
	ChannelTypeText          = "TextChannel"
	ChannelTypeVoice         = "VoiceChannel"
	ChannelTypeDirectMessage = "DirectMessage"
	ChannelTypeGroup         = "Group"
	ChannelTypeSavedMessages = "SavedMessages"
)

// Channel is a Revolt channel. Server is empty for DMs and groups.
type Channel struct {
	ID          string `json:"_id"`
	ChannelType string `json:"channel_type"`
	Server      string `json:"server,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	NSFW        bool   `json:"nsfw,omitempty"`
}

// IsServerText reports whether the channel is a text channel in a server.
func (c *Channel) IsServerText() bool {
	return c != nil && c.ChannelType == ChannelTypeText && c.Server != ""
}

type Server struct {
	ID       string   `json:"_id"`
	Owner    string   `json:"owner"`
	Name     string   `json:"name"`
	Channels []string `json:"channels"`
}

// File is an uploaded attachment or avatar stored on Autumn.
type File struct {
	ID          string `json:"_id"`
	Tag         string `json:"tag"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

type BotInformation struct {
	Owner string `json:"owner"`
}

type User struct {
	ID            string          `json:"_id"`
	Username      string          `json:"username"`
	Discriminator string          `json:"discriminator,omitempty"`
	DisplayName   string          `json:"display_name,omitempty"`
	Avatar        *File           `json:"avatar,omitempty"`
	Bot           *BotInformation `json:"bot,omitempty"`
}

// IsBot reports whether the user is a bot account.
func (u *User) IsBot() bool {
	return u != nil && u.Bot != nil
}

type Masquerade struct {
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Colour string `json:"colour,omitempty"`
}

// Embed is an embed as received on a message.
type Embed struct {
	Type        string `json:"type"`
	URL         string `json:"url,omitempty"`
	IconURL     string `json:"icon_url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Colour      string `json:"colour,omitempty"`
}

type Message struct {
	ID          string          `json:"_id"`
	Nonce       string          `json:"nonce,omitempty"`
	Channel     string          `json:"channel"`
	Author      string          `json:"author"`
	Content     string          `json:"content,omitempty"`
	Attachments []File          `json:"attachments,omitempty"`
	Replies     []string        `json:"replies,omitempty"`
	Mentions    []string        `json:"mentions,omitempty"`
	Masquerade  *Masquerade     `json:"masquerade,omitempty"`
	Embeds      []Embed         `json:"embeds,omitempty"`
	System      json.RawMessage `json:"system,omitempty"`
}

// IsSystem reports whether the message is a system notice such as a join
// or a channel rename.
func (m *Message) IsSystem() bool {
	return len(m.System) > 0 && string(m.System) != "null"
}

type Reply struct {
	ID      string `json:"id"`
	Mention bool   `json:"mention"`
}

// SendableEmbed is a text embed attached to an outgoing message.
type SendableEmbed struct {
	IconURL     string `json:"icon_url,omitempty"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Colour      string `json:"colour,omitempty"`
}

type SendMessageData struct {
	Content    string          `json:"content,omitempty"`
	Replies    []Reply         `json:"replies,omitempty"`
	Masquerade *Masquerade     `json:"masquerade,omitempty"`
	Embeds     []SendableEmbed `json:"embeds,omitempty"`
}

type EditMessageData struct {
	Content *string         `json:"content,omitempty"`
	Embeds  []SendableEmbed `json:"embeds,omitempty"`
}

type CreateChannelData struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	NSFW        bool   `json:"nsfw,omitempty"`
}

type EditChannelData struct {
	Name        string  `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	NSFW        *bool   `json:"nsfw,omitempty"`
}
