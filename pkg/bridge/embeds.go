// Copyright 2024-2026 Aiku AI

package bridge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/aiku/revcord/pkg/bridge/textlimit"
	"github.com/aiku/revcord/pkg/revolt"
)

// maxDiscordEmbedFields is the number of fields Discord accepts per embed.
const maxDiscordEmbedFields = 25

var errEmptyEmbed = errors.New("embed has no content")

type EmbedField struct {
	Name  string
	Value string
}

// RichEmbed is a platform neutral embed that renders to either platform,
// applying that platform's limits. Colour 0 means no colour.
type RichEmbed struct {
	Title         string
	Description   string
	URL           string
	Colour        int
	IconURL       string
	Author        string
	AuthorIconURL string
	Footer        string
	Fields        []EmbedField
}

// RichEmbedFromDiscord converts a received Discord embed.
func RichEmbedFromDiscord(e *discordgo.MessageEmbed) RichEmbed {
	if e == nil {
		return RichEmbed{}
	}
	re := RichEmbed{
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
		Colour:      e.Color,
	}
	if e.Thumbnail != nil {
		re.IconURL = e.Thumbnail.URL
	}
	if e.Author != nil {
		re.Author = e.Author.Name
		re.AuthorIconURL = e.Author.IconURL
	}
	if e.Footer != nil {
		re.Footer = e.Footer.Text
	}
	for _, f := range e.Fields {
		if f == nil {
			continue
		}
		re.Fields = append(re.Fields, EmbedField{Name: f.Name, Value: f.Value})
	}
	return re
}

// ToDiscord renders the embed for Discord.
func (e RichEmbed) ToDiscord() *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       textlimit.Truncate(e.Title, textlimit.DiscordEmbedTitle),
		Description: textlimit.Truncate(e.Description, textlimit.DiscordEmbedDescription),
		URL:         e.URL,
		Color:       e.Colour,
	}
	if e.IconURL != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.IconURL}
	}
	if e.Author != "" {
		out.Author = &discordgo.MessageEmbedAuthor{
			Name:    textlimit.Truncate(e.Author, textlimit.DiscordEmbedTitle),
			IconURL: e.AuthorIconURL,
		}
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: textlimit.Truncate(e.Footer, textlimit.DiscordEmbedFooter)}
	}
	for i, f := range e.Fields {
		if i == maxDiscordEmbedFields {
			break
		}
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:  textlimit.Truncate(f.Name, textlimit.DiscordEmbedFieldName),
			Value: textlimit.Truncate(f.Value, textlimit.DiscordEmbedFieldValue),
		})
	}
	return out
}

// ToRevolt renders the embed as a Revolt text embed. Revolt embeds have no
// fields, author or footer, so those are folded into the description.
func (e RichEmbed) ToRevolt() (revolt.SendableEmbed, error) {
	title := e.Title
	if title == "" {
		title = e.Author
	}
	var parts []string
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	for _, f := range e.Fields {
		parts = append(parts, "**"+f.Name+"**\n"+f.Value)
	}
	if e.Footer != "" {
		parts = append(parts, "*"+e.Footer+"*")
	}
	description := strings.Join(parts, "\n\n")
	if title == "" && description == "" {
		return revolt.SendableEmbed{}, errEmptyEmbed
	}
	out := revolt.SendableEmbed{
		Title:       textlimit.Truncate(title, textlimit.RevoltEmbedTitle),
		Description: textlimit.Truncate(description, textlimit.RevoltEmbedDescription),
		URL:         e.URL,
		IconURL:     e.IconURL,
	}
	if out.IconURL == "" {
		out.IconURL = e.AuthorIconURL
	}
	if e.Colour != 0 {
		out.Colour = fmt.Sprintf("#%06x", e.Colour&0xffffff)
	}
	return out, nil
}
