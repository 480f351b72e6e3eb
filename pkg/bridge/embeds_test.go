// Copyright 2024-2026 Aiku AI

package bridge

import (
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestRichEmbedFromDiscord(t *testing.T) {
	t.Parallel()
	re := RichEmbedFromDiscord(&discordgo.MessageEmbed{
		Title:       "Release",
		Description: "v1.2.0 is out",
		URL:         "https://example.com/r",
		Color:       0x123456,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: "https://example.com/t.png"},
		Author:      &discordgo.MessageEmbedAuthor{Name: "ci", IconURL: "https://example.com/ci.png"},
		Footer:      &discordgo.MessageEmbedFooter{Text: "built by ci"},
		Fields:      []*discordgo.MessageEmbedField{{Name: "Commit", Value: "abc123"}, nil},
	})
	if re.Title != "Release" || re.Colour != 0x123456 || re.IconURL != "https://example.com/t.png" {
		t.Errorf("got %+v", re)
	}
	if re.Author != "ci" || re.Footer != "built by ci" || len(re.Fields) != 1 {
		t.Errorf("got %+v", re)
	}
	if got := RichEmbedFromDiscord(nil); got.Title != "" || got.Fields != nil {
		t.Errorf("nil embed: got %+v", got)
	}
}

func TestRichEmbedToRevolt(t *testing.T) {
	t.Parallel()
	out, err := RichEmbed{
		Title:       "Release",
		Description: "v1.2.0 is out",
		Colour:      0x123456,
		Fields:      []EmbedField{{Name: "Commit", Value: "abc123"}},
		Footer:      "built by ci",
	}.ToRevolt()
	if err != nil {
		t.Fatalf("ToRevolt: %v", err)
	}
	if out.Colour != "#123456" {
		t.Errorf("Colour: got %q", out.Colour)
	}
	want := "v1.2.0 is out\n\n**Commit**\nabc123\n\n*built by ci*"
	if out.Description != want {
		t.Errorf("Description: got %q, want %q", out.Description, want)
	}

	authorOnly, err := RichEmbed{Author: "ci", AuthorIconURL: "https://example.com/ci.png"}.ToRevolt()
	if err != nil {
		t.Fatalf("author only: %v", err)
	}
	if authorOnly.Title != "ci" || authorOnly.IconURL != "https://example.com/ci.png" || authorOnly.Colour != "" {
		t.Errorf("author only: got %+v", authorOnly)
	}

	if _, err := (RichEmbed{Colour: 1}).ToRevolt(); !errors.Is(err, errEmptyEmbed) {
		t.Errorf("empty embed: got %v", err)
	}
}

func TestRichEmbedToDiscordLimits(t *testing.T) {
	t.Parallel()
	fields := make([]EmbedField, 30)
	for i := range fields {
		fields[i] = EmbedField{Name: "n", Value: "v"}
	}
	out := RichEmbed{
		Title:       strings.Repeat("t", 300),
		Description: "d",
		Author:      "someone",
		Footer:      "f",
		Fields:      fields,
	}.ToDiscord()
	if len(out.Title) != 256 {
		t.Errorf("Title length: got %d, want 256", len(out.Title))
	}
	if len(out.Fields) != maxDiscordEmbedFields {
		t.Errorf("Fields: got %d, want %d", len(out.Fields), maxDiscordEmbedFields)
	}
	if out.Author == nil || out.Author.Name != "someone" || out.Footer == nil || out.Footer.Text != "f" {
		t.Errorf("author/footer: got %+v / %+v", out.Author, out.Footer)
	}
	if out.Thumbnail != nil {
		t.Errorf("no icon means no thumbnail, got %+v", out.Thumbnail)
	}
}
