// Copyright 2024-2026 Aiku AI

// Package textlimit holds the hard text limits of both platforms and a
// rune-safe truncation helper.
package textlimit

import "unicode/utf8"

const (
	// DiscordContent is the maximum length of a Discord message body.
	DiscordContent = 2000
	// DiscordUsername is the maximum length of a webhook username override.
	DiscordUsername = 80
	// DiscordChannelName is the maximum length of a Discord channel name.
	DiscordChannelName = 100
	DiscordEmbedTitle       = 256
	DiscordEmbedDescription = 4096
	DiscordEmbedFieldName   = 256
	DiscordEmbedFieldValue  = 1024
	DiscordEmbedFooter      = 2048

	// RevoltContent is kept below Revolt's 2000 character limit to leave
	// room for the reply and mention markup Revolt adds server-side.
	RevoltContent = 1984
	// RevoltMasqueradeName is the maximum length of a masquerade name.
	RevoltMasqueradeName = 32
	// RevoltChannelName is the maximum length of a Revolt channel name.
	RevoltChannelName      = 32
	RevoltEmbedTitle       = 100
	RevoltEmbedDescription = 2000
)

// Truncate shortens s to at most n runes. Strings that already fit are
// returned unchanged.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// TruncateEllipsis is like Truncate but marks a cut with a trailing "…",
// which counts toward n.
func TruncateEllipsis(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 1 {
		return Truncate(s, n)
	}
	return Truncate(s, n-1) + "…"
}
