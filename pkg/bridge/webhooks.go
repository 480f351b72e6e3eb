// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"go.mau.fi/util/exsync"

	"github.com/aiku/revcord/pkg/database"
)

// WebhookRegistry owns the Discord webhooks that deliver Revolt messages,
// one per bridged channel pair, keyed by Revolt channel ID.
type WebhookRegistry struct {
	discord DiscordSession
	log     zerolog.Logger
	hooks   *exsync.Map[string, *discordgo.Webhook]
}

func NewWebhookRegistry(discord DiscordSession, log zerolog.Logger) *WebhookRegistry {
	return &WebhookRegistry{
		discord: discord,
		log:     log.With().Str("component", "webhooks").Logger(),
		hooks:   exsync.NewMap[string, *discordgo.Webhook](),
	}
}

// Get returns the webhook of a bridged Revolt channel.
func (w *WebhookRegistry) Get(revoltChannelID string) (*discordgo.Webhook, bool) {
	return w.hooks.Get(revoltChannelID)
}

// List returns every known webhook.
func (w *WebhookRegistry) List() []*discordgo.Webhook {
	data := w.hooks.CopyData()
	out := make([]*discordgo.Webhook, 0, len(data))
	for _, hook := range data {
		out = append(out, hook)
	}
	return out
}

// IsOwn reports whether webhookID belongs to the bridge.
func (w *WebhookRegistry) IsOwn(webhookID string) bool {
	if webhookID == "" {
		return false
	}
	for _, hook := range w.hooks.CopyData() {
		if hook.ID == webhookID {
			return true
		}
	}
	return false
}

// Provision returns the webhook for the pair, reusing an existing one in
// the Discord channel before creating a new one.
func (w *WebhookRegistry) Provision(ctx context.Context, discordChannelID, revoltChannelID string) (*discordgo.Webhook, error) {
	if hook, ok := w.hooks.Get(revoltChannelID); ok && hook.ChannelID == discordChannelID {
		return hook, nil
	}
	name := MakeWebhookName(revoltChannelID)
	existing, err := w.find(ctx, discordChannelID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		w.hooks.Set(revoltChannelID, existing)
		return existing, nil
	}
	hook, err := w.discord.WebhookCreate(discordChannelID, name, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook in %s: %w", discordChannelID, err)
	}
	w.hooks.Set(revoltChannelID, hook)
	w.log.Info().
		Str("discord_channel_id", discordChannelID).
		Str("revolt_channel_id", revoltChannelID).
		Str("webhook_id", hook.ID).
		Msg("Created webhook")
	return hook, nil
}

func (w *WebhookRegistry) find(ctx context.Context, discordChannelID, name string) (*discordgo.Webhook, error) {
	hooks, err := w.discord.ChannelWebhooks(discordChannelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks of %s: %w", discordChannelID, err)
	}
	for _, hook := range hooks {
		if hook.Name == name {
			return hook, nil
		}
	}
	return nil, nil
}

// Teardown deletes the pair's webhook on Discord and forgets it. A webhook
// that is already gone is not an error.
func (w *WebhookRegistry) Teardown(ctx context.Context, discordChannelID, revoltChannelID string) error {
	hook, ok := w.hooks.Pop(revoltChannelID)
	if !ok {
		var err error
		hook, err = w.find(ctx, discordChannelID, MakeWebhookName(revoltChannelID))
		if err != nil {
			return err
		}
		if hook == nil {
			return nil
		}
	}
	if err := w.discord.WebhookDelete(hook.ID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete webhook %s: %w", hook.ID, err)
	}
	w.log.Info().
		Str("revolt_channel_id", revoltChannelID).
		Str("webhook_id", hook.ID).
		Msg("Deleted webhook")
	return nil
}

// Forget drops the cached webhook without touching Discord.
func (w *WebhookRegistry) Forget(revoltChannelID string) {
	w.hooks.Delete(revoltChannelID)
}

// ProvisionAll provisions a webhook for every mapping. Failures are logged
// and do not stop the others.
func (w *WebhookRegistry) ProvisionAll(ctx context.Context, mappings []database.Mapping) int {
	provisioned := 0
	for _, m := range mappings {
		if _, err := w.Provision(ctx, m.DiscordChannel, m.RevoltChannel); err != nil {
			w.log.Error().Err(err).
				Str("discord_channel_id", m.DiscordChannel).
				Str("revolt_channel_id", m.RevoltChannel).
				Msg("Failed to provision webhook")
			continue
		}
		provisioned++
	}
	return provisioned
}

// Send executes the pair's webhook and waits for the created message.
func (w *WebhookRegistry) Send(ctx context.Context, revoltChannelID string, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	hook, ok := w.hooks.Get(revoltChannelID)
	if !ok {
		return nil, &EntityNotFoundError{Kind: "webhook", ID: MakeWebhookName(revoltChannelID)}
	}
	msg, err := w.discord.WebhookExecute(hook.ID, hook.Token, true, params, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to execute webhook %s: %w", hook.ID, err)
	}
	return msg, nil
}

// Edit edits a message previously sent through the pair's webhook.
func (w *WebhookRegistry) Edit(ctx context.Context, revoltChannelID, messageID string, edit *discordgo.WebhookEdit) error {
	hook, ok := w.hooks.Get(revoltChannelID)
	if !ok {
		return &EntityNotFoundError{Kind: "webhook", ID: MakeWebhookName(revoltChannelID)}
	}
	if _, err := w.discord.WebhookMessageEdit(hook.ID, hook.Token, messageID, edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to edit webhook message %s: %w", messageID, err)
	}
	return nil
}

// Delete deletes a message previously sent through the pair's webhook.
func (w *WebhookRegistry) Delete(ctx context.Context, revoltChannelID, messageID string) error {
	hook, ok := w.hooks.Get(revoltChannelID)
	if !ok {
		return &EntityNotFoundError{Kind: "webhook", ID: MakeWebhookName(revoltChannelID)}
	}
	if err := w.discord.WebhookMessageDelete(hook.ID, hook.Token, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete webhook message %s: %w", messageID, err)
	}
	return nil
}
