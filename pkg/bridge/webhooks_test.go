// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/aiku/revcord/pkg/database"
)

func TestWebhookProvisionIsIdempotent(t *testing.T) {
	t.Parallel()
	fd := newFakeDiscord()
	w := NewWebhookRegistry(fd, zerolog.Nop())
	ctx := context.Background()

	first, err := w.Provision(ctx, "111", "r1")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	second, err := w.Provision(ctx, "111", "r1")
	if err != nil {
		t.Fatalf("second Provision: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("webhook IDs differ: %s vs %s", first.ID, second.ID)
	}
	if calls := fd.Calls("WebhookCreate"); len(calls) != 1 {
		t.Errorf("WebhookCreate calls: got %d, want 1", len(calls))
	}
	if !w.IsOwn(first.ID) || w.IsOwn("") || w.IsOwn("someone-else") {
		t.Error("IsOwn should only match registered webhooks")
	}
	if hooks := w.List(); len(hooks) != 1 {
		t.Errorf("List: got %d", len(hooks))
	}
}

func TestWebhookTeardownFindsUncachedHook(t *testing.T) {
	t.Parallel()
	fd := newFakeDiscord()
	fd.Webhooks["55"] = &discordgo.Webhook{ID: "55", ChannelID: "111", Name: MakeWebhookName("r1"), Token: "t"}
	fd.Webhooks["56"] = &discordgo.Webhook{ID: "56", ChannelID: "111", Name: "someone else's hook", Token: "t"}
	w := NewWebhookRegistry(fd, zerolog.Nop())

	if err := w.Teardown(context.Background(), "111", "r1"); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	calls := fd.Calls("WebhookDelete")
	if len(calls) != 1 || calls[0].Args[0] != "55" {
		t.Errorf("WebhookDelete calls: got %+v", calls)
	}
	if err := w.Teardown(context.Background(), "111", "r1"); err != nil {
		t.Errorf("Teardown of a missing webhook should succeed, got %v", err)
	}
}

func TestWebhookSendWithoutProvision(t *testing.T) {
	t.Parallel()
	w := NewWebhookRegistry(newFakeDiscord(), zerolog.Nop())
	_, err := w.Send(context.Background(), "r1", &discordgo.WebhookParams{Content: "hi"})
	var nf *EntityNotFoundError
	if !errors.As(err, &nf) || nf.Kind != "webhook" {
		t.Errorf("got %v, want webhook not found", err)
	}
	if err := w.Edit(context.Background(), "r1", "m", &discordgo.WebhookEdit{}); !errors.As(err, &nf) {
		t.Errorf("Edit: got %v", err)
	}
	if err := w.Delete(context.Background(), "r1", "m"); !errors.As(err, &nf) {
		t.Errorf("Delete: got %v", err)
	}
}

func TestWebhookProvisionAll(t *testing.T) {
	t.Parallel()
	fd := newFakeDiscord()
	w := NewWebhookRegistry(fd, zerolog.Nop())
	fd.Fail["ChannelWebhooks"] = errFake

	n := w.ProvisionAll(context.Background(), []database.Mapping{
		{DiscordChannel: "111", RevoltChannel: "r1"},
		{DiscordChannel: "112", RevoltChannel: "r2"},
	})
	if n != 0 {
		t.Errorf("provisioned with failing API: got %d", n)
	}

	delete(fd.Fail, "ChannelWebhooks")
	n = w.ProvisionAll(context.Background(), []database.Mapping{
		{DiscordChannel: "111", RevoltChannel: "r1"},
		{DiscordChannel: "112", RevoltChannel: "r2"},
	})
	if n != 2 {
		t.Errorf("provisioned: got %d, want 2", n)
	}
}

func TestWebhookForget(t *testing.T) {
	t.Parallel()
	fd := newFakeDiscord()
	w := NewWebhookRegistry(fd, zerolog.Nop())
	if _, err := w.Provision(context.Background(), "111", "r1"); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	w.Forget("r1")
	if _, ok := w.Get("r1"); ok {
		t.Error("Forget should drop the webhook")
	}
	if calls := fd.Calls("WebhookDelete"); len(calls) != 0 {
		t.Errorf("Forget should not call Discord: %+v", calls)
	}
}
