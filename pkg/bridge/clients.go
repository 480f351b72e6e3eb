// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/aiku/revcord/pkg/revolt"
)

// DiscordSession is the part of *discordgo.Session the bridge calls.
type DiscordSession interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMembersSearch(guildID, query string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)

	ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookDelete(webhookID string, options ...discordgo.RequestOption) error
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookMessageEdit(webhookID, token, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookMessageDelete(webhookID, token, messageID string, options ...discordgo.RequestOption) error

	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

var _ DiscordSession = (*discordgo.Session)(nil)

// RevoltAPI is the part of *revolt.Client the bridge calls.
type RevoltAPI interface {
	SelfID() string
	Channel(ctx context.Context, channelID string) (*revolt.Channel, error)
	Channels() []*revolt.Channel
	CachedChannel(channelID string) (*revolt.Channel, bool)
	Server(ctx context.Context, serverID string) (*revolt.Server, error)
	User(ctx context.Context, userID string) (*revolt.User, error)

	CreateChannel(ctx context.Context, serverID string, data revolt.CreateChannelData) (*revolt.Channel, error)
	EditChannel(ctx context.Context, channelID string, data revolt.EditChannelData) (*revolt.Channel, error)

	SendMessage(ctx context.Context, channelID string, data revolt.SendMessageData) (*revolt.Message, error)
	EditMessage(ctx context.Context, channelID, messageID string, data revolt.EditMessageData) (*revolt.Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	FetchMessage(ctx context.Context, channelID, messageID string) (*revolt.Message, error)

	FileURL(f *revolt.File) string
	AvatarURL(u *revolt.User) string
	AttachmentURL() string
}

var _ RevoltAPI = (*revolt.Client)(nil)
