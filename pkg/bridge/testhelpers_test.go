// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/aiku/revcord/pkg/database"
	"github.com/aiku/revcord/pkg/revolt"
)

const (
	testGuild          = "900"
	testDiscordGeneral = "111"
	testDiscordRandom  = "112"
	testDiscordVoice   = "113"
	testDiscordBot     = "999"

	testServer        = "01HSERVER00000000000000000"
	testRevoltGeneral = "01HGENERAL0000000000000000"
	testRevoltRandom  = "01HRANDOM00000000000000000"
	testRevoltVoice   = "01HVOICE000000000000000000"
	testRevoltSelf    = "01HSELF0000000000000000000"
	testRevoltOwner   = "01HOWNER000000000000000000"
	testRevoltAlice   = "01HALICE000000000000000000"
	testRevoltBotUser = "01HBOTUSER0000000000000000"
)

var errFake = errors.New("fake failure")

// discordCall records one call to fakeDiscord.
type discordCall struct {
	Method string
	Args   []string
}

// fakeDiscord is an in-memory DiscordSession. It records calls and keeps
// just enough state for the bridge to work against it.
type fakeDiscord struct {
	mu     sync.Mutex
	calls  []discordCall
	nextID int

	Channels  map[string]*discordgo.Channel
	Messages  map[string]*discordgo.Message
	Webhooks  map[string]*discordgo.Webhook
	Members   []*discordgo.Member
	Executed  []*discordgo.WebhookParams
	Edited    []*discordgo.WebhookEdit
	Commands  map[string][]*discordgo.ApplicationCommand
	Responses []*discordgo.InteractionResponse
	// Fail makes the named method return its error.
	Fail map[string]error
}

func newFakeDiscord() *fakeDiscord {
	return &fakeDiscord{
		nextID:   1000,
		Channels: make(map[string]*discordgo.Channel),
		Messages: make(map[string]*discordgo.Message),
		Webhooks: make(map[string]*discordgo.Webhook),
		Commands: make(map[string][]*discordgo.ApplicationCommand),
		Fail:     make(map[string]error),
	}
}

var _ DiscordSession = (*fakeDiscord)(nil)

// record must be called with f.mu held.
func (f *fakeDiscord) record(method string, args ...string) error {
	f.calls = append(f.calls, discordCall{Method: method, Args: args})
	return f.Fail[method]
}

func (f *fakeDiscord) newID() string {
	f.nextID++
	return fmt.Sprint(f.nextID)
}

func (f *fakeDiscord) Calls(method string) []discordCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []discordCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeDiscord) ExecutedParams() []*discordgo.WebhookParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.WebhookParams(nil), f.Executed...)
}

func (f *fakeDiscord) addChannel(ch *discordgo.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Channels[ch.ID] = ch
}

func (f *fakeDiscord) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Channel", channelID); err != nil {
		return nil, err
	}
	ch, ok := f.Channels[channelID]
	if !ok {
		return nil, fmt.Errorf("unknown channel %s", channelID)
	}
	return ch, nil
}

func (f *fakeDiscord) ChannelEdit(channelID string, data *discordgo.ChannelEdit, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ChannelEdit", channelID, data.Name, data.Topic); err != nil {
		return nil, err
	}
	ch, ok := f.Channels[channelID]
	if !ok {
		return nil, fmt.Errorf("unknown channel %s", channelID)
	}
	edited := *ch
	if data.Name != "" {
		edited.Name = data.Name
	}
	edited.Topic = data.Topic
	if data.NSFW != nil {
		edited.NSFW = *data.NSFW
	}
	f.Channels[channelID] = &edited
	return &edited, nil
}

func (f *fakeDiscord) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ChannelMessage", channelID, messageID); err != nil {
		return nil, err
	}
	msg, ok := f.Messages[messageID]
	if !ok {
		return nil, fmt.Errorf("unknown message %s", messageID)
	}
	return msg, nil
}

func (f *fakeDiscord) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GuildChannelCreateComplex", guildID, data.Name, data.ParentID); err != nil {
		return nil, err
	}
	ch := &discordgo.Channel{
		ID:       f.newID(),
		GuildID:  guildID,
		Name:     data.Name,
		Type:     data.Type,
		Topic:    data.Topic,
		NSFW:     data.NSFW,
		ParentID: data.ParentID,
	}
	f.Channels[ch.ID] = ch
	return ch, nil
}

func (f *fakeDiscord) GuildMembersSearch(guildID, query string, limit int, _ ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GuildMembersSearch", guildID, query); err != nil {
		return nil, err
	}
	var out []*discordgo.Member
	for _, m := range f.Members {
		if strings.HasPrefix(strings.ToLower(m.User.Username), strings.ToLower(query)) && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeDiscord) ChannelWebhooks(channelID string, _ ...discordgo.RequestOption) ([]*discordgo.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ChannelWebhooks", channelID); err != nil {
		return nil, err
	}
	var out []*discordgo.Webhook
	for _, hook := range f.Webhooks {
		if hook.ChannelID == channelID {
			out = append(out, hook)
		}
	}
	return out, nil
}

func (f *fakeDiscord) WebhookCreate(channelID, name, _ string, _ ...discordgo.RequestOption) (*discordgo.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("WebhookCreate", channelID, name); err != nil {
		return nil, err
	}
	id := f.newID()
	hook := &discordgo.Webhook{ID: id, ChannelID: channelID, Name: name, Token: "token-" + id}
	f.Webhooks[id] = hook
	return hook, nil
}

func (f *fakeDiscord) WebhookDelete(webhookID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("WebhookDelete", webhookID); err != nil {
		return err
	}
	delete(f.Webhooks, webhookID)
	return nil
}

func (f *fakeDiscord) WebhookExecute(webhookID, token string, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("WebhookExecute", webhookID, data.Content); err != nil {
		return nil, err
	}
	hook, ok := f.Webhooks[webhookID]
	if !ok || hook.Token != token {
		return nil, fmt.Errorf("unknown webhook %s", webhookID)
	}
	f.Executed = append(f.Executed, data)
	msg := &discordgo.Message{
		ID:        f.newID(),
		ChannelID: hook.ChannelID,
		WebhookID: webhookID,
		Content:   data.Content,
		Author:    &discordgo.User{ID: webhookID, Username: data.Username, Bot: true},
	}
	f.Messages[msg.ID] = msg
	return msg, nil
}

func (f *fakeDiscord) WebhookMessageEdit(webhookID, _, messageID string, data *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("WebhookMessageEdit", webhookID, messageID); err != nil {
		return nil, err
	}
	msg, ok := f.Messages[messageID]
	if !ok {
		return nil, fmt.Errorf("unknown message %s", messageID)
	}
	f.Edited = append(f.Edited, data)
	if data.Content != nil {
		msg.Content = *data.Content
	}
	return msg, nil
}

func (f *fakeDiscord) WebhookMessageDelete(webhookID, _, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("WebhookMessageDelete", webhookID, messageID); err != nil {
		return err
	}
	delete(f.Messages, messageID)
	return nil
}

func (f *fakeDiscord) ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ApplicationCommandBulkOverwrite", appID, guildID); err != nil {
		return nil, err
	}
	f.Commands[guildID] = commands
	return commands, nil
}

func (f *fakeDiscord) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("InteractionRespond", interaction.ID); err != nil {
		return err
	}
	f.Responses = append(f.Responses, resp)
	return nil
}

// sentRevolt is one message sent through fakeRevolt.
type sentRevolt struct {
	Channel string
	Data    revolt.SendMessageData
}

type editedRevolt struct {
	Channel string
	ID      string
	Data    revolt.EditMessageData
}

// fakeRevolt is an in-memory RevoltAPI.
type fakeRevolt struct {
	mu     sync.Mutex
	nextID int

	self     string
	channels map[string]*revolt.Channel
	servers  map[string]*revolt.Server
	users    map[string]*revolt.User
	messages map[string]*revolt.Message

	Sent           []sentRevolt
	Edits          []editedRevolt
	Deleted        []string
	EditedChannels []revolt.EditChannelData
	// SendErr is returned by SendMessage when set.
	SendErr error
}

func newFakeRevolt() *fakeRevolt {
	return &fakeRevolt{
		self:     testRevoltSelf,
		channels: make(map[string]*revolt.Channel),
		servers:  make(map[string]*revolt.Server),
		users:    make(map[string]*revolt.User),
		messages: make(map[string]*revolt.Message),
	}
}

var _ RevoltAPI = (*fakeRevolt)(nil)

func notFound() error {
	return &revolt.APIError{StatusCode: 404, Type: "NotFound"}
}

func (f *fakeRevolt) newID() string {
	f.nextID++
	return fmt.Sprintf("01HNEW%020d", f.nextID)
}

func (f *fakeRevolt) addChannel(ch *revolt.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[ch.ID] = ch
}

func (f *fakeRevolt) addUser(u *revolt.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func (f *fakeRevolt) addMessage(msg *revolt.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[msg.ID] = msg
}

func (f *fakeRevolt) SentMessages() []sentRevolt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentRevolt(nil), f.Sent...)
}

func (f *fakeRevolt) SelfID() string {
	return f.self
}

func (f *fakeRevolt) Channel(_ context.Context, channelID string) (*revolt.Channel, error) {
	ch, ok := f.CachedChannel(channelID)
	if !ok {
		return nil, notFound()
	}
	return ch, nil
}

func (f *fakeRevolt) Channels() []*revolt.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*revolt.Channel, 0, len(f.channels))
	for _, ch := range f.channels {
		out = append(out, ch)
	}
	return out
}

func (f *fakeRevolt) CachedChannel(channelID string) (*revolt.Channel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	return ch, ok
}

func (f *fakeRevolt) Server(_ context.Context, serverID string) (*revolt.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.servers[serverID]
	if !ok {
		return nil, notFound()
	}
	return s, nil
}

func (f *fakeRevolt) User(_ context.Context, userID string) (*revolt.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, notFound()
	}
	return u, nil
}

func (f *fakeRevolt) CreateChannel(_ context.Context, serverID string, data revolt.CreateChannelData) (*revolt.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &revolt.Channel{
		ID:          f.newID(),
		ChannelType: revolt.ChannelTypeText,
		Server:      serverID,
		Name:        data.Name,
		Description: data.Description,
		NSFW:        data.NSFW,
	}
	f.channels[ch.ID] = ch
	return ch, nil
}

func (f *fakeRevolt) EditChannel(_ context.Context, channelID string, data revolt.EditChannelData) (*revolt.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, notFound()
	}
	f.EditedChannels = append(f.EditedChannels, data)
	edited := *ch
	if data.Name != "" {
		edited.Name = data.Name
	}
	if data.Description != nil {
		edited.Description = *data.Description
	}
	if data.NSFW != nil {
		edited.NSFW = *data.NSFW
	}
	f.channels[channelID] = &edited
	return &edited, nil
}

func (f *fakeRevolt) SendMessage(_ context.Context, channelID string, data revolt.SendMessageData) (*revolt.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return nil, f.SendErr
	}
	f.Sent = append(f.Sent, sentRevolt{Channel: channelID, Data: data})
	msg := &revolt.Message{
		ID:         f.newID(),
		Channel:    channelID,
		Author:     f.self,
		Content:    data.Content,
		Masquerade: data.Masquerade,
	}
	f.messages[msg.ID] = msg
	return msg, nil
}

func (f *fakeRevolt) EditMessage(_ context.Context, channelID, messageID string, data revolt.EditMessageData) (*revolt.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, notFound()
	}
	f.Edits = append(f.Edits, editedRevolt{Channel: channelID, ID: messageID, Data: data})
	if data.Content != nil {
		msg.Content = *data.Content
	}
	return msg, nil
}

func (f *fakeRevolt) DeleteMessage(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.messages[messageID]; !ok {
		return notFound()
	}
	delete(f.messages, messageID)
	f.Deleted = append(f.Deleted, messageID)
	return nil
}

func (f *fakeRevolt) FetchMessage(_ context.Context, _, messageID string) (*revolt.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, notFound()
	}
	return msg, nil
}

func (f *fakeRevolt) FileURL(file *revolt.File) string {
	if file == nil || file.ID == "" {
		return ""
	}
	return "https://autumn.test/attachments/" + file.ID
}

func (f *fakeRevolt) AvatarURL(u *revolt.User) string {
	if u == nil {
		return ""
	}
	return "https://autumn.test/avatars/" + u.ID
}

func (f *fakeRevolt) AttachmentURL() string {
	return "https://autumn.test"
}

// testBridge bundles a bridge with its fakes.
type testBridge struct {
	*Bridge
	discord *fakeDiscord
	revolt  *fakeRevolt
}

// newTestBridge builds a bridge over fresh fakes and a temporary sqlite
// database. Both platforms know a guild/server with a "general" and a
// "random" text channel and a voice channel; nothing is connected yet.
func newTestBridge(t *testing.T) *testBridge {
	t.Helper()
	cfg, err := loadConfig(nil, env.Options{Environment: testEnv})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	cfg.Bridge.EchoGracePeriod = 0

	store, err := database.Open(filepath.Join(t.TempDir(), "revcord.sqlite"), zerolog.Nop())
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	fd := newFakeDiscord()
	fr := newFakeRevolt()
	b := New(cfg, fd, fr, store, zerolog.Nop())
	if err := b.Mappings.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	b.discordSelf = testDiscordBot
	b.discordAppID = "app"

	for _, ch := range []*discordgo.Channel{
		{ID: testDiscordGeneral, GuildID: testGuild, Name: "general", Type: discordgo.ChannelTypeGuildText, ParentID: "800"},
		{ID: testDiscordRandom, GuildID: testGuild, Name: "random", Type: discordgo.ChannelTypeGuildText},
		{ID: testDiscordVoice, GuildID: testGuild, Name: "Lounge", Type: discordgo.ChannelTypeGuildVoice},
	} {
		fd.addChannel(ch)
		b.discordChannels.Set(ch.ID, ch)
	}

	fr.servers[testServer] = &revolt.Server{ID: testServer, Owner: testRevoltOwner, Name: "Revolt HQ"}
	fr.addChannel(&revolt.Channel{ID: testRevoltGeneral, ChannelType: revolt.ChannelTypeText, Server: testServer, Name: "general"})
	fr.addChannel(&revolt.Channel{ID: testRevoltRandom, ChannelType: revolt.ChannelTypeText, Server: testServer, Name: "Random"})
	fr.addChannel(&revolt.Channel{ID: testRevoltVoice, ChannelType: revolt.ChannelTypeVoice, Server: testServer, Name: "voice"})
	fr.addUser(&revolt.User{ID: testRevoltOwner, Username: "owner"})
	fr.addUser(&revolt.User{ID: testRevoltAlice, Username: "alice"})
	fr.addUser(&revolt.User{ID: testRevoltBotUser, Username: "robot", Bot: &revolt.BotInformation{Owner: testRevoltOwner}})

	return &testBridge{Bridge: b, discord: fd, revolt: fr}
}

// connectGeneral connects the two "general" channels.
func (tb *testBridge) connectGeneral(t *testing.T) database.Mapping {
	t.Helper()
	m, err := tb.Connect(context.Background(), testDiscordGeneral, testRevoltGeneral)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return *m
}

func discordUserMessage(id, channelID, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		ChannelID: channelID,
		GuildID:   testGuild,
		Content:   content,
		Type:      discordgo.MessageTypeDefault,
		Author:    &discordgo.User{ID: "500", Username: "dave", Discriminator: "0"},
	}
}

func revoltUserMessage(id, channelID, authorID, content string) *revolt.Message {
	return &revolt.Message{ID: id, Channel: channelID, Author: authorID, Content: content}
}
