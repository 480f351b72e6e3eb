// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package revolt is a small Revolt bot client: the REST calls a bridge
// needs plus the websocket event stream.
package revolt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dghubble/sling"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.mau.fi/util/exsync"
)

const (
	DefaultAPIURL        = "https://api.revolt.chat"
	DefaultWebsocketURL  = "wss://ws.revolt.chat"
	DefaultAttachmentURL = "https://autumn.revolt.chat"

	defaultHTTPTimeout = 30 * time.Second
)

// APIError is a non-2xx response from the REST API.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Permission string `json:"permission,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("revolt api: status %d", e.StatusCode)
	if e.Type != "" {
		msg += " " + e.Type
	}
	if e.Permission != "" {
		msg += " (" + e.Permission + ")"
	}
	return msg
}

// IsForbidden reports whether err is a 403 from the REST API.
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}

// IsNotFound reports whether err is a 404 from the REST API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Options configures a Client. Empty URLs fall back to the public instance.
type Options struct {
	Token         string
	APIURL        string
	WebsocketURL  string
	AttachmentURL string
	HTTPClient    *http.Client
	Log           zerolog.Logger
}

// Client talks to one Revolt instance as a bot.
type Client struct {
	api           *sling.Sling
	apiURL        string
	token         string
	websocketURL  string
	attachmentURL string
	log           zerolog.Logger

	selfMu sync.RWMutex
	self   *User

	channels *exsync.Map[string, *Channel]
	servers  *exsync.Map[string, *Server]
	users    *exsync.Map[string, *User]

	handlersMu sync.RWMutex
	handlers   []func(Event)

	dialer         *websocket.Dialer
	pingInterval   time.Duration
	reconnectDelay time.Duration
	connMu         sync.Mutex
	conn           *websocket.Conn
	stopOnce       sync.Once
	stopChan       chan struct{}
}

// New creates a client. It does not touch the network.
func New(opts Options) *Client {
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	wsURL := opts.WebsocketURL
	if wsURL == "" {
		wsURL = DefaultWebsocketURL
	}
	attachmentURL := strings.TrimSuffix(opts.AttachmentURL, "/")
	if attachmentURL == "" {
		attachmentURL = DefaultAttachmentURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		api: sling.New().
			Client(httpClient).
			Base(apiURL).
			Set("x-bot-token", opts.Token).
			Set("User-Agent", "revcord (https://github.com/aiku/revcord)"),
		apiURL:         apiURL,
		token:          opts.Token,
		websocketURL:   wsURL,
		attachmentURL:  attachmentURL,
		log:            opts.Log.With().Str("component", "revolt_client").Logger(),
		channels:       exsync.NewMap[string, *Channel](),
		servers:        exsync.NewMap[string, *Server](),
		users:          exsync.NewMap[string, *User](),
		dialer:         websocket.DefaultDialer,
		pingInterval:   20 * time.Second,
		reconnectDelay: 5 * time.Second,
		stopChan:       make(chan struct{}),
	}
}

// do sends the request built by s and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, s *sling.Sling, out any) error {
	req, err := s.Request()
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req = req.WithContext(ctx)
	apiErr := &APIError{}
	resp, err := s.Do(req, out, apiErr)
	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		apiErr.StatusCode = resp.StatusCode
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, apiErr)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func escape(id string) string {
	return url.PathEscape(id)
}

// FetchSelf loads the bot's own user and remembers it.
func (c *Client) FetchSelf(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, c.api.New().Get("users/@me"), &u); err != nil {
		return nil, fmt.Errorf("failed to fetch own user: %w", err)
	}
	c.selfMu.Lock()
	c.self = &u
	c.selfMu.Unlock()
	c.users.Set(u.ID, &u)
	return &u, nil
}

// SelfID returns the bot's user ID, or "" before FetchSelf or Ready.
func (c *Client) SelfID() string {
	c.selfMu.RLock()
	defer c.selfMu.RUnlock()
	if c.self == nil {
		return ""
	}
	return c.self.ID
}

// Channel returns a channel from the cache, fetching it on a miss.
func (c *Client) Channel(ctx context.Context, channelID string) (*Channel, error) {
	if ch, ok := c.channels.Get(channelID); ok {
		return ch, nil
	}
	return c.FetchChannel(ctx, channelID)
}

// FetchChannel always asks the API and refreshes the cache.
func (c *Client) FetchChannel(ctx context.Context, channelID string) (*Channel, error) {
	var ch Channel
	if err := c.do(ctx, c.api.New().Get("channels/"+escape(channelID)), &ch); err != nil {
		return nil, fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}
	c.channels.Set(ch.ID, &ch)
	return &ch, nil
}

// Channels returns every cached channel.
func (c *Client) Channels() []*Channel {
	data := c.channels.CopyData()
	out := make([]*Channel, 0, len(data))
	for _, ch := range data {
		out = append(out, ch)
	}
	return out
}

// CachedChannel returns a channel only if it is already cached.
func (c *Client) CachedChannel(channelID string) (*Channel, bool) {
	return c.channels.Get(channelID)
}

// Server returns a server from the cache, fetching it on a miss.
func (c *Client) Server(ctx context.Context, serverID string) (*Server, error) {
	if srv, ok := c.servers.Get(serverID); ok {
		return srv, nil
	}
	var srv Server
	if err := c.do(ctx, c.api.New().Get("servers/"+escape(serverID)), &srv); err != nil {
		return nil, fmt.Errorf("failed to fetch server %s: %w", serverID, err)
	}
	c.servers.Set(srv.ID, &srv)
	return &srv, nil
}

// User returns a user from the cache, fetching it on a miss.
func (c *Client) User(ctx context.Context, userID string) (*User, error) {
	if u, ok := c.users.Get(userID); ok {
		return u, nil
	}
	var u User
	if err := c.do(ctx, c.api.New().Get("users/"+escape(userID)), &u); err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}
	c.users.Set(u.ID, &u)
	return &u, nil
}

func (c *Client) CreateChannel(ctx context.Context, serverID string, data CreateChannelData) (*Channel, error) {
	if data.Type == "" {
		data.Type = "Text"
	}
	var ch Channel
	s := c.api.New().Post("servers/" + escape(serverID) + "/channels").BodyJSON(&data)
	if err := c.do(ctx, s, &ch); err != nil {
		return nil, fmt.Errorf("failed to create channel in server %s: %w", serverID, err)
	}
	c.channels.Set(ch.ID, &ch)
	return &ch, nil
}

func (c *Client) EditChannel(ctx context.Context, channelID string, data EditChannelData) (*Channel, error) {
	var ch Channel
	s := c.api.New().Patch("channels/" + escape(channelID)).BodyJSON(&data)
	if err := c.do(ctx, s, &ch); err != nil {
		return nil, fmt.Errorf("failed to edit channel %s: %w", channelID, err)
	}
	c.channels.Set(ch.ID, &ch)
	return &ch, nil
}

func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	if err := c.do(ctx, c.api.New().Delete("channels/"+escape(channelID)), nil); err != nil {
		return fmt.Errorf("failed to delete channel %s: %w", channelID, err)
	}
	c.channels.Delete(channelID)
	return nil
}

func (c *Client) SendMessage(ctx context.Context, channelID string, data SendMessageData) (*Message, error) {
	var msg Message
	s := c.api.New().Post("channels/" + escape(channelID) + "/messages").BodyJSON(&data)
	if err := c.do(ctx, s, &msg); err != nil {
		return nil, fmt.Errorf("failed to send message to %s: %w", channelID, err)
	}
	return &msg, nil
}

func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, data EditMessageData) (*Message, error) {
	var msg Message
	s := c.api.New().Patch("channels/" + escape(channelID) + "/messages/" + escape(messageID)).BodyJSON(&data)
	if err := c.do(ctx, s, &msg); err != nil {
		return nil, fmt.Errorf("failed to edit message %s: %w", messageID, err)
	}
	return &msg, nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	s := c.api.New().Delete("channels/" + escape(channelID) + "/messages/" + escape(messageID))
	if err := c.do(ctx, s, nil); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, err)
	}
	return nil
}

func (c *Client) FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error) {
	var msg Message
	s := c.api.New().Get("channels/" + escape(channelID) + "/messages/" + escape(messageID))
	if err := c.do(ctx, s, &msg); err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", messageID, err)
	}
	return &msg, nil
}

// FileURL returns the public Autumn URL of an uploaded file.
func (c *Client) FileURL(f *File) string {
	if f == nil || f.ID == "" {
		return ""
	}
	tag := f.Tag
	if tag == "" {
		tag = "attachments"
	}
	return c.attachmentURL + "/" + tag + "/" + f.ID
}

// AvatarURL returns the user's avatar URL, or the default avatar served by
// the API when the user has none.
func (c *Client) AvatarURL(u *User) string {
	if u == nil {
		return ""
	}
	if u.Avatar != nil {
		return c.FileURL(u.Avatar)
	}
	return c.apiURL + "users/" + escape(u.ID) + "/default_avatar"
}

// AttachmentURL returns the Autumn base URL without a trailing slash.
func (c *Client) AttachmentURL() string {
	return c.attachmentURL
}
