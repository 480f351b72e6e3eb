// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package revolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("revolt client closed")

// AddHandler registers a function called for every decoded gateway event.
// Handlers run on the gateway goroutine and must not block for long.
func (c *Client) AddHandler(handler func(Event)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers = append(c.handlers, handler)
}

func (c *Client) emit(evt Event) {
	c.handlersMu.RLock()
	handlers := c.handlers
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		h(evt)
	}
}

// Connect verifies the token, opens the websocket and starts the event loop.
// Lost connections are re-established until Close is called.
func (c *Client) Connect(ctx context.Context) error {
	if c.stopped() {
		return ErrClosed
	}
	me, err := c.FetchSelf(ctx)
	if err != nil {
		return err
	}
	c.log.Info().Str("user_id", me.ID).Str("username", me.Username).Msg("Authenticated")

	if err := c.connectWebSocket(ctx); err != nil {
		return err
	}
	go c.listenWebSocket()
	go c.pingLoop()
	return nil
}

func (c *Client) gatewayURL() (string, error) {
	u, err := url.Parse(c.websocketURL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket url %q: %w", c.websocketURL, err)
	}
	q := u.Query()
	q.Set("version", "1")
	q.Set("format", "json")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) connectWebSocket(ctx context.Context) error {
	wsURL, err := c.gatewayURL()
	if err != nil {
		return err
	}
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial gateway: %w", err)
	}
	auth := map[string]string{"type": "Authenticate", "token": c.token}
	if err := conn.WriteJSON(auth); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to authenticate gateway: %w", err)
	}

	c.connMu.Lock()
	old := c.conn
	c.conn = conn
	c.connMu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	c.log.Info().Str("ws_url", c.websocketURL).Msg("WebSocket connected")
	return nil
}

func (c *Client) currentConn() *websocket.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *Client) stopped() bool {
	select {
	case <-c.stopChan:
		return true
	default:
		return false
	}
}

func (c *Client) listenWebSocket() {
	for {
		conn := c.currentConn()
		if conn == nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.stopped() {
				return
			}
			c.log.Warn().Err(err).Msg("WebSocket read failed, reconnecting")
			if !c.reconnect() {
				return
			}
			continue
		}

		evt, err := c.decodeFrame(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("Failed to decode gateway frame")
			continue
		}
		if evt != nil {
			c.emit(evt)
		}
	}
}

// reconnect retries until a connection is made or the client is closed.
func (c *Client) reconnect() bool {
	for attempt := 1; ; attempt++ {
		select {
		case <-c.stopChan:
			return false
		case <-time.After(c.reconnectDelay):
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := c.connectWebSocket(ctx)
		cancel()
		if err == nil {
			return true
		}
		c.log.Error().Err(err).Int("attempt", attempt).Msg("Failed to reconnect WebSocket")
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				ping := map[string]any{"type": "Ping", "data": time.Now().UnixMilli()}
				if err := c.conn.WriteJSON(ping); err != nil {
					c.log.Debug().Err(err).Msg("Failed to send ping")
				}
			}
			c.connMu.Unlock()
		}
	}
}

// Close stops the event loop and closes the websocket.
func (c *Client) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// decodeFrame turns one gateway frame into an Event and keeps the entity
// caches current. It returns (nil, nil) for frames handlers don't see.
func (c *Client) decodeFrame(data []byte) (Event, error) {
	var envelope struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal frame: %w", err)
	}

	switch envelope.Type {
	case "Authenticated":
		c.log.Debug().Msg("Gateway session authenticated")
		return nil, nil
	case "Pong":
		return nil, nil
	case "Error":
		return nil, fmt.Errorf("gateway error: %s", envelope.Error)
	case "Ready":
		var evt ReadyEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Ready: %w", err)
		}
		for i := range evt.Users {
			c.users.Set(evt.Users[i].ID, &evt.Users[i])
		}
		for i := range evt.Servers {
			c.servers.Set(evt.Servers[i].ID, &evt.Servers[i])
		}
		for i := range evt.Channels {
			c.channels.Set(evt.Channels[i].ID, &evt.Channels[i])
		}
		c.log.Info().
			Int("servers", len(evt.Servers)).
			Int("channels", len(evt.Channels)).
			Msg("Gateway ready")
		return &evt, nil
	case "Message":
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Message: %w", err)
		}
		return &MessageEvent{Message: &msg}, nil
	case "MessageUpdate":
		var evt MessageUpdateEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal MessageUpdate: %w", err)
		}
		return &evt, nil
	case "MessageDelete":
		var evt MessageDeleteEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal MessageDelete: %w", err)
		}
		return &evt, nil
	case "ChannelCreate":
		var ch Channel
		if err := json.Unmarshal(data, &ch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ChannelCreate: %w", err)
		}
		c.channels.Set(ch.ID, &ch)
		return &ChannelCreateEvent{Channel: &ch}, nil
	case "ChannelUpdate":
		var raw struct {
			ID    string          `json:"id"`
			Data  json.RawMessage `json:"data"`
			Clear []string        `json:"clear"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ChannelUpdate: %w", err)
		}
		merged := Channel{ID: raw.ID}
		before, cached := c.channels.Get(raw.ID)
		if cached {
			merged = *before
		} else {
			before = nil
		}
		if len(raw.Data) > 0 {
			if err := json.Unmarshal(raw.Data, &merged); err != nil {
				return nil, fmt.Errorf("failed to apply ChannelUpdate data: %w", err)
			}
		}
		for _, field := range raw.Clear {
			if field == "Description" {
				merged.Description = ""
			}
		}
		merged.ID = raw.ID
		c.channels.Set(raw.ID, &merged)
		return &ChannelUpdateEvent{Channel: &merged, Before: before, Clear: raw.Clear}, nil
	case "ChannelDelete":
		var raw struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ChannelDelete: %w", err)
		}
		ch, _ := c.channels.Pop(raw.ID)
		return &ChannelDeleteEvent{ID: raw.ID, Channel: ch}, nil
	default:
		c.log.Trace().Str("event_type", envelope.Type).Msg("Unhandled event type")
		return nil, nil
	}
}
