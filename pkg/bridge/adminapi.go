// Copyright 2024-2026 Aiku AI

package bridge

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxAdminBodySize = 1 << 20

// ConnectRequest is the body of POST /api/connect.
type ConnectRequest struct {
	Discord string `json:"discord"`
	Revolt  string `json:"revolt"`
}

// ChannelRequest is the body of POST /api/disconnect and
// POST /api/allow-bots.
type ChannelRequest struct {
	Side      string `json:"side"`
	ChannelID string `json:"channel_id"`
}

type adminError struct {
	Error string `json:"error"`
}

// AdminHandler returns the HTTP handler of the admin API.
func (b *Bridge) AdminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/connections", b.HandleConnections)
	mux.HandleFunc("POST /api/connect", b.HandleConnect)
	mux.HandleFunc("POST /api/disconnect", b.HandleDisconnect)
	mux.HandleFunc("POST /api/allow-bots", b.HandleAllowBots)
	return mux
}

// HandleConnections is an HTTP handler for GET /api/connections.
func (b *Bridge) HandleConnections(w http.ResponseWriter, r *http.Request) {
	pairs, err := b.Connections(r.Context())
	if err != nil {
		b.writeAdminError(w, r, err)
		return
	}
	writeAdminJSON(w, http.StatusOK, map[string]any{"connections": pairs})
}

// HandleConnect is an HTTP handler for POST /api/connect.
func (b *Bridge) HandleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !decodeAdminBody(w, r, &req) {
		return
	}
	if req.Discord == "" || req.Revolt == "" {
		writeAdminJSON(w, http.StatusBadRequest, adminError{Error: "discord and revolt are required"})
		return
	}
	b.Log.Info().
		Str("remote_addr", r.RemoteAddr).
		Str("discord", req.Discord).
		Str("revolt", req.Revolt).
		Msg("Connect requested")
	mapping, err := b.Connect(r.Context(), req.Discord, req.Revolt)
	if err != nil {
		b.writeAdminError(w, r, err)
		return
	}
	writeAdminJSON(w, http.StatusOK, ConnectionPair{
		Discord:          mapping.DiscordChannelName,
		Revolt:           mapping.RevoltChannelName,
		DiscordChannelID: mapping.DiscordChannel,
		RevoltChannelID:  mapping.RevoltChannel,
		AllowBots:        mapping.AllowBots,
	})
}

// HandleDisconnect is an HTTP handler for POST /api/disconnect.
func (b *Bridge) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	side, channelID, ok := decodeChannelRequest(w, r)
	if !ok {
		return
	}
	if err := b.Disconnect(r.Context(), side, channelID); err != nil {
		b.writeAdminError(w, r, err)
		return
	}
	writeAdminJSON(w, http.StatusOK, map[string]bool{"disconnected": true})
}

// HandleAllowBots is an HTTP handler for POST /api/allow-bots. It toggles
// the flag and returns the new value.
func (b *Bridge) HandleAllowBots(w http.ResponseWriter, r *http.Request) {
	side, channelID, ok := decodeChannelRequest(w, r)
	if !ok {
		return
	}
	allowed, err := b.ToggleAllowBotsFor(r.Context(), side, channelID)
	if err != nil {
		b.writeAdminError(w, r, err)
		return
	}
	writeAdminJSON(w, http.StatusOK, map[string]bool{"allow_bots": allowed})
}

func decodeChannelRequest(w http.ResponseWriter, r *http.Request) (Side, string, bool) {
	var req ChannelRequest
	if !decodeAdminBody(w, r, &req) {
		return 0, "", false
	}
	side, err := ParseSide(req.Side)
	if err != nil {
		writeAdminJSON(w, http.StatusBadRequest, adminError{Error: err.Error()})
		return 0, "", false
	}
	if req.ChannelID == "" {
		writeAdminJSON(w, http.StatusBadRequest, adminError{Error: "channel_id is required"})
		return 0, "", false
	}
	return side, req.ChannelID, true
}

func decodeAdminBody(w http.ResponseWriter, r *http.Request, into any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxAdminBodySize)
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeAdminJSON(w, http.StatusRequestEntityTooLarge, adminError{Error: "request body too large"})
		return false
	}
	if err := json.Unmarshal(body, into); err != nil {
		writeAdminJSON(w, http.StatusBadRequest, adminError{Error: "invalid JSON"})
		return false
	}
	return true
}

func (b *Bridge) writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	if ce, ok := AsConnectionError(err); ok {
		writeAdminJSON(w, http.StatusBadRequest, adminError{Error: ce.Msg})
		return
	}
	var nf *EntityNotFoundError
	if errors.As(err, &nf) {
		writeAdminJSON(w, http.StatusNotFound, adminError{Error: nf.Error()})
		return
	}
	b.Log.Error().Err(err).Str("path", r.URL.Path).Msg("Admin API request failed")
	writeAdminJSON(w, http.StatusInternalServerError, adminError{Error: "internal error"})
}

func writeAdminJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
