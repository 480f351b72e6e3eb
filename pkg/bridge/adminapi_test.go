// Copyright 2024-2026 Aiku AI

package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func adminRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAdminConnectFlow(t *testing.T) {
	t.Parallel()
	tb := newTestBridge(t)
	h := tb.AdminHandler()

	rec := adminRequest(t, h, http.MethodPost, "/api/connect", `{"discord":"general","revolt":"general"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("connect: got %d: %s", rec.Code, rec.Body)
	}
	var pair ConnectionPair
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pair.DiscordChannelID != testDiscordGeneral || pair.RevoltChannelID != testRevoltGeneral || pair.AllowBots {
		t.Errorf("pair: got %+v", pair)
	}

	rec = adminRequest(t, h, http.MethodGet, "/api/connections", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("connections: got %d", rec.Code)
	}
	var list struct {
		Connections []ConnectionPair `json:"connections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Connections) != 1 || list.Connections[0] != pair {
		t.Errorf("connections: got %+v", list.Connections)
	}

	rec = adminRequest(t, h, http.MethodPost, "/api/allow-bots", `{"side":"revolt","channel_id":"`+testRevoltGeneral+`"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"allow_bots":true`) {
		t.Errorf("allow-bots: got %d: %s", rec.Code, rec.Body)
	}

	rec = adminRequest(t, h, http.MethodPost, "/api/disconnect", `{"side":"discord","channel_id":"`+testDiscordGeneral+`"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"disconnected":true`) {
		t.Errorf("disconnect: got %d: %s", rec.Code, rec.Body)
	}
	if n := len(tb.Mappings.All()); n != 0 {
		t.Errorf("mappings after disconnect: got %d", n)
	}
}

func TestAdminErrors(t *testing.T) {
	t.Parallel()
	tb := newTestBridge(t)
	h := tb.AdminHandler()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		errMsg string
	}{
		{"invalid json", http.MethodPost, "/api/connect", `{`, http.StatusBadRequest, "invalid JSON"},
		{"missing fields", http.MethodPost, "/api/connect", `{"discord":"general"}`, http.StatusBadRequest, "discord and revolt are required"},
		{"unknown channel", http.MethodPost, "/api/connect", `{"discord":"general","revolt":"nope"}`, http.StatusBadRequest, "Revolt channel not found."},
		{"bad side", http.MethodPost, "/api/disconnect", `{"side":"irc","channel_id":"1"}`, http.StatusBadRequest, `unknown side "irc"`},
		{"missing channel", http.MethodPost, "/api/allow-bots", `{"side":"discord"}`, http.StatusBadRequest, "channel_id is required"},
		{"not connected", http.MethodPost, "/api/disconnect", `{"side":"discord","channel_id":"111"}`, http.StatusBadRequest, "This channel is not connected to anything."},
		{"too large", http.MethodPost, "/api/connect", `{"discord":"` + strings.Repeat("x", maxAdminBodySize) + `"}`, http.StatusRequestEntityTooLarge, "request body too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := adminRequest(t, h, tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Errorf("status: got %d, want %d", rec.Code, tt.status)
			}
			var resp adminError
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode %q: %v", rec.Body, err)
			}
			if resp.Error != tt.errMsg {
				t.Errorf("error: got %q, want %q", resp.Error, tt.errMsg)
			}
		})
	}

	if rec := adminRequest(t, h, http.MethodGet, "/api/connect", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/connect: got %d, want 405", rec.Code)
	}
}

func TestAdminInternalErrorHidesDetails(t *testing.T) {
	t.Parallel()
	tb := newTestBridge(t)
	rec := httptest.NewRecorder()
	tb.writeAdminError(rec, httptest.NewRequest(http.MethodGet, "/api/connections", nil), errFake)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), errFake.Error()) {
		t.Errorf("internal error details should not leak: %s", rec.Body)
	}

	rec = httptest.NewRecorder()
	tb.writeAdminError(rec, httptest.NewRequest(http.MethodGet, "/", nil), &EntityNotFoundError{Kind: "user", ID: "bob"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("not found status: got %d", rec.Code)
	}
}
