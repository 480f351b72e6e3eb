// Copyright 2024-2026 Aiku AI

// Package bridge mirrors messages and channel lifecycle events between
// Discord and Revolt.
//
// Discord messages reach Revolt as masqueraded bot messages. Revolt
// messages reach Discord through one webhook per bridged channel, named
// revcord-<revolt channel id>. Each platform's events are processed in
// order by a dedicated worker; see Router.
package bridge
