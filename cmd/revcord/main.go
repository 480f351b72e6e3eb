// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command revcord bridges Discord and Revolt channels. Messages, edits,
// deletions and channel lifecycle events on one side are mirrored to the
// connected channel on the other.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	flag "maunium.net/go/mauflag"

	"github.com/aiku/revcord/pkg/bridge"
	"github.com/aiku/revcord/pkg/database"
	"github.com/aiku/revcord/pkg/revolt"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const discordIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentMessageContent

var (
	configPath      = flag.MakeFull("c", "config", "Path to the config file. Without one, only the environment is read.", "").String()
	generateExample = flag.MakeFull("e", "generate-example-config", "Print the example config and exit.", "false").Bool()
	version         = flag.MakeFull("v", "version", "Print the version and exit.", "false").Bool()
	wantHelp, _     = flag.MakeHelpFlag()
)

func main() {
	flag.SetHelpTitles(
		"revcord - A Discord-Revolt chat bridge.",
		"revcord [-hev] [-c <path>]",
	)
	if err := flag.Parse(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		flag.PrintHelp()
		os.Exit(1)
	}
	switch {
	case *wantHelp:
		flag.PrintHelp()
		return
	case *version:
		fmt.Printf("revcord %s (commit %s, built %s)\n", Tag, Commit, BuildTime)
		return
	case *generateExample:
		fmt.Print(bridge.ExampleConfig)
		return
	}

	if err := run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run() error {
	cfg, err := bridge.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	log, err := cfg.Logging.Compile()
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	log.Info().Str("version", Tag).Str("commit", Commit).Msg("Starting revcord")

	store, err := database.Open(cfg.Database.Path, *log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	// Handlers must run in gateway order so the router sees events in order.
	session.SyncEvents = true
	session.Identify.Intents = discordIntents

	rev := revolt.New(revolt.Options{
		Token:         cfg.Revolt.Token,
		APIURL:        cfg.Revolt.APIURL,
		WebsocketURL:  cfg.Revolt.WebsocketURL,
		AttachmentURL: cfg.Revolt.AttachmentURL,
		Log:           *log,
	})

	b := bridge.New(cfg, session, rev, store, *log)
	b.RegisterDiscordHandlers(session)
	b.RegisterRevoltHandlers(rev)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Start(ctx); err != nil {
		return err
	}
	defer b.Stop()

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to connect to Discord: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Discord session")
		}
	}()

	if err := rev.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to Revolt: %w", err)
	}
	defer func() {
		if err := rev.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Revolt connection")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	return nil
}
