// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/aiku/revcord/pkg/revolt"
)

const (
	replyConnected      = "Channels are now connected!"
	replyDisconnected   = "Channel disconnected successfully."
	replyNoPermission   = "Error! You don't have enough permissions."
	replyMissingChannel = "Error! You didn't provide a channel"
	replyMissingUser    = "Error! You didn't provide a username"
	replyInternalError  = "Something went very wrong. Check the logs."
	replyNoConnections  = "No connections found."

	connectionsTitle  = "Connected channels"
	connectionsColour = 0x5765f2
)

type revoltCommand struct {
	Name        string
	Usage       string
	Description string
	// OwnerOnly commands may only be run by the owner of the server.
	OwnerOnly bool
	Run       func(b *Bridge, ctx context.Context, msg *revolt.Message, args string) (revolt.SendMessageData, error)
}

var revoltCommands []*revoltCommand

func init() {
	revoltCommands = []*revoltCommand{
		{Name: "help", Description: "Show this help message", Run: (*Bridge).revoltHelp},
		{
			Name:        "connect",
			Usage:       "<Discord channel name or ID>",
			Description: "Connect this Revolt channel to a Discord channel",
			OwnerOnly:   true,
			Run:         (*Bridge).revoltConnect,
		},
		{Name: "disconnect", Description: "Disconnect this channel from Discord", OwnerOnly: true, Run: (*Bridge).revoltDisconnect},
		{Name: "connections", Description: "Show existing connections", Run: (*Bridge).revoltConnections},
		{Name: "bots", Description: "Toggle whether bot messages are forwarded", OwnerOnly: true, Run: (*Bridge).revoltToggleBots},
		{Name: "ping", Usage: "<Discord username>", Description: "Mention a Discord user in the connected channel", Run: (*Bridge).revoltPing},
	}
}

func findRevoltCommand(name string) *revoltCommand {
	for _, cmd := range revoltCommands {
		if strings.EqualFold(cmd.Name, name) {
			return cmd
		}
	}
	return nil
}

// parseRevoltCommand splits "rc!name args" into its name and arguments.
func parseRevoltCommand(prefix, content string) (name, args string, ok bool) {
	rest, ok := strings.CutPrefix(content, prefix)
	if !ok {
		return "", "", false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", "", false
	}
	name = fields[0]
	args = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), name))
	return name, args, true
}

// handleRevoltCommand runs a prefixed command and replies to it. Failures
// are reported to the invoker and never stop the message from being
// mirrored.
func (b *Bridge) handleRevoltCommand(ctx context.Context, msg *revolt.Message) {
	name, args, ok := parseRevoltCommand(b.Config.Bridge.CommandPrefix, msg.Content)
	if !ok {
		return
	}
	cmd := findRevoltCommand(name)
	if cmd == nil {
		return
	}
	log := b.Log.With().
		Str("command", cmd.Name).
		Str("revolt_channel_id", msg.Channel).
		Str("author_id", msg.Author).
		Logger()

	var reply revolt.SendMessageData
	if cmd.OwnerOnly && !b.isRevoltServerOwner(ctx, msg) {
		reply.Content = replyNoPermission
	} else {
		var err error
		reply, err = cmd.Run(b, ctx, msg, args)
		if err != nil {
			reply = revolt.SendMessageData{Content: b.commandErrorReply(err)}
			if _, ok := AsConnectionError(err); !ok {
				log.Error().Err(err).Msg("Command failed")
			}
		}
	}
	reply.Replies = []revolt.Reply{{ID: msg.ID}}
	if _, err := b.Revolt.SendMessage(ctx, msg.Channel, reply); err != nil {
		log.Warn().Err(err).Msg("Failed to reply to command")
	}
}

// commandErrorReply renders a command failure for the invoker. Only
// ConnectionError and EntityNotFoundError messages are shown verbatim.
func (b *Bridge) commandErrorReply(err error) string {
	if ce, ok := AsConnectionError(err); ok {
		return "Error! " + ce.Msg
	}
	var nf *EntityNotFoundError
	if errors.As(err, &nf) {
		switch nf.Kind {
		case "connection":
			return "Error! This channel is not connected."
		case "user":
			return "Error! User not found."
		default:
			return "Error! " + nf.Error()
		}
	}
	return replyInternalError
}

func (b *Bridge) isRevoltServerOwner(ctx context.Context, msg *revolt.Message) bool {
	ch, err := b.Revolt.Channel(ctx, msg.Channel)
	if err != nil || ch.Server == "" {
		return false
	}
	server, err := b.Revolt.Server(ctx, ch.Server)
	if err != nil {
		b.Log.Warn().Err(err).Str("revolt_server_id", ch.Server).Msg("Failed to fetch server for permission check")
		return false
	}
	return server.Owner == msg.Author
}

func (b *Bridge) revoltHelp(_ context.Context, _ *revolt.Message, _ string) (revolt.SendMessageData, error) {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, cmd := range revoltCommands {
		sb.WriteString("`")
		sb.WriteString(b.Config.Bridge.CommandPrefix)
		sb.WriteString(cmd.Name)
		if cmd.Usage != "" {
			sb.WriteString(" ")
			sb.WriteString(cmd.Usage)
		}
		sb.WriteString("` - ")
		sb.WriteString(cmd.Description)
		sb.WriteString("\n")
	}
	return revolt.SendMessageData{Content: strings.TrimRight(sb.String(), "\n")}, nil
}

func (b *Bridge) revoltConnect(ctx context.Context, msg *revolt.Message, args string) (revolt.SendMessageData, error) {
	if args == "" {
		return revolt.SendMessageData{Content: replyMissingChannel}, nil
	}
	if _, err := b.Connect(ctx, args, msg.Channel); err != nil {
		return revolt.SendMessageData{}, err
	}
	return revolt.SendMessageData{Content: replyConnected}, nil
}

func (b *Bridge) revoltDisconnect(ctx context.Context, msg *revolt.Message, _ string) (revolt.SendMessageData, error) {
	if err := b.Disconnect(ctx, SideRevolt, msg.Channel); err != nil {
		return revolt.SendMessageData{}, err
	}
	return revolt.SendMessageData{Content: replyDisconnected}, nil
}

func (b *Bridge) revoltToggleBots(ctx context.Context, msg *revolt.Message, _ string) (revolt.SendMessageData, error) {
	allowed, err := b.ToggleAllowBotsFor(ctx, SideRevolt, msg.Channel)
	if err != nil {
		return revolt.SendMessageData{}, err
	}
	return revolt.SendMessageData{Content: toggleBotsReply(allowed)}, nil
}

func toggleBotsReply(allowed bool) string {
	state := "disabled"
	if allowed {
		state = "enabled"
	}
	return "Forwarding of bot messages has been " + state + "."
}

func (b *Bridge) revoltConnections(ctx context.Context, msg *revolt.Message, _ string) (revolt.SendMessageData, error) {
	pairs, err := b.Connections(ctx)
	if err != nil {
		return revolt.SendMessageData{}, err
	}
	embed := RichEmbed{
		Title:       connectionsTitle,
		Description: connectionsDescription(pairs),
		Colour:      connectionsColour,
	}
	if author, err := b.Revolt.User(ctx, msg.Author); err == nil {
		embed.IconURL = b.Revolt.AvatarURL(author)
	}
	sendable, err := embed.ToRevolt()
	if err != nil {
		return revolt.SendMessageData{}, err
	}
	return revolt.SendMessageData{Content: " ", Embeds: []revolt.SendableEmbed{sendable}}, nil
}

// connectionsDescription lists the pairs, one code block each.
func connectionsDescription(pairs []ConnectionPair) string {
	if len(pairs) == 0 {
		return replyNoConnections
	}
	var sb strings.Builder
	for _, p := range pairs {
		allowed := "no"
		if p.AllowBots {
			allowed = "yes"
		}
		fmt.Fprintf(&sb, "```\n#%s => %s\nBots allowed: %s\n```\n", p.Revolt, p.Discord, allowed)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bridge) revoltPing(ctx context.Context, msg *revolt.Message, args string) (revolt.SendMessageData, error) {
	if args == "" {
		return revolt.SendMessageData{Content: replyMissingUser}, nil
	}
	author, err := b.Revolt.User(ctx, msg.Author)
	if err != nil {
		return revolt.SendMessageData{}, err
	}
	tag, err := b.PingDiscordUser(ctx, msg.Channel, author, args)
	if err != nil {
		return revolt.SendMessageData{}, err
	}
	return revolt.SendMessageData{Content: "Pinged " + tag + "."}, nil
}

var manageServer = int64(discordgo.PermissionManageServer)

// slashCommands are registered in every guild the bot is in.
var slashCommands = []*discordgo.ApplicationCommand{
	{
		Name:                     "connect",
		Description:              "Connect this channel to a Revolt channel",
		DefaultMemberPermissions: &manageServer,
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "revolt",
			Description: "Revolt channel name or ID",
			Required:    true,
		}},
	},
	{
		Name:                     "disconnect",
		Description:              "Disconnect this channel from Revolt",
		DefaultMemberPermissions: &manageServer,
	},
	{
		Name:                     "connections",
		Description:              "Show existing connections",
		DefaultMemberPermissions: &manageServer,
	},
	{
		Name:                     "bots",
		Description:              "Toggle whether bot messages are forwarded",
		DefaultMemberPermissions: &manageServer,
	},
}

func (b *Bridge) registerSlashCommands(ctx context.Context, guildID string) error {
	appID := b.discordApplicationID()
	if appID == "" {
		return errors.New("application ID is not known yet")
	}
	registered, err := b.Discord.ApplicationCommandBulkOverwrite(appID, guildID, slashCommands, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to overwrite application commands: %w", err)
	}
	b.Log.Debug().Str("guild_id", guildID).Int("commands", len(registered)).Msg("Registered slash commands")
	return nil
}

func (b *Bridge) onDiscordInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	// Commands talk to both platforms; keep them off the gateway goroutine.
	go b.handleInteraction(b.ctx, i.Interaction)
}

func (b *Bridge) handleInteraction(ctx context.Context, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	log := b.Log.With().
		Str("command", data.Name).
		Str("discord_channel_id", i.ChannelID).
		Logger()

	resp, err := b.runSlashCommand(ctx, i.ChannelID, data)
	if err != nil {
		resp = &discordgo.InteractionResponseData{Content: b.commandErrorReply(err)}
		if _, ok := AsConnectionError(err); !ok {
			log.Error().Err(err).Msg("Command failed")
		}
	}
	resp.Flags = discordgo.MessageFlagsEphemeral
	err = b.Discord.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: resp,
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to respond to interaction")
	}
}

func (b *Bridge) runSlashCommand(ctx context.Context, channelID string, data discordgo.ApplicationCommandInteractionData) (*discordgo.InteractionResponseData, error) {
	switch data.Name {
	case "connect":
		var target string
		for _, opt := range data.Options {
			if opt.Name == "revolt" {
				target = strings.TrimSpace(opt.StringValue())
			}
		}
		if target == "" {
			return &discordgo.InteractionResponseData{Content: replyMissingChannel}, nil
		}
		if _, err := b.Connect(ctx, channelID, target); err != nil {
			return nil, err
		}
		return &discordgo.InteractionResponseData{Content: replyConnected}, nil
	case "disconnect":
		if err := b.Disconnect(ctx, SideDiscord, channelID); err != nil {
			return nil, err
		}
		return &discordgo.InteractionResponseData{Content: replyDisconnected}, nil
	case "bots":
		allowed, err := b.ToggleAllowBotsFor(ctx, SideDiscord, channelID)
		if err != nil {
			return nil, err
		}
		return &discordgo.InteractionResponseData{Content: toggleBotsReply(allowed)}, nil
	case "connections":
		pairs, err := b.Connections(ctx)
		if err != nil {
			return nil, err
		}
		embed := RichEmbed{
			Title:       connectionsTitle,
			Description: connectionsDescription(pairs),
			Colour:      connectionsColour,
		}
		return &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed.ToDiscord()}}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", data.Name)
	}
}
