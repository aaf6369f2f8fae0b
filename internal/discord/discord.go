// Package discord connects the admin dispatcher and the stats refresher to
// Discord slash commands.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/hunterjsb/mtbot/internal/admin"
	"github.com/hunterjsb/mtbot/internal/config"
	"github.com/hunterjsb/mtbot/internal/i18n"
)

const (
	optPlayer  = "player"
	optReason  = "reason"
	optMessage = "message"
)

// adminPermission hides the commands from members without Administrator until
// a server admin grants them per role in the integration settings.
var adminPermission int64 = discordgo.PermissionAdministrator

func playerOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        optPlayer,
		Description: description,
		Required:    true,
		MaxLength:   64,
	}
}

// Command definitions
var commands = []*discordgo.ApplicationCommand{
	{
		Name:                     "showmtstats",
		Description:              "Activates server statistics updates in the current channel.",
		DefaultMemberPermissions: &adminPermission,
	},
	{
		Name:                     "removemtstats",
		Description:              "Deactivates server statistics updates.",
		DefaultMemberPermissions: &adminPermission,
	},
	{
		Name:                     "mtkick",
		Description:              "Kicks a player from the server.",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			playerOption("Player name or unique id"),
		},
	},
	{
		Name:                     "mtban",
		Description:              "Bans a player from the server.",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			playerOption("Player name or unique id"),
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        optReason,
				Description: "Reason shown on the ban list",
				Required:    false,
				MaxLength:   200,
			},
		},
	},
	{
		Name:                     "mtunban",
		Description:              "Unbans a player from the server.",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			playerOption("Banned player name or unique id"),
		},
	},
	{
		Name:                     "mtmsg",
		Description:              "Sends a message to the game server chat.",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        optMessage,
				Description: "Text to send",
				Required:    true,
				MaxLength:   500,
			},
		},
	},
	{
		Name:                     "mtshowbanned",
		Description:              "Displays a list of banned players",
		DefaultMemberPermissions: &adminPermission,
	},
}

// NewDiscordBot creates a new Discord bot with the provided configuration.
// Dispatcher and Refresher must be set before Start.
func NewDiscordBot(cfg *config.Config, catalog *i18n.Catalog) (*DiscordBot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	bot := &DiscordBot{
		Session:         session,
		Catalog:         catalog,
		GuildID:         cfg.GuildID,
		CommandHandlers: make(map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)),
	}

	// Set up command handlers
	bot.CommandHandlers["showmtstats"] = bot.handleShowStatsCommand
	bot.CommandHandlers["removemtstats"] = bot.handleRemoveStatsCommand
	bot.CommandHandlers["mtkick"] = bot.adminHandler(admin.KindKick)
	bot.CommandHandlers["mtban"] = bot.adminHandler(admin.KindBan)
	bot.CommandHandlers["mtunban"] = bot.adminHandler(admin.KindUnban)
	bot.CommandHandlers["mtmsg"] = bot.adminHandler(admin.KindMessage)
	bot.CommandHandlers["mtshowbanned"] = bot.adminHandler(admin.KindShowBanned)

	return bot, nil
}

// Surface returns the message surface the stats refresher renders into.
func (b *DiscordBot) Surface() *SessionSurface {
	return &SessionSurface{session: b.Session}
}

// Start opens the gateway connection, registers commands and resumes the
// stored status messages.
func (b *DiscordBot) Start(ctx context.Context) error {
	if b.Dispatcher == nil || b.Refresher == nil {
		return errors.New("dispatcher and refresher must be set before Start")
	}

	// Register interaction handler
	b.Session.AddHandler(b.interactionHandler)
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Bot is ready", "user", r.User.Username, "guilds", len(r.Guilds))
	})

	// Open a websocket connection to Discord
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening Discord session: %w", err)
	}
	b.BotUserID = b.Session.State.User.ID

	registeredCommands, err := b.registerCommands()
	if err != nil {
		_ = b.Session.Close()
		return fmt.Errorf("error registering commands: %w", err)
	}
	b.Commands = registeredCommands

	if err := b.Refresher.Start(ctx); err != nil {
		_ = b.Session.Close()
		return fmt.Errorf("error starting stats refresher: %w", err)
	}

	slog.Info("Bot is now running with slash commands registered", "commands", len(b.Commands), "guild", b.GuildID)
	return nil
}

// Stop stops the refresh loops, removes the registered commands and closes
// the gateway connection.
func (b *DiscordBot) Stop() error {
	if b.Refresher != nil {
		b.Refresher.Stop()
	}

	slog.Info("Removing commands", "count", len(b.Commands))
	for _, cmd := range b.Commands {
		err := b.Session.ApplicationCommandDelete(b.BotUserID, b.GuildID, cmd.ID)
		if err != nil {
			slog.Warn("Error removing command", "name", cmd.Name, "error", err)
		}
	}

	return b.Session.Close()
}

// registerCommands registers the defined slash commands
func (b *DiscordBot) registerCommands() ([]*discordgo.ApplicationCommand, error) {
	registeredCommands := make([]*discordgo.ApplicationCommand, len(commands))

	for i, cmd := range commands {
		registered, err := b.Session.ApplicationCommandCreate(b.BotUserID, b.GuildID, cmd)
		if err != nil {
			return nil, fmt.Errorf("error creating command '%s': %w", cmd.Name, err)
		}
		registeredCommands[i] = registered
		slog.Debug("Registered command", "name", cmd.Name)
	}

	return registeredCommands, nil
}

// interactionHandler handles Discord interaction events
func (b *DiscordBot) interactionHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	commandName := i.ApplicationCommandData().Name
	handler, ok := b.CommandHandlers[commandName]
	if !ok {
		slog.Warn("No handler for command", "name", commandName)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Command handler panicked", "name", commandName, "panic", r)
		}
	}()
	handler(s, i)
}

// sendError edits a deferred response into an error embed
func (b *DiscordBot) sendError(s *discordgo.Session, i *discordgo.InteractionCreate, title, description string) {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       colorError,
	}

	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	}); err != nil {
		slog.Error("Error editing error response", "error", err)
	}
}
