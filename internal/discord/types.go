package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/hunterjsb/mtbot/internal/admin"
	"github.com/hunterjsb/mtbot/internal/i18n"
	"github.com/hunterjsb/mtbot/internal/storage"
)

// DiscordBot represents a Discord bot
type DiscordBot struct {
	Session         *discordgo.Session
	Dispatcher      CommandDispatcher
	Refresher       StatsRefresher
	Catalog         *i18n.Catalog
	BotUserID       string
	GuildID         string
	Commands        []*discordgo.ApplicationCommand
	CommandHandlers map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
}

// CommandDispatcher runs admin commands. *admin.Dispatcher implements it.
type CommandDispatcher interface {
	Authorize(inv admin.Invoker) error
	Dispatch(ctx context.Context, req admin.Request) (*admin.Result, error)
}

// StatsRefresher manages live status messages. *poller.Refresher implements it.
type StatsRefresher interface {
	Start(ctx context.Context) error
	Stop()
	Register(ctx context.Context, rec storage.RefreshTarget) (bool, error)
	Deregister(ctx context.Context, channelID string) (bool, error)
}
