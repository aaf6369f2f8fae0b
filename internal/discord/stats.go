package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hunterjsb/mtbot/internal/admin"
	"github.com/hunterjsb/mtbot/internal/storage"
)

const registrationTimeout = 10 * time.Second

// handleShowStatsCommand starts a live status message in the invoking channel.
// The first render happens on the refresher's immediate tick, not here.
func (b *DiscordBot) handleShowStatsCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	inv := invokerFromInteraction(i)
	if err := b.Dispatcher.Authorize(inv); err != nil {
		respondEphemeral(s, i, admin.UserMessage(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), registrationTimeout)
	defer cancel()

	added, err := b.Refresher.Register(ctx, storage.RefreshTarget{
		GuildID:      i.GuildID,
		ChannelID:    i.ChannelID,
		RegisteredBy: inv.ID,
	})
	switch {
	case err != nil:
		slog.Error("Failed to register refresh target", "channel", i.ChannelID, "error", err)
		respondEphemeral(s, i, "Could not start statistics updates. Please try again.")
	case !added:
		respondEphemeral(s, i, "Player statistics updates already running in this channel.")
	default:
		respondEphemeral(s, i, "Player statistics updates started in this channel.")
	}
}

// handleRemoveStatsCommand stops the live status message in the invoking channel.
func (b *DiscordBot) handleRemoveStatsCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := b.Dispatcher.Authorize(invokerFromInteraction(i)); err != nil {
		respondEphemeral(s, i, admin.UserMessage(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), registrationTimeout)
	defer cancel()

	removed, err := b.Refresher.Deregister(ctx, i.ChannelID)
	switch {
	case err != nil:
		// the loop is already stopped; only the stored record may linger
		slog.Error("Failed to delete refresh target", "channel", i.ChannelID, "error", err)
		respondEphemeral(s, i, "Player statistics updates stopped in this channel.")
	case !removed:
		respondEphemeral(s, i, "Player statistics updates are not running in this channel.")
	default:
		respondEphemeral(s, i, "Player statistics updates stopped in this channel.")
	}
}
