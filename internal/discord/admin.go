package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hunterjsb/mtbot/internal/admin"
)

// commandTimeout bounds a whole admin command, retries included. Interaction
// tokens stay valid for 15 minutes.
const commandTimeout = time.Minute

// adminHandler builds the handler for one admin command kind.
func (b *DiscordBot) adminHandler(kind admin.Kind) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		req := buildRequest(kind, i)

		// Permission failures are answered privately before anything is deferred
		if err := b.Dispatcher.Authorize(req.Invoker); err != nil {
			slog.Info("Rejected admin command", "command", kind, "user", req.Invoker.ID, "reason", err)
			respondEphemeral(s, i, admin.UserMessage(err))
			return
		}

		// Acknowledge the interaction immediately
		if err := deferResponse(s, i); err != nil {
			slog.Error("Error acknowledging interaction", "command", kind, "error", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		res, err := b.Dispatcher.Dispatch(ctx, req)
		if err != nil {
			title := "Command Failed"
			if admin.Retryable(err) {
				title = "Server Unreachable"
			}
			b.sendError(s, i, title, admin.UserMessage(err))
			return
		}

		if kind == admin.KindShowBanned {
			editResponse(s, i, "", formatBanListEmbed(b.Catalog, res.Banned, time.Now()))
			return
		}
		editResponse(s, i, res.Message)
	}
}
