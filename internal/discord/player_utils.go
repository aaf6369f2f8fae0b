package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hunterjsb/mtbot/internal/admin"
	"github.com/hunterjsb/mtbot/internal/i18n"
	"github.com/hunterjsb/mtbot/internal/motortown"
	"github.com/hunterjsb/mtbot/internal/poller"
)

// Discord rejects embed field values above this many characters.
const maxEmbedFieldValue = 1024

// buildRequest turns a slash command interaction into a dispatcher request.
func buildRequest(kind admin.Kind, i *discordgo.InteractionCreate) admin.Request {
	opts := optionMap(i.ApplicationCommandData().Options)
	return admin.Request{
		Invoker: invokerFromInteraction(i),
		Kind:    kind,
		Target:  stringOption(opts, optPlayer),
		Reason:  stringOption(opts, optReason),
		Text:    stringOption(opts, optMessage),
	}
}

// formatBanListEmbed lists banned players with their unique ids, which
// /mtunban accepts when names collide.
func formatBanListEmbed(catalog *i18n.Catalog, bans []motortown.BanRecord, now time.Time) *discordgo.MessageEmbed {
	value := catalog.T("no_banned_players")
	if len(bans) > 0 {
		lines := make([]string, len(bans))
		for idx, ban := range bans {
			line := fmt.Sprintf("%s (`%s`)", ban.Name, ban.PlayerID)
			if ban.Reason != "" {
				line += ": " + ban.Reason
			}
			lines[idx] = line
		}
		value = poller.JoinLines(lines, maxEmbedFieldValue)
	}

	return &discordgo.MessageEmbed{
		Title: catalog.T("banned_players"),
		Color: colorBanList,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   fmt.Sprintf("%s (%d)", catalog.T("banned_players"), len(bans)),
				Value:  value,
				Inline: false,
			},
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}
