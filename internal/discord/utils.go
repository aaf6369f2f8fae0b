package discord

import (
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/hunterjsb/mtbot/internal/admin"
)

const (
	colorError   = 0xff0000
	colorBanList = 0xe74c3c
)

// invokerFromInteraction describes the member who ran a command. Outside a
// guild only the user is known and the invoker has no roles.
func invokerFromInteraction(i *discordgo.InteractionCreate) admin.Invoker {
	if i.Member != nil && i.Member.User != nil {
		return admin.Invoker{
			ID:      i.Member.User.ID,
			Name:    i.Member.User.Username,
			InGuild: i.GuildID != "",
			RoleIDs: i.Member.Roles,
			IsAdmin: i.Member.Permissions&discordgo.PermissionAdministrator != 0,
		}
	}
	if i.User != nil {
		return admin.Invoker{ID: i.User.ID, Name: i.User.Username}
	}
	return admin.Invoker{}
}

// optionMap indexes command options by name.
func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

// stringOption returns the trimmed value of a string option, or "" when absent.
func stringOption(m map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	opt, ok := m[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionString {
		return ""
	}
	return strings.TrimSpace(opt.StringValue())
}

// respondEphemeral answers an interaction with a message only the invoker sees.
func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Error("Error responding to interaction", "error", err)
	}
}

// deferResponse acknowledges an interaction so it can be answered later.
func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// editResponse replaces a deferred response.
func editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string, embeds ...*discordgo.MessageEmbed) {
	edit := &discordgo.WebhookEdit{Content: &content}
	if len(embeds) > 0 {
		edit.Embeds = &embeds
	}
	if _, err := s.InteractionResponseEdit(i.Interaction, edit); err != nil {
		slog.Error("Error editing interaction response", "error", err)
	}
}
