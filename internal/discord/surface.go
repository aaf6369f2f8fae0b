package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// SessionSurface posts and edits status messages through the bot session.
type SessionSurface struct {
	session *discordgo.Session
}

// Send posts embed to channelID and returns the new message id.
func (s *SessionSurface) Send(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (string, error) {
	msg, err := s.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

// Edit replaces the embed of an existing message.
func (s *SessionSurface) Edit(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) error {
	_, err := s.session.ChannelMessageEditEmbed(channelID, messageID, embed, discordgo.WithContext(ctx))
	return err
}
