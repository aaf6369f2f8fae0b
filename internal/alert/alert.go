// Package alert posts operator notifications to a Discord webhook.
package alert

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

const (
	unreachableText = "Server cannot be reached. It has either crashed or restarted."
	authText        = "The game server rejected API_PASSWORD. Stats and admin commands are failing until the bot is reconfigured."
)

// webhookAPI is the part of *discordgo.Session the notifier uses.
type webhookAPI interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookMessageDelete(webhookID, token, messageID string, options ...discordgo.RequestOption) error
}

// Notifier sends alerts through one webhook. A nil *Notifier is valid and
// drops every alert, which is what an unset WEBHOOK_URL means.
type Notifier struct {
	api   webhookAPI
	id    string
	token string

	// mu guards the fields below; it is never held across a webhook call.
	mu             sync.Mutex
	downMessageID  string
	posting        bool
	recoverPending bool
	authAlerted    bool
}

// NewNotifier returns a notifier for webhookURL, or nil when webhookURL is empty.
func NewNotifier(webhookURL string) (*Notifier, error) {
	if strings.TrimSpace(webhookURL) == "" {
		return nil, nil
	}

	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	// Webhook execution is authenticated by the token in the path; the session
	// needs no bot token.
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("error creating webhook session: %w", err)
	}

	return &Notifier{api: session, id: id, token: token}, nil
}

// ParseWebhookURL splits https://discord.com/api/webhooks/{id}/{token} into its parts.
func ParseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("invalid WEBHOOK_URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("invalid WEBHOOK_URL: expected .../webhooks/<id>/<token>")
}

// ServerUnreachable posts the offline notice unless one is already showing
// or being posted. The webhook call runs without n.mu held.
func (n *Notifier) ServerUnreachable() {
	if n == nil {
		return
	}
	n.mu.Lock()
	if n.downMessageID != "" || n.posting {
		n.mu.Unlock()
		return
	}
	n.posting = true
	n.mu.Unlock()

	msg, err := n.api.WebhookExecute(n.id, n.token, true, &discordgo.WebhookParams{Content: unreachableText})

	n.mu.Lock()
	n.posting = false
	recovered := n.recoverPending
	n.recoverPending = false
	if err == nil && msg != nil && !recovered {
		n.downMessageID = msg.ID
	}
	n.mu.Unlock()

	if err != nil {
		slog.Error("Failed to send webhook alert", "alert", "unreachable", "error", err)
		return
	}
	slog.Info("Sent webhook alert", "alert", "unreachable")

	// the server came back while the notice was in flight
	if recovered && msg != nil {
		n.removeNotice(msg.ID)
	}
}

// ServerRecovered removes the offline notice, if one is showing. A notice
// still being posted is removed as soon as its post returns.
func (n *Notifier) ServerRecovered() {
	if n == nil {
		return
	}
	n.mu.Lock()
	if n.posting {
		n.recoverPending = true
		n.mu.Unlock()
		return
	}
	messageID := n.downMessageID
	n.downMessageID = ""
	n.mu.Unlock()

	if messageID != "" {
		n.removeNotice(messageID)
	}
}

func (n *Notifier) removeNotice(messageID string) {
	if err := n.api.WebhookMessageDelete(n.id, n.token, messageID); err != nil {
		slog.Error("Failed to remove webhook alert", "alert", "unreachable", "error", err)
		return
	}
	slog.Info("Removed webhook alert", "alert", "unreachable")
}

// AuthRejected alerts the operator about bad API credentials, once per process.
func (n *Notifier) AuthRejected(cause error) {
	if n == nil {
		return
	}
	n.mu.Lock()
	if n.authAlerted {
		n.mu.Unlock()
		return
	}
	n.authAlerted = true
	n.mu.Unlock()

	if _, err := n.api.WebhookExecute(n.id, n.token, false, &discordgo.WebhookParams{Content: authText}); err != nil {
		slog.Error("Failed to send webhook alert", "alert", "auth", "error", err, "cause", cause)
		return
	}
	slog.Info("Sent webhook alert", "alert", "auth", "cause", cause)
}
