// Package admin runs moderation commands against the game server.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/hunterjsb/mtbot/internal/motortown"
)

// Kind is the action a Request asks for.
type Kind string

const (
	KindKick       Kind = "kick"
	KindBan        Kind = "ban"
	KindUnban      Kind = "unban"
	KindMessage    Kind = "message"
	KindShowBanned Kind = "showbanned"
)

// API is the part of the game server API commands use. *motortown.Client implements it.
type API interface {
	GetStats(ctx context.Context) ([]motortown.PlayerRecord, error)
	ListBanned(ctx context.Context) ([]motortown.BanRecord, error)
	SendChatMessage(ctx context.Context, text string) error
	Kick(ctx context.Context, playerID string) error
	Ban(ctx context.Context, playerID, reason string) error
	Unban(ctx context.Context, playerID string) error
}

// AuthAlerter is told when the server rejects the bot's credentials.
type AuthAlerter interface {
	AuthRejected(cause error)
}

// Invoker is the Discord member running a command, as the gateway reports it.
type Invoker struct {
	ID      string
	Name    string
	InGuild bool
	RoleIDs []string
	IsAdmin bool // holds the Administrator permission
}

// Request is one inbound admin command.
type Request struct {
	Invoker Invoker
	Kind    Kind
	Target  string // player name or unique id; kick, ban and unban only
	Reason  string // ban only
	Text    string // message only
}

// Result is a successful command outcome.
type Result struct {
	Message string                // acknowledgement for the invoker
	Banned  []motortown.BanRecord // showbanned only
}

// Dispatcher validates, resolves and executes admin commands.
type Dispatcher struct {
	api         API
	adminRoleID string
	retry       motortown.RetryPolicy
	alerter     AuthAlerter
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRetry retries mutation calls that fail with a TransportError.
func WithRetry(p motortown.RetryPolicy) Option {
	return func(d *Dispatcher) { d.retry = p }
}

// WithAuthAlerter reports credential rejections to a.
func WithAuthAlerter(a AuthAlerter) Option {
	return func(d *Dispatcher) { d.alerter = a }
}

// NewDispatcher creates a dispatcher. Members holding adminRoleID may run
// commands; when adminRoleID is empty the Administrator permission is required.
func NewDispatcher(api API, adminRoleID string, opts ...Option) *Dispatcher {
	d := &Dispatcher{api: api, adminRoleID: adminRoleID}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Authorize checks that inv may run admin commands.
func (d *Dispatcher) Authorize(inv Invoker) error {
	if !inv.InGuild {
		return &PermissionError{Reason: "admin commands only work inside a server"}
	}
	if d.adminRoleID == "" {
		if inv.IsAdmin {
			return nil
		}
		return &PermissionError{Reason: "requires the Administrator permission"}
	}
	if slices.Contains(inv.RoleIDs, d.adminRoleID) {
		return nil
	}
	return &PermissionError{Reason: "requires the admin role"}
}

// Dispatch runs req and returns the outcome. Errors are from the taxonomy in
// motortown plus *PermissionError; UserMessage turns them into reply text.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	if err := d.Authorize(req.Invoker); err != nil {
		slog.Info("Rejected admin command", "command", req.Kind, "user", req.Invoker.ID, "reason", err)
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch req.Kind {
	case KindKick:
		res, err = d.kick(ctx, req)
	case KindBan:
		res, err = d.ban(ctx, req)
	case KindUnban:
		res, err = d.unban(ctx, req)
	case KindMessage:
		res, err = d.message(ctx, req)
	case KindShowBanned:
		res, err = d.showBanned(ctx)
	default:
		err = fmt.Errorf("unknown admin command %q", req.Kind)
	}

	d.logOutcome(req, err)
	return res, err
}

func (d *Dispatcher) logOutcome(req Request, err error) {
	attrs := []any{"command", req.Kind, "user", req.Invoker.ID}
	if req.Target != "" {
		attrs = append(attrs, "player", req.Target)
	}

	switch {
	case err == nil:
		slog.Info("Admin command succeeded", attrs...)
	case motortown.IsNotFound(err):
		slog.Debug("Admin command target not found", append(attrs, "error", err)...)
	case motortown.IsAuth(err):
		slog.Error("Game server rejected credentials", append(attrs, "error", err)...)
		if d.alerter != nil {
			d.alerter.AuthRejected(err)
		}
	default:
		slog.Error("Admin command failed", append(attrs, "error", err)...)
	}
}

func (d *Dispatcher) kick(ctx context.Context, req Request) (*Result, error) {
	players, err := d.api.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	p, err := resolvePlayer(req.Target, players)
	if err != nil {
		return nil, err
	}

	// a player who left after the lookup counts as kicked
	if err := d.retry.Do(ctx, func() error { return d.api.Kick(ctx, p.ID) }); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Player `%s` kicked from server.", p.Name)}, nil
}

func (d *Dispatcher) ban(ctx context.Context, req Request) (*Result, error) {
	players, err := d.api.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	p, err := resolvePlayer(req.Target, players)
	if motortown.IsNotFound(err) && !isAmbiguous(err) {
		// not online: it may be someone already banned
		bans, banErr := d.api.ListBanned(ctx)
		if banErr != nil {
			return nil, banErr
		}
		if b, ok := findBan(req.Target, bans); ok {
			return &Result{Message: fmt.Sprintf("Player `%s` is already banned.", b.Name)}, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if err := d.retry.Do(ctx, func() error { return d.api.Ban(ctx, p.ID, req.Reason) }); err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Player `%s` banned from server.", p.Name)
	if req.Reason != "" {
		msg = fmt.Sprintf("Player `%s` banned from server. Reason: %s", p.Name, req.Reason)
	}
	return &Result{Message: msg}, nil
}

func (d *Dispatcher) unban(ctx context.Context, req Request) (*Result, error) {
	bans, err := d.api.ListBanned(ctx)
	if err != nil {
		return nil, err
	}

	b, err := resolveBan(req.Target, bans)
	if motortown.IsNotFound(err) && !isAmbiguous(err) {
		return &Result{Message: fmt.Sprintf("Player `%s` is not banned.", req.Target)}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := d.retry.Do(ctx, func() error { return d.api.Unban(ctx, b.PlayerID) }); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Player `%s` unbanned from server.", b.Name)}, nil
}

func (d *Dispatcher) message(ctx context.Context, req Request) (*Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, &InputError{Reason: "message must not be empty"}
	}
	if err := d.retry.Do(ctx, func() error { return d.api.SendChatMessage(ctx, text) }); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Message sent to server chat: `%s`", text)}, nil
}

func (d *Dispatcher) showBanned(ctx context.Context) (*Result, error) {
	bans, err := d.api.ListBanned(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Banned: bans, Message: fmt.Sprintf("%d banned players", len(bans))}, nil
}
