package admin

import (
	"errors"
	"fmt"

	"github.com/hunterjsb/mtbot/internal/motortown"
)

// PermissionError reports that the invoker lacks the required role.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string {
	return "permission denied: " + e.Reason
}

// InputError reports a command argument that cannot be used as given.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return e.Reason }

// UserMessage converts a command error into text safe to show the invoker.
// Transport details never leak; they are in the logs.
func UserMessage(err error) string {
	var (
		perm  *PermissionError
		input *InputError
		nf    *motortown.NotFoundError
		te    *motortown.TransportError
		ae    *motortown.AuthError
		pe    *motortown.ProtocolError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &perm):
		return "You do not have permission to use this command."
	case errors.As(err, &input):
		return "Invalid input: " + input.Reason
	case errors.As(err, &nf):
		if nf.Ambiguous > 1 {
			return fmt.Sprintf("%d players are named `%s`. Use their unique id instead.", nf.Ambiguous, nf.Player)
		}
		where := nf.Where
		if where == "" {
			where = "server"
		}
		return fmt.Sprintf("Player `%s` not found on the %s.", nf.Player, where)
	case errors.As(err, &te):
		return "The game server could not be reached. Please try again in a moment."
	case errors.As(err, &ae):
		return "The game server rejected the bot's credentials. An administrator has been notified."
	case errors.As(err, &pe):
		if pe.Rejected && pe.Message != "" {
			return "The game server refused the request: " + pe.Message
		}
		return "The game server sent an unexpected response."
	default:
		return "An unexpected error occurred."
	}
}

// Retryable reports whether the invoker may simply try the command again.
func Retryable(err error) bool {
	return motortown.IsTransport(err)
}
