package motortown

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError reports a failure to reach the server or to get a complete
// answer from it: network errors, timeouts and 5xx responses. Callers may retry.
type TransportError struct {
	Op     string
	Status int // 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable is always true; it exists so callers can test for it through an interface.
func (e *TransportError) Retryable() bool { return true }

// AuthError reports that the server rejected API_PASSWORD.
type AuthError struct {
	Op     string
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: credentials rejected (status %d)", e.Op, e.Status)
}

// ProtocolError reports a response the client could not make sense of, or an
// explicit rejection (succeeded=false) from the server.
type ProtocolError struct {
	Op       string
	Status   int
	Message  string // server supplied message, if any
	Rejected bool   // the server answered succeeded=false
	Err      error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Rejected:
		return fmt.Sprintf("%s: rejected by server: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NotFoundError reports that a referenced player does not exist where it was
// looked up. It is a user-facing condition, not an incident.
type NotFoundError struct {
	Player    string
	Where     string // "server", "ban list", ...
	Ambiguous int    // number of matches when the name was not unique
}

func (e *NotFoundError) Error() string {
	if e.Ambiguous > 1 {
		return fmt.Sprintf("player %q is ambiguous: %d matches on the %s", e.Player, e.Ambiguous, e.Where)
	}
	if e.Where == "" {
		return fmt.Sprintf("player %q not found", e.Player)
	}
	return fmt.Sprintf("player %q not found on the %s", e.Player, e.Where)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// classifyStatus maps a non-2xx status code onto the error taxonomy. A 404 is a
// ProtocolError here; only calls that name a player turn it into NotFoundError.
func classifyStatus(op string, status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{Op: op, Status: status}
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return &TransportError{Op: op, Status: status}
	default:
		return &ProtocolError{Op: op, Status: status}
	}
}
