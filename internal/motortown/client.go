package motortown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds every call when NewClient is given a non-positive timeout.
const DefaultTimeout = 5 * time.Second

// Client is a Motor Town dedicated server WebAPI client. It is stateless and safe
// for concurrent use; every call is a single request with its own timeout and no
// retries. Retrying is left to the caller (see RetryPolicy).
type Client struct {
	baseURL    string
	password   string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL, authenticating with password.
func NewClient(baseURL, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		password:   password,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// buildURL constructs a WebAPI URL for endpoint with the password and params attached
func (c *Client) buildURL(endpoint string, params url.Values) string {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("password", c.password)
	return fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, q.Encode())
}

// makeAPIRequest performs one call and decodes the envelope. On success the
// envelope's data member is returned undecoded.
func (c *Client) makeAPIRequest(ctx context.Context, op, method, endpoint string, params url.Values) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(endpoint, params), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: scrubURL(err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(op, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ProtocolError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if env.Succeeded != nil && !*env.Succeeded {
		return nil, &ProtocolError{Op: op, Status: resp.StatusCode, Message: env.Message, Rejected: true}
	}

	return env.Data, nil
}

// scrubURL drops the request URL from *url.Error so the password in the query
// string never ends up in logs or user messages.
func scrubURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

// GetStats returns the players currently connected.
func (c *Client) GetStats(ctx context.Context) ([]PlayerRecord, error) {
	const op = "get player list"

	data, err := c.makeAPIRequest(ctx, op, http.MethodGet, "/player/list", nil)
	if err != nil {
		return nil, err
	}

	dtos, err := decodeIndexed[playerDto](data)
	if err != nil {
		return nil, &ProtocolError{Op: op, Status: http.StatusOK, Err: err}
	}

	players := make([]PlayerRecord, 0, len(dtos))
	for _, dto := range dtos {
		players = append(players, dto.record())
	}
	return players, nil
}

// PlayerCount returns the number of connected players as the server counts them.
func (c *Client) PlayerCount(ctx context.Context) (int, error) {
	const op = "get player count"

	data, err := c.makeAPIRequest(ctx, op, http.MethodGet, "/player/count", nil)
	if err != nil {
		return 0, err
	}

	var count playerCountDto
	if err := json.Unmarshal(data, &count); err != nil {
		return 0, &ProtocolError{Op: op, Status: http.StatusOK, Err: err}
	}
	return count.NumPlayers, nil
}

// ListBanned returns the server's ban list. An empty list is not an error.
func (c *Client) ListBanned(ctx context.Context) ([]BanRecord, error) {
	const op = "get ban list"

	data, err := c.makeAPIRequest(ctx, op, http.MethodGet, "/player/banlist", nil)
	if err != nil {
		return nil, err
	}

	dtos, err := decodeIndexed[banDto](data)
	if err != nil {
		return nil, &ProtocolError{Op: op, Status: http.StatusOK, Err: err}
	}

	bans := make([]BanRecord, 0, len(dtos))
	for _, dto := range dtos {
		bans = append(bans, dto.record())
	}
	return bans, nil
}

// SendChatMessage relays text to the in-game chat.
func (c *Client) SendChatMessage(ctx context.Context, text string) error {
	_, err := c.makeAPIRequest(ctx, "send chat message", http.MethodPost, "/chat", url.Values{"message": {text}})
	return err
}

// Kick removes a connected player from the server. Kicking a player who is
// not connected succeeds.
func (c *Client) Kick(ctx context.Context, playerID string) error {
	_, err := c.makeAPIRequest(ctx, "kick player", http.MethodPost, "/player/kick", url.Values{"unique_id": {playerID}})
	if alreadyApplied(err, "not found", "not connected", "offline") || statusNotFound(err) {
		return nil
	}
	return err
}

// Ban adds a player to the ban list. Banning a player who is already banned succeeds.
func (c *Client) Ban(ctx context.Context, playerID, reason string) error {
	params := url.Values{"unique_id": {playerID}}
	if reason != "" {
		params.Set("reason", reason)
	}

	_, err := c.makeAPIRequest(ctx, "ban player", http.MethodPost, "/player/ban", params)
	if alreadyApplied(err, "already") {
		return nil
	}
	if statusNotFound(err) {
		return &NotFoundError{Player: playerID, Where: "server"}
	}
	return err
}

// Unban removes a player from the ban list. Unbanning a player who is not banned succeeds.
func (c *Client) Unban(ctx context.Context, playerID string) error {
	_, err := c.makeAPIRequest(ctx, "unban player", http.MethodPost, "/player/unban", url.Values{"unique_id": {playerID}})
	if alreadyApplied(err, "not banned", "already", "not found") || statusNotFound(err) {
		return nil
	}
	return err
}

// statusNotFound reports whether err is a plain 404 answer.
func statusNotFound(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe) && !pe.Rejected && pe.Status == http.StatusNotFound
}

// alreadyApplied reports whether err is a server rejection whose message says the
// target state already holds.
func alreadyApplied(err error, phrases ...string) bool {
	var pe *ProtocolError
	if !errors.As(err, &pe) || !pe.Rejected {
		return false
	}
	msg := strings.ToLower(pe.Message)
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
