package motortown

import (
	"bytes"
	"cmp"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"time"
)

// PlayerRecord is one connected player as reported by /player/list.
type PlayerRecord struct {
	ID       string
	Name     string
	JoinedAt time.Time     // zero when not reported
	Ping     int           // milliseconds, 0 when not reported
	Playtime time.Duration // 0 when not reported
}

// BanRecord is one entry of /player/banlist.
type BanRecord struct {
	PlayerID string
	Name     string
	Reason   string
	IssuedAt time.Time // zero when not reported
}

// envelope is the wrapper every WebAPI response uses.
type envelope struct {
	Succeeded *bool           `json:"succeeded"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

type playerDto struct {
	Name     string     `json:"name"`
	UniqueID flexString `json:"unique_id"`
	Ping     float64    `json:"ping"`
	Playtime float64    `json:"playtime"`  // seconds
	JoinedAt int64      `json:"join_time"` // unix seconds
}

type banDto struct {
	Name     string     `json:"name"`
	UniqueID flexString `json:"unique_id"`
	Reason   string     `json:"reason"`
	BannedAt int64      `json:"banned_at"` // unix seconds
}

type playerCountDto struct {
	NumPlayers int `json:"num_players"`
}

// flexString accepts a JSON string or number. Steam ids show up as either
// depending on the server build.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (p playerDto) record() PlayerRecord {
	rec := PlayerRecord{
		ID:       string(p.UniqueID),
		Name:     p.Name,
		Ping:     int(p.Ping + 0.5),
		Playtime: time.Duration(p.Playtime * float64(time.Second)),
	}
	if p.JoinedAt > 0 {
		rec.JoinedAt = time.Unix(p.JoinedAt, 0).UTC()
	}
	return rec
}

func (b banDto) record() BanRecord {
	rec := BanRecord{
		PlayerID: string(b.UniqueID),
		Name:     b.Name,
		Reason:   b.Reason,
	}
	if b.BannedAt > 0 {
		rec.IssuedAt = time.Unix(b.BannedAt, 0).UTC()
	}
	return rec
}

// decodeIndexed decodes the "data" member of list endpoints. The server keys
// entries by slot index ({"0": {...}, "1": {...}}); a plain array is accepted too.
// Entries come back in slot order.
func decodeIndexed[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '[' {
		var out []T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var byIndex map[string]T
	if err := json.Unmarshal(raw, &byIndex); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(byIndex))
	for k := range byIndex {
		keys = append(keys, k)
	}
	sortSlotKeys(keys)

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, byIndex[k])
	}
	return out, nil
}

// sortSlotKeys orders numeric keys numerically and everything else after them lexically.
func sortSlotKeys(keys []string) {
	slices.SortFunc(keys, func(a, b string) int {
		ai, aerr := strconv.Atoi(a)
		bi, berr := strconv.Atoi(b)
		switch {
		case aerr == nil && berr == nil:
			return cmp.Compare(ai, bi)
		case aerr == nil:
			return -1
		case berr == nil:
			return 1
		default:
			return strings.Compare(a, b)
		}
	})
}
