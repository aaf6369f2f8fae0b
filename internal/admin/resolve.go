package admin

import (
	"errors"
	"strings"

	"github.com/hunterjsb/mtbot/internal/motortown"
)

// resolvePlayer finds the connected player named by query. A unique id match
// wins; otherwise display names are compared exactly, then case-insensitively.
func resolvePlayer(query string, players []motortown.PlayerRecord) (motortown.PlayerRecord, error) {
	query = strings.TrimSpace(query)
	notFound := &motortown.NotFoundError{Player: query, Where: "server"}
	if query == "" {
		return motortown.PlayerRecord{}, notFound
	}

	for _, p := range players {
		if p.ID == query {
			return p, nil
		}
	}

	match := func(eq func(a, b string) bool) []motortown.PlayerRecord {
		var out []motortown.PlayerRecord
		for _, p := range players {
			if eq(p.Name, query) {
				out = append(out, p)
			}
		}
		return out
	}

	for _, eq := range []func(a, b string) bool{
		func(a, b string) bool { return a == b },
		strings.EqualFold,
	} {
		switch found := match(eq); len(found) {
		case 0:
			continue
		case 1:
			return found[0], nil
		default:
			notFound.Ambiguous = len(found)
			return motortown.PlayerRecord{}, notFound
		}
	}
	return motortown.PlayerRecord{}, notFound
}

// resolveBan is resolvePlayer for the ban list.
func resolveBan(query string, bans []motortown.BanRecord) (motortown.BanRecord, error) {
	players := make([]motortown.PlayerRecord, len(bans))
	for i, b := range bans {
		players[i] = motortown.PlayerRecord{ID: b.PlayerID, Name: b.Name}
	}

	p, err := resolvePlayer(query, players)
	if err != nil {
		var nf *motortown.NotFoundError
		if errors.As(err, &nf) {
			nf.Where = "ban list"
		}
		return motortown.BanRecord{}, err
	}
	for _, b := range bans {
		if b.PlayerID == p.ID && b.Name == p.Name {
			return b, nil
		}
	}
	return motortown.BanRecord{}, &motortown.NotFoundError{Player: query, Where: "ban list"}
}

// findBan reports whether query names exactly one ban entry.
func findBan(query string, bans []motortown.BanRecord) (motortown.BanRecord, bool) {
	b, err := resolveBan(query, bans)
	return b, err == nil
}

func isAmbiguous(err error) bool {
	var nf *motortown.NotFoundError
	return errors.As(err, &nf) && nf.Ambiguous > 1
}
