package poller

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hunterjsb/mtbot/internal/i18n"
	"github.com/hunterjsb/mtbot/internal/motortown"
)

const (
	colorOnline = 0x2ecc71

	// Discord rejects embed field values longer than this.
	maxFieldValue = 1024
)

// Snapshot is everything one status render shows.
type Snapshot struct {
	Players []motortown.PlayerRecord
	Uptime  time.Duration
	TakenAt time.Time
}

// PlayerCount is the number of connected players.
func (s Snapshot) PlayerCount() int { return len(s.Players) }

// AveragePing is the mean ping over players that report one.
func (s Snapshot) AveragePing() (int, bool) {
	total, n := 0, 0
	for _, p := range s.Players {
		if p.Ping > 0 {
			total += p.Ping
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return (total + n/2) / n, true
}

// Renderer turns a snapshot into the status message.
type Renderer func(Snapshot) *discordgo.MessageEmbed

// NewStatusRenderer renders snapshots with labels from catalog.
func NewStatusRenderer(catalog *i18n.Catalog) Renderer {
	return func(s Snapshot) *discordgo.MessageEmbed {
		return formatStatusEmbed(catalog, s)
	}
}

func formatStatusEmbed(catalog *i18n.Catalog, s Snapshot) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{
			Name:  catalog.T("server_status"),
			Value: "🟢 | " + catalog.T("server_online"),
		},
		{
			Name:  catalog.T("uptime"),
			Value: FormatUptime(s.Uptime),
		},
		{
			Name:  catalog.T("players_online"),
			Value: fmt.Sprintf("%d", s.PlayerCount()),
		},
	}

	if avg, ok := s.AveragePing(); ok {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  catalog.T("average_ping"),
			Value: fmt.Sprintf("%d ms", avg),
		})
	}

	names := catalog.T("no_players_online")
	if len(s.Players) > 0 {
		lines := make([]string, 0, len(s.Players))
		for _, p := range s.Players {
			if p.Ping > 0 {
				lines = append(lines, fmt.Sprintf("%s (%d ms)", p.Name, p.Ping))
			} else {
				lines = append(lines, p.Name)
			}
		}
		names = JoinLines(lines, maxFieldValue)
	}
	fields = append(fields, &discordgo.MessageEmbedField{
		Name:  catalog.T("player_names"),
		Value: names,
	})

	takenAt := s.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}

	return &discordgo.MessageEmbed{
		Title:     catalog.T("status_title"),
		Color:     colorOnline,
		Fields:    fields,
		Timestamp: takenAt.UTC().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: catalog.T("last_updated"),
		},
	}
}

// FormatUptime renders d as "1d 2h 3m 4s", leaving out days when there are none.
func FormatUptime(d time.Duration) string {
	if d <= 0 {
		return "0h 0m 0s"
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

// JoinLines joins lines with newlines, keeping the result within limit bytes.
// Lines that do not fit are replaced by a "… +N more" marker.
func JoinLines(lines []string, limit int) string {
	var b strings.Builder
	for i, line := range lines {
		more := fmt.Sprintf("… +%d more", len(lines)-i)

		need := len(line)
		if b.Len() > 0 {
			need++
		}
		room := limit - b.Len()
		if i < len(lines)-1 {
			room -= len(more) + 1
		}

		if need > room {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(more)
			return b.String()
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}
