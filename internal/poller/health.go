package poller

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hunterjsb/mtbot/internal/motortown"
)

// Alerter receives server health transitions. *alert.Notifier implements it.
type Alerter interface {
	ServerUnreachable()
	ServerRecovered()
	AuthRejected(cause error)
}

// Monitor tracks whether the game server answers polls and since when.
type Monitor struct {
	alerter Alerter
	now     func() time.Time

	mu          sync.Mutex
	online      bool
	seen        bool // at least one poll completed
	onlineSince time.Time
	failures    int
}

// NewMonitor returns a monitor reporting transitions to alerter (which may be nil).
func NewMonitor(alerter Alerter) *Monitor {
	return &Monitor{alerter: alerter, now: time.Now}
}

// Observe records the outcome of one poll.
func (m *Monitor) Observe(err error) {
	m.mu.Lock()
	wasOnline, seen := m.online, m.seen
	m.seen = true

	if err == nil {
		m.failures = 0
		if !wasOnline {
			m.online = true
			m.onlineSince = m.now()
		}
		m.mu.Unlock()

		if seen && !wasOnline {
			slog.Info("Server back online")
			m.notify(func(a Alerter) { a.ServerRecovered() })
		}
		return
	}

	m.failures++
	m.online = false
	m.onlineSince = time.Time{}
	m.mu.Unlock()

	if motortown.IsAuth(err) {
		m.notify(func(a Alerter) { a.AuthRejected(err) })
		return
	}
	if wasOnline || !seen {
		slog.Warn("Server unreachable", "error", err)
		m.notify(func(a Alerter) { a.ServerUnreachable() })
	}
}

func (m *Monitor) notify(fn func(Alerter)) {
	if m.alerter != nil {
		fn(m.alerter)
	}
}

// Online reports whether the last poll succeeded.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Uptime is the time since the server came (back) online, or 0 while offline.
func (m *Monitor) Uptime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.online {
		return 0
	}
	return m.now().Sub(m.onlineSince)
}

// ConsecutiveFailures is the number of failed polls since the last success.
func (m *Monitor) ConsecutiveFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}
