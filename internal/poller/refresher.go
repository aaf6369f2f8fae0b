// Package poller keeps live server status messages up to date.
//
// Every registered channel (a refresh target) gets its own loop that polls the
// game server on a fixed interval and edits one status message in place. Loops
// are independent: a slow Discord call or a failed poll for one channel never
// holds up another, and a failed poll only skips that tick.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hunterjsb/mtbot/internal/motortown"
	"github.com/hunterjsb/mtbot/internal/storage"
	"golang.org/x/sync/singleflight"
)

// DefaultInterval is the refresh period when Options.Interval is unset.
const DefaultInterval = 30 * time.Second

// Fetcher is the API call the refresher polls. *motortown.Client implements it.
type Fetcher interface {
	GetStats(ctx context.Context) ([]motortown.PlayerRecord, error)
}

// Surface creates and edits status messages.
type Surface interface {
	Send(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (messageID string, err error)
	Edit(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) error
}

// Store persists refresh targets. *storage.Repository implements it.
type Store interface {
	ListTargets(ctx context.Context) ([]storage.RefreshTarget, error)
	SaveTarget(ctx context.Context, t storage.RefreshTarget) error
	DeleteTarget(ctx context.Context, channelID string) error
}

// State is where a target is in its refresh cycle.
type State int

const (
	Uninitialized State = iota // registered, nothing rendered yet
	Rendering                  // a tick is in progress
	Idle                       // waiting for the next tick
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Rendering:
		return "rendering"
	case Idle:
		return "idle"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a Refresher. The zero value polls every 30 seconds with a
// single attempt per tick and keeps targets in memory only.
type Options struct {
	Interval time.Duration
	Retry    motortown.RetryPolicy
	Monitor  *Monitor // shared health monitor; a private one is created when nil
	Store    Store    // optional
	Now      func() time.Time
}

// Refresher owns the set of refresh targets and their loops.
type Refresher struct {
	fetcher  Fetcher
	surface  Surface
	render   Renderer
	store    Store
	monitor  *Monitor
	interval time.Duration
	retry    motortown.RetryPolicy
	now      func() time.Time

	polls singleflight.Group

	// storeMu orders store writes with the map changes they mirror. Lock it
	// before mu; mu is never held across store I/O.
	storeMu sync.Mutex

	mu      sync.RWMutex
	targets map[string]*target // keyed by channel ID
	ctx     context.Context    // nil until Start
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

type target struct {
	rec    storage.RefreshTarget
	state  State
	cancel context.CancelFunc // nil until its loop runs
}

// New creates a refresher. Call Start to resume stored targets and begin ticking.
func New(fetcher Fetcher, surface Surface, render Renderer, opts Options) *Refresher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Monitor == nil {
		opts.Monitor = NewMonitor(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Refresher{
		fetcher:  fetcher,
		surface:  surface,
		render:   render,
		store:    opts.Store,
		monitor:  opts.Monitor,
		interval: opts.Interval,
		retry:    opts.Retry,
		now:      opts.Now,
		targets:  make(map[string]*target),
	}
}

// Start loads stored targets and starts a loop for every target. Loops run until
// ctx is cancelled or Stop is called.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.ctx != nil {
		r.mu.Unlock()
		return errors.New("refresher already started")
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	r.storeMu.Lock()
	defer r.storeMu.Unlock()

	var stored []storage.RefreshTarget
	if r.store != nil {
		var err error
		stored, err = r.store.ListTargets(ctx)
		if err != nil {
			return fmt.Errorf("failed to load refresh targets: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range stored {
		if _, ok := r.targets[rec.ChannelID]; !ok {
			r.targets[rec.ChannelID] = &target{rec: rec}
		}
	}
	for _, t := range r.targets {
		if t.cancel == nil {
			r.launchLocked(t)
		}
	}

	slog.Info("Starting stats refresher", "interval", r.interval, "targets", len(r.targets))
	return nil
}

// Stop cancels every loop and waits for in-flight ticks to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	r.stopped = true
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
	slog.Info("Stats refresher stopped")
}

// Register adds a refresh target for rec.ChannelID. It reports false, and changes
// nothing, when the channel is already registered.
func (r *Refresher) Register(ctx context.Context, rec storage.RefreshTarget) (bool, error) {
	r.storeMu.Lock()
	defer r.storeMu.Unlock()

	if r.Tracked(rec.ChannelID) {
		return false, nil
	}

	rec.MessageID = ""
	rec.LastRenderedAt = time.Time{}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	if r.store != nil {
		if err := r.store.SaveTarget(ctx, rec); err != nil {
			return false, err
		}
	}

	t := &target{rec: rec}
	r.mu.Lock()
	r.targets[rec.ChannelID] = t
	if r.ctx != nil && !r.stopped {
		r.launchLocked(t)
	}
	r.mu.Unlock()

	slog.Info("Registered refresh target", "channel", rec.ChannelID, "guild", rec.GuildID, "by", rec.RegisteredBy)
	return true, nil
}

// Deregister removes the target for channelID and stops its loop. It reports
// false when the channel was not registered; that is not an error.
func (r *Refresher) Deregister(ctx context.Context, channelID string) (bool, error) {
	r.storeMu.Lock()
	defer r.storeMu.Unlock()

	r.mu.Lock()
	t, ok := r.targets[channelID]
	if ok {
		delete(r.targets, channelID)
		if t.cancel != nil {
			t.cancel()
		}
	}
	r.mu.Unlock()
	if !ok {
		return false, nil
	}

	slog.Info("Deregistered refresh target", "channel", channelID)

	if r.store != nil {
		if err := r.store.DeleteTarget(ctx, channelID); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Tracked reports whether channelID has a refresh target.
func (r *Refresher) Tracked(channelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.targets[channelID]
	return ok
}

// Target returns a copy of the target for channelID.
func (r *Refresher) Target(channelID string) (storage.RefreshTarget, State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[channelID]
	if !ok {
		return storage.RefreshTarget{}, Uninitialized, false
	}
	return t.rec, t.state, true
}

// Monitor returns the health monitor fed by this refresher's polls.
func (r *Refresher) Monitor() *Monitor { return r.monitor }

func (r *Refresher) launchLocked(t *target) {
	ctx, cancel := context.WithCancel(r.ctx)
	t.cancel = cancel
	r.wg.Add(1)
	go r.loop(ctx, t)
}

func (r *Refresher) loop(ctx context.Context, t *target) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx, t)
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Refresh loop stopped", "channel", t.rec.ChannelID)
			return
		case <-ticker.C:
			r.tick(ctx, t)
		}
	}
}

// tick polls once and renders into t's status message. It never returns an
// error: every failure is logged and the tick is skipped.
func (r *Refresher) tick(ctx context.Context, t *target) {
	r.mu.Lock()
	if r.targets[t.rec.ChannelID] != t {
		r.mu.Unlock()
		return
	}
	channelID := t.rec.ChannelID
	messageID := t.rec.MessageID
	t.state = Rendering
	r.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			slog.Error("Stats refresh panicked", "channel", channelID, "panic", p)
			r.settle(t)
		}
	}()

	players, err := r.poll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Skipping stats refresh", "channel", channelID, "error", err)
		}
		r.settle(t)
		return
	}

	embed := r.render(Snapshot{
		Players: players,
		Uptime:  r.monitor.Uptime(),
		TakenAt: r.now(),
	})

	if messageID != "" {
		if err := r.surface.Edit(ctx, channelID, messageID, embed); err != nil {
			if ctx.Err() != nil {
				r.settle(t)
				return
			}
			if !messageGone(err) {
				slog.Warn("Failed to edit status message", "channel", channelID, "message", messageID, "error", err)
				r.settle(t)
				return
			}
			slog.Warn("Status message is gone, sending a new one", "channel", channelID, "message", messageID, "error", err)
			messageID = ""
		}
	}
	if messageID == "" {
		id, err := r.surface.Send(ctx, channelID, embed)
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("Failed to send status message", "channel", channelID, "error", err)
			}
			r.settle(t)
			return
		}
		messageID = id
	}

	r.storeMu.Lock()
	defer r.storeMu.Unlock()

	r.mu.Lock()
	t.state = Idle
	if r.targets[channelID] != t {
		r.mu.Unlock()
		slog.Debug("Target deregistered during refresh", "channel", channelID)
		return
	}
	t.rec.MessageID = messageID
	t.rec.LastRenderedAt = r.now()
	rec := t.rec
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.SaveTarget(context.WithoutCancel(ctx), rec); err != nil {
			slog.Error("Failed to save refresh target", "channel", channelID, "error", err)
		}
	}
}

// messageGone reports whether an edit failed because the message no longer
// exists. Any other failure keeps the message for the next tick.
func messageGone(err error) bool {
	var re *discordgo.RESTError
	if !errors.As(err, &re) {
		return false
	}
	if re.Message != nil && re.Message.Code == discordgo.ErrCodeUnknownMessage {
		return true
	}
	return re.Response != nil && re.Response.StatusCode == http.StatusNotFound
}

// settle ends a tick that rendered nothing. A target that never rendered goes
// back to Uninitialized, any other to Idle with its message untouched.
func (r *Refresher) settle(t *target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.rec.MessageID == "" {
		t.state = Uninitialized
		return
	}
	t.state = Idle
}

// poll fetches the player list. Concurrent ticks share one request; the
// request runs under the refresher's context so deregistering the target that
// started it does not cancel it for the others.
func (r *Refresher) poll(ctx context.Context) ([]motortown.PlayerRecord, error) {
	ch := r.polls.DoChan("stats", func() (interface{}, error) {
		pctx := r.pollContext()

		var players []motortown.PlayerRecord
		err := r.retry.Do(pctx, func() error {
			var err error
			players, err = r.fetcher.GetStats(pctx)
			return err
		})
		if pctx.Err() == nil {
			r.monitor.Observe(err)
		}
		return players, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		players, _ := res.Val.([]motortown.PlayerRecord)
		return players, nil
	}
}

func (r *Refresher) pollContext() context.Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}
