// Package feedcache holds the live-TV feed state: an immutable snapshot of
// channels, genres and program guide, swapped atomically by a single-flight
// refresh and queried lock-free by every request handler.
package feedcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/epg"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/feederr"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/match"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/metrics"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/playlist"
)

// PlaylistSource supplies the channel list. Fetch returns
// feederr.ErrNotModified when the upstream copy is unchanged.
type PlaylistSource interface {
	Fetch(ctx context.Context) (*playlist.Result, error)
}

// GuideSource supplies the program guide.
type GuideSource interface {
	Fetch(ctx context.Context) (epg.Guide, error)
}

// Outcome reports what a Refresh call actually did.
type Outcome int

const (
	OutcomeUpdated        Outcome = iota // new snapshot published
	OutcomeNotModified                   // upstream unchanged, snapshot republished
	OutcomeFresh                         // snapshot still fresh, nothing fetched
	OutcomeAlreadyRunning                // another refresh in flight, call was a no-op
	OutcomeError                         // refresh attempted and failed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUpdated:
		return "updated"
	case OutcomeNotModified:
		return "not_modified"
	case OutcomeFresh:
		return "skipped_fresh"
	case OutcomeAlreadyRunning:
		return "skipped_running"
	default:
		return "error"
	}
}

// EventKind labels cache notifications.
type EventKind string

const (
	EventUpdated EventKind = "updated"
	EventError   EventKind = "error"
)

// Event is delivered to subscribers after a refresh publishes a snapshot or
// fails.
type Event struct {
	Kind      EventKind
	Err       error // set for EventError
	Channels  int
	FetchedAt time.Time
}

// Options configure a Cache.
type Options struct {
	Playlist       PlaylistSource
	Guide          GuideSource // nil disables the EPG
	UpdateInterval time.Duration
	SnapshotPath   string           // "" disables persistence
	Logger         zerolog.Logger
	Now            func() time.Time // defaults to time.Now
}

// Cache coordinates feed refreshes and serves reads. Reads never block on a
// refresh: they load the current snapshot pointer and work on that immutable
// value. At most one refresh runs at a time; concurrent triggers return
// immediately as no-ops.
type Cache struct {
	playlist       PlaylistSource
	guide          GuideSource
	updateInterval time.Duration
	snapshotPath   string
	now            func() time.Time
	log            zerolog.Logger

	current    atomic.Pointer[Snapshot]
	refreshing atomic.Bool

	subMu sync.Mutex
	subs  []chan Event
}

// New builds a Cache. The playlist source is mandatory.
func New(opts Options) *Cache {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	c := &Cache{
		playlist:       opts.Playlist,
		guide:          opts.Guide,
		updateInterval: opts.UpdateInterval,
		snapshotPath:   opts.SnapshotPath,
		now:            now,
		log:            opts.Logger.With().Str("component", "feedcache").Logger(),
	}
	metrics.SetSnapshotAgeFunc(func() float64 {
		s := c.current.Load()
		if s == nil {
			return -1
		}
		return c.now().Sub(s.FetchedAt).Seconds()
	})
	return c
}

// Current returns the published snapshot, or nil before the first successful
// refresh (and failed restore).
func (c *Cache) Current() *Snapshot {
	return c.current.Load()
}

// IsStale reports whether the snapshot is missing or older than the update
// interval.
func (c *Cache) IsStale() bool {
	s := c.current.Load()
	if s == nil {
		return true
	}
	return c.now().Sub(s.FetchedAt) >= c.updateInterval
}

// Refresh fetches the feeds and publishes a new snapshot. With force false it
// does nothing while the snapshot is still fresh. Only one refresh runs at a
// time; a call that finds one in flight returns OutcomeAlreadyRunning without
// waiting.
//
// A playlist failure leaves the previous snapshot published and is returned
// to the caller. A guide failure is not fatal: the new snapshot carries the
// previous guide and the refresh still counts as successful.
func (c *Cache) Refresh(ctx context.Context, force bool) (Outcome, error) {
	if !c.refreshing.CompareAndSwap(false, true) {
		c.log.Debug().Str("event", "refresh.skipped").Msg("refresh already in progress")
		metrics.RefreshTotal.WithLabelValues(OutcomeAlreadyRunning.String()).Inc()
		return OutcomeAlreadyRunning, nil
	}
	defer c.refreshing.Store(false)

	if !force && !c.IsStale() {
		metrics.RefreshTotal.WithLabelValues(OutcomeFresh.String()).Inc()
		return OutcomeFresh, nil
	}

	start := c.now()
	outcome, err := c.refresh(ctx)
	metrics.RefreshTotal.WithLabelValues(outcome.String()).Inc()
	metrics.RefreshDuration.Observe(c.now().Sub(start).Seconds())
	return outcome, err
}

func (c *Cache) refresh(ctx context.Context) (Outcome, error) {
	prev := c.current.Load()

	var (
		plRes    *playlist.Result
		newGuide epg.Guide
		guideErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		plRes, err = c.playlist.Fetch(gctx)
		return err
	})
	if c.guide != nil {
		g.Go(func() error {
			// guide failures never cancel the playlist fetch
			newGuide, guideErr = c.guide.Fetch(gctx)
			return nil
		})
	}
	plErr := g.Wait()

	var (
		channels []playlist.Channel
		genres   []string
	)
	switch {
	case plErr == nil:
		channels = append([]playlist.Channel(nil), plRes.Channels...)
		sortChannels(channels)
		genres = plRes.Genres
	case errors.Is(plErr, feederr.ErrNotModified) && prev != nil:
		channels = prev.Channels
		genres = prev.Genres
	default:
		c.log.Error().Str("event", "refresh.failed").Err(plErr).Msg("playlist refresh failed, keeping previous snapshot")
		c.notify(Event{Kind: EventError, Err: plErr})
		return OutcomeError, plErr
	}

	guide := c.resolveGuide(prev, newGuide, guideErr)

	snap := &Snapshot{
		Channels:  channels,
		Genres:    genres,
		Guide:     guide,
		FetchedAt: c.now(),
	}
	c.publish(snap)

	outcome := OutcomeUpdated
	if plErr != nil {
		outcome = OutcomeNotModified
	}
	c.log.Info().
		Str("event", "refresh.done").
		Str("outcome", outcome.String()).
		Int("channels", len(snap.Channels)).
		Int("genres", len(snap.Genres)).
		Int("guide_channels", len(snap.Guide)).
		Msg("snapshot published")
	c.notify(Event{Kind: EventUpdated, Channels: len(snap.Channels), FetchedAt: snap.FetchedAt})
	return outcome, nil
}

// resolveGuide picks the guide for the next snapshot: the freshly fetched one
// when available, otherwise the previous snapshot's guide. Guide data is
// best-effort, so a fetch failure downgrades to the last good copy rather
// than failing the refresh.
func (c *Cache) resolveGuide(prev *Snapshot, fresh epg.Guide, err error) epg.Guide {
	if c.guide == nil {
		return nil
	}
	if err == nil {
		return fresh
	}
	var prevGuide epg.Guide
	if prev != nil {
		prevGuide = prev.Guide
	}
	if errors.Is(err, feederr.ErrNotModified) {
		return prevGuide
	}
	c.log.Warn().Str("event", "epg.fallback").Err(err).Msg("guide refresh failed, reusing previous guide")
	metrics.EPGFallbackTotal.Inc()
	return prevGuide
}

func (c *Cache) publish(snap *Snapshot) {
	c.current.Store(snap)
	metrics.Channels.Set(float64(len(snap.Channels)))
	metrics.Genres.Set(float64(len(snap.Genres)))
	metrics.GuideChannels.Set(float64(len(snap.Guide)))

	if c.snapshotPath != "" {
		if err := snap.save(c.snapshotPath); err != nil {
			c.log.Warn().Str("event", "snapshot.save_failed").Err(err).Msg("could not persist snapshot")
		}
	}
}

// Restore loads the persisted snapshot from disk and publishes it. The stored
// fetch time is kept, so a stale file is served immediately but still
// triggers a refresh. Missing files are not an error.
func (c *Cache) Restore() error {
	if c.snapshotPath == "" {
		return nil
	}
	snap, err := loadSnapshot(c.snapshotPath)
	if err != nil {
		return err
	}
	c.current.Store(snap)
	metrics.Channels.Set(float64(len(snap.Channels)))
	metrics.Genres.Set(float64(len(snap.Genres)))
	metrics.GuideChannels.Set(float64(len(snap.Guide)))
	c.log.Info().
		Str("event", "snapshot.restored").
		Int("channels", len(snap.Channels)).
		Time("fetched_at", snap.FetchedAt).
		Msg("snapshot restored from disk")
	return nil
}

// Subscribe returns a channel receiving refresh events. Delivery is
// best-effort: a subscriber that falls behind misses events instead of
// blocking the refresh.
func (c *Cache) Subscribe() <-chan Event {
	ch := make(chan Event, 8)
	c.subMu.Lock()
	c.subs = append(c.subs, ch)
	c.subMu.Unlock()
	return ch
}

func (c *Cache) notify(ev Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// GetChannel looks a channel up by name, insensitive to case, punctuation and
// spacing. The second return is false when no channel matches; absence is not
// an error.
func (c *Cache) GetChannel(name string) (playlist.Channel, bool) {
	s := c.current.Load()
	if s == nil {
		return playlist.Channel{}, false
	}
	key := match.Normalize(name)
	for _, ch := range s.Channels {
		if match.Normalize(ch.Name) == key {
			return ch, true
		}
	}
	return playlist.Channel{}, false
}

// GetChannelsByGenre returns the channels carrying the given genre label,
// compared exactly. An empty genre returns every channel.
func (c *Cache) GetChannelsByGenre(genre string) []playlist.Channel {
	s := c.current.Load()
	if s == nil {
		return nil
	}
	if genre == "" {
		return s.Channels
	}
	var out []playlist.Channel
	for _, ch := range s.Channels {
		for _, g := range ch.Genres {
			if g == genre {
				out = append(out, ch)
				break
			}
		}
	}
	return out
}

// Search returns the channels whose normalized name contains the normalized
// query. An empty query matches every channel.
func (c *Cache) Search(query string) []playlist.Channel {
	s := c.current.Load()
	if s == nil {
		return nil
	}
	var out []playlist.Channel
	for _, ch := range s.Channels {
		if match.ContainsQuery(ch.Name, query) {
			out = append(out, ch)
		}
	}
	return out
}

// Genres returns the snapshot's genre labels in first-seen feed order.
func (c *Cache) Genres() []string {
	s := c.current.Load()
	if s == nil {
		return nil
	}
	return s.Genres
}

// CurrentProgram returns the program airing now on the given guide channel,
// or nil when the guide doesn't know.
func (c *Cache) CurrentProgram(guideID string) *epg.Program {
	s := c.current.Load()
	if s == nil || s.Guide == nil {
		return nil
	}
	return s.Guide.CurrentProgram(guideID, c.now())
}

// UpcomingPrograms returns up to limit programs starting at or after now.
func (c *Cache) UpcomingPrograms(guideID string, limit int) []epg.Program {
	s := c.current.Load()
	if s == nil || s.Guide == nil {
		return nil
	}
	return s.Guide.UpcomingPrograms(guideID, c.now(), limit)
}
