// Package scheduler drives periodic cache refreshes: one attempt per update
// interval, with rate-limited retries when an attempt fails.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/feedcache"
)

// DefaultRetryEvery paces retry attempts after a failed refresh.
const DefaultRetryEvery = 5 * time.Minute

// maxRetries bounds the retry burst before giving up until the next tick.
const maxRetries = 3

// Refresher is the slice of the cache the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context, force bool) (feedcache.Outcome, error)
}

// Scheduler periodically refreshes the cache until its context is cancelled.
type Scheduler struct {
	cache    Refresher
	interval time.Duration
	retry    *rate.Limiter
	log      zerolog.Logger
}

// New builds a Scheduler. retryEvery <= 0 selects DefaultRetryEvery.
func New(cache Refresher, interval, retryEvery time.Duration, log zerolog.Logger) *Scheduler {
	if retryEvery <= 0 {
		retryEvery = DefaultRetryEvery
	}
	return &Scheduler{
		cache:    cache,
		interval: interval,
		retry:    rate.NewLimiter(rate.Every(retryEvery), 1),
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Run blocks until ctx is cancelled. Each tick triggers a non-forced refresh;
// the cache itself decides whether the snapshot is stale enough to refetch.
// On failure the refresh is retried up to maxRetries times, each attempt
// gated by the rate limiter so a dead upstream is not hammered.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		s.refreshWithRetry(ctx)
	}
}

func (s *Scheduler) refreshWithRetry(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		outcome, err := s.cache.Refresh(ctx, false)
		if err == nil {
			s.log.Debug().Str("event", "scheduler.refresh").Str("outcome", outcome.String()).Msg("scheduled refresh done")
			return
		}
		if attempt >= maxRetries {
			s.log.Error().Str("event", "scheduler.gave_up").Err(err).Int("attempts", attempt+1).Msg("refresh kept failing, waiting for next tick")
			return
		}
		s.log.Warn().Str("event", "scheduler.retry").Err(err).Int("attempt", attempt+1).Msg("refresh failed, retrying")
		if werr := s.retry.Wait(ctx); werr != nil {
			return
		}
	}
}
