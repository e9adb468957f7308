package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/feedcache"
)

type fakeRefresher struct {
	mu    sync.Mutex
	errs  []error // popped per call; nil past the end
	calls int
}

func (f *fakeRefresher) Refresh(ctx context.Context, force bool) (feedcache.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if f.calls < len(f.errs) {
		err = f.errs[f.calls]
	}
	f.calls++
	if err != nil {
		return feedcache.OutcomeError, err
	}
	return feedcache.OutcomeUpdated, nil
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRun_ticksAndStops(t *testing.T) {
	f := &fakeRefresher{}
	s := New(f, 10*time.Millisecond, time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return f.callCount() >= 2 }, time.Second, time.Millisecond)
	cancel()
	err := <-done
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRefreshWithRetry_retriesThenSucceeds(t *testing.T) {
	f := &fakeRefresher{errs: []error{errors.New("one"), errors.New("two"), nil}}
	s := New(f, time.Hour, time.Millisecond, zerolog.Nop())

	s.refreshWithRetry(context.Background())
	assert.Equal(t, 3, f.callCount())
}

func TestRefreshWithRetry_givesUp(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeRefresher{errs: []error{boom, boom, boom, boom, boom, boom}}
	s := New(f, time.Hour, time.Millisecond, zerolog.Nop())

	s.refreshWithRetry(context.Background())
	assert.Equal(t, maxRetries+1, f.callCount(), "bounded retries, then wait for the next tick")
}

func TestRefreshWithRetry_stopsOnCancel(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeRefresher{errs: []error{boom, boom, boom, boom}}
	// limiter paced far slower than the test runs
	s := New(f, time.Hour, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.refreshWithRetry(ctx)
	assert.Equal(t, 1, f.callCount())
}
