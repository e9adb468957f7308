// Command stremio-iptv serves a Stremio addon for live TV channels from an
// M3U playlist, with an optional XMLTV program guide. It refreshes the feeds
// on a schedule and answers every request from an in-memory snapshot.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/addon"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/config"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/epg"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/feedcache"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/health"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/httpclient"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/playlist"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "stremio-iptv:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	probeCtx, probeCancel := context.WithTimeout(ctx, 20*time.Second)
	if err := health.CheckFeed(probeCtx, cfg.M3UURL); err != nil {
		log.Warn().Str("event", "startup.feed_probe").Err(err).Msg("playlist URL not reachable yet")
	}
	probeCancel()

	client := httpclient.WithTimeout(cfg.FetchTimeout)
	plSrc := playlist.NewSource(cfg.M3UURL, cfg.UserAgent, client, log)
	var guideSrc feedcache.GuideSource
	if cfg.EnableEPG {
		guideSrc = epg.NewSource(cfg.EPGURL, cfg.UserAgent, cfg.MaxGuidePrograms, client, log)
	}

	cache := feedcache.New(feedcache.Options{
		Playlist:       plSrc,
		Guide:          guideSrc,
		UpdateInterval: cfg.UpdateInterval,
		SnapshotPath:   cfg.SnapshotPath,
		Logger:         log,
	})
	if err := cache.Restore(); err != nil && !os.IsNotExist(err) {
		log.Warn().Str("event", "startup.restore_failed").Err(err).Msg("could not restore persisted snapshot")
	}

	go logCacheEvents(cache.Subscribe(), log)

	// Populate before serving; a persisted snapshot keeps us alive when the
	// first fetch fails.
	startCtx, startCancel := context.WithTimeout(ctx, 2*time.Minute)
	if _, err := cache.Refresh(startCtx, true); err != nil && cache.Current() == nil {
		startCancel()
		return fmt.Errorf("initial refresh: %w", err)
	}
	startCancel()

	go func() {
		_ = scheduler.New(cache, cfg.UpdateInterval, 0, log).Run(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           addon.New(cache, cfg, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	log.Info().Str("event", "startup.listening").Int("port", cfg.Port).Bool("epg", cfg.EnableEPG).Msg("addon ready")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func logCacheEvents(events <-chan feedcache.Event, log zerolog.Logger) {
	for ev := range events {
		switch ev.Kind {
		case feedcache.EventUpdated:
			log.Debug().Str("event", "cache.updated").Int("channels", ev.Channels).Msg("cache event")
		case feedcache.EventError:
			log.Debug().Str("event", "cache.error").Err(ev.Err).Msg("cache event")
		}
	}
}
