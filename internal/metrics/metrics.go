// Package metrics exposes the Prometheus collectors for the feed cache.
// Labels are low-cardinality by construction: refresh results, never channel
// or program identifiers.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var snapshotAge atomic.Pointer[func() float64]

var (
	// RefreshTotal counts refresh attempts by result
	// (updated, not_modified, skipped_fresh, skipped_running, error).
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_refresh_total",
		Help: "Total number of cache refresh attempts, by result.",
	}, []string{"result"})

	// RefreshDuration observes wall time of refresh attempts that performed work.
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "iptv_refresh_duration_seconds",
		Help:    "Duration of cache refresh attempts that reached the network.",
		Buckets: prometheus.DefBuckets,
	})

	// EPGFallbackTotal counts refreshes that had to reuse the previous guide.
	EPGFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptv_epg_fallback_total",
		Help: "Total number of refreshes that fell back to the previous program guide.",
	})

	// Channels tracks the channel count of the published snapshot.
	Channels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_channels",
		Help: "Number of channels in the published snapshot.",
	})

	// Genres tracks the genre count of the published snapshot.
	Genres = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_genres",
		Help: "Number of distinct genres in the published snapshot.",
	})

	// GuideChannels tracks the EPG channel count of the published snapshot.
	GuideChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_guide_channels",
		Help: "Number of guide channels in the published snapshot.",
	})

	// SnapshotAge tracks seconds since the published snapshot was fetched.
	SnapshotAge = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "iptv_snapshot_age_seconds",
		Help: "Age of the published snapshot in seconds; -1 when no snapshot exists.",
	}, func() float64 {
		fn := snapshotAge.Load()
		if fn == nil {
			return -1
		}
		return (*fn)()
	})
)

// SetSnapshotAgeFunc registers the callback backing the snapshot age gauge.
func SetSnapshotAgeFunc(fn func() float64) {
	snapshotAge.Store(&fn)
}
