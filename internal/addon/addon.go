// Package addon serves the Stremio addon protocol on top of the feed cache:
// manifest, catalog, meta and stream endpoints, plus health and metrics.
// Handlers only ever read the published snapshot; the one write path is the
// background refresh kicked off when a meta request finds the cache stale.
package addon

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/config"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/feedcache"
)

// Version is reported in the manifest.
const Version = "2.0.0"

const (
	contentTypeTV = "tv"
	catalogID     = "iptvitalia"
	idPrefix      = "tv|"
)

// Server holds the handler dependencies.
type Server struct {
	cache *feedcache.Cache
	cfg   *config.Config
	probe *http.Client // proxy HEAD validation
	log   zerolog.Logger
}

// New builds a Server around the cache.
func New(cache *feedcache.Cache, cfg *config.Config, log zerolog.Logger) *Server {
	return &Server{
		cache: cache,
		cfg:   cfg,
		probe: &http.Client{
			Timeout: 10 * time.Second,
			// a 302 from the proxy already proves it is alive
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log:   log.With().Str("component", "addon").Logger(),
	}
}

// Router returns the addon's HTTP handler. Stremio clients are browsers, so
// every response carries permissive CORS headers.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsHeaders)

	r.Get("/manifest.json", s.handleManifest)
	r.Get("/catalog/{contentType}/{catalogID}.json", s.handleCatalog)
	r.Get("/catalog/{contentType}/{catalogID}/{extra}.json", s.handleCatalog)
	r.Get("/meta/{contentType}/{id}.json", s.handleMeta)
	r.Get("/stream/{contentType}/{id}.json", s.handleStream)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// channelID maps a channel name to its catalog id. Spaces become underscores
// so the id survives URL path segments; channelName reverses it.
func channelID(name string) string {
	return idPrefix + strings.ReplaceAll(name, " ", "_")
}

func channelName(id string) (string, bool) {
	rest, ok := strings.CutPrefix(id, idPrefix)
	if !ok || rest == "" {
		return "", false
	}
	return strings.ReplaceAll(rest, "_", " "), true
}

// parseExtra decodes the optional catalog extra segment
// ("genre=Sport" or "search=rai", URL-encoded).
func parseExtra(extra string) url.Values {
	if extra == "" {
		return nil
	}
	if unescaped, err := url.PathUnescape(extra); err == nil {
		extra = unescaped
	}
	v, err := url.ParseQuery(extra)
	if err != nil {
		return nil
	}
	return v
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Current()
	body := map[string]any{
		"status": "ok",
		"stale":  s.cache.IsStale(),
	}
	status := http.StatusOK
	if snap == nil {
		body["status"] = "starting"
		status = http.StatusServiceUnavailable
	} else {
		body["channels"] = len(snap.Channels)
		body["genres"] = len(snap.Genres)
		body["guide_channels"] = len(snap.Guide)
		body["fetched_at"] = snap.FetchedAt
	}
	writeJSON(w, status, body)
}
