package addon

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/playlist"
)

type streamItem struct {
	URL           string         `json:"url"`
	Name          string         `json:"name,omitempty"`
	Title         string         `json:"title,omitempty"`
	BehaviorHints *behaviorHints `json:"behaviorHints,omitempty"`
}

type behaviorHints struct {
	NotWebReady  bool          `json:"notWebReady,omitempty"`
	ProxyHeaders *proxyHeaders `json:"proxyHeaders,omitempty"`
}

type proxyHeaders struct {
	Request map[string]string `json:"request,omitempty"`
}

type streamResponse struct {
	Streams []streamItem `json:"streams"`
}

// handleStream returns the playable variants for a channel: the direct feed
// URL always, plus the proxied HLS URL when a proxy is configured and
// answers a HEAD probe. An unknown channel yields an empty stream list, not
// an error, per the addon protocol.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "contentType") != contentTypeTV {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown type"})
		return
	}
	name, ok := channelName(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "bad id"})
		return
	}
	ch, found := s.cache.GetChannel(name)
	if !found {
		writeJSON(w, http.StatusOK, streamResponse{Streams: []streamItem{}})
		return
	}

	ua := s.streamUserAgent(ch)
	streams := []streamItem{{
		URL:   ch.StreamURL,
		Name:  "IPTV Italia",
		Title: "Diretta",
		BehaviorHints: &behaviorHints{
			NotWebReady:  true,
			ProxyHeaders: &proxyHeaders{Request: map[string]string{"User-Agent": ua}},
		},
	}}

	if proxied := s.proxiedURL(ch, ua); proxied != "" && s.probeOK(r, proxied) {
		streams = append(streams, streamItem{
			URL:   proxied,
			Name:  "IPTV Italia",
			Title: "Proxy HLS",
		})
	}
	writeJSON(w, http.StatusOK, streamResponse{Streams: streams})
}

func (s *Server) streamUserAgent(ch playlist.Channel) string {
	if ua := ch.Headers["User-Agent"]; ua != "" {
		return ua
	}
	return s.cfg.UserAgent
}

// proxiedURL builds the reverse-proxy manifest URL for a channel, or ""
// when no proxy is configured.
func (s *Server) proxiedURL(ch playlist.Channel, ua string) string {
	if s.cfg.ProxyURL == "" || s.cfg.ProxyPassword == "" {
		return ""
	}
	q := url.Values{}
	q.Set("api_password", s.cfg.ProxyPassword)
	q.Set("d", ch.StreamURL)
	q.Set("h_User-Agent", ua)
	return strings.TrimSuffix(s.cfg.ProxyURL, "/") + "/proxy/hls/manifest.m3u8?" + q.Encode()
}

// probeOK HEAD-checks the proxied URL so dead proxy variants never reach the
// client. 200 and 302 both count as alive.
func (s *Server) probeOK(r *http.Request, u string) bool {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodHead, u, nil)
	if err != nil {
		return false
	}
	resp, err := s.probe.Do(req)
	if err != nil {
		s.log.Debug().Str("event", "proxy.probe_failed").Err(err).Msg("proxy stream probe failed")
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusFound
}
