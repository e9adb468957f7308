package addon

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// upcomingShown caps the schedule preview in the meta description.
const upcomingShown = 10

type metaResponse struct {
	Meta metaItem `json:"meta"`
}

// handleMeta serves the channel detail view, enriched with the current and
// upcoming programs when the guide knows the channel. A stale cache triggers
// a background refresh; the response itself is served from the snapshot at
// hand, never delayed by the fetch.
func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "contentType") != contentTypeTV {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown type"})
		return
	}
	name, ok := channelName(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "bad id"})
		return
	}

	if s.cache.IsStale() {
		go s.backgroundRefresh()
	}

	ch, found := s.cache.GetChannel(name)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "channel not found"})
		return
	}

	m := s.previewMeta(ch)
	m.Background = m.Poster
	m.Description = s.scheduleDescription(ch.GuideID)
	writeJSON(w, http.StatusOK, metaResponse{Meta: m})
}

// scheduleDescription renders the now-playing line plus the next programs.
// Empty when the channel has no guide data.
func (s *Server) scheduleDescription(guideID string) string {
	if guideID == "" {
		return ""
	}
	var b strings.Builder
	if cur := s.cache.CurrentProgram(guideID); cur != nil {
		b.WriteString("In onda: ")
		b.WriteString(cur.Title)
		b.WriteString(" (")
		b.WriteString(cur.Start.Local().Format("15:04"))
		b.WriteString(" - ")
		b.WriteString(cur.Stop.Local().Format("15:04"))
		b.WriteString(")")
		if cur.Description != "" {
			b.WriteString("\n")
			b.WriteString(cur.Description)
		}
	}
	upcoming := s.cache.UpcomingPrograms(guideID, upcomingShown)
	if len(upcoming) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Prossimi programmi:")
		for _, p := range upcoming {
			b.WriteString("\n")
			b.WriteString(p.Start.Local().Format("15:04"))
			b.WriteString(" ")
			b.WriteString(p.Title)
		}
	}
	return b.String()
}

func (s *Server) backgroundRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if _, err := s.cache.Refresh(ctx, false); err != nil {
		s.log.Warn().Str("event", "addon.refresh_failed").Err(err).Msg("background refresh failed")
	}
}
