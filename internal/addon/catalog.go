package addon

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/playlist"
)

type metaItem struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Poster      string   `json:"poster,omitempty"`
	PosterShape string   `json:"posterShape,omitempty"`
	Logo        string   `json:"logo,omitempty"`
	Background  string   `json:"background,omitempty"`
	Description string   `json:"description,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

type catalogResponse struct {
	Metas []metaItem `json:"metas"`
}

// handleCatalog lists channels in snapshot order. A search extra wins over a
// genre extra when both are present; no extra means the full lineup.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "contentType") != contentTypeTV || chi.URLParam(r, "catalogID") != catalogID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown catalog"})
		return
	}
	extra := parseExtra(chi.URLParam(r, "extra"))

	var channels []playlist.Channel
	switch {
	case extra.Get("search") != "":
		channels = s.cache.Search(extra.Get("search"))
	case extra.Get("genre") != "":
		channels = s.cache.GetChannelsByGenre(extra.Get("genre"))
	default:
		channels = s.cache.GetChannelsByGenre("")
	}

	metas := make([]metaItem, 0, len(channels))
	for _, ch := range channels {
		metas = append(metas, s.previewMeta(ch))
	}
	writeJSON(w, http.StatusOK, catalogResponse{Metas: metas})
}

// previewMeta builds the catalog tile for a channel. The poster prefers the
// playlist logo and falls back to the guide channel icon.
func (s *Server) previewMeta(ch playlist.Channel) metaItem {
	poster := ch.LogoURL
	if poster == "" && ch.GuideID != "" {
		if snap := s.cache.Current(); snap != nil {
			if gc := snap.Guide.Channel(ch.GuideID); gc != nil {
				poster = gc.LogoURL
			}
		}
	}
	m := metaItem{
		ID:          channelID(ch.Name),
		Type:        contentTypeTV,
		Name:        ch.Name,
		Poster:      poster,
		PosterShape: "square",
		Logo:        poster,
		Genres:      ch.Genres,
	}
	if ch.GuideID != "" {
		if cur := s.cache.CurrentProgram(ch.GuideID); cur != nil {
			m.Description = "In onda: " + cur.Title
		}
	}
	return m
}
