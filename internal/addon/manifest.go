package addon

import "net/http"

type manifest struct {
	ID          string            `json:"id"`
	Version     string            `json:"version"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Logo        string            `json:"logo,omitempty"`
	Resources   []string          `json:"resources"`
	Types       []string          `json:"types"`
	IDPrefixes  []string          `json:"idPrefixes"`
	Catalogs    []manifestCatalog `json:"catalogs"`
}

type manifestCatalog struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Extra []manifestExtra `json:"extra"`
}

type manifestExtra struct {
	Name       string   `json:"name"`
	IsRequired bool     `json:"isRequired"`
	Options    []string `json:"options,omitempty"`
}

// handleManifest serves the addon manifest. The genre filter options track
// the current snapshot, so a playlist that gains a group shows up in Stremio
// after the next refresh without a redeploy.
func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	m := manifest{
		ID:          "org.mccoy88f.iptvaddon",
		Version:     Version,
		Name:        "IPTV Italia",
		Description: "Canali TV italiani da playlist M3U, con guida programmi EPG",
		Resources:   []string{"catalog", "meta", "stream"},
		Types:       []string{contentTypeTV},
		IDPrefixes:  []string{idPrefix},
		Catalogs: []manifestCatalog{{
			Type: contentTypeTV,
			ID:   catalogID,
			Name: "Canali TV Italia",
			Extra: []manifestExtra{
				{Name: "genre", Options: s.cache.Genres()},
				{Name: "search"},
			},
		}},
	}
	writeJSON(w, http.StatusOK, m)
}
