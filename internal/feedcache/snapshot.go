package feedcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/epg"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/playlist"
)

// Snapshot is the atomic unit the cache publishes: channels in default order,
// genres in first-seen order, and the program guide. Once published a
// snapshot is never mutated; a refresh builds a new one and swaps the
// pointer, so readers always observe a complete, internally consistent state.
type Snapshot struct {
	Channels  []playlist.Channel `json:"channels"`
	Genres    []string           `json:"genres"`
	Guide     epg.Guide          `json:"guide,omitempty"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// sortChannels establishes the default channel order: numbered channels
// ascending by number, unnumbered channels after all numbered ones, ties
// broken by case-insensitive name. The sort is stable so equal entries keep
// feed order.
func sortChannels(channels []playlist.Channel) {
	sort.SliceStable(channels, func(i, j int) bool {
		a, b := channels[i], channels[j]
		switch {
		case a.Number > 0 && b.Number > 0 && a.Number != b.Number:
			return a.Number < b.Number
		case a.Number > 0 && b.Number == 0:
			return true
		case a.Number == 0 && b.Number > 0:
			return false
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}

// save writes the snapshot to path atomically (temp file + rename), so a
// reader of the file never sees a partial write and a crash mid-save leaves
// the previous copy intact.
func (s *Snapshot) save(path string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("snapshot save: marshal: %w", err)
	}
	if err := renameio.WriteFile(filepath.Clean(path), data, 0o600); err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}
	return nil
}

// loadSnapshot reads a snapshot previously written by save.
func loadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot load: %w", err)
	}
	return &s, nil
}
