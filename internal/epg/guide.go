// Package epg turns compressed XMLTV program-guide documents into per-channel
// program timelines and answers "what is on now / next" queries against them.
package epg

import "time"

// Program is one schedule entry. Start < Stop always holds; entries that
// violate it are dropped at ingestion.
type Program struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Rating      string    `json:"rating,omitempty"`
	Start       time.Time `json:"start"`
	Stop        time.Time `json:"stop"`
}

// GuideChannel is the EPG-side channel record. Programs are sorted ascending
// by start time; that ordering is established at ingestion, not at query
// time.
type GuideChannel struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	LogoURL     string    `json:"logo_url,omitempty"`
	Programs    []Program `json:"programs"`
}

// Guide maps a guide-channel id to its timeline.
type Guide map[string]*GuideChannel

// CurrentProgram returns the program airing on the given channel at now,
// using the half-open interval [start, stop): a program that starts exactly
// at now is on air, one that stops exactly at now is not. Returns nil when
// the channel is unknown or nothing is airing.
func (g Guide) CurrentProgram(guideID string, now time.Time) *Program {
	ch, ok := g[guideID]
	if !ok {
		return nil
	}
	for i := range ch.Programs {
		p := &ch.Programs[i]
		if p.Start.After(now) {
			break // sorted: nothing later can contain now
		}
		if !now.Before(p.Start) && now.Before(p.Stop) {
			return p
		}
	}
	return nil
}

// UpcomingPrograms returns up to limit programs with start >= now, in
// chronological order. A non-positive limit returns all of them.
func (g Guide) UpcomingPrograms(guideID string, now time.Time, limit int) []Program {
	ch, ok := g[guideID]
	if !ok {
		return nil
	}
	var out []Program
	for _, p := range ch.Programs {
		if p.Start.Before(now) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Channel returns the guide channel for id, or nil.
func (g Guide) Channel(guideID string) *GuideChannel {
	return g[guideID]
}
