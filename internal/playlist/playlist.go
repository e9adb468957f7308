// Package playlist parses M3U channel lists into typed channel records and
// the ordered set of genre labels they declare.
package playlist

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/feederr"
)

const maxLineSize = 1 << 20 // 1 MiB per line

// DefaultGenre is assigned to entries without a group-title attribute.
const DefaultGenre = "Altri"

// Channel is one playlist entry. Name and StreamURL are always non-empty;
// every other field is optional and left at its zero value when the feed
// doesn't provide it.
type Channel struct {
	Name      string            `json:"name"`
	StreamURL string            `json:"stream_url"`
	Headers   map[string]string `json:"headers,omitempty"` // request header overrides, e.g. User-Agent
	GuideID   string            `json:"guide_id,omitempty"`
	LogoURL   string            `json:"logo_url,omitempty"`
	Number    int               `json:"number,omitempty"` // tvg-chno ordering hint; 0 = absent
	Genres    []string          `json:"genres,omitempty"` // insertion order
}

// Result is the output of one parse: channels in feed order plus the distinct
// genre labels in first-seen order.
type Result struct {
	Channels []Channel `json:"channels"`
	Genres   []string  `json:"genres"`
}

// Parse reads an M3U document and returns one Channel per EXTINF+URL pair,
// preserving input order. It fails with a format error only when the input
// yields no channels at all, so a corrupt feed can never masquerade as an
// empty-but-valid one.
//
// The feed is line oriented: an #EXTINF line opens a pending record, any
// #EXTVLCOPT lines attach transport options to it, and the next URL line
// closes it. A URL line with no pending record is discarded.
func Parse(r io.Reader) (*Result, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineSize)

	res := &Result{}
	seenGenres := make(map[string]struct{})
	var pending *Channel

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "#EXTINF:"):
			pending = channelFromEXTINF(line)
		case strings.HasPrefix(line, "#EXTVLCOPT:"):
			if pending != nil {
				applyVLCOpt(pending, strings.TrimPrefix(line, "#EXTVLCOPT:"))
			}
		case strings.HasPrefix(line, "#"):
			// other directives (#EXTM3U, #EXTGRP, ...) are ignored
		case isStreamURL(line):
			if pending == nil {
				continue
			}
			pending.StreamURL = line
			if pending.Name == "" {
				pending.Name = "Channel " + strconv.Itoa(len(res.Channels)+1)
			}
			for _, g := range pending.Genres {
				if _, ok := seenGenres[g]; !ok {
					seenGenres[g] = struct{}{}
					res.Genres = append(res.Genres, g)
				}
			}
			res.Channels = append(res.Channels, *pending)
			pending = nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, feederr.Format("read playlist", err)
	}
	if len(res.Channels) == 0 {
		return nil, feederr.Format("no channels parsed", nil)
	}
	return res, nil
}

// ParseBytes parses an in-memory M3U document.
func ParseBytes(data []byte) (*Result, error) {
	return Parse(bytes.NewReader(data))
}

// channelFromEXTINF builds a pending channel from one #EXTINF metadata line.
// Attribute extraction is tolerant: anything missing stays at its zero value.
// The explicit tvg-name attribute wins over the free-text label after the
// last comma when both are present.
func channelFromEXTINF(line string) *Channel {
	attrs, label := parseEXTINF(line)

	ch := &Channel{
		Name:    label,
		GuideID: attrs["tvg-id"],
		LogoURL: attrs["tvg-logo"],
	}
	if name := strings.TrimSpace(attrs["tvg-name"]); name != "" {
		ch.Name = name
	}
	if chno := strings.TrimSpace(attrs["tvg-chno"]); chno != "" {
		if n, err := strconv.Atoi(chno); err == nil && n > 0 {
			ch.Number = n
		}
	}
	genre := strings.TrimSpace(attrs["group-title"])
	if genre == "" {
		genre = DefaultGenre
	}
	ch.Genres = []string{genre}
	return ch
}

// applyVLCOpt attaches one #EXTVLCOPT transport option to the pending record.
// Only user-agent overrides are meaningful to downstream players.
func applyVLCOpt(ch *Channel, opt string) {
	opt = strings.TrimSpace(opt)
	for _, prefix := range []string{"http-user-agent=", "user-agent="} {
		if strings.HasPrefix(strings.ToLower(opt), prefix) {
			if ua := strings.TrimSpace(opt[len(prefix):]); ua != "" {
				if ch.Headers == nil {
					ch.Headers = make(map[string]string, 1)
				}
				ch.Headers["User-Agent"] = ua
			}
			return
		}
	}
}

func isStreamURL(line string) bool {
	return strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://")
}

// parseEXTINF splits an #EXTINF line into its key="value" attributes and the
// trailing display label after the last comma.
func parseEXTINF(line string) (attrs map[string]string, label string) {
	attrs = make(map[string]string)
	line = strings.TrimPrefix(line, "#EXTINF:")
	if idx := strings.LastIndex(line, ","); idx >= 0 {
		label = strings.TrimSpace(line[idx+1:])
		line = line[:idx]
	}
	for {
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			break
		}
		before := strings.TrimSpace(line[:eq])
		key := before
		if idx := strings.LastIndex(before, " "); idx >= 0 {
			key = strings.TrimSpace(before[idx+1:])
		}
		line = strings.TrimSpace(line[eq+1:])
		if len(line) < 2 {
			break
		}
		quote := line[0]
		if quote != '"' && quote != '\'' {
			break
		}
		line = line[1:]
		end := strings.IndexByte(line, quote)
		if end < 0 {
			break
		}
		attrs[key] = line[:end]
		line = line[end+1:]
	}
	return attrs, label
}
