package epg

import (
	"encoding/xml"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/feederr"
)

// XMLTV timestamps: "20240131183000 +0100", sometimes without the offset.
var timeLayouts = []string{
	"20060102150405 -0700",
	"20060102150405",
	time.RFC3339,
}

type xmlDisplayName struct {
	Text string `xml:",chardata"`
}

type xmlIcon struct {
	Src string `xml:"src,attr"`
}

type xmlChannel struct {
	ID           string           `xml:"id,attr"`
	DisplayNames []xmlDisplayName `xml:"display-name"`
	Icon         *xmlIcon         `xml:"icon"`
}

type xmlProgramme struct {
	Start    string `xml:"start,attr"`
	Stop     string `xml:"stop,attr"`
	Channel  string `xml:"channel,attr"`
	Title    string `xml:"title"`
	Desc     string `xml:"desc"`
	Category string `xml:"category"`
	Rating   struct {
		Value string `xml:"value"`
	} `xml:"rating"`
}

// Parse reads an uncompressed XMLTV document and returns the guide mapping.
// Channel declarations populate the mapping first; programmes are then
// appended by channel reference, and references to undeclared channels are
// silently dropped (guides routinely describe channels the operator does not
// carry). Each channel's timeline is sorted ascending by start time before
// returning; when maxPrograms > 0 a timeline is truncated to that many
// entries after sorting.
func Parse(r io.Reader, maxPrograms int) (Guide, error) {
	dec := xml.NewDecoder(r)

	guide := make(Guide)
	var programmes []xmlProgramme
	sawRoot := false

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, feederr.Format("decode xmltv", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "tv":
			sawRoot = true
		case "channel":
			var node xmlChannel
			if err := dec.DecodeElement(&node, &se); err != nil {
				return nil, feederr.Format("decode channel element", err)
			}
			id := strings.TrimSpace(node.ID)
			if id == "" {
				continue
			}
			ch := &GuideChannel{ID: id, DisplayName: id}
			for _, dn := range node.DisplayNames {
				if name := strings.TrimSpace(dn.Text); name != "" {
					ch.DisplayName = name
					break
				}
			}
			if node.Icon != nil {
				ch.LogoURL = strings.TrimSpace(node.Icon.Src)
			}
			guide[id] = ch
		case "programme":
			var node xmlProgramme
			if err := dec.DecodeElement(&node, &se); err != nil {
				return nil, feederr.Format("decode programme element", err)
			}
			programmes = append(programmes, node)
		default:
			if !sawRoot {
				// Not an XMLTV document at all.
				return nil, feederr.Format("unexpected root element <"+se.Name.Local+">", nil)
			}
			if err := dec.Skip(); err != nil {
				return nil, feederr.Format("decode xmltv", err)
			}
		}
	}
	if !sawRoot {
		return nil, feederr.Format("xmltv root <tv> not found", nil)
	}

	for _, p := range programmes {
		ch, ok := guide[strings.TrimSpace(p.Channel)]
		if !ok {
			continue
		}
		start, err := parseTime(p.Start)
		if err != nil {
			continue
		}
		stop, err := parseTime(p.Stop)
		if err != nil || !start.Before(stop) {
			continue
		}
		title := strings.TrimSpace(p.Title)
		if title == "" {
			title = "Programma senza titolo"
		}
		ch.Programs = append(ch.Programs, Program{
			Title:       title,
			Description: strings.TrimSpace(p.Desc),
			Category:    strings.TrimSpace(p.Category),
			Rating:      strings.TrimSpace(p.Rating.Value),
			Start:       start,
			Stop:        stop,
		})
	}

	// Source guides emit programmes in arbitrary order; current/upcoming
	// lookups assume sorted timelines.
	for _, ch := range guide {
		sort.SliceStable(ch.Programs, func(i, j int) bool {
			return ch.Programs[i].Start.Before(ch.Programs[j].Start)
		})
		if maxPrograms > 0 && len(ch.Programs) > maxPrograms {
			ch.Programs = ch.Programs[:maxPrograms]
		}
	}
	return guide, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
