package epg

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/feederr"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/httpclient"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Source fetches, decompresses and parses the program-guide feed. Guides are
// usually served gzip-compressed; ".br" URLs are brotli, and an uncompressed
// XML body is accepted as-is.
type Source struct {
	URL         string
	UserAgent   string
	MaxPrograms int // per-channel timeline cap; 0 = unlimited
	Client      *http.Client

	mu         sync.Mutex
	validators httpclient.Validators

	log zerolog.Logger
}

// NewSource returns a Source for url. If client is nil, httpclient.Default()
// is used.
func NewSource(url, userAgent string, maxPrograms int, client *http.Client, log zerolog.Logger) *Source {
	if client == nil {
		client = httpclient.Default()
	}
	return &Source{
		URL:         url,
		UserAgent:   userAgent,
		MaxPrograms: maxPrograms,
		Client:      client,
		log:         log.With().Str("component", "epg").Logger(),
	}
}

// Fetch downloads and parses the guide. Download and decompression failures
// are transport errors; a document without the XMLTV structure is a format
// error. An upstream 304 surfaces as feederr.ErrNotModified.
func (s *Source) Fetch(ctx context.Context) (Guide, error) {
	s.mu.Lock()
	prior := s.validators
	s.mu.Unlock()

	body, fresh, err := httpclient.ConditionalGet(ctx, s.Client, s.URL, s.UserAgent, prior)
	if errors.Is(err, feederr.ErrNotModified) {
		s.log.Debug().Str("event", "epg.not_modified").Msg("guide unchanged upstream")
		return nil, feederr.ErrNotModified
	}
	if err != nil {
		return nil, feederr.Transport(s.URL, err)
	}

	xmlData, err := decompress(body, s.URL)
	if err != nil {
		return nil, feederr.Transport(s.URL, err)
	}

	guide, err := Parse(bytes.NewReader(xmlData), s.MaxPrograms)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.validators = fresh
	s.mu.Unlock()

	programs := 0
	for _, ch := range guide {
		programs += len(ch.Programs)
	}
	s.log.Info().
		Str("event", "epg.fetched").
		Int("channels", len(guide)).
		Int("programs", programs).
		Msg("guide parsed")
	return guide, nil
}

// decompress unwraps the feed payload. Gzip is detected by magic bytes,
// brotli by the URL extension (brotli streams carry no magic), and anything
// else is assumed to be plain XML.
func decompress(data []byte, url string) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case strings.HasSuffix(strings.ToLower(url), ".br"):
		return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	default:
		return data, nil
	}
}
