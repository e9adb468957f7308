package playlist

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/feederr"
	"github.com/mccoy88f/Stremio-IPTVm3u/internal/httpclient"
)

// Source fetches and parses the playlist feed over HTTP. It remembers the
// upstream's cache validators between fetches so an unchanged feed costs a
// 304 instead of a full download; callers see feederr.ErrNotModified.
type Source struct {
	URL       string
	UserAgent string
	Client    *http.Client

	mu         sync.Mutex
	validators httpclient.Validators

	log zerolog.Logger
}

// NewSource returns a Source for url. If client is nil, httpclient.Default()
// is used.
func NewSource(url, userAgent string, client *http.Client, log zerolog.Logger) *Source {
	if client == nil {
		client = httpclient.Default()
	}
	return &Source{
		URL:       url,
		UserAgent: userAgent,
		Client:    client,
		log:       log.With().Str("component", "playlist").Logger(),
	}
}

// Fetch downloads and parses the playlist. Failures to obtain the document
// are transport errors; a document that parses to zero channels is a format
// error. Both leave the stored validators untouched so the next attempt
// revalidates against the last good copy.
func (s *Source) Fetch(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	prior := s.validators
	s.mu.Unlock()

	body, fresh, err := httpclient.ConditionalGet(ctx, s.Client, s.URL, s.UserAgent, prior)
	if errors.Is(err, feederr.ErrNotModified) {
		s.log.Debug().Str("event", "playlist.not_modified").Msg("playlist unchanged upstream")
		return nil, feederr.ErrNotModified
	}
	if err != nil {
		return nil, feederr.Transport(s.URL, err)
	}

	res, err := ParseBytes(body)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.validators = fresh
	s.mu.Unlock()

	s.log.Info().
		Str("event", "playlist.fetched").
		Int("channels", len(res.Channels)).
		Int("genres", len(res.Genres)).
		Msg("playlist parsed")
	return res, nil
}
