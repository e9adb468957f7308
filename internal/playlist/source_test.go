package playlist

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/feederr"
)

func TestSourceFetch_ok(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(sampleM3U))
	}))
	defer srv.Close()

	s := NewSource(srv.URL, "HbbTV/1.6.1", srv.Client(), zerolog.Nop())
	res, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Channels, 3)
	assert.Equal(t, "HbbTV/1.6.1", gotUA)
}

func TestSourceFetch_conditional(t *testing.T) {
	var calls, revalidations int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("If-Modified-Since") != "" {
			revalidations++
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Last-Modified", "Wed, 31 Jan 2024 18:30:00 GMT")
		_, _ = w.Write([]byte(sampleM3U))
	}))
	defer srv.Close()

	s := NewSource(srv.URL, "", srv.Client(), zerolog.Nop())
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	_, err = s.Fetch(context.Background())
	assert.True(t, errors.Is(err, feederr.ErrNotModified))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, revalidations)
}

func TestSourceFetch_transportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewSource(srv.URL, "", srv.Client(), zerolog.Nop())
	_, err := s.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, feederr.IsTransport(err))
}

func TestSourceFetch_formatErrorKeepsValidators(t *testing.T) {
	var conditional bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != "" {
			conditional = true
		}
		w.Header().Set("ETag", `"junk"`)
		_, _ = w.Write([]byte("#EXTM3U\n"))
	}))
	defer srv.Close()

	s := NewSource(srv.URL, "", srv.Client(), zerolog.Nop())
	_, err := s.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, feederr.IsFormat(err))

	// a failed parse must not adopt the new validators: the next fetch has
	// to re-download, not revalidate against a body we never used
	_, err = s.Fetch(context.Background())
	require.Error(t, err)
	assert.False(t, conditional)
}
