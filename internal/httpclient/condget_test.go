package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/feederr"
)

func TestConditionalGet_firstFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("If-None-Match"))
		assert.Empty(t, r.Header.Get("If-Modified-Since"))
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Wed, 31 Jan 2024 18:30:00 GMT")
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	body, v, err := ConditionalGet(context.Background(), srv.Client(), srv.URL, "ua", Validators{})
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, `"v1"`, v.ETag)
	assert.Equal(t, "Wed, 31 Jan 2024 18:30:00 GMT", v.LastModified)
}

func TestConditionalGet_notModified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `"v1"`, r.Header.Get("If-None-Match"))
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	prior := Validators{ETag: `"v1"`}
	_, v, err := ConditionalGet(context.Background(), srv.Client(), srv.URL, "", prior)
	assert.True(t, errors.Is(err, feederr.ErrNotModified))
	assert.Equal(t, prior, v, "304 keeps the prior validators")
}

func TestConditionalGet_badStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, _, err := ConditionalGet(context.Background(), srv.Client(), srv.URL, "", Validators{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, feederr.ErrNotModified))
}
