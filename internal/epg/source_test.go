package epg

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/feederr"
)

const tinyXMLTV = `<tv>
<channel id="a"><display-name>A</display-name></channel>
<programme start="20240131183000 +0100" stop="20240131190000 +0100" channel="a"><title>X</title></programme>
</tv>`

func gzipBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestSourceFetch_gzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(gzipBytes(t, tinyXMLTV))
	}))
	defer srv.Close()

	s := NewSource(srv.URL, "test-agent", 0, srv.Client(), zerolog.Nop())
	guide, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, guide, 1)
	assert.Len(t, guide["a"].Programs, 1)
}

func TestSourceFetch_plainXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(tinyXMLTV))
	}))
	defer srv.Close()

	s := NewSource(srv.URL, "", 0, srv.Client(), zerolog.Nop())
	guide, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, guide, 1)
}

func TestSourceFetch_corruptGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0x1f, 0x8b, 0x00, 0x01, 0x02})
	}))
	defer srv.Close()

	s := NewSource(srv.URL, "", 0, srv.Client(), zerolog.Nop())
	_, err := s.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, feederr.IsTransport(err))
}

func TestSourceFetch_notModified(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(gzipBytes(t, tinyXMLTV))
	}))
	defer srv.Close()

	s := NewSource(srv.URL, "", 0, srv.Client(), zerolog.Nop())
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	_, err = s.Fetch(context.Background())
	assert.True(t, errors.Is(err, feederr.ErrNotModified))
	assert.Equal(t, 2, calls)
}

func TestDecompress(t *testing.T) {
	out, err := decompress([]byte("<tv></tv>"), "https://feed.example/guide.xml")
	require.NoError(t, err)
	assert.Equal(t, "<tv></tv>", string(out), "plain XML passes through")

	gz := gzipBytes(t, "<tv></tv>")
	out, err = decompress(gz, "https://feed.example/guide.xml.gz")
	require.NoError(t, err)
	assert.Equal(t, "<tv></tv>", string(out), "gzip detected by magic bytes")

	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	_, err = bw.Write([]byte("<tv></tv>"))
	require.NoError(t, err)
	require.NoError(t, bw.Close())
	out, err = decompress(buf.Bytes(), "https://feed.example/guide.xml.br")
	require.NoError(t, err)
	assert.Equal(t, "<tv></tv>", string(out), "brotli selected by URL extension")
}
