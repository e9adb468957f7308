package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mccoy88f/Stremio-IPTVm3u/internal/feederr"
)

// Validators carries the cache-validator headers from a 200 response. A feed
// source keeps these between refreshes and replays them so an unchanged
// upstream answers 304 instead of re-sending megabytes of playlist or guide.
type Validators struct {
	ETag         string
	LastModified string
}

// ConditionalGet issues a GET with If-None-Match / If-Modified-Since when the
// prior validators are non-empty. Returns feederr.ErrNotModified on 304. On
// 200 it returns the full body and the fresh validators.
func ConditionalGet(ctx context.Context, client *http.Client, url, userAgent string, prior Validators) ([]byte, Validators, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, Validators{}, fmt.Errorf("condget: build request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if prior.ETag != "" {
		req.Header.Set("If-None-Match", prior.ETag)
	}
	if prior.LastModified != "" {
		req.Header.Set("If-Modified-Since", prior.LastModified)
	}

	resp, err := DoWithRetry(ctx, client, req, DefaultRetryPolicy)
	if err != nil {
		return nil, Validators{}, fmt.Errorf("condget %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, prior, feederr.ErrNotModified
	}
	if resp.StatusCode != http.StatusOK {
		return nil, Validators{}, fmt.Errorf("condget %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Validators{}, fmt.Errorf("condget %s: read body: %w", url, err)
	}
	return body, Validators{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}
