// Package feederr defines the error taxonomy shared by the playlist and EPG
// feed pipelines: transport failures (network, HTTP status, decompression),
// format failures (feed fetched but unusable), and the not-modified sentinel
// for conditional fetches. A query that finds nothing is not an error and is
// never represented here.
package feederr

import (
	"errors"
	"fmt"
)

// ErrNotModified is returned by a feed source when the upstream answered 304;
// the previously fetched document is still current.
var ErrNotModified = errors.New("feed: not modified")

// TransportError wraps a failure to obtain the feed bytes: connection errors,
// timeouts, unexpected HTTP status, or decompression failure.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("feed transport %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FormatError wraps a feed that was fetched but is structurally unusable.
// For the playlist this includes parsing to zero entries: treating that as an
// empty success would let a corrupt feed wipe a good cache.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err == nil {
		return "feed format: " + e.Reason
	}
	return fmt.Sprintf("feed format: %s: %v", e.Reason, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Transport wraps err as a TransportError for url. Returns nil for nil err.
func Transport(url string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{URL: url, Err: err}
}

// Format builds a FormatError. err may be nil when reason says it all.
func Format(reason string, err error) error {
	return &FormatError{Reason: reason, Err: err}
}

// IsTransport reports whether any error in err's chain is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsFormat reports whether any error in err's chain is a FormatError.
func IsFormat(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
