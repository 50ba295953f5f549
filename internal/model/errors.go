package model

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Sentinel errors for download operations.
var (
	// ErrInvalidURL is returned for empty URLs or URLs without an http(s) scheme.
	ErrInvalidURL = errors.New("invalid url")
	// ErrUnsupportedPlatform is returned when no strategy handles the URL.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrPermissionDenied is returned when a stale partial file cannot be replaced.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrRangeRejected marks a 416 response to a resume request. The partial
	// file already holds the whole resource.
	ErrRangeRejected = errors.New("range not satisfiable")
	// ErrRangeIgnored marks a 200 response to a resume request.
	ErrRangeIgnored = errors.New("server ignored range request")
	// ErrTransport is the base of every TransportError.
	ErrTransport = errors.New("transport error")
	// ErrArtifactMissing is returned when the strategy output is absent or empty.
	ErrArtifactMissing = errors.New("file missing or empty")
	// ErrOutputUnresolved is returned when no output file could be located.
	ErrOutputUnresolved = errors.New("output file unresolved")
)

// TransportError reports a bad HTTP status or a failed network exchange.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bad response status %d from %s", e.StatusCode, e.URL)
	}
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
	return "transport error: " + e.URL
}

// Is makes errors.Is(err, ErrTransport) match every TransportError.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PermissionError reports a partial file that cannot be written or removed.
// Its message carries the command that clears it.
type PermissionError struct {
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("Cannot write to %s. Run: sudo rm '%s'", filepath.Base(e.Path), e.Path)
}

// Is makes errors.Is(err, ErrPermissionDenied) match every PermissionError.
func (e *PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}
