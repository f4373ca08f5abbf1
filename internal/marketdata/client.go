// Package marketdata looks up company reference data (display name and sector)
// from an external quote source.
package marketdata

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the source has no data for a ticker
var ErrNotFound = errors.New("ticker not found in market data")

// Quote is the reference data of one ticker
type Quote struct {
	Ticker string  `json:"ticker"`
	Name   string  `json:"name"`
	Sector *string `json:"sector,omitempty"`
}

// Client looks up reference data for a ticker
type Client interface {
	Lookup(ctx context.Context, ticker string) (*Quote, error)
}

// UpstreamError reports a failed exchange with the quote source
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("market data upstream returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("market data upstream unreachable: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying the request may succeed
func (e *UpstreamError) Transient() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// IsTransient reports whether err is an upstream error worth retrying
func IsTransient(err error) bool {
	var upErr *UpstreamError
	return errors.As(err, &upErr) && upErr.Transient()
}
