package embedding

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingOption is returned when a provider is missing a required setting.
	ErrMissingOption = errors.New("missing embedder option")
	// ErrClosed is returned by an embedder used after Close.
	ErrClosed = errors.New("embedder is closed")
)

// DimensionError is returned when a provider returns a vector of unexpected size.
type DimensionError struct {
	Index int
	Got   int
	Want  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding %d has %d dimensions, expected %d", e.Index, e.Got, e.Want)
}
