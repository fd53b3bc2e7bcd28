// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather

import (
	"errors"
)

// Kinds of fetch failures. Every error returned by a Provider's Fetch matches exactly one of them
// with errors.Is.
var (
	// ErrInvalidQuery indicates that no request could be built from the query.
	ErrInvalidQuery = errors.New("invalid weather query")
	// ErrTransport indicates a network, DNS, TLS or timeout failure.
	ErrTransport = errors.New("weather service unreachable")
	// ErrNoData indicates a non-2xx response or an empty response body.
	ErrNoData = errors.New("no weather data")
	// ErrDecode indicates a response that does not match the expected shape.
	ErrDecode = errors.New("failed to decode weather data")
)

// FetchError is returned by Provider implementations. Kind is one of the Err* sentinels of this
// package, Err the underlying cause.
type FetchError struct {
	Kind error
	Err  error
}

// NewFetchError returns a FetchError of the given kind wrapping err.
func NewFetchError(kind, err error) *FetchError {
	return &FetchError{Kind: kind, Err: err}
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the fetch error kind of err, or nil if err is not a fetch error.
func KindOf(err error) error {
	for _, kind := range []error{ErrInvalidQuery, ErrTransport, ErrNoData, ErrDecode} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
