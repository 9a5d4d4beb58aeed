// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package weather defines the current weather sample and the interface weather backends implement.
package weather

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/wneessen/gridspace-companion/internal/geobus"
)

// Fetcher is implemented by each weather API backend. Fetch performs a single lookup without
// retries; failures are returned as *Error.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, coords geobus.Coordinate) (Sample, error)
}

// Sample is the current temperature at a position, rounded to whole degrees Celsius.
type Sample struct {
	TemperatureCelsius int
	FetchedAt          time.Time
}

// Kind classifies a weather lookup failure.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindTimeout
	KindStatus
	KindParse
	KindInvalidData
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindParse:
		return "parse"
	case KindInvalidData:
		return "invalid data"
	default:
		return "unknown"
	}
}

// Error is returned by a Fetcher when a lookup did not yield a temperature.
type Error struct {
	Kind   Kind
	Status int
	Err    error
}

// NewNetworkError wraps a transport failure. Deadline and timeout errors are classified as KindTimeout.
func NewNetworkError(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindNetwork, Err: err}
}

func NewStatusError(status int) *Error {
	return &Error{Kind: KindStatus, Status: status}
}

func NewParseError(err error) *Error {
	return &Error{Kind: KindParse, Err: err}
}

func NewInvalidDataError() *Error {
	return &Error{Kind: KindInvalidData}
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("http status %d", e.Status)
	case KindParse:
		return fmt.Sprintf("parse error: %s", e.Err)
	case KindInvalidData:
		return "invalid data"
	case KindTimeout:
		return fmt.Sprintf("request timed out: %s", e.Err)
	default:
		return fmt.Sprintf("network error: %s", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}
