// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultLocateTimeout is the maximum time Locate waits for a fresh fix.
	DefaultLocateTimeout = time.Second * 15
	// DefaultMaxAge is the maximum age of a known fix that Locate accepts without waiting.
	DefaultMaxAge = time.Minute * 5

	freshnessPoll = time.Millisecond * 500
)

var ErrNoFix = errors.New("no geolocation fix available")

// LocationError is returned when no position could be resolved.
type LocationError struct {
	Err error
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("failed to resolve location: %s", e.Err)
}

func (e *LocationError) Unwrap() error {
	return e.Err
}

// Locator resolves the current position for a key from the GeoBus.
type Locator struct {
	bus     *GeoBus
	key     string
	timeout time.Duration
	maxAge  time.Duration
}

// NewLocator returns a Locator for key. Non-positive durations fall back to the defaults.
func NewLocator(bus *GeoBus, key string, timeout, maxAge time.Duration) *Locator {
	if timeout <= 0 {
		timeout = DefaultLocateTimeout
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Locator{bus: bus, key: key, timeout: timeout, maxAge: maxAge}
}

// Locate returns the current position. A known fix no older than the maximum age is returned right
// away, otherwise Locate waits up to the timeout for a fresh fix to be published. Failures are
// returned as *LocationError.
func (l *Locator) Locate(ctx context.Context) (Coordinate, error) {
	if coord, ok := l.fresh(); ok {
		return coord, nil
	}

	ctxWait, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	sub, unsub := l.bus.Subscribe(l.key, 1)
	defer unsub()
	ticker := time.NewTicker(freshnessPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctxWait.Done():
			err := ctxWait.Err()
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w within %s: %w", ErrNoFix, l.timeout, err)
			}
			return Coordinate{}, &LocationError{Err: err}
		case r, ok := <-sub:
			if ok && r.Age() <= l.maxAge {
				return r.Coordinate(), nil
			}
		case <-ticker.C:
			if coord, ok := l.fresh(); ok {
				return coord, nil
			}
		}
	}
}

func (l *Locator) fresh() (Coordinate, bool) {
	best, ok := l.bus.Best(l.key)
	if !ok || best.Age() > l.maxAge {
		return Coordinate{}, false
	}
	return best.Coordinate(), true
}
