// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import (
	"context"
	"time"
)

// LocateFunc performs a single position lookup.
type LocateFunc func(ctx context.Context) (Coordinate, error)

// PollStream calls locate immediately and then once per period, emitting a Result whenever the
// position changed. Failed lookups are skipped until the next period. The returned channel is
// closed when ctx is done.
func PollStream(ctx context.Context, key, source string, period, ttl time.Duration, locate LocateFunc) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		state := GeolocationState{}
		firstRun := true

		for {
			if !firstRun {
				select {
				case <-ctx.Done():
					return
				case <-time.After(period):
				}
			}
			firstRun = false

			coord, err := locate(ctx)
			if err != nil || !coord.Valid() {
				continue
			}

			// Only emit if values changed or it's the first read
			if !state.HasChanged(coord) {
				continue
			}
			state.Update(coord)

			select {
			case <-ctx.Done():
				return
			case out <- NewResult(key, source, coord, ttl):
			}
		}
	}()
	return out
}

// NewResult composes a Result observed now from the given coordinate and metadata.
func NewResult(key, source string, coord Coordinate, ttl time.Duration) Result {
	return Result{
		Key:            key,
		Lat:            coord.Lat,
		Lon:            coord.Lon,
		AccuracyMeters: coord.Acc,
		Source:         source,
		At:             time.Now(),
		TTL:            ttl,
	}
}
