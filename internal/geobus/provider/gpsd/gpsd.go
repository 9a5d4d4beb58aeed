// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"math"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/gridspace-companion/internal/geobus"
)

const (
	name = "gpsd"

	// DefaultAddress is the address gpsd listens on by default
	DefaultAddress = "localhost:2947"

	fallbackAccuracy3DFix = 10 // ~10 m typical consumer GPS in open sky
	fallbackAccuracy2DFix = 25 // worse than 3D, but still accurate enough
)

// GeolocationGPSDProvider streams positions from a gpsd daemon.
type GeolocationGPSDProvider struct {
	name   string
	addr   string
	period time.Duration
	ttl    time.Duration
}

// NewGeolocationGPSDProvider returns a provider connecting to gpsd at addr.
func NewGeolocationGPSDProvider(addr string) *GeolocationGPSDProvider {
	if addr == "" {
		addr = DefaultAddress
	}
	return &GeolocationGPSDProvider{
		name:   name,
		addr:   addr,
		period: time.Second * 30,
		ttl:    time.Minute * 2,
	}
}

func (p *GeolocationGPSDProvider) Name() string {
	return p.name
}

// LookupStream connects to gpsd and emits a Result for every TPV report with at least a 2D fix
// that moved the position. The connection is re-established after period when it drops.
func (p *GeolocationGPSDProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	out := make(chan geobus.Result)

	go func() {
		defer close(out)
		state := geobus.GeolocationState{}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			session, err := gpsd.Dial(p.addr)
			if err != nil {
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.period):
					continue
				}
			}

			session.AddFilter("TPV", func(r interface{}) {
				tpv, ok := r.(*gpsd.TPVReport)
				if !ok {
					return
				}
				coord, ok := coordinateFromTPV(tpv)
				if !ok || !state.HasChanged(coord) {
					return
				}
				state.Update(coord)

				select {
				case <-ctx.Done():
				case out <- geobus.NewResult(key, p.name, coord, p.ttl):
				}
			})

			// go-gpsd has no way to stop a watch; the session is torn down with the process.
			done := session.Watch()
			select {
			case <-ctx.Done():
				return
			case <-done:
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(p.period):
			}
		}
	}()

	return out
}

// coordinateFromTPV converts a TPV report into a Coordinate. Reports without at least a 2D fix
// are rejected.
func coordinateFromTPV(tpv *gpsd.TPVReport) (geobus.Coordinate, bool) {
	if tpv == nil || tpv.Mode < gpsd.Mode2D {
		return geobus.Coordinate{}, false
	}
	coord := geobus.Coordinate{
		Lat: geobus.Truncate(tpv.Lat, geobus.TruncPrecision),
		Lon: geobus.Truncate(tpv.Lon, geobus.TruncPrecision),
		Acc: horizontalAccuracy(tpv),
	}
	return coord, coord.Valid()
}

func horizontalAccuracy(tpv *gpsd.TPVReport) float64 {
	switch {
	case tpv.Epx > 0 && tpv.Epy > 0:
		return geobus.Truncate(math.Hypot(tpv.Epx, tpv.Epy), geobus.TruncPrecision)
	case tpv.Mode >= gpsd.Mode3D:
		return fallbackAccuracy3DFix
	default:
		return fallbackAccuracy2DFix
	}
}
