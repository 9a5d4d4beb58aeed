// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geolocation_file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/gridspace-companion/internal/geobus"
)

const (
	name = "geolocation_file"

	// Accuracy is the accuracy we assume for a user-provided position. We consider the geolocation
	// file the most accurate source available.
	Accuracy = 5
)

var ErrNoCoordinates = errors.New("no valid coordinates found in geolocation file")

// GeolocationFileProvider periodically reads a "lat,lon" line from a file and emits the position
// whenever it changed.
type GeolocationFileProvider struct {
	name   string
	path   string
	period time.Duration
	ttl    time.Duration
}

// NewGeolocationFileProvider returns a provider reading the given file every two minutes.
func NewGeolocationFileProvider(path string) *GeolocationFileProvider {
	return &GeolocationFileProvider{
		name:   name,
		path:   path,
		period: time.Minute * 2,
		ttl:    time.Hour,
	}
}

func (p *GeolocationFileProvider) Name() string {
	return p.name
}

func (p *GeolocationFileProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	return geobus.PollStream(ctx, key, p.name, p.period, p.ttl, p.readFile)
}

// readFile returns the first parsable "lat,lon" line of the file. Lines starting with # are ignored.
func (p *GeolocationFileProvider) readFile(context.Context) (geobus.Coordinate, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to read geolocation file %q: %w", p.path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		latStr, lonStr, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
		if err != nil {
			continue
		}
		return geobus.Coordinate{Lat: lat, Lon: lon, Acc: Accuracy}, nil
	}
	return geobus.Coordinate{}, ErrNoCoordinates
}
