// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoip

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wneessen/gridspace-companion/internal/geobus"
	ihttp "github.com/wneessen/gridspace-companion/internal/http"
)

const (
	name = "geoip"

	APIEndpoint   = "https://reallyfreegeoip.org/json/"
	LookupTimeout = time.Second * 5
)

// GeolocationGeoIPProvider resolves the public IP address of the host to an approximate position.
type GeolocationGeoIPProvider struct {
	name     string
	endpoint string
	http     *ihttp.Client
	period   time.Duration
	ttl      time.Duration
}

// APIResult is the response of the GeoIP API.
type APIResult struct {
	IP          string  `json:"ip"`
	CountryCode string  `json:"country_code"`
	Country     string  `json:"country_name"`
	RegionCode  string  `json:"region_code,omitempty"`
	Region      string  `json:"region_name,omitempty"`
	City        string  `json:"city,omitempty"`
	ZipCode     string  `json:"zip_code,omitempty"`
	TimeZone    string  `json:"time_zone"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	MetroCode   int     `json:"metro_code"`
}

func NewGeolocationGeoIPProvider(client *ihttp.Client) *GeolocationGeoIPProvider {
	return &GeolocationGeoIPProvider{
		name:     name,
		endpoint: APIEndpoint,
		http:     client,
		period:   30 * time.Minute,
		ttl:      60 * time.Minute,
	}
}

func (p *GeolocationGeoIPProvider) Name() string {
	return p.name
}

func (p *GeolocationGeoIPProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	return geobus.PollStream(ctx, key, p.name, p.period, p.ttl, p.locate)
}

// locate queries the API once. The accuracy is derived from the most specific field the API
// was able to fill.
func (p *GeolocationGeoIPProvider) locate(ctx context.Context) (geobus.Coordinate, error) {
	result := new(APIResult)
	code, err := p.http.GetWithTimeout(ctx, p.endpoint, result, nil, nil, LookupTimeout)
	if err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}
	if code != http.StatusOK {
		return geobus.Coordinate{}, fmt.Errorf("geolocation API returned non-OK status: %d", code)
	}

	acc := float64(geobus.AccuracyUnknown)
	switch {
	case result.ZipCode != "":
		acc = geobus.AccuracyZip
	case result.City != "":
		acc = geobus.AccuracyCity
	case result.RegionCode != "":
		acc = geobus.AccuracyRegion
	case result.CountryCode != "":
		acc = geobus.AccuracyCountry
	}

	return geobus.Coordinate{
		Lat: geobus.Truncate(result.Latitude, geobus.TruncPrecision),
		Lon: geobus.Truncate(result.Longitude, geobus.TruncPrecision),
		Acc: acc,
	}, nil
}
