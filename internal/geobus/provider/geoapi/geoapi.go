// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/wneessen/gridspace-companion/internal/geobus"
	ihttp "github.com/wneessen/gridspace-companion/internal/http"
)

const (
	name = "geoapi"

	APIEndpoint   = "https://geoapi.info/api/geo"
	LookupTimeout = time.Second * 5
)

var ErrHTTPClientRequired = errors.New("http client is required")

// GeolocationGeoAPIProvider resolves the public IP address of the host via geoapi.info.
type GeolocationGeoAPIProvider struct {
	name     string
	endpoint string
	http     *ihttp.Client
	period   time.Duration
	ttl      time.Duration
}

type APIResult struct {
	IP       string `json:"ip"`
	Location struct {
		CountryCode string `json:"country,omitempty"`
		Country     string `json:"countryName,omitempty"`
		Region      string `json:"region,omitempty"`
		City        string `json:"city,omitempty"`
		ZipCode     string `json:"postalCode,omitempty"`
		TimeZone    string `json:"timezone"`
		Coordinates struct {
			Latitude  string `json:"latitude"`
			Longitude string `json:"longitude"`
		} `json:"coordinates"`
	} `json:"location"`
}

func NewGeolocationGeoAPIProvider(client *ihttp.Client) (*GeolocationGeoAPIProvider, error) {
	if client == nil {
		return nil, ErrHTTPClientRequired
	}
	return &GeolocationGeoAPIProvider{
		name:     name,
		endpoint: APIEndpoint,
		http:     client,
		period:   time.Minute * 10,
		ttl:      time.Hour * 2,
	}, nil
}

func (p *GeolocationGeoAPIProvider) Name() string {
	return p.name
}

func (p *GeolocationGeoAPIProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	return geobus.PollStream(ctx, key, p.name, p.period, p.ttl, p.locate)
}

func (p *GeolocationGeoAPIProvider) locate(ctx context.Context) (geobus.Coordinate, error) {
	result := new(APIResult)
	code, err := p.http.GetWithTimeout(ctx, p.endpoint, result, nil, nil, LookupTimeout)
	if err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}
	if code != http.StatusOK {
		return geobus.Coordinate{}, fmt.Errorf("geolocation API returned non-OK status: %d", code)
	}

	loc := result.Location
	acc := float64(geobus.AccuracyUnknown)
	switch {
	case loc.ZipCode != "":
		acc = geobus.AccuracyZip
	case loc.City != "":
		acc = geobus.AccuracyCity
	case loc.Region != "":
		acc = geobus.AccuracyRegion
	case loc.CountryCode != "":
		acc = geobus.AccuracyCountry
	}

	lat, err := strconv.ParseFloat(loc.Coordinates.Latitude, 64)
	if err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to parse latitude from API response: %w", err)
	}
	lon, err := strconv.ParseFloat(loc.Coordinates.Longitude, 64)
	if err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to parse longitude from API response: %w", err)
	}

	return geobus.Coordinate{
		Lat: geobus.Truncate(lat, geobus.TruncPrecision),
		Lon: geobus.Truncate(lon, geobus.TruncPrecision),
		Acc: acc,
	}, nil
}
