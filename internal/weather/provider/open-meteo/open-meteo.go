// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wneessen/gridspace-companion/internal/geobus"
	ihttp "github.com/wneessen/gridspace-companion/internal/http"
	"github.com/wneessen/gridspace-companion/internal/logger"
	"github.com/wneessen/gridspace-companion/internal/weather"
)

const (
	name = "open-meteo"

	// APIEndpoint is the public Open-Meteo forecast API
	APIEndpoint = "https://api.open-meteo.com/v1/forecast"

	// DefaultTimeout is the request timeout for a single lookup
	DefaultTimeout = time.Second * 10
)

var (
	ErrHTTPClientRequired = errors.New("http client is required")
	ErrLoggerRequired     = errors.New("logger is required")
)

// OpenMeteo fetches the current temperature from the Open-Meteo API.
type OpenMeteo struct {
	endpoint string
	timeout  time.Duration
	log      *logger.Logger
	http     *ihttp.Client
}

// New returns an OpenMeteo fetcher. An empty endpoint or a zero timeout select the defaults.
func New(client *ihttp.Client, log *logger.Logger, endpoint string, timeout time.Duration) (*OpenMeteo, error) {
	if client == nil {
		return nil, ErrHTTPClientRequired
	}
	if log == nil {
		return nil, ErrLoggerRequired
	}
	if endpoint == "" {
		endpoint = APIEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &OpenMeteo{endpoint: endpoint, timeout: timeout, http: client, log: log}, nil
}

func (o *OpenMeteo) Name() string {
	return name
}

// Fetch performs exactly one GET request for the current temperature at coords. Failures are
// returned as *weather.Error.
func (o *OpenMeteo) Fetch(ctx context.Context, coords geobus.Coordinate) (weather.Sample, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	query.Set("current", "temperature_2m")
	query.Set("temperature_unit", "celsius")
	query.Set("timezone", "auto")

	code, body, err := o.http.GetRaw(ctx, o.endpoint, query, nil, o.timeout)
	if err != nil {
		return weather.Sample{}, weather.NewNetworkError(err)
	}
	if code != http.StatusOK {
		return weather.Sample{}, weather.NewStatusError(code)
	}

	temp, err := currentTemperature(body)
	if err != nil {
		return weather.Sample{}, err
	}
	o.log.Debug("current temperature received", "provider", name, "temperature", temp)

	return weather.Sample{
		TemperatureCelsius: int(math.Round(temp)),
		FetchedAt:          time.Now(),
	}, nil
}

// currentTemperature extracts current.temperature_2m from an API response. Malformed JSON is a
// parse error, well-formed JSON without a numeric temperature is invalid data.
func currentTemperature(body []byte) (float64, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return 0, weather.NewParseError(err)
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return 0, weather.NewInvalidDataError()
	}
	current, ok := root["current"].(map[string]any)
	if !ok {
		return 0, weather.NewInvalidDataError()
	}
	temp, ok := current["temperature_2m"].(float64)
	if !ok {
		return 0, weather.NewInvalidDataError()
	}
	return temp, nil
}
