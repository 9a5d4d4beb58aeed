// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"strings"

	"github.com/wneessen/gridspace-companion/internal/config"
	"github.com/wneessen/gridspace-companion/internal/device"
	"github.com/wneessen/gridspace-companion/internal/geobus"
	"github.com/wneessen/gridspace-companion/internal/geobus/provider/geoapi"
	"github.com/wneessen/gridspace-companion/internal/geobus/provider/geoclue"
	"github.com/wneessen/gridspace-companion/internal/geobus/provider/geoip"
	"github.com/wneessen/gridspace-companion/internal/geobus/provider/geolocation_file"
	"github.com/wneessen/gridspace-companion/internal/geobus/provider/gpsd"
	"github.com/wneessen/gridspace-companion/internal/geobus/provider/ichnaea"
	"github.com/wneessen/gridspace-companion/internal/http"
	"github.com/wneessen/gridspace-companion/internal/logger"
	"github.com/wneessen/gridspace-companion/internal/weather"
	openmeteo "github.com/wneessen/gridspace-companion/internal/weather/provider/open-meteo"
)

func (s *Service) selectGeobusProviders() ([]geobus.Provider, error) {
	httpClient := http.New(s.logger)
	var provider []geobus.Provider

	if !s.config.GeoLocation.DisableGeolocationFile {
		provider = append(provider, geolocation_file.NewGeolocationFileProvider(s.config.GeoLocation.File))
	}

	if !s.config.GeoLocation.DisableGPSD {
		provider = append(provider, gpsd.NewGeolocationGPSDProvider(s.config.GeoLocation.GPSDAddress))
	}

	if !s.config.GeoLocation.DisableGeoClue {
		provider = append(provider, geoclue.NewGeolocationGeoClueProvider())
	}

	if !s.config.GeoLocation.DisableGeoIP {
		provider = append(provider, geoip.NewGeolocationGeoIPProvider(httpClient))
	}

	if !s.config.GeoLocation.DisableGeoAPI {
		gap, err := geoapi.NewGeolocationGeoAPIProvider(httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create GeoAPI provider: %w", err)
		}
		provider = append(provider, gap)
	}

	if !s.config.GeoLocation.DisableICHNAEA {
		mls, err := ichnaea.NewGeolocationICHNAEAProvider(httpClient)
		if err != nil {
			s.logger.Error("failed to create ICHNAEA provider", logger.Err(err))
		} else {
			provider = append(provider, mls)
		}
	}
	if len(provider) == 0 {
		return nil, fmt.Errorf("no geolocation providers enabled")
	}

	return provider, nil
}

func (s *Service) selectWeatherFetcher() (weather.Fetcher, error) {
	fetcher, err := openmeteo.New(http.New(s.logger), s.logger, s.config.Weather.Endpoint, s.config.Weather.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create Open-Meteo weather provider: %w", err)
	}
	return fetcher, nil
}

func (s *Service) selectDeviceSender() (device.Sender, error) {
	switch strings.ToLower(s.config.Device.Transport) {
	case config.TransportStdout, "":
		return device.NewWriterSender(nil), nil
	case config.TransportHTTP:
		sender, err := device.NewHTTPSender(http.New(s.logger), s.config.Device.Endpoint, s.config.Device.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP device transport: %w", err)
		}
		return sender, nil
	default:
		return nil, fmt.Errorf("unsupported device transport: %s", s.config.Device.Transport)
	}
}
