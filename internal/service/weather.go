// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wneessen/gridspace-companion/internal/device"
	"github.com/wneessen/gridspace-companion/internal/geobus"
	"github.com/wneessen/gridspace-companion/internal/logger"
	"github.com/wneessen/gridspace-companion/internal/weather"
)

// FallbackTemperature is sent to the device whenever no temperature could be determined.
const FallbackTemperature = 0

// runWeatherUpdate locates the host, fetches the current temperature and sends it to the device.
// Any failure along the way sends FallbackTemperature instead.
func (s *Service) runWeatherUpdate(ctx context.Context) {
	coords, err := s.locator.Locate(ctx)
	if err != nil {
		var locErr *geobus.LocationError
		if errors.As(err, &locErr) {
			s.logger.Warn("failed to determine geolocation", logger.Err(locErr.Err))
		} else {
			s.logger.Warn("failed to determine geolocation", logger.Err(err))
		}
		s.sendTemperature(FallbackTemperature)
		return
	}
	s.logger.Debug("geolocation determined", slog.Float64("lat", coords.Lat), slog.Float64("lon", coords.Lon))

	sample, err := s.fetcher.Fetch(ctx, coords)
	if err != nil {
		var weatherErr *weather.Error
		kind := "unknown"
		if errors.As(err, &weatherErr) {
			kind = weatherErr.Kind.String()
		}
		s.logger.Warn("failed to fetch weather data", slog.String("provider", s.fetcher.Name()),
			slog.String("kind", kind), logger.Err(err))
		s.sendTemperature(FallbackTemperature)
		return
	}

	s.lastWeather.Set(sample)

	s.logger.Info("weather updated", slog.Int("temperature", sample.TemperatureCelsius))
	s.sendTemperature(sample.TemperatureCelsius)
}

func (s *Service) sendTemperature(celsius int) {
	s.send(device.Message{device.KeyWeatherTemperature: celsius}, "weather")
}
