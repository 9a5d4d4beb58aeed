// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/wneessen/gridspace-companion/internal/device"
	"github.com/wneessen/gridspace-companion/internal/logger"
	"github.com/wneessen/gridspace-companion/internal/settings"
)

// Ready applies the persisted weather setting at process start. A missing or unreadable setting
// counts as disabled.
func (s *Service) Ready(ctx context.Context) {
	enabled := false
	value, found, err := s.store.Get(ctx, settings.KeyShowWeather)
	switch {
	case err != nil:
		s.logger.Error("failed to read weather setting", logger.Err(err))
	case found:
		enabled = value == "true"
	}

	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	s.enabled = enabled
	if !enabled {
		s.logger.Info("weather module disabled, skipping updates")
		return
	}

	s.logger.Info("weather module enabled, starting updates")
	s.startWeatherUpdate()
	s.armTimer()
}

// OnConfigurationReceived applies a configuration submitted through the settings webview and
// forwards it to the device. A nil payload means the webview was dismissed.
func (s *Service) OnConfigurationReceived(ctx context.Context, payload settings.Payload) {
	if payload == nil {
		return
	}
	s.logger.Info("configuration received", slog.Int("settings", len(payload)))

	enabled := settings.WeatherEnabled(payload)
	if err := s.store.Set(ctx, settings.KeyShowWeather, strconv.FormatBool(enabled)); err != nil {
		s.logger.Error("failed to persist weather setting", logger.Err(err))
	}
	if encoded, err := payload.Encode(); err != nil {
		s.logger.Error("failed to encode settings", logger.Err(err))
	} else if err = s.store.Set(ctx, settings.StorageKey, encoded); err != nil {
		s.logger.Error("failed to persist settings", logger.Err(err))
	}

	s.stateLock.Lock()
	switch {
	case enabled && !s.enabled:
		s.logger.Info("weather module enabled, starting updates")
		s.enabled = true
		s.startWeatherUpdate()
		s.armTimer()
	case !enabled && s.enabled:
		s.logger.Info("weather module disabled, stopping updates")
		s.enabled = false
		s.cancelTimer()
	case enabled && s.enabled:
		if sample, ok := s.LastWeather(); ok {
			s.logger.Debug("sending cached weather data to device")
			s.send(device.Message{device.KeyWeatherTemperature: sample.TemperatureCelsius}, "cached weather")
		}
	}
	s.stateLock.Unlock()

	s.send(payload.ForDevice(), "configuration")
}
