// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/gridspace-companion/internal/logger"
)

const (
	login1Interface = "org.freedesktop.login1.Manager"
	login1Member    = "PrepareForSleep"

	debounceWindow   = 2 // seconds
	signalBufferSize = 8

	sleepWatchRetryDelay = 10 * time.Second
	networkWakeupDelay   = 10 * time.Second
)

// monitorSleepResume watches logind's PrepareForSleep signal on the system bus so the device
// gets fresh weather data after a resume. Lost or failed bus sessions are retried until ctx is
// done.
func (s *Service) monitorSleepResume(ctx context.Context) {
	var lastResumeUnix int64
	for {
		if err := s.watchSleepSignals(ctx, &lastResumeUnix); err != nil {
			s.logger.Debug("sleep monitor session ended", slog.String("interface", login1Interface),
				logger.Err(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleepWatchRetryDelay):
		}
	}
}

// watchSleepSignals runs one system bus session. It returns when ctx is done or the bus closes
// the signal channel.
func (s *Service) watchSleepSignals(ctx context.Context, lastResumeUnix *int64) error {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			s.logger.Debug("failed to close system bus connection", logger.Err(err))
		}
	}()

	if err = conn.AddMatchSignal(dbus.WithMatchInterface(login1Interface),
		dbus.WithMatchMember(login1Member)); err != nil {
		return fmt.Errorf("failed to subscribe to %s.%s: %w", login1Interface, login1Member, err)
	}
	sigCh := make(chan *dbus.Signal, signalBufferSize)
	conn.Signal(sigCh)
	defer conn.RemoveSignal(sigCh)
	s.logger.Debug("subscribed to dbus signal", slog.String("interface", login1Interface),
		slog.String("member", login1Member))

	for {
		select {
		case <-ctx.Done():
			return nil
		case sgn, ok := <-sigCh:
			if !ok {
				return fmt.Errorf("system bus closed the signal channel")
			}
			s.processSleepSignal(ctx, sgn, lastResumeUnix)
		}
	}
}

// processSleepSignal reacts to the resume half of PrepareForSleep, whose single argument is
// false when the system wakes up.
func (s *Service) processSleepSignal(ctx context.Context, sgn *dbus.Signal, lastResumeUnix *int64) {
	if len(sgn.Body) != 1 {
		return
	}
	sleeping, ok := sgn.Body[0].(bool)
	if !ok || sleeping {
		return
	}
	s.handleResumeEvent(ctx, lastResumeUnix)
}

// handleResumeEvent refreshes the weather on the device after the system woke up, given the
// weather module is enabled. Consecutive resume events within debounceWindow are ignored.
func (s *Service) handleResumeEvent(ctx context.Context, lastResumeUnix *int64) {
	now := time.Now().Unix()
	if now-atomic.LoadInt64(lastResumeUnix) < debounceWindow {
		return
	}
	atomic.StoreInt64(lastResumeUnix, now)

	// the network is usually not up right after resume
	select {
	case <-ctx.Done():
		return
	case <-time.After(networkWakeupDelay):
	}

	if !s.WeatherEnabled() {
		return
	}
	s.logger.Debug("resuming from sleep, fetching latest weather data")
	s.startWeatherUpdate()
}
