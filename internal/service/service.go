// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/wneessen/gridspace-companion/internal/config"
	"github.com/wneessen/gridspace-companion/internal/device"
	"github.com/wneessen/gridspace-companion/internal/geobus"
	"github.com/wneessen/gridspace-companion/internal/logger"
	"github.com/wneessen/gridspace-companion/internal/storage"
	"github.com/wneessen/gridspace-companion/internal/vartype"
	"github.com/wneessen/gridspace-companion/internal/weather"
	"github.com/wneessen/gridspace-companion/internal/webview"
)

const (
	DesktopID      = "gridspace-companion"
	weatherJobName = "weather_update_job"
)

// Locator resolves the current position of the host.
type Locator interface {
	Locate(ctx context.Context) (geobus.Coordinate, error)
}

// Service keeps the device's weather and configuration in sync.
type Service struct {
	config  *config.Config
	logger  *logger.Logger
	geobus  *geobus.GeoBus
	locator Locator
	fetcher weather.Fetcher
	sender  device.Sender
	store   storage.Store
	signals signalSource

	clock     clockwork.Clock
	scheduler gocron.Scheduler

	// ctx outlives single requests and is cancelled on Shutdown; wg tracks everything started on it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stateLock sync.Mutex
	enabled   bool
	timer     uuid.UUID

	lastWeather vartype.Variable[weather.Sample]
}

// Option overrides one of the collaborators New would otherwise build from the configuration.
type Option func(*Service)

func WithLocator(locator Locator) Option {
	return func(s *Service) { s.locator = locator }
}

func WithFetcher(fetcher weather.Fetcher) Option {
	return func(s *Service) { s.fetcher = fetcher }
}

func WithSender(sender device.Sender) Option {
	return func(s *Service) { s.sender = sender }
}

func WithStore(store storage.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithClock sets the clock driving the periodic weather job.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func New(conf *config.Config, log *logger.Logger, opts ...Option) (*Service, error) {
	if conf == nil {
		return nil, errors.New("config is required")
	}
	bus, err := geobus.New(log)
	if err != nil {
		return nil, fmt.Errorf("failed to create geobus: %w", err)
	}

	service := &Service{
		config:  conf,
		logger:  log,
		geobus:  bus,
		signals: stdLibSignalSource{},
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(service)
	}

	if service.locator == nil {
		service.locator = geobus.NewLocator(bus, DesktopID, conf.GeoLocation.Timeout, conf.GeoLocation.MaxAge)
	}
	if service.fetcher == nil {
		if service.fetcher, err = service.selectWeatherFetcher(); err != nil {
			return nil, err
		}
	}
	if service.sender == nil {
		if service.sender, err = service.selectDeviceSender(); err != nil {
			return nil, err
		}
	}
	if service.store == nil {
		if service.store, err = storage.NewSQLite(context.Background(), conf.Storage.Path); err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
	}
	if service.scheduler, err = gocron.NewScheduler(gocron.WithClock(service.clock)); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create scheduler: %w", err), service.store.Close())
	}

	service.ctx, service.cancel = context.WithCancel(context.Background())
	return service, nil
}

// Run starts the geolocation providers, the scheduler and the webview endpoint, applies the
// persisted weather setting and blocks until ctx is cancelled. The service is shut down when Run
// returns.
func (s *Service) Run(ctx context.Context) (err error) {
	defer func() {
		err = errors.Join(err, s.Shutdown())
	}()

	providers, err := s.selectGeobusProviders()
	if err != nil {
		return err
	}
	orchestrator, err := s.geobus.NewOrchestrator(providers)
	if err != nil {
		return fmt.Errorf("failed to create geolocation orchestrator: %w", err)
	}
	server, err := webview.New(s.logger, s, s.config.Webview.Listen)
	if err != nil {
		return fmt.Errorf("failed to create webview endpoint: %w", err)
	}

	s.scheduler.Start()
	s.wg.Go(func() { orchestrator.Track(s.ctx, DesktopID) })
	s.wg.Go(func() { s.monitorSleepResume(s.ctx) })

	sigChan := make(chan os.Signal, 1)
	s.signals.Notify(sigChan, syscall.SIGUSR1)
	s.wg.Go(func() {
		defer s.signals.Stop(sigChan)
		s.HandleRefreshSignal(s.ctx, sigChan)
	})

	s.Ready(ctx)

	if err = server.Run(ctx); err != nil {
		return fmt.Errorf("webview endpoint failed: %w", err)
	}
	return nil
}

// Shutdown cancels all background work, waits for in-flight runs and sends and releases the
// scheduler and the storage.
func (s *Service) Shutdown() error {
	s.cancel()

	var errs []error
	if err := s.scheduler.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down scheduler: %w", err))
	}
	s.wg.Wait()
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}
	return errors.Join(errs...)
}

// WeatherEnabled reports whether periodic weather updates are currently active.
func (s *Service) WeatherEnabled() bool {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	return s.enabled
}

// LastWeather returns the most recent successfully fetched sample.
func (s *Service) LastWeather() (weather.Sample, bool) {
	return s.lastWeather.Get()
}

// armTimer replaces the periodic weather job. The caller must hold stateLock.
func (s *Service) armTimer() {
	s.cancelTimer()

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(s.config.Intervals.WeatherUpdate),
		gocron.NewTask(func() { s.runWeatherUpdate(s.ctx) }),
		gocron.WithName(weatherJobName),
	)
	if err != nil {
		s.logger.Error("failed to create weather update job", logger.Err(err))
		return
	}
	s.timer = job.ID()
	s.logger.Debug("weather update job scheduled", slog.Duration("interval", s.config.Intervals.WeatherUpdate))
}

// cancelTimer removes the periodic weather job, if any. The caller must hold stateLock.
func (s *Service) cancelTimer() {
	if s.timer == uuid.Nil {
		return
	}
	if err := s.scheduler.RemoveJob(s.timer); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		s.logger.Error("failed to remove weather update job", logger.Err(err))
	}
	s.timer = uuid.Nil
}

// startWeatherUpdate runs the weather workflow once in the background.
func (s *Service) startWeatherUpdate() {
	s.wg.Go(func() {
		s.runWeatherUpdate(s.ctx)
	})
}

// send delivers msg in the background. Failures are logged only.
func (s *Service) send(msg device.Message, what string) {
	s.wg.Go(func() {
		if err := s.sender.Send(s.ctx, msg); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Error("failed to send message to device", slog.String("message", what),
				slog.String("transport", s.sender.Name()), logger.Err(err))
			return
		}
		s.logger.Debug("message sent to device", slog.String("message", what))
	})
}
