// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wneessen/gridspace-companion/internal/logger"
)

// Orchestrator feeds the results of a set of providers into a GeoBus.
type Orchestrator struct {
	Bus       *GeoBus
	Providers []Provider
}

// Track runs all providers for the given key and blocks until ctx is cancelled and every
// provider has stopped.
func (o *Orchestrator) Track(ctx context.Context, key string) {
	var wg sync.WaitGroup
	for _, p := range o.Providers {
		wg.Go(func() {
			o.trackProvider(ctx, p, key)
		})
	}
	wg.Wait()
}

// trackProvider (re)starts the provider's stream whenever it ends or cannot be opened. The
// delay between restarts doubles up to maxBackoff and resets once a result came through.
func (o *Orchestrator) trackProvider(ctx context.Context, p Provider, key string) {
	log := o.Bus.logger.With(slog.String("provider", p.Name()))
	backoff := initialBackoff
	for ctx.Err() == nil {
		results, err := o.lookup(ctx, p, key)
		if err != nil {
			log.Error("geolocation provider failed to start", logger.Err(err))
		} else if o.drain(ctx, results) {
			backoff = initialBackoff
		}
		if ctx.Err() != nil {
			return
		}

		log.Debug("geolocation provider stream ended", slog.Duration("backoff", backoff))
		if !sleepOrDone(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

// drain publishes everything the stream emits until it is closed or ctx is done. It reports
// whether at least one result was published.
func (o *Orchestrator) drain(ctx context.Context, results <-chan Result) bool {
	published := false
	for {
		select {
		case <-ctx.Done():
			return published
		case r, ok := <-results:
			if !ok {
				return published
			}
			o.Bus.Publish(r)
			published = true
		}
	}
}

// lookup opens the provider's stream. A panicking provider is reported as an error.
func (o *Orchestrator) lookup(ctx context.Context, p Provider, key string) (results <-chan Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panicked: %v", r)
		}
	}()
	if results = p.LookupStream(ctx, key); results == nil {
		return nil, fmt.Errorf("provider returned no stream")
	}
	return results, nil
}
