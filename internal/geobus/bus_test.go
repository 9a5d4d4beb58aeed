// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/synctest"
	"time"

	"github.com/wneessen/gridspace-companion/internal/logger"
)

const (
	testKey = "test"
	testLat = 50.9375
	testLon = 6.9603
)

func TestNew(t *testing.T) {
	t.Run("new bus succeeds", func(t *testing.T) {
		bus, err := New(logger.NewLogger(slog.LevelInfo, io.Discard))
		if err != nil {
			t.Fatalf("failed to create bus: %s", err)
		}
		if bus == nil {
			t.Fatal("expected bus to be non-nil")
		}
	})
	t.Run("new bus without logger fails", func(t *testing.T) {
		_, err := New(nil)
		if !errors.Is(err, ErrLoggerRequired) {
			t.Errorf("expected error to be %s, got %v", ErrLoggerRequired, err)
		}
	})
}

func TestGeoBus_Publish(t *testing.T) {
	t.Run("first result becomes the best result", func(t *testing.T) {
		bus := testBus(t)
		bus.Publish(Result{Key: testKey, Lat: testLat, Lon: testLon, AccuracyMeters: AccuracyCity, Source: "a"})
		best, ok := bus.Best(testKey)
		if !ok {
			t.Fatal("expected a best result")
		}
		if best.Lat != testLat || best.Lon != testLon {
			t.Errorf("expected best result to be %f,%f, got %f,%f", testLat, testLon, best.Lat, best.Lon)
		}
	})
	t.Run("results without accuracy are ignored", func(t *testing.T) {
		bus := testBus(t)
		bus.Publish(Result{Key: testKey, Lat: testLat, Lon: testLon, Source: "a"})
		if _, ok := bus.Best(testKey); ok {
			t.Error("expected no best result")
		}
	})
	t.Run("less accurate result does not replace the best result", func(t *testing.T) {
		bus := testBus(t)
		bus.Publish(Result{Key: testKey, Lat: testLat, Lon: testLon, AccuracyMeters: AccuracyZip, Source: "a"})
		bus.Publish(Result{Key: testKey, Lat: 10, Lon: 10, AccuracyMeters: AccuracyCountry, Source: "b"})
		best, _ := bus.Best(testKey)
		if best.Source != "a" {
			t.Errorf("expected best source to be %q, got %q", "a", best.Source)
		}
	})
	t.Run("more accurate and moved result replaces the best result", func(t *testing.T) {
		bus := testBus(t)
		bus.Publish(Result{Key: testKey, Lat: testLat, Lon: testLon, AccuracyMeters: AccuracyCountry, Source: "a"})
		bus.Publish(Result{Key: testKey, Lat: 10, Lon: 10, AccuracyMeters: AccuracyZip, Source: "b"})
		best, _ := bus.Best(testKey)
		if best.Source != "b" {
			t.Errorf("expected best source to be %q, got %q", "b", best.Source)
		}
	})
	t.Run("same source refreshes the timestamp", func(t *testing.T) {
		bus := testBus(t)
		old := time.Now().Add(-time.Hour)
		bus.Publish(Result{Key: testKey, Lat: testLat, Lon: testLon, AccuracyMeters: AccuracyZip, Source: "a", At: old})
		bus.Publish(Result{Key: testKey, Lat: testLat, Lon: testLon, AccuracyMeters: AccuracyZip, Source: "a"})
		best, _ := bus.Best(testKey)
		if !best.At.After(old) {
			t.Errorf("expected timestamp to be refreshed, got %s", best.At)
		}
	})
	t.Run("expired results are not returned", func(t *testing.T) {
		bus := testBus(t)
		bus.Publish(Result{
			Key: testKey, Lat: testLat, Lon: testLon, AccuracyMeters: AccuracyZip, Source: "a",
			At: time.Now().Add(-time.Hour), TTL: time.Minute,
		})
		if _, ok := bus.Best(testKey); ok {
			t.Error("expected expired result to be ignored")
		}
	})
}

func TestGeoBus_Subscribe(t *testing.T) {
	t.Run("subscribers receive the current best and new results", func(t *testing.T) {
		bus := testBus(t)
		bus.Publish(Result{Key: testKey, Lat: testLat, Lon: testLon, AccuracyMeters: AccuracyCountry, Source: "a"})
		sub, unsub := bus.Subscribe(testKey, 2)
		defer unsub()

		first := <-sub
		if first.Source != "a" {
			t.Errorf("expected current best from source %q, got %q", "a", first.Source)
		}
		bus.Publish(Result{Key: testKey, Lat: 10, Lon: 10, AccuracyMeters: AccuracyZip, Source: "b"})
		second := <-sub
		if second.Source != "b" {
			t.Errorf("expected update from source %q, got %q", "b", second.Source)
		}
	})
	t.Run("unsubscribe closes the channel", func(t *testing.T) {
		bus := testBus(t)
		sub, unsub := bus.Subscribe(testKey, 1)
		unsub()
		if _, ok := <-sub; ok {
			t.Error("expected channel to be closed")
		}
	})
}

func TestGeoBus_NewOrchestrator(t *testing.T) {
	t.Run("orchestrator without providers fails", func(t *testing.T) {
		bus := testBus(t)
		if _, err := bus.NewOrchestrator(nil); err == nil {
			t.Fatal("expected orchestrator creation to fail")
		}
	})
}

func TestOrchestrator_Track(t *testing.T) {
	t.Run("provider results are published to the bus", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			bus := testBus(t)
			orch, err := bus.NewOrchestrator([]Provider{&staticProvider{coord: Coordinate{
				Lat: testLat, Lon: testLon, Acc: AccuracyZip,
			}}})
			if err != nil {
				t.Fatalf("failed to create orchestrator: %s", err)
			}
			done := make(chan struct{})
			go func() {
				orch.Track(ctx, testKey)
				close(done)
			}()
			synctest.Wait()

			best, ok := bus.Best(testKey)
			if !ok {
				t.Fatal("expected a best result")
			}
			if best.Source != "static" {
				t.Errorf("expected source to be %q, got %q", "static", best.Source)
			}
			cancel()
			<-done
		})
	})
	t.Run("panicking provider does not take down the orchestrator", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			bus := testBus(t)
			orch, err := bus.NewOrchestrator([]Provider{&panicProvider{}})
			if err != nil {
				t.Fatalf("failed to create orchestrator: %s", err)
			}
			done := make(chan struct{})
			go func() {
				orch.Track(ctx, testKey)
				close(done)
			}()
			time.Sleep(time.Second * 5)
			cancel()
			<-done
		})
	})
}

func TestTruncate(t *testing.T) {
	if got := Truncate(50.937512345, TruncPrecision); got != 50.9375 {
		t.Errorf("expected truncated value to be 50.9375, got %f", got)
	}
}

func TestCoordinate_Valid(t *testing.T) {
	tests := []struct {
		name  string
		coord Coordinate
		valid bool
	}{
		{"cologne", Coordinate{Lat: testLat, Lon: testLon}, true},
		{"extreme north east", Coordinate{Lat: 90, Lon: 180}, true},
		{"invalid latitude", Coordinate{Lat: 91, Lon: 0}, false},
		{"invalid longitude", Coordinate{Lat: 0, Lon: -181}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.coord.Valid() != tc.valid {
				t.Errorf("expected validity to be %t", tc.valid)
			}
		})
	}
}

func TestCoordinate_PosHasSignificantChange(t *testing.T) {
	base := Coordinate{Lat: testLat, Lon: testLon, Acc: AccuracyZip}
	t.Run("small movement is not significant", func(t *testing.T) {
		if base.PosHasSignificantChange(Coordinate{Lat: testLat + 0.001, Lon: testLon, Acc: AccuracyZip}) {
			t.Error("expected change to be insignificant")
		}
	})
	t.Run("large movement is significant", func(t *testing.T) {
		if !base.PosHasSignificantChange(Coordinate{Lat: testLat + 1, Lon: testLon, Acc: AccuracyZip}) {
			t.Error("expected change to be significant")
		}
	})
	t.Run("better accuracy is significant", func(t *testing.T) {
		better := Coordinate{Lat: testLat, Lon: testLon, Acc: 10}
		if !better.PosHasSignificantChange(base) {
			t.Error("expected accuracy improvement to be significant")
		}
	})
}

func testBus(t *testing.T) *GeoBus {
	t.Helper()
	bus, err := New(logger.NewLogger(slog.LevelDebug, io.Discard))
	if err != nil {
		t.Fatalf("failed to create bus: %s", err)
	}
	return bus
}

type (
	staticProvider struct{ coord Coordinate }
	panicProvider  struct{}
)

func (p *staticProvider) Name() string { return "static" }

func (p *staticProvider) LookupStream(ctx context.Context, key string) <-chan Result {
	return PollStream(ctx, key, p.Name(), time.Minute, time.Hour, func(context.Context) (Coordinate, error) {
		return p.coord, nil
	})
}

func (p *panicProvider) Name() string { return "panic" }

func (p *panicProvider) LookupStream(context.Context, string) <-chan Result {
	panic("intentionally panicking")
}
