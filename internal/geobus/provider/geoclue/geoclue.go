// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoclue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/gridspace-companion/internal/geobus"
)

const (
	name = "geoclue"

	busName         = "org.freedesktop.GeoClue2"
	managerPath     = "/org/freedesktop/GeoClue2/Manager"
	managerIface    = "org.freedesktop.GeoClue2.Manager"
	clientIface     = "org.freedesktop.GeoClue2.Client"
	locationIface   = "org.freedesktop.GeoClue2.Location"
	propertiesSet   = "org.freedesktop.DBus.Properties.Set"
	locationUpdated = "LocationUpdated"

	// DesktopID identifies us to GeoClue's authorization agent
	DesktopID = "gridspace-companion"

	// accuracyLevelExact is GCLUE_ACCURACY_LEVEL_EXACT
	accuracyLevelExact uint32 = 8

	signalBufferSize = 8
)

var ErrInvalidSignal = errors.New("invalid LocationUpdated signal")

// GeolocationGeoClueProvider receives position updates from the GeoClue2 system service via D-Bus.
type GeolocationGeoClueProvider struct {
	name   string
	period time.Duration
	ttl    time.Duration
}

func NewGeolocationGeoClueProvider() *GeolocationGeoClueProvider {
	return &GeolocationGeoClueProvider{
		name:   name,
		period: time.Minute,
		ttl:    time.Hour,
	}
}

func (p *GeolocationGeoClueProvider) Name() string {
	return p.name
}

// LookupStream registers a GeoClue client and emits a Result for every LocationUpdated signal that
// moved the position. When the bus connection fails, it is retried after period.
func (p *GeolocationGeoClueProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	out := make(chan geobus.Result)
	go func() {
		defer close(out)
		state := &geobus.GeolocationState{}

		for {
			_ = p.session(ctx, key, state, out)

			select {
			case <-ctx.Done():
				return
			case <-time.After(p.period):
			}
		}
	}()
	return out
}

// session runs a single GeoClue client session until the context is cancelled or the bus goes away.
func (p *GeolocationGeoClueProvider) session(ctx context.Context, key string, state *geobus.GeolocationState,
	out chan<- geobus.Result,
) (err error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close system bus: %w", closeErr))
		}
	}()

	client, err := registerClient(ctx, conn)
	if err != nil {
		return err
	}
	if err = conn.AddMatchSignal(
		dbus.WithMatchObjectPath(client.Path()),
		dbus.WithMatchInterface(clientIface),
		dbus.WithMatchMember(locationUpdated),
	); err != nil {
		return fmt.Errorf("failed to subscribe to location updates: %w", err)
	}
	sigCh := make(chan *dbus.Signal, signalBufferSize)
	conn.Signal(sigCh)
	defer conn.RemoveSignal(sigCh)

	if err = client.CallWithContext(ctx, clientIface+".Start", 0).Err; err != nil {
		return fmt.Errorf("failed to start geoclue client: %w", err)
	}
	defer func() {
		// The context may already be gone at this point.
		_ = client.Call(clientIface+".Stop", 0).Err
	}()

	reader := busLocationReader{conn: conn}
	if path, err := currentLocation(client); err == nil {
		p.emit(ctx, key, reader, path, state, out)
	}
	return p.handleSignals(ctx, key, sigCh, reader, state, out)
}

func (p *GeolocationGeoClueProvider) handleSignals(ctx context.Context, key string, sigCh <-chan *dbus.Signal,
	reader locationReader, state *geobus.GeolocationState, out chan<- geobus.Result,
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-sigCh:
			if !ok {
				return errors.New("signal channel closed")
			}
			path, err := locationFromSignal(sig)
			if err != nil {
				continue
			}
			p.emit(ctx, key, reader, path, state, out)
		}
	}
}

func (p *GeolocationGeoClueProvider) emit(ctx context.Context, key string, reader locationReader,
	path dbus.ObjectPath, state *geobus.GeolocationState, out chan<- geobus.Result,
) {
	coord, err := reader.Read(path)
	if err != nil || !coord.Valid() || !state.HasChanged(coord) {
		return
	}
	state.Update(coord)
	select {
	case <-ctx.Done():
	case out <- geobus.NewResult(key, p.name, coord, p.ttl):
	}
}

func registerClient(ctx context.Context, conn *dbus.Conn) (dbus.BusObject, error) {
	var clientPath dbus.ObjectPath
	manager := conn.Object(busName, managerPath)
	if err := manager.CallWithContext(ctx, managerIface+".GetClient", 0).Store(&clientPath); err != nil {
		return nil, fmt.Errorf("failed to get geoclue client: %w", err)
	}

	client := conn.Object(busName, clientPath)
	if err := client.CallWithContext(ctx, propertiesSet, 0, clientIface, "DesktopId",
		dbus.MakeVariant(DesktopID)).Err; err != nil {
		return nil, fmt.Errorf("failed to set desktop id: %w", err)
	}
	if err := client.CallWithContext(ctx, propertiesSet, 0, clientIface, "RequestedAccuracyLevel",
		dbus.MakeVariant(accuracyLevelExact)).Err; err != nil {
		return nil, fmt.Errorf("failed to set requested accuracy level: %w", err)
	}
	return client, nil
}

func currentLocation(client dbus.BusObject) (dbus.ObjectPath, error) {
	variant, err := client.GetProperty(clientIface + ".Location")
	if err != nil {
		return "", fmt.Errorf("failed to get location property: %w", err)
	}
	path, ok := variant.Value().(dbus.ObjectPath)
	if !ok || path == "/" || !path.IsValid() {
		return "", errors.New("client has no location yet")
	}
	return path, nil
}

// locationFromSignal returns the path of the new location object carried by a LocationUpdated signal.
func locationFromSignal(sig *dbus.Signal) (dbus.ObjectPath, error) {
	if sig == nil || sig.Name != clientIface+"."+locationUpdated || len(sig.Body) != 2 {
		return "", ErrInvalidSignal
	}
	path, ok := sig.Body[1].(dbus.ObjectPath)
	if !ok || !path.IsValid() {
		return "", ErrInvalidSignal
	}
	return path, nil
}

type locationReader interface {
	Read(path dbus.ObjectPath) (geobus.Coordinate, error)
}

type busLocationReader struct {
	conn *dbus.Conn
}

// Read fetches latitude, longitude and accuracy of a GeoClue location object.
func (r busLocationReader) Read(path dbus.ObjectPath) (geobus.Coordinate, error) {
	obj := r.conn.Object(busName, path)
	values := make([]float64, 0, 3)
	for _, prop := range []string{"Latitude", "Longitude", "Accuracy"} {
		variant, err := obj.GetProperty(locationIface + "." + prop)
		if err != nil {
			return geobus.Coordinate{}, fmt.Errorf("failed to get location %s: %w", prop, err)
		}
		value, ok := variant.Value().(float64)
		if !ok {
			return geobus.Coordinate{}, fmt.Errorf("location %s is not a double", prop)
		}
		values = append(values, value)
	}
	return geobus.Coordinate{
		Lat: geobus.Truncate(values[0], geobus.TruncPrecision),
		Lon: geobus.Truncate(values[1], geobus.TruncPrecision),
		Acc: geobus.Truncate(values[2], geobus.TruncPrecision),
	}, nil
}
