// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package ichnaea

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mdlayher/wifi"
	"github.com/samber/lo"

	"github.com/wneessen/gridspace-companion/internal/geobus"
	ihttp "github.com/wneessen/gridspace-companion/internal/http"
)

const (
	apiEndpoint   = "https://api.beacondb.net/v1/geolocate"
	lookupTimeout = time.Second * 5
	wifiScanTime  = time.Minute * 2
	name          = "ichnaea"
)

var ErrHTTPClientRequired = errors.New("http client is required")

// GeolocationICHNAEAProvider locates the host through an Ichnaea compatible API (BeaconDB), using
// nearby WiFi access points when a WiFi interface is available and the public IP otherwise.
type GeolocationICHNAEAProvider struct {
	name     string
	endpoint string
	http     *ihttp.Client
	scanner  accessPointScanner
	period   time.Duration
	ttl      time.Duration

	apLock sync.RWMutex
	aps    []WirelessNetwork
}

type APIResult struct {
	Location struct {
		Latitude  float64 `json:"lat"`
		Longitude float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

type WirelessNetwork struct {
	LastSeen       int64  `json:"age"`
	MACAddress     string `json:"macAddress"`
	SignalStrength int32  `json:"signalStrength"`
}

type accessPointScanner interface {
	Scan() ([]WirelessNetwork, error)
}

// NewGeolocationICHNAEAProvider returns a new provider. If the system has no WiFi support, the
// provider falls back to IP based lookups.
func NewGeolocationICHNAEAProvider(client *ihttp.Client) (*GeolocationICHNAEAProvider, error) {
	if client == nil {
		return nil, ErrHTTPClientRequired
	}
	var scanner accessPointScanner
	if wlan, err := wifi.New(); err == nil {
		scanner = &wifiScanner{wlan: wlan}
	}
	return newProvider(client, scanner), nil
}

func newProvider(client *ihttp.Client, scanner accessPointScanner) *GeolocationICHNAEAProvider {
	return &GeolocationICHNAEAProvider{
		name:     name,
		endpoint: apiEndpoint,
		http:     client,
		scanner:  scanner,
		period:   time.Minute * 5,
		ttl:      time.Hour,
	}
}

func (p *GeolocationICHNAEAProvider) Name() string {
	return p.name
}

func (p *GeolocationICHNAEAProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	if p.scanner != nil {
		go p.monitorWifiAccessPoints(ctx)
	}
	return geobus.PollStream(ctx, key, p.name, p.period, p.ttl, p.locate)
}

func (p *GeolocationICHNAEAProvider) monitorWifiAccessPoints(ctx context.Context) {
	firstRun := true
	for {
		if !firstRun {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wifiScanTime):
			}
		}
		firstRun = false

		list, err := p.scanner.Scan()
		if err != nil {
			continue
		}
		p.apLock.Lock()
		p.aps = list
		p.apLock.Unlock()
	}
}

func (p *GeolocationICHNAEAProvider) accessPoints() []WirelessNetwork {
	p.apLock.RLock()
	defer p.apLock.RUnlock()
	return p.aps
}

func (p *GeolocationICHNAEAProvider) locate(ctx context.Context) (geobus.Coordinate, error) {
	type request struct {
		ConsiderIP   bool              `json:"considerIp"`
		Accesspoints []WirelessNetwork `json:"wifiAccessPoints,omitempty"`
	}
	req := request{
		ConsiderIP:   true,
		Accesspoints: p.accessPoints(),
	}
	body := bytes.NewBuffer(nil)
	if err := json.NewEncoder(body).Encode(req); err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to encode wifi list to JSON: %w", err)
	}

	result := new(APIResult)
	code, err := p.http.PostWithTimeout(ctx, p.endpoint, result, body,
		map[string]string{"Content-Type": "application/json"}, lookupTimeout)
	if err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}
	if code != http.StatusOK {
		return geobus.Coordinate{}, fmt.Errorf("geolocation API returned non-OK status: %d", code)
	}

	return geobus.Coordinate{
		Lat: geobus.Truncate(result.Location.Latitude, geobus.TruncPrecision),
		Lon: geobus.Truncate(result.Location.Longitude, geobus.TruncPrecision),
		Acc: geobus.Truncate(result.Accuracy, geobus.TruncPrecision),
	}, nil
}

type wifiScanner struct {
	wlan *wifi.Client
}

// Scan lists the access points visible to all station interfaces. Hidden networks and networks
// that opted out of mapping via the "_nomap" suffix are skipped.
func (s *wifiScanner) Scan() ([]WirelessNetwork, error) {
	ifaces, err := s.wlan.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	stations := lo.Filter(ifaces, func(iface *wifi.Interface, _ int) bool {
		return iface.Type == wifi.InterfaceTypeStation
	})

	var list []WirelessNetwork
	for _, iface := range stations {
		aps, err := s.wlan.AccessPoints(iface)
		if err != nil {
			continue
		}
		for _, ap := range aps {
			if !mappable(ap.SSID) {
				continue
			}
			list = append(list, WirelessNetwork{
				SignalStrength: ap.Signal / 100,
				MACAddress:     ap.BSSID.String(),
				LastSeen:       ap.LastSeen.Milliseconds(),
			})
		}
	}
	return list, nil
}

func mappable(ssid string) bool {
	return ssid != "" && ssid[0] != '\x00' && !strings.HasSuffix(ssid, "_nomap")
}
