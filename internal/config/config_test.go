// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	expectLogLevel              = slog.LevelInfo
	expectIntervalWeatherUpdate = time.Minute * 30
	expectWeatherTimeout        = time.Second * 10
	expectLocateTimeout         = time.Second * 15
	expectLocateMaxAge          = time.Minute * 5
	expectTransport             = TransportStdout
	expectListen                = "127.0.0.1:8085"
)

func TestNew(t *testing.T) {
	t.Run("new config with all defaults set", func(t *testing.T) {
		conf, err := New()
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		checkDefaults(t, conf)
		if conf.GeoLocation.File == "" {
			t.Error("expected geolocation file to be set")
		}
		if !strings.HasSuffix(conf.Storage.Path, filepath.Join(appDir, "companion.db")) {
			t.Errorf("unexpected default storage path: %s", conf.Storage.Path)
		}
	})
	t.Run("new config with values from env", func(t *testing.T) {
		t.Setenv("GRIDSPACE_INTERVALS_WEATHER_UPDATE", "15m")
		t.Setenv("GRIDSPACE_DEVICE_TRANSPORT", "http")
		t.Setenv("GRIDSPACE_DEVICE_ENDPOINT", "http://127.0.0.1:9000/messages")
		t.Setenv("GRIDSPACE_STORAGE_PATH", "/tmp/companion.db")
		conf, err := New()
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.Intervals.WeatherUpdate != time.Minute*15 {
			t.Errorf("expected weather update interval to be: %s, got %s", time.Minute*15,
				conf.Intervals.WeatherUpdate)
		}
		if conf.Device.Transport != TransportHTTP {
			t.Errorf("expected transport to be: %s, got %s", TransportHTTP, conf.Device.Transport)
		}
		if conf.Storage.Path != "/tmp/companion.db" {
			t.Errorf("expected storage path to be: %s, got %s", "/tmp/companion.db", conf.Storage.Path)
		}
	})
	t.Run("new config with invalid values from env", func(t *testing.T) {
		t.Setenv("GRIDSPACE_LOGLEVEL", "invalid")
		_, err := New()
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("config validate transport", func(t *testing.T) {
		t.Setenv("GRIDSPACE_DEVICE_TRANSPORT", "bluetooth")
		_, err := New()
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("config validate http transport requires an endpoint", func(t *testing.T) {
		t.Setenv("GRIDSPACE_DEVICE_TRANSPORT", "http")
		_, err := New()
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("config validate device endpoint", func(t *testing.T) {
		t.Setenv("GRIDSPACE_DEVICE_ENDPOINT", "not a url")
		_, err := New()
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("config validate weather update interval", func(t *testing.T) {
		t.Setenv("GRIDSPACE_INTERVALS_WEATHER_UPDATE", "10s")
		_, err := New()
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("config validate webview listen address", func(t *testing.T) {
		t.Setenv("GRIDSPACE_WEBVIEW_LISTEN", "localhost")
		_, err := New()
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("config validate at least one geolocation provider", func(t *testing.T) {
		for _, provider := range []string{"GEOIP", "GEOAPI", "GEOLOCATION_FILE", "GPSD", "GEOCLUE", "ICHNAEA"} {
			t.Setenv("GRIDSPACE_GEOLOCATION_DISABLE_"+provider, "true")
		}
		_, err := New()
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
}

func TestNewFromFile(t *testing.T) {
	t.Run("reading config from valid file succeeds", func(t *testing.T) {
		conf, err := NewFromFile("../../etc", "config.toml")
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		checkDefaults(t, conf)
	})
	t.Run("reading config from non-existent file fails", func(t *testing.T) {
		_, err := NewFromFile("../../etc", "non-existent.toml")
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("reading invalid config file fails", func(t *testing.T) {
		_, err := NewFromFile("../../testdata", "invalid.toml")
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("explicit file is used", func(t *testing.T) {
		conf, err := Load("../../etc/config.toml")
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		checkDefaults(t, conf)
	})
	t.Run("config file in the user config directory is found", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		dir := filepath.Join(home, ".config", appDir)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			t.Fatalf("failed to create config dir: %s", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("intervals:\n  weather_update: 45m\n"),
			0o600); err != nil {
			t.Fatalf("failed to write config file: %s", err)
		}
		conf, err := Load("")
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.Intervals.WeatherUpdate != time.Minute*45 {
			t.Errorf("expected weather update interval to be: %s, got %s", time.Minute*45,
				conf.Intervals.WeatherUpdate)
		}
		if conf.Storage.Path != filepath.Join(home, ".local", "share", appDir, "companion.db") {
			t.Errorf("unexpected storage path: %s", conf.Storage.Path)
		}
	})
	t.Run("no config file falls back to defaults", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		conf, err := Load("")
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		checkDefaults(t, conf)
	})
}

func checkDefaults(t *testing.T, conf *Config) {
	t.Helper()
	if conf.LogLevel != expectLogLevel {
		t.Errorf("expected log level to be: %s, got %s", expectLogLevel, conf.LogLevel)
	}
	if conf.Intervals.WeatherUpdate != expectIntervalWeatherUpdate {
		t.Errorf("expected weather update interval to be: %s, got %s", expectIntervalWeatherUpdate,
			conf.Intervals.WeatherUpdate)
	}
	if conf.Weather.Timeout != expectWeatherTimeout {
		t.Errorf("expected weather timeout to be: %s, got %s", expectWeatherTimeout, conf.Weather.Timeout)
	}
	if conf.GeoLocation.Timeout != expectLocateTimeout {
		t.Errorf("expected geolocation timeout to be: %s, got %s", expectLocateTimeout, conf.GeoLocation.Timeout)
	}
	if conf.GeoLocation.MaxAge != expectLocateMaxAge {
		t.Errorf("expected geolocation max age to be: %s, got %s", expectLocateMaxAge, conf.GeoLocation.MaxAge)
	}
	if conf.Device.Transport != expectTransport {
		t.Errorf("expected device transport to be: %s, got %s", expectTransport, conf.Device.Transport)
	}
	if conf.Webview.Listen != expectListen {
		t.Errorf("expected webview listen address to be: %s, got %s", expectListen, conf.Webview.Listen)
	}
}
