// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kkyr/fig"
)

const (
	configEnv = "GRIDSPACE"
	appDir    = "gridspace-companion"

	TransportStdout = "stdout"
	TransportHTTP   = "http"
)

// configExtensions lists the file types fig understands, in lookup order.
var configExtensions = []string{"toml", "yaml", "yml", "json"}

var validate = newValidator()

// Config represents the application's configuration structure.
type Config struct {
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Intervals struct {
		WeatherUpdate time.Duration `fig:"weather_update" default:"30m" check:"min=1m"`
	} `fig:"intervals"`

	Weather struct {
		Endpoint string        `fig:"endpoint" default:"https://api.open-meteo.com/v1/forecast" check:"url"`
		Timeout  time.Duration `fig:"timeout" default:"10s" check:"min=1s"`
	} `fig:"weather"`

	GeoLocation struct {
		Timeout                time.Duration `fig:"timeout" default:"15s" check:"min=1s"`
		MaxAge                 time.Duration `fig:"max_age" default:"5m" check:"min=0"`
		File                   string        `fig:"file"`
		GPSDAddress            string        `fig:"gpsd_address" default:"localhost:2947" check:"hostname_port"`
		DisableGeoIP           bool          `fig:"disable_geoip"`
		DisableGeoAPI          bool          `fig:"disable_geoapi"`
		DisableGeolocationFile bool          `fig:"disable_geolocation_file"`
		DisableGPSD            bool          `fig:"disable_gpsd"`
		DisableGeoClue         bool          `fig:"disable_geoclue"`
		DisableICHNAEA         bool          `fig:"disable_ichnaea"`
	} `fig:"geolocation"`

	Storage struct {
		Path string `fig:"path"`
	} `fig:"storage"`

	Webview struct {
		Listen string `fig:"listen" default:"127.0.0.1:8085" check:"hostname_port"`
	} `fig:"webview"`

	Device struct {
		// Allowed values: stdout, http
		Transport string        `fig:"transport" default:"stdout" check:"oneof=stdout http"`
		Endpoint  string        `fig:"endpoint" check:"omitempty,url"`
		Timeout   time.Duration `fig:"timeout" default:"10s" check:"min=1s"`
	} `fig:"device"`
}

// Load reads the configuration from file. Without a file, the first config.<ext> found in the
// user's config directory is used, and if there is none the configuration is built from
// defaults and the environment only.
func Load(file string) (*Config, error) {
	if file != "" {
		return NewFromFile(filepath.Dir(file), filepath.Base(file))
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return New()
	}
	dir := filepath.Join(home, ".config", appDir)
	for _, ext := range configExtensions {
		name := "config." + ext
		if _, err = os.Stat(filepath.Join(dir, name)); err == nil {
			return NewFromFile(dir, name)
		}
	}
	return New()
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

// Validate checks the field constraints and fills in defaults that depend on the environment.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid Config: %w", err)
	}
	if c.Device.Transport == TransportHTTP && c.Device.Endpoint == "" {
		return errors.New("device endpoint is required for the http transport")
	}
	if c.GeoLocation.DisableGeoIP && c.GeoLocation.DisableGeoAPI && c.GeoLocation.DisableGeolocationFile &&
		c.GeoLocation.DisableGPSD && c.GeoLocation.DisableGeoClue && c.GeoLocation.DisableICHNAEA {
		return errors.New("at least one geolocation provider must be enabled")
	}

	home, _ := os.UserHomeDir()
	if c.GeoLocation.File == "" {
		c.GeoLocation.File = filepath.Join(home, ".config", appDir, "geolocation")
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(home, ".local", "share", appDir, "companion.db")
	}

	return nil
}

// newValidator returns a validator reading the "check" tag. fig already claims "validate".
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("check")
	return v
}
