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
	"strings"
	"time"

	"github.com/kkyr/fig"
)

const (
	configEnv = "WEATHERFETCH"
	appName   = "weather-fetch"

	DefaultTextTpl = "{{.ConditionIcon}} {{.Result.Location}}: {{temp .Result.TemperatureC}}°C, " +
		"{{.Result.ConditionDescription}}\n" +
		"Feels like: {{temp .Result.FeelsLikeC}}°C  Min/Max: {{temp .Result.TempMinC}}/{{temp .Result.TempMaxC}}°C\n" +
		"Humidity: {{.Result.HumidityPercent}}%  Pressure: {{.Result.PressureHPa}} hPa  " +
		"Wind: {{printf \"%.1f\" .Result.WindSpeed}} m/s {{windDir .Result.WindDirectionDeg}}\n" +
		"Sunrise: {{timeFormat .SunriseTime \"15:04\"}}  Sunset: {{timeFormat .SunsetTime \"15:04\"}}  " +
		"Moon: {{.MoonphaseIcon}} {{.Moonphase}}\nUpdated: {{.UpdatedAgo}}"
	DefaultErrorTpl = "⚠️ {{.Error}}"

	ProviderOpenWeatherMap = "openweathermap"
	ProviderOpenMeteo      = "open-meteo"

	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	GeocoderNominatim    = "nominatim"
	GeocoderOpenCage     = "opencage"
	GeocoderGeocodeEarth = "geocode-earth"

	PermissionGranted = "granted"
	PermissionDenied  = "denied"
)

// Config represents the application's configuration structure.
type Config struct {
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Weather struct {
		// Allowed values: openweathermap, open-meteo
		Provider string `fig:"provider" default:"openweathermap"`
		APIKey   string `fig:"apikey"`
		Endpoint string `fig:"endpoint"`
		// ISO 3166 country code appended to city searches
		Country        string `fig:"country"`
		CircuitBreaker bool   `fig:"circuit_breaker"`
	} `fig:"weather"`

	Intervals struct {
		Refresh        time.Duration `fig:"refresh" default:"15m"`
		DisableRefresh bool          `fig:"disable_refresh"`
	} `fig:"intervals"`

	Templates struct {
		Text  string `fig:"text"`
		Error string `fig:"error"`
	} `fig:"templates"`

	Storage struct {
		// Allowed values: memory, sqlite, redis, postgres
		Backend string `fig:"backend" default:"sqlite"`
		Path    string `fig:"path"`
		DSN     string `fig:"dsn"`
		Redis   struct {
			Addr     string `fig:"addr" default:"localhost:6379"`
			Password string `fig:"password"`
			DB       int    `fig:"db"`
		} `fig:"redis"`
	} `fig:"storage"`

	GeoLocation struct {
		// Allowed values: granted, denied
		Permission             string `fig:"permission" default:"granted"`
		File                   string `fig:"file"`
		CitynameFile           string `fig:"cityname_file"`
		GPSDAddr               string `fig:"gpsd_addr" default:"localhost:2947"`
		DisableGeoIP           bool   `fig:"disable_geoip"`
		DisableGeolocationFile bool   `fig:"disable_geolocation_file"`
		DisableCitynameFile    bool   `fig:"disable_cityname_file"`
		DisableGPSD            bool   `fig:"disable_gpsd"`
		DisableICHNAEA         bool   `fig:"disable_ichnaea"`
	} `fig:"geolocation"`

	GeoCoder struct {
		// Allowed values: nominatim, opencage, geocode-earth
		Provider string `fig:"provider" default:"nominatim"`
		APIKey   string `fig:"apikey"`
		Language string `fig:"language"`
	} `fig:"geocoder"`

	DisableSleepMonitor bool `fig:"disable_sleep_monitor"`
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

// Load reads the config from file if it is not empty. Otherwise the first config file found in the
// user config directory is used, or the defaults if there is none.
func Load(file string) (*Config, error) {
	if file != "" {
		return NewFromFile(filepath.Dir(file), filepath.Base(file))
	}
	dir := ConfigDir()
	for _, ext := range []string{"toml", "yaml", "yml", "json"} {
		name := "config." + ext
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return NewFromFile(dir, name)
		}
	}
	return New()
}

func (c *Config) Validate() error {
	c.Weather.Provider = strings.ToLower(strings.TrimSpace(c.Weather.Provider))
	switch c.Weather.Provider {
	case ProviderOpenWeatherMap:
		if c.Weather.APIKey == "" {
			return errors.New("weather.apikey is required for the openweathermap provider")
		}
	case ProviderOpenMeteo:
	default:
		return fmt.Errorf("invalid weather provider: %s", c.Weather.Provider)
	}
	if c.Intervals.Refresh <= 0 {
		return fmt.Errorf("invalid refresh interval: %s", c.Intervals.Refresh)
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.Path == "" {
			c.Storage.Path = filepath.Join(ConfigDir(), "state.db")
		}
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return errors.New("storage.redis.addr is required for the redis backend")
		}
	case BackendPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s", c.Storage.Backend)
	}

	c.GeoLocation.Permission = strings.ToLower(strings.TrimSpace(c.GeoLocation.Permission))
	if c.GeoLocation.Permission != PermissionGranted && c.GeoLocation.Permission != PermissionDenied {
		return fmt.Errorf("invalid geolocation permission: %s", c.GeoLocation.Permission)
	}
	if c.GeoLocation.File == "" {
		c.GeoLocation.File = filepath.Join(ConfigDir(), "geolocation")
	}
	if c.GeoLocation.CitynameFile == "" {
		c.GeoLocation.CitynameFile = filepath.Join(ConfigDir(), "cityname")
	}

	c.GeoCoder.Provider = strings.ToLower(strings.TrimSpace(c.GeoCoder.Provider))
	switch c.GeoCoder.Provider {
	case GeocoderNominatim:
	case GeocoderOpenCage, GeocoderGeocodeEarth:
		if c.GeoCoder.APIKey == "" {
			return fmt.Errorf("geocoder.apikey is required for the %s geocoder", c.GeoCoder.Provider)
		}
	default:
		return fmt.Errorf("invalid geocoder provider: %s", c.GeoCoder.Provider)
	}

	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.GeoCoder.Language == "" {
		c.GeoCoder.Language = c.Locale
	}
	if c.Templates.Text == "" {
		c.Templates.Text = DefaultTextTpl
	}
	if c.Templates.Error == "" {
		c.Templates.Error = DefaultErrorTpl
	}

	return nil
}

// ConfigDir returns the weather-fetch directory in the user config directory.
func ConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appName)
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
