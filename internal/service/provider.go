// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"time"

	"github.com/wneessen/weather-fetch/internal/config"
	"github.com/wneessen/weather-fetch/internal/geocode"
	geocodeearth "github.com/wneessen/weather-fetch/internal/geocode/provider/geocode-earth"
	"github.com/wneessen/weather-fetch/internal/geocode/provider/opencage"
	nominatim "github.com/wneessen/weather-fetch/internal/geocode/provider/osm-nominatim"
	"github.com/wneessen/weather-fetch/internal/http"
	"github.com/wneessen/weather-fetch/internal/i18n"
	"github.com/wneessen/weather-fetch/internal/logger"
	"github.com/wneessen/weather-fetch/internal/weather"
	openmeteo "github.com/wneessen/weather-fetch/internal/weather/provider/open-meteo"
	"github.com/wneessen/weather-fetch/internal/weather/provider/openweathermap"
)

const (
	cacheHitTTL  = time.Hour * 12
	cacheMissTTL = time.Minute * 10
)

// NewGeocoder returns the configured geocoder wrapped in a cache.
func NewGeocoder(conf *config.Config, client *http.Client) (geocode.Geocoder, error) {
	lang := i18n.Tag(conf.GeoCoder.Language)

	var coder geocode.Geocoder
	switch conf.GeoCoder.Provider {
	case config.GeocoderNominatim:
		coder = nominatim.New(client, lang)
	case config.GeocoderOpenCage:
		if conf.GeoCoder.APIKey == "" {
			return nil, fmt.Errorf("opencage geocoder requires an API key")
		}
		coder = opencage.New(client, lang, conf.GeoCoder.APIKey)
	case config.GeocoderGeocodeEarth:
		if conf.GeoCoder.APIKey == "" {
			return nil, fmt.Errorf("geocode-earth geocoder requires an API key")
		}
		coder = geocodeearth.New(client, lang, conf.GeoCoder.APIKey)
	default:
		return nil, fmt.Errorf("unsupported geocoder type: %s", conf.GeoCoder.Provider)
	}

	return geocode.NewCachedGeocoder(coder, cacheHitTTL, cacheMissTTL), nil
}

// NewWeatherProvider returns the configured weather provider. coder is used by providers that
// only accept coordinates.
func NewWeatherProvider(conf *config.Config, client *http.Client, coder geocode.Geocoder,
	log *logger.Logger,
) (weather.Provider, error) {
	switch conf.Weather.Provider {
	case config.ProviderOpenWeatherMap:
		provider, err := openweathermap.New(client, log, openweathermap.Settings{
			APIKey:         conf.Weather.APIKey,
			Endpoint:       conf.Weather.Endpoint,
			Country:        conf.Weather.Country,
			CircuitBreaker: conf.Weather.CircuitBreaker,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenWeatherMap weather provider: %w", err)
		}
		return provider, nil
	case config.ProviderOpenMeteo:
		provider, err := openmeteo.New(client, coder, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Open-Meteo weather provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported weather provider: %s", conf.Weather.Provider)
	}
}
