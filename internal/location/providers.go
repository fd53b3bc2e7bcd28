// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package location

import (
	"github.com/wneessen/weather-fetch/internal/config"
	"github.com/wneessen/weather-fetch/internal/geobus"
	"github.com/wneessen/weather-fetch/internal/geobus/provider/cityname_file"
	"github.com/wneessen/weather-fetch/internal/geobus/provider/geoip"
	"github.com/wneessen/weather-fetch/internal/geobus/provider/geolocation_file"
	"github.com/wneessen/weather-fetch/internal/geobus/provider/gpsd"
	"github.com/wneessen/weather-fetch/internal/geobus/provider/ichnaea"
	"github.com/wneessen/weather-fetch/internal/geocode"
	"github.com/wneessen/weather-fetch/internal/http"
	"github.com/wneessen/weather-fetch/internal/logger"
)

// Providers returns the geolocation providers enabled in the config. Providers that fail to
// initialize are logged and skipped.
func Providers(conf *config.Config, client *http.Client, coder geocode.Geocoder, log *logger.Logger) []geobus.Provider {
	var providers []geobus.Provider

	if !conf.GeoLocation.DisableGeolocationFile {
		providers = append(providers, geolocation_file.NewGeolocationFileProvider(conf.GeoLocation.File))
	}

	if !conf.GeoLocation.DisableCitynameFile {
		provider, err := cityname_file.NewCitynameFileProvider(conf.GeoLocation.CitynameFile, coder)
		if err != nil {
			log.Error("failed to create cityname file provider", logger.Err(err))
		} else {
			providers = append(providers, provider)
		}
	}

	if !conf.GeoLocation.DisableGPSD {
		providers = append(providers, gpsd.NewGeolocationGPSDProvider(conf.GeoLocation.GPSDAddr, log))
	}

	if !conf.GeoLocation.DisableGeoIP {
		provider, err := geoip.NewGeolocationGeoIPProvider(client)
		if err != nil {
			log.Error("failed to create GeoIP provider", logger.Err(err))
		} else {
			providers = append(providers, provider)
		}
	}

	if !conf.GeoLocation.DisableICHNAEA {
		provider, err := ichnaea.NewGeolocationICHNAEAProvider(client, log)
		if err != nil {
			log.Error("failed to create ICHNAEA provider", logger.Err(err))
		} else {
			providers = append(providers, provider)
		}
	}

	return providers
}
