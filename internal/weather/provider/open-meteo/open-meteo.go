// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package open_meteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/hectormalot/omgo"

	"github.com/wneessen/weather-fetch/internal/geobus"
	"github.com/wneessen/weather-fetch/internal/geocode"
	"github.com/wneessen/weather-fetch/internal/http"
	"github.com/wneessen/weather-fetch/internal/logger"
	"github.com/wneessen/weather-fetch/internal/weather"
)

const (
	name = "open-meteo"

	metricTemperature = "temperature_2m"
	metricApparent    = "apparent_temperature"
	metricHumidity    = "relative_humidity_2m"
	metricPressure    = "pressure_msl"
	metricIsDay       = "is_day"
)

var hourlyMetrics = []string{metricTemperature, metricApparent, metricHumidity, metricPressure, metricIsDay}

// OpenMeteo implements weather.Provider on top of the keyless Open-Meteo forecast API. City
// queries are resolved to coordinates with the configured geocoder first.
type OpenMeteo struct {
	client omgo.Client
	coder  geocode.Geocoder
	log    *logger.Logger
}

func New(http *http.Client, coder geocode.Geocoder, log *logger.Logger) (*OpenMeteo, error) {
	if http == nil {
		return nil, errors.New("http client is required")
	}
	if coder == nil {
		return nil, errors.New("geocoder is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	client, err := omgo.NewClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create Open-Meteo client: %w", err)
	}
	client.Client = http.Client

	return &OpenMeteo{client: client, coder: coder, log: log}, nil
}

func (o *OpenMeteo) Name() string {
	return name
}

// Fetch resolves query to a position and retrieves the current conditions for it. Errors are of
// type *weather.FetchError.
func (o *OpenMeteo) Fetch(ctx context.Context, query weather.Query) (*weather.Result, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	coords, err := o.resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	location, err := omgo.NewLocation(coords.Lat, coords.Lon)
	if err != nil {
		return nil, weather.NewFetchError(weather.ErrInvalidQuery, err)
	}

	forecast, err := o.client.Forecast(ctx, location, &omgo.Options{
		TemperatureUnit: "celsius",
		WindspeedUnit:   "ms",
		HourlyMetrics:   hourlyMetrics,
	})
	if err != nil {
		return nil, classify(err)
	}
	if forecast == nil {
		return nil, weather.NewFetchError(weather.ErrNoData, errors.New("empty forecast"))
	}

	result, err := convert(forecast)
	if err != nil {
		return nil, err
	}
	result.Location = o.locationName(ctx, query, result.Coordinates)
	return result, nil
}

// resolve returns the position of query, geocoding city names.
func (o *OpenMeteo) resolve(ctx context.Context, query weather.Query) (geobus.Coordinate, error) {
	if query.Kind() == weather.KindCoordinates {
		return query.Coordinates(), nil
	}

	coords, err := o.coder.Search(ctx, query.City())
	switch {
	case errors.Is(err, geocode.ErrNotFound):
		return coords, weather.NewFetchError(weather.ErrNoData, err)
	case err != nil:
		return coords, weather.NewFetchError(weather.ErrTransport, err)
	}
	return coords, nil
}

// locationName returns the locality name for coords. Geocoding failures are not fatal for the
// fetch, the name then falls back to the query.
func (o *OpenMeteo) locationName(ctx context.Context, query weather.Query, coords geobus.Coordinate) string {
	address, err := o.coder.Reverse(ctx, coords)
	if err != nil {
		o.log.Warn("failed to reverse geocode coordinates", logger.Err(err), "coordinates", coords.String())
	}
	if err == nil && address.AddressFound && address.Name() != "" {
		return address.Name()
	}
	if query.Kind() == weather.KindCity {
		return query.City()
	}
	return coords.String()
}

// classify maps errors of the Open-Meteo client to fetch error kinds.
func classify(err error) error {
	var urlErr *url.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return weather.NewFetchError(weather.ErrTransport, err)
	case errors.As(err, &urlErr):
		return weather.NewFetchError(weather.ErrTransport, err)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return weather.NewFetchError(weather.ErrDecode, err)
	default:
		return weather.NewFetchError(weather.ErrNoData, err)
	}
}

// convert builds a weather.Result from the current weather block and the hourly metrics of the
// current hour. Min and max temperature cover the current day.
func convert(forecast *omgo.Forecast) (*weather.Result, error) {
	current := forecast.CurrentWeather
	if current.Time.IsZero() {
		return nil, weather.NewFetchError(weather.ErrDecode, errors.New("response is missing current weather"))
	}

	idx := hourIndex(forecast.HourlyTimes, current.Time.Time)
	if idx < 0 {
		return nil, weather.NewFetchError(weather.ErrDecode,
			fmt.Errorf("no hourly data for %s", current.Time.Format(time.RFC3339)))
	}
	for _, metric := range hourlyMetrics {
		if len(forecast.HourlyMetrics[metric]) <= idx {
			return nil, weather.NewFetchError(weather.ErrDecode,
				fmt.Errorf("response is missing hourly metric %q", metric))
		}
	}

	code := int(current.WeatherCode)
	condition, ok := wmoConditions[code]
	if !ok {
		return nil, weather.NewFetchError(weather.ErrDecode, fmt.Errorf("unknown WMO weather code %d", code))
	}
	isDay := forecast.HourlyMetrics[metricIsDay][idx] > 0
	minTemp, maxTemp := dayRange(forecast, current.Time.Time)

	return &weather.Result{
		TemperatureC:         current.Temperature,
		FeelsLikeC:           forecast.HourlyMetrics[metricApparent][idx],
		TempMinC:             minTemp,
		TempMaxC:             maxTemp,
		PressureHPa:          int(math.Round(forecast.HourlyMetrics[metricPressure][idx])),
		HumidityPercent:      int(math.Round(forecast.HourlyMetrics[metricHumidity][idx])),
		WindSpeed:            current.WindSpeed,
		WindDirectionDeg:     int(math.Round(current.WindDirection)),
		ConditionID:          code,
		ConditionMain:        condition.Main,
		ConditionDescription: condition.Description,
		ConditionIcon:        condition.icon(isDay),
		Coordinates:          geobus.Coordinate{Lat: forecast.Latitude, Lon: forecast.Longitude, Found: true},
		ObservedAt:           current.Time.Time,
		Provider:             name,
	}, nil
}

func hourIndex(times []time.Time, at time.Time) int {
	hour := at.Truncate(time.Hour)
	for i, t := range times {
		if t.Equal(hour) {
			return i
		}
	}
	return -1
}

// dayRange returns the lowest and highest hourly temperature on the calendar day of at.
func dayRange(forecast *omgo.Forecast, at time.Time) (float64, float64) {
	minTemp, maxTemp := math.Inf(1), math.Inf(-1)
	year, month, day := at.Date()
	temps := forecast.HourlyMetrics[metricTemperature]
	for i, t := range forecast.HourlyTimes {
		if i >= len(temps) {
			break
		}
		if y, m, d := t.Date(); y != year || m != month || d != day {
			continue
		}
		minTemp = math.Min(minTemp, temps[i])
		maxTemp = math.Max(maxTemp, temps[i])
	}
	if math.IsInf(minTemp, 0) || math.IsInf(maxTemp, 0) {
		return forecast.CurrentWeather.Temperature, forecast.CurrentWeather.Temperature
	}
	return minTemp, maxTemp
}
