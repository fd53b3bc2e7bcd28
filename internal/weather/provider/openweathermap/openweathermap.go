// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package openweathermap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"

	"github.com/wneessen/weather-fetch/internal/geobus"
	"github.com/wneessen/weather-fetch/internal/http"
	"github.com/wneessen/weather-fetch/internal/logger"
	"github.com/wneessen/weather-fetch/internal/weather"
)

const (
	name = "openweathermap"
	// DefaultEndpoint is the current weather endpoint of the OpenWeatherMap API.
	DefaultEndpoint = "https://api.openweathermap.org/data/2.5/weather"
	units           = "metric"

	breakerFailures = 5
	breakerTimeout  = time.Minute
)

var ErrMissingAPIKey = errors.New("OpenWeatherMap API key is required")

// Settings configures the OpenWeatherMap provider.
type Settings struct {
	APIKey   string
	Endpoint string
	// Country is appended to city queries as ISO 3166 country code, e.g. "US"
	Country string
	// CircuitBreaker enables fail-fast behaviour after repeated transport failures
	CircuitBreaker bool
}

// OpenWeatherMap implements weather.Provider for the OpenWeatherMap current weather API.
type OpenWeatherMap struct {
	http     *http.Client
	log      *logger.Logger
	apiKey   string
	endpoint string
	country  string
	breaker  *gobreaker.CircuitBreaker
}

// response is the subset of the current weather API response the provider uses. Every field is
// required, a missing one is a decode failure.
type response struct {
	Coord *struct {
		Lon *float64 `json:"lon" validate:"required"`
		Lat *float64 `json:"lat" validate:"required"`
	} `json:"coord" validate:"required"`
	Weather []struct {
		ID          *int    `json:"id" validate:"required"`
		Main        *string `json:"main" validate:"required"`
		Description *string `json:"description" validate:"required"`
		Icon        *string `json:"icon" validate:"required"`
	} `json:"weather" validate:"required,min=1,dive"`
	Main *struct {
		Temp      *float64 `json:"temp" validate:"required"`
		FeelsLike *float64 `json:"feels_like" validate:"required"`
		TempMin   *float64 `json:"temp_min" validate:"required"`
		TempMax   *float64 `json:"temp_max" validate:"required"`
		Pressure  *float64 `json:"pressure" validate:"required"`
		Humidity  *float64 `json:"humidity" validate:"required"`
	} `json:"main" validate:"required"`
	Wind *struct {
		Speed *float64 `json:"speed" validate:"required"`
		Deg   *float64 `json:"deg" validate:"required"`
	} `json:"wind" validate:"required"`
	Name *string `json:"name" validate:"required"`
	Dt   int64   `json:"dt"`
}

var validate = newValidator()

// newValidator returns a validator that reports fields by their JSON name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// breakerOutcome carries non-transport errors through the circuit breaker, so that only
// transport failures count towards tripping it.
type breakerOutcome struct {
	err error
}

func New(client *http.Client, log *logger.Logger, settings Settings) (*OpenWeatherMap, error) {
	if client == nil {
		return nil, errors.New("http client is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if strings.TrimSpace(settings.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	provider := &OpenWeatherMap{
		http:     client,
		log:      log,
		apiKey:   strings.TrimSpace(settings.APIKey),
		endpoint: settings.Endpoint,
		country:  strings.TrimSpace(settings.Country),
	}
	if provider.endpoint == "" {
		provider.endpoint = DefaultEndpoint
	}
	if settings.CircuitBreaker {
		provider.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     breakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("weather circuit breaker changed state", "breaker", name, "from", from.String(),
					"to", to.String())
			},
		})
	}

	return provider, nil
}

func (o *OpenWeatherMap) Name() string {
	return name
}

// Fetch retrieves the current weather for query with a single GET request. Errors are of type
// *weather.FetchError.
func (o *OpenWeatherMap) Fetch(ctx context.Context, query weather.Query) (*weather.Result, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	params := o.queryParams(query)
	res := new(response)
	if err := o.get(ctx, params, res); err != nil {
		return nil, err
	}

	return o.result(res)
}

// queryParams builds the URL query for q.
func (o *OpenWeatherMap) queryParams(q weather.Query) url.Values {
	params := url.Values{}
	switch q.Kind() {
	case weather.KindCity:
		city := q.City()
		if o.country != "" && !strings.Contains(city, ",") {
			city += "," + o.country
		}
		params.Set("q", city)
	case weather.KindCoordinates:
		coords := q.Coordinates()
		params.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	}
	params.Set("appid", o.apiKey)
	params.Set("units", units)
	return params
}

func (o *OpenWeatherMap) get(ctx context.Context, params url.Values, target *response) error {
	if o.breaker == nil {
		_, err := o.http.Get(ctx, o.endpoint, target, params, nil)
		return classify(err)
	}

	out, err := o.breaker.Execute(func() (interface{}, error) {
		_, err := o.http.Get(ctx, o.endpoint, target, params, nil)
		err = classify(err)
		if errors.Is(err, weather.ErrTransport) {
			return nil, err
		}
		return breakerOutcome{err: err}, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return weather.NewFetchError(weather.ErrTransport, err)
	}
	if err != nil {
		return err
	}
	if outcome, ok := out.(breakerOutcome); ok {
		return outcome.err
	}
	return nil
}

// classify maps errors of the HTTP client to fetch error kinds.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, http.ErrInvalidURL):
		return weather.NewFetchError(weather.ErrInvalidQuery, err)
	case errors.Is(err, http.ErrHTTPStatus), errors.Is(err, http.ErrEmptyBody):
		return weather.NewFetchError(weather.ErrNoData, err)
	case errors.Is(err, http.ErrDecodeJSON):
		return weather.NewFetchError(weather.ErrDecode, err)
	default:
		return weather.NewFetchError(weather.ErrTransport, err)
	}
}

// result converts a decoded response into a weather.Result.
func (o *OpenWeatherMap) result(res *response) (*weather.Result, error) {
	if err := validate.Struct(res); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, weather.NewFetchError(weather.ErrDecode, err)
		}
		missing := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			missing = append(missing, strings.TrimPrefix(fe.Namespace(), "response."))
		}
		return nil, weather.NewFetchError(weather.ErrDecode,
			fmt.Errorf("response is missing required fields: %s", strings.Join(missing, ", ")))
	}

	observed := time.Now()
	if res.Dt > 0 {
		observed = time.Unix(res.Dt, 0)
	}
	condition := res.Weather[0]

	return &weather.Result{
		Location:             *res.Name,
		TemperatureC:         *res.Main.Temp,
		FeelsLikeC:           *res.Main.FeelsLike,
		TempMinC:             *res.Main.TempMin,
		TempMaxC:             *res.Main.TempMax,
		PressureHPa:          int(math.Round(*res.Main.Pressure)),
		HumidityPercent:      int(math.Round(*res.Main.Humidity)),
		WindSpeed:            *res.Wind.Speed,
		WindDirectionDeg:     int(math.Round(*res.Wind.Deg)),
		ConditionID:          *condition.ID,
		ConditionMain:        *condition.Main,
		ConditionDescription: *condition.Description,
		ConditionIcon:        *condition.Icon,
		Coordinates:          geobus.Coordinate{Lat: *res.Coord.Lat, Lon: *res.Coord.Lon, Found: true},
		ObservedAt:           observed,
		Provider:             name,
	}, nil
}
