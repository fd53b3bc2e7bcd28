// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package openweathermap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	stdhttp "net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"

	"github.com/wneessen/weather-fetch/internal/http"
	"github.com/wneessen/weather-fetch/internal/logger"
	"github.com/wneessen/weather-fetch/internal/testhelper"
	"github.com/wneessen/weather-fetch/internal/weather"
)

const (
	testAPIKey     = "secret-api-key"
	testFileParis  = "../../../../testdata/openweathermap_paris.json"
	testFileNoWind = "../../../../testdata/openweathermap_nowind.json"
)

func TestNew(t *testing.T) {
	log := logger.NewLogger(slog.LevelError, io.Discard)
	t.Run("new provider succeeds", func(t *testing.T) {
		provider, err := New(http.New(log), log, Settings{APIKey: testAPIKey})
		if err != nil {
			t.Fatalf("failed to create provider: %s", err)
		}
		if provider.Name() != name {
			t.Errorf("expected provider name to be %q, got %q", name, provider.Name())
		}
		if provider.endpoint != DefaultEndpoint {
			t.Errorf("expected endpoint to be %q, got %q", DefaultEndpoint, provider.endpoint)
		}
		if provider.breaker != nil {
			t.Error("expected circuit breaker to be disabled by default")
		}
	})
	t.Run("missing API key fails", func(t *testing.T) {
		_, err := New(http.New(log), log, Settings{APIKey: "  "})
		if !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("expected error to be %s, got %v", ErrMissingAPIKey, err)
		}
	})
	t.Run("missing http client fails", func(t *testing.T) {
		if _, err := New(nil, log, Settings{APIKey: testAPIKey}); err == nil {
			t.Error("expected provider creation to fail")
		}
	})
	t.Run("missing logger fails", func(t *testing.T) {
		if _, err := New(http.New(log), nil, Settings{APIKey: testAPIKey}); err == nil {
			t.Error("expected provider creation to fail")
		}
	})
	t.Run("circuit breaker is enabled on request", func(t *testing.T) {
		provider, err := New(http.New(log), log, Settings{APIKey: testAPIKey, CircuitBreaker: true})
		if err != nil {
			t.Fatalf("failed to create provider: %s", err)
		}
		if provider.breaker == nil {
			t.Error("expected circuit breaker to be enabled")
		}
	})
}

func TestOpenWeatherMap_Fetch(t *testing.T) {
	t.Run("fetching by city succeeds", func(t *testing.T) {
		var gotQuery url.Values
		var calls int
		provider := testProvider(t, Settings{APIKey: testAPIKey}, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			calls++
			gotQuery = req.URL.Query()
			return fileResponse(t, testFileParis), nil
		})

		result, err := provider.Fetch(t.Context(), weather.ByCity("  Paris "))
		if err != nil {
			t.Fatalf("failed to fetch weather: %s", err)
		}
		if calls != 1 {
			t.Errorf("expected exactly one request, got %d", calls)
		}
		if gotQuery.Get("q") != "Paris" {
			t.Errorf("expected q to be %q, got %q", "Paris", gotQuery.Get("q"))
		}
		if gotQuery.Get("appid") != testAPIKey {
			t.Errorf("expected appid to be %q, got %q", testAPIKey, gotQuery.Get("appid"))
		}
		if gotQuery.Get("units") != "metric" {
			t.Errorf("expected units to be metric, got %q", gotQuery.Get("units"))
		}
		if gotQuery.Has("lat") || gotQuery.Has("lon") {
			t.Error("expected no coordinates in city query")
		}

		if result.Location != "Paris" {
			t.Errorf("expected location to be Paris, got %q", result.Location)
		}
		if result.TemperatureC != 20.0 {
			t.Errorf("expected temperature to be 20.0, got %f", result.TemperatureC)
		}
		if result.FeelsLikeC != 19.4 {
			t.Errorf("expected feels like to be 19.4, got %f", result.FeelsLikeC)
		}
		if result.TempMinC != 18.3 || result.TempMaxC != 21.7 {
			t.Errorf("expected min/max to be 18.3/21.7, got %f/%f", result.TempMinC, result.TempMaxC)
		}
		if result.PressureHPa != 1012 {
			t.Errorf("expected pressure to be 1012, got %d", result.PressureHPa)
		}
		if result.HumidityPercent != 55 {
			t.Errorf("expected humidity to be 55, got %d", result.HumidityPercent)
		}
		if result.WindSpeed != 3.6 || result.WindDirectionDeg != 250 {
			t.Errorf("expected wind 3.6/250, got %f/%d", result.WindSpeed, result.WindDirectionDeg)
		}
		if result.ConditionID != 800 || result.ConditionMain != weather.ConditionClear {
			t.Errorf("expected condition 800/Clear, got %d/%s", result.ConditionID, result.ConditionMain)
		}
		if result.ConditionDescription != "clear sky" || result.ConditionIcon != "01d" {
			t.Errorf("unexpected condition description/icon: %q/%q", result.ConditionDescription,
				result.ConditionIcon)
		}
		if result.Coordinates.Lat != 48.8566 || result.Coordinates.Lon != 2.3522 {
			t.Errorf("unexpected coordinates: %s", result.Coordinates)
		}
		if result.ObservedAt.Unix() != 1760785200 {
			t.Errorf("expected observation time 1760785200, got %d", result.ObservedAt.Unix())
		}
		if result.Provider != name {
			t.Errorf("expected provider to be %q, got %q", name, result.Provider)
		}
	})
	t.Run("fetching by city appends the country code", func(t *testing.T) {
		var gotQuery url.Values
		provider := testProvider(t, Settings{APIKey: testAPIKey, Country: "FR"},
			func(req *stdhttp.Request) (*stdhttp.Response, error) {
				gotQuery = req.URL.Query()
				return fileResponse(t, testFileParis), nil
			})
		if _, err := provider.Fetch(t.Context(), weather.ByCity("Paris")); err != nil {
			t.Fatalf("failed to fetch weather: %s", err)
		}
		if gotQuery.Get("q") != "Paris,FR" {
			t.Errorf("expected q to be %q, got %q", "Paris,FR", gotQuery.Get("q"))
		}
	})
	t.Run("explicit country in the city name is kept", func(t *testing.T) {
		var gotQuery url.Values
		provider := testProvider(t, Settings{APIKey: testAPIKey, Country: "US"},
			func(req *stdhttp.Request) (*stdhttp.Response, error) {
				gotQuery = req.URL.Query()
				return fileResponse(t, testFileParis), nil
			})
		if _, err := provider.Fetch(t.Context(), weather.ByCity("Paris,FR")); err != nil {
			t.Fatalf("failed to fetch weather: %s", err)
		}
		if gotQuery.Get("q") != "Paris,FR" {
			t.Errorf("expected q to be %q, got %q", "Paris,FR", gotQuery.Get("q"))
		}
	})
	t.Run("fetching by coordinates succeeds", func(t *testing.T) {
		var gotQuery url.Values
		provider := testProvider(t, Settings{APIKey: testAPIKey}, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			gotQuery = req.URL.Query()
			return fileResponse(t, testFileParis), nil
		})
		if _, err := provider.Fetch(t.Context(), weather.ByCoordinates(48.8566, 2.3522)); err != nil {
			t.Fatalf("failed to fetch weather: %s", err)
		}
		if gotQuery.Get("lat") != "48.8566" || gotQuery.Get("lon") != "2.3522" {
			t.Errorf("expected lat/lon 48.8566/2.3522, got %s/%s", gotQuery.Get("lat"), gotQuery.Get("lon"))
		}
		if gotQuery.Has("q") {
			t.Error("expected no city in coordinate query")
		}
	})
	t.Run("invalid queries never reach the network", func(t *testing.T) {
		tests := []struct {
			name  string
			query weather.Query
		}{
			{"empty city", weather.ByCity("   ")},
			{"latitude out of range", weather.ByCoordinates(91, 0)},
			{"longitude out of range", weather.ByCoordinates(0, -180.5)},
			{"NaN latitude", weather.ByCoordinates(math.NaN(), 0)},
			{"infinite longitude", weather.ByCoordinates(0, math.Inf(1))},
			{"zero query", weather.Query{}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				provider := testProvider(t, Settings{APIKey: testAPIKey},
					func(req *stdhttp.Request) (*stdhttp.Response, error) {
						t.Error("expected no request to be sent")
						return nil, errors.New("unexpected request")
					})
				_, err := provider.Fetch(t.Context(), tc.query)
				if !errors.Is(err, weather.ErrInvalidQuery) {
					t.Errorf("expected error to be %s, got %v", weather.ErrInvalidQuery, err)
				}
			})
		}
	})
	t.Run("invalid endpoint is an invalid query", func(t *testing.T) {
		provider := testProvider(t, Settings{APIKey: testAPIKey, Endpoint: "http://example.com/xyz%"},
			func(req *stdhttp.Request) (*stdhttp.Response, error) {
				return nil, errors.New("unexpected request")
			})
		_, err := provider.Fetch(t.Context(), weather.ByCity("Paris"))
		if !errors.Is(err, weather.ErrInvalidQuery) {
			t.Errorf("expected error to be %s, got %v", weather.ErrInvalidQuery, err)
		}
	})
	t.Run("transport failures", func(t *testing.T) {
		cause := errors.New("dial tcp: lookup api.openweathermap.org: no such host")
		provider := testProvider(t, Settings{APIKey: testAPIKey}, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return nil, cause
		})
		_, err := provider.Fetch(t.Context(), weather.ByCity("Paris"))
		if !errors.Is(err, weather.ErrTransport) {
			t.Errorf("expected error to be %s, got %v", weather.ErrTransport, err)
		}
		if !errors.Is(err, cause) {
			t.Errorf("expected error to carry the cause, got %v", err)
		}
	})
	t.Run("canceled context is a transport failure", func(t *testing.T) {
		provider := testProvider(t, Settings{APIKey: testAPIKey}, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return nil, req.Context().Err()
		})
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, err := provider.Fetch(ctx, weather.ByCity("Paris"))
		if !errors.Is(err, weather.ErrTransport) {
			t.Errorf("expected error to be %s, got %v", weather.ErrTransport, err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected error to carry %s, got %v", context.Canceled, err)
		}
	})
	t.Run("non-2xx responses are no data", func(t *testing.T) {
		for _, status := range []int{401, 404, 429, 500} {
			t.Run(stdhttp.StatusText(status), func(t *testing.T) {
				provider := testProvider(t, Settings{APIKey: testAPIKey},
					func(req *stdhttp.Request) (*stdhttp.Response, error) {
						return stringResponse(status, `{"cod":"404","message":"city not found"}`), nil
					})
				_, err := provider.Fetch(t.Context(), weather.ByCity("Atlantis"))
				if !errors.Is(err, weather.ErrNoData) {
					t.Errorf("expected error to be %s, got %v", weather.ErrNoData, err)
				}
			})
		}
	})
	t.Run("empty body is no data", func(t *testing.T) {
		provider := testProvider(t, Settings{APIKey: testAPIKey}, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return stringResponse(200, ""), nil
		})
		_, err := provider.Fetch(t.Context(), weather.ByCity("Paris"))
		if !errors.Is(err, weather.ErrNoData) {
			t.Errorf("expected error to be %s, got %v", weather.ErrNoData, err)
		}
	})
	t.Run("malformed JSON is a decode failure", func(t *testing.T) {
		provider := testProvider(t, Settings{APIKey: testAPIKey}, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return stringResponse(200, `{"main": "not an object"}`), nil
		})
		_, err := provider.Fetch(t.Context(), weather.ByCity("Paris"))
		if !errors.Is(err, weather.ErrDecode) {
			t.Errorf("expected error to be %s, got %v", weather.ErrDecode, err)
		}
	})
	t.Run("missing blocks are a decode failure", func(t *testing.T) {
		provider := testProvider(t, Settings{APIKey: testAPIKey}, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, testFileNoWind), nil
		})
		result, err := provider.Fetch(t.Context(), weather.ByCity("Paris"))
		if !errors.Is(err, weather.ErrDecode) {
			t.Errorf("expected error to be %s, got %v", weather.ErrDecode, err)
		}
		if result != nil {
			t.Error("expected no partial result")
		}
		if err != nil && !strings.Contains(err.Error(), "wind") {
			t.Errorf("expected error to name the missing block, got %s", err)
		}
	})
	t.Run("empty weather list is a decode failure", func(t *testing.T) {
		body := `{"coord":{"lon":1,"lat":1},"weather":[],"main":{"temp":1},"wind":{"speed":1},"name":"X"}`
		provider := testProvider(t, Settings{APIKey: testAPIKey}, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return stringResponse(200, body), nil
		})
		_, err := provider.Fetch(t.Context(), weather.ByCity("X"))
		if !errors.Is(err, weather.ErrDecode) {
			t.Errorf("expected error to be %s, got %v", weather.ErrDecode, err)
		}
	})
}

func TestOpenWeatherMap_FetchMissingFields(t *testing.T) {
	const body = `{"coord":{"lon":2.3522,"lat":48.8566},` +
		`"weather":[{"id":800,"main":"Clear","description":"clear sky","icon":"01d"}],` +
		`"main":{"temp":20,"feels_like":19.4,"temp_min":18.3,"temp_max":21.7,"pressure":1012,"humidity":55},` +
		`"wind":{"speed":3.6,"deg":250},"name":"Paris"}`

	fetch := func(t *testing.T, body string) (*weather.Result, error) {
		t.Helper()
		provider := testProvider(t, Settings{APIKey: testAPIKey}, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return stringResponse(200, body), nil
		})
		return provider.Fetch(t.Context(), weather.ByCity("Paris"))
	}

	t.Run("complete response succeeds", func(t *testing.T) {
		result, err := fetch(t, body)
		if err != nil {
			t.Fatalf("failed to fetch weather: %s", err)
		}
		if result.WindDirectionDeg != 250 {
			t.Errorf("expected wind direction to be %d, got %d", 250, result.WindDirectionDeg)
		}
	})
	t.Run("zero values are not treated as missing", func(t *testing.T) {
		result, err := fetch(t, strings.Replace(body, `"temp":20`, `"temp":0`, 1))
		if err != nil {
			t.Fatalf("failed to fetch weather: %s", err)
		}
		if result.TemperatureC != 0 {
			t.Errorf("expected temperature to be 0, got %f", result.TemperatureC)
		}
	})
	t.Run("each missing field is a decode failure", func(t *testing.T) {
		tests := []struct {
			field  string
			remove string
		}{
			{"coord.lon", `"lon":2.3522,`},
			{"coord.lat", `,"lat":48.8566`},
			{"weather[0].id", `"id":800,`},
			{"weather[0].main", `"main":"Clear",`},
			{"weather[0].description", `"description":"clear sky",`},
			{"weather[0].icon", `,"icon":"01d"`},
			{"main.temp", `"temp":20,`},
			{"main.feels_like", `"feels_like":19.4,`},
			{"main.temp_min", `"temp_min":18.3,`},
			{"main.temp_max", `"temp_max":21.7,`},
			{"main.pressure", `"pressure":1012,`},
			{"main.humidity", `,"humidity":55`},
			{"wind.speed", `"speed":3.6,`},
			{"wind.deg", `,"deg":250`},
			{"name", `,"name":"Paris"`},
		}
		for _, tt := range tests {
			t.Run(tt.field, func(t *testing.T) {
				if !strings.Contains(body, tt.remove) {
					t.Fatalf("body does not contain %q", tt.remove)
				}
				result, err := fetch(t, strings.Replace(body, tt.remove, "", 1))
				if !errors.Is(err, weather.ErrDecode) {
					t.Fatalf("expected error to be %s, got %v", weather.ErrDecode, err)
				}
				if result != nil {
					t.Error("expected no partial result")
				}
				if !strings.Contains(err.Error(), tt.field) {
					t.Errorf("expected error to name %q, got %s", tt.field, err)
				}
			})
		}
	})
	t.Run("null field is a decode failure", func(t *testing.T) {
		_, err := fetch(t, strings.Replace(body, `"temp":20`, `"temp":null`, 1))
		if !errors.Is(err, weather.ErrDecode) {
			t.Errorf("expected error to be %s, got %v", weather.ErrDecode, err)
		}
	})
	t.Run("empty blocks are a decode failure", func(t *testing.T) {
		emptied := strings.Replace(body, `{"speed":3.6,"deg":250}`, `{}`, 1)
		_, err := fetch(t, emptied)
		if !errors.Is(err, weather.ErrDecode) {
			t.Fatalf("expected error to be %s, got %v", weather.ErrDecode, err)
		}
		if !strings.Contains(err.Error(), "wind.speed") || !strings.Contains(err.Error(), "wind.deg") {
			t.Errorf("expected error to name all missing wind fields, got %s", err)
		}
	})
}

func TestOpenWeatherMap_CircuitBreaker(t *testing.T) {
	t.Run("breaker opens after consecutive transport failures", func(t *testing.T) {
		var calls atomic.Int32
		provider := testProvider(t, Settings{APIKey: testAPIKey, CircuitBreaker: true},
			func(req *stdhttp.Request) (*stdhttp.Response, error) {
				calls.Add(1)
				return nil, errors.New("connection refused")
			})
		for i := 0; i < breakerFailures; i++ {
			if _, err := provider.Fetch(t.Context(), weather.ByCity("Paris")); !errors.Is(err, weather.ErrTransport) {
				t.Fatalf("expected error to be %s, got %v", weather.ErrTransport, err)
			}
		}

		_, err := provider.Fetch(t.Context(), weather.ByCity("Paris"))
		if !errors.Is(err, weather.ErrTransport) {
			t.Errorf("expected error to be %s, got %v", weather.ErrTransport, err)
		}
		if !errors.Is(err, gobreaker.ErrOpenState) {
			t.Errorf("expected error to be %s, got %v", gobreaker.ErrOpenState, err)
		}
		if calls.Load() != breakerFailures {
			t.Errorf("expected %d requests, got %d", breakerFailures, calls.Load())
		}
	})
	t.Run("non-transport failures do not open the breaker", func(t *testing.T) {
		var calls atomic.Int32
		provider := testProvider(t, Settings{APIKey: testAPIKey, CircuitBreaker: true},
			func(req *stdhttp.Request) (*stdhttp.Response, error) {
				calls.Add(1)
				return stringResponse(404, `{"cod":"404"}`), nil
			})
		for i := 0; i < breakerFailures*2; i++ {
			if _, err := provider.Fetch(t.Context(), weather.ByCity("Atlantis")); !errors.Is(err, weather.ErrNoData) {
				t.Fatalf("expected error to be %s, got %v", weather.ErrNoData, err)
			}
		}
		if calls.Load() != breakerFailures*2 {
			t.Errorf("expected %d requests, got %d", breakerFailures*2, calls.Load())
		}
	})
	t.Run("successful fetch passes the breaker", func(t *testing.T) {
		provider := testProvider(t, Settings{APIKey: testAPIKey, CircuitBreaker: true},
			func(req *stdhttp.Request) (*stdhttp.Response, error) {
				return fileResponse(t, testFileParis), nil
			})
		result, err := provider.Fetch(t.Context(), weather.ByCity("Paris"))
		if err != nil {
			t.Fatalf("failed to fetch weather: %s", err)
		}
		if result.Location != "Paris" {
			t.Errorf("expected location to be Paris, got %q", result.Location)
		}
	})
}

func TestOpenWeatherMap_FetchOnline(t *testing.T) {
	testhelper.PerformIntegrationTests(t)
	apiKey := os.Getenv("WEATHERFETCH_WEATHER_APIKEY")
	if apiKey == "" {
		t.Skip("WEATHERFETCH_WEATHER_APIKEY not set")
	}
	log := logger.NewLogger(slog.LevelError, io.Discard)
	provider, err := New(http.New(log), log, Settings{APIKey: apiKey})
	if err != nil {
		t.Fatalf("failed to create provider: %s", err)
	}
	result, err := provider.Fetch(t.Context(), weather.ByCity("Berlin"))
	if err != nil {
		t.Fatalf("failed to fetch weather: %s", err)
	}
	if result.Location == "" {
		t.Error("expected location to be set")
	}
}

func testProvider(t *testing.T, settings Settings, fn func(*stdhttp.Request) (*stdhttp.Response, error)) *OpenWeatherMap {
	t.Helper()
	log := logger.NewLogger(slog.LevelError, io.Discard)
	client := http.New(log)
	client.Transport = testhelper.MockRoundTripper{Fn: fn}
	provider, err := New(client, log, settings)
	if err != nil {
		t.Fatalf("failed to create provider: %s", err)
	}
	return provider
}

func fileResponse(t *testing.T, path string) *stdhttp.Response {
	t.Helper()
	data, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open JSON response file: %s", err)
	}
	return &stdhttp.Response{StatusCode: 200, Body: data, Header: make(stdhttp.Header)}
}

func stringResponse(status int, body string) *stdhttp.Response {
	return &stdhttp.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(stdhttp.Header),
	}
}
