// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package opencage

import (
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/wneessen/weather-fetch/internal/geobus"
	"github.com/wneessen/weather-fetch/internal/geocode"
	"github.com/wneessen/weather-fetch/internal/http"
	"github.com/wneessen/weather-fetch/internal/logger"
	"github.com/wneessen/weather-fetch/internal/testhelper"
)

const (
	berlinResponse = `{"results":[{"components":{"_normalized_city":"Berlin","city":"Berlin",
"country":"Germany","country_code":"de","postcode":"10117","state":"Berlin","suburb":"Mitte"},
"formatted":"Friedrichstrasse 67, 10117 Berlin, Germany","geometry":{"lat":52.5129,"lng":13.391}}],
"total_results":1}`
	villageResponse = `{"results":[{"components":{"_normalized_city":"South Gloucestershire",
"village":"Marshfield","country":"United Kingdom"},"formatted":"Marshfield, United Kingdom",
"geometry":{"lat":51.46292,"lng":-2.3185}}],"total_results":1}`
	emptyResponse = `{"results":[],"total_results":0}`
)

var berlinCoords = geobus.Coordinate{Lat: 52.5129, Lon: 13.391}

func TestNew(t *testing.T) {
	coder := testCoderWithRoundtripFunc(t, nil)
	if coder == nil {
		t.Fatal("expected a non-nil geocoder")
	}
	if coder.Name() != name {
		t.Errorf("expected provider name to be %q, got %q", name, coder.Name())
	}
}

func TestOpenCage_Reverse(t *testing.T) {
	t.Run("reverse geocoding succeeds", func(t *testing.T) {
		var gotQuery string
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			gotQuery = req.URL.Query().Get("q")
			return stringResponse(berlinResponse), nil
		})
		addr, err := coder.Reverse(t.Context(), berlinCoords)
		if err != nil {
			t.Fatalf("failed to reverse geocode: %s", err)
		}
		if gotQuery != "52.512900,13.391000" {
			t.Errorf("expected query to be %q, got %q", "52.512900,13.391000", gotQuery)
		}
		if !addr.AddressFound {
			t.Error("expected address to be found")
		}
		if addr.City != "Berlin" {
			t.Errorf("expected city to be %q, got %q", "Berlin", addr.City)
		}
		if addr.Name() != "Berlin" {
			t.Errorf("expected name to be %q, got %q", "Berlin", addr.Name())
		}
		if addr.CountryCode != "de" {
			t.Errorf("expected country code to be %q, got %q", "de", addr.CountryCode)
		}
	})
	t.Run("village takes precedence over the normalized city", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return stringResponse(villageResponse), nil
		})
		addr, err := coder.Reverse(t.Context(), geobus.Coordinate{Lat: 51.46292, Lon: -2.3185})
		if err != nil {
			t.Fatalf("failed to reverse geocode: %s", err)
		}
		if addr.City != "Marshfield" {
			t.Errorf("expected city to be %q, got %q", "Marshfield", addr.City)
		}
	})
	t.Run("no results yields an address that was not found", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return stringResponse(emptyResponse), nil
		})
		addr, err := coder.Reverse(t.Context(), berlinCoords)
		if err != nil {
			t.Fatalf("failed to reverse geocode: %s", err)
		}
		if addr.AddressFound {
			t.Error("expected address to not be found")
		}
	})
	t.Run("transport failure is returned", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return nil, errors.New("intentionally failing")
		})
		if _, err := coder.Reverse(t.Context(), berlinCoords); err == nil {
			t.Fatal("expected reverse geocoding to fail")
		}
	})
}

func TestOpenCage_Search(t *testing.T) {
	t.Run("search succeeds", func(t *testing.T) {
		var gotKey string
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			gotKey = req.URL.Query().Get("key")
			return stringResponse(berlinResponse), nil
		})
		coords, err := coder.Search(t.Context(), "Berlin")
		if err != nil {
			t.Fatalf("failed to search: %s", err)
		}
		if gotKey != "test-key" {
			t.Errorf("expected api key to be sent, got %q", gotKey)
		}
		if coords.Lat != berlinCoords.Lat || coords.Lon != berlinCoords.Lon {
			t.Errorf("expected coordinates to be %s, got %s", berlinCoords, coords)
		}
		if !coords.Found {
			t.Error("expected coordinates to be found")
		}
	})
	t.Run("search without results fails with not found", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return stringResponse(emptyResponse), nil
		})
		_, err := coder.Search(t.Context(), "Atlantis")
		if !errors.Is(err, geocode.ErrNotFound) {
			t.Errorf("expected error to be %s, got %s", geocode.ErrNotFound, err)
		}
	})
}

func stringResponse(body string) *stdhttp.Response {
	return &stdhttp.Response{
		StatusCode: 200,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(stdhttp.Header),
	}
}

func testCoderWithRoundtripFunc(t *testing.T, fn func(req *stdhttp.Request) (*stdhttp.Response, error)) *OpenCage {
	t.Helper()
	client := http.New(logger.NewLogger(slog.LevelError, io.Discard))
	if fn != nil {
		client.Transport = testhelper.MockRoundTripper{Fn: fn}
	}
	return New(client, language.English, "test-key")
}
