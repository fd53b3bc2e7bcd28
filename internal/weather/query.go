// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wneessen/weather-fetch/internal/geobus"
)

// QueryKind distinguishes the two mutually exclusive Query variants.
type QueryKind int

const (
	KindNone QueryKind = iota
	KindCity
	KindCoordinates
)

func (k QueryKind) String() string {
	switch k {
	case KindCity:
		return "city"
	case KindCoordinates:
		return "coordinates"
	default:
		return "none"
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Query selects the location a Provider fetches the weather for. It is either a city name or a
// coordinate pair, never both. The zero value is an empty query that never validates.
type Query struct {
	kind QueryKind
	city string
	lat  float64
	lon  float64
}

type cityParams struct {
	City string `validate:"required"`
}

type coordinateParams struct {
	Lat float64 `validate:"latitude"`
	Lon float64 `validate:"longitude"`
}

// ByCity returns a Query for the given city name. Surrounding whitespace is removed.
func ByCity(name string) Query {
	return Query{kind: KindCity, city: strings.TrimSpace(name)}
}

// ByCoordinates returns a Query for the given position.
func ByCoordinates(lat, lon float64) Query {
	return Query{kind: KindCoordinates, lat: lat, lon: lon}
}

func (q Query) Kind() QueryKind {
	return q.kind
}

// City returns the city name of a by-city query and an empty string otherwise.
func (q Query) City() string {
	return q.city
}

// Coordinates returns the position of a by-coordinates query and a zero Coordinate otherwise.
func (q Query) Coordinates() geobus.Coordinate {
	if q.kind != KindCoordinates {
		return geobus.Coordinate{}
	}
	return geobus.Coordinate{Lat: q.lat, Lon: q.lon, Found: true}
}

func (q Query) IsZero() bool {
	return q.kind == KindNone
}

// Validate checks the query parameters. City names must not be empty, coordinates must be
// finite and within the valid latitude and longitude ranges. The returned error is a
// *FetchError of kind ErrInvalidQuery.
func (q Query) Validate() error {
	var err error
	switch q.kind {
	case KindCity:
		err = validate.Struct(cityParams{City: q.city})
	case KindCoordinates:
		err = validate.Struct(coordinateParams{Lat: q.lat, Lon: q.lon})
	default:
		err = errors.New("empty query")
	}
	if err != nil {
		return NewFetchError(ErrInvalidQuery, fmt.Errorf("invalid %s query: %w", q.kind, err))
	}
	return nil
}

func (q Query) String() string {
	switch q.kind {
	case KindCity:
		return "city=" + q.city
	case KindCoordinates:
		return "coordinates=" + geobus.Coordinate{Lat: q.lat, Lon: q.lon}.String()
	default:
		return "empty"
	}
}
