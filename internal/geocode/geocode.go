// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"errors"

	"github.com/wneessen/weather-fetch/internal/geobus"
)

// ErrNotFound is returned by Search if no coordinates exist for the given name.
var ErrNotFound = errors.New("no coordinates found")

// Address is the postal address of a coordinate.
type Address struct {
	AddressFound bool
	CacheHit     bool
	Latitude     float64
	Longitude    float64
	DisplayName  string
	Country      string
	CountryCode  string
	State        string
	Postcode     string
	City         string
	Suburb       string
}

// Name returns the most specific locality name of the address, falling back to the display name.
func (a Address) Name() string {
	switch {
	case a.City != "":
		return a.City
	case a.Suburb != "":
		return a.Suburb
	case a.State != "":
		return a.State
	default:
		return a.DisplayName
	}
}

// Geocoder translates between coordinates and place names.
type Geocoder interface {
	Name() string
	Reverse(ctx context.Context, coords geobus.Coordinate) (Address, error)
	Search(ctx context.Context, name string) (geobus.Coordinate, error)
}
