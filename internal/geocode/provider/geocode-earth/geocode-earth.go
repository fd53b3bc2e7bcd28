// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocodeearth

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/text/language"

	"github.com/wneessen/weather-fetch/internal/geobus"
	"github.com/wneessen/weather-fetch/internal/geocode"
	"github.com/wneessen/weather-fetch/internal/http"
)

const (
	APIReverseEndpoint = "https://api.geocode.earth/v1/reverse"
	APISearchEndpoint  = "https://api.geocode.earth/v1/search"
	APITimeout         = time.Second * 10
	name               = "geocode-earth"
)

// GeocodeEarth is a geocode.Geocoder backed by the geocode.earth (Pelias) API.
type GeocodeEarth struct {
	apikey string
	http   *http.Client
	lang   language.Tag
}

type Response struct {
	Features []Feature `json:"features"`
	Type     string    `json:"type"`
}

type Feature struct {
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
	Type       string     `json:"type"`
}

// Geometry holds a GeoJSON point, coordinates are ordered longitude, latitude.
type Geometry struct {
	Coordinates []float64 `json:"coordinates"`
}

type Properties struct {
	DisplayName   string `json:"label"`
	Locality      string `json:"locality"`
	Neighbourhood string `json:"neighbourhood"`
	Country       string `json:"country"`
	CountryCode   string `json:"country_code"`
	Postcode      string `json:"postalcode"`
	Region        string `json:"region"`
}

func New(client *http.Client, lang language.Tag, apikey string) *GeocodeEarth {
	return &GeocodeEarth{
		apikey: apikey,
		lang:   lang,
		http:   client,
	}
}

func (g *GeocodeEarth) Name() string {
	return name
}

// Reverse resolves coords to an address. An empty feature collection yields an Address with
// AddressFound set to false.
func (g *GeocodeEarth) Reverse(ctx context.Context, coords geobus.Coordinate) (geocode.Address, error) {
	var response Response

	query := url.Values{}
	query.Set("api_key", g.apikey)
	query.Set("point.lat", strconv.FormatFloat(coords.Lat, 'f', 6, 64))
	query.Set("point.lon", strconv.FormatFloat(coords.Lon, 'f', 6, 64))
	query.Set("size", "1")
	query.Set("lang", g.lang.String())

	if _, err := g.http.GetWithTimeout(ctx, APIReverseEndpoint, &response, query, nil, APITimeout); err != nil {
		return geocode.Address{}, fmt.Errorf("failed to retrieve address details from geocode.earth API: %w", err)
	}
	if len(response.Features) < 1 {
		return geocode.Address{Latitude: coords.Lat, Longitude: coords.Lon}, nil
	}

	result := response.Features[0].Properties
	return geocode.Address{
		AddressFound: true,
		Latitude:     coords.Lat,
		Longitude:    coords.Lon,
		DisplayName:  result.DisplayName,
		Country:      result.Country,
		CountryCode:  result.CountryCode,
		State:        result.Region,
		Postcode:     result.Postcode,
		City:         result.Locality,
		Suburb:       result.Neighbourhood,
	}, nil
}

// Search returns the coordinates of the best match for name, or geocode.ErrNotFound.
func (g *GeocodeEarth) Search(ctx context.Context, name string) (geobus.Coordinate, error) {
	var response Response

	query := url.Values{}
	query.Set("api_key", g.apikey)
	query.Set("text", name)
	query.Set("size", "1")
	query.Set("lang", g.lang.String())

	if _, err := g.http.GetWithTimeout(ctx, APISearchEndpoint, &response, query, nil, APITimeout); err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to retrieve coordinates from geocode.earth API: %w", err)
	}
	if len(response.Features) < 1 {
		return geobus.Coordinate{}, fmt.Errorf("%w for %q", geocode.ErrNotFound, name)
	}
	point := response.Features[0].Geometry.Coordinates
	if len(point) != 2 {
		return geobus.Coordinate{}, fmt.Errorf("invalid geometry in geocode.earth API response for %q", name)
	}
	return geobus.Coordinate{Lat: point[1], Lon: point[0], Acc: geobus.AccuracyCity, Found: true}, nil
}
