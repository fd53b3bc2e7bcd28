// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package opencage

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
	APIEndpoint = "https://api.opencagedata.com/geocode/v1/json"
	APITimeout  = time.Second * 10
	name        = "opencage"
)

// OpenCage is a geocode.Geocoder backed by the OpenCage API. Forward and reverse lookups share
// one endpoint.
type OpenCage struct {
	apikey   string
	endpoint string
	http     *http.Client
	lang     language.Tag
}

type Response struct {
	Results      []Result `json:"results"`
	TotalResults int      `json:"total_results"`
}

type Result struct {
	Components  Components `json:"components"`
	DisplayName string     `json:"formatted"`
	Geometry    Geometry   `json:"geometry"`
}

type Components struct {
	NormalizedCity string `json:"_normalized_city"`
	City           string `json:"city"`
	Country        string `json:"country"`
	CountryCode    string `json:"country_code"`
	Postcode       string `json:"postcode"`
	State          string `json:"state"`
	Suburb         string `json:"suburb"`
	Town           string `json:"town"`
	Village        string `json:"village"`
}

type Geometry struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

func New(client *http.Client, lang language.Tag, apikey string) *OpenCage {
	return &OpenCage{
		apikey:   apikey,
		endpoint: APIEndpoint,
		lang:     lang,
		http:     client,
	}
}

func (o *OpenCage) Name() string {
	return name
}

// Reverse resolves coords to an address. An empty result set yields an Address with
// AddressFound set to false.
func (o *OpenCage) Reverse(ctx context.Context, coords geobus.Coordinate) (geocode.Address, error) {
	q := strconv.FormatFloat(coords.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(coords.Lon, 'f', 6, 64)
	response, err := o.query(ctx, q)
	if err != nil {
		return geocode.Address{}, fmt.Errorf("failed to retrieve address details from OpenCage API: %w", err)
	}
	if len(response.Results) < 1 {
		return geocode.Address{Latitude: coords.Lat, Longitude: coords.Lon}, nil
	}

	result := response.Results[0]
	address := geocode.Address{
		AddressFound: true,
		Latitude:     result.Geometry.Lat,
		Longitude:    result.Geometry.Lon,
		DisplayName:  result.DisplayName,
		Country:      result.Components.Country,
		CountryCode:  result.Components.CountryCode,
		State:        result.Components.State,
		Postcode:     result.Components.Postcode,
		City:         result.Components.NormalizedCity,
		Suburb:       result.Components.Suburb,
	}
	switch {
	case result.Components.City != "":
		address.City = result.Components.City
	case result.Components.Town != "":
		address.City = result.Components.Town
	case result.Components.Village != "":
		address.City = result.Components.Village
	}

	return address, nil
}

// Search returns the coordinates of the best match for name, or geocode.ErrNotFound.
func (o *OpenCage) Search(ctx context.Context, name string) (geobus.Coordinate, error) {
	response, err := o.query(ctx, name)
	if err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to retrieve coordinates from OpenCage API: %w", err)
	}
	if len(response.Results) < 1 {
		return geobus.Coordinate{}, fmt.Errorf("%w for %q", geocode.ErrNotFound, name)
	}
	geometry := response.Results[0].Geometry
	return geobus.Coordinate{Lat: geometry.Lat, Lon: geometry.Lon, Acc: geobus.AccuracyCity, Found: true}, nil
}

func (o *OpenCage) query(ctx context.Context, q string) (Response, error) {
	var response Response

	query := url.Values{}
	query.Set("key", o.apikey)
	query.Set("q", q)
	query.Set("limit", "1")
	query.Set("no_annotations", "1")
	query.Set("no_record", "1")
	query.Set("language", o.lang.String())

	_, err := o.http.GetWithTimeout(ctx, o.endpoint, &response, query, nil, APITimeout)
	return response, err
}
