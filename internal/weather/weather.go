// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather

import (
	"context"
	"time"

	"github.com/wneessen/weather-fetch/internal/geobus"
)

// Provider is implemented by each weather API backend.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, query Query) (*Result, error)
}

// Result holds the current conditions at a location as reported by a Provider. Temperatures are
// in degrees Celsius, wind speed in meters per second. A Result is only ever built from a fully
// decoded provider response.
type Result struct {
	Location             string
	TemperatureC         float64
	FeelsLikeC           float64
	TempMinC             float64
	TempMaxC             float64
	PressureHPa          int
	HumidityPercent      int
	WindSpeed            float64
	WindDirectionDeg     int
	ConditionID          int
	ConditionMain        string
	ConditionDescription string
	ConditionIcon        string
	Coordinates          geobus.Coordinate
	ObservedAt           time.Time
	Provider             string
}

// Condition groups shared by all providers, following the OpenWeatherMap "main" groups.
const (
	ConditionThunderstorm = "Thunderstorm"
	ConditionDrizzle      = "Drizzle"
	ConditionRain         = "Rain"
	ConditionSnow         = "Snow"
	ConditionFog          = "Fog"
	ConditionMist         = "Mist"
	ConditionClear        = "Clear"
	ConditionClouds       = "Clouds"
)
