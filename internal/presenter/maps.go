// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"github.com/vorlif/spreak/localize"

	"github.com/wneessen/weather-fetch/internal/weather"
)

const defaultConditionIcon = "🌡️"

// moonPhaseIcons maps go-moonphase phase names to emoji.
var moonPhaseIcons = map[string]string{
	"New Moon":        "🌑",
	"Waxing Crescent": "🌒",
	"First Quarter":   "🌓",
	"Waxing Gibbous":  "🌔",
	"Full Moon":       "🌕",
	"Waning Gibbous":  "🌖",
	"Third Quarter":   "🌗",
	"Waning Crescent": "🌘",
}

// conditionIcons maps condition groups to emoji for day (true) and night (false).
var conditionIcons = map[string]map[bool]string{
	weather.ConditionClear:        {true: "☀️", false: "🌙"},
	weather.ConditionClouds:       {true: "⛅", false: "☁️"},
	weather.ConditionDrizzle:      {true: "🌦️", false: "🌧️"},
	weather.ConditionRain:         {true: "🌧️", false: "🌧️"},
	weather.ConditionSnow:         {true: "🌨️", false: "🌨️"},
	weather.ConditionThunderstorm: {true: "⛈️", false: "⛈️"},
	weather.ConditionFog:          {true: "🌫️", false: "🌫️"},
	weather.ConditionMist:         {true: "🌫️", false: "🌫️"},
	"Haze":                        {true: "🌫️", false: "🌫️"},
	"Smoke":                       {true: "🌫️", false: "🌫️"},
	"Dust":                        {true: "🌪️", false: "🌪️"},
	"Sand":                        {true: "🌪️", false: "🌪️"},
	"Ash":                         {true: "🌋", false: "🌋"},
	"Squall":                      {true: "💨", false: "💨"},
	"Tornado":                     {true: "🌪️", false: "🌪️"},
}

var i18nVars = map[string]localize.MsgID{
	"temp":      "Temperature",
	"apparent":  "Feels like",
	"humidity":  "Humidity",
	"pressure":  "Pressure",
	"wind":      "Wind",
	"sunrise":   "Sunrise",
	"sunset":    "Sunset",
	"moonphase": "Moon phase",
	"updated":   "Updated",
}

var windDirIcons = map[string]string{
	"N":  "↑",
	"NE": "↗",
	"E":  "→",
	"SE": "↘",
	"S":  "↓",
	"SW": "↙",
	"W":  "←",
	"NW": "↖",
}
