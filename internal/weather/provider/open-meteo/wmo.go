// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package open_meteo

import (
	"github.com/wneessen/weather-fetch/internal/weather"
)

type wmoCondition struct {
	Main        string
	Description string
	// iconBase is the OpenWeatherMap style icon number, suffixed with "d" or "n"
	iconBase string
}

func (c wmoCondition) icon(isDay bool) string {
	if isDay {
		return c.iconBase + "d"
	}
	return c.iconBase + "n"
}

// wmoConditions maps WMO weather codes to condition groups, descriptions and icons
var wmoConditions = map[int]wmoCondition{
	0:  {weather.ConditionClear, "clear sky", "01"},
	1:  {weather.ConditionClear, "mainly clear", "02"},
	2:  {weather.ConditionClouds, "partly cloudy", "03"},
	3:  {weather.ConditionClouds, "overcast", "04"},
	45: {weather.ConditionFog, "fog", "50"},
	48: {weather.ConditionFog, "depositing rime fog", "50"},
	51: {weather.ConditionDrizzle, "light drizzle", "09"},
	53: {weather.ConditionDrizzle, "moderate drizzle", "09"},
	55: {weather.ConditionDrizzle, "dense drizzle", "09"},
	56: {weather.ConditionDrizzle, "light freezing drizzle", "09"},
	57: {weather.ConditionDrizzle, "dense freezing drizzle", "09"},
	61: {weather.ConditionRain, "slight rain", "10"},
	63: {weather.ConditionRain, "moderate rain", "10"},
	65: {weather.ConditionRain, "heavy rain", "10"},
	66: {weather.ConditionRain, "light freezing rain", "13"},
	67: {weather.ConditionRain, "heavy freezing rain", "13"},
	71: {weather.ConditionSnow, "slight snow fall", "13"},
	73: {weather.ConditionSnow, "moderate snow fall", "13"},
	75: {weather.ConditionSnow, "heavy snow fall", "13"},
	77: {weather.ConditionSnow, "snow grains", "13"},
	80: {weather.ConditionRain, "slight rain showers", "09"},
	81: {weather.ConditionRain, "moderate rain showers", "09"},
	82: {weather.ConditionRain, "violent rain showers", "09"},
	85: {weather.ConditionSnow, "slight snow showers", "13"},
	86: {weather.ConditionSnow, "heavy snow showers", "13"},
	95: {weather.ConditionThunderstorm, "thunderstorm", "11"},
	96: {weather.ConditionThunderstorm, "thunderstorm with slight hail", "11"},
	99: {weather.ConditionThunderstorm, "thunderstorm with heavy hail", "11"},
}
