// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"errors"

	"github.com/vorlif/spreak/localize"

	"github.com/wneessen/weather-fetch/internal/weather"
)

const (
	msgInvalidQuery localize.MsgID = "Please enter a valid city name."
	msgTransport    localize.MsgID = "The weather service could not be reached. Please check your network connection."
	msgNoData       localize.MsgID = "No weather data was found for this location."
	msgDecode       localize.MsgID = "The weather data could not be read."
	msgUnknown      localize.MsgID = "An unexpected error occurred."
)

// errorMessage returns the localized user-facing message for a fetch error.
func (s *Service) errorMessage(err error) string {
	var msg localize.MsgID
	switch {
	case errors.Is(err, weather.ErrInvalidQuery):
		msg = msgInvalidQuery
	case errors.Is(err, weather.ErrTransport):
		msg = msgTransport
	case errors.Is(err, weather.ErrNoData):
		msg = msgNoData
	case errors.Is(err, weather.ErrDecode):
		msg = msgDecode
	default:
		msg = msgUnknown
	}
	return s.localizer.Get(msg)
}
