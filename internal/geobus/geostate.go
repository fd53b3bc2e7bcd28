// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

// GeolocationState tracks the last known geolocation coordinates and accuracy values.
// It provides functionality to detect changes in geolocation data.
type GeolocationState struct {
	last     Coordinate
	haveLast bool
}

// HasChanged reports whether the given coordinate differs significantly from the last known
// coordinate. An empty state always reports a change.
func (s *GeolocationState) HasChanged(coord Coordinate) bool {
	if !s.haveLast {
		return true
	}
	return coord.PosHasSignificantChange(s.last)
}

// Update stores the given coordinate as the last known geolocation.
func (s *GeolocationState) Update(coord Coordinate) {
	s.last = coord
	s.haveLast = true
}

// Last returns the last known coordinate and whether one was recorded.
func (s *GeolocationState) Last() (Coordinate, bool) {
	return s.last, s.haveLast
}
