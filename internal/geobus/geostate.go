// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

// GeolocationState tracks the last coordinate a provider emitted, so that providers only
// emit when the position actually moved.
type GeolocationState struct {
	last     Coordinate
	haveLast bool
}

// HasChanged reports whether coord is the first coordinate seen or differs from the last one.
// Accuracy changes alone do not count as a change.
func (s *GeolocationState) HasChanged(coord Coordinate) bool {
	if !s.haveLast {
		return true
	}
	return s.last.Lat != coord.Lat || s.last.Lon != coord.Lon
}

// Update stores coord as the last emitted coordinate.
func (s *GeolocationState) Update(coord Coordinate) {
	s.last = coord
	s.haveLast = true
}
