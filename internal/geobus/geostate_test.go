// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import "testing"

func TestGeolocationState(t *testing.T) {
	home := Coordinate{Lat: 50.9375, Lon: 6.9603, Acc: AccuracyZip}

	t.Run("the first coordinate is always a change", func(t *testing.T) {
		var state GeolocationState
		if !state.HasChanged(home) {
			t.Error("expected an empty state to report a change")
		}
	})
	t.Run("only position changes count", func(t *testing.T) {
		tests := []struct {
			name    string
			next    Coordinate
			changed bool
		}{
			{"same position", home, false},
			{"latitude moved", Coordinate{Lat: 50.9376, Lon: home.Lon, Acc: home.Acc}, true},
			{"longitude moved", Coordinate{Lat: home.Lat, Lon: 6.9604, Acc: home.Acc}, true},
			{"accuracy only", Coordinate{Lat: home.Lat, Lon: home.Lon, Acc: AccuracyCity}, false},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				var state GeolocationState
				state.Update(home)
				if got := state.HasChanged(tc.next); got != tc.changed {
					t.Errorf("expected change to be %t, got %t", tc.changed, got)
				}
			})
		}
	})
	t.Run("update moves the reference position", func(t *testing.T) {
		var state GeolocationState
		state.Update(home)
		moved := Coordinate{Lat: 48.1374, Lon: 11.5755, Acc: AccuracyCity}
		state.Update(moved)
		if state.HasChanged(moved) {
			t.Error("expected the updated position to be the reference")
		}
		if !state.HasChanged(home) {
			t.Error("expected the previous position to count as a change")
		}
	})
}
