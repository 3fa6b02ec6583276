// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package route

import "math"

// EarthRadiusM is the mean Earth radius used for all great-circle math.
const EarthRadiusM = 6371008.8

func rad(d float64) float64 { return d * math.Pi / 180.0 }
func deg(r float64) float64 { return r * 180.0 / math.Pi }

// Distance returns the great-circle (haversine) distance in meters.
func Distance(a, b Waypoint) float64 {
	lat1, lat2 := rad(a.Lat), rad(b.Lat)
	dLat := lat2 - lat1
	dLon := rad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Bearing returns the initial great-circle bearing from a to b in degrees,
// in [0, 360). Coincident points give 0.
func Bearing(a, b Waypoint) float64 {
	lat1, lat2 := rad(a.Lat), rad(b.Lat)
	dLon := rad(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	if x == 0 && y == 0 {
		return 0
	}
	return math.Mod(deg(math.Atan2(y, x))+360, 360)
}

// Destination moves from a by distM meters along bearingDeg.
func Destination(a Waypoint, bearingDeg, distM float64) Waypoint {
	lat1, lon1 := rad(a.Lat), rad(a.Lon)
	brg := rad(bearingDeg)
	d := distM / EarthRadiusM

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brg))
	lon2 := lon1 + math.Atan2(
		math.Sin(brg)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)

	lon := math.Mod(deg(lon2)+540, 360) - 180
	return Waypoint{Lat: deg(lat2), Lon: lon}
}
