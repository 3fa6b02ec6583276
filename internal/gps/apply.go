// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"

	"github.com/relabs-tech/vehicle_telemetry/internal/telemetry"
)

// MsToKmh converts meters/second to kilometers/hour.
const MsToKmh = 3.6

// DefaultHeadingMinSpeedKmh is the speed at or below which GPS course is
// too noisy to drive the heading arrow.
const DefaultHeadingMinSpeedKmh = 3.0

// Apply writes one decoded fix into the snapshot.
//
// Invalid fixes only clear FixValid. Valid fixes set FixValid, position,
// speed (if present) and heading (if present and the vehicle is moving
// faster than headingMinKmh).
func Apply(snap *telemetry.Snapshot, fix Fix, headingMinKmh float64) {
	if !fix.Valid {
		snap.FixValid.Set(false)
		return
	}

	snap.FixValid.Set(true)
	snap.Latitude.Set(fix.Latitude)
	snap.Longitude.Set(fix.Longitude)

	var speedKmh float64
	if fix.HasSpeed {
		speedKmh = fix.SpeedMs * MsToKmh
		snap.SpeedKmh.Set(speedKmh)
	} else {
		speedKmh = snap.SpeedKmh.Get()
	}

	if fix.HasCourse && speedKmh > headingMinKmh {
		snap.Heading.Set(normalizeDeg(fix.CourseDeg))
	}
}

func normalizeDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
