// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

// Fix is one decoded position update from the NMEA stream.
//
// Speed and course are optional: HasSpeed/HasCourse are false when the
// sentence type does not carry them or the receiver left the field empty.
type Fix struct {
	Sentence  string  `json:"sentence"`   // "RMC", "GGA", "GLL"
	Time      string  `json:"time"`       // e.g. "12:34:56.0000"
	Valid     bool    `json:"valid"`      // receiver reports a usable fix
	Latitude  float64 `json:"lat"`        // decimal degrees
	Longitude float64 `json:"lon"`        // decimal degrees
	SpeedMs   float64 `json:"speed_ms"`   // ground speed, meters/second
	HasSpeed  bool    `json:"has_speed"`  //
	CourseDeg float64 `json:"course_deg"` // course over ground, true north
	HasCourse bool    `json:"has_course"` //
}
