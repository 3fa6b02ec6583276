// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

const knotsToMs = 1852.0 / 3600.0

// Raw field positions inside go-nmea's BaseSentence.Fields.
const (
	rmcLatField    = 2
	rmcLonField    = 4
	rmcSpeedField  = 6
	rmcCourseField = 7
)

const (
	rmcValid    = "A"
	gllValid    = "A"
	faaNotValid = "N"
	ggaNoFix    = "0"
	maxLineLen  = 82 * 4
)

// DecodeLine turns one NMEA line into a Fix. ok is false for lines that do
// not produce a position update: noise, bad checksums, partial sentences
// and sentence types we do not use.
func DecodeLine(line string) (fix Fix, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || len(line) > maxLineLen {
		return Fix{}, false
	}
	// NMEA sentences start with '$'; receivers may emit other chatter.
	if !strings.HasPrefix(line, "$") {
		return Fix{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false
	}

	switch sentence.DataType() {
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		fix = Fix{
			Sentence:  nmea.TypeRMC,
			Time:      m.Time.String(),
			Valid:     m.Validity == rmcValid && m.FFAMode != faaNotValid,
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
		}
		if !fieldPresent(m.Fields, rmcLatField) || !fieldPresent(m.Fields, rmcLonField) {
			fix.Valid = false
		}
		if fieldPresent(m.Fields, rmcSpeedField) {
			fix.SpeedMs = m.Speed * knotsToMs
			fix.HasSpeed = true
		}
		if fieldPresent(m.Fields, rmcCourseField) {
			fix.CourseDeg = m.Course
			fix.HasCourse = true
		}

	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		fix = Fix{
			Sentence:  nmea.TypeGGA,
			Time:      m.Time.String(),
			Valid:     m.FixQuality != ggaNoFix && m.FixQuality != "",
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
		}

	case nmea.TypeGLL:
		m := sentence.(nmea.GLL)
		fix = Fix{
			Sentence:  nmea.TypeGLL,
			Time:      m.Time.String(),
			Valid:     m.Validity == gllValid,
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
		}

	default:
		// GSA, GSV, VTG, ZDA ... carry no position
		return Fix{}, false
	}

	if fix.Valid && !sane(fix) {
		return Fix{Sentence: fix.Sentence, Time: fix.Time}, true
	}
	return fix, true
}

func fieldPresent(fields []string, i int) bool {
	return i < len(fields) && strings.TrimSpace(fields[i]) != ""
}

// sane rejects fixes that claim validity but cannot be displayed.
// Out-of-range coordinates never get here: go-nmea fails the parse and
// the line is dropped.
func sane(f Fix) bool {
	for _, v := range []float64{f.Latitude, f.Longitude, f.SpeedMs, f.CourseDeg} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return f.SpeedMs >= 0
}
