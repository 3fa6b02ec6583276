// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry holds the shared vehicle state that telemetry sources
// write and dashboard consumers observe.
package telemetry

import "sync"

// Neutral starting position used before any source reports a fix (Paris).
const (
	DefaultLatitude  = 48.8566
	DefaultLongitude = 2.3522
)

// Alert levels.
const (
	AlertNone     = 0
	AlertWarning  = 1
	AlertCritical = 2
)

// Field names, as reported to Watch observers and used as JSON keys.
const (
	FieldLatitude       = "lat"
	FieldLongitude      = "lon"
	FieldHeading        = "heading_deg"
	FieldSpeedKmh       = "speed_kmh"
	FieldFixValid       = "fix_valid"
	FieldBatteryPercent = "battery_percent"
	FieldAlertLevel     = "alert_level"
	FieldAlertText      = "alert_text"
	FieldReverse        = "reverse"
)

// Snapshot is the single source of truth for current vehicle telemetry.
//
// Exactly one active Source and the command handlers write to it;
// everything else only reads or subscribes.
type Snapshot struct {
	mu       sync.Mutex
	version  uint64
	nextID   int
	watchers []subscriber[string]

	Latitude       *Field[float64]
	Longitude      *Field[float64]
	Heading        *Field[float64]
	SpeedKmh       *Field[float64]
	FixValid       *Field[bool]
	BatteryPercent *Field[int]
	AlertLevel     *Field[int]
	AlertText      *Field[string]
	Reverse        *Field[bool]
}

// NewSnapshot creates a Snapshot with the neutral defaults: starting
// position, zero speed, no fix, full battery, no alert.
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.Latitude = newField(s, FieldLatitude, DefaultLatitude, FloatEqual)
	s.Longitude = newField(s, FieldLongitude, DefaultLongitude, FloatEqual)
	s.Heading = newField(s, FieldHeading, 0.0, FloatEqual)
	s.SpeedKmh = newField(s, FieldSpeedKmh, 0.0, FloatEqual)
	s.FixValid = newField(s, FieldFixValid, false, equalComparable[bool])
	s.BatteryPercent = newField(s, FieldBatteryPercent, 100, equalComparable[int])
	s.AlertLevel = newField(s, FieldAlertLevel, AlertNone, equalComparable[int])
	s.AlertText = newField(s, FieldAlertText, "", equalComparable[string])
	s.Reverse = newField(s, FieldReverse, false, equalComparable[bool])
	return s
}

// Version increases by one on every effective field change.
func (s *Snapshot) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Watch registers fn to be called with the field name after any field
// changes. The returned func removes the observer.
func (s *Snapshot) Watch(fn func(field string)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.watchers = append(s.watchers, subscriber[string]{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w.id == id {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				return
			}
		}
	}
}

func (s *Snapshot) watchersLocked() []subscriber[string] {
	out := make([]subscriber[string], len(s.watchers))
	copy(out, s.watchers)
	return out
}

// State returns a consistent copy of every field.
func (s *Snapshot) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Version:        s.version,
		Latitude:       s.Latitude.value,
		Longitude:      s.Longitude.value,
		HeadingDeg:     s.Heading.value,
		SpeedKmh:       s.SpeedKmh.value,
		FixValid:       s.FixValid.value,
		BatteryPercent: s.BatteryPercent.value,
		AlertLevel:     s.AlertLevel.value,
		AlertText:      s.AlertText.value,
		Reverse:        s.Reverse.value,
	}
}

// SetAlert updates level and text. Text is written first so observers of
// the level see the matching message.
func (s *Snapshot) SetAlert(level int, text string) {
	s.AlertText.Set(text)
	s.AlertLevel.Set(level)
}
