// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

// State is a point-in-time copy of a Snapshot, suitable for JSON and MQTT.
type State struct {
	Version        uint64  `json:"version"`
	Latitude       float64 `json:"lat"`             // decimal degrees
	Longitude      float64 `json:"lon"`             // decimal degrees
	HeadingDeg     float64 `json:"heading_deg"`     // 0 = north
	SpeedKmh       float64 `json:"speed_kmh"`       // ground speed
	FixValid       bool    `json:"fix_valid"`       // position is trustworthy
	BatteryPercent int     `json:"battery_percent"` // auxiliary battery
	AlertLevel     int     `json:"alert_level"`     // 0 none, 1 warning, 2 critical
	AlertText      string  `json:"alert_text"`
	Reverse        bool    `json:"reverse"`
}

// Source is anything that feeds a Snapshot: the serial GPS receiver or the
// route simulator. Exactly one is started at a time.
type Source interface {
	Start() error
	Stop()
}
