// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/relabs-tech/vehicle_telemetry/internal/route"
	"github.com/relabs-tech/vehicle_telemetry/internal/telemetry"
)

// Command is a vehicle-side update that does not come from the GPS:
// alert banner, auxiliary battery and gear. Absent fields are left alone.
type Command struct {
	AlertLevel     *int    `json:"alert_level,omitempty"`
	AlertText      *string `json:"alert_text,omitempty"`
	BatteryPercent *int    `json:"battery_percent,omitempty"`
	Reverse        *bool   `json:"reverse,omitempty"`
}

var errNoRouteLoader = errors.New("active telemetry source does not accept routes")

// ApplyCommandJSON validates a JSON command and writes it to snap.
// Nothing is written if any field is out of range.
func ApplyCommandJSON(snap *telemetry.Snapshot, payload []byte) error {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decode command: %w", err)
	}
	if cmd.AlertLevel != nil && (*cmd.AlertLevel < telemetry.AlertNone || *cmd.AlertLevel > telemetry.AlertCritical) {
		return fmt.Errorf("alert_level must be 0-2, got %d", *cmd.AlertLevel)
	}
	if cmd.BatteryPercent != nil && (*cmd.BatteryPercent < 0 || *cmd.BatteryPercent > 100) {
		return fmt.Errorf("battery_percent must be 0-100, got %d", *cmd.BatteryPercent)
	}

	// Text before level, as in Snapshot.SetAlert.
	switch {
	case cmd.AlertText != nil:
		snap.AlertText.Set(*cmd.AlertText)
	case cmd.AlertLevel != nil && *cmd.AlertLevel == telemetry.AlertNone:
		snap.AlertText.Set("")
	}
	if cmd.AlertLevel != nil {
		snap.AlertLevel.Set(*cmd.AlertLevel)
	}
	if cmd.BatteryPercent != nil {
		snap.BatteryPercent.Set(*cmd.BatteryPercent)
	}
	if cmd.Reverse != nil {
		snap.Reverse.Set(*cmd.Reverse)
	}
	return nil
}

// LoadRouteJSON decodes a route reload request and hands it to loader.
func LoadRouteJSON(loader RouteLoader, payload []byte) error {
	if loader == nil {
		return errNoRouteLoader
	}
	pts, err := route.DecodeWaypoints(payload)
	if err != nil {
		return err
	}
	return loader.LoadRoute(pts)
}
