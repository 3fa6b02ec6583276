// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"

	"github.com/relabs-tech/vehicle_telemetry/internal/config"
	"github.com/relabs-tech/vehicle_telemetry/internal/gps"
	"github.com/relabs-tech/vehicle_telemetry/internal/route"
	"github.com/relabs-tech/vehicle_telemetry/internal/telemetry"
)

// RouteLoader is implemented by sources that accept route reload requests.
type RouteLoader interface {
	LoadRoute(pts []route.Waypoint) error
}

// NewSource builds the telemetry source selected by cfg.TelemetrySource.
func NewSource(cfg *config.Config, snap *telemetry.Snapshot) (telemetry.Source, error) {
	switch cfg.TelemetrySource {
	case config.SourceSerial, "":
		return gps.NewSerialSource(snap, gps.Config{
			Port:               cfg.GPSSerialPort,
			HeadingMinSpeedKmh: cfg.HeadingMinSpeedKmh,
		}), nil

	case config.SourceSim:
		r := route.DefaultRoute()
		if cfg.RouteFile != "" {
			loaded, err := route.LoadFile(cfg.RouteFile)
			if err != nil {
				return nil, err
			}
			r = loaded
		}
		log.Printf("sim: using route %q", r.Name)
		sim, err := route.NewSimulator(snap, r.Waypoints, route.SimConfig{
			Tick:     cfg.SimTick(),
			SpeedKmh: cfg.SimSpeedKmh,
		})
		if err != nil {
			return nil, err
		}
		return sim, nil

	default:
		return nil, fmt.Errorf("unknown telemetry source %q", cfg.TelemetrySource)
	}
}
