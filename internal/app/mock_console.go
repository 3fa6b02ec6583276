// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	"github.com/relabs-tech/vehicle_telemetry/internal/route"
	"github.com/relabs-tech/vehicle_telemetry/internal/telemetry"
)

// RunMockConsole drives the demo route locally and prints the telemetry
// line every 100 ms. Needs neither a broker nor a receiver.
func RunMockConsole() error {
	snap := telemetry.NewSnapshot()
	sim, err := route.NewSimulator(snap, route.DefaultRoute().Waypoints, route.SimConfig{})
	if err != nil {
		return err
	}
	if err := sim.Start(); err != nil {
		return err
	}
	defer sim.Stop()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		fmt.Println(formatConsoleLine(snap.State()))
	}
	return nil
}
