// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/vehicle_telemetry/internal/app"
	"github.com/relabs-tech/vehicle_telemetry/internal/config"
)

func main() {
	configPath := flag.String("config", "./telemetry_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting vehicle-telemetry dashboard (source → snapshot → MQTT/web)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunDashboard(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
