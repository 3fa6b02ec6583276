package main

import (
	"log"

	"github.com/relabs-tech/vehicle_telemetry/internal/app"
	"github.com/relabs-tech/vehicle_telemetry/internal/config"
)

func main() {
	log.Println("starting vehicle-telemetry console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal("telemetry_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
