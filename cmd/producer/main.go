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

	log.Println("starting vehicle-telemetry MQTT producer (simulated route)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunSimProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
