// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/vehicle_telemetry/internal/config"
	"github.com/relabs-tech/vehicle_telemetry/internal/telemetry"
)

// RunGPSProducer reads the serial GPS and publishes telemetry to MQTT,
// without the web server. Used on boards where the dashboard UI runs
// elsewhere.
func RunGPSProducer() error {
	cfg := *config.Get()
	cfg.TelemetrySource = config.SourceSerial
	return runProducer(&cfg, "gps producer")
}

// RunSimProducer drives the route simulator and publishes telemetry to
// MQTT. Route reloads arrive on the route topic.
func RunSimProducer() error {
	cfg := *config.Get()
	cfg.TelemetrySource = config.SourceSim
	return runProducer(&cfg, "sim producer")
}

func runProducer(cfg *config.Config, name string) error {
	snap := telemetry.NewSnapshot()

	src, err := NewSource(cfg, snap)
	if err != nil {
		return err
	}
	loader, _ := src.(RouteLoader)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDashboard + "-producer")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("%s: connected to MQTT broker at %s", name, cfg.MQTTBroker)
	defer client.Disconnect(250)

	if err := SubscribeInputs(client, snap, loader, cfg.TopicRoute, cfg.TopicCommand); err != nil {
		return err
	}

	if err := src.Start(); err != nil {
		if cfg.GPSRetryInterval == 0 {
			return err
		}
		log.Printf("%s: %v, retrying every %ds", name, err, cfg.GPSRetryInterval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		src.Stop()
	}()

	if r, ok := src.(restartable); ok && cfg.GPSRetryInterval > 0 {
		go superviseSource(ctx, r, time.Duration(cfg.GPSRetryInterval)*time.Second)
	}
	go NewMirror(client, snap, cfg.TopicTelemetry).Run(ctx, cfg.Publish())
	log.Printf("%s: publishing to %s every %v", name, cfg.TopicTelemetry, cfg.Publish())

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Printf("%s: shutting down", name)
	return nil
}
