// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/vehicle_telemetry/internal/config"
	"github.com/relabs-tech/vehicle_telemetry/internal/telemetry"
	"github.com/relabs-tech/vehicle_telemetry/internal/tracklog"
)

// restartable is a source whose session can end on its own.
type restartable interface {
	Start() error
	Running() bool
}

// superviseSource restarts src every interval while it is not running.
func superviseSource(ctx context.Context, src restartable, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if src.Running() {
				continue
			}
			// Shutdown may race a pending tick; never reopen after cancel.
			if ctx.Err() != nil {
				return
			}
			if err := src.Start(); err == nil {
				log.Println("dashboard: telemetry source reopened")
			}
		}
	}
}

// recordTrack samples snap into rec every interval until ctx is done.
func recordTrack(ctx context.Context, rec *tracklog.Recorder, snap *telemetry.Snapshot, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := rec.Record(ctx, snap.State(), now); err != nil {
				log.Printf("dashboard: %v", err)
			}
		}
	}
}

// RunDashboard owns the Snapshot: it runs the configured telemetry source,
// mirrors state to MQTT, serves the web API and records the track.
func RunDashboard() error {
	cfg := config.Get()
	snap := telemetry.NewSnapshot()

	src, err := NewSource(cfg, snap)
	if err != nil {
		return fmt.Errorf("telemetry source: %w", err)
	}
	loader, _ := src.(RouteLoader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A failed open leaves FixValid false; the dashboard keeps running.
	if err := src.Start(); err != nil {
		log.Printf("dashboard: %v", err)
	}
	defer func() {
		cancel()
		src.Stop()
	}()

	if r, ok := src.(restartable); ok && cfg.GPSRetryInterval > 0 {
		go superviseSource(ctx, r, time.Duration(cfg.GPSRetryInterval)*time.Second)
	}

	// ---- MQTT mirror ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDashboard)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("dashboard: connected to MQTT broker at %s", cfg.MQTTBroker)
	defer client.Disconnect(250)

	if err := SubscribeInputs(client, snap, loader, cfg.TopicRoute, cfg.TopicCommand); err != nil {
		return fmt.Errorf("subscribe inputs: %w", err)
	}
	go NewMirror(client, snap, cfg.TopicTelemetry).Run(ctx, cfg.Publish())

	// ---- Track log ----
	var track *tracklog.Recorder
	if cfg.TrackLogPath != "" {
		interval := time.Duration(cfg.TrackLogInterval) * time.Millisecond
		track, err = tracklog.Open(cfg.TrackLogPath, interval)
		if err != nil {
			return err
		}
		recDone := make(chan struct{})
		defer func() {
			cancel()
			<-recDone
			if n, err := track.Count(context.Background()); err == nil {
				log.Printf("dashboard: track log holds %s points", humanize.Comma(n))
			}
			track.Close()
		}()
		log.Printf("dashboard: recording track to %s", cfg.TrackLogPath)
		go func() {
			defer close(recDone)
			recordTrack(ctx, track, snap, interval)
		}()
	}

	// ---- Web ----
	srv := RunWeb(fmt.Sprintf(":%d", cfg.WebServerPort), snap, loader, track)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("dashboard: shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("dashboard: web shutdown: %v", err)
	}
	return nil
}
