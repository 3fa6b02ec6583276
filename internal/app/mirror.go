// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/vehicle_telemetry/internal/telemetry"
)

// publisher is the part of mqtt.Client the mirror needs to publish.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Mirror copies the Snapshot to a retained MQTT topic so out-of-process
// consumers (console, display) can follow it, and feeds route and command
// messages back into the dashboard.
type Mirror struct {
	client publisher
	snap   *telemetry.Snapshot
	topic  string

	published   bool
	lastVersion uint64
}

// NewMirror creates a mirror publishing snap to topic.
func NewMirror(client publisher, snap *telemetry.Snapshot, topic string) *Mirror {
	return &Mirror{client: client, snap: snap, topic: topic}
}

// PublishIfChanged publishes the current state when the snapshot version
// moved since the last publish. It reports whether a message was sent.
func (m *Mirror) PublishIfChanged() (bool, error) {
	st := m.snap.State()
	if m.published && st.Version == m.lastVersion {
		return false, nil
	}

	payload, err := json.Marshal(st)
	if err != nil {
		return false, fmt.Errorf("marshal telemetry: %w", err)
	}

	token := m.client.Publish(m.topic, 0, true, payload)
	token.Wait()
	if token.Error() != nil {
		return false, fmt.Errorf("publish %s: %w", m.topic, token.Error())
	}

	m.published = true
	m.lastVersion = st.Version
	return true, nil
}

// Run publishes on every interval tick until ctx is done. Coalescing to
// the tick keeps a 20 Hz source from flooding the broker.
func (m *Mirror) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.PublishIfChanged(); err != nil {
				log.Printf("mirror: %v", err)
			}
		}
	}
}

// SubscribeInputs wires the route and command topics to the snapshot.
// loader may be nil when the active source takes no routes.
func SubscribeInputs(client mqtt.Client, snap *telemetry.Snapshot, loader RouteLoader, routeTopic, commandTopic string) error {
	if routeTopic != "" {
		token := client.Subscribe(routeTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			if err := LoadRouteJSON(loader, msg.Payload()); err != nil {
				log.Printf("mirror: route reload rejected: %v", err)
			}
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("mirror: subscribed to %s", routeTopic)
	}

	if commandTopic != "" {
		token := client.Subscribe(commandTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			if err := ApplyCommandJSON(snap, msg.Payload()); err != nil {
				log.Printf("mirror: command rejected: %v", err)
			}
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("mirror: subscribed to %s", commandTopic)
	}
	return nil
}
