// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package route holds waypoint routes and the simulator that drives a
// Snapshot along them when no GPS receiver is fitted.
package route

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrTooFewWaypoints is returned for routes that cannot form a loop.
var ErrTooFewWaypoints = errors.New("route needs at least 2 waypoints")

// Waypoint is one point of a route in decimal degrees.
type Waypoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Route is a named closed loop of waypoints.
type Route struct {
	Name      string     `yaml:"name"`
	Waypoints []Waypoint `yaml:"waypoints"`
}

// DefaultRoute is a short loop around Troyes city centre used for demos.
func DefaultRoute() Route {
	return Route{
		Name: "troyes-demo",
		Waypoints: []Waypoint{
			{Lat: 48.2715, Lon: 4.0645},
			{Lat: 48.2740, Lon: 4.0700},
			{Lat: 48.2700, Lon: 4.0760},
			{Lat: 48.2680, Lon: 4.0680},
		},
	}
}

// LoadFile reads a YAML route file:
//
//	name: my-loop
//	waypoints:
//	  - {lat: 48.27, lon: 4.06}
//	  - {lat: 48.28, lon: 4.07}
func LoadFile(path string) (Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Route{}, fmt.Errorf("read route file: %w", err)
	}
	var r Route
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Route{}, fmt.Errorf("parse route file %s: %w", path, err)
	}
	if err := Validate(r.Waypoints); err != nil {
		return Route{}, fmt.Errorf("route file %s: %w", path, err)
	}
	return r, nil
}

// DecodeWaypoints parses a route reload request: a JSON array of
// {"lat": .., "lon": ..} objects.
func DecodeWaypoints(data []byte) ([]Waypoint, error) {
	var pts []Waypoint
	if err := json.Unmarshal(data, &pts); err != nil {
		return nil, fmt.Errorf("decode waypoints: %w", err)
	}
	if err := Validate(pts); err != nil {
		return nil, err
	}
	return pts, nil
}

// Validate checks the point count and WGS84 ranges.
func Validate(pts []Waypoint) error {
	if len(pts) < 2 {
		return ErrTooFewWaypoints
	}
	for i, p := range pts {
		if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			return fmt.Errorf("waypoint %d out of range: %v,%v", i, p.Lat, p.Lon)
		}
	}
	return nil
}

// LoopLength returns the length of the closed loop in meters.
func LoopLength(pts []Waypoint) float64 {
	total := 0.0
	for i := range pts {
		total += Distance(pts[i], pts[(i+1)%len(pts)])
	}
	return total
}
