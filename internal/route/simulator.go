// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package route

import (
	"log"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/relabs-tech/vehicle_telemetry/internal/telemetry"
)

// Tick intervals seen on the dashboard hardware. 50 ms gives smooth map
// motion; 100 ms halves the update load on slower boards.
const (
	DefaultTick     = 50 * time.Millisecond
	SlowTick        = 100 * time.Millisecond
	DefaultSpeedKmh = 50.0
)

// SimConfig controls a Simulator.
type SimConfig struct {
	Tick     time.Duration
	SpeedKmh float64
}

// Simulator moves a synthetic vehicle around a closed waypoint loop at a
// fixed speed and writes it into a Snapshot every tick.
type Simulator struct {
	snap *telemetry.Snapshot
	cfg  SimConfig

	mu      sync.Mutex
	route   []Waypoint
	pos     Waypoint
	next    int
	bearing float64
	reset   bool // move to route[0] on the next tick

	runMu sync.Mutex
	stop  chan struct{}
	done  chan struct{}
}

// NewSimulator creates a stopped simulator on pts.
func NewSimulator(snap *telemetry.Snapshot, pts []Waypoint, cfg SimConfig) (*Simulator, error) {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.SpeedKmh <= 0 {
		cfg.SpeedKmh = DefaultSpeedKmh
	}
	s := &Simulator{snap: snap, cfg: cfg}
	if err := s.LoadRoute(pts); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadRoute replaces the active route. Progress restarts at the first
// waypoint of the new route on the next tick. An invalid route is rejected
// and the current one kept.
func (s *Simulator) LoadRoute(pts []Waypoint) error {
	if err := Validate(pts); err != nil {
		return err
	}
	cp := make([]Waypoint, len(pts))
	copy(cp, pts)

	s.mu.Lock()
	s.route = cp
	s.reset = true
	s.mu.Unlock()

	log.Printf("sim: route loaded, %d waypoints, loop %s",
		len(cp), humanize.SIWithDigits(LoopLength(cp), 2, "m"))
	return nil
}

// Route returns a copy of the active waypoints.
func (s *Simulator) Route() []Waypoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Waypoint, len(s.route))
	copy(out, s.route)
	return out
}

// Progress returns the exact simulated position and the index of the
// waypoint being driven to.
func (s *Simulator) Progress() (pos Waypoint, next int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, s.next
}

// StepDistance is the distance covered per tick, in meters.
func (s *Simulator) StepDistance() float64 {
	return s.cfg.SpeedKmh / 3.6 * s.cfg.Tick.Seconds()
}

// Step advances the simulation by one tick and publishes the result.
func (s *Simulator) Step() {
	s.mu.Lock()
	n := len(s.route)
	if s.reset {
		s.reset = false
		s.pos = s.route[0]
		s.next = 1 % n
		s.bearing = Bearing(s.pos, s.route[s.next])
	} else {
		target := s.route[s.next]
		step := s.StepDistance()
		if Distance(s.pos, target) <= step {
			s.pos = target
			s.next = (s.next + 1) % n
			s.bearing = Bearing(s.pos, s.route[s.next])
		} else {
			s.bearing = Bearing(s.pos, target)
			s.pos = Destination(s.pos, s.bearing, step)
		}
	}
	pos, heading := s.pos, s.bearing
	s.mu.Unlock()

	s.snap.FixValid.Set(true)
	s.snap.Latitude.Set(pos.Lat)
	s.snap.Longitude.Set(pos.Lon)
	s.snap.SpeedKmh.Set(s.cfg.SpeedKmh)
	s.snap.Heading.Set(heading)
}

// Start launches the tick loop. Calling Start on a running simulator
// restarts the ticker without touching progress.
func (s *Simulator) Start() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.stopLocked()

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)

	log.Printf("sim: started, tick %v, speed %.0f km/h", s.cfg.Tick, s.cfg.SpeedKmh)
	return nil
}

// Stop halts the tick loop. No Snapshot writes happen after it returns.
func (s *Simulator) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.stopLocked()
}

func (s *Simulator) stopLocked() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
	log.Println("sim: stopped")
}

func (s *Simulator) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Step()
		}
	}
}
