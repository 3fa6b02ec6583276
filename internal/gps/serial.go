// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/vehicle_telemetry/internal/telemetry"
)

// NMEA-0183 line settings. The receiver dictates these; they are not
// configurable.
const (
	BaudRate = 9600
	DataBits = 8
	StopBits = 1
)

// DefaultPort is the UART the GPS hat is wired to.
const DefaultPort = "/dev/serial0"

const (
	// readTimeoutMs bounds how long a Read blocks with no data, so the
	// reader notices Stop even on a silent line.
	readTimeoutMs = 100
	readIdle      = 10 * time.Millisecond
)

// Config controls a SerialSource.
type Config struct {
	Port               string  // serial device, DefaultPort when empty
	HeadingMinSpeedKmh float64 // heading gate, DefaultHeadingMinSpeedKmh when zero
}

type openFunc func(serial.OpenOptions) (io.ReadWriteCloser, error)

// SerialSource reads NMEA from a serial GPS receiver and writes each
// decoded fix into a Snapshot.
//
// A SerialSource owns at most one open port at a time. Callers must Stop it
// on shutdown to release the device.
type SerialSource struct {
	snap *telemetry.Snapshot
	cfg  Config
	open openFunc

	mu   sync.Mutex // serializes StartPort/Stop
	sess *session
}

// session is one open port plus its reader goroutine.
type session struct {
	port io.ReadWriteCloser
	name string

	mu      sync.Mutex // held while a fix is applied
	stopped bool
	done    chan struct{}
}

// NewSerialSource creates a stopped source writing to snap.
func NewSerialSource(snap *telemetry.Snapshot, cfg Config) *SerialSource {
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.HeadingMinSpeedKmh == 0 {
		cfg.HeadingMinSpeedKmh = DefaultHeadingMinSpeedKmh
	}
	return &SerialSource{snap: snap, cfg: cfg, open: openPort}
}

func openPort(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
	return serial.Open(opts)
}

// Start opens the configured port.
func (s *SerialSource) Start() error {
	return s.StartPort(s.cfg.Port)
}

// StartPort stops any running session and opens name at 9600 8N1.
// FixValid stays false until the new session decodes a valid frame.
//
// If the port cannot be opened FixValid is cleared, the failure is logged
// and returned; nothing is retried.
func (s *SerialSource) StartPort(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	opts := serial.OpenOptions{
		PortName:              name,
		BaudRate:              BaudRate,
		DataBits:              DataBits,
		StopBits:              StopBits,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: readTimeoutMs,
	}

	port, err := s.open(opts)
	if err != nil {
		s.snap.FixValid.Set(false)
		log.Printf("gps: cannot open serial port %s: %v", name, err)
		return fmt.Errorf("open gps serial port %s: %w", name, err)
	}

	sess := &session{port: port, name: name, done: make(chan struct{})}
	s.sess = sess
	go s.run(sess)

	log.Printf("gps: serial port opened on %s at %d baud", name, BaudRate)
	return nil
}

// Stop ends the decode session, closes the port and clears FixValid. No
// Snapshot writes happen after Stop returns. Stop is a no-op when already
// stopped and must not be called from a Snapshot subscriber.
func (s *SerialSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Running reports whether a port is open and its reader is still alive.
// It turns false after a read error ends the session.
func (s *SerialSource) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return false
	}
	select {
	case <-s.sess.done:
		return false
	default:
		return true
	}
}

func (s *SerialSource) stopLocked() {
	sess := s.sess
	if sess == nil {
		return
	}
	s.sess = nil

	// Decoder first, then the port, so no callback runs against a
	// closed device.
	sess.mu.Lock()
	sess.stopped = true
	sess.mu.Unlock()

	if err := sess.port.Close(); err != nil {
		log.Printf("gps: close %s: %v", sess.name, err)
	}
	<-sess.done
	s.snap.FixValid.Set(false)
	log.Printf("gps: serial port %s closed", sess.name)
}

func (s *SerialSource) run(sess *session) {
	defer close(sess.done)

	lines := newLineSplitter(maxLineLen)
	buf := make([]byte, 256)

	for {
		n, err := sess.port.Read(buf)
		if n > 0 {
			lines.Feed(buf[:n], func(line string) {
				fix, ok := DecodeLine(line)
				if !ok {
					return
				}
				sess.mu.Lock()
				defer sess.mu.Unlock()
				if sess.stopped {
					return
				}
				Apply(s.snap, fix, s.cfg.HeadingMinSpeedKmh)
			})
		}

		if sess.isStopped() {
			return
		}
		if err == nil {
			continue
		}
		// A timed-out read on a tty surfaces as EOF.
		if errors.Is(err, io.EOF) {
			if n == 0 {
				time.Sleep(readIdle)
			}
			continue
		}

		sess.mu.Lock()
		if !sess.stopped {
			log.Printf("gps: read error on %s: %v", sess.name, err)
			s.snap.FixValid.Set(false)
		}
		sess.mu.Unlock()
		return
	}
}

func (sess *session) isStopped() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.stopped
}
