// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/vehicle_telemetry/internal/telemetry"
)

type fakePort struct {
	r      *io.PipeReader
	w      *io.PipeWriter
	closed atomic.Bool
}

func (p *fakePort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *fakePort) Write(b []byte) (int, error) { return len(b), nil }
func (p *fakePort) Close() error {
	p.closed.Store(true)
	return p.r.Close()
}

type fakeOpener struct {
	mu    sync.Mutex
	ports []*fakePort
	opts  []serial.OpenOptions
	err   error
}

func (o *fakeOpener) open(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opts = append(o.opts, opts)
	if o.err != nil {
		return nil, o.err
	}
	r, w := io.Pipe()
	p := &fakePort{r: r, w: w}
	o.ports = append(o.ports, p)
	return p, nil
}

func newTestSource(t *testing.T, snap *telemetry.Snapshot) (*SerialSource, *fakeOpener) {
	t.Helper()
	o := &fakeOpener{}
	s := NewSerialSource(snap, Config{Port: "/dev/ttyTEST0"})
	s.open = o.open
	t.Cleanup(s.Stop)
	return s, o
}

func waitFor(t *testing.T, ch <-chan float64) float64 {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot update")
		return 0
	}
}

func TestSerialSource_OpensAt9600_8N1(t *testing.T) {
	s, o := newTestSource(t, telemetry.NewSnapshot())
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	opts := o.opts[0]
	if opts.PortName != "/dev/ttyTEST0" || opts.BaudRate != 9600 || opts.DataBits != 8 ||
		opts.StopBits != 1 || opts.ParityMode != serial.PARITY_NONE {
		t.Fatalf("unexpected serial options: %+v", opts)
	}
}

func TestSerialSource_DecodesFrames(t *testing.T) {
	snap := telemetry.NewSnapshot()
	s, o := newTestSource(t, snap)

	lat := make(chan float64, 8)
	snap.Latitude.Subscribe(func(v float64) { lat <- v })

	if err := s.StartPort("/dev/ttyTEST0"); err != nil {
		t.Fatalf("start: %v", err)
	}
	w := o.ports[0].w
	// Noise and a partial sentence first; both must be ignored.
	if _, err := w.Write([]byte("\xff\x00junk\r\n$GPRMC,1235")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := w.Write([]byte("\r\n" + nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W") + "\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := waitFor(t, lat)
	if got < 48.11 || got > 48.12 {
		t.Fatalf("unexpected latitude %f", got)
	}
	if !snap.FixValid.Get() {
		t.Fatalf("expected fix valid after RMC")
	}
}

func TestSerialSource_RestartIsIdempotent(t *testing.T) {
	snap := telemetry.NewSnapshot()
	s, o := newTestSource(t, snap)

	var writes atomic.Int32
	lat := make(chan float64, 8)
	snap.Latitude.Subscribe(func(v float64) {
		writes.Add(1)
		lat <- v
	})

	if err := s.Start(); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second start: %v", err)
	}

	if len(o.ports) != 2 {
		t.Fatalf("expected two opens, got %d", len(o.ports))
	}
	if !o.ports[0].closed.Load() {
		t.Fatalf("first port was not closed on restart")
	}
	if o.ports[1].closed.Load() {
		t.Fatalf("second port should be open")
	}
	if _, err := o.ports[0].w.Write([]byte("x")); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected first session reader to be gone, got %v", err)
	}

	line := nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W") + "\r\n"
	if _, err := o.ports[1].w.Write([]byte(line)); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, lat)

	s.Stop()
	if n := writes.Load(); n != 1 {
		t.Fatalf("expected exactly one latitude write per frame, got %d", n)
	}
}

func TestSerialSource_StopIsSafeAndFinal(t *testing.T) {
	snap := telemetry.NewSnapshot()
	s, o := newTestSource(t, snap)

	s.Stop() // not started

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.Running() {
		t.Fatalf("expected running")
	}
	s.Stop()
	s.Stop()

	if s.Running() {
		t.Fatalf("expected stopped")
	}
	if !o.ports[0].closed.Load() {
		t.Fatalf("port not closed by Stop")
	}

	v := snap.Version()
	line := nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W") + "\r\n"
	if _, err := o.ports[0].w.Write([]byte(line)); err == nil {
		t.Fatalf("expected write after stop to fail")
	}
	if snap.Version() != v {
		t.Fatalf("snapshot written after Stop returned")
	}
}

func TestSerialSource_OpenFailureClearsFix(t *testing.T) {
	snap := telemetry.NewSnapshot()
	snap.FixValid.Set(true)
	s, o := newTestSource(t, snap)
	o.err = errors.New("no such device")

	err := s.StartPort("/dev/missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, o.err) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if snap.FixValid.Get() {
		t.Fatalf("expected fix invalid after open failure")
	}
	if s.Running() {
		t.Fatalf("no session should be active")
	}
}

func TestSerialSource_ReadErrorClearsFix(t *testing.T) {
	snap := telemetry.NewSnapshot()
	s, o := newTestSource(t, snap)

	fix := make(chan bool, 4)
	snap.FixValid.Subscribe(func(v bool) { fix <- v })

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	o.ports[0].w.Write([]byte(nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W") + "\r\n"))
	o.ports[0].w.CloseWithError(errors.New("device unplugged"))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-fix:
			if !v {
				waitNotRunning(t, s)
				return
			}
		case <-deadline:
			t.Fatalf("expected fix to be cleared after read error")
		}
	}
}

func waitNotRunning(t *testing.T, s *SerialSource) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Running() {
		if time.Now().After(deadline) {
			t.Fatalf("source still running after read error")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSerialSource_StopClearsFix(t *testing.T) {
	snap := telemetry.NewSnapshot()
	s, o := newTestSource(t, snap)

	lat := make(chan float64, 8)
	snap.Latitude.Subscribe(func(v float64) { lat <- v })

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	line := nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W") + "\r\n"
	if _, err := o.ports[0].w.Write([]byte(line)); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, lat)
	if !snap.FixValid.Get() {
		t.Fatalf("expected fix valid after RMC")
	}

	s.Stop()
	if snap.FixValid.Get() {
		t.Fatalf("fix still valid after Stop")
	}
	if got := snap.Latitude.Get(); got < 48.11 || got > 48.12 {
		t.Fatalf("Stop must keep the last position, got %f", got)
	}

	fix := make(chan bool, 8)
	snap.FixValid.Subscribe(func(v bool) { fix <- v })

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := o.ports[1].w.Write([]byte(line)); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case v := <-fix:
		if !v {
			t.Fatalf("expected fix to become valid")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for fix")
	}

	// Restarting a running source reopens the port; nothing decoded yet.
	if err := s.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if snap.FixValid.Get() {
		t.Fatalf("fix valid on a reopened port before any frame")
	}
}
