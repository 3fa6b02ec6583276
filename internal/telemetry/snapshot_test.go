// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"math"
	"testing"
)

func TestNewSnapshot_Defaults(t *testing.T) {
	s := NewSnapshot()
	st := s.State()

	if st.Latitude != DefaultLatitude || st.Longitude != DefaultLongitude {
		t.Fatalf("unexpected default position %f,%f", st.Latitude, st.Longitude)
	}
	if st.FixValid {
		t.Fatalf("expected no fix before a source attaches")
	}
	if st.SpeedKmh != 0 {
		t.Fatalf("expected zero speed, got %f", st.SpeedKmh)
	}
	if st.BatteryPercent != 100 || st.AlertLevel != AlertNone || st.AlertText != "" {
		t.Fatalf("unexpected defaults: %+v", st)
	}
	if st.Version != 0 {
		t.Fatalf("expected version 0, got %d", st.Version)
	}
}

func TestField_SetSameValueDoesNotNotify(t *testing.T) {
	s := NewSnapshot()
	notified := false
	s.SpeedKmh.Subscribe(func(float64) { notified = true })

	if !s.SpeedKmh.Set(42.5) {
		t.Fatalf("expected first set to change the value")
	}
	if !notified {
		t.Fatalf("expected notification on change")
	}

	notified = false
	if s.SpeedKmh.Set(42.5) {
		t.Fatalf("expected second set to be a no-op")
	}
	if notified {
		t.Fatalf("expected no notification for an equal value")
	}
}

func TestField_FloatNoiseIsSuppressed(t *testing.T) {
	s := NewSnapshot()
	s.Latitude.Set(48.123456789)

	calls := 0
	s.Latitude.Subscribe(func(float64) { calls++ })

	s.Latitude.Set(48.123456789 + 1e-12)
	if calls != 0 {
		t.Fatalf("expected float noise to be suppressed, got %d calls", calls)
	}
	s.Latitude.Set(48.1235)
	if calls != 1 {
		t.Fatalf("expected one call for a real change, got %d", calls)
	}
}

func TestField_NoopDoesNotBumpVersion(t *testing.T) {
	s := NewSnapshot()
	s.BatteryPercent.Set(80)
	v := s.Version()
	s.BatteryPercent.Set(80)
	s.AlertText.Set("")
	if s.Version() != v {
		t.Fatalf("version moved on no-op writes: %d -> %d", v, s.Version())
	}
	s.FixValid.Set(true)
	if s.Version() != v+1 {
		t.Fatalf("expected version %d, got %d", v+1, s.Version())
	}
}

func TestField_MultipleSubscribersAndCancel(t *testing.T) {
	s := NewSnapshot()
	var a, b []float64
	cancelA := s.Heading.Subscribe(func(v float64) { a = append(a, v) })
	s.Heading.Subscribe(func(v float64) { b = append(b, v) })

	s.Heading.Set(90)
	cancelA()
	s.Heading.Set(180)

	if len(a) != 1 || a[0] != 90 {
		t.Fatalf("unexpected values for cancelled subscriber: %v", a)
	}
	if len(b) != 2 || b[1] != 180 {
		t.Fatalf("unexpected values for live subscriber: %v", b)
	}
}

func TestSnapshot_WatchReportsFieldNames(t *testing.T) {
	s := NewSnapshot()
	var names []string
	cancel := s.Watch(func(field string) { names = append(names, field) })

	s.FixValid.Set(true)
	s.SpeedKmh.Set(12)
	s.SpeedKmh.Set(12)
	s.SetAlert(AlertWarning, "low battery")

	want := []string{FieldFixValid, FieldSpeedKmh, FieldAlertText, FieldAlertLevel}
	if len(names) != len(want) {
		t.Fatalf("got %v want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v want %v", names, want)
		}
	}

	cancel()
	s.Reverse.Set(true)
	if len(names) != len(want) {
		t.Fatalf("watcher still called after cancel: %v", names)
	}
}

func TestSnapshot_SubscriberCanReadSnapshot(t *testing.T) {
	s := NewSnapshot()
	var seen State
	s.Latitude.Subscribe(func(float64) { seen = s.State() })

	s.Latitude.Set(10)
	if seen.Latitude != 10 {
		t.Fatalf("subscriber saw stale state: %+v", seen)
	}
}

func TestFloatEqual(t *testing.T) {
	cases := []struct {
		a, b float64
		want bool
	}{
		{0, 0, true},
		{0, 1e-12, true},
		{0, 1e-6, false},
		{50, 50 + 1e-10, true},
		{359.9, 0.1, false},
		{math.Inf(1), math.Inf(1), true},
	}
	for _, c := range cases {
		if got := FloatEqual(c.a, c.b); got != c.want {
			t.Fatalf("FloatEqual(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
