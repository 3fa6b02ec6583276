// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import "math"

// floatEpsilon is the relative tolerance used when comparing float fields.
// Values closer than this are treated as equal and do not notify.
const floatEpsilon = 1e-9

// FloatEqual reports whether a and b are equal within floatEpsilon,
// scaled by their magnitude (absolute near zero).
func FloatEqual(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= floatEpsilon*scale
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Field is one observable value inside a Snapshot.
//
// All fields of a Snapshot share the snapshot lock, so a Set on one field
// and a State() read never interleave.
type Field[T any] struct {
	snap  *Snapshot
	name  string
	value T
	equal func(a, b T) bool
	subs  []subscriber[T]
}

func newField[T any](s *Snapshot, name string, initial T, equal func(a, b T) bool) *Field[T] {
	return &Field[T]{snap: s, name: name, value: initial, equal: equal}
}

// Name returns the field name used in Watch notifications and JSON.
func (f *Field[T]) Name() string {
	return f.name
}

// Get returns the last stored value.
func (f *Field[T]) Get() T {
	f.snap.mu.Lock()
	defer f.snap.mu.Unlock()
	return f.value
}

// Set stores v and notifies subscribers. It is a no-op, and returns false,
// when v equals the stored value.
func (f *Field[T]) Set(v T) bool {
	f.snap.mu.Lock()
	if f.equal(f.value, v) {
		f.snap.mu.Unlock()
		return false
	}
	f.value = v
	f.snap.version++
	subs := make([]subscriber[T], len(f.subs))
	copy(subs, f.subs)
	watchers := f.snap.watchersLocked()
	f.snap.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
	for _, w := range watchers {
		w.fn(f.name)
	}
	return true
}

// Subscribe registers fn to be called with the new value after every
// effective change. The returned func removes the subscription.
func (f *Field[T]) Subscribe(fn func(T)) (cancel func()) {
	f.snap.mu.Lock()
	defer f.snap.mu.Unlock()
	f.snap.nextID++
	id := f.snap.nextID
	f.subs = append(f.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		f.snap.mu.Lock()
		defer f.snap.mu.Unlock()
		for i, s := range f.subs {
			if s.id == id {
				f.subs = append(f.subs[:i], f.subs[i+1:]...)
				return
			}
		}
	}
}

func equalComparable[T comparable](a, b T) bool {
	return a == b
}
