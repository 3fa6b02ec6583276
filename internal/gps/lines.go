// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import "bytes"

// lineSplitter reassembles newline-terminated sentences from arbitrary
// serial read chunks. A partial line longer than max is dropped.
type lineSplitter struct {
	buf []byte
	max int
}

func newLineSplitter(max int) *lineSplitter {
	return &lineSplitter{buf: make([]byte, 0, max), max: max}
}

// Feed appends chunk and calls emit for every complete line, without the
// trailing "\r\n".
func (l *lineSplitter) Feed(chunk []byte, emit func(line string)) {
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			l.buf = append(l.buf, chunk...)
			if len(l.buf) > l.max {
				l.buf = l.buf[:0]
			}
			return
		}

		l.buf = append(l.buf, chunk[:i]...)
		chunk = chunk[i+1:]
		if len(l.buf) <= l.max {
			emit(string(bytes.TrimRight(l.buf, "\r")))
		}
		l.buf = l.buf[:0]
	}
}
