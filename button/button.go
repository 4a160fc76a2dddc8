// Push-button input
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package button handles the debounced user push-button. The button pin is
// routed to a falling-edge EXTI line, contact bounce retriggers the
// interrupt and is suppressed by a tick-based window.
package button

// Line is the EXTI line latched by the button edge.
type Line interface {
	IsPending() bool
	Unpend()
}

// DebounceTicks is the suppression window after an accepted press, in
// scheduler ticks (300 ms).
const DebounceTicks = 3

// Button is a debounced edge-triggered input.
type Button struct {
	line Line

	lastEvent uint32
}

// New returns a button over the EXTI line.
func New(line Line) *Button {
	return &Button{line: line}
}

// WasToggled consumes the pending edge, reporting true when a press is
// accepted outside the debounce window. It is the sole mutator of the
// debounce timestamp.
func (b *Button) WasToggled(now uint32) bool {
	if !b.line.IsPending() {
		return false
	}

	b.line.Unpend()

	if now <= b.lastEvent+DebounceTicks {
		return false
	}

	b.lastEvent = now

	return true
}
