// Push-button input
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package button

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeLine is an EXTI line with a latched edge.
type fakeLine struct {
	pending bool
}

func (l *fakeLine) IsPending() bool {
	return l.pending
}

func (l *fakeLine) Unpend() {
	l.pending = false
}

func TestNoEdgeNoToggle(t *testing.T) {
	line := &fakeLine{}
	b := New(line)

	assert.False(t, b.WasToggled(100))
}

func TestEdgeConsumed(t *testing.T) {
	line := &fakeLine{pending: true}
	b := New(line)

	assert.True(t, b.WasToggled(100))
	assert.False(t, line.pending, "pending edge must be consumed")
	assert.False(t, b.WasToggled(100))
}

func TestDebounce(t *testing.T) {
	line := &fakeLine{}
	b := New(line)

	// two edges within the window produce one toggle
	line.pending = true
	assert.True(t, b.WasToggled(100))

	line.pending = true
	assert.False(t, b.WasToggled(102))

	// the rejected bounce must not extend the window
	line.pending = true
	assert.True(t, b.WasToggled(104))
}

func TestSeparatedPresses(t *testing.T) {
	line := &fakeLine{}
	b := New(line)

	line.pending = true
	assert.True(t, b.WasToggled(100))

	// 400 ms later
	line.pending = true
	assert.True(t, b.WasToggled(104))
}

func TestBouncesSuppressed(t *testing.T) {
	line := &fakeLine{}
	b := New(line)

	toggles := 0

	// a noisy press: edges on consecutive ticks
	for now := uint32(100); now < 103; now++ {
		line.pending = true

		if b.WasToggled(now) {
			toggles++
		}
	}

	assert.Equal(t, 1, toggles)
}
