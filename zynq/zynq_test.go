// Zynq power sequencing
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package zynq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type rig struct {
	en1v0, en1v5, en1v8, en3v3 *gpiotest.Pin
	pg1v0, pg1v5, pg1v8, pg3v3 *gpiotest.Pin
	por                        *gpiotest.Pin

	z *Zynq
}

func newRig() *rig {
	r := &rig{
		en1v0: &gpiotest.Pin{N: "EN_1V0"},
		en1v5: &gpiotest.Pin{N: "EN_1V5"},
		en1v8: &gpiotest.Pin{N: "EN_1V8"},
		en3v3: &gpiotest.Pin{N: "EN_3V3"},
		pg1v0: &gpiotest.Pin{N: "PG_1V0"},
		pg1v5: &gpiotest.Pin{N: "PG_1V5"},
		pg1v8: &gpiotest.Pin{N: "PG_1V8"},
		pg3v3: &gpiotest.Pin{N: "PG_3V3"},
		por:   &gpiotest.Pin{N: "ZYNQ_POR", L: gpio.High},
	}

	r.z = New(PowerSupplies{
		En1V0: r.en1v0,
		Pg1V0: r.pg1v0,
		En1V5: r.en1v5,
		Pg1V5: r.pg1v5,
		En1V8: r.en1v8,
		Pg1V8: r.pg1v8,
		En3V3: r.en3v3,
		Pg3V3: r.pg3v3,
		Por:   r.por,
	})

	return r
}

// follow mimics responsive regulators, each power-good tracks its enable.
func (r *rig) follow() {
	r.pg1v0.L = r.en1v0.L
	r.pg1v5.L = r.en1v5.L
	r.pg1v8.L = r.en1v8.L
	r.pg3v3.L = r.en3v3.L
}

func (r *rig) run(ticks int, follow bool) {
	for i := 0; i < ticks; i++ {
		r.z.Tick(uint32(i))

		if follow {
			r.follow()
		}
	}
}

func TestPowerUpSequence(t *testing.T) {
	r := newRig()

	require.Equal(t, Off, r.z.State())
	assert.Equal(t, gpio.Low, r.por.L)

	r.z.PowerUp()
	require.Equal(t, Stage0Up, r.z.State())
	assert.Equal(t, gpio.Low, r.por.L)

	// stage 0: 1V0 enabled
	r.z.Tick(1)
	require.Equal(t, Stage1Up, r.z.State())
	assert.Equal(t, gpio.High, r.en1v0.L)
	assert.Equal(t, gpio.Low, r.en1v8.L)

	// 1V0 not good yet, the stage holds
	r.z.Tick(2)
	require.Equal(t, Stage1Up, r.z.State())

	r.pg1v0.L = gpio.High
	r.z.Tick(3)
	require.Equal(t, Stage2Up, r.z.State())
	assert.Equal(t, gpio.High, r.en1v8.L)

	r.pg1v8.L = gpio.High
	r.z.Tick(4)
	require.Equal(t, Stage3Up, r.z.State())
	assert.Equal(t, gpio.High, r.en1v5.L)
	assert.Equal(t, gpio.High, r.en3v3.L)

	// both final rails must report before reset release
	r.pg1v5.L = gpio.High
	r.z.Tick(5)
	require.Equal(t, Stage3Up, r.z.State())
	assert.Equal(t, gpio.Low, r.por.L)

	r.pg3v3.L = gpio.High
	r.z.Tick(6)
	require.Equal(t, On, r.z.State())
	assert.Equal(t, gpio.High, r.por.L)
}

func TestResetAssertion(t *testing.T) {
	r := newRig()

	check := func() {
		if r.z.State() == On {
			assert.Equal(t, gpio.High, r.por.L, "reset released while on")
		} else {
			assert.Equal(t, gpio.Low, r.por.L, "reset must assert in state %v", r.z.State())
		}
	}

	r.z.PowerUp()

	for i := 0; i < 8; i++ {
		check()
		r.z.Tick(uint32(i))
		r.follow()
	}

	require.Equal(t, On, r.z.State())
	check()

	r.z.PowerDown()

	for i := 0; i < 8; i++ {
		check()
		r.z.Tick(uint32(i))
		r.follow()
	}

	require.Equal(t, Off, r.z.State())
}

func TestBlockedStage(t *testing.T) {
	r := newRig()

	r.z.PowerUp()

	// 1V0 never reports good
	for i := 0; i < 50; i++ {
		r.z.Tick(uint32(i))
	}

	assert.Equal(t, Stage1Up, r.z.State())
	assert.Equal(t, gpio.High, r.en1v0.L)
	assert.Equal(t, gpio.Low, r.en1v8.L)
	assert.Equal(t, gpio.Low, r.en1v5.L)
	assert.Equal(t, gpio.Low, r.en3v3.L)
	assert.Equal(t, gpio.Low, r.por.L)
}

func TestSymmetricPowerDown(t *testing.T) {
	r := newRig()

	r.z.PowerUp()
	r.run(8, true)
	require.Equal(t, On, r.z.State())

	r.z.PowerDown()
	require.Equal(t, Stage3Down, r.z.State())
	assert.Equal(t, gpio.Low, r.por.L)

	// stage 3: 1V5 and 3V3 dropped first
	r.z.Tick(1)
	require.Equal(t, Stage2Down, r.z.State())
	assert.Equal(t, gpio.Low, r.en1v5.L)
	assert.Equal(t, gpio.Low, r.en3v3.L)
	assert.Equal(t, gpio.High, r.en1v8.L)

	// rails still reporting good, the stage holds
	r.z.Tick(2)
	require.Equal(t, Stage2Down, r.z.State())

	r.pg1v5.L = gpio.Low
	r.pg3v3.L = gpio.Low
	r.z.Tick(3)
	require.Equal(t, Stage1Down, r.z.State())
	assert.Equal(t, gpio.Low, r.en1v8.L)
	assert.Equal(t, gpio.High, r.en1v0.L)

	r.pg1v8.L = gpio.Low
	r.z.Tick(4)
	require.Equal(t, Stage0Down, r.z.State())
	assert.Equal(t, gpio.Low, r.en1v0.L)

	r.pg1v0.L = gpio.Low
	r.z.Tick(5)
	require.Equal(t, Off, r.z.State())
}

func TestToggleDuringSequence(t *testing.T) {
	r := newRig()

	r.z.PowerUp()
	r.z.Tick(1)
	require.Equal(t, Stage1Up, r.z.State())

	// a second up request while sequencing up changes nothing
	r.z.PowerUp()
	require.Equal(t, Stage1Up, r.z.State())

	// a toggle while sequencing up reverses
	r.z.PowerToggle()
	require.Equal(t, Stage3Down, r.z.State())

	// and toggling while sequencing down starts back up
	r.z.PowerToggle()
	require.Equal(t, Stage0Up, r.z.State())
}

func TestPowerRequestNotification(t *testing.T) {
	r := newRig()

	var requests []bool
	r.z.OnPowerRequest = func(on bool) {
		requests = append(requests, on)
	}

	r.z.PowerUp()
	r.z.PowerDown()
	r.z.PowerToggle()

	assert.Equal(t, []bool{true, false, true}, requests)
}
