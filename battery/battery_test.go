// Battery charger monitoring
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package battery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/craigjb/gameslab-smc/leds"
)

// fakePWM records the last programmed duty, enough to observe the charge
// LED mode.
type fakePWM struct {
	duty uint16
}

func (f *fakePWM) SetDuty(duty uint16) {
	f.duty = duty
}

func statusOp(status byte) i2ctest.IO {
	return i2ctest.IO{
		Addr: ChargerAddr,
		W:    []byte{0x00},
		R:    []byte{status},
	}
}

func monitor(ops ...i2ctest.IO) (*Battery, *fakePWM, *i2ctest.Playback) {
	pwm := &fakePWM{}
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}

	return New(bus, leds.NewChargeLed(pwm)), pwm, bus
}

func TestChargingBlinks(t *testing.T) {
	b, pwm, _ := monitor(statusOp(0x10))

	b.UpdateIfNeeded()

	assert.Equal(t, uint16(leds.BlinkMinDuty), pwm.duty)
}

func TestChargeCompleteSolid(t *testing.T) {
	b, pwm, _ := monitor(statusOp(0x20))

	b.UpdateIfNeeded()

	assert.Equal(t, uint16(leds.BlinkMaxDuty), pwm.duty)
}

func TestNotChargingOff(t *testing.T) {
	b, pwm, _ := monitor(statusOp(0x00))

	b.UpdateIfNeeded()

	assert.Equal(t, uint16(0), pwm.duty)
}

func TestFaultStateOff(t *testing.T) {
	// undefined status encoding falls through to off
	b, pwm, _ := monitor(statusOp(0x30))

	b.UpdateIfNeeded()

	assert.Equal(t, uint16(0), pwm.duty)
}

func TestStatusBitsMasked(t *testing.T) {
	// unrelated register bits must not leak into the decode
	b, pwm, _ := monitor(statusOp(0xcf | 0x10))

	b.UpdateIfNeeded()

	assert.Equal(t, uint16(leds.BlinkMinDuty), pwm.duty)
}

func TestUpdateCadence(t *testing.T) {
	b, pwm, _ := monitor(statusOp(0x20), statusOp(0x00))

	// armed at construction
	b.UpdateIfNeeded()
	assert.Equal(t, uint16(leds.BlinkMaxDuty), pwm.duty)

	// consumed, further idle passes leave the bus alone
	b.UpdateIfNeeded()
	assert.Equal(t, uint16(leds.BlinkMaxDuty), pwm.duty)

	// ticks short of the interval do not arm
	for now := uint32(1); now < 5; now++ {
		b.Tick(now)
		b.UpdateIfNeeded()
	}
	assert.Equal(t, uint16(leds.BlinkMaxDuty), pwm.duty)

	// the fifth tick arms the next poll
	b.Tick(5)
	b.UpdateIfNeeded()
	assert.Equal(t, uint16(0), pwm.duty)
}

func TestBusErrorSkipsCycle(t *testing.T) {
	// no ops queued, the transaction fails
	b, pwm, _ := monitor()

	// put the LED in a known mode first
	pwm.duty = leds.BlinkMaxDuty

	b.UpdateIfNeeded()

	// LED untouched on a transient bus error
	assert.Equal(t, uint16(leds.BlinkMaxDuty), pwm.duty)

	// the failed cycle is consumed, not retried immediately
	b.UpdateIfNeeded()
	assert.Equal(t, uint16(leds.BlinkMaxDuty), pwm.duty)
}
