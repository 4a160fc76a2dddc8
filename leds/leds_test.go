// Indicator LED control
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package leds

import (
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
)

// fakePWM records every programmed duty.
type fakePWM struct {
	duties []uint16
}

func (f *fakePWM) SetDuty(duty uint16) {
	f.duties = append(f.duties, duty)
}

func (f *fakePWM) last() uint16 {
	return f.duties[len(f.duties)-1]
}

func TestStatusLed(t *testing.T) {
	pwm := &fakePWM{}
	led := NewStatusLed(pwm)

	led.On()
	assert.Equal(t, uint16(StatusMaxDuty), pwm.last())

	led.Off()
	assert.Equal(t, uint16(0), pwm.last())
}

func TestChargeLedModes(t *testing.T) {
	pwm := &fakePWM{}
	led := NewChargeLed(pwm)

	led.On()
	assert.Equal(t, uint16(BlinkMaxDuty), pwm.last())

	led.Off()
	assert.Equal(t, uint16(0), pwm.last())

	led.Blink()
	assert.Equal(t, uint16(BlinkMinDuty), pwm.last())

	// solid cancels the animation
	led.On()
	led.Tick(1)
	assert.Equal(t, uint16(BlinkMaxDuty), pwm.last())
}

func TestBreathingShape(t *testing.T) {
	pwm := &fakePWM{}
	led := NewChargeLed(pwm)

	led.Blink()

	for i := 0; i < 56; i++ {
		led.Tick(uint32(i))
	}

	// one full sweep: up the table and back down, turns inclusive
	var want []uint16

	for i := 0; i <= 28; i++ {
		want = append(want, BlinkMinDuty+blinkDutyTable[i])
	}

	for i := 27; i >= 0; i-- {
		want = append(want, BlinkMinDuty+blinkDutyTable[i])
	}

	if diff := deep.Equal(pwm.duties, want); diff != nil {
		t.Error(diff)
	}

	// the sweep turns at the bottom and heads back up
	led.Tick(56)
	assert.Equal(t, BlinkMinDuty+blinkDutyTable[1], pwm.last())

	led.Tick(57)
	assert.Equal(t, BlinkMinDuty+blinkDutyTable[2], pwm.last())
}

func TestBlinkIdempotent(t *testing.T) {
	pwm := &fakePWM{}
	led := NewChargeLed(pwm)

	led.Blink()

	for i := 0; i < 10; i++ {
		led.Tick(uint32(i))
	}

	assert.Equal(t, BlinkMinDuty+blinkDutyTable[10], pwm.last())

	// a second blink must not restart the sweep
	led.Blink()
	led.Tick(10)
	assert.Equal(t, BlinkMinDuty+blinkDutyTable[11], pwm.last())
}
