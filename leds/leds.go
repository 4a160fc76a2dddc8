// Indicator LED control
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package leds drives the two indicator LEDs of the board, a status LED
// reflecting the Zynq power state and a charge LED animated by the battery
// monitor.
package leds

// PWM is the timer compare channel behind an LED.
type PWM interface {
	SetDuty(duty uint16)
}

// Duty constants in timer counts of the 10 kHz carrier.
const (
	StatusMaxDuty = 400
	BlinkMaxDuty  = 600
	BlinkMinDuty  = 20
)

// blinkDutyTable shapes the charge LED breathing animation, one entry per
// tick, swept up and back down.
var blinkDutyTable = [29]uint16{
	0, 1, 1, 1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 21, 26, 32, 41, 51, 64, 80,
	99, 124, 154, 193, 240, 299, 373, 465, 579,
}

// StatusLed is the on/off system status indicator.
type StatusLed struct {
	pwm PWM
}

// NewStatusLed returns a status LED over the PWM channel.
func NewStatusLed(pwm PWM) *StatusLed {
	return &StatusLed{pwm: pwm}
}

// On drives the LED at its fixed brightness.
func (l *StatusLed) On() {
	l.pwm.SetDuty(StatusMaxDuty)
}

// Off turns the LED off.
func (l *StatusLed) Off() {
	l.pwm.SetDuty(0)
}

// ChargeLed is the battery charge indicator, either off, solid, or
// breathing.
type ChargeLed struct {
	pwm PWM

	blinking   bool
	blinkingUp bool
	blinkIndex int
}

// NewChargeLed returns a charge LED over the PWM channel.
func NewChargeLed(pwm PWM) *ChargeLed {
	return &ChargeLed{pwm: pwm}
}

// On drives the LED solid.
func (l *ChargeLed) On() {
	l.pwm.SetDuty(BlinkMaxDuty)
	l.blinking = false
}

// Off turns the LED off.
func (l *ChargeLed) Off() {
	l.pwm.SetDuty(0)
	l.blinking = false
}

// Blink starts the breathing animation, calling it while already blinking
// does not restart the sweep.
func (l *ChargeLed) Blink() {
	if l.blinking {
		return
	}

	l.blinking = true
	l.blinkingUp = true
	l.blinkIndex = 0

	l.pwm.SetDuty(BlinkMinDuty)
}

// Tick advances the breathing animation one step.
func (l *ChargeLed) Tick(_ uint32) {
	if !l.blinking {
		return
	}

	if l.blinkingUp {
		l.blinkIndex++

		if l.blinkIndex >= len(blinkDutyTable)-1 {
			l.blinkingUp = false
		}
	} else {
		l.blinkIndex--

		if l.blinkIndex == 0 {
			l.blinkingUp = true
		}
	}

	l.pwm.SetDuty(BlinkMinDuty + blinkDutyTable[l.blinkIndex])
}
