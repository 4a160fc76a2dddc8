// Zynq power sequencing
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package zynq sequences the four Zynq supply rails up and down and
// releases the SoC reset once all rails report power-good. Rail enables
// and power-good senses are periph.io gpio pins so the machine can be
// exercised against fakes.
package zynq

import (
	"periph.io/x/conn/v3/gpio"
)

// State enumerates the sequencing machine states.
type State int

const (
	Off State = iota
	Stage0Up
	Stage1Up
	Stage2Up
	Stage3Up
	On
	Stage3Down
	Stage2Down
	Stage1Down
	Stage0Down
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Off:
		return "Off"
	case Stage0Up:
		return "Stage0Up"
	case Stage1Up:
		return "Stage1Up"
	case Stage2Up:
		return "Stage2Up"
	case Stage3Up:
		return "Stage3Up"
	case On:
		return "On"
	case Stage3Down:
		return "Stage3Down"
	case Stage2Down:
		return "Stage2Down"
	case Stage1Down:
		return "Stage1Down"
	case Stage0Down:
		return "Stage0Down"
	}

	return "unknown"
}

// PowerSupplies collects the rail control and sense pins along with the
// SoC reset.
type PowerSupplies struct {
	En1V0 gpio.PinOut
	Pg1V0 gpio.PinIn
	En1V5 gpio.PinOut
	Pg1V5 gpio.PinIn
	En1V8 gpio.PinOut
	Pg1V8 gpio.PinIn
	En3V3 gpio.PinOut
	Pg3V3 gpio.PinIn

	// active low SoC power-on reset
	Por gpio.PinOut
}

// Zynq tracks the SoC power sequencing state.
type Zynq struct {
	supplies PowerSupplies
	state    State

	// OnPowerRequest is notified at the sequence boundaries with the
	// requested SoC power state, the sleep supervisor hangs off it.
	OnPowerRequest func(on bool)
}

// New returns a sequencer over the supply pins, asserting the SoC reset.
func New(supplies PowerSupplies) *Zynq {
	supplies.Por.Out(gpio.Low)

	return &Zynq{
		supplies: supplies,
		state:    Off,
	}
}

// State returns the current sequencing state.
func (z *Zynq) State() State {
	return z.state
}

// IsPowerOn reports whether the SoC is on or sequencing up.
func (z *Zynq) IsPowerOn() bool {
	switch z.state {
	case On, Stage0Up, Stage1Up, Stage2Up, Stage3Up:
		return true
	}

	return false
}

func (z *Zynq) notify(on bool) {
	if z.OnPowerRequest != nil {
		z.OnPowerRequest(on)
	}
}

// PowerUp starts the up sequence, it is a no-op while already on or
// sequencing up.
func (z *Zynq) PowerUp() {
	z.notify(true)

	switch z.state {
	case Off, Stage3Down, Stage2Down, Stage1Down, Stage0Down:
		z.supplies.Por.Out(gpio.Low)
		z.state = Stage0Up
	}
}

// PowerDown starts the down sequence, it is a no-op while already off or
// sequencing down.
func (z *Zynq) PowerDown() {
	z.notify(false)

	switch z.state {
	case On, Stage0Up, Stage1Up, Stage2Up, Stage3Up:
		z.supplies.Por.Out(gpio.Low)
		z.state = Stage3Down
	}
}

// PowerToggle requests the opposite of the current or pending state.
func (z *Zynq) PowerToggle() {
	if z.IsPowerOn() {
		z.PowerDown()
	} else {
		z.PowerUp()
	}
}

// Tick advances the sequence at most one stage, stages gated on power-good
// senses hold until the rail reports.
func (z *Zynq) Tick(_ uint32) {
	s := &z.supplies

	switch z.state {
	case Stage0Up:
		s.En1V0.Out(gpio.High)
		z.state = Stage1Up
	case Stage1Up:
		if s.Pg1V0.Read() == gpio.High {
			s.En1V8.Out(gpio.High)
			z.state = Stage2Up
		}
	case Stage2Up:
		if s.Pg1V8.Read() == gpio.High {
			s.En1V5.Out(gpio.High)
			s.En3V3.Out(gpio.High)
			z.state = Stage3Up
		}
	case Stage3Up:
		if s.Pg1V5.Read() == gpio.High && s.Pg3V3.Read() == gpio.High {
			s.Por.Out(gpio.High)
			z.state = On
		}
	case Stage3Down:
		s.En1V5.Out(gpio.Low)
		s.En3V3.Out(gpio.Low)
		z.state = Stage2Down
	case Stage2Down:
		if s.Pg1V5.Read() == gpio.Low && s.Pg3V3.Read() == gpio.Low {
			s.En1V8.Out(gpio.Low)
			z.state = Stage1Down
		}
	case Stage1Down:
		if s.Pg1V8.Read() == gpio.Low {
			s.En1V0.Out(gpio.Low)
			z.state = Stage0Down
		}
	case Stage0Down:
		if s.Pg1V0.Read() == gpio.Low {
			z.state = Off
		}
	}
}
