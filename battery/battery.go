// Battery charger monitoring
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package battery polls the charge status of the BQ24250 charger over I2C
// and reflects it on the charge LED. The tick handler only arms the poll,
// the bus transaction runs from the idle loop.
package battery

import (
	"log"

	"periph.io/x/conn/v3/i2c"

	"github.com/craigjb/gameslab-smc/leds"
)

// Bus addresses
const (
	// BQ24250 battery charger
	ChargerAddr = 0x6a
	// STC3115 fuel gauge, reserved
	GaugeAddr = 0x70
)

// UpdateInterval is the poll cadence in scheduler ticks.
const UpdateInterval = 5

// charger status register, charge state in bits 5:4
const (
	statusReg   = 0x00
	statusMask  = 0x30
	statusShift = 4
)

// Battery polls the charger and animates the charge LED.
type Battery struct {
	bus       i2c.Bus
	chargeLed *leds.ChargeLed

	buffer [2]byte

	shouldUpdate bool
	lastUpdate   uint32
}

// New returns a battery monitor over the bus, owning the charge LED.
func New(bus i2c.Bus, chargeLed *leds.ChargeLed) *Battery {
	return &Battery{
		bus:          bus,
		chargeLed:    chargeLed,
		shouldUpdate: true,
	}
}

// UpdateIfNeeded performs the charger poll when armed, it must only be
// called from the idle loop as the transaction blocks. A transient bus
// error skips the cycle leaving the LED state alone.
func (b *Battery) UpdateIfNeeded() {
	if !b.shouldUpdate {
		return
	}

	b.shouldUpdate = false

	if err := b.bus.Tx(ChargerAddr, []byte{statusReg}, b.buffer[0:1]); err != nil {
		log.Printf("battery: charger status read error, %v", err)
		return
	}

	switch (b.buffer[0] & statusMask) >> statusShift {
	case 0b00:
		// not charging
		b.chargeLed.Off()
	case 0b01:
		// charging
		b.chargeLed.Blink()
	case 0b10:
		// charge complete
		b.chargeLed.On()
	default:
		// fault state
		b.chargeLed.Off()
	}
}

// Tick advances the charge LED animation and arms the poll on its
// interval.
func (b *Battery) Tick(now uint32) {
	b.chargeLed.Tick(now)

	if now >= b.lastUpdate+UpdateInterval {
		b.shouldUpdate = true
		b.lastUpdate = now
	}
}
