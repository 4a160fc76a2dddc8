// STM32L0 USB full-speed device driver
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package usb implements a device-mode driver for the STM32L0 USB
// full-speed controller adopting the following reference specifications:
//   - RM0367  - STM32L0x3 advanced ARM-based 32-bit MCUs - Rev 7 2020/01
//   - USB2.0  - USB Specification Revision 2.0
package usb

import (
	"github.com/craigjb/gameslab-smc/internal/reg"
)

// USB registers
// (p1007, 32.6 USB registers, RM0367)
const (
	// EPnR at Base + 4*n
	USBx_EP0R = 0x00

	EPR_CTR_RX  = 15
	EPR_DTOG_RX = 14
	EPR_STAT_RX = 12
	EPR_SETUP   = 11
	EPR_EP_TYPE = 9
	EPR_EP_KIND = 8
	EPR_CTR_TX  = 7
	EPR_DTOG_TX = 6
	EPR_STAT_TX = 4
	EPR_EA      = 0

	USBx_CNTR   = 0x40
	CNTR_CTRM   = 15
	CNTR_ERRM   = 13
	CNTR_WKUPM  = 12
	CNTR_SUSPM  = 11
	CNTR_RESETM = 10
	CNTR_RESUME = 4
	CNTR_FSUSP  = 3
	CNTR_LPMODE = 2
	CNTR_PDWN   = 1
	CNTR_FRES   = 0

	USBx_ISTR   = 0x44
	ISTR_CTR    = 15
	ISTR_PMAOVR = 14
	ISTR_ERR    = 13
	ISTR_WKUP   = 12
	ISTR_SUSP   = 11
	ISTR_RESET  = 10
	ISTR_DIR    = 4
	ISTR_EP_ID  = 0

	USBx_DADDR = 0x4c
	DADDR_EF   = 7

	USBx_BTABLE = 0x50

	USBx_BCDR = 0x58
	BCDR_DPPU = 15
)

// Endpoint types (EPnR.EP_TYPE)
const (
	EP_TYPE_BULK = iota
	EP_TYPE_CONTROL
	EP_TYPE_ISO
	EP_TYPE_INTERRUPT
)

// Endpoint handshake states (EPnR.STAT_RX/STAT_TX)
const (
	STAT_DISABLED = iota
	STAT_STALL
	STAT_NAK
	STAT_VALID
)

// Endpoint directions
const (
	OUT = iota
	IN
)

// Packet memory layout, the buffer description table sits at offset 0 and
// fixed 64-byte buffers follow.
const (
	btableOffset = 0x00

	ep0TxOffset = 0x40
	ep0RxOffset = 0x80
	ep1TxOffset = 0xc0
	ep1RxOffset = 0x100
	ep2TxOffset = 0x140

	maxPacketSize = 64
)

// USB represents the USB controller instance.
type USB struct {
	// Base register
	Base uint32
	// Packet memory base
	PMA uint32
	// Clock enable register offset in RCC
	ENR uint32
	// Clock enable bit
	EN int
	// Clock enable function
	EnableClock func(enr uint32, en int)
	// 48 MHz kernel clock enable function
	EnableClock48 func()
	// Busy loop function for the startup delays
	Delay func(cycles int)

	// Device is the enumeration target.
	Device *Device
	// Configure is invoked when the host selects a configuration.
	Configure func()

	cntr  uint32
	istr  uint32
	daddr uint32
	bcdr  uint32

	// control transfer state
	ctrlIn     []byte
	ctrlZLP    bool
	ctrlOutLen int

	// pending device address, latched after the status stage
	pendingAddr uint32

	// endpoint completion handlers
	outHandler [8]func(buf []byte)
	inHandler  [8]func()
}

// Init initializes the USB controller in device mode, it does not connect
// the pull-up (see Reenumerate).
func (hw *USB) Init() {
	if hw.Base == 0 || hw.PMA == 0 || hw.EnableClock == nil {
		panic("invalid USB controller instance")
	}

	hw.cntr = hw.Base + USBx_CNTR
	hw.istr = hw.Base + USBx_ISTR
	hw.daddr = hw.Base + USBx_DADDR
	hw.bcdr = hw.Base + USBx_BCDR

	if hw.EnableClock48 != nil {
		hw.EnableClock48()
	}

	hw.EnableClock(hw.ENR, hw.EN)

	// exit power down with the transceiver startup delay
	reg.Clear(hw.cntr, CNTR_PDWN)

	if hw.Delay != nil {
		// tSTARTUP (1 us)
		hw.Delay(64)
	}

	// release the controller reset
	reg.Clear(hw.cntr, CNTR_FRES)
	// drop spurious pending interrupts
	reg.Write(hw.istr, 0)

	reg.Write(hw.Base+USBx_BTABLE, btableOffset)

	// enable reset and correct-transfer interrupts
	reg.Set(hw.cntr, CNTR_RESETM)
	reg.Set(hw.cntr, CNTR_CTRM)
}

// Reenumerate cycles the DP pull-up so the host observes a fresh attach.
func (hw *USB) Reenumerate() {
	reg.Clear(hw.bcdr, BCDR_DPPU)

	if hw.Delay != nil {
		// long enough for the host to notice a detach
		hw.Delay(320000)
	}

	reg.Set(hw.bcdr, BCDR_DPPU)
}

// epr returns the endpoint register address.
func (hw *USB) epr(n int) uint32 {
	return hw.Base + USBx_EP0R + uint32(n)*4
}

// invariant EPnR write: toggle bits held, CTR bits preserved
const eprInvariant = (1 << EPR_CTR_RX) | (1 << EPR_CTR_TX)
const eprToggleMask = (0b11 << EPR_STAT_RX) | (0b11 << EPR_STAT_TX) |
	(1 << EPR_DTOG_RX) | (1 << EPR_DTOG_TX)

// setStat drives the STAT_RX or STAT_TX field through its toggle-on-write
// semantics.
func (hw *USB) setStat(n int, dir int, stat uint32) {
	pos := EPR_STAT_RX
	if dir == IN {
		pos = EPR_STAT_TX
	}

	r := reg.Read(hw.epr(n))

	toggle := ((r >> pos) & 0b11) ^ stat

	r &= ^uint32(eprToggleMask)
	r |= eprInvariant
	r |= toggle << pos

	reg.Write(hw.epr(n), r)
}

// clearCTR clears the correct-transfer flag for one direction.
func (hw *USB) clearCTR(n int, dir int) {
	pos := EPR_CTR_RX
	if dir == IN {
		pos = EPR_CTR_TX
	}

	r := reg.Read(hw.epr(n))

	r &= ^uint32(eprToggleMask)
	r |= eprInvariant
	r &= ^uint32(1 << pos)

	reg.Write(hw.epr(n), r)
}

// configure sets an endpoint address and type, leaving both directions
// NAKed.
func (hw *USB) configure(n int, typ uint32) {
	old := reg.Read(hw.epr(n))

	r := eprInvariant | (typ << EPR_EP_TYPE) | uint32(n)
	// toggle both STAT fields to NAK
	r |= (old & (0b11 << EPR_STAT_RX)) ^ (STAT_NAK << EPR_STAT_RX)
	r |= (old & (0b11 << EPR_STAT_TX)) ^ (STAT_NAK << EPR_STAT_TX)
	// toggle both DTOG bits back to zero
	r |= old & ((1 << EPR_DTOG_RX) | (1 << EPR_DTOG_TX))

	reg.Write(hw.epr(n), r)
}
