// USB device mode support
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"github.com/craigjb/gameslab-smc/internal/reg"
)

// per-endpoint OUT buffer locations in packet memory
var epRxOffset = [8]uint32{ep0RxOffset, ep1RxOffset}

// Poll services pending controller events, it is meant to be invoked from
// the USB interrupt handler.
func (hw *USB) Poll() {
	istr := reg.Read(hw.istr)

	if istr&(1<<ISTR_RESET) != 0 {
		// w0c
		reg.Write(hw.istr, ^uint32(1<<ISTR_RESET))
		hw.busReset()
	}

	for {
		istr = reg.Read(hw.istr)

		if istr&(1<<ISTR_CTR) == 0 {
			break
		}

		n := int(istr & (0b1111 << ISTR_EP_ID))

		if n == 0 {
			hw.ctr0()
		} else {
			hw.ctr(n)
		}
	}
}

// busReset reconfigures the default control endpoint and enables the
// device at address zero.
func (hw *USB) busReset() {
	hw.Device.ConfigurationValue = 0

	hw.ctrlIn = nil
	hw.ctrlOutLen = 0
	hw.pendingAddr = 0

	hw.configure(0, EP_TYPE_CONTROL)
	hw.armRx(0, ep0RxOffset)

	reg.Write(hw.daddr, 1<<DADDR_EF)
}

// ctr0 services a correct-transfer event on the control endpoint.
func (hw *USB) ctr0() {
	r := reg.Read(hw.epr(0))

	if r&(1<<EPR_CTR_RX) != 0 {
		setup := r&(1<<EPR_SETUP) != 0
		n := hw.rxCount(0)

		buf := make([]byte, n)
		hw.pmaRead(ep0RxOffset, buf)

		hw.clearCTR(0, OUT)

		if setup {
			hw.handleSetup(parseSetup(buf))
		} else if hw.ctrlOutLen > 0 {
			// data phase of an OUT request, acknowledge with a
			// zero-length status packet once complete
			hw.ctrlOutLen -= n

			if hw.ctrlOutLen <= 0 {
				hw.ctrlOutLen = 0
				hw.txPacket(0, ep0TxOffset, nil)
			} else {
				hw.armRx(0, ep0RxOffset)
			}
		} else {
			// status stage of an IN transfer
			hw.armRx(0, ep0RxOffset)
		}
	}

	if r&(1<<EPR_CTR_TX) != 0 {
		hw.clearCTR(0, IN)

		if hw.pendingAddr != 0 {
			reg.Write(hw.daddr, (1<<DADDR_EF)|hw.pendingAddr)
			hw.pendingAddr = 0
		}

		if len(hw.ctrlIn) > 0 || hw.ctrlZLP {
			hw.txNext0()
		} else {
			// IN data fully sent, expect the status OUT
			hw.armRx(0, ep0RxOffset)
		}
	}
}

// tx0 starts an IN data phase on the control endpoint, chunking the buffer
// to the maximum packet size.
func (hw *USB) tx0(buf []byte) {
	hw.ctrlIn = buf
	// a short final packet terminates the transfer, an exact multiple
	// needs a trailing zero-length packet
	hw.ctrlZLP = len(buf)%maxPacketSize == 0 && len(buf) > 0

	hw.txNext0()
}

func (hw *USB) txNext0() {
	n := len(hw.ctrlIn)

	if n > maxPacketSize {
		n = maxPacketSize
	}

	chunk := hw.ctrlIn[:n]
	hw.ctrlIn = hw.ctrlIn[n:]

	if n < maxPacketSize {
		hw.ctrlZLP = false
	}

	hw.txPacket(0, ep0TxOffset, chunk)
}

// stall halts one direction of an endpoint.
func (hw *USB) stall(n int, dir int) {
	hw.setStat(n, dir, STAT_STALL)
}

// ctr services a correct-transfer event on a data endpoint.
func (hw *USB) ctr(n int) {
	r := reg.Read(hw.epr(n))

	if r&(1<<EPR_CTR_RX) != 0 {
		hw.clearCTR(n, OUT)

		if fn := hw.outHandler[n]; fn != nil {
			count := hw.rxCount(n)

			buf := make([]byte, count)
			hw.pmaRead(epRxOffset[n], buf)

			fn(buf)
		}
	}

	if r&(1<<EPR_CTR_TX) != 0 {
		hw.clearCTR(n, IN)

		if fn := hw.inHandler[n]; fn != nil {
			fn()
		}
	}
}
