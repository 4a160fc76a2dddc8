// STM32L0 USB full-speed device driver
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

// Buffer description table entry offsets, 8 bytes per endpoint
// (p1025, 32.6.3 Buffer descriptor table, RM0367)
const (
	bdtAddrTx  = 0
	bdtCountTx = 2
	bdtAddrRx  = 4
	bdtCountRx = 6
)

// COUNTn_RX for a 64-byte buffer: BL_SIZE=1, NUM_BLOCK=1
const countRx64 = 0x8400

func (hw *USB) bdt(n int, field uint32) uint32 {
	return hw.PMA + btableOffset + uint32(n)*8 + field
}

// pmaWrite copies a packet into packet memory, which tolerates only 16-bit
// accesses.
func (hw *USB) pmaWrite(off uint32, buf []byte) {
	addr := hw.PMA + off

	for i := 0; i+1 < len(buf); i += 2 {
		reg.Write16(addr+uint32(i), uint16(buf[i])|uint16(buf[i+1])<<8)
	}

	if len(buf)%2 != 0 {
		reg.Write16(addr+uint32(len(buf)-1), uint16(buf[len(buf)-1]))
	}
}

// pmaRead copies a packet out of packet memory.
func (hw *USB) pmaRead(off uint32, buf []byte) {
	addr := hw.PMA + off

	for i := 0; i < len(buf); i += 2 {
		v := reg.Read16(addr + uint32(i))

		buf[i] = byte(v)

		if i+1 < len(buf) {
			buf[i+1] = byte(v >> 8)
		}
	}
}

// txPacket loads an IN buffer and marks the endpoint VALID.
func (hw *USB) txPacket(n int, off uint32, buf []byte) {
	hw.pmaWrite(off, buf)

	reg.Write16(hw.bdt(n, bdtAddrTx), uint16(off))
	reg.Write16(hw.bdt(n, bdtCountTx), uint16(len(buf)))

	hw.setStat(n, IN, STAT_VALID)
}

// rxCount returns the byte count of the last OUT transaction.
func (hw *USB) rxCount(n int) int {
	return int(reg.Read16(hw.bdt(n, bdtCountRx)) & 0x3ff)
}

// armRx prepares an OUT buffer and marks the endpoint VALID.
func (hw *USB) armRx(n int, off uint32) {
	reg.Write16(hw.bdt(n, bdtAddrRx), uint16(off))
	reg.Write16(hw.bdt(n, bdtCountRx), countRx64)

	hw.setStat(n, OUT, STAT_VALID)
}
