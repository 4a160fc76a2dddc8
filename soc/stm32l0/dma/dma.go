// STM32L0 DMA driver
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package dma implements a driver for the STM32L0 DMA controller adopting
// the following reference specifications:
//   - RM0367 - STM32L0x3 advanced ARM-based 32-bit MCUs - Rev 7 2020/01
package dma

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/craigjb/gameslab-smc/bits"
	"github.com/craigjb/gameslab-smc/internal/reg"
)

// DMA registers
// (p265, 11.4 DMA registers, RM0367)
const (
	DMAx_ISR  = 0x00
	DMAx_IFCR = 0x04

	// per channel n (1..7), offset 0x14 * (n - 1)
	DMAx_CCR1   = 0x08
	DMAx_CNDTR1 = 0x0c
	DMAx_CPAR1  = 0x10
	DMAx_CMAR1  = 0x14

	CCR_PL      = 12
	CCR_MINC    = 7
	CCR_CIRC    = 5
	CCR_DIR     = 4
	CCR_TEIE    = 3
	CCR_HTIE    = 2
	CCR_TCIE    = 1
	CCR_EN      = 0

	// per channel n, 4 flag bits at position 4 * (n - 1)
	ISR_TEIF = 3
	ISR_HTIF = 2
	ISR_TCIF = 1
	ISR_GIF  = 0

	DMAx_CSELR = 0xa8
)

// Channel priority levels (CCR.PL)
const (
	PL_LOW = iota
	PL_MEDIUM
	PL_HIGH
	PL_VERYHIGH
)

// Peripheral request selections (CSELR)
// (p276, 11.4.8 DMA channel selection register, RM0367)
const (
	REQ_LPUART1_TX = 0b0101
	REQ_LPUART1_RX = 0b0101
)

// DMA represents the DMA controller instance.
type DMA struct {
	// Base register
	Base uint32
	// Clock enable register offset in RCC
	ENR uint32
	// Clock enable bit
	EN int
	// Clock enable function
	EnableClock func(enr uint32, en int)

	clk bool
}

// Channel instance
type Channel struct {
	hw  *DMA
	num int

	ccr   uint32
	cndtr uint32
	cpar  uint32
	cmar  uint32

	length int
}

// Init initializes a DMA channel and routes a peripheral request to it.
func (hw *DMA) Init(num int, request uint32) (ch *Channel, err error) {
	if hw.Base == 0 || hw.EnableClock == nil {
		return nil, errors.New("invalid DMA controller instance")
	}

	if num < 1 || num > 7 {
		return nil, fmt.Errorf("invalid DMA channel %d", num)
	}

	if !hw.clk {
		hw.EnableClock(hw.ENR, hw.EN)
		hw.clk = true
	}

	off := uint32(num-1) * 0x14

	ch = &Channel{
		hw:    hw,
		num:   num,
		ccr:   hw.Base + DMAx_CCR1 + off,
		cndtr: hw.Base + DMAx_CNDTR1 + off,
		cpar:  hw.Base + DMAx_CPAR1 + off,
		cmar:  hw.Base + DMAx_CMAR1 + off,
	}

	reg.SetN(hw.Base+DMAx_CSELR, (num-1)*4, 0b1111, request)

	return
}

// ConfigureRx programs the channel for circular peripheral-to-memory
// byte transfers with half-transfer and transfer-complete interrupts.
func (ch *Channel) ConfigureRx(peripheral uint32, buf []byte) {
	reg.Write(ch.cpar, peripheral)
	reg.Write(ch.cmar, uint32(uintptr(unsafe.Pointer(&buf[0]))))
	reg.Write(ch.cndtr, uint32(len(buf)))

	ch.length = len(buf)

	var ccr uint32
	bits.SetN(&ccr, CCR_PL, 0b11, PL_HIGH)
	bits.Set(&ccr, CCR_MINC)
	bits.Set(&ccr, CCR_CIRC)
	bits.Set(&ccr, CCR_HTIE)
	bits.Set(&ccr, CCR_TCIE)

	reg.Write(ch.ccr, ccr)
}

// ConfigureTx programs the channel for a one-shot memory-to-peripheral
// transfer of every byte in buf with a transfer-complete interrupt, the
// channel must be disabled.
func (ch *Channel) ConfigureTx(peripheral uint32, buf []byte) {
	reg.Write(ch.cpar, peripheral)
	reg.Write(ch.cmar, uint32(uintptr(unsafe.Pointer(&buf[0]))))
	reg.Write(ch.cndtr, uint32(len(buf)))

	ch.length = len(buf)

	var ccr uint32
	bits.SetN(&ccr, CCR_PL, 0b11, PL_HIGH)
	bits.Set(&ccr, CCR_MINC)
	bits.Set(&ccr, CCR_DIR)
	bits.Set(&ccr, CCR_TCIE)

	reg.Write(ch.ccr, ccr)
}

// Start enables the channel.
func (ch *Channel) Start() {
	reg.Set(ch.ccr, CCR_EN)
}

// Stop disables the channel.
func (ch *Channel) Stop() {
	reg.Clear(ch.ccr, CCR_EN)
}

// Enabled returns whether the channel is active.
func (ch *Channel) Enabled() bool {
	return reg.Get(ch.ccr, CCR_EN, 1) == 1
}

// Remaining returns the number of transfers left in the current cycle.
func (ch *Channel) Remaining() int {
	return int(reg.Read(ch.cndtr))
}

// Length returns the programmed transfer length.
func (ch *Channel) Length() int {
	return ch.length
}

// Complete returns whether the transfer-complete flag is raised.
func (ch *Channel) Complete() bool {
	return reg.Get(ch.hw.Base+DMAx_ISR, (ch.num-1)*4+ISR_TCIF, 1) == 1
}

// ClearComplete clears the transfer-complete flag.
func (ch *Channel) ClearComplete() {
	reg.Write(ch.hw.Base+DMAx_IFCR, 1<<uint((ch.num-1)*4+ISR_TCIF))
}

// HalfComplete returns whether the half-transfer flag is raised.
func (ch *Channel) HalfComplete() bool {
	return reg.Get(ch.hw.Base+DMAx_ISR, (ch.num-1)*4+ISR_HTIF, 1) == 1
}

// ClearHalfComplete clears the half-transfer flag.
func (ch *Channel) ClearHalfComplete() {
	reg.Write(ch.hw.Base+DMAx_IFCR, 1<<uint((ch.num-1)*4+ISR_HTIF))
}
