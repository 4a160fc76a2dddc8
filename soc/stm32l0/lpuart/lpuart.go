// STM32L0 LPUART driver
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package lpuart implements a driver for the STM32L0 low-power UART
// adopting the following reference specifications:
//   - RM0367 - STM32L0x3 advanced ARM-based 32-bit MCUs - Rev 7 2020/01
package lpuart

import (
	"github.com/craigjb/gameslab-smc/bits"
	"github.com/craigjb/gameslab-smc/internal/reg"
)

// LPUART registers
// (p846, 29.7 LPUART registers, RM0367)
const (
	LPUART_DEFAULT_BAUDRATE = 115200

	LPUARTx_CR1 = 0x00
	CR1_TXEIE   = 7
	CR1_TCIE    = 6
	CR1_RXNEIE  = 5
	CR1_IDLEIE  = 4
	CR1_TE      = 3
	CR1_RE      = 2
	CR1_UE      = 0

	LPUARTx_CR3 = 0x08
	CR3_DMAT    = 7
	CR3_DMAR    = 6

	LPUARTx_BRR = 0x0c

	LPUARTx_ISR = 0x1c
	ISR_TXE     = 7
	ISR_TC      = 6
	ISR_RXNE    = 5
	ISR_IDLE    = 4

	LPUARTx_ICR = 0x20
	ICR_TCCF    = 6
	ICR_IDLECF  = 4

	LPUARTx_RDR = 0x24
	LPUARTx_TDR = 0x28
)

// LPUART represents the low-power UART instance.
type LPUART struct {
	// Base register
	Base uint32
	// Clock enable register offset in RCC
	ENR uint32
	// Clock enable bit
	EN int
	// Clock enable function
	EnableClock func(enr uint32, en int)
	// Kernel clock retrieval function
	Clock func() uint32
	// port speed
	Baudrate uint32

	cr1 uint32
	cr3 uint32
	isr uint32
	icr uint32
	rdr uint32
	tdr uint32
}

// Init initializes and enables the LPUART for 8N1 operation with idle-line
// detection.
func (hw *LPUART) Init() {
	if hw.Base == 0 || hw.EnableClock == nil || hw.Clock == nil {
		panic("invalid LPUART instance")
	}

	if hw.Baudrate == 0 {
		hw.Baudrate = LPUART_DEFAULT_BAUDRATE
	}

	hw.cr1 = hw.Base + LPUARTx_CR1
	hw.cr3 = hw.Base + LPUARTx_CR3
	hw.isr = hw.Base + LPUARTx_ISR
	hw.icr = hw.Base + LPUARTx_ICR
	hw.rdr = hw.Base + LPUARTx_RDR
	hw.tdr = hw.Base + LPUARTx_TDR

	hw.EnableClock(hw.ENR, hw.EN)

	reg.Clear(hw.cr1, CR1_UE)

	// p851, 29.7.4 Baud rate register (LPUART_BRR), RM0367
	//
	//              256 * fck
	// baudrate = ------------
	//                 BRR
	brr := uint64(256) * uint64(hw.Clock()) / uint64(hw.Baudrate)
	reg.Write(hw.Base+LPUARTx_BRR, uint32(brr))

	var cr1 uint32
	// Enable the transmitter
	bits.Set(&cr1, CR1_TE)
	// Enable the receiver
	bits.Set(&cr1, CR1_RE)
	// Detect idle line
	bits.Set(&cr1, CR1_IDLEIE)

	reg.Write(hw.cr1, cr1)
	reg.Set(hw.cr1, CR1_UE)
}

// RxRegister returns the receive data register address for DMA use.
func (hw *LPUART) RxRegister() uint32 {
	return hw.rdr
}

// TxRegister returns the transmit data register address for DMA use.
func (hw *LPUART) TxRegister() uint32 {
	return hw.tdr
}

// EnableRxDMA routes receive data to the DMA controller.
func (hw *LPUART) EnableRxDMA() {
	reg.Set(hw.cr3, CR3_DMAR)
}

// EnableTxDMA routes transmit data requests to the DMA controller.
func (hw *LPUART) EnableTxDMA() {
	reg.Set(hw.cr3, CR3_DMAT)
}

// DisableTxDMA detaches the transmitter from the DMA controller.
func (hw *LPUART) DisableTxDMA() {
	reg.Clear(hw.cr3, CR3_DMAT)
}

// Idle returns whether an idle line has been detected.
func (hw *LPUART) Idle() bool {
	return reg.Get(hw.isr, ISR_IDLE, 1) == 1
}

// ClearIdle clears the idle line detection flag.
func (hw *LPUART) ClearIdle() {
	reg.Write(hw.icr, 1<<ICR_IDLECF)
}

// Tx queues a single character for transmission, it returns false when the
// transmit register is occupied.
func (hw *LPUART) Tx(c byte) bool {
	if reg.Get(hw.isr, ISR_TXE, 1) == 0 {
		return false
	}

	reg.Write(hw.tdr, uint32(c))

	return true
}

// EnableTCInterrupt enables the transmission-complete interrupt.
func (hw *LPUART) EnableTCInterrupt() {
	reg.Set(hw.cr1, CR1_TCIE)
}

// DisableTCInterrupt disables the transmission-complete interrupt.
func (hw *LPUART) DisableTCInterrupt() {
	reg.Clear(hw.cr1, CR1_TCIE)
}

// TxComplete returns whether the last transmission has fully shifted out.
func (hw *LPUART) TxComplete() bool {
	return reg.Get(hw.isr, ISR_TC, 1) == 1
}

// ClearTxComplete clears the transmission-complete flag.
func (hw *LPUART) ClearTxComplete() {
	reg.Write(hw.icr, 1<<ICR_TCCF)
}
