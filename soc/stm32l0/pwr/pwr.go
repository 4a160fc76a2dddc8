// STM32L0 power controller driver
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package pwr implements a driver for the STM32L0 power controller
// adopting the following reference specifications:
//   - RM0367 - STM32L0x3 advanced ARM-based 32-bit MCUs - Rev 7 2020/01
package pwr

import (
	"github.com/craigjb/gameslab-smc/internal/reg"
)

// PWR registers
// (p135, 6.4 PWR registers, RM0367)
const (
	PWRx_CR   = 0x00
	CR_ULP    = 9
	CR_CWUF   = 2
	CR_PDDS   = 1
	CR_LPSDSR = 0

	PWRx_CSR = 0x04
	CSR_WUF  = 0
)

// PWR represents the power controller instance.
type PWR struct {
	// Base register
	Base uint32
	// Clock enable register offset in RCC
	ENR uint32
	// Clock enable bit
	EN int
	// Clock enable function
	EnableClock func(enr uint32, en int)

	cr  uint32
	csr uint32
}

// Init initializes the power controller instance.
func (hw *PWR) Init() {
	if hw.Base == 0 || hw.EnableClock == nil {
		panic("invalid PWR instance")
	}

	hw.cr = hw.Base + PWRx_CR
	hw.csr = hw.Base + PWRx_CSR

	hw.EnableClock(hw.ENR, hw.EN)
}

// ConfigureStop programs Stop mode with the ultra-low-power option and the
// regulator in low-power sleep, clearing the wakeup flag.
func (hw *PWR) ConfigureStop() {
	r := reg.Read(hw.cr)

	// VREFINT off in low-power mode
	r |= (1 << CR_ULP)
	// clear the wakeup flag
	r |= (1 << CR_CWUF)
	// Stop mode rather than Standby on deep sleep
	r &= ^uint32(1 << CR_PDDS)
	// regulator in low-power mode during sleep
	r |= (1 << CR_LPSDSR)

	reg.Write(hw.cr, r)
}

// WakeupPending returns whether the wakeup flag is still set.
func (hw *PWR) WakeupPending() bool {
	return reg.Get(hw.csr, CSR_WUF, 1) == 1
}
