// STM32L0 reset and clock control driver
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package rcc implements a driver for the STM32L0 reset and clock control
// peripheral adopting the following reference specifications:
//   - RM0367 - STM32L0x3 advanced ARM-based 32-bit MCUs - Rev 7 2020/01
package rcc

import (
	"github.com/craigjb/gameslab-smc/internal/reg"
)

// RCC registers
// (p195, 7.3 RCC registers, RM0367)
const (
	RCCx_CR   = 0x00
	CR_PLLRDY = 25
	CR_PLLON  = 24
	CR_HSERDY = 17
	CR_HSEON  = 16
	CR_HSIRDY = 2
	CR_HSION  = 0

	RCCx_CRRCR     = 0x08
	CRRCR_HSI48RDY = 1
	CRRCR_HSI48ON  = 0

	RCCx_CFGR     = 0x0c
	CFGR_STOPWUCK = 15
	CFGR_PLLDIV   = 22
	CFGR_PLLMUL   = 18
	CFGR_PLLSRC   = 16
	CFGR_SWS      = 2
	CFGR_SW       = 0

	RCCx_IOPENR  = 0x2c
	RCCx_AHBENR  = 0x30
	RCCx_APB2ENR = 0x34
	RCCx_APB1ENR = 0x38

	RCCx_CCIPR       = 0x4c
	CCIPR_HSI48SEL   = 26
	CCIPR_LPUART1SEL = 10
)

// System clock sources (CFGR.SW)
const (
	SW_MSI = 0b00
	SW_HSI = 0b01
	SW_HSE = 0b10
	SW_PLL = 0b11
)

// Oscillator frequencies
const (
	HSI_FREQ   = 16000000
	HSE_FREQ   = 12000000
	HSI48_FREQ = 48000000

	// HSE 12 MHz * 8 / 4 (p167, 7.2.4 PLL, RM0367)
	PLL_FREQ = 24000000
)

// RCC represents the reset and clock control instance.
type RCC struct {
	// Base register
	Base uint32

	// control registers
	cr    uint32
	crrcr uint32
	cfgr  uint32
	ccipr uint32
}

// Init initializes the clock controller instance.
func (hw *RCC) Init() {
	if hw.Base == 0 {
		panic("invalid RCC instance")
	}

	hw.cr = hw.Base + RCCx_CR
	hw.crrcr = hw.Base + RCCx_CRRCR
	hw.cfgr = hw.Base + RCCx_CFGR
	hw.ccipr = hw.Base + RCCx_CCIPR
}

// EnableClock sets a peripheral clock gate, addressed as enable register
// offset and bit position, the register layout is shared with peripheral
// driver instances (see ENR/EN fields across soc/stm32l0).
func (hw *RCC) EnableClock(enr uint32, en int) {
	reg.Set(hw.Base+enr, en)
}

// SysClock returns the currently selected system clock switch value
// (CFGR.SWS).
func (hw *RCC) SysClock() uint32 {
	return reg.Get(hw.cfgr, CFGR_SWS, 0b11)
}

// SysClockSelect returns the requested system clock switch value (CFGR.SW).
func (hw *RCC) SysClockSelect() uint32 {
	return reg.Get(hw.cfgr, CFGR_SW, 0b11)
}

// SysClockFreq returns the system clock frequency for the active switch
// position.
func (hw *RCC) SysClockFreq() uint32 {
	switch hw.SysClock() {
	case SW_HSI:
		return HSI_FREQ
	case SW_HSE:
		return HSE_FREQ
	case SW_PLL:
		return PLL_FREQ
	}

	// MSI range 5 default
	return 2097000
}

// SetSysClock requests a system clock switch and spins until the status
// bits reflect the new source.
func (hw *RCC) SetSysClock(sw uint32) {
	reg.SetN(hw.cfgr, CFGR_SW, 0b11, sw)
	reg.Wait(hw.cfgr, CFGR_SWS, 0b11, sw)
}

// HSEOn returns whether the high-speed external oscillator is enabled.
func (hw *RCC) HSEOn() bool {
	return reg.Get(hw.cr, CR_HSEON, 1) == 1
}

// EnableHSE turns the high-speed external oscillator on and spins until it
// is ready.
func (hw *RCC) EnableHSE() {
	reg.Set(hw.cr, CR_HSEON)
	reg.Wait(hw.cr, CR_HSERDY, 1, 1)
}

// PLLOn returns whether the PLL is enabled.
func (hw *RCC) PLLOn() bool {
	return reg.Get(hw.cr, CR_PLLON, 1) == 1
}

// EnablePLL turns the PLL on and spins until it locks.
func (hw *RCC) EnablePLL() {
	reg.Set(hw.cr, CR_PLLON)
	reg.Wait(hw.cr, CR_PLLRDY, 1, 1)
}

// EnableHSI turns the high-speed internal oscillator on and spins until it
// is ready.
func (hw *RCC) EnableHSI() {
	reg.Set(hw.cr, CR_HSION)
	reg.Wait(hw.cr, CR_HSIRDY, 1, 1)
}

// SetStopWakeupClock selects the oscillator used when waking from Stop
// mode, true selects HSI16.
func (hw *RCC) SetStopWakeupClock(hsi bool) {
	reg.SetTo(hw.cfgr, CFGR_STOPWUCK, hsi)
}

// EnableHSI48 turns on the 48 MHz internal oscillator and selects it as the
// USB kernel clock.
func (hw *RCC) EnableHSI48() {
	reg.Set(hw.crrcr, CRRCR_HSI48ON)
	reg.Wait(hw.crrcr, CRRCR_HSI48RDY, 1, 1)

	reg.Set(hw.ccipr, CCIPR_HSI48SEL)
}

// SetLPUARTClock selects the LPUART1 kernel clock, values as per
// CCIPR.LPUART1SEL (0b00 APB, 0b01 system clock, 0b10 HSI16, 0b11 LSE).
func (hw *RCC) SetLPUARTClock(sel uint32) {
	reg.SetN(hw.ccipr, CCIPR_LPUART1SEL, 0b11, sel)
}
