// STM32L0 general purpose timer driver
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package tim implements a PWM driver for the STM32L0 general purpose
// timers adopting the following reference specifications:
//   - RM0367 - STM32L0x3 advanced ARM-based 32-bit MCUs - Rev 7 2020/01
package tim

import (
	"errors"
	"fmt"

	"github.com/craigjb/gameslab-smc/internal/reg"
)

// TIM registers
// (p573, 21.4 TIM2/TIM3 registers, RM0367)
const (
	TIMx_CR1 = 0x00
	CR1_ARPE = 7
	CR1_CEN  = 0

	TIMx_EGR = 0x14
	EGR_UG   = 0

	TIMx_CCMR1 = 0x18
	TIMx_CCMR2 = 0x1c

	// per capture/compare channel pair, low/high half of CCMRx
	CCMR_OCxM  = 4
	CCMR_OCxPE = 3

	// 110: PWM mode 1
	OCM_PWM1 = 0b110

	TIMx_CCER = 0x20

	TIMx_PSC  = 0x28
	TIMx_ARR  = 0x2c
	TIMx_CCR1 = 0x34
)

// TIM represents a timer instance.
type TIM struct {
	// Base register
	Base uint32
	// Clock enable register offset in RCC
	ENR uint32
	// Clock enable bit
	EN int
	// Clock enable function
	EnableClock func(enr uint32, en int)
	// Timer input clock retrieval function
	Clock func() uint32

	// PWM period in timer counts
	period uint32

	cr1  uint32
	egr  uint32
	ccer uint32
}

// Channel represents a PWM output channel on the timer.
type Channel struct {
	hw  *TIM
	ccr uint32
}

// Init initializes the timer for edge-aligned PWM at the carrier frequency.
func (hw *TIM) Init(carrier uint32) {
	if hw.Base == 0 || hw.EnableClock == nil || hw.Clock == nil {
		panic("invalid TIM instance")
	}

	hw.cr1 = hw.Base + TIMx_CR1
	hw.egr = hw.Base + TIMx_EGR
	hw.ccer = hw.Base + TIMx_CCER

	hw.EnableClock(hw.ENR, hw.EN)

	hw.period = hw.Clock() / carrier

	reg.Write(hw.Base+TIMx_PSC, 0)
	reg.Write(hw.Base+TIMx_ARR, hw.period-1)

	// auto-reload preload
	reg.Set(hw.cr1, CR1_ARPE)
	// latch PSC/ARR
	reg.Set(hw.egr, EGR_UG)
	// start counting
	reg.Set(hw.cr1, CR1_CEN)
}

// MaxDuty returns the duty value corresponding to a constantly high output.
func (hw *TIM) MaxDuty() uint16 {
	return uint16(hw.period)
}

// Channel configures capture/compare channel n (1..4) as a PWM output and
// returns its handle.
func (hw *TIM) Channel(n int) (ch *Channel, err error) {
	if n < 1 || n > 4 {
		return nil, fmt.Errorf("invalid timer channel %d", n)
	}

	if hw.period == 0 {
		return nil, errors.New("timer not initialized")
	}

	ccmr := hw.Base + TIMx_CCMR1
	if n > 2 {
		ccmr = hw.Base + TIMx_CCMR2
	}

	// high half of the register for even-indexed channels of the pair
	shift := ((n - 1) % 2) * 8

	reg.SetN(ccmr, shift+CCMR_OCxM, 0b111, OCM_PWM1)
	reg.Set(ccmr, shift+CCMR_OCxPE)

	// CCxE, one nibble per channel
	reg.Set(hw.ccer, (n-1)*4)

	ch = &Channel{
		hw:  hw,
		ccr: hw.Base + TIMx_CCR1 + uint32(n-1)*4,
	}

	ch.SetDuty(0)

	return
}

// SetDuty programs the channel compare value in timer counts.
func (ch *Channel) SetDuty(duty uint16) {
	reg.Write(ch.ccr, uint32(duty))
}
