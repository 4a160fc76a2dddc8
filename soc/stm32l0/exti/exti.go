// STM32L0 extended interrupt controller driver
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package exti implements a driver for the STM32L0 extended interrupt and
// event controller adopting the following reference specifications:
//   - RM0367 - STM32L0x3 advanced ARM-based 32-bit MCUs - Rev 7 2020/01
package exti

import (
	"errors"
	"fmt"

	"github.com/craigjb/gameslab-smc/internal/reg"
)

// EXTI registers
// (p288, 13.5 EXTI registers, RM0367)
const (
	EXTIx_IMR  = 0x00
	EXTIx_RTSR = 0x08
	EXTIx_FTSR = 0x0c
	EXTIx_PR   = 0x14
)

// SYSCFG registers
// (p279, 10.2 SYSCFG registers, RM0367)
const (
	SYSCFGx_EXTICR1 = 0x08
)

// Trigger edges
const (
	Rising = iota
	Falling
	Both
)

// EXTI represents the extended interrupt controller instance.
type EXTI struct {
	// Base register
	Base uint32
	// SYSCFG base register, routes GPIO ports to EXTI lines
	SyscfgBase uint32
	// SYSCFG clock enable register offset in RCC
	ENR uint32
	// SYSCFG clock enable bit
	EN int
	// Clock enable function
	EnableClock func(enr uint32, en int)

	clk bool

	imr  uint32
	rtsr uint32
	ftsr uint32
	pr   uint32
}

// Line instance
type Line struct {
	hw  *EXTI
	num int
}

// Init initializes an EXTI line.
func (hw *EXTI) Init(num int) (line *Line, err error) {
	if hw.Base == 0 || hw.SyscfgBase == 0 || hw.EnableClock == nil {
		return nil, errors.New("invalid EXTI controller instance")
	}

	if num > 15 {
		return nil, fmt.Errorf("invalid EXTI line %d", num)
	}

	hw.imr = hw.Base + EXTIx_IMR
	hw.rtsr = hw.Base + EXTIx_RTSR
	hw.ftsr = hw.Base + EXTIx_FTSR
	hw.pr = hw.Base + EXTIx_PR

	if !hw.clk {
		hw.EnableClock(hw.ENR, hw.EN)
		hw.clk = true
	}

	return &Line{hw: hw, num: num}, nil
}

// Listen routes a GPIO port to the line and unmasks it for the requested
// trigger edge.
func (l *Line) Listen(port int, edge int) {
	// four 4-bit port selectors per EXTICR register
	cr := l.hw.SyscfgBase + SYSCFGx_EXTICR1 + uint32(l.num/4)*4
	reg.SetN(cr, (l.num%4)*4, 0b1111, uint32(port))

	switch edge {
	case Rising:
		reg.Set(l.hw.rtsr, l.num)
		reg.Clear(l.hw.ftsr, l.num)
	case Falling:
		reg.Clear(l.hw.rtsr, l.num)
		reg.Set(l.hw.ftsr, l.num)
	case Both:
		reg.Set(l.hw.rtsr, l.num)
		reg.Set(l.hw.ftsr, l.num)
	}

	reg.Set(l.hw.imr, l.num)
}

// IsPending returns whether an edge has been latched on the line.
func (l *Line) IsPending() bool {
	return reg.Get(l.hw.pr, l.num, 1) == 1
}

// Unpend clears the latched edge, the pending register is write-one-to-
// clear.
func (l *Line) Unpend() {
	reg.Write(l.hw.pr, 1<<uint(l.num))
}
