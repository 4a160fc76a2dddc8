// ARM Cortex-M0+ core support
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build arm

package cortexm

import (
	"github.com/craigjb/gameslab-smc/internal/reg"
)

// NVIC registers
// (B3.4, ARMv6-M Architecture Reference Manual)
const (
	NVIC_ISER = 0xe000e100
	NVIC_ICER = 0xe000e180
	NVIC_ISPR = 0xe000e200
	NVIC_ICPR = 0xe000e280
	NVIC_IPR  = 0xe000e400
)

// The M0+ implements 4 preemption levels in the two most significant bits of
// each priority byte. Hardware level 0 preempts all others, the scheduling
// model in this firmware is expressed the other way around (numerically
// higher wins), SetPriority performs the inversion.
const priorityLevels = 4

// NVIC represents the interrupt controller instance.
type NVIC struct{}

// Enable enables an interrupt line.
func (hw *NVIC) Enable(irq int) {
	reg.Write(NVIC_ISER, 1<<uint(irq))
}

// Disable disables an interrupt line.
func (hw *NVIC) Disable(irq int) {
	reg.Write(NVIC_ICER, 1<<uint(irq))
}

// ClearPending clears the pending state of an interrupt line.
func (hw *NVIC) ClearPending(irq int) {
	reg.Write(NVIC_ICPR, 1<<uint(irq))
}

// SetPriority assigns a scheduling priority (0..3, numerically higher
// preempts) to an interrupt line.
func (hw *NVIC) SetPriority(irq int, prio int) {
	if prio < 0 || prio >= priorityLevels {
		panic("invalid interrupt priority")
	}

	hwprio := uint32(priorityLevels-1-prio) << 6

	addr := uint32(NVIC_IPR) + uint32(irq/4)*4
	shift := (irq % 4) * 8

	reg.SetN(addr, shift, 0xff, hwprio)
}
