// ARM Cortex-M0+ core support
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build arm

// Package cortexm provides support for the ARM Cortex-M0+ core peripherals
// (SCB, SysTick, NVIC) and the core instructions required for low-power
// operation.
package cortexm

import (
	"github.com/craigjb/gameslab-smc/internal/reg"
)

// System Control Block registers
// (B3.2, ARMv6-M Architecture Reference Manual)
const (
	SCB_SCR       = 0xe000ed10
	SCR_SEVONPEND = 4
	SCR_SLEEPDEEP = 2

	SCB_AIRCR         = 0xe000ed0c
	AIRCR_VECTKEY     = 16
	AIRCR_SYSRESETREQ = 2
)

// CPU represents the Cortex-M0+ core instance.
type CPU struct{}

// defined in cortexm.s
func wfi()
func dsb()
func isb()
func cpsid()
func cpsie()
func busyloop(count int32)

// Busyloop spins the core for the argument number of loop cycles.
func Busyloop(count int) {
	busyloop(int32(count))
}

// EnableInterrupts unmasks interrupts through PRIMASK.
func (cpu *CPU) EnableInterrupts() {
	cpsie()
}

// DisableInterrupts masks all maskable interrupts through PRIMASK.
func (cpu *CPU) DisableInterrupts() {
	cpsid()
}

// Critical runs fn with all maskable interrupts disabled. The M0+ core has
// no BASEPRI register, a priority ceiling therefore degenerates to a global
// interrupt mask.
func (cpu *CPU) Critical(fn func()) {
	cpsid()
	fn()
	cpsie()
}

// SetSleepDeep selects between deep sleep (Stop) and regular sleep as the
// target state of the next WFI.
func (cpu *CPU) SetSleepDeep(deep bool) {
	reg.SetTo(SCB_SCR, SCR_SLEEPDEEP, deep)
}

// WaitForInterrupt issues a data synchronization barrier followed by WFI,
// suspending execution until an enabled interrupt pends.
func (cpu *CPU) WaitForInterrupt() {
	dsb()
	wfi()
}
