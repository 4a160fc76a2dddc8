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

// SysTick registers
// (B3.3, ARMv6-M Architecture Reference Manual)
const (
	SYST_CSR      = 0xe000e010
	CSR_COUNTFLAG = 16
	CSR_CLKSOURCE = 2
	CSR_TICKINT   = 1
	CSR_ENABLE    = 0

	SYST_RVR = 0xe000e014
	SYST_CVR = 0xe000e018

	// SysTick priority byte in System Handler Priority Register 3
	SCB_SHPR3    = 0xe000ed20
	SHPR3_PRI_15 = 24
)

// SysTick represents the core periodic timer.
type SysTick struct{}

// Init programs the reload value and starts the counter with its interrupt
// enabled, clocked from the processor clock.
func (st *SysTick) Init(reload uint32) {
	reg.Write(SYST_RVR, reload&0x00ffffff)
	reg.Write(SYST_CVR, 0)

	var csr uint32 = (1 << CSR_CLKSOURCE) | (1 << CSR_TICKINT) | (1 << CSR_ENABLE)
	reg.Write(SYST_CSR, csr)
}

// SetPriority assigns a scheduling priority (0..3, numerically higher
// preempts) to the SysTick exception, mirroring NVIC.SetPriority.
func (st *SysTick) SetPriority(prio int) {
	if prio < 0 || prio >= priorityLevels {
		panic("invalid interrupt priority")
	}

	hwprio := uint32(priorityLevels-1-prio) << 6

	reg.SetN(SCB_SHPR3, SHPR3_PRI_15, 0xff, hwprio)
}

// EnableCounter starts the counter.
func (st *SysTick) EnableCounter() {
	reg.Set(SYST_CSR, CSR_ENABLE)
}

// DisableCounter stops the counter.
func (st *SysTick) DisableCounter() {
	reg.Clear(SYST_CSR, CSR_ENABLE)
}

// EnableInterrupt enables the SysTick exception request.
func (st *SysTick) EnableInterrupt() {
	reg.Set(SYST_CSR, CSR_TICKINT)
}

// DisableInterrupt disables the SysTick exception request.
func (st *SysTick) DisableInterrupt() {
	reg.Clear(SYST_CSR, CSR_TICKINT)
}
