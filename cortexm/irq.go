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
	"fmt"

	_ "unsafe"
)

// The M0+ NVIC dispatches up to 32 external interrupt lines, the vector
// table entry points (see vectors.s in the build scaffolding) trampoline
// into the runtime which hands the active line number to irqHandler.
const maxIRQ = 32

var irqHandlerFn [maxIRQ]func()
var sysTickHandlerFn func()

//go:linkname irqHandler runtime.irqHandler
//go:nosplit
func irqHandler(irq int) {
	if fn := irqHandlerFn[irq]; fn != nil {
		fn()
		return
	}

	panic(fmt.Sprintf("unhandled interrupt %d", irq))
}

//go:linkname sysTickHandler runtime.sysTickHandler
//go:nosplit
func sysTickHandler() {
	if sysTickHandlerFn != nil {
		sysTickHandlerFn()
	}
}

// SetHandler registers the handler function for an interrupt line, it must
// be invoked before the line is enabled on the NVIC.
func (hw *NVIC) SetHandler(irq int, fn func()) {
	if irq < 0 || irq >= maxIRQ {
		panic("invalid interrupt number")
	}

	irqHandlerFn[irq] = fn
}

// SetSysTickHandler registers the handler function for the SysTick
// exception.
func (st *SysTick) SetSysTickHandler(fn func()) {
	sysTickHandlerFn = fn
}
