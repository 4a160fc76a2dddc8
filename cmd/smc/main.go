// Gameslab system management controller firmware
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// The system management controller sits next to the Zynq SoC of the
// Gameslab handheld: it sequences the SoC supply rails on the power
// button, reports charger status on the charge LED, bridges the SoC
// console to a USB CDC serial port, and puts itself into Stop mode when
// nothing demands attention.
package main

import (
	"io"
	"log"
	"os"

	"github.com/craigjb/gameslab-smc/board/gameslab"
	"github.com/craigjb/gameslab-smc/soc/stm32l0"
)

const verbose = false

// scheduler tick rate, 10 Hz
const tickHz = 10

// ticks is advanced only by the SysTick handler.
var ticks uint32

func init() {
	log.SetFlags(0)

	if verbose {
		log.SetOutput(os.Stdout)
	} else {
		log.SetOutput(io.Discard)
	}
}

// tick runs at priority 2, it advances time-based logic, the bridge
// interrupts may preempt it.
func tick(b *gameslab.Board) {
	ticks++
	now := ticks

	b.Battery.Tick(now)
	b.Zynq.Tick(now)
}

// buttonEdge runs at priority 2 on the push-button falling edge.
func buttonEdge(b *gameslab.Board) {
	if !b.Button.WasToggled(ticks) {
		return
	}

	b.Zynq.PowerToggle()

	if b.Zynq.IsPowerOn() {
		b.Status.On()
	} else {
		b.Status.Off()
	}
}

func main() {
	b := gameslab.Init()

	nvic := stm32l0.NVIC

	// The three bridge handlers share the bridge state, an equal
	// priority keeps them from preempting each other.
	nvic.SetHandler(stm32l0.IRQ_USB, func() {
		stm32l0.USB.Poll()
		b.Bridge.InterruptUSB()
	})
	nvic.SetHandler(stm32l0.IRQ_DMA1_CH2_3, b.Bridge.InterruptDMA)
	nvic.SetHandler(stm32l0.IRQ_AES_RNG_LPUART1, b.Bridge.InterruptUART)

	nvic.SetPriority(stm32l0.IRQ_USB, 3)
	nvic.SetPriority(stm32l0.IRQ_DMA1_CH2_3, 3)
	nvic.SetPriority(stm32l0.IRQ_AES_RNG_LPUART1, 3)

	nvic.SetHandler(stm32l0.IRQ_EXTI0_1, func() { buttonEdge(b) })
	nvic.SetHandler(stm32l0.IRQ_EXTI4_15, b.HandleDetect)

	nvic.SetPriority(stm32l0.IRQ_EXTI0_1, 2)
	nvic.SetPriority(stm32l0.IRQ_EXTI4_15, 2)

	stm32l0.SysTick.SetSysTickHandler(func() { tick(b) })
	stm32l0.SysTick.SetPriority(2)

	nvic.Enable(stm32l0.IRQ_USB)
	nvic.Enable(stm32l0.IRQ_DMA1_CH2_3)
	nvic.Enable(stm32l0.IRQ_AES_RNG_LPUART1)
	nvic.Enable(stm32l0.IRQ_EXTI0_1)
	nvic.Enable(stm32l0.IRQ_EXTI4_15)

	stm32l0.SysTick.Init(stm32l0.RCC.SysClockFreq()/tickHz - 1)

	stm32l0.CPU.EnableInterrupts()

	log.Printf("smc: up, sysclk %d Hz", stm32l0.RCC.SysClockFreq())

	for {
		// the battery state is shared with the tick handler, raise
		// the ceiling while the blocking transaction runs
		stm32l0.CPU.Critical(b.Battery.UpdateIfNeeded)

		b.Power.SleepIfNeeded()
	}
}
