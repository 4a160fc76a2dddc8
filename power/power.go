// System sleep supervision
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package power decides when the controller itself may enter Stop mode
// and performs the clock and GPIO choreography around it. The supervisor
// is the only process-wide mutable state in the firmware, its flag
// mutators run from interrupt handlers and are serialized by a critical
// section.
package power

// CPU is the core-level support the supervisor needs.
type CPU interface {
	SetSleepDeep(deep bool)
	WaitForInterrupt()
	Critical(fn func())
}

// SysTick is the scheduler tick timer, silenced across sleep.
type SysTick interface {
	EnableCounter()
	DisableCounter()
	EnableInterrupt()
	DisableInterrupt()
}

// Clocks is the clock tree surface saved and restored across sleep.
type Clocks interface {
	SysClockSelect() uint32
	SetSysClock(sw uint32)
	HSEOn() bool
	EnableHSE()
	PLLOn() bool
	EnablePLL()
	SetStopWakeupClock(hsi bool)
}

// Stop is the power controller programming the Stop mode.
type Stop interface {
	ConfigureStop()
	WakeupPending() bool
}

// Port is a GPIO port whose mode register is forced to analog across
// sleep.
type Port interface {
	Mode() uint32
	SetMode(mode uint32)
}

// internal oscillator selection for the sleep transition
const swHSI = 0b01

// Port mode masks applied while sleeping, every pin turns analog except
// the wake sources: the USB detect input on port A and the push-button on
// port B.
const (
	sleepModeMaskA = 0xffcfffff
	sleepModeMaskB = 0xfffffffc
	sleepModeMaskC = 0xffffffff
)

// Supervisor owns the sleep decision and the state saved across it.
type Supervisor struct {
	cpu     CPU
	systick SysTick
	clocks  Clocks
	stop    Stop

	gpioA Port
	gpioB Port
	gpioC Port

	// sleep is blocked while either flag is set
	powerState   bool
	usbConnected bool

	// clock state saved across Stop mode
	swBits uint32
	hseOn  bool
	pllOn  bool

	// port modes saved across Stop mode
	gpioAMode uint32
	gpioBMode uint32
	gpioCMode uint32
}

// New returns a sleep supervisor over the core, clock, and port surfaces.
func New(cpu CPU, systick SysTick, clocks Clocks, stop Stop, gpioA, gpioB, gpioC Port) *Supervisor {
	return &Supervisor{
		cpu:     cpu,
		systick: systick,
		clocks:  clocks,
		stop:    stop,
		gpioA:   gpioA,
		gpioB:   gpioB,
		gpioC:   gpioC,
	}
}

// SetPowerState records whether the Zynq wants its supplies up, blocking
// sleep while set.
func (s *Supervisor) SetPowerState(state bool) {
	s.cpu.Critical(func() {
		s.powerState = state
	})
}

// SetUSBConnected records the USB detect level, blocking sleep while set.
func (s *Supervisor) SetUSBConnected(state bool) {
	s.cpu.Critical(func() {
		s.usbConnected = state
	})
}

// SleepIfNeeded enters Stop mode when nothing demands attention, it
// returns true after the subsequent wakeup and false when sleep is
// blocked.
func (s *Supervisor) SleepIfNeeded() bool {
	blocked := true

	s.cpu.Critical(func() {
		blocked = s.powerState || s.usbConnected
	})

	if blocked {
		return false
	}

	s.systick.DisableCounter()
	s.systick.DisableInterrupt()
	s.cpu.SetSleepDeep(true)

	// save the clock tree
	s.swBits = s.clocks.SysClockSelect()
	s.hseOn = s.clocks.HSEOn()
	s.pllOn = s.clocks.PLLOn()

	s.prepareGPIOForSleep()

	// run from the internal oscillator while stopping
	s.clocks.SetSysClock(swHSI)
	s.clocks.SetStopWakeupClock(true)

	s.stop.ConfigureStop()

	for s.stop.WakeupPending() {
	}

	// execution suspends here until a wake interrupt pends
	s.cpu.WaitForInterrupt()

	s.wakeGPIOFromSleep()
	s.handleWakeup()

	return true
}

func (s *Supervisor) prepareGPIOForSleep() {
	s.gpioAMode = s.gpioA.Mode()
	s.gpioBMode = s.gpioB.Mode()
	s.gpioCMode = s.gpioC.Mode()

	s.gpioA.SetMode(sleepModeMaskA | s.gpioAMode)
	s.gpioB.SetMode(sleepModeMaskB | s.gpioBMode)
	s.gpioC.SetMode(sleepModeMaskC)
}

func (s *Supervisor) wakeGPIOFromSleep() {
	s.gpioA.SetMode(s.gpioAMode)
	s.gpioB.SetMode(s.gpioBMode)
	s.gpioC.SetMode(s.gpioCMode)
}

func (s *Supervisor) handleWakeup() {
	if s.hseOn {
		s.clocks.EnableHSE()
	}

	if s.pllOn {
		s.clocks.EnablePLL()
	}

	s.clocks.SetSysClock(s.swBits)

	s.systick.EnableCounter()
	s.systick.EnableInterrupt()
}
