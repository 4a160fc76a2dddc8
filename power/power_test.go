// System sleep supervision
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package power

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSystem records the sleep choreography in call order.
type fakeSystem struct {
	log []string

	sleepDeep bool

	sw            uint32
	hseOn         bool
	pllOn         bool
	stopWakeupHSI bool

	wakeupPending int
}

func (f *fakeSystem) note(s string) { f.log = append(f.log, s) }

// CPU
func (f *fakeSystem) SetSleepDeep(deep bool) { f.sleepDeep = deep; f.note("sleepdeep") }
func (f *fakeSystem) WaitForInterrupt()      { f.note("wfi") }
func (f *fakeSystem) Critical(fn func())     { fn() }

// SysTick
func (f *fakeSystem) EnableCounter()    { f.note("systick-counter-on") }
func (f *fakeSystem) DisableCounter()   { f.note("systick-counter-off") }
func (f *fakeSystem) EnableInterrupt()  { f.note("systick-irq-on") }
func (f *fakeSystem) DisableInterrupt() { f.note("systick-irq-off") }

// Clocks
func (f *fakeSystem) SysClockSelect() uint32 { return f.sw }
func (f *fakeSystem) HSEOn() bool            { return f.hseOn }
func (f *fakeSystem) PLLOn() bool            { return f.pllOn }
func (f *fakeSystem) EnableHSE()             { f.note("hse-on") }
func (f *fakeSystem) EnablePLL()             { f.note("pll-on") }

func (f *fakeSystem) SetSysClock(sw uint32) {
	if sw == swHSI {
		f.note("sw-hsi")
	} else {
		f.note("sw-restore")
	}
}

func (f *fakeSystem) SetStopWakeupClock(hsi bool) {
	f.stopWakeupHSI = hsi
	f.note("stopwuck")
}

// Stop
func (f *fakeSystem) ConfigureStop() { f.note("stop-config") }

func (f *fakeSystem) WakeupPending() bool {
	if f.wakeupPending > 0 {
		f.wakeupPending--
		return true
	}

	return false
}

// fakePort is a GPIO port mode register.
type fakePort struct {
	mode    uint32
	history []uint32
}

func (f *fakePort) Mode() uint32 { return f.mode }

func (f *fakePort) SetMode(mode uint32) {
	f.mode = mode
	f.history = append(f.history, mode)
}

type powerRig struct {
	sys *fakeSystem
	a   *fakePort
	b   *fakePort
	c   *fakePort
	sup *Supervisor
}

func newPowerRig() *powerRig {
	r := &powerRig{
		// PLL selected, both oscillators running
		sys: &fakeSystem{sw: 0b11, hseOn: true, pllOn: true},
		a:   &fakePort{mode: 0x28000000},
		b:   &fakePort{mode: 0x00000159},
		c:   &fakePort{mode: 0x00015555},
	}

	r.sup = New(r.sys, r.sys, r.sys, r.sys, r.a, r.b, r.c)

	return r
}

func TestSleepPredicate(t *testing.T) {
	r := newPowerRig()

	r.sup.SetPowerState(true)
	r.sup.SetUSBConnected(true)
	assert.False(t, r.sup.SleepIfNeeded())

	r.sup.SetPowerState(false)
	assert.False(t, r.sup.SleepIfNeeded())

	r.sup.SetUSBConnected(false)
	r.sup.SetPowerState(true)
	assert.False(t, r.sup.SleepIfNeeded())

	assert.Empty(t, r.sys.log, "no entry steps may run while blocked")

	r.sup.SetPowerState(false)
	assert.True(t, r.sup.SleepIfNeeded())
	assert.Contains(t, r.sys.log, "wfi")
}

func TestSleepEntryOrder(t *testing.T) {
	r := newPowerRig()
	r.sys.wakeupPending = 2

	require.True(t, r.sup.SleepIfNeeded())

	assert.Equal(t, []string{
		"systick-counter-off",
		"systick-irq-off",
		"sleepdeep",
		"sw-hsi",
		"stopwuck",
		"stop-config",
		"wfi",
		"hse-on",
		"pll-on",
		"sw-restore",
		"systick-counter-on",
		"systick-irq-on",
	}, r.sys.log)

	assert.True(t, r.sys.sleepDeep)
	assert.True(t, r.sys.stopWakeupHSI)
}

func TestGPIOSaveRestore(t *testing.T) {
	r := newPowerRig()

	savedA := r.a.mode
	savedB := r.b.mode
	savedC := r.c.mode

	require.True(t, r.sup.SleepIfNeeded())

	// every pin except the wake sources forced analog during sleep
	assert.Equal(t, []uint32{0xffcfffff | savedA, savedA}, r.a.history)
	assert.Equal(t, []uint32{0xfffffffc | savedB, savedB}, r.b.history)
	assert.Equal(t, []uint32{0xffffffff, savedC}, r.c.history)

	// and restored exactly on wake
	assert.Equal(t, savedA, r.a.mode)
	assert.Equal(t, savedB, r.b.mode)
	assert.Equal(t, savedC, r.c.mode)
}

func TestClockRestoreSkipsDisabledOscillators(t *testing.T) {
	r := newPowerRig()

	// running from HSI with HSE and PLL down
	r.sys.sw = 0b01
	r.sys.hseOn = false
	r.sys.pllOn = false

	require.True(t, r.sup.SleepIfNeeded())

	assert.NotContains(t, r.sys.log, "hse-on")
	assert.NotContains(t, r.sys.log, "pll-on")
}

func TestWakeAfterButton(t *testing.T) {
	r := newPowerRig()

	require.True(t, r.sup.SleepIfNeeded())

	// the wake interrupt sets the block flag, the next pass stays awake
	r.sup.SetPowerState(true)
	assert.False(t, r.sup.SleepIfNeeded())
}
