// STM32L0 I2C driver
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package i2c implements a driver for the STM32L0 I2C controllers adopting
// the following reference specifications:
//   - RM0367 - STM32L0x3 advanced ARM-based 32-bit MCUs - Rev 7 2020/01
//
// The controller satisfies periph.io/x/conn/v3/i2c.Bus, only master mode
// is supported.
package i2c

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/craigjb/gameslab-smc/bits"
	"github.com/craigjb/gameslab-smc/internal/reg"
)

// I2C registers
// (p703, 27.7 I2C registers, RM0367)
const (
	// 400 kHz fast mode with a 16 MHz kernel clock
	// (p675, 27.4.9 I2C_TIMINGR register configuration examples, RM0367)
	I2C_DEFAULT_TIMINGR = 0x00310309

	I2Cx_CR1 = 0x00
	CR1_PE   = 0

	I2Cx_CR2    = 0x04
	CR2_AUTOEND = 25
	CR2_NBYTES  = 16
	CR2_STOP    = 14
	CR2_START   = 13
	CR2_RD_WRN  = 10
	CR2_SADD    = 0

	I2Cx_TIMINGR = 0x10

	I2Cx_ISR  = 0x18
	ISR_BUSY  = 15
	ISR_TC    = 6
	ISR_STOPF = 5
	ISR_NACKF = 4
	ISR_RXNE  = 2
	ISR_TXIS  = 1

	I2Cx_ICR   = 0x1c
	ICR_STOPCF = 5
	ICR_NACKCF = 4

	I2Cx_RXDR = 0x24
	I2Cx_TXDR = 0x28
)

// Configuration constants
const (
	// Timeout is the default timeout for I2C operations.
	Timeout = 100 * time.Millisecond

	// Speed is the fixed bus speed.
	Speed = 400 * physic.KiloHertz
)

// I2C represents an I2C port instance.
type I2C struct {
	sync.Mutex

	// Controller index
	Index int
	// Base register
	Base uint32
	// Clock enable register offset in RCC
	ENR uint32
	// Clock enable bit
	EN int
	// Clock enable function
	EnableClock func(enr uint32, en int)
	// Timeout for I2C operations
	Timeout time.Duration
	// Timing sets the TIMINGR register to control the bus clock rate.
	Timing uint32

	cr1  uint32
	cr2  uint32
	isr  uint32
	icr  uint32
	rxdr uint32
	txdr uint32
}

// Init initializes the I2C controller instance.
func (hw *I2C) Init() {
	hw.Lock()
	defer hw.Unlock()

	if hw.Base == 0 || hw.EnableClock == nil {
		panic("invalid I2C controller instance")
	}

	if hw.Timeout == 0 {
		hw.Timeout = Timeout
	}

	if hw.Timing == 0 {
		hw.Timing = I2C_DEFAULT_TIMINGR
	}

	hw.cr1 = hw.Base + I2Cx_CR1
	hw.cr2 = hw.Base + I2Cx_CR2
	hw.isr = hw.Base + I2Cx_ISR
	hw.icr = hw.Base + I2Cx_ICR
	hw.rxdr = hw.Base + I2Cx_RXDR
	hw.txdr = hw.Base + I2Cx_TXDR

	hw.EnableClock(hw.ENR, hw.EN)

	reg.Clear(hw.cr1, CR1_PE)
	reg.Write(hw.Base+I2Cx_TIMINGR, hw.Timing)
	reg.Set(hw.cr1, CR1_PE)
}

// String implements conn.Resource.
func (hw *I2C) String() string {
	return fmt.Sprintf("I2C%d", hw.Index)
}

// SetSpeed implements i2c.Bus, the bus rate is fixed by TIMINGR at
// initialization.
func (hw *I2C) SetSpeed(f physic.Frequency) error {
	if f != Speed {
		return fmt.Errorf("unsupported bus speed %s", f)
	}

	return nil
}

// Tx implements i2c.Bus with a write phase followed by a repeated-start
// read phase (p676, 27.4.10 I2C master mode, RM0367).
func (hw *I2C) Tx(addr uint16, w, r []byte) (err error) {
	hw.Lock()
	defer hw.Unlock()

	if len(w) > 255 || len(r) > 255 {
		return errors.New("transfer size exceeds NBYTES")
	}

	if len(w) > 0 {
		if err = hw.write(addr, w, len(r) == 0); err != nil {
			return
		}
	}

	if len(r) > 0 {
		if err = hw.read(addr, r); err != nil {
			return
		}
	}

	return
}

func (hw *I2C) wait(pos int) error {
	start := time.Now()

	for {
		if reg.Get(hw.isr, ISR_NACKF, 1) == 1 {
			reg.Write(hw.icr, 1<<ICR_NACKCF)
			return errors.New("NACK")
		}

		if reg.Get(hw.isr, pos, 1) == 1 {
			return nil
		}

		if time.Since(start) >= hw.Timeout {
			return fmt.Errorf("timeout waiting for ISR bit %d", pos)
		}
	}
}

func (hw *I2C) write(addr uint16, w []byte, autoEnd bool) (err error) {
	var cr2 uint32

	bits.SetN(&cr2, CR2_SADD, 0x3ff, uint32(addr)<<1)
	bits.SetN(&cr2, CR2_NBYTES, 0xff, uint32(len(w)))

	if autoEnd {
		bits.Set(&cr2, CR2_AUTOEND)
	}

	bits.Set(&cr2, CR2_START)

	reg.Write(hw.cr2, cr2)

	for _, c := range w {
		if err = hw.wait(ISR_TXIS); err != nil {
			return
		}

		reg.Write(hw.txdr, uint32(c))
	}

	if !autoEnd {
		// transfer complete, ready for the repeated start
		return hw.wait(ISR_TC)
	}

	return hw.stop()
}

func (hw *I2C) read(addr uint16, r []byte) (err error) {
	var cr2 uint32

	bits.SetN(&cr2, CR2_SADD, 0x3ff, uint32(addr)<<1)
	bits.SetN(&cr2, CR2_NBYTES, 0xff, uint32(len(r)))
	bits.Set(&cr2, CR2_RD_WRN)
	bits.Set(&cr2, CR2_AUTOEND)
	bits.Set(&cr2, CR2_START)

	reg.Write(hw.cr2, cr2)

	for i := range r {
		if err = hw.wait(ISR_RXNE); err != nil {
			return
		}

		r[i] = byte(reg.Read(hw.rxdr))
	}

	return hw.stop()
}

func (hw *I2C) stop() error {
	if !reg.WaitFor(hw.Timeout, hw.isr, ISR_STOPF, 1, 1) {
		return errors.New("timeout waiting for stop condition")
	}

	reg.Write(hw.icr, 1<<ICR_STOPCF)

	return nil
}

var _ i2c.Bus = (*I2C)(nil)
