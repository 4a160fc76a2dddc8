// STM32L0 GPIO driver
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package gpio implements a driver for the STM32L0 general purpose I/O
// ports adopting the following reference specifications:
//   - RM0367 - STM32L0x3 advanced ARM-based 32-bit MCUs - Rev 7 2020/01
//
// Pins satisfy the periph.io/x/conn/v3/gpio interfaces so that consumers
// can be exercised against gpiotest fakes.
package gpio

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/craigjb/gameslab-smc/internal/reg"
)

// GPIO registers
// (p243, 9.4 GPIO registers, RM0367)
const (
	GPIOx_MODER   = 0x00
	GPIOx_OTYPER  = 0x04
	GPIOx_OSPEEDR = 0x08
	GPIOx_PUPDR   = 0x0c
	GPIOx_IDR     = 0x10
	GPIOx_ODR     = 0x14
	GPIOx_BSRR    = 0x18
	GPIOx_AFRL    = 0x20
	GPIOx_AFRH    = 0x24
)

// Pin modes (MODER)
const (
	MODE_INPUT  = 0b00
	MODE_OUTPUT = 0b01
	MODE_AF     = 0b10
	MODE_ANALOG = 0b11
)

// GPIO represents a port controller instance.
type GPIO struct {
	// Port name ("GPIOA", ...)
	Name string
	// Port index for EXTI routing (PA=0, PB=1, PC=2)
	Index int
	// Base register
	Base uint32
	// Clock enable register offset in RCC
	ENR uint32
	// Clock enable bit
	EN int
	// Clock enable function
	EnableClock func(enr uint32, en int)

	clk bool

	moder   uint32
	otyper  uint32
	ospeedr uint32
	pupdr   uint32
	idr     uint32
	odr     uint32
	bsrr    uint32
	afrl    uint32
	afrh    uint32
}

// Pin instance
type Pin struct {
	port *GPIO
	num  int
}

// Init initializes a pin on the port.
func (hw *GPIO) Init(num int) (pin *Pin, err error) {
	if hw.Base == 0 || hw.EnableClock == nil {
		return nil, errors.New("invalid GPIO controller instance")
	}

	if num > 15 {
		return nil, fmt.Errorf("invalid GPIO number %d", num)
	}

	hw.moder = hw.Base + GPIOx_MODER
	hw.otyper = hw.Base + GPIOx_OTYPER
	hw.ospeedr = hw.Base + GPIOx_OSPEEDR
	hw.pupdr = hw.Base + GPIOx_PUPDR
	hw.idr = hw.Base + GPIOx_IDR
	hw.odr = hw.Base + GPIOx_ODR
	hw.bsrr = hw.Base + GPIOx_BSRR
	hw.afrl = hw.Base + GPIOx_AFRL
	hw.afrh = hw.Base + GPIOx_AFRH

	if !hw.clk {
		hw.EnableClock(hw.ENR, hw.EN)
		hw.clk = true
	}

	return &Pin{port: hw, num: num}, nil
}

// Mode returns the port mode register value, the sleep supervisor saves it
// before forcing pins to analog mode.
func (hw *GPIO) Mode() uint32 {
	return reg.Read(hw.Base + GPIOx_MODER)
}

// SetMode writes the port mode register.
func (hw *GPIO) SetMode(mode uint32) {
	reg.Write(hw.Base+GPIOx_MODER, mode)
}

// Output configures the pin as a push-pull output.
func (p *Pin) Output() {
	reg.Clear(p.port.otyper, p.num)
	reg.SetN(p.port.moder, p.num*2, 0b11, MODE_OUTPUT)
}

// Analog configures the pin as analog, its lowest leakage state.
func (p *Pin) Analog() {
	reg.SetN(p.port.moder, p.num*2, 0b11, MODE_ANALOG)
}

// OpenDrain switches the pin output driver to open drain.
func (p *Pin) OpenDrain() {
	reg.Set(p.port.otyper, p.num)
}

// AltFunc routes the pin to an alternate function.
func (p *Pin) AltFunc(af uint32) {
	if p.num < 8 {
		reg.SetN(p.port.afrl, p.num*4, 0b1111, af)
	} else {
		reg.SetN(p.port.afrh, (p.num-8)*4, 0b1111, af)
	}

	reg.SetN(p.port.moder, p.num*2, 0b11, MODE_AF)
}

// String implements conn.Resource.
func (p *Pin) String() string {
	return fmt.Sprintf("%s%d", p.port.Name, p.num)
}

// Halt implements conn.Resource.
func (p *Pin) Halt() error {
	return nil
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.String()
}

// Number implements pin.Pin.
func (p *Pin) Number() int {
	return p.port.Index*16 + p.num
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	switch reg.Get(p.port.moder, p.num*2, 0b11) {
	case MODE_INPUT:
		return "In"
	case MODE_OUTPUT:
		return "Out"
	case MODE_AF:
		return "Alt"
	}

	return "Analog"
}

// In implements gpio.PinIn. Edge detection is routed through the EXTI
// controller (see soc/stm32l0/exti), requesting it here is an error.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return errors.New("edge detection is managed by the EXTI controller")
	}

	switch pull {
	case gpio.Float, gpio.PullNoChange:
		reg.SetN(p.port.pupdr, p.num*2, 0b11, 0b00)
	case gpio.PullUp:
		reg.SetN(p.port.pupdr, p.num*2, 0b11, 0b01)
	case gpio.PullDown:
		reg.SetN(p.port.pupdr, p.num*2, 0b11, 0b10)
	}

	reg.SetN(p.port.moder, p.num*2, 0b11, MODE_INPUT)

	return nil
}

// Read implements gpio.PinIn.
func (p *Pin) Read() gpio.Level {
	return reg.Get(p.port.idr, p.num, 1) == 1
}

// WaitForEdge implements gpio.PinIn, edges are delivered as EXTI interrupts
// instead of being waited upon.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	return false
}

// Pull implements gpio.PinIn.
func (p *Pin) Pull() gpio.Pull {
	switch reg.Get(p.port.pupdr, p.num*2, 0b11) {
	case 0b01:
		return gpio.PullUp
	case 0b10:
		return gpio.PullDown
	}

	return gpio.Float
}

// DefaultPull implements gpio.PinIn.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.Float
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	if l {
		reg.Write(p.port.bsrr, 1<<uint(p.num))
	} else {
		reg.Write(p.port.bsrr, 1<<uint(p.num+16))
	}

	return nil
}

// PWM implements gpio.PinOut, PWM generation belongs to the timer
// peripheral (see soc/stm32l0/tim).
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return errors.New("PWM is driven by the timer peripheral")
}

var _ gpio.PinIO = (*Pin)(nil)
