// Gameslab board support
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package gameslab wires the STM32L0 peripherals to the Gameslab board:
// pin assignments, peripheral bring-up, and construction of the firmware
// components.
package gameslab

import (
	"periph.io/x/conn/v3/gpio"

	"github.com/craigjb/gameslab-smc/battery"
	"github.com/craigjb/gameslab-smc/bridge"
	"github.com/craigjb/gameslab-smc/button"
	"github.com/craigjb/gameslab-smc/leds"
	"github.com/craigjb/gameslab-smc/power"
	"github.com/craigjb/gameslab-smc/soc/stm32l0"
	"github.com/craigjb/gameslab-smc/soc/stm32l0/dma"
	"github.com/craigjb/gameslab-smc/soc/stm32l0/exti"
	socgpio "github.com/craigjb/gameslab-smc/soc/stm32l0/gpio"
	"github.com/craigjb/gameslab-smc/soc/stm32l0/usb"
	"github.com/craigjb/gameslab-smc/zynq"
)

// USB device identity
const (
	USBVendorID  = 0x5824
	USBProductID = 0x27dd

	USBManufacturer = "craigjb.com"
	USBProduct      = "Gameslab"
	USBSerial       = "0.1.1"
)

// Pin assignments
const (
	// user push-button, active low
	ButtonPin = 0 // PB0
	// indicator LEDs on TIM2 channels 3 and 4
	ChargeLedPin = 10 // PB10
	StatusLedPin = 11 // PB11
	// charger bus
	SclPin = 8 // PB8
	SdaPin = 9 // PB9
	// Zynq console
	UartTxPin = 10 // PC10
	UartRxPin = 11 // PC11
	// USB detect, both edges
	UsbDetectPin = 10 // PA10

	// rail enables PC0-PC3, power-good senses PC4-PC7
	En1V0Pin = 0
	En1V5Pin = 1
	En1V8Pin = 2
	En3V3Pin = 3
	Pg1V0Pin = 4
	Pg1V5Pin = 5
	Pg1V8Pin = 6
	Pg3V3Pin = 7
	// Zynq power-on reset, active low
	ZynqPorPin = 8 // PC8
)

// Alternate function assignments
const (
	afLPUART1 = 0
	afTIM2    = 2
	afI2C1    = 4
)

// PWM carrier frequency for the indicator LEDs.
const LedCarrierHz = 10000

// Board collects the initialized firmware components.
type Board struct {
	Status  *leds.StatusLed
	Charge  *leds.ChargeLed
	Button  *button.Button
	Battery *battery.Battery
	Zynq    *zynq.Zynq
	Bridge  *bridge.Bridge
	Power   *power.Supervisor
	Serial  *usb.Serial

	// wake and detect plumbing
	ButtonLine *exti.Line
	DetectLine *exti.Line
	UsbDetect  *socgpio.Pin
}

// Init brings up the SoC and constructs every firmware component, it must
// run before interrupts are unmasked.
func Init() (b *Board) {
	b = &Board{}

	stm32l0.Init()

	b.initLeds()
	b.initZynq()
	b.initButton()
	b.initBattery()
	b.initPower()
	b.initBridge()

	// initial detect level, edges keep it current from here on
	b.Power.SetUSBConnected(b.UsbDetect.Read() == gpio.High)

	return
}

func (b *Board) initLeds() {
	charge, _ := stm32l0.GPIOB.Init(ChargeLedPin)
	status, _ := stm32l0.GPIOB.Init(StatusLedPin)

	charge.AltFunc(afTIM2)
	status.AltFunc(afTIM2)

	stm32l0.TIM2.Init(LedCarrierHz)

	chargeCh, err := stm32l0.TIM2.Channel(3)

	if err != nil {
		panic(err)
	}

	statusCh, err := stm32l0.TIM2.Channel(4)

	if err != nil {
		panic(err)
	}

	b.Charge = leds.NewChargeLed(chargeCh)
	b.Status = leds.NewStatusLed(statusCh)
}

func (b *Board) initZynq() {
	pin := func(n int, out bool) *socgpio.Pin {
		p, err := stm32l0.GPIOC.Init(n)

		if err != nil {
			panic(err)
		}

		if out {
			p.Output()
		} else {
			p.In(gpio.Float, gpio.NoEdge)
		}

		return p
	}

	supplies := zynq.PowerSupplies{
		En1V0: pin(En1V0Pin, true),
		En1V5: pin(En1V5Pin, true),
		En1V8: pin(En1V8Pin, true),
		En3V3: pin(En3V3Pin, true),
		Pg1V0: pin(Pg1V0Pin, false),
		Pg1V5: pin(Pg1V5Pin, false),
		Pg1V8: pin(Pg1V8Pin, false),
		Pg3V3: pin(Pg3V3Pin, false),
		Por:   pin(ZynqPorPin, true),
	}

	b.Zynq = zynq.New(supplies)
}

func (b *Board) initButton() {
	p, err := stm32l0.GPIOB.Init(ButtonPin)

	if err != nil {
		panic(err)
	}

	p.In(gpio.Float, gpio.NoEdge)

	line, err := stm32l0.EXTI.Init(ButtonPin)

	if err != nil {
		panic(err)
	}

	line.Listen(stm32l0.PortB, exti.Falling)

	b.ButtonLine = line
	b.Button = button.New(line)
}

func (b *Board) initBattery() {
	scl, _ := stm32l0.GPIOB.Init(SclPin)
	sda, _ := stm32l0.GPIOB.Init(SdaPin)

	scl.OpenDrain()
	sda.OpenDrain()
	scl.AltFunc(afI2C1)
	sda.AltFunc(afI2C1)

	stm32l0.I2C1.Init()

	b.Battery = battery.New(stm32l0.I2C1, b.Charge)
}

func (b *Board) initPower() {
	b.Power = power.New(
		stm32l0.CPU, stm32l0.SysTick,
		stm32l0.RCC, stm32l0.PWR,
		stm32l0.GPIOA, stm32l0.GPIOB, stm32l0.GPIOC,
	)

	stm32l0.PWR.Init()

	b.Zynq.OnPowerRequest = b.Power.SetPowerState

	detect, err := stm32l0.GPIOA.Init(UsbDetectPin)

	if err != nil {
		panic(err)
	}

	detect.In(gpio.Float, gpio.NoEdge)

	line, err := stm32l0.EXTI.Init(UsbDetectPin)

	if err != nil {
		panic(err)
	}

	line.Listen(stm32l0.PortA, exti.Both)

	b.UsbDetect = detect
	b.DetectLine = line
}

func (b *Board) initBridge() {
	tx, _ := stm32l0.GPIOC.Init(UartTxPin)
	rx, _ := stm32l0.GPIOC.Init(UartRxPin)

	tx.AltFunc(afLPUART1)
	rx.AltFunc(afLPUART1)

	stm32l0.LPUART1.Init()

	rxCh, err := stm32l0.DMA1.Init(3, dma.REQ_LPUART1_RX)

	if err != nil {
		panic(err)
	}

	txCh, err := stm32l0.DMA1.Init(2, dma.REQ_LPUART1_TX)

	if err != nil {
		panic(err)
	}

	stm32l0.USB.Init()

	b.Serial = &usb.Serial{}
	b.Serial.Init(stm32l0.USB, USBVendorID, USBProductID,
		USBManufacturer, USBProduct, USBSerial)

	b.Bridge = bridge.New(stm32l0.LPUART1, rxCh, txCh, b.Serial)
	b.Bridge.Start()

	// the host always sees a fresh attach
	stm32l0.USB.Reenumerate()
}

// HandleDetect services the USB detect edge, setting the connection flag
// idempotently from the sampled pin level.
func (b *Board) HandleDetect() {
	if b.DetectLine.IsPending() {
		b.DetectLine.Unpend()
		b.Power.SetUSBConnected(b.UsbDetect.Read() == gpio.High)
	}
}
