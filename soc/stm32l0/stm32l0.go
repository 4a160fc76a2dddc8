// STM32L0 SoC support
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package stm32l0 provides support for the STM32L0x3 microcontroller
// family, modeled on the following reference specifications:
//   - RM0367 - STM32L0x3 advanced ARM-based 32-bit MCUs - Rev 7 2020/01
//
// Peripheral instances are handed out as package singletons, each owning
// component must Init() its controller instance once before use. The GPIO,
// EXTI and DMA instances hand out pins, lines and channels through one
// Init() call each.
package stm32l0

import (
	"github.com/craigjb/gameslab-smc/cortexm"
	"github.com/craigjb/gameslab-smc/soc/stm32l0/dma"
	"github.com/craigjb/gameslab-smc/soc/stm32l0/exti"
	"github.com/craigjb/gameslab-smc/soc/stm32l0/gpio"
	"github.com/craigjb/gameslab-smc/soc/stm32l0/i2c"
	"github.com/craigjb/gameslab-smc/soc/stm32l0/lpuart"
	"github.com/craigjb/gameslab-smc/soc/stm32l0/pwr"
	"github.com/craigjb/gameslab-smc/soc/stm32l0/rcc"
	"github.com/craigjb/gameslab-smc/soc/stm32l0/tim"
	"github.com/craigjb/gameslab-smc/soc/stm32l0/usb"
)

// Peripheral base addresses
// (p57, 2.2.2 Memory map and register boundary addresses, RM0367)
const (
	TIM2_BASE    = 0x40000000
	LPUART1_BASE = 0x40004800
	I2C1_BASE    = 0x40005400
	USB_BASE     = 0x40005c00
	USB_PMA_BASE = 0x40006000
	PWR_BASE     = 0x40007000
	SYSCFG_BASE  = 0x40010000
	EXTI_BASE    = 0x40010400
	DMA1_BASE    = 0x40020000
	RCC_BASE     = 0x40021000
	GPIOA_BASE   = 0x50000000
	GPIOB_BASE   = 0x50000400
	GPIOC_BASE   = 0x50000800
)

// Interrupt assignments
// (p288, 13.3 Interrupt and exception vectors, RM0367)
const (
	IRQ_EXTI0_1         = 5
	IRQ_EXTI4_15        = 7
	IRQ_DMA1_CH2_3      = 10
	IRQ_TIM2            = 15
	IRQ_I2C1            = 23
	IRQ_AES_RNG_LPUART1 = 29
	IRQ_USB             = 31
)

// GPIO port indexes for EXTI routing
const (
	PortA = iota
	PortB
	PortC
)

// Clock enable bit assignments
const (
	IOPENR_IOPAEN = 0
	IOPENR_IOPBEN = 1
	IOPENR_IOPCEN = 2

	AHBENR_DMAEN = 0

	APB2ENR_SYSCFGEN = 0

	APB1ENR_TIM2EN    = 0
	APB1ENR_LPUART1EN = 18
	APB1ENR_USBEN     = 23
	APB1ENR_CRSEN     = 27
	APB1ENR_I2C1EN    = 21
	APB1ENR_PWREN     = 28
)

// Core peripheral instances
var (
	CPU     = &cortexm.CPU{}
	SysTick = &cortexm.SysTick{}
	NVIC    = &cortexm.NVIC{}
)

// Peripheral instances
var (
	RCC = &rcc.RCC{
		Base: RCC_BASE,
	}

	GPIOA = &gpio.GPIO{
		Name:        "GPIOA",
		Index:       PortA,
		Base:        GPIOA_BASE,
		ENR:         rcc.RCCx_IOPENR,
		EN:          IOPENR_IOPAEN,
		EnableClock: enableClock,
	}

	GPIOB = &gpio.GPIO{
		Name:        "GPIOB",
		Index:       PortB,
		Base:        GPIOB_BASE,
		ENR:         rcc.RCCx_IOPENR,
		EN:          IOPENR_IOPBEN,
		EnableClock: enableClock,
	}

	GPIOC = &gpio.GPIO{
		Name:        "GPIOC",
		Index:       PortC,
		Base:        GPIOC_BASE,
		ENR:         rcc.RCCx_IOPENR,
		EN:          IOPENR_IOPCEN,
		EnableClock: enableClock,
	}

	EXTI = &exti.EXTI{
		Base:        EXTI_BASE,
		SyscfgBase:  SYSCFG_BASE,
		ENR:         rcc.RCCx_APB2ENR,
		EN:          APB2ENR_SYSCFGEN,
		EnableClock: enableClock,
	}

	TIM2 = &tim.TIM{
		Base:        TIM2_BASE,
		ENR:         rcc.RCCx_APB1ENR,
		EN:          APB1ENR_TIM2EN,
		EnableClock: enableClock,
		Clock:       sysClockFreq,
	}

	LPUART1 = &lpuart.LPUART{
		Base:        LPUART1_BASE,
		ENR:         rcc.RCCx_APB1ENR,
		EN:          APB1ENR_LPUART1EN,
		EnableClock: enableClock,
		Clock:       lpuartClockFreq,
	}

	DMA1 = &dma.DMA{
		Base:        DMA1_BASE,
		ENR:         rcc.RCCx_AHBENR,
		EN:          AHBENR_DMAEN,
		EnableClock: enableClock,
	}

	I2C1 = &i2c.I2C{
		Index:       1,
		Base:        I2C1_BASE,
		ENR:         rcc.RCCx_APB1ENR,
		EN:          APB1ENR_I2C1EN,
		EnableClock: enableClock,
	}

	PWR = &pwr.PWR{
		Base:        PWR_BASE,
		ENR:         rcc.RCCx_APB1ENR,
		EN:          APB1ENR_PWREN,
		EnableClock: enableClock,
	}

	USB = &usb.USB{
		Base:          USB_BASE,
		PMA:           USB_PMA_BASE,
		ENR:           rcc.RCCx_APB1ENR,
		EN:            APB1ENR_USBEN,
		EnableClock:   enableClock,
		EnableClock48: enableUSBClock,
		Delay:         cortexm.Busyloop,
	}
)

func enableClock(enr uint32, en int) {
	RCC.EnableClock(enr, en)
}

func enableUSBClock() {
	RCC.EnableHSI48()
}

func sysClockFreq() uint32 {
	return RCC.SysClockFreq()
}

func lpuartClockFreq() uint32 {
	// LPUART1 kernel clock runs from HSI16 so the bridge keeps working
	// across system clock switches
	return rcc.HSI_FREQ
}

// Init takes care of the lower level SoC initialization.
func Init() {
	RCC.Init()
	RCC.SetLPUARTClock(0b10)
}
