// USB to UART bridging
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bridge forwards bytes between the USB CDC serial port and the
// Zynq console LPUART in both directions.
//
// Receive traffic streams through a circular DMA ring drained to USB on
// three events: DMA half transfer, DMA full transfer, and UART idle line.
// Transmit traffic is queued by the USB interrupt and handed to the UART
// through one DMA transfer at a time. The three interrupt handlers share
// the bridge state and must run at the same priority.
package bridge

import (
	"io"
)

// InBufferSize is the receive DMA ring size.
const InBufferSize = 128

// WriteGrantSize caps a single transmit queue grant, matching the largest
// read the USB endpoint can hand over at once.
const WriteGrantSize = 128

// inBuffer is referenced by the DMA hardware and therefore lives in static
// storage.
var inBuffer [InBufferSize]byte

// RxChannel is the circular DMA channel behind the UART receiver.
type RxChannel interface {
	ConfigureRx(peripheral uint32, buf []byte)
	Start()
	Remaining() int
	Complete() bool
	ClearComplete()
	HalfComplete() bool
	ClearHalfComplete()
}

// TxChannel is the one-shot DMA channel feeding the UART transmitter.
type TxChannel interface {
	ConfigureTx(peripheral uint32, buf []byte)
	Start()
	Stop()
	Enabled() bool
	Complete() bool
	ClearComplete()
}

// UART is the console uart the bridge forwards through.
type UART interface {
	RxRegister() uint32
	TxRegister() uint32
	EnableRxDMA()
	EnableTxDMA()
	DisableTxDMA()
	Idle() bool
	ClearIdle()
	Tx(c byte) bool
	EnableTCInterrupt()
	DisableTCInterrupt()
	TxComplete() bool
	ClearTxComplete()
}

// Bridge shuttles bytes between the USB serial port and the UART.
type Bridge struct {
	uart UART
	rx   RxChannel
	tx   TxChannel
	port io.ReadWriter

	queue Queue

	// receive ring drain cursor
	lastFlush int

	// length of the read grant owned by the in-flight DMA transfer
	txCurReadLen int

	// single-byte fallback armed the transmission-complete interrupt
	txTCArmed bool
}

// New returns a bridge over the UART, its two DMA channels, and the USB
// serial port.
func New(uart UART, rx RxChannel, tx TxChannel, port io.ReadWriter) *Bridge {
	return &Bridge{
		uart: uart,
		rx:   rx,
		tx:   tx,
		port: port,
	}
}

// Start arms the circular receive DMA, it runs until reconfigured and
// wraps on its own.
func (b *Bridge) Start() {
	b.rx.ConfigureRx(b.uart.RxRegister(), inBuffer[:])
	b.rx.ClearComplete()
	b.rx.ClearHalfComplete()
	b.uart.EnableRxDMA()
	b.rx.Start()
}

// flush forwards the ring region between the drain cursor and pos to the
// USB port. A port that would block drops the chunk, the bridge is a
// console, not a lossless pipe.
func (b *Bridge) flush(pos int) {
	if pos > b.lastFlush {
		b.port.Write(inBuffer[b.lastFlush:pos])
	}
}

// InterruptDMA services the DMA channel interrupts: receive ring half and
// full transfers, and transmit completion.
func (b *Bridge) InterruptDMA() {
	if b.rx.Complete() {
		b.rx.ClearComplete()
		b.flush(InBufferSize)
		b.lastFlush = 0
	} else if b.rx.HalfComplete() {
		b.rx.ClearHalfComplete()
		b.flush(InBufferSize / 2)
		b.lastFlush = InBufferSize / 2
	}

	if b.tx.Complete() {
		b.tx.Stop()

		for b.tx.Enabled() {
			// wait for the channel to report disabled before
			// reconfiguring
		}

		b.tx.ClearComplete()
		b.uart.DisableTxDMA()

		b.queue.ReleaseRead(b.txCurReadLen)
		b.txCurReadLen = 0

		b.startTx()
	}
}

// InterruptUART services the LPUART interrupt: idle line detection on the
// receive path and transmission complete on the single-byte transmit
// fallback.
func (b *Bridge) InterruptUART() {
	if b.uart.Idle() {
		b.uart.ClearIdle()

		pos := InBufferSize - b.rx.Remaining()

		b.flush(pos)
		b.lastFlush = pos
	}

	if b.txTCArmed && b.uart.TxComplete() {
		b.txTCArmed = false
		b.uart.DisableTCInterrupt()
		b.uart.ClearTxComplete()

		b.startTx()
	}
}

// InterruptUSB services the USB interrupt, pumping host data into the
// transmit queue.
func (b *Bridge) InterruptUSB() {
	grant := b.queue.WriteGrant(WriteGrantSize)

	if len(grant) == 0 {
		// queue full, the endpoint keeps the data until the next
		// interrupt
		b.queue.CommitWrite(0)
		return
	}

	n, err := b.port.Read(grant)

	if err != nil {
		n = 0
	}

	b.queue.CommitWrite(n)

	if n > 0 {
		b.startTx()
	}
}

// startTx hands the next queued region to the UART, it is the only
// starter of transmissions and refuses to overlap an in-flight DMA
// transfer.
func (b *Bridge) startTx() {
	if b.tx.Enabled() {
		return
	}

	grant := b.queue.ReadGrant()

	switch {
	case len(grant) > 1:
		b.tx.ConfigureTx(b.uart.TxRegister(), grant)
		b.txCurReadLen = len(grant)
		b.uart.EnableTxDMA()
		b.tx.Start()
	case len(grant) == 1:
		// a one-transfer DMA duplicates the byte on this part, write
		// the data register directly and ride the TC interrupt
		b.uart.ClearTxComplete()
		b.uart.EnableTCInterrupt()
		b.txTCArmed = true

		if b.uart.Tx(grant[0]) {
			b.queue.ReleaseRead(1)
		}
	}
}

// Drain empties the transmit queue through the polled UART path, it
// blocks and is only meant for shutdown or panic reporting.
func (b *Bridge) Drain() {
	for {
		grant := b.queue.ReadGrant()

		if len(grant) == 0 {
			return
		}

		for _, c := range grant {
			for !b.uart.Tx(c) {
			}
		}

		b.queue.ReleaseRead(len(grant))
	}
}
