// USB to UART bridging
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bridge

import (
	"bytes"
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRx models the circular receive channel, fed by writeStream.
type fakeRx struct {
	buf []byte
	pos int

	complete bool
	half     bool
	started  bool
}

func (f *fakeRx) ConfigureRx(peripheral uint32, buf []byte) { f.buf = buf }
func (f *fakeRx) Start()                                    { f.started = true }
func (f *fakeRx) Complete() bool                            { return f.complete }
func (f *fakeRx) ClearComplete()                            { f.complete = false }
func (f *fakeRx) HalfComplete() bool                        { return f.half }
func (f *fakeRx) ClearHalfComplete()                        { f.half = false }

func (f *fakeRx) Remaining() int {
	r := len(f.buf) - f.pos%len(f.buf)

	if r == 0 {
		r = len(f.buf)
	}

	return r
}

// writeStream feeds bytes the way the DMA engine would, raising the half
// and full flags as the write position crosses them.
func (f *fakeRx) writeStream(data []byte) {
	for _, c := range data {
		f.buf[f.pos%len(f.buf)] = c
		f.pos++

		switch f.pos % len(f.buf) {
		case 0:
			f.complete = true
		case len(f.buf) / 2:
			f.half = true
		}
	}
}

// fakeTx models the one-shot transmit channel.
type fakeTx struct {
	configured []byte
	enabled    bool
	complete   bool
}

func (f *fakeTx) ConfigureTx(peripheral uint32, buf []byte) { f.configured = buf }
func (f *fakeTx) Start()                                    { f.enabled = true }
func (f *fakeTx) Stop()                                     { f.enabled = false }
func (f *fakeTx) Enabled() bool                             { return f.enabled }
func (f *fakeTx) Complete() bool                            { return f.complete }
func (f *fakeTx) ClearComplete()                            { f.complete = false }

// fakeUART captures transmitted bytes and simulates the idle and TC flags.
type fakeUART struct {
	sent []byte

	idle      bool
	txAccept  bool
	tc        bool
	tcEnabled bool
	rxDMA     bool
	txDMA     bool
}

func (f *fakeUART) RxRegister() uint32   { return 0x1000 }
func (f *fakeUART) TxRegister() uint32   { return 0x1004 }
func (f *fakeUART) EnableRxDMA()         { f.rxDMA = true }
func (f *fakeUART) EnableTxDMA()         { f.txDMA = true }
func (f *fakeUART) DisableTxDMA()        { f.txDMA = false }
func (f *fakeUART) Idle() bool           { return f.idle }
func (f *fakeUART) ClearIdle()           { f.idle = false }
func (f *fakeUART) EnableTCInterrupt()   { f.tcEnabled = true }
func (f *fakeUART) DisableTCInterrupt()  { f.tcEnabled = false }
func (f *fakeUART) TxComplete() bool     { return f.tc }
func (f *fakeUART) ClearTxComplete()     { f.tc = false }

func (f *fakeUART) Tx(c byte) bool {
	if !f.txAccept {
		return false
	}

	f.sent = append(f.sent, c)

	return true
}

// fakePort is the USB serial endpoint pair.
type fakePort struct {
	pending  []byte
	received bytes.Buffer
}

func (f *fakePort) Read(p []byte) (n int, err error) {
	n = copy(p, f.pending)
	f.pending = f.pending[n:]

	return
}

func (f *fakePort) Write(p []byte) (n int, err error) {
	return f.received.Write(p)
}

type bridgeRig struct {
	rx   *fakeRx
	tx   *fakeTx
	uart *fakeUART
	port *fakePort
	b    *Bridge
}

func newBridgeRig() *bridgeRig {
	r := &bridgeRig{
		rx:   &fakeRx{},
		tx:   &fakeTx{},
		uart: &fakeUART{txAccept: true},
		port: &fakePort{},
	}

	r.b = New(r.uart, r.rx, r.tx, r.port)
	r.b.Start()

	return r
}

// finishDMA completes the in-flight transmit transfer, crediting the
// configured bytes to the UART.
func (r *bridgeRig) finishDMA(t *testing.T) {
	t.Helper()
	require.True(t, r.tx.enabled)

	r.uart.sent = append(r.uart.sent, r.tx.configured...)
	r.tx.complete = true

	r.b.InterruptDMA()
}

func TestBridgeStart(t *testing.T) {
	r := newBridgeRig()

	assert.True(t, r.rx.started)
	assert.True(t, r.uart.rxDMA)
	assert.Len(t, r.rx.buf, InBufferSize)
}

func TestRxIdleDrain(t *testing.T) {
	r := newBridgeRig()

	r.rx.writeStream([]byte("zynq boot ok"))
	r.uart.idle = true
	r.b.InterruptUART()

	assert.Equal(t, "zynq boot ok", r.port.received.String())
}

func TestRxCoverage(t *testing.T) {
	r := newBridgeRig()

	var stream []byte
	seq := byte(0)

	feed := func(n int) {
		chunk := make([]byte, n)

		for i := range chunk {
			chunk[i] = seq
			seq++
		}

		stream = append(stream, chunk...)
		r.rx.writeStream(chunk)
	}

	idle := func() {
		r.uart.idle = true
		r.b.InterruptUART()
	}

	// a partial burst drained by the idle line
	feed(10)
	idle()

	// up to the half mark, drained by the half-transfer event
	feed(54)
	r.b.InterruptDMA()

	// across the end of the ring, drained by the full-transfer event
	feed(64)
	r.b.InterruptDMA()

	// and a wrapped partial burst again
	feed(2)
	idle()

	// interleaved idle before the half event fires
	feed(30)
	idle()
	feed(32)
	r.b.InterruptDMA()

	if diff := deep.Equal(stream, r.port.received.Bytes()); diff != nil {
		t.Error(diff)
	}
}

func TestRxIdleNothingNew(t *testing.T) {
	r := newBridgeRig()

	// an idle with nothing new forwards nothing
	r.uart.idle = true
	r.b.InterruptUART()

	assert.Zero(t, r.port.received.Len())
}

func TestTxFIFO(t *testing.T) {
	r := newBridgeRig()

	r.port.pending = []byte("run bootgen")
	r.b.InterruptUSB()

	// one transfer in flight at a time
	require.True(t, r.tx.enabled)
	assert.Equal(t, []byte("run bootgen"), r.tx.configured)

	// more traffic lands in the queue while the DMA runs
	r.port.pending = []byte(" --split")
	r.b.InterruptUSB()
	assert.Equal(t, []byte("run bootgen"), r.tx.configured)

	r.finishDMA(t)

	// completion hands the next region straight to the DMA
	require.True(t, r.tx.enabled)

	r.finishDMA(t)
	assert.False(t, r.tx.enabled)

	assert.Equal(t, []byte("run bootgen --split"), r.uart.sent)
}

func TestTxSingleByte(t *testing.T) {
	r := newBridgeRig()

	r.port.pending = []byte("x")
	r.b.InterruptUSB()

	// single bytes bypass the DMA
	assert.False(t, r.tx.enabled)
	assert.Equal(t, []byte("x"), r.uart.sent)
	assert.True(t, r.uart.tcEnabled)

	// the TC interrupt closes the cycle
	r.uart.tc = true
	r.b.InterruptUART()

	assert.False(t, r.uart.tcEnabled)
	assert.Zero(t, r.b.queue.Len())
}

func TestTxSingleByteDeferred(t *testing.T) {
	r := newBridgeRig()

	// transmit register occupied, the byte stays queued
	r.uart.txAccept = false

	r.port.pending = []byte("y")
	r.b.InterruptUSB()

	assert.Empty(t, r.uart.sent)
	assert.Equal(t, 1, r.b.queue.Len())

	// TC fires when the register frees up, the byte goes out then
	r.uart.txAccept = true
	r.uart.tc = true
	r.b.InterruptUART()

	assert.Equal(t, []byte("y"), r.uart.sent)
	assert.Zero(t, r.b.queue.Len())
}

func TestTxOrderAcrossPaths(t *testing.T) {
	r := newBridgeRig()

	// multi-byte burst followed by a single byte
	r.port.pending = []byte("ab")
	r.b.InterruptUSB()

	r.port.pending = []byte("c")
	r.b.InterruptUSB()

	r.finishDMA(t)

	// the trailing byte went out through the register path
	r.uart.tc = true
	r.b.InterruptUART()

	assert.Equal(t, []byte("abc"), r.uart.sent)
}

func TestDrain(t *testing.T) {
	r := newBridgeRig()

	// hold DMA back so the queue stays loaded
	r.tx.enabled = true

	r.port.pending = []byte("panic: rail stuck")
	r.b.InterruptUSB()

	r.tx.enabled = false
	r.b.Drain()

	assert.Equal(t, []byte("panic: rail stuck"), r.uart.sent)
}
