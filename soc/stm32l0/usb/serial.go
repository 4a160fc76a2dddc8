// USB CDC-ACM serial function
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

// Serial function constants
const (
	// communication (notification) interface endpoint
	notifyEndpoint = 2
	// data interface endpoint, both directions
	dataEndpoint = 1

	serialBufferSize = 256
)

// Serial implements a CDC-ACM function exposing a virtual serial port.
// Read and Write never block: reads return what has been received, writes
// queue what fits and silently drop the remainder, the device is a console
// bridge rather than a lossless pipe.
type Serial struct {
	hw *USB

	// OUT traffic, host to device
	rx    [serialBufferSize]byte
	rxIn  int
	rxOut int

	// IN traffic, device to host
	tx    [serialBufferSize]byte
	txIn  int
	txOut int

	txBusy bool
	packet [maxPacketSize]byte

	// last SET_LINE_CODING payload, reported back on GET_LINE_CODING
	lineCoding []byte
}

// Init attaches the serial function to the controller, building the device
// descriptor hierarchy.
func (s *Serial) Init(hw *USB, vendor uint16, product uint16, manufacturer, name, serial string) {
	s.hw = hw

	// 115200 8N1, the line coding is cosmetic as the bridge speaks to
	// the LPUART at a fixed rate
	s.lineCoding = []byte{0x00, 0xc2, 0x01, 0x00, 0x00, 0x00, 0x08}

	device := &Device{}

	device.Descriptor = &DeviceDescriptor{}
	device.Descriptor.SetDefaults()
	device.Descriptor.DeviceClass = COMMUNICATION_DEVICE_CLASS
	device.Descriptor.VendorId = vendor
	device.Descriptor.ProductId = product
	device.Descriptor.Manufacturer = device.AddString(manufacturer)
	device.Descriptor.Product = device.AddString(name)
	device.Descriptor.SerialNumber = device.AddString(serial)

	conf := &ConfigurationDescriptor{}
	conf.SetDefaults()
	conf.NumInterfaces = 2

	device.Configurations = append(device.Configurations, conf)

	// communication interface
	comm := &InterfaceDescriptor{}
	comm.SetDefaults()
	comm.InterfaceNumber = 0
	comm.InterfaceClass = COMMUNICATION_INTERFACE_CLASS
	comm.InterfaceSubClass = ACM_SUBCLASS

	header := &CDCHeaderDescriptor{}
	header.SetDefaults()

	call := &CDCCallManagementDescriptor{}
	call.SetDefaults()
	call.DataInterface = 1

	acm := &CDCAbstractControlManagementDescriptor{}
	acm.SetDefaults()

	union := &CDCUnionDescriptor{}
	union.SetDefaults()
	union.MasterInterface = 0
	union.SlaveInterface0 = 1

	comm.ClassDescriptors = append(comm.ClassDescriptors,
		header.Bytes(), call.Bytes(), acm.Bytes(), union.Bytes())

	notify := &EndpointDescriptor{}
	notify.SetDefaults()
	notify.EndpointAddress = 0x80 | notifyEndpoint
	notify.Attributes = TRANSFER_TYPE_INTERRUPT
	notify.MaxPacketSize = 8
	notify.Interval = 255

	comm.Endpoints = append(comm.Endpoints, notify)

	// data interface
	data := &InterfaceDescriptor{}
	data.SetDefaults()
	data.InterfaceNumber = 1
	data.NumEndpoints = 2
	data.InterfaceClass = DATA_INTERFACE_CLASS

	out := &EndpointDescriptor{}
	out.SetDefaults()
	out.EndpointAddress = dataEndpoint
	out.Attributes = TRANSFER_TYPE_BULK
	out.MaxPacketSize = maxPacketSize

	in := &EndpointDescriptor{}
	in.SetDefaults()
	in.EndpointAddress = 0x80 | dataEndpoint
	in.Attributes = TRANSFER_TYPE_BULK
	in.MaxPacketSize = maxPacketSize

	data.Endpoints = append(data.Endpoints, out, in)

	conf.Interfaces = append(conf.Interfaces, comm, data)

	device.Setup = s.setup

	hw.Device = device
	hw.Configure = s.configure
	hw.outHandler[dataEndpoint] = s.epOut
	hw.inHandler[dataEndpoint] = s.epIn
}

// configure enables the data endpoints once the host selects the
// configuration.
func (s *Serial) configure() {
	s.hw.configure(dataEndpoint, EP_TYPE_BULK)
	s.hw.configure(notifyEndpoint, EP_TYPE_INTERRUPT)

	s.txBusy = false

	s.hw.armRx(dataEndpoint, ep1RxOffset)
}

// setup services the CDC class requests.
func (s *Serial) setup(setup *SetupData) (in []byte, ack bool, done bool, err error) {
	switch setup.Request {
	case GET_LINE_CODING:
		return s.lineCoding, false, true, nil
	case SET_LINE_CODING, SET_CONTROL_LINE_STATE:
		// accepted and otherwise ignored, the LPUART rate is fixed
		return nil, true, true, nil
	}

	return
}

func (s *Serial) epOut(buf []byte) {
	for _, c := range buf {
		next := (s.rxIn + 1) % serialBufferSize

		if next == s.rxOut {
			// receiver not draining, drop the rest
			break
		}

		s.rx[s.rxIn] = c
		s.rxIn = next
	}

	s.hw.armRx(dataEndpoint, ep1RxOffset)
}

func (s *Serial) epIn() {
	s.txBusy = false
	s.kick()
}

// kick starts an IN transaction when one is not already in flight.
func (s *Serial) kick() {
	if s.txBusy || s.txIn == s.txOut {
		return
	}

	n := 0

	for s.txOut != s.txIn && n < maxPacketSize {
		s.packet[n] = s.tx[s.txOut]
		s.txOut = (s.txOut + 1) % serialBufferSize
		n++
	}

	s.txBusy = true
	s.hw.txPacket(dataEndpoint, ep1TxOffset, s.packet[:n])
}

// Write queues data for transmission to the host, returning the amount
// accepted, the remainder is dropped.
func (s *Serial) Write(buf []byte) (n int, err error) {
	for _, c := range buf {
		next := (s.txIn + 1) % serialBufferSize

		if next == s.txOut {
			break
		}

		s.tx[s.txIn] = c
		s.txIn = next
		n++
	}

	s.kick()

	return
}

// Read drains received data into buf, it never blocks.
func (s *Serial) Read(buf []byte) (n int, err error) {
	for n < len(buf) && s.rxOut != s.rxIn {
		buf[n] = s.rx[s.rxOut]
		s.rxOut = (s.rxOut + 1) % serialBufferSize
		n++
	}

	return
}
