// USB descriptor support
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// Endpoint transfer types (p270, Table 9-13, USB2.0)
const (
	TRANSFER_TYPE_CONTROL = iota
	TRANSFER_TYPE_ISOCHRONOUS
	TRANSFER_TYPE_BULK
	TRANSFER_TYPE_INTERRUPT
)

// Descriptor constants
const (
	// p290, Table 9-8, USB2.0
	DEVICE_LENGTH = 18
	// p293, Table 9-10, USB2.0
	CONFIGURATION_LENGTH = 9
	// p296, Table 9-12, USB2.0
	INTERFACE_LENGTH = 9
	// p297, Table 9-13, USB2.0
	ENDPOINT_LENGTH = 7
)

// DeviceDescriptor implements
// p290, Table 9-8. Standard Device Descriptor, USB2.0.
type DeviceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	bcdUSB            uint16
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize     uint8
	VendorId          uint16
	ProductId         uint16
	Device            uint16
	Manufacturer      uint8
	Product           uint8
	SerialNumber      uint8
	NumConfigurations uint8
}

// SetDefaults initializes default values for the USB device descriptor.
func (d *DeviceDescriptor) SetDefaults() {
	d.Length = DEVICE_LENGTH
	d.DescriptorType = DEVICE
	// USB 2.0
	d.bcdUSB = 0x0200
	// full speed control endpoint
	d.MaxPacketSize = maxPacketSize
	d.NumConfigurations = 1
}

// Bytes converts the descriptor structure to byte array format.
func (d *DeviceDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d)
	return buf.Bytes()
}

// ConfigurationDescriptor implements
// p293, Table 9-10. Standard Configuration Descriptor, USB2.0.
type ConfigurationDescriptor struct {
	Length             uint8
	DescriptorType     uint8
	TotalLength        uint16
	NumInterfaces      uint8
	ConfigurationValue uint8
	Configuration      uint8
	Attributes         uint8
	MaxPower           uint8

	Interfaces []*InterfaceDescriptor
}

// SetDefaults initializes default values for the USB configuration
// descriptor.
func (d *ConfigurationDescriptor) SetDefaults() {
	d.Length = CONFIGURATION_LENGTH
	d.DescriptorType = CONFIGURATION
	d.NumInterfaces = 1
	d.ConfigurationValue = 1
	// bus powered
	d.Attributes = 0x80
	// 500 mA
	d.MaxPower = 250
}

// Bytes converts the descriptor structure to byte array format.
func (d *ConfigurationDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.LittleEndian, d.Length)
	binary.Write(buf, binary.LittleEndian, d.DescriptorType)
	binary.Write(buf, binary.LittleEndian, d.TotalLength)
	binary.Write(buf, binary.LittleEndian, d.NumInterfaces)
	binary.Write(buf, binary.LittleEndian, d.ConfigurationValue)
	binary.Write(buf, binary.LittleEndian, d.Configuration)
	binary.Write(buf, binary.LittleEndian, d.Attributes)
	binary.Write(buf, binary.LittleEndian, d.MaxPower)

	return buf.Bytes()
}

// InterfaceDescriptor implements
// p296, Table 9-12. Standard Interface Descriptor, USB2.0.
type InterfaceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	InterfaceNumber   uint8
	AlternateSetting  uint8
	NumEndpoints      uint8
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8
	Interface         uint8

	ClassDescriptors [][]byte
	Endpoints        []*EndpointDescriptor
}

// SetDefaults initializes default values for the USB interface descriptor.
func (d *InterfaceDescriptor) SetDefaults() {
	d.Length = INTERFACE_LENGTH
	d.DescriptorType = INTERFACE
	d.NumEndpoints = 1
}

// Bytes converts the descriptor structure to byte array format.
func (d *InterfaceDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.LittleEndian, d.Length)
	binary.Write(buf, binary.LittleEndian, d.DescriptorType)
	binary.Write(buf, binary.LittleEndian, d.InterfaceNumber)
	binary.Write(buf, binary.LittleEndian, d.AlternateSetting)
	binary.Write(buf, binary.LittleEndian, d.NumEndpoints)
	binary.Write(buf, binary.LittleEndian, d.InterfaceClass)
	binary.Write(buf, binary.LittleEndian, d.InterfaceSubClass)
	binary.Write(buf, binary.LittleEndian, d.InterfaceProtocol)
	binary.Write(buf, binary.LittleEndian, d.Interface)

	return buf.Bytes()
}

// EndpointDescriptor implements
// p297, Table 9-13. Standard Endpoint Descriptor, USB2.0.
type EndpointDescriptor struct {
	Length          uint8
	DescriptorType  uint8
	EndpointAddress uint8
	Attributes      uint8
	MaxPacketSize   uint16
	Interval        uint8
}

// SetDefaults initializes default values for the USB endpoint descriptor.
func (d *EndpointDescriptor) SetDefaults() {
	d.Length = ENDPOINT_LENGTH
	d.DescriptorType = ENDPOINT
}

// Bytes converts the descriptor structure to byte array format.
func (d *EndpointDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d)
	return buf.Bytes()
}

// StringDescriptor implements
// p273, 9.6.7 String, USB2.0.
type StringDescriptor struct {
	Length         uint8
	DescriptorType uint8
}

// SetDefaults initializes default values for the USB string descriptor.
func (d *StringDescriptor) SetDefaults() {
	d.Length = 2
	d.DescriptorType = STRING
}

// Device is a USB device.
type Device struct {
	Descriptor     *DeviceDescriptor
	Configurations []*ConfigurationDescriptor
	Strings        [][]byte

	// Setup handles class- or vendor-specific setup requests, it returns
	// response data or an acknowledgment request, done skips standard
	// handling.
	Setup func(setup *SetupData) (in []byte, ack bool, done bool, err error)

	// ConfigurationValue holds the active configuration.
	ConfigurationValue uint8
	// AlternateSetting holds the interface alternate setting.
	AlternateSetting uint8
}

// SetLanguageCodes initializes a default language code string descriptor
// (English).
func (d *Device) SetLanguageCodes() (err error) {
	if len(d.Strings) > 0 {
		return
	}

	s := &StringDescriptor{}
	s.SetDefaults()
	s.Length += 2

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, s)
	binary.Write(buf, binary.LittleEndian, uint16(0x0409))

	d.Strings = append(d.Strings, buf.Bytes())

	return
}

// AddString adds a string descriptor and returns its index.
func (d *Device) AddString(s string) (index uint8) {
	d.SetLanguageCodes()

	desc := &StringDescriptor{}
	desc.SetDefaults()

	r := []rune(s)
	desc.Length += uint8(len(r) * 2)

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, desc)

	for _, c := range r {
		binary.Write(buf, binary.LittleEndian, uint16(c))
	}

	d.Strings = append(d.Strings, buf.Bytes())

	return uint8(len(d.Strings) - 1)
}

// Configuration assembles the configuration descriptor hierarchy in byte
// array format, computing its total length.
func (d *Device) Configuration(index uint16) (buf []byte, err error) {
	if int(index) >= len(d.Configurations) {
		return nil, errors.New("invalid configuration index")
	}

	conf := d.Configurations[index]

	buf = conf.Bytes()

	for _, iface := range conf.Interfaces {
		buf = append(buf, iface.Bytes()...)

		for _, class := range iface.ClassDescriptors {
			buf = append(buf, class...)
		}

		for _, ep := range iface.Endpoints {
			buf = append(buf, ep.Bytes()...)
		}
	}

	// fix up the total length in place
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(buf)))

	return
}
