// USB device mode support
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"encoding/binary"
	"fmt"
	"log"
)

// Format of Setup Data (p276, Table 9-2, USB2.0)
const (
	REQUEST_TYPE_DIR = 7
)

// Standard request codes (p279, Table 9-4, USB2.0)
const (
	GET_STATUS        = 0
	CLEAR_FEATURE     = 1
	SET_FEATURE       = 3
	SET_ADDRESS       = 5
	GET_DESCRIPTOR    = 6
	SET_DESCRIPTOR    = 7
	GET_CONFIGURATION = 8
	SET_CONFIGURATION = 9
	GET_INTERFACE     = 10
	SET_INTERFACE     = 11
)

// Descriptor types (p279, Table 9-5, USB2.0)
const (
	DEVICE        = 1
	CONFIGURATION = 2
	STRING        = 3
	INTERFACE     = 4
	ENDPOINT      = 5
)

// SetupData implements
// p276, Table 9-2. Format of Setup Data, USB2.0.
type SetupData struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
}

func parseSetup(buf []byte) (setup *SetupData) {
	if len(buf) < 8 {
		return
	}

	return &SetupData{
		RequestType: buf[0],
		Request:     buf[1],
		Value:       binary.LittleEndian.Uint16(buf[2:]),
		Index:       binary.LittleEndian.Uint16(buf[4:]),
		Length:      binary.LittleEndian.Uint16(buf[6:]),
	}
}

func (hw *USB) getDescriptor(setup *SetupData) (err error) {
	bDescriptorType := setup.Value & 0xff
	index := setup.Value >> 8

	switch bDescriptorType {
	case DEVICE:
		hw.tx0(trim(hw.Device.Descriptor.Bytes(), setup.Length))
	case CONFIGURATION:
		var conf []byte

		if conf, err = hw.Device.Configuration(index); err != nil {
			hw.stall(0, IN)
			return
		}

		hw.tx0(trim(conf, setup.Length))
	case STRING:
		if int(index+1) > len(hw.Device.Strings) {
			hw.stall(0, IN)
			err = fmt.Errorf("invalid string descriptor index %d", index)
		} else {
			hw.tx0(trim(hw.Device.Strings[index], setup.Length))
		}
	default:
		hw.stall(0, IN)
		err = fmt.Errorf("unsupported descriptor type %#x", bDescriptorType)
	}

	return
}

func (hw *USB) handleSetup(setup *SetupData) {
	if setup == nil {
		return
	}

	if hw.Device.Setup != nil {
		in, ack, done, err := hw.Device.Setup(setup)

		if err != nil {
			hw.stall(0, IN)
			return
		} else if len(in) != 0 {
			hw.tx0(trim(in, setup.Length))
		} else if ack {
			hw.ack0(setup)
		}

		if done || err != nil {
			return
		}
	}

	var err error

	switch setup.Request {
	case GET_STATUS:
		// no meaningful status to report for now
		hw.tx0([]byte{0x00, 0x00})
	case CLEAR_FEATURE, SET_FEATURE:
		hw.ack0(setup)
	case SET_ADDRESS:
		// latched after the status stage completes
		hw.pendingAddr = uint32(setup.Value & 0x7f)
		hw.ack0(setup)
	case GET_DESCRIPTOR:
		err = hw.getDescriptor(setup)
	case GET_CONFIGURATION:
		hw.tx0([]byte{hw.Device.ConfigurationValue})
	case SET_CONFIGURATION:
		hw.Device.ConfigurationValue = uint8(setup.Value)

		if hw.Configure != nil {
			hw.Configure()
		}

		hw.ack0(setup)
	case GET_INTERFACE:
		hw.tx0([]byte{hw.Device.AlternateSetting})
	case SET_INTERFACE:
		hw.Device.AlternateSetting = uint8(setup.Value)
		hw.ack0(setup)
	default:
		hw.stall(0, IN)
		err = fmt.Errorf("unsupported request code %#x", setup.Request)
	}

	if err != nil {
		log.Printf("usb: setup error, %v", err)
	}
}

// ack0 completes a no-data or OUT request, for an OUT request with a data
// phase the zero-length status packet is deferred until the data arrives.
func (hw *USB) ack0(setup *SetupData) {
	if (setup.RequestType>>REQUEST_TYPE_DIR)&1 == 0 && setup.Length > 0 {
		hw.ctrlOutLen = int(setup.Length)
		hw.armRx(0, ep0RxOffset)
		return
	}

	hw.txPacket(0, ep0TxOffset, nil)
}

func trim(buf []byte, wLength uint16) []byte {
	if int(wLength) < len(buf) {
		buf = buf[0:wLength]
	}

	return buf
}
