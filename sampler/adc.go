/*
luminode-controller - Power management for the Luminode LED controller
Copyright (C) 2024, The Luminode Project

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package sampler reads raw battery voltage in millivolts from the
// measurement hardware, either the onboard I2C ADC or a UART-attached
// measurement MCU.
package sampler

import (
	"errors"
	"fmt"

	"github.com/sigurn/crc8"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	// ADCAddress is the I2C address of the measurement ADC.
	ADCAddress = 0x48

	// cmdReadVoltage asks the ADC for a conversion on the given channel.
	cmdReadVoltage = 0x04

	txRetries = 2
)

var errBadCRC = errors.New("bad crc")

var crcTable = crc8.MakeTable(crc8.Params{
	Poly:   0x31, // Polynomial 1 + x^4 + x^5 + x^8
	Init:   0xFF,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
})

// ADC samples battery voltage through the I2C measurement ADC. A
// channel below zero means no measurement input is allocated; the
// sampler then reports unavailable without touching the bus.
type ADC struct {
	bus     i2c.BusCloser
	dev     *i2c.Dev
	channel int
}

// NewADC opens the named I2C bus ("" selects the first available one)
// and binds the ADC device on it. With a negative channel no hardware is
// opened at all.
func NewADC(busName string, channel int) (*ADC, error) {
	if channel < 0 {
		return &ADC{channel: channel}, nil
	}
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, err
	}
	return &ADC{
		bus:     bus,
		dev:     &i2c.Dev{Bus: bus, Addr: ADCAddress},
		channel: channel,
	}, nil
}

func (a *ADC) Available() bool {
	return a.channel >= 0
}

// Read requests one conversion and returns the result in millivolts.
// Responses with a failed checksum are retried.
func (a *ADC) Read() (float64, error) {
	if !a.Available() {
		return 0, errors.New("no measurement channel allocated")
	}

	write := readVoltageFrame(a.channel)
	response := make([]byte, 3)
	var err error
	for i := 0; i <= txRetries; i++ {
		if err = a.dev.Tx(write, response); err != nil {
			continue
		}
		var mv uint16
		mv, err = parseVoltageResponse(response)
		if err == nil {
			return float64(mv), nil
		}
	}
	return 0, fmt.Errorf("adc conversion failed after %d attempts: %w", txRetries+1, err)
}

// Close releases the I2C bus.
func (a *ADC) Close() error {
	if a.bus == nil {
		return nil
	}
	return a.bus.Close()
}

// readVoltageFrame is the conversion request: command, channel, CRC.
func readVoltageFrame(channel int) []byte {
	frame := []byte{cmdReadVoltage, byte(channel)}
	return append(frame, crc8.Checksum(frame, crcTable))
}

// parseVoltageResponse checks the CRC on a 3 byte conversion result and
// returns the big-endian millivolt reading.
func parseVoltageResponse(response []byte) (uint16, error) {
	if len(response) != 3 {
		return 0, fmt.Errorf("response length: %d", len(response))
	}
	if crc8.Checksum(response[:2], crcTable) != response[2] {
		return 0, errBadCRC
	}
	return uint16(response[0])<<8 | uint16(response[1]), nil
}
