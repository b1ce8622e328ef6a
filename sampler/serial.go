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

package sampler

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/tarm/serial"
)

// UART samples battery voltage from a measurement MCU on a serial port.
// The protocol is line based: the request "<V|c>" with channel c gets a
// "<millivolts|checksum>" reply, the checksum being the byte sum of the
// payload mod 256.
type UART struct {
	portName string
	baud     int
	channel  int
}

func NewUART(portName string, baud, channel int) *UART {
	return &UART{portName: portName, baud: baud, channel: channel}
}

func (u *UART) Available() bool {
	return u.channel >= 0 && u.portName != ""
}

// Read opens the port for a single request/response exchange. Opening
// per read keeps the port free for other users between samples.
func (u *UART) Read() (float64, error) {
	if !u.Available() {
		return 0, fmt.Errorf("no serial measurement source configured")
	}

	c := &serial.Config{Name: u.portName, Baud: u.baud, ReadTimeout: time.Second * 5}
	port, err := serial.OpenPort(c)
	if err != nil {
		return 0, err
	}
	defer port.Close()

	request := []byte(fmt.Sprintf("<V|%d>", u.channel))
	n, err := port.Write(request)
	if err != nil {
		return 0, err
	}
	if n != len(request) {
		return 0, fmt.Errorf("wrote %d bytes, expected %d", n, len(request))
	}

	buf := make([]byte, 64)
	n, err = port.Read(buf)
	if err != nil {
		return 0, err
	}

	mv, err := parseUARTResponse(buf[:n])
	if err != nil {
		return 0, err
	}
	return float64(mv), nil
}

func parseUARTResponse(response []byte) (int, error) {
	if len(response) < 2 || response[0] != '<' || response[len(response)-1] != '>' {
		return 0, fmt.Errorf("malformed response %q", response)
	}
	parts := bytes.Split(response[1:len(response)-1], []byte("|"))
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed response %q", response)
	}

	receivedChecksum, err := strconv.Atoi(string(parts[1]))
	if err != nil {
		return 0, err
	}
	if computeChecksum(parts[0]) != receivedChecksum {
		return 0, fmt.Errorf("checksum mismatch in %q", response)
	}

	mv, err := strconv.Atoi(string(parts[0]))
	if err != nil {
		return 0, err
	}
	if mv < 0 {
		return 0, fmt.Errorf("negative reading %d", mv)
	}
	return mv, nil
}

func computeChecksum(payload []byte) int {
	checksum := 0
	for _, b := range payload {
		checksum += int(b)
	}
	return checksum % 256
}
