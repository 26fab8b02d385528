// go-cr14
// Copyright (c) 2026 The go-cr14 Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-cr14.
//
// go-cr14 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-cr14 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-cr14; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package serial provides a register transport over a serial port,
// for CR14 chips behind a register-bridge adapter (typically a small
// microcontroller forwarding register accesses to the chip's I2C bus).
//
// The bridge protocol is framed request/response:
//
//	read:          'R' reg count      -> status, count data bytes
//	write:         'W' reg count data -> status
//	checked write: 'C' reg value      -> status
//
// A status byte of 0 means success; anything else is reported by the
// bridge as an I2C-level failure and treated as transient.
package serial

import (
	"fmt"
	"sync"
	"time"

	cr14 "github.com/srxtools/go-cr14"
	"go.bug.st/serial"
)

const (
	opRead         = 'R'
	opWrite        = 'W'
	opWriteChecked = 'C'

	statusOK = 0x00

	// DefaultBaudRate matches the stock bridge firmware.
	DefaultBaudRate = 115200

	readTimeout = 250 * time.Millisecond
)

// Transport implements the cr14.Transport interface for a serial
// register bridge.
type Transport struct {
	port     serial.Port
	portName string
	mu       sync.Mutex
}

// New opens the named serial port at the default baud rate.
func New(portName string) (*Transport, error) {
	return NewWithBaudRate(portName, DefaultBaudRate)
}

// NewWithBaudRate opens the named serial port at an explicit baud rate.
func NewWithBaudRate(portName string, baudRate int) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set serial read timeout: %w", err)
	}

	return &Transport{
		port:     port,
		portName: portName,
	}, nil
}

// exchange writes a request frame and reads back exactly n reply bytes.
// A short read after the timeout is reported as a timeout error so the
// protocol layer can retry.
func (t *Transport) exchange(req []byte, n int) ([]byte, error) {
	if _, err := t.port.Write(req); err != nil {
		return nil, cr14.NewTransportError("write", t.portName, err, cr14.ErrorTypePermanent)
	}

	buf := make([]byte, n)
	off := 0
	for off < n {
		got, err := t.port.Read(buf[off:])
		if err != nil {
			return nil, cr14.NewTransportError("read", t.portName, err, cr14.ErrorTypePermanent)
		}
		if got == 0 {
			return nil, cr14.NewTimeoutError("read", t.portName)
		}
		off += got
	}
	return buf, nil
}

func (t *Transport) checkStatus(op string, status byte) error {
	if status == statusOK {
		return nil
	}
	return cr14.NewTransportError(op, t.portName,
		fmt.Errorf("%w: bridge status %#02x", cr14.ErrCommunicationFailed, status),
		cr14.ErrorTypeTransient)
}

// ReadRegister reads n bytes from the given register through the bridge.
func (t *Transport) ReadRegister(reg byte, n int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	reply, err := t.exchange([]byte{opRead, reg, byte(n)}, 1+n)
	if err != nil {
		return nil, err
	}
	if err := t.checkStatus("read", reply[0]); err != nil {
		return nil, err
	}
	return reply[1:], nil
}

// WriteRegister writes data to the given register through the bridge.
// An empty data slice sends the bare register address.
func (t *Transport) WriteRegister(reg byte, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	req := make([]byte, 0, 3+len(data))
	req = append(req, opWrite, reg, byte(len(data)))
	req = append(req, data...)

	reply, err := t.exchange(req, 1)
	if err != nil {
		return err
	}
	return t.checkStatus("write", reply[0])
}

// WriteRegisterChecked writes a single byte and has the bridge verify
// it with a readback on its side of the bus.
func (t *Transport) WriteRegisterChecked(reg, value byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	reply, err := t.exchange([]byte{opWriteChecked, reg, value}, 1)
	if err != nil {
		return err
	}
	if reply[0] == statusOK {
		return nil
	}
	return fmt.Errorf("%w: register %#02x value %#02x rejected by bridge",
		cr14.ErrReadbackMismatch, reg, value)
}

// Close closes the serial port.
func (t *Transport) Close() error {
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", t.portName, err)
	}
	return nil
}

// Type returns cr14.TransportSerial.
func (*Transport) Type() cr14.TransportType {
	return cr14.TransportSerial
}

// PortName returns the name of the underlying serial port.
func (t *Transport) PortName() string {
	return t.portName
}

var _ cr14.Transport = (*Transport)(nil)
