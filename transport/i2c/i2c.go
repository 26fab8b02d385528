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

// Package i2c provides an I2C register transport for the CR14 using
// periph.io.
package i2c

import (
	"fmt"

	cr14 "github.com/srxtools/go-cr14"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddr is the CR14's fixed I2C address (1010000x).
	DefaultAddr = 0x50

	// The CR14 bus tops out at 400 kHz.
	maxClockFreq = 400 * physic.KiloHertz
)

// Transport implements the cr14.Transport interface over a periph.io
// I2C bus.
type Transport struct {
	dev     *i2c.Dev
	bus     i2c.BusCloser
	busName string
}

// New opens the named I2C bus ("1", "/dev/i2c-1", ...) and binds the
// CR14 at its default address.
func New(busName string) (*Transport, error) {
	return NewWithAddr(busName, DefaultAddr)
}

// NewWithAddr opens the named I2C bus with an explicit device address.
func NewWithAddr(busName string, addr uint16) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	// Ignore the error and continue at the default speed; the CR14
	// tolerates slower clocks.
	_ = bus.SetSpeed(maxClockFreq)

	return &Transport{
		dev:     &i2c.Dev{Addr: addr, Bus: bus},
		bus:     bus,
		busName: busName,
	}, nil
}

// ReadRegister reads n bytes from the given register. Bus errors are
// reported as transient: the CR14 stretches and NAKs while its RF front
// end is busy, and the protocol layer owns the retry budget.
func (t *Transport) ReadRegister(reg byte, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := t.dev.Tx([]byte{reg}, buf); err != nil {
		return nil, cr14.NewTransportError("read", t.busName, err, cr14.ErrorTypeTransient)
	}
	return buf, nil
}

// WriteRegister writes data to the given register. An empty data slice
// sends the bare register address.
func (t *Transport) WriteRegister(reg byte, data []byte) error {
	frame := make([]byte, 0, 1+len(data))
	frame = append(frame, reg)
	frame = append(frame, data...)
	if err := t.dev.Tx(frame, nil); err != nil {
		return cr14.NewTransportError("write", t.busName, err, cr14.ErrorTypeTransient)
	}
	return nil
}

// WriteRegisterChecked writes a single byte and verifies it by reading
// it back.
func (t *Transport) WriteRegisterChecked(reg, value byte) error {
	if err := t.WriteRegister(reg, []byte{value}); err != nil {
		return err
	}
	// The register latches immediately; no settle time needed before the
	// readback.
	readback, err := t.ReadRegister(reg, 1)
	if err != nil {
		return err
	}
	if readback[0] != value {
		return fmt.Errorf("%w: register %#02x wrote %#02x, read %#02x",
			cr14.ErrReadbackMismatch, reg, value, readback[0])
	}
	return nil
}

// Close closes the underlying bus.
func (t *Transport) Close() error {
	if err := t.bus.Close(); err != nil {
		return fmt.Errorf("failed to close I2C bus: %w", err)
	}
	return nil
}

// Type returns cr14.TransportI2C.
func (*Transport) Type() cr14.TransportType {
	return cr14.TransportI2C
}

// BusName returns the name the bus was opened with.
func (t *Transport) BusName() string {
	return t.busName
}

var _ cr14.Transport = (*Transport)(nil)
