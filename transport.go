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

package cr14

// Transport defines register-level access to a CR14 reader chip.
// Implementations exist for the native I2C bus (periph.io and /dev/i2c)
// and for USB-CDC register bridge adapters.
//
// Implementations return raw bus errors wrapped in *TransportError so the
// protocol layer can tell transient faults from permanent ones; they do
// not retry on their own. The bounded retry policy for frame-register
// reads lives in Device.
type Transport interface {
	// ReadRegister reads n bytes from the given register.
	ReadRegister(reg byte, n int) ([]byte, error)

	// WriteRegister writes data to the given register. Writing an empty
	// slice sends the bare register address, which is how the slot-marker
	// sequence is triggered.
	WriteRegister(reg byte, data []byte) error

	// WriteRegisterChecked writes a single byte and reads it back,
	// failing with ErrReadbackMismatch if the value disagrees.
	WriteRegisterChecked(reg, value byte) error

	// Close closes the transport connection.
	Close() error

	// Type returns the transport type.
	Type() TransportType
}

// TransportType identifies the bus an implementation drives.
type TransportType string

const (
	// TransportI2C is the periph.io I2C transport.
	TransportI2C TransportType = "i2c"
	// TransportI2CDev is the Linux /dev/i2c-N ioctl transport.
	TransportI2CDev TransportType = "i2cdev"
	// TransportSerial is the USB-CDC register bridge transport.
	TransportSerial TransportType = "serial"
	// TransportMock is a mock transport for testing.
	TransportMock TransportType = "mock"
)
