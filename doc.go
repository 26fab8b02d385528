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

/*
Package cr14 provides a pure Go driver core for the STMicroelectronics
CR14 RFID reader, which drives ISO 14443-B' SRX transponders (SR176,
SRIX4K and friends) over a small register bus.

The package splits into three layers:

  - The register Transport, implemented for the native I2C bus
    (transport/i2c and transport/i2cdev) and for USB-CDC register bridge
    adapters (transport/serial).
  - The bus protocol layer and anti-collision engine in this package:
    chip-level commands (INITIATE, SELECT, GET_UID, READ_BLOCK,
    WRITE_BLOCK, COMPLETION, RESET_TO_INVENTORY), their settle-time
    budgets, and the slot-marker arbitration loop that resolves several
    transponders answering at once.
  - The session package: a single-client endpoint with an operating-mode
    state machine, a byte-stream command framer, and a background polling
    task feeding responses through a fixed-size ring buffer.

Basic usage:

	import (
	    "github.com/srxtools/go-cr14"
	    "github.com/srxtools/go-cr14/transport/i2c"
	)

	transport, err := i2c.New("1")
	if err != nil {
	    log.Fatal(err)
	}
	defer transport.Close()

	device, err := cr14.New(transport)
	if err != nil {
	    log.Fatal(err)
	}
	if err := device.Probe(); err != nil {
	    log.Fatal(err)
	}

Most clients do not drive Device directly; they open a session.Session
and speak the byte-level client protocol documented there.

Error Handling:

Bus faults are wrapped in *TransportError with a transient/timeout/
permanent classification; frame-register reads retry transient faults up
to 200 times before surfacing ErrCommunicationFailed. Unexpected response
shapes surface as ErrFrameLength. CRC collisions between transponders are
not errors at all: they come back as StatusCollision and drive the
anti-collision retry loop.

Thread Safety:

Device is not safe for concurrent use. The session package serializes
all bus traffic through its single polling task.
*/
package cr14
