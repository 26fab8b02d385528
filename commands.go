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

import "time"

// CR14 register addresses
const (
	// RegParameter controls the RF carrier and the anti-collision watchdog.
	RegParameter = 0x00
	// RegIOFrame exchanges length-prefixed command/response frames with
	// the transponder currently addressed by the reader.
	RegIOFrame = 0x01
	// RegSlotMarker triggers the 16-slot anti-collision sequence when
	// written without data.
	RegSlotMarker = 0x03

	// regST25RIdentification answers on ST25R parts only. A genuine CR14
	// NAKs reads of this register, which is how Probe tells them apart.
	regST25RIdentification = 0x7F
)

// Parameter register bits
const (
	carrierRFOutOff = 0x00
	carrierRFOutOn  = 0x10

	watchdogTimeout5us   = 0x00
	watchdogTimeout5ms   = 0x20
	watchdogTimeout10ms  = 0x40
	watchdogTimeout309ms = 0x50
)

// st25rIdentValue is the identification byte an ST25R returns.
const st25rIdentValue = 0b00101010

// Transponder command opcodes, written as length-prefixed frames to
// RegIOFrame.
const (
	cmdInitiateH        = 0x06
	cmdInitiateL        = 0x00
	cmdPCall16H         = 0x06
	cmdPCall16L         = 0x04
	cmdReadBlock        = 0x08
	cmdWriteBlock       = 0x09
	cmdGetUID           = 0x0B
	cmdResetToInventory = 0x0C
	cmdSelect           = 0x0E
	cmdCompletion       = 0x0F
)

// Response-frame sentinels
const (
	// lenCollision in the length byte signals a CRC mismatch between
	// overlapping transponder replies. The chip must be reset to
	// inventory before the next anti-collision sequence.
	lenCollision = 0xFF
	// ambiguousSlotID in a slot-marker candidate byte marks a slot that
	// answered without surviving arbitration; the round must be retried.
	ambiguousSlotID = 0xFF
)

// Settle times: the minimum wait after writing a command frame before the
// response frame is valid, derived from the protocol's bit-timing budget
// (1 ETU = 10us at 106 kbit/s) plus the reader's watchdog timeout.
const (
	// 2-byte exchange: 61 ETU + t0/t1 turnaround (745us) + 500us watchdog.
	settleExchange = 1250 * time.Microsecond
	// 1-byte command with no reply: 651us + watchdog.
	settleCommand = 1200 * time.Microsecond
	// GET_UID reply is 8 bytes + CRC: 100 ETU + 26 ETU SOF/EOF.
	settleUID = 1900 * time.Microsecond
	// Block write: 6 bytes on the air + 7ms worst-case EEPROM programming
	// (binary counter decrement).
	settleWriteBlock = 8650 * time.Microsecond
	// Slot-marker round: 49 bytes (490 ETU) + 16 SOF/EOF pairs (336 ETU)
	// + 16 watchdog timeouts (8ms).
	settleSlotMarker = 16 * time.Millisecond
)

const (
	// UIDSize is the length of a transponder unique identifier. UIDs
	// travel least-significant byte first everywhere in this package.
	UIDSize = 8
	// BlockSize is the fixed payload of one transponder memory block.
	BlockSize = 4
	// slotCount is the number of time-multiplexed anti-collision slots.
	slotCount = 16

	// frameRegisterMaxRetries bounds transient-fault retries on frame
	// register reads before the bus is declared broken.
	frameRegisterMaxRetries = 200
)
