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

import "fmt"

// BlockStatus classifies the chip-level outcome of a frame exchange.
// Transport and protocol faults travel separately as errors.
type BlockStatus int

const (
	// StatusOK means the addressed transponder answered as expected.
	StatusOK BlockStatus = iota
	// StatusCollision means overlapping replies corrupted the CRC. The
	// reader has already been reset to inventory; the anti-collision
	// round must be retried.
	StatusCollision
	// StatusChipAbsent means the addressed transponder no longer answers;
	// it left the field or powered down.
	StatusChipAbsent
)

// String returns a human-readable name for the status.
func (s BlockStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusCollision:
		return "collision"
	case StatusChipAbsent:
		return "chip absent"
	default:
		return "unknown"
	}
}

// checkReplyLength classifies the length byte of a response frame.
// The collision sentinel triggers an immediate reset to inventory so the
// next anti-collision sequence starts clean.
func (d *Device) checkReplyLength(got, want byte, op string) (BlockStatus, error) {
	switch got {
	case lenCollision:
		if err := d.ResetToInventory(); err != nil {
			d.log.Errorf("%s: reset to inventory failed: %v", op, err)
		}
		return StatusCollision, nil
	case 0:
		return StatusChipAbsent, nil
	case want:
		return StatusOK, nil
	default:
		return StatusOK, fmt.Errorf("%w: %s expected %d bytes, got %d", ErrFrameLength, op, want, got)
	}
}

// Initiate opens an anti-collision round by inviting every transponder in
// range to answer. When exactly one answers, its chip identifier comes
// back directly; overlapping answers return the collision sentinel and
// the round must continue with the slot marker.
func (d *Device) Initiate() (chipID byte, status BlockStatus, err error) {
	if err := d.writeFrame([]byte{2, cmdInitiateH, cmdInitiateL}, settleExchange); err != nil {
		return 0, 0, err
	}
	buf, err := d.readFrame(2)
	if err != nil {
		return 0, 0, err
	}
	if buf[0] == lenCollision {
		return 0, StatusCollision, nil
	}
	return buf[1], StatusOK, nil
}

// SlotMarker runs the 16-slot arbitration sequence and returns the
// presence mask plus the per-slot candidate chip identifiers. A slot
// whose mask bit is clear but whose identifier reads 0xFF answered
// ambiguously and the caller must retry the round.
func (d *Device) SlotMarker() (mask uint16, ids [slotCount]byte, err error) {
	if err = d.transport.WriteRegister(RegSlotMarker, nil); err != nil {
		return 0, ids, fmt.Errorf("writing slot marker register: %w", err)
	}
	d.sleep(settleSlotMarker)

	buf, err := d.readFrame(3 + slotCount)
	if err != nil {
		return 0, ids, err
	}
	if buf[0] != 2+slotCount {
		return 0, ids, fmt.Errorf("%w: slot marker returned %d bytes", ErrFrameLength, buf[0])
	}
	mask = uint16(buf[2])<<8 | uint16(buf[1])
	copy(ids[:], buf[3:])
	return mask, ids, nil
}

// SelectChip addresses the transponder that answered with chipID. The
// chip echoes its identifier; a mismatched echo means arbitration noise
// and the slot is abandoned without flagging a collision.
func (d *Device) SelectChip(chipID byte) (echoOK bool, status BlockStatus, err error) {
	if err := d.writeFrame([]byte{2, cmdSelect, chipID}, settleExchange); err != nil {
		return false, 0, err
	}
	buf, err := d.readFrame(2)
	if err != nil {
		return false, 0, err
	}
	status, err = d.checkReplyLength(buf[0], 1, "select")
	if err != nil || status != StatusOK {
		return false, status, err
	}
	if buf[1] != chipID {
		d.log.Warnf("select echoed chip id %d, expected %d", buf[1], chipID)
		return false, StatusOK, nil
	}
	return true, StatusOK, nil
}

// GetUID fetches the 8-byte unique identifier of the selected
// transponder, least-significant byte first as it travels on the air.
func (d *Device) GetUID() (uid [UIDSize]byte, status BlockStatus, err error) {
	if err := d.writeFrame([]byte{1, cmdGetUID}, settleUID); err != nil {
		return uid, 0, err
	}
	buf, err := d.readFrame(1 + UIDSize)
	if err != nil {
		return uid, 0, err
	}
	status, err = d.checkReplyLength(buf[0], UIDSize, "get_uid")
	if err != nil || status != StatusOK {
		return uid, status, err
	}
	copy(uid[:], buf[1:])
	return uid, StatusOK, nil
}

// ReadBlock reads one 4-byte block from the selected transponder.
func (d *Device) ReadBlock(addr byte) (data [BlockSize]byte, status BlockStatus, err error) {
	if err := d.writeFrame([]byte{2, cmdReadBlock, addr}, settleExchange); err != nil {
		return data, 0, err
	}
	buf, err := d.readFrame(1 + BlockSize)
	if err != nil {
		return data, 0, err
	}
	status, err = d.checkReplyLength(buf[0], BlockSize, "read_block")
	if err != nil || status != StatusOK {
		return data, status, err
	}
	copy(data[:], buf[1:])
	return data, StatusOK, nil
}

// WriteBlock programs one 4-byte block on the selected transponder. The
// chip sends no acknowledgment; the settle time covers its worst-case
// EEPROM programming cycle, and callers read the block back to verify.
func (d *Device) WriteBlock(addr byte, data [BlockSize]byte) error {
	frame := []byte{6, cmdWriteBlock, addr, data[0], data[1], data[2], data[3]}
	return d.writeFrame(frame, settleWriteBlock)
}

// Completion tells the selected transponder to drop out of the current
// anti-collision round.
func (d *Device) Completion() error {
	return d.writeFrame([]byte{1, cmdCompletion}, settleCommand)
}

// ResetToInventory returns transponders to the inventory state so the
// next anti-collision sequence sees them again. Issued after every CRC
// collision.
func (d *Device) ResetToInventory() error {
	return d.writeFrame([]byte{1, cmdResetToInventory}, settleCommand)
}
