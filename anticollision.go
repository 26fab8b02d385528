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

import "runtime"

// ChipHandler processes one resolved transponder: the caller has not yet
// selected it, only learned its chip identifier from arbitration. The
// handler reports whether it observed a CRC collision while talking to
// the chip, which forces another arbitration pass.
type ChipHandler func(chipID byte) (collision bool)

// PollRound executes one full anti-collision round: raise the RF field,
// resolve every transponder in range, hand each one to the handler, and
// drop the field again. RF teardown failures are logged rather than
// surfaced since the round's results already stand.
func (d *Device) PollRound(handler ChipHandler) error {
	if err := d.RFOn(); err != nil {
		return err
	}
	err := d.resolveChips(handler)
	if offErr := d.RFOff(); offErr != nil {
		d.log.Errorf("%v", offErr)
	}
	return err
}

// resolveChips runs the arbitration loop. A single responder is handed
// to the handler directly; overlapping responders are separated with the
// slot-marker sequence. The loop repeats as long as any slot reported a
// collision or answered ambiguously.
//
// The retry loop is unbounded: it terminates only when the hardware
// stops reporting collisions. With many transponders continuously
// entering the field a round can starve for a long time, so each pass
// yields to the scheduler.
func (d *Device) resolveChips(handler ChipHandler) error {
	chipID, status, err := d.Initiate()
	if err != nil {
		return err
	}
	collision := status == StatusCollision

	if !collision {
		collision = handler(chipID)
	}

	for collision {
		collision = false
		mask, ids, err := d.SlotMarker()
		if err != nil {
			return err
		}
		for slot := 0; slot < slotCount; slot++ {
			switch {
			case mask&(1<<slot) != 0:
				if handler(ids[slot]) {
					collision = true
				}
			case ids[slot] == ambiguousSlotID:
				// The slot answered but its identifier did not survive
				// arbitration; retry without dispatching.
				collision = true
			}
		}
		runtime.Gosched()
	}
	return nil
}
