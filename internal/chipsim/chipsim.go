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

// Package chipsim provides an in-memory CR14 reader with virtual SRX
// transponders behind it. It implements the register transport interface
// so the full protocol stack, anti-collision loop included, can run in
// tests without hardware or real settle times.
package chipsim

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	cr14 "github.com/srxtools/go-cr14"
)

// Register and opcode values mirrored from the protocol; kept local so
// the simulator exercises the real package constants rather than sharing
// them.
const (
	regParameter  = 0x00
	regIOFrame    = 0x01
	regSlotMarker = 0x03

	opInitiateH        = 0x06
	opReadBlock        = 0x08
	opWriteBlock       = 0x09
	opGetUID           = 0x0B
	opResetToInventory = 0x0C
	opSelect           = 0x0E
	opCompletion       = 0x0F
)

// Chip is one virtual transponder in the simulated field.
type Chip struct {
	// Blocks is the chip's EEPROM, 4 bytes per address.
	Blocks map[byte][4]byte
	// UID is the unique identifier in wire order (LSB first).
	UID [8]byte
	// ID is the chip identifier reported during arbitration and echoed
	// by SELECT.
	ID byte
	// Slot is the anti-collision slot (0..15) the chip answers in.
	Slot int

	completed bool
}

// NewChip builds a chip from a logical UID value. The wire order is the
// little-endian encoding, so logical 0x0102030405060708 travels as
// 08 07 06 05 04 03 02 01.
func NewChip(logicalUID uint64, id byte, slot int) *Chip {
	c := &Chip{ID: id, Slot: slot, Blocks: make(map[byte][4]byte)}
	binary.LittleEndian.PutUint64(c.UID[:], logicalUID)
	return c
}

// Simulator is a register transport backed by virtual transponders.
type Simulator struct {
	// OnFrameRead, when set, runs before every I/O-frame register read.
	// Tests use it to stall a polling round at a known point.
	OnFrameRead func()

	chips    []*Chip
	selected *Chip
	frame    []byte

	selectOrder    []byte
	ambiguousSlots map[int]bool

	collideOnSelect int
	collideOnRead   int
	transientReads  int

	param byte
	rfOn  bool

	identifyAsST25R bool

	ops atomic.Int64
	mu  sync.Mutex
}

// New creates a simulator with no transponders in the field.
func New() *Simulator {
	return &Simulator{ambiguousSlots: make(map[int]bool)}
}

// AddChip places a transponder in the field.
func (s *Simulator) AddChip(c *Chip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chips = append(s.chips, c)
}

// SetAmbiguousSlot makes the given slot answer ambiguously (candidate
// byte 0xFF with a clear mask bit) in the next slot-marker sequence
// only.
func (s *Simulator) SetAmbiguousSlot(slot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambiguousSlots[slot] = true
}

// CollideOnSelect makes the next n SELECT commands answer with the CRC
// collision sentinel.
func (s *Simulator) CollideOnSelect(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collideOnSelect = n
}

// CollideOnRead makes the next n READ_BLOCK commands answer with the CRC
// collision sentinel.
func (s *Simulator) CollideOnRead(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collideOnRead = n
}

// FailReadsTransiently makes the next n I/O-frame reads fail with a
// retryable transport error.
func (s *Simulator) FailReadsTransiently(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transientReads = n
}

// IdentifyAsST25R makes the identification register answer like an ST25R
// part, so probing must reject the device.
func (s *Simulator) IdentifyAsST25R() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identifyAsST25R = true
}

// SelectOrder returns the chip identifiers SELECTed so far, in order.
func (s *Simulator) SelectOrder() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.selectOrder...)
}

// OpCount returns the total number of transport operations performed.
// Tests use it to verify that no bus traffic happens after a session
// closes.
func (s *Simulator) OpCount() int64 {
	return s.ops.Load()
}

// candidates returns the chips still participating in the current round.
func (s *Simulator) candidates() []*Chip {
	var out []*Chip
	for _, c := range s.chips {
		if !c.completed {
			out = append(out, c)
		}
	}
	return out
}

// ReadRegister implements cr14.Transport.
func (s *Simulator) ReadRegister(reg byte, n int) ([]byte, error) {
	s.ops.Add(1)
	if reg == regIOFrame {
		if hook := s.OnFrameRead; hook != nil {
			hook()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch reg {
	case regParameter:
		return []byte{s.param}, nil
	case regIOFrame:
		if s.transientReads > 0 {
			s.transientReads--
			return nil, cr14.NewTransportError("read", "sim", cr14.ErrTransportRead, cr14.ErrorTypeTransient)
		}
		buf := make([]byte, n)
		copy(buf, s.frame)
		return buf, nil
	default:
		if s.identifyAsST25R {
			return []byte{0b00101010}, nil
		}
		return nil, cr14.NewTransportError("read", "sim", cr14.ErrTransportRead, cr14.ErrorTypePermanent)
	}
}

// WriteRegister implements cr14.Transport.
func (s *Simulator) WriteRegister(reg byte, data []byte) error {
	s.ops.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch reg {
	case regParameter:
		if len(data) == 1 {
			s.setParamLocked(data[0])
		}
	case regSlotMarker:
		s.runSlotMarkerLocked()
	case regIOFrame:
		s.runCommandLocked(data)
	}
	return nil
}

// WriteRegisterChecked implements cr14.Transport.
func (s *Simulator) WriteRegisterChecked(reg, value byte) error {
	s.ops.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg == regParameter {
		s.setParamLocked(value)
	}
	return nil
}

// Close implements cr14.Transport.
func (*Simulator) Close() error { return nil }

// Type implements cr14.Transport.
func (*Simulator) Type() cr14.TransportType { return cr14.TransportMock }

func (s *Simulator) setParamLocked(value byte) {
	s.param = value
	rfOn := value&0x10 != 0
	if s.rfOn && !rfOn {
		// Field drop powers every transponder down; the next round
		// starts from scratch.
		for _, c := range s.chips {
			c.completed = false
		}
		s.selected = nil
	}
	s.rfOn = rfOn
}

// runCommandLocked decodes one length-prefixed command frame and leaves
// the response in the pending frame buffer.
func (s *Simulator) runCommandLocked(frame []byte) {
	if len(frame) < 2 {
		return
	}
	switch frame[1] {
	case opInitiateH:
		s.runInitiateLocked()
	case opSelect:
		s.runSelectLocked(frame[2])
	case opGetUID:
		s.runGetUIDLocked()
	case opReadBlock:
		s.runReadBlockLocked(frame[2])
	case opWriteBlock:
		if s.selected != nil && len(frame) >= 7 {
			var block [4]byte
			copy(block[:], frame[3:7])
			s.selected.Blocks[frame[2]] = block
		}
		s.frame = nil
	case opCompletion:
		if s.selected != nil {
			s.selected.completed = true
			s.selected = nil
		}
		s.frame = nil
	case opResetToInventory:
		for _, c := range s.chips {
			c.completed = false
		}
		s.selected = nil
		s.frame = nil
	}
}

func (s *Simulator) runInitiateLocked() {
	cands := s.candidates()
	switch len(cands) {
	case 0:
		s.frame = []byte{0, 0}
	case 1:
		s.frame = []byte{1, cands[0].ID}
	default:
		s.frame = []byte{0xFF, 0}
	}
}

func (s *Simulator) runSlotMarkerLocked() {
	frame := make([]byte, 3+16)
	frame[0] = 18
	var mask uint16
	for _, c := range s.candidates() {
		mask |= 1 << c.Slot
		frame[3+c.Slot] = c.ID
	}
	for slot := range s.ambiguousSlots {
		if mask&(1<<slot) == 0 {
			frame[3+slot] = 0xFF
		}
		delete(s.ambiguousSlots, slot)
	}
	frame[1] = byte(mask)
	frame[2] = byte(mask >> 8)
	s.frame = frame
}

func (s *Simulator) runSelectLocked(id byte) {
	if s.collideOnSelect > 0 {
		s.collideOnSelect--
		s.frame = []byte{0xFF, 0}
		return
	}
	s.selectOrder = append(s.selectOrder, id)
	for _, c := range s.candidates() {
		if c.ID == id {
			s.selected = c
			s.frame = []byte{1, id}
			return
		}
	}
	s.selected = nil
	s.frame = []byte{0, 0}
}

func (s *Simulator) runGetUIDLocked() {
	if s.selected == nil {
		s.frame = []byte{0}
		return
	}
	frame := make([]byte, 9)
	frame[0] = 8
	copy(frame[1:], s.selected.UID[:])
	s.frame = frame
}

func (s *Simulator) runReadBlockLocked(addr byte) {
	if s.collideOnRead > 0 {
		s.collideOnRead--
		s.frame = []byte{0xFF}
		return
	}
	if s.selected == nil {
		s.frame = []byte{0}
		return
	}
	block := s.selected.Blocks[addr]
	s.frame = append([]byte{4}, block[:]...)
}
