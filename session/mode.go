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

// Package session implements the client-facing side of a CR14 reader:
// the operating-mode state machine, the byte-stream command framer, and
// the background polling task that runs anti-collision rounds and feeds
// responses back through a fixed-size ring buffer.
//
// A session speaks the following little-endian byte protocol. UIDs travel
// least-significant byte first, exactly as the transponder transmits them.
//
//	'u' <uid (8 bytes)>                              driver -> client
//	'p'                                              client -> driver, poll once
//	'P'                                              client -> driver, poll repeat
//	'i'                                              client -> driver, idle
//	'r' <uid> <addr>                                 client -> driver
//	'r' <data (4 bytes)>                             driver -> client
//	'w' <uid> <addr> <data (4 bytes)>                client -> driver
//	'w' <data (4 bytes)>                             driver -> client
//	'R' <uid> <count> <count addr bytes>             client -> driver
//	'R' <count> <count x 4 data bytes>               driver -> client
//	'W' <uid> <count> <addrs> <count x 4 data bytes> client -> driver
//	'W' <count> <count x 4 data bytes>               driver -> client
package session

import cr14 "github.com/srxtools/go-cr14"

// Mode is the single active operating mode of a session.
type Mode int

const (
	// ModeIdle awaits commands; no polling happens.
	ModeIdle Mode = iota
	// ModePollOnce polls until one transponder is found, reports its UID,
	// then falls back to idle.
	ModePollOnce
	// ModePollRepeat polls forever, reporting every UID seen each round.
	ModePollRepeat
	// ModeReadSingleBlock polls until the target transponder is found,
	// then reads one block.
	ModeReadSingleBlock
	// ModeWriteSingleBlock writes one block and reads it back.
	ModeWriteSingleBlock
	// ModeReadMultipleBlocks reads a list of blocks in address order.
	ModeReadMultipleBlocks
	// ModeWriteMultipleBlocks writes a list of blocks and reads them back.
	ModeWriteMultipleBlocks
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePollOnce:
		return "poll-once"
	case ModePollRepeat:
		return "poll-repeat"
	case ModeReadSingleBlock:
		return "read-single-block"
	case ModeWriteSingleBlock:
		return "write-single-block"
	case ModeReadMultipleBlocks:
		return "read-multiple-blocks"
	case ModeWriteMultipleBlocks:
		return "write-multiple-blocks"
	default:
		return "unknown"
	}
}

// Command is the tagged parameter payload of a data mode. Exactly one
// implementation exists per data mode, so active parameters can never
// disagree with the mode tag.
type Command interface {
	// Mode returns the session mode this command runs under.
	Mode() Mode
	// TargetUID returns the transponder the command is addressed to, in
	// wire byte order.
	TargetUID() [cr14.UIDSize]byte
}

// ReadSingleBlock reads one block from the target transponder.
type ReadSingleBlock struct {
	UID  [cr14.UIDSize]byte
	Addr byte
}

// Mode implements Command.
func (ReadSingleBlock) Mode() Mode { return ModeReadSingleBlock }

// TargetUID implements Command.
func (c ReadSingleBlock) TargetUID() [cr14.UIDSize]byte { return c.UID }

// WriteSingleBlock writes one block and reads it back.
type WriteSingleBlock struct {
	UID  [cr14.UIDSize]byte
	Addr byte
	Data [cr14.BlockSize]byte
}

// Mode implements Command.
func (WriteSingleBlock) Mode() Mode { return ModeWriteSingleBlock }

// TargetUID implements Command.
func (c WriteSingleBlock) TargetUID() [cr14.UIDSize]byte { return c.UID }

// ReadMultipleBlocks reads up to 255 blocks in address order.
type ReadMultipleBlocks struct {
	Addrs []byte
	UID   [cr14.UIDSize]byte
}

// Mode implements Command.
func (ReadMultipleBlocks) Mode() Mode { return ModeReadMultipleBlocks }

// TargetUID implements Command.
func (c ReadMultipleBlocks) TargetUID() [cr14.UIDSize]byte { return c.UID }

// WriteMultipleBlocks writes up to 255 blocks and reads them back.
// Data holds 4 bytes per address, in address order.
type WriteMultipleBlocks struct {
	Addrs []byte
	Data  []byte
	UID   [cr14.UIDSize]byte
}

// Mode implements Command.
func (WriteMultipleBlocks) Mode() Mode { return ModeWriteMultipleBlocks }

// TargetUID implements Command.
func (c WriteMultipleBlocks) TargetUID() [cr14.UIDSize]byte { return c.UID }
