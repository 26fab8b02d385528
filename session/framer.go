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

package session

import cr14 "github.com/srxtools/go-cr14"

// Client protocol message headers.
const (
	// HeaderUID announces a transponder UID to the client.
	HeaderUID = 'u'
	// HeaderPollOnce switches the session to poll-once mode.
	HeaderPollOnce = 'p'
	// HeaderPollRepeat switches the session to poll-repeat mode.
	HeaderPollRepeat = 'P'
	// HeaderIdle switches the session to idle mode.
	HeaderIdle = 'i'
	// HeaderReadSingle requests one block read; also heads the response.
	HeaderReadSingle = 'r'
	// HeaderWriteSingle requests one block write; also heads the response.
	HeaderWriteSingle = 'w'
	// HeaderReadMultiple requests a multi-block read; also heads the response.
	HeaderReadMultiple = 'R'
	// HeaderWriteMultiple requests a multi-block write; also heads the response.
	HeaderWriteMultiple = 'W'
)

// MaxPacketSize bounds a client command packet: header + 8-byte UID +
// count byte + 255 addresses + 255 four-byte data blocks.
const MaxPacketSize = 2 + cr14.UIDSize + 255 + 255*cr14.BlockSize

// framer assembles client-supplied bytes into complete command packets.
// State survives across calls; any call may carry any fragment of a
// packet, including none of it.
type framer struct {
	cursor int
	buf    [MaxPacketSize]byte
}

// fixedPacketLen returns the fixed prefix length for a data header: the
// bytes that must arrive before the true packet length is known. For the
// single-block headers this already is the full packet.
func fixedPacketLen(header byte) int {
	switch header {
	case HeaderReadSingle, HeaderReadMultiple, HeaderWriteMultiple:
		return 2 + cr14.UIDSize // header + uid + addr/count byte
	case HeaderWriteSingle:
		return 2 + cr14.UIDSize + cr14.BlockSize
	default:
		return 0
	}
}

// feed consumes bytes from p toward at most one complete packet,
// mirroring the historical driver: an immediate header completes on its
// single byte and any remaining bytes in p are left for the next call.
// An unrecognized header is swallowed as a zero-length packet with no
// error signal to the client.
//
// When complete is true, either cmd is non-nil (a data packet finished)
// or mode carries an immediate transition.
func (f *framer) feed(p []byte) (consumed int, mode Mode, cmd Command, complete bool) {
	if len(p) == 0 {
		return 0, 0, nil, false
	}

	if f.cursor == 0 {
		header := p[0]
		consumed = 1
		p = p[1:]
		switch header {
		case HeaderIdle:
			return consumed, ModeIdle, nil, true
		case HeaderPollOnce:
			return consumed, ModePollOnce, nil, true
		case HeaderPollRepeat:
			return consumed, ModePollRepeat, nil, true
		case HeaderReadSingle, HeaderWriteSingle, HeaderReadMultiple, HeaderWriteMultiple:
			f.buf[0] = header
			f.cursor = 1
		default:
			return consumed, 0, nil, false
		}
	}

	header := f.buf[0]
	packetLen := fixedPacketLen(header)

	n := f.fill(p, packetLen)
	consumed += n
	p = p[n:]

	// The count byte at offset 9 fixes the true length of the two
	// variable-size packets.
	if f.cursor >= packetLen {
		count := int(f.buf[1+cr14.UIDSize])
		switch header {
		case HeaderReadMultiple:
			packetLen += count
		case HeaderWriteMultiple:
			packetLen += count + count*cr14.BlockSize
		}
	}

	consumed += f.fill(p, packetLen)

	if f.cursor == packetLen {
		cmd = decodeCommand(f.buf[:packetLen])
		f.cursor = 0
		return consumed, cmd.Mode(), cmd, true
	}
	return consumed, 0, nil, false
}

// fill copies bytes from p into the assembly buffer up to packetLen and
// advances the cursor.
func (f *framer) fill(p []byte, packetLen int) int {
	if f.cursor >= packetLen || len(p) == 0 {
		return 0
	}
	n := packetLen - f.cursor
	if n > len(p) {
		n = len(p)
	}
	copy(f.buf[f.cursor:], p[:n])
	f.cursor += n
	return n
}

// decodeCommand turns a complete packet into its typed command. pkt is
// exactly packetLen bytes and starts with a data header.
func decodeCommand(pkt []byte) Command {
	var uid [cr14.UIDSize]byte
	copy(uid[:], pkt[1:1+cr14.UIDSize])

	switch pkt[0] {
	case HeaderReadSingle:
		return ReadSingleBlock{UID: uid, Addr: pkt[1+cr14.UIDSize]}
	case HeaderWriteSingle:
		var data [cr14.BlockSize]byte
		copy(data[:], pkt[2+cr14.UIDSize:])
		return WriteSingleBlock{UID: uid, Addr: pkt[1+cr14.UIDSize], Data: data}
	case HeaderReadMultiple:
		count := int(pkt[1+cr14.UIDSize])
		addrs := append([]byte(nil), pkt[2+cr14.UIDSize:2+cr14.UIDSize+count]...)
		return ReadMultipleBlocks{UID: uid, Addrs: addrs}
	case HeaderWriteMultiple:
		count := int(pkt[1+cr14.UIDSize])
		addrs := append([]byte(nil), pkt[2+cr14.UIDSize:2+cr14.UIDSize+count]...)
		data := append([]byte(nil), pkt[2+cr14.UIDSize+count:2+cr14.UIDSize+count+count*cr14.BlockSize]...)
		return WriteMultipleBlocks{UID: uid, Addrs: addrs, Data: data}
	default:
		// feed never lets an unknown header reach the assembly buffer.
		panic("session: unknown packet header")
	}
}
