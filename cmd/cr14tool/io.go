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

package main

import (
	"context"

	"github.com/srxtools/go-cr14/session"
)

// writePacket pushes a complete command packet into the session,
// looping because a session write may consume as little as one byte.
func writePacket(ctx context.Context, sess *session.Session, pkt []byte) error {
	for len(pkt) > 0 {
		n, err := sess.Write(ctx, pkt)
		if err != nil {
			return err
		}
		pkt = pkt[n:]
	}
	return nil
}

// readFull blocks until exactly len(p) response bytes have arrived.
func readFull(ctx context.Context, sess *session.Session, p []byte) error {
	for off := 0; off < len(p); {
		n, err := sess.Read(ctx, p[off:])
		if err != nil {
			return err
		}
		off += n
	}
	return nil
}
