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

// Package ring implements the single-producer single-consumer byte ring
// that carries driver-to-client messages from the polling task to the
// client read path.
package ring

import (
	"context"
	"sync/atomic"
)

// Size is the ring capacity in bytes. It must be a power of two; one
// slot is sacrificed to tell a full ring from an empty one, so usable
// occupancy is Size-1.
const Size = 8192

// Buffer is a fixed-capacity circular byte buffer. Exactly one goroutine
// may produce and one may consume at a time. The producer publishes each
// byte with a release store of the head index; the consumer acquires the
// head before reading the byte it guards and releases the tail once the
// byte is out. Go's atomics are sequentially consistent, which satisfies
// both directions.
type Buffer struct {
	notify chan struct{}
	head   atomic.Int64
	tail   atomic.Int64
	buf    [Size]byte
}

// New creates an empty buffer.
func New() *Buffer {
	return &Buffer{notify: make(chan struct{}, 1)}
}

func count(head, tail int64) int64 {
	return (head - tail) & (Size - 1)
}

func space(head, tail int64) int64 {
	return (tail - head - 1) & (Size - 1)
}

// WriteMessage copies msg into the buffer byte by byte, checking before
// each byte that the remaining free space still covers the rest of the
// message. When it does not, the write stops there: bytes already
// published stay in the buffer and the remainder is dropped, which tears
// the message framing for the client. That behavior is load-bearing for
// existing clients; do not make the write atomic without a protocol
// change. Returns the number of bytes written.
//
// Free space only grows while the producer runs, so in practice the
// check fails at the first byte and an oversized message is dropped
// whole rather than torn.
func (b *Buffer) WriteMessage(msg []byte) int {
	written := 0
	for ix := range msg {
		head := b.head.Load()
		tail := b.tail.Load()
		if space(head, tail) < int64(len(msg)-ix) {
			break
		}
		b.buf[head] = msg[ix]
		b.head.Store((head + 1) & (Size - 1))
		written++
	}
	select {
	case b.notify <- struct{}{}:
	default:
	}
	return written
}

// HasData reports whether at least one byte is readable.
func (b *Buffer) HasData() bool {
	return count(b.head.Load(), b.tail.Load()) > 0
}

// Len returns the number of readable bytes.
func (b *Buffer) Len() int {
	return int(count(b.head.Load(), b.tail.Load()))
}

// Read blocks until at least one byte is available, then drains up to
// len(p) bytes in FIFO order without blocking further. It returns early
// with ctx.Err() when the context is canceled.
func (b *Buffer) Read(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for !b.HasData() {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-b.notify:
		}
	}

	n := 0
	for n < len(p) {
		head := b.head.Load()
		tail := b.tail.Load()
		if count(head, tail) < 1 {
			break
		}
		p[n] = b.buf[tail]
		n++
		b.tail.Store((tail + 1) & (Size - 1))
	}
	return n, nil
}

// Reset empties the buffer. Only valid while neither side is active;
// the session calls it when a client opens the endpoint.
func (b *Buffer) Reset() {
	b.head.Store(0)
	b.tail.Store(0)
	select {
	case <-b.notify:
	default:
	}
}
