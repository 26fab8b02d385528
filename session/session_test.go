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

package session_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cr14 "github.com/srxtools/go-cr14"
	"github.com/srxtools/go-cr14/internal/chipsim"
	"github.com/srxtools/go-cr14/session"
)

func newTestSession(t *testing.T, sim *chipsim.Simulator) *session.Session {
	t.Helper()
	dev, err := cr14.New(sim,
		cr14.WithLogger(nil),
		cr14.WithSleepFunc(func(time.Duration) {}),
	)
	require.NoError(t, err)

	sess, err := session.New(dev, &session.Config{
		Logger:       cr14.NewLogger(log.New(io.Discard, "", 0), cr14.LogLevelNone),
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	return sess
}

func wireUID() [cr14.UIDSize]byte {
	// Logical UID 0x0102030405060708 travels LSB first.
	return [cr14.UIDSize]byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
}

func readResponse(t *testing.T, sess *session.Session, n int) []byte {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		got, err := sess.Read(ctx, buf[:n-len(out)])
		require.NoError(t, err)
		out = append(out, buf[:got]...)
	}
	return out
}

func writePacket(t *testing.T, sess *session.Session, pkt []byte) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for len(pkt) > 0 {
		n, err := sess.Write(ctx, pkt)
		require.NoError(t, err)
		pkt = pkt[n:]
	}
}

func waitForMode(t *testing.T, sess *session.Session, want session.Mode) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sess.Mode() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("mode never reached %v, still %v", want, sess.Mode())
}

func TestSession_OpenBusy(t *testing.T) {
	t.Parallel()

	sess := newTestSession(t, chipsim.New())
	require.NoError(t, sess.Open(false))
	defer func() { _ = sess.Close() }()

	require.ErrorIs(t, sess.Open(false), cr14.ErrSessionBusy)
	require.ErrorIs(t, sess.Open(true), cr14.ErrSessionBusy)
}

func TestSession_ClosedOperations(t *testing.T) {
	t.Parallel()

	sess := newTestSession(t, chipsim.New())

	_, err := sess.Read(context.Background(), make([]byte, 1))
	require.ErrorIs(t, err, cr14.ErrSessionClosed)
	_, err = sess.Write(context.Background(), []byte{session.HeaderIdle})
	require.ErrorIs(t, err, cr14.ErrSessionClosed)
	require.ErrorIs(t, sess.Close(), cr14.ErrSessionClosed)
}

func TestSession_ReadOnlyStreamsUIDs(t *testing.T) {
	t.Parallel()

	sim := chipsim.New()
	sim.AddChip(chipsim.NewChip(0x0102030405060708, 0x42, 3))
	sess := newTestSession(t, sim)

	require.NoError(t, sess.Open(true))
	defer func() { _ = sess.Close() }()

	assert.Equal(t, session.ModePollRepeat, sess.Mode())

	// Every round reports the same transponder again.
	for i := 0; i < 3; i++ {
		msg := readResponse(t, sess, 1+cr14.UIDSize)
		assert.Equal(t, byte(session.HeaderUID), msg[0])
		uid := wireUID()
		assert.Equal(t, uid[:], msg[1:])
	}
}

func TestSession_PollOnceGoesIdle(t *testing.T) {
	t.Parallel()

	sim := chipsim.New()
	sim.AddChip(chipsim.NewChip(0x0102030405060708, 0x42, 3))
	sess := newTestSession(t, sim)

	require.NoError(t, sess.Open(false))
	defer func() { _ = sess.Close() }()

	assert.Equal(t, session.ModeIdle, sess.Mode())

	writePacket(t, sess, []byte{session.HeaderPollOnce})
	msg := readResponse(t, sess, 1+cr14.UIDSize)
	assert.Equal(t, byte(session.HeaderUID), msg[0])

	waitForMode(t, sess, session.ModeIdle)

	// Idle means no further notifications pile up.
	time.Sleep(20 * time.Millisecond)
	readable, _ := sess.PollReadiness()
	assert.False(t, readable)
}

func TestSession_ReadSingleBlock(t *testing.T) {
	t.Parallel()

	chip := chipsim.NewChip(0x0102030405060708, 0x42, 3)
	chip.Blocks[5] = [cr14.BlockSize]byte{0xDE, 0xAD, 0xBE, 0xEF}
	sim := chipsim.New()
	sim.AddChip(chip)
	sess := newTestSession(t, sim)

	require.NoError(t, sess.Open(false))
	defer func() { _ = sess.Close() }()

	uid := wireUID()
	pkt := append(append([]byte{session.HeaderReadSingle}, uid[:]...), 5)
	writePacket(t, sess, pkt)

	resp := readResponse(t, sess, 1+cr14.BlockSize)
	assert.Equal(t, byte(session.HeaderReadSingle), resp[0])
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, resp[1:])

	waitForMode(t, sess, session.ModeIdle)
}

func TestSession_WriteSingleBlock(t *testing.T) {
	t.Parallel()

	chip := chipsim.NewChip(0x0102030405060708, 0x42, 3)
	sim := chipsim.New()
	sim.AddChip(chip)
	sess := newTestSession(t, sim)

	require.NoError(t, sess.Open(false))
	defer func() { _ = sess.Close() }()

	uid := wireUID()
	pkt := append(append([]byte{session.HeaderWriteSingle}, uid[:]...), 7)
	pkt = append(pkt, 0xCA, 0xFE, 0x00, 0x01)
	writePacket(t, sess, pkt)

	// The response is the written block read back from the chip.
	resp := readResponse(t, sess, 1+cr14.BlockSize)
	assert.Equal(t, byte(session.HeaderWriteSingle), resp[0])
	assert.Equal(t, []byte{0xCA, 0xFE, 0x00, 0x01}, resp[1:])

	assert.Equal(t, [cr14.BlockSize]byte{0xCA, 0xFE, 0x00, 0x01}, chip.Blocks[7])
}

func TestSession_ReadMultipleBlocks(t *testing.T) {
	t.Parallel()

	chip := chipsim.NewChip(0x0102030405060708, 0x42, 3)
	chip.Blocks[1] = [cr14.BlockSize]byte{1, 1, 1, 1}
	chip.Blocks[2] = [cr14.BlockSize]byte{2, 2, 2, 2}
	chip.Blocks[9] = [cr14.BlockSize]byte{9, 9, 9, 9}
	sim := chipsim.New()
	sim.AddChip(chip)
	sess := newTestSession(t, sim)

	require.NoError(t, sess.Open(false))
	defer func() { _ = sess.Close() }()

	uid := wireUID()
	pkt := append([]byte{session.HeaderReadMultiple}, uid[:]...)
	pkt = append(pkt, 3, 9, 1, 2)
	writePacket(t, sess, pkt)

	resp := readResponse(t, sess, 2+3*cr14.BlockSize)
	assert.Equal(t, byte(session.HeaderReadMultiple), resp[0])
	assert.Equal(t, byte(3), resp[1])
	// Blocks come back in request order.
	assert.Equal(t, []byte{9, 9, 9, 9, 1, 1, 1, 1, 2, 2, 2, 2}, resp[2:])
}

func TestSession_WriteMultipleBlocks(t *testing.T) {
	t.Parallel()

	chip := chipsim.NewChip(0x0102030405060708, 0x42, 3)
	sim := chipsim.New()
	sim.AddChip(chip)
	sess := newTestSession(t, sim)

	require.NoError(t, sess.Open(false))
	defer func() { _ = sess.Close() }()

	uid := wireUID()
	pkt := append([]byte{session.HeaderWriteMultiple}, uid[:]...)
	pkt = append(pkt, 2, 4, 8)
	pkt = append(pkt, 1, 2, 3, 4, 5, 6, 7, 8)
	writePacket(t, sess, pkt)

	resp := readResponse(t, sess, 2+2*cr14.BlockSize)
	assert.Equal(t, byte(session.HeaderWriteMultiple), resp[0])
	assert.Equal(t, byte(2), resp[1])
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, resp[2:])

	assert.Equal(t, [cr14.BlockSize]byte{1, 2, 3, 4}, chip.Blocks[4])
	assert.Equal(t, [cr14.BlockSize]byte{5, 6, 7, 8}, chip.Blocks[8])
}

func TestSession_UIDMismatchLeavesCommandPending(t *testing.T) {
	t.Parallel()

	sim := chipsim.New()
	sim.AddChip(chipsim.NewChip(0xFFFF000011112222, 0x42, 3))
	sess := newTestSession(t, sim)

	require.NoError(t, sess.Open(false))
	defer func() { _ = sess.Close() }()

	uid := wireUID() // not the chip in the field
	pkt := append(append([]byte{session.HeaderReadSingle}, uid[:]...), 5)
	writePacket(t, sess, pkt)

	// The command waits for its target indefinitely: no response, mode
	// unchanged. Clients apply their own deadlines.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, session.ModeReadSingleBlock, sess.Mode())
	readable, _ := sess.PollReadiness()
	assert.False(t, readable)
}

func TestSession_CollisionRetriesWithinRound(t *testing.T) {
	t.Parallel()

	chip := chipsim.NewChip(0x0102030405060708, 0x42, 3)
	chip.Blocks[5] = [cr14.BlockSize]byte{0xAA, 0xBB, 0xCC, 0xDD}
	sim := chipsim.New()
	sim.AddChip(chip)
	sim.AddChip(chipsim.NewChip(0xFFFF000011112222, 0x17, 8))
	sim.CollideOnRead(1)
	sess := newTestSession(t, sim)

	require.NoError(t, sess.Open(false))
	defer func() { _ = sess.Close() }()

	uid := wireUID()
	pkt := append(append([]byte{session.HeaderReadSingle}, uid[:]...), 5)
	writePacket(t, sess, pkt)

	// The first read attempt reports a CRC collision, forcing another
	// arbitration pass; the retry succeeds.
	resp := readResponse(t, sess, 1+cr14.BlockSize)
	assert.Equal(t, byte(session.HeaderReadSingle), resp[0])
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, resp[1:])
}

func TestSession_TransientBusFaultsAreAbsorbed(t *testing.T) {
	t.Parallel()

	sim := chipsim.New()
	sim.AddChip(chipsim.NewChip(0x0102030405060708, 0x42, 3))
	sim.FailReadsTransiently(5)
	sess := newTestSession(t, sim)

	require.NoError(t, sess.Open(true))
	defer func() { _ = sess.Close() }()

	msg := readResponse(t, sess, 1+cr14.UIDSize)
	assert.Equal(t, byte(session.HeaderUID), msg[0])
}

func TestSession_CloseStopsBusTraffic(t *testing.T) {
	t.Parallel()

	sim := chipsim.New()
	sim.AddChip(chipsim.NewChip(0x0102030405060708, 0x42, 3))
	sess := newTestSession(t, sim)

	require.NoError(t, sess.Open(true))
	readResponse(t, sess, 1+cr14.UIDSize) // at least one round ran

	require.NoError(t, sess.Close())
	ops := sim.OpCount()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, ops, sim.OpCount(), "bus traffic after close")

	_, err := sess.Read(context.Background(), make([]byte, 1))
	require.ErrorIs(t, err, cr14.ErrSessionClosed)
}

func TestSession_ReopenAfterClose(t *testing.T) {
	t.Parallel()

	sim := chipsim.New()
	sim.AddChip(chipsim.NewChip(0x0102030405060708, 0x42, 3))
	sess := newTestSession(t, sim)

	require.NoError(t, sess.Open(true))
	readResponse(t, sess, 1+cr14.UIDSize)
	require.NoError(t, sess.Close())

	// The ring is cleared on reopen; stale notifications never leak
	// into the new client.
	require.NoError(t, sess.Open(true))
	defer func() { _ = sess.Close() }()
	msg := readResponse(t, sess, 1+cr14.UIDSize)
	assert.Equal(t, byte(session.HeaderUID), msg[0])
}

func TestSession_WriteBlocksDuringRound(t *testing.T) {
	t.Parallel()

	sim := chipsim.New()
	sim.AddChip(chipsim.NewChip(0x0102030405060708, 0x42, 3))

	stalled := make(chan struct{})
	release := make(chan struct{})
	first := true
	sim.OnFrameRead = func() {
		if first {
			first = false
			close(stalled)
			<-release
		}
	}

	sess := newTestSession(t, sim)
	require.NoError(t, sess.Open(true))
	defer func() { _ = sess.Close() }()

	<-stalled

	// A round is in flight; the write must wait and honor its context.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := sess.Write(ctx, []byte{session.HeaderIdle})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)

	// Once the round clears, the same write goes through.
	writePacket(t, sess, []byte{session.HeaderIdle})
	waitForMode(t, sess, session.ModeIdle)
}
