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

package cr14_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cr14 "github.com/srxtools/go-cr14"
	"github.com/srxtools/go-cr14/internal/chipsim"
)

func newSimDevice(t *testing.T, sim *chipsim.Simulator) *cr14.Device {
	t.Helper()
	dev, err := cr14.New(sim,
		cr14.WithLogger(nil),
		cr14.WithSleepFunc(func(time.Duration) {}),
	)
	require.NoError(t, err)
	return dev
}

func TestPollRound_SingleChip(t *testing.T) {
	t.Parallel()

	sim := chipsim.New()
	sim.AddChip(chipsim.NewChip(0x0102030405060708, 0x42, 3))
	dev := newSimDevice(t, sim)

	var seen []byte
	err := dev.PollRound(func(chipID byte) bool {
		seen = append(seen, chipID)
		return false
	})
	require.NoError(t, err)

	// A lone responder answers INITIATE directly; no arbitration needed.
	assert.Equal(t, []byte{0x42}, seen)
}

func TestPollRound_EmptyField(t *testing.T) {
	t.Parallel()

	sim := chipsim.New()
	dev := newSimDevice(t, sim)

	var seen []byte
	err := dev.PollRound(func(chipID byte) bool {
		seen = append(seen, chipID)
		return false
	})
	require.NoError(t, err)

	// A non-collision INITIATE reply always dispatches; the dispatcher
	// discovers the absence when SELECT goes unanswered.
	assert.Equal(t, []byte{0x00}, seen)
}

func TestPollRound_MultipleChips(t *testing.T) {
	t.Parallel()

	sim := chipsim.New()
	sim.AddChip(chipsim.NewChip(0xAAAA, 0x0A, 9))
	sim.AddChip(chipsim.NewChip(0xBBBB, 0x0B, 2))
	sim.AddChip(chipsim.NewChip(0xCCCC, 0x0C, 5))
	dev := newSimDevice(t, sim)

	var seen []byte
	err := dev.PollRound(func(chipID byte) bool {
		seen = append(seen, chipID)
		return false
	})
	require.NoError(t, err)

	// Arbitration walks the slots in ascending order.
	assert.Equal(t, []byte{0x0B, 0x0C, 0x0A}, seen)
}

func TestPollRound_AmbiguousSlotRetries(t *testing.T) {
	t.Parallel()

	sim := chipsim.New()
	sim.AddChip(chipsim.NewChip(0xAAAA, 0x0A, 1))
	sim.AddChip(chipsim.NewChip(0xBBBB, 0x0B, 4))
	sim.SetAmbiguousSlot(7)
	dev := newSimDevice(t, sim)

	var seen []byte
	err := dev.PollRound(func(chipID byte) bool {
		seen = append(seen, chipID)
		return false
	})
	require.NoError(t, err)

	// The ambiguous slot forces a second arbitration pass, so both
	// chips are dispatched twice.
	assert.Equal(t, []byte{0x0A, 0x0B, 0x0A, 0x0B}, seen)
}

func TestPollRound_HandlerCollisionRetries(t *testing.T) {
	t.Parallel()

	sim := chipsim.New()
	sim.AddChip(chipsim.NewChip(0xAAAA, 0x0A, 1))
	sim.AddChip(chipsim.NewChip(0xBBBB, 0x0B, 4))
	dev := newSimDevice(t, sim)

	reported := false
	rounds := 0
	err := dev.PollRound(func(chipID byte) bool {
		rounds++
		if !reported && chipID == 0x0A {
			reported = true
			return true
		}
		return false
	})
	require.NoError(t, err)

	// One collision report forces a full extra pass over both slots.
	assert.Equal(t, 4, rounds)
}

func TestPollRound_RFFieldLifecycle(t *testing.T) {
	t.Parallel()

	sim := chipsim.New()
	sim.AddChip(chipsim.NewChip(0xAAAA, 0x0A, 1))
	dev := newSimDevice(t, sim)

	require.NoError(t, dev.PollRound(func(byte) bool { return false }))

	// The field is down again after the round.
	param, err := sim.ReadRegister(0x00, 1)
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), param[0]&0x10)
}

func TestPollRound_RFOnFailure(t *testing.T) {
	t.Parallel()

	mock := cr14.NewMockTransport()
	mock.FailCheckedWrite(cr14.RegParameter, cr14.ErrReadbackMismatch)
	dev, err := cr14.New(mock,
		cr14.WithLogger(nil),
		cr14.WithSleepFunc(func(time.Duration) {}),
	)
	require.NoError(t, err)

	err = dev.PollRound(func(byte) bool {
		t.Error("handler must not run when the field never came up")
		return false
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, cr14.ErrReadbackMismatch))
}
