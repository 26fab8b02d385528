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

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestTaskRunner_ScheduleImmediate(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	r := newTaskRunner(func() { runs.Add(1) })
	defer r.close()

	r.ScheduleImmediate()
	waitFor(t, func() bool { return runs.Load() == 1 })
}

func TestTaskRunner_ScheduleOnce(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	r := newTaskRunner(func() { runs.Add(1) })
	defer r.close()

	r.ScheduleOnce(10 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
	waitFor(t, func() bool { return runs.Load() == 1 })
}

func TestTaskRunner_CancelPending(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	r := newTaskRunner(func() { runs.Add(1) })
	defer r.close()

	r.ScheduleOnce(50 * time.Millisecond)
	r.CancelPending()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestTaskRunner_RoundsNeverOverlap(t *testing.T) {
	t.Parallel()

	var active, maxActive, runs atomic.Int32
	r := newTaskRunner(func() {
		cur := active.Add(1)
		if cur > maxActive.Load() {
			maxActive.Store(cur)
		}
		time.Sleep(2 * time.Millisecond)
		active.Add(-1)
		runs.Add(1)
	})
	defer r.close()

	for i := 0; i < 50; i++ {
		r.ScheduleImmediate()
		time.Sleep(time.Millisecond)
	}

	waitFor(t, func() bool { return runs.Load() >= 1 })
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestTaskRunner_ImmediateCoalesces(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32
	var once sync.Once
	r := newTaskRunner(func() {
		runs.Add(1)
		once.Do(func() {
			close(started)
			<-release
		})
	})
	defer r.close()

	r.ScheduleImmediate()
	<-started

	// Triggers during a running round queue exactly one follow-up.
	for i := 0; i < 10; i++ {
		r.ScheduleImmediate()
	}
	close(release)

	waitFor(t, func() bool { return runs.Load() == 2 })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), runs.Load())
}

func TestTaskRunner_CancelAndWait(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	var finished atomic.Bool
	r := newTaskRunner(func() {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})
	defer r.close()

	r.ScheduleImmediate()
	<-started
	r.CancelAndWait()
	require.True(t, finished.Load(), "CancelAndWait returned before the round ended")
}

func TestTaskRunner_CloseStopsTriggers(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	r := newTaskRunner(func() { runs.Add(1) })
	r.close()

	r.ScheduleImmediate()
	r.ScheduleOnce(time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}
