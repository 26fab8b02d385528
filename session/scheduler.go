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
	"time"
)

// Scheduler triggers polling rounds. Rounds never overlap: a trigger
// arriving while a round runs queues exactly one follow-up.
type Scheduler interface {
	// ScheduleOnce arranges one round after delay, replacing any pending
	// schedule.
	ScheduleOnce(delay time.Duration)

	// ScheduleImmediate cancels any pending schedule and runs a round as
	// soon as possible. Triggers coalesce while one is already queued.
	ScheduleImmediate()

	// CancelPending drops a scheduled-but-not-yet-running round.
	CancelPending()

	// CancelAndWait drops any pending round and blocks until a running
	// round has finished.
	CancelAndWait()
}

// SchedulerFactory builds the Scheduler driving a session's polling
// rounds; run is the round entry point. The zero value of Config uses
// the built-in timer/worker implementation. External implementations
// must guarantee the non-overlap property themselves and manage their
// own goroutine lifetime.
type SchedulerFactory func(run func()) Scheduler

// taskRunner is the default Scheduler: a one-shot timer feeding a single
// worker goroutine, so rounds are serialized by construction.
type taskRunner struct {
	cond    *sync.Cond
	run     func()
	timer   *time.Timer
	mu      sync.Mutex
	pending bool
	running bool
	closed  bool
}

func newTaskRunner(run func()) *taskRunner {
	r := &taskRunner{run: run}
	r.cond = sync.NewCond(&r.mu)
	go r.loop()
	return r
}

func (r *taskRunner) loop() {
	r.mu.Lock()
	for {
		for !r.pending && !r.closed {
			r.cond.Wait()
		}
		if r.closed {
			break
		}
		r.pending = false
		r.running = true
		r.mu.Unlock()

		r.run()

		r.mu.Lock()
		r.running = false
		r.cond.Broadcast()
	}
	r.mu.Unlock()
}

func (r *taskRunner) ScheduleOnce(delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked()
	if r.closed {
		return
	}
	r.timer = time.AfterFunc(delay, r.fire)
}

func (r *taskRunner) fire() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.pending = true
	r.cond.Broadcast()
}

func (r *taskRunner) ScheduleImmediate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked()
	if r.closed {
		return
	}
	r.pending = true
	r.cond.Broadcast()
}

func (r *taskRunner) CancelPending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked()
	r.pending = false
}

func (r *taskRunner) CancelAndWait() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked()
	r.pending = false
	for r.running {
		r.cond.Wait()
	}
}

// close shuts the worker goroutine down after any running round ends.
func (r *taskRunner) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked()
	r.pending = false
	r.closed = true
	r.cond.Broadcast()
	for r.running {
		r.cond.Wait()
	}
}

func (r *taskRunner) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
