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
	"context"
	"errors"
	"sync"
	"time"

	cr14 "github.com/srxtools/go-cr14"
	"github.com/srxtools/go-cr14/internal/ring"
)

// Config tunes a session.
type Config struct {
	// Scheduler overrides the built-in timer/worker scheduler.
	Scheduler SchedulerFactory
	// Logger receives session-level diagnostics. Defaults to the
	// package-wide default logger.
	Logger *cr14.Logger
	// PollInterval is the rescheduling period between polling rounds
	// while the session is in a mode other than idle.
	PollInterval time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() *Config {
	return &Config{
		PollInterval: 500 * time.Millisecond,
	}
}

// Session is the single-client endpoint over one CR14 device. It owns
// the operating-mode state machine, the command framer, and the response
// ring buffer, and drives the device from a background polling task.
//
// Two activity domains share a Session: the polling task and the client
// I/O path. Mode and command parameters are guarded by one lock; a
// client write that completes a command waits until no round is in
// flight before mutating them.
type Session struct {
	dev   *cr14.Device
	cfg   *Config
	log   *cr14.Logger
	ring  *ring.Buffer
	sched Scheduler

	mu             sync.Mutex
	mode           Mode
	cmd            Command
	asm            framer
	opened         bool
	runningCommand bool
	roundDone      chan struct{}
}

// New creates a session over the given device. The session starts
// closed; a client claims it with Open.
func New(dev *cr14.Device, cfg *Config) (*Session, error) {
	if dev == nil {
		return nil, errors.New("device cannot be nil")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	log := cfg.Logger
	if log == nil {
		log = cr14.DefaultLogger()
	}
	return &Session{
		dev:  dev,
		cfg:  cfg,
		log:  log,
		ring: ring.New(),
	}, nil
}

// Open claims the session. A read-only client starts in poll-repeat mode
// and just streams UID notifications; a read-write client starts idle,
// awaiting commands. Only one client may hold the session at a time.
func (s *Session) Open(readOnly bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return cr14.ErrSessionBusy
	}
	s.opened = true
	s.runningCommand = false
	s.cmd = nil
	s.asm = framer{}
	s.ring.Reset()
	if readOnly {
		s.mode = ModePollRepeat
	} else {
		s.mode = ModeIdle
	}

	factory := s.cfg.Scheduler
	if factory == nil {
		factory = func(run func()) Scheduler { return newTaskRunner(run) }
	}
	s.sched = factory(s.pollRound)
	s.sched.ScheduleImmediate()
	return nil
}

// Close releases the session. Any scheduled round is canceled and any
// in-flight round is waited for, so no bus traffic outlives Close and a
// reopened session never races the old one.
func (s *Session) Close() error {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return cr14.ErrSessionClosed
	}
	s.opened = false
	sched := s.sched
	s.sched = nil
	s.mu.Unlock()

	sched.CancelPending()
	sched.CancelAndWait()
	if c, ok := sched.(interface{ close() }); ok {
		c.close()
	}
	return nil
}

// Mode returns the current operating mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Read blocks until response bytes are available, then copies up to
// len(p) of them in FIFO order. It returns early with ctx.Err() when the
// context is canceled.
func (s *Session) Read(ctx context.Context, p []byte) (int, error) {
	s.mu.Lock()
	opened := s.opened
	s.mu.Unlock()
	if !opened {
		return 0, cr14.ErrSessionClosed
	}
	return s.ring.Read(ctx, p)
}

// Write feeds client bytes to the command framer. At most one complete
// packet is consumed per call; an immediate header consumes its single
// byte and leaves the rest of p to the caller. Write blocks while a
// polling round is in flight and unblocks when the round clears, or
// early with ctx.Err().
//
// An unrecognized header byte is consumed and silently ignored; the
// protocol has no error signal for it.
func (s *Session) Write(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	for {
		if !s.opened {
			s.mu.Unlock()
			return 0, cr14.ErrSessionClosed
		}
		if !s.runningCommand {
			break
		}
		done := s.roundDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	consumed, mode, cmd, complete := s.asm.feed(p)
	if !complete {
		return consumed, nil
	}

	s.mode = mode
	s.cmd = cmd
	switch {
	case cmd != nil:
		// A data command is ready; run a round now instead of waiting
		// for the next timer tick.
		s.sched.ScheduleImmediate()
	case mode == ModePollOnce || mode == ModePollRepeat:
		s.sched.ScheduleImmediate()
	}
	return consumed, nil
}

// PollReadiness reports whether the client can read without blocking and
// whether a write would be accepted without waiting on a round.
func (s *Session) PollReadiness() (readable, writable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.HasData(), !s.runningCommand
}

// pollRound is the polling task's entry point: one full anti-collision
// round, never two concurrently.
func (s *Session) pollRound() {
	s.mu.Lock()
	if !s.opened || s.mode == ModeIdle {
		s.mu.Unlock()
		return
	}
	s.runningCommand = true
	s.roundDone = make(chan struct{})
	s.mu.Unlock()

	err := s.dev.PollRound(s.processChip)

	s.mu.Lock()
	s.runningCommand = false
	close(s.roundDone)
	if err != nil {
		// Bus or protocol fault: abandon the current command so the
		// session does not spin on a broken bus.
		s.log.Errorf("polling round failed: %v", err)
		s.mode = ModeIdle
		s.cmd = nil
	}
	reschedule := s.opened && s.mode != ModeIdle
	sched := s.sched
	s.mu.Unlock()

	if reschedule && sched != nil {
		sched.ScheduleOnce(s.cfg.PollInterval)
	}
}

// processChip is the per-chip dispatcher: select the resolved chip,
// fetch its UID, act on it according to the current mode, and always
// close with COMPLETION so the chip drops out of the round. The return
// value reports whether a CRC collision was observed, which makes the
// anti-collision engine retry the round.
func (s *Session) processChip(chipID byte) bool {
	echoOK, status, err := s.dev.SelectChip(chipID)
	switch {
	case err != nil:
		s.log.Errorf("select chip %d: %v", chipID, err)
		return false
	case status == cr14.StatusCollision:
		return true
	case status == cr14.StatusChipAbsent || !echoOK:
		return false
	}

	collision := false
	uid, status, err := s.dev.GetUID()
	switch {
	case err != nil:
		s.log.Errorf("get uid: %v", err)
	case status == cr14.StatusCollision:
		collision = true
	case status == cr14.StatusChipAbsent:
		// Left the field between select and get_uid.
	default:
		collision = s.dispatchUID(uid)
	}

	if err := s.dev.Completion(); err != nil {
		s.log.Errorf("completion: %v", err)
	}
	return collision
}

// dispatchUID routes one resolved transponder through the current mode.
func (s *Session) dispatchUID(uid [cr14.UIDSize]byte) bool {
	s.mu.Lock()
	mode := s.mode
	cmd := s.cmd
	s.mu.Unlock()

	switch mode {
	case ModePollOnce, ModePollRepeat:
		msg := make([]byte, 1+cr14.UIDSize)
		msg[0] = HeaderUID
		copy(msg[1:], uid[:])
		s.emit(msg)
		if mode == ModePollOnce {
			s.setMode(ModeIdle, nil)
		}
		return false
	case ModeIdle:
		s.log.Warnf("transponder resolved while idle")
		return false
	default:
		if cmd == nil || cmd.TargetUID() != uid {
			return false
		}
		return s.executeCommand(cmd)
	}
}

// executeCommand runs the queued block operations against the selected,
// UID-matched transponder. A collision aborts the remaining addresses
// and propagates so the round retries; a vanished chip leaves the
// command pending for the next round; a bus or protocol fault abandons
// the command. No command-level timeout exists: a client that targets a
// UID never seen again must apply its own deadline.
func (s *Session) executeCommand(cmd Command) bool {
	switch c := cmd.(type) {
	case ReadSingleBlock:
		return s.runBlockCommand(HeaderReadSingle, []byte{c.Addr}, nil)
	case WriteSingleBlock:
		return s.runBlockCommand(HeaderWriteSingle, []byte{c.Addr}, c.Data[:])
	case ReadMultipleBlocks:
		return s.runBlockCommand(HeaderReadMultiple, c.Addrs, nil)
	case WriteMultipleBlocks:
		return s.runBlockCommand(HeaderWriteMultiple, c.Addrs, c.Data)
	default:
		s.log.Errorf("unknown command type %T", cmd)
		return false
	}
}

// runBlockCommand writes the given data (when present), reads every
// address back in order, and emits the typed response message. The
// response for a multi-block header carries the address count; single
// block responses are just header + data.
func (s *Session) runBlockCommand(header byte, addrs, writeData []byte) bool {
	multi := header == HeaderReadMultiple || header == HeaderWriteMultiple

	if writeData != nil {
		for i, addr := range addrs {
			var block [cr14.BlockSize]byte
			copy(block[:], writeData[i*cr14.BlockSize:])
			if err := s.dev.WriteBlock(addr, block); err != nil {
				s.log.Errorf("write block %d: %v", addr, err)
				s.setMode(ModeIdle, nil)
				return false
			}
		}
	}

	resp := make([]byte, 0, 2+len(addrs)*cr14.BlockSize)
	resp = append(resp, header)
	if multi {
		resp = append(resp, byte(len(addrs)))
	}
	for _, addr := range addrs {
		data, status, err := s.dev.ReadBlock(addr)
		switch {
		case err != nil:
			s.log.Errorf("read block %d: %v", addr, err)
			s.setMode(ModeIdle, nil)
			return false
		case status == cr14.StatusCollision:
			return true
		case status == cr14.StatusChipAbsent:
			return false
		}
		resp = append(resp, data[:]...)
	}

	s.emit(resp)
	s.setMode(ModeIdle, nil)
	return false
}

// emit publishes one complete message to the client read path.
func (s *Session) emit(msg []byte) {
	if n := s.ring.WriteMessage(msg); n < len(msg) {
		s.log.Errorf("response buffer full, dropped %d of %d bytes", len(msg)-n, len(msg))
	}
}

func (s *Session) setMode(mode Mode, cmd Command) {
	s.mu.Lock()
	s.mode = mode
	s.cmd = cmd
	s.mu.Unlock()
}
