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

package cr14

import (
	"errors"
	"fmt"
	"time"

	itransport "github.com/srxtools/go-cr14/internal/transport"
)

// RetryConfig bounds the transient-fault retries on frame-register reads.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// RetryDelay is the pause between attempts. The hardware turns
	// around quickly, so the default does not wait at all.
	RetryDelay time.Duration
}

// DefaultRetryConfig returns the retry policy the protocol specifies:
// up to 200 retries, back to back.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: frameRegisterMaxRetries,
		RetryDelay: 0,
	}
}

// DeviceConfig contains configuration options for the Device.
type DeviceConfig struct {
	// RetryConfig configures transient-fault retries for frame reads.
	RetryConfig *RetryConfig
}

// DefaultDeviceConfig returns default device configuration.
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		RetryConfig: DefaultRetryConfig(),
	}
}

// Device drives one CR14 reader chip over a register Transport. It owns
// the chip-level command encoding, the protocol settle times, and the
// anti-collision round state machine.
//
// Device methods are not safe for concurrent use; the session layer
// serializes all bus traffic through its polling task.
type Device struct {
	transport Transport
	config    *DeviceConfig
	log       *Logger
	sleep     func(time.Duration)
}

// New creates a Device on the given transport.
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, errors.New("transport cannot be nil")
	}
	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
		log:       DefaultLogger(),
		sleep:     time.Sleep,
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Transport returns the underlying register transport.
func (d *Device) Transport() Transport {
	return d.transport
}

// Close closes the underlying transport.
func (d *Device) Close() error {
	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

// Probe verifies that a CR14 answers on the bus. It reads the parameter
// register to confirm something is listening, then reads the ST25R
// identification register: a genuine CR14 NAKs that read, so any answer
// means the part is a lookalike.
func (d *Device) Probe() error {
	if _, err := d.transport.ReadRegister(RegParameter, 1); err != nil {
		return fmt.Errorf("%w: parameter register unreachable: %w", ErrDeviceNotFound, err)
	}

	id, err := d.transport.ReadRegister(regST25RIdentification, 1)
	if err != nil {
		return nil
	}
	if len(id) == 1 && id[0] == st25rIdentValue {
		return fmt.Errorf("%w: part identifies as ST25R", ErrWrongDevice)
	}
	return fmt.Errorf("%w: identification register answered", ErrWrongDevice)
}

// RFOn raises the RF carrier so transponders in range power up. The write
// is checked because a dead reader here would otherwise fail every
// subsequent exchange one at a time.
func (d *Device) RFOn() error {
	if err := d.transport.WriteRegisterChecked(RegParameter, carrierRFOutOn|watchdogTimeout5us); err != nil {
		return fmt.Errorf("turning RF on: %w", err)
	}
	return nil
}

// RFOff drops the RF carrier, powering down all transponders in range.
func (d *Device) RFOff() error {
	if err := d.transport.WriteRegister(RegParameter, []byte{carrierRFOutOff | watchdogTimeout5us}); err != nil {
		return fmt.Errorf("turning RF off: %w", err)
	}
	return nil
}

// writeFrame writes a length-prefixed command frame to the I/O frame
// register and sleeps the protocol settle time before the response may
// be read.
func (d *Device) writeFrame(frame []byte, settle time.Duration) error {
	if err := d.transport.WriteRegister(RegIOFrame, frame); err != nil {
		return fmt.Errorf("writing frame register: %w", err)
	}
	d.sleep(settle)
	return nil
}

// readFrame reads n bytes from the I/O frame register, retrying transient
// bus faults up to the configured budget. Any short read that is not a
// transient fault is a protocol violation.
func (d *Device) readFrame(n int) ([]byte, error) {
	retry := d.config.RetryConfig
	buf, err := itransport.WithRetry(itransport.RetryConfig{
		Description: "frame register read",
		MaxRetries:  retry.MaxRetries,
		RetryDelay:  retry.RetryDelay,
	}, func() ([]byte, bool, error) {
		buf, err := d.transport.ReadRegister(RegIOFrame, n)
		if err != nil {
			if IsRetryable(err) {
				return nil, true, nil
			}
			return nil, false, fmt.Errorf("reading frame register: %w", err)
		}
		if len(buf) != n {
			return nil, false, fmt.Errorf("%w: requested %d bytes, got %d", ErrFrameLength, n, len(buf))
		}
		return buf, false, nil
	})
	if err != nil {
		if errors.Is(err, itransport.ErrRetriesExhausted) {
			return nil, fmt.Errorf("%w: %w", ErrCommunicationFailed, err)
		}
		return nil, err
	}
	return buf, nil
}
