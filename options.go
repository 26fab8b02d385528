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

import "time"

// Option is a functional option for configuring a Device.
type Option func(*Device) error

// WithRetryConfig sets the transient-fault retry policy for frame reads.
func WithRetryConfig(config *RetryConfig) Option {
	return func(d *Device) error {
		if config == nil {
			config = DefaultRetryConfig()
		}
		d.config.RetryConfig = config
		return nil
	}
}

// WithMaxRetries sets the maximum number of transient-fault retries.
func WithMaxRetries(maxRetries int) Option {
	return func(d *Device) error {
		if d.config.RetryConfig == nil {
			d.config.RetryConfig = DefaultRetryConfig()
		}
		d.config.RetryConfig.MaxRetries = maxRetries
		return nil
	}
}

// WithLogger sets the logger used by the protocol layers.
func WithLogger(logger *Logger) Option {
	return func(d *Device) error {
		d.log = logger
		return nil
	}
}

// WithSleepFunc replaces the settle-time sleep. Simulated transports and
// tests use this to run protocol rounds without real-time waits.
func WithSleepFunc(sleep func(time.Duration)) Option {
	return func(d *Device) error {
		if sleep != nil {
			d.sleep = sleep
		}
		return nil
	}
}
