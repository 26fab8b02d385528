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

// Package detection discovers CR14 readers on the I2C buses exposed by
// the host. Each registered bus is probed at the CR14 address by
// reading the parameter register, so detection touches the chip but
// never turns the RF field on.
package detection

import (
	"context"
	"errors"
	"fmt"

	cr14 "github.com/srxtools/go-cr14"
	i2ctransport "github.com/srxtools/go-cr14/transport/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var (
	// ErrNoDevicesFound is returned when no CR14 answers on any bus.
	ErrNoDevicesFound = errors.New("no CR14 devices found")
	// ErrNoBuses is returned when the host exposes no I2C buses at all.
	ErrNoBuses = errors.New("no I2C buses available")
)

// DeviceInfo describes a detected CR14 reader.
type DeviceInfo struct {
	// Bus is the registry name of the I2C bus, usable with
	// transport/i2c.New.
	Bus string
	// Addr is the I2C address the chip answered on.
	Addr uint16
	// WrongPart is set when the address answered but identified as an
	// ST25R-family chip rather than a CR14.
	WrongPart bool
}

// Options configures a detection run.
type Options struct {
	// Logger receives per-bus probe results. Nil disables logging.
	Logger *cr14.Logger
	// Addr is the device address to probe. Zero means the CR14
	// default address.
	Addr uint16
	// IncludeWrongPart reports buses where an ST25R-family chip
	// answered instead of silently skipping them.
	IncludeWrongPart bool
}

// DetectAll probes every registered I2C bus and returns the devices
// that answered.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		opts = &Options{}
	}
	addr := opts.Addr
	if addr == 0 {
		addr = i2ctransport.DefaultAddr
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}

	refs := i2creg.All()
	if len(refs) == 0 {
		return nil, ErrNoBuses
	}

	var devices []DeviceInfo
	for _, ref := range refs {
		select {
		case <-ctx.Done():
			return devices, ctx.Err()
		default:
		}

		info, found := probeBus(ref.Name, addr, opts)
		if found {
			devices = append(devices, info)
		}
	}

	if len(devices) == 0 {
		return nil, ErrNoDevicesFound
	}
	return devices, nil
}

// probeBus opens a transport on one bus and asks the chip to identify
// itself. Buses that cannot be opened are skipped.
func probeBus(busName string, addr uint16, opts *Options) (DeviceInfo, bool) {
	tr, err := i2ctransport.NewWithAddr(busName, addr)
	if err != nil {
		opts.Logger.Debugf("detection: skipping bus %s: %v", busName, err)
		return DeviceInfo{}, false
	}
	defer func() { _ = tr.Close() }()

	dev, err := cr14.New(tr, cr14.WithLogger(opts.Logger))
	if err != nil {
		return DeviceInfo{}, false
	}

	switch err := dev.Probe(); {
	case err == nil:
		opts.Logger.Infof("detection: CR14 found on %s at %#02x", busName, addr)
		return DeviceInfo{Bus: busName, Addr: addr}, true
	case errors.Is(err, cr14.ErrWrongDevice):
		opts.Logger.Warnf("detection: ST25R-family chip on %s at %#02x", busName, addr)
		if opts.IncludeWrongPart {
			return DeviceInfo{Bus: busName, Addr: addr, WrongPart: true}, true
		}
		return DeviceInfo{}, false
	default:
		opts.Logger.Debugf("detection: no answer on %s at %#02x: %v", busName, addr, err)
		return DeviceInfo{}, false
	}
}
