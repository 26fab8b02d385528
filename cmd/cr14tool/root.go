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
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	cr14 "github.com/srxtools/go-cr14"
	i2ctransport "github.com/srxtools/go-cr14/transport/i2c"
	"github.com/srxtools/go-cr14/transport/i2cdev"
	serialtransport "github.com/srxtools/go-cr14/transport/serial"
)

var (
	// Transport selection flags. Exactly one of bus/device/serial-port
	// picks the transport; all empty means the default I2C bus.
	busName    string
	devicePath string
	serialPort string
	baudRate   int
	addr       uint16

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cr14tool",
	Short: "CR14 RFID reader utility",
	Long: `cr14tool - poll, read and write ISO14443-B SRX transponders through
a CR14 reader chip.

Transport selection:
  I2C bus (hardware abstraction layer):  --bus 1
  Raw Linux character device:            --device /dev/i2c-1
  Serial register bridge:                --serial-port /dev/ttyUSB0 [--baud 115200]

UIDs are given and printed as 16 hex digits in logical (big-endian)
order, e.g. d0021850a28b7c15.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&busName, "bus", "b", "", "I2C bus name or number")
	rootCmd.PersistentFlags().StringVarP(&devicePath, "device", "d", "", "I2C character device path")
	rootCmd.PersistentFlags().StringVarP(&serialPort, "serial-port", "s", "", "Serial register bridge port")
	rootCmd.PersistentFlags().IntVar(&baudRate, "baud", serialtransport.DefaultBaudRate, "Baud rate (serial bridge only)")
	rootCmd.PersistentFlags().Uint16Var(&addr, "addr", i2ctransport.DefaultAddr, "I2C device address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every frame exchange")
}

func newLogger() *cr14.Logger {
	level := cr14.LogLevelWarning
	if verbose {
		level = cr14.LogLevelDebug
	}
	return cr14.NewLogger(log.New(os.Stderr, "cr14: ", log.LstdFlags), level)
}

// openTransport builds the transport selected by the persistent flags.
func openTransport() (cr14.Transport, error) {
	switch {
	case serialPort != "":
		return serialtransport.NewWithBaudRate(serialPort, baudRate)
	case devicePath != "":
		return i2cdev.NewWithAddr(devicePath, int(addr))
	default:
		return i2ctransport.NewWithAddr(busName, addr)
	}
}

// openDevice opens the selected transport and probes for the chip.
func openDevice() (*cr14.Device, error) {
	tr, err := openTransport()
	if err != nil {
		return nil, err
	}

	dev, err := cr14.New(tr, cr14.WithLogger(newLogger()))
	if err != nil {
		_ = tr.Close()
		return nil, err
	}

	if err := dev.Probe(); err != nil {
		_ = dev.Close()
		return nil, err
	}
	return dev, nil
}

// parseUID converts a logical (big-endian) hex UID into the wire byte
// order the driver works in.
func parseUID(s string) ([cr14.UIDSize]byte, error) {
	var uid [cr14.UIDSize]byte

	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return uid, fmt.Errorf("invalid UID %q: %w", s, err)
	}
	if len(raw) != cr14.UIDSize {
		return uid, fmt.Errorf("invalid UID %q: want %d bytes, got %d", s, cr14.UIDSize, len(raw))
	}

	for i, b := range raw {
		uid[cr14.UIDSize-1-i] = b
	}
	return uid, nil
}

// formatUID renders a wire-order UID in logical (big-endian) hex.
func formatUID(uid [cr14.UIDSize]byte) string {
	var sb strings.Builder
	for i := cr14.UIDSize - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%02x", uid[i])
	}
	return sb.String()
}
