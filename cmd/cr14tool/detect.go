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
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/srxtools/go-cr14/detection"
)

var detectTimeout time.Duration

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Scan the host's I2C buses for CR14 readers",
	Args:  cobra.NoArgs,
	RunE:  runDetect,
}

func init() {
	detectCmd.Flags().DurationVar(&detectTimeout, "timeout", 10*time.Second, "Abort the scan after this long")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
	defer cancel()

	devices, err := detection.DetectAll(ctx, &detection.Options{
		Logger:           newLogger(),
		Addr:             addr,
		IncludeWrongPart: true,
	})
	if err != nil {
		return err
	}

	for _, dev := range devices {
		if dev.WrongPart {
			fmt.Printf("%-16s %#02x  ST25R-family chip (not a CR14)\n", dev.Bus, dev.Addr)
			continue
		}
		fmt.Printf("%-16s %#02x  CR14\n", dev.Bus, dev.Addr)
	}
	return nil
}
