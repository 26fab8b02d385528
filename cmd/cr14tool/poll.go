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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	cr14 "github.com/srxtools/go-cr14"
	"github.com/srxtools/go-cr14/session"
)

var pollOnce bool

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Stream transponder UIDs from the RF field",
	Long: `Poll turns the RF field on periodically and prints the UID of every
transponder it resolves, one per line. With --once the field is polled
until the first transponder answers, then the tool exits.`,
	Args: cobra.NoArgs,
	RunE: runPoll,
}

func init() {
	pollCmd.Flags().BoolVar(&pollOnce, "once", false, "Exit after the first transponder")
	rootCmd.AddCommand(pollCmd)
}

func runPoll(_ *cobra.Command, _ []string) error {
	dev, err := openDevice()
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()

	sess, err := session.New(dev, &session.Config{Logger: newLogger()})
	if err != nil {
		return err
	}
	if err := sess.Open(!pollOnce); err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if pollOnce {
		if err := writePacket(ctx, sess, []byte{session.HeaderPollOnce}); err != nil {
			return err
		}
	}

	buf := make([]byte, 1+cr14.UIDSize)
	for {
		if err := readFull(ctx, sess, buf); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if buf[0] != session.HeaderUID {
			return fmt.Errorf("unexpected response header %#02x", buf[0])
		}

		var uid [cr14.UIDSize]byte
		copy(uid[:], buf[1:])
		fmt.Printf("%s  %s\n", time.Now().Format(time.RFC3339), formatUID(uid))

		if pollOnce {
			return nil
		}
	}
}
