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
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	cr14 "github.com/srxtools/go-cr14"
	"github.com/srxtools/go-cr14/session"
)

var (
	targetUID  string
	cmdTimeout time.Duration

	dumpStart int
	dumpCount int
)

var readCmd = &cobra.Command{
	Use:   "read --uid <uid> <addr>...",
	Short: "Read one or more 4-byte blocks from a transponder",
	Long: `Read waits for the named transponder to appear in the field, reads the
given block addresses and prints each block as 8 hex digits. Addresses
are decimal or 0x-prefixed hex.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRead,
}

var writeCmd = &cobra.Command{
	Use:   "write --uid <uid> <addr:data>...",
	Short: "Write one or more 4-byte blocks to a transponder",
	Long: `Write waits for the named transponder to appear in the field and writes
each addr:data pair, where data is exactly 8 hex digits. Every block is
read back after writing and printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWrite,
}

var dumpCmd = &cobra.Command{
	Use:   "dump --uid <uid>",
	Short: "Dump a contiguous block range from a transponder",
	Args:  cobra.NoArgs,
	RunE:  runDump,
}

func init() {
	for _, c := range []*cobra.Command{readCmd, writeCmd, dumpCmd} {
		c.Flags().StringVarP(&targetUID, "uid", "u", "", "Target transponder UID (16 hex digits, logical order)")
		c.Flags().DurationVarP(&cmdTimeout, "timeout", "t", 30*time.Second, "Give up waiting for the transponder after this long")
		_ = c.MarkFlagRequired("uid")
		rootCmd.AddCommand(c)
	}
	dumpCmd.Flags().IntVar(&dumpStart, "start", 0, "First block address")
	dumpCmd.Flags().IntVar(&dumpCount, "count", 16, "Number of blocks")
}

func parseAddr(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid block address %q: %w", s, err)
	}
	return byte(v), nil
}

// runCommand opens a read-write session, submits one command packet and
// returns the full response message (header and count byte stripped).
func runCommand(pkt []byte, respLen int) ([]byte, error) {
	dev, err := openDevice()
	if err != nil {
		return nil, err
	}
	defer func() { _ = dev.Close() }()

	sess, err := session.New(dev, &session.Config{Logger: newLogger()})
	if err != nil {
		return nil, err
	}
	if err := sess.Open(false); err != nil {
		return nil, err
	}
	defer func() { _ = sess.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	if err := writePacket(ctx, sess, pkt); err != nil {
		return nil, err
	}

	resp := make([]byte, respLen)
	if err := readFull(ctx, sess, resp); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("transponder %s did not answer within %v", targetUID, cmdTimeout)
		}
		return nil, err
	}
	if resp[0] != pkt[0] {
		return nil, fmt.Errorf("unexpected response header %#02x", resp[0])
	}
	return resp, nil
}

func runRead(_ *cobra.Command, args []string) error {
	uid, err := parseUID(targetUID)
	if err != nil {
		return err
	}

	addrs := make([]byte, len(args))
	for i, arg := range args {
		if addrs[i], err = parseAddr(arg); err != nil {
			return err
		}
	}

	var pkt []byte
	var respLen, dataOff int
	if len(addrs) == 1 {
		pkt = append(append([]byte{session.HeaderReadSingle}, uid[:]...), addrs[0])
		respLen, dataOff = 1+cr14.BlockSize, 1
	} else {
		pkt = append([]byte{session.HeaderReadMultiple}, uid[:]...)
		pkt = append(pkt, byte(len(addrs)))
		pkt = append(pkt, addrs...)
		respLen, dataOff = 2+len(addrs)*cr14.BlockSize, 2
	}

	resp, err := runCommand(pkt, respLen)
	if err != nil {
		return err
	}

	for i, addr := range addrs {
		block := resp[dataOff+i*cr14.BlockSize : dataOff+(i+1)*cr14.BlockSize]
		fmt.Printf("block %3d: %s\n", addr, hex.EncodeToString(block))
	}
	return nil
}

func runWrite(_ *cobra.Command, args []string) error {
	uid, err := parseUID(targetUID)
	if err != nil {
		return err
	}

	addrs := make([]byte, 0, len(args))
	data := make([]byte, 0, len(args)*cr14.BlockSize)
	for _, arg := range args {
		addrPart, dataPart, ok := strings.Cut(arg, ":")
		if !ok {
			return fmt.Errorf("invalid block spec %q: want addr:data", arg)
		}
		addr, err := parseAddr(addrPart)
		if err != nil {
			return err
		}
		raw, err := hex.DecodeString(dataPart)
		if err != nil || len(raw) != cr14.BlockSize {
			return fmt.Errorf("invalid block data %q: want %d hex bytes", dataPart, cr14.BlockSize)
		}
		addrs = append(addrs, addr)
		data = append(data, raw...)
	}

	var pkt []byte
	var respLen, dataOff int
	if len(addrs) == 1 {
		pkt = append(append([]byte{session.HeaderWriteSingle}, uid[:]...), addrs[0])
		pkt = append(pkt, data...)
		respLen, dataOff = 1+cr14.BlockSize, 1
	} else {
		pkt = append([]byte{session.HeaderWriteMultiple}, uid[:]...)
		pkt = append(pkt, byte(len(addrs)))
		pkt = append(pkt, addrs...)
		pkt = append(pkt, data...)
		respLen, dataOff = 2+len(addrs)*cr14.BlockSize, 2
	}

	resp, err := runCommand(pkt, respLen)
	if err != nil {
		return err
	}

	for i, addr := range addrs {
		block := resp[dataOff+i*cr14.BlockSize : dataOff+(i+1)*cr14.BlockSize]
		fmt.Printf("block %3d: %s\n", addr, hex.EncodeToString(block))
	}
	return nil
}

func runDump(_ *cobra.Command, _ []string) error {
	uid, err := parseUID(targetUID)
	if err != nil {
		return err
	}
	// The count byte caps one request at 255 blocks.
	if dumpStart < 0 || dumpCount < 1 || dumpCount > 255 || dumpStart+dumpCount > 256 {
		return fmt.Errorf("block range %d..%d out of bounds", dumpStart, dumpStart+dumpCount-1)
	}

	addrs := make([]byte, dumpCount)
	for i := range addrs {
		addrs[i] = byte(dumpStart + i)
	}

	pkt := append([]byte{session.HeaderReadMultiple}, uid[:]...)
	pkt = append(pkt, byte(len(addrs)))
	pkt = append(pkt, addrs...)

	resp, err := runCommand(pkt, 2+len(addrs)*cr14.BlockSize)
	if err != nil {
		return err
	}

	for i, addr := range addrs {
		block := resp[2+i*cr14.BlockSize : 2+(i+1)*cr14.BlockSize]
		fmt.Printf("block %3d: %s\n", addr, hex.EncodeToString(block))
	}
	return nil
}
