//go:build !linux

// Package i2cdev provides a register transport over the Linux /dev/i2c
// character device interface. It is only available on Linux.
package i2cdev

import (
	"errors"

	cr14 "github.com/srxtools/go-cr14"
)

// ErrUnsupported is returned on platforms without /dev/i2c support.
var ErrUnsupported = errors.New("i2cdev transport is only supported on linux")

// Transport is a placeholder on non-Linux platforms.
type Transport struct{}

// New always fails on non-Linux platforms.
func New(path string) (*Transport, error) {
	return nil, ErrUnsupported
}

// NewWithAddr always fails on non-Linux platforms.
func NewWithAddr(path string, addr int) (*Transport, error) {
	return nil, ErrUnsupported
}

func (t *Transport) ReadRegister(reg byte, n int) ([]byte, error) { return nil, ErrUnsupported }
func (t *Transport) WriteRegister(reg byte, data []byte) error    { return ErrUnsupported }
func (t *Transport) WriteRegisterChecked(reg, value byte) error   { return ErrUnsupported }
func (t *Transport) Close() error                                 { return nil }
func (t *Transport) Type() cr14.TransportType                     { return cr14.TransportI2CDev }
