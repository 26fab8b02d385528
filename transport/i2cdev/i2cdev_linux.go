//go:build linux

// Package i2cdev provides a register transport over the Linux /dev/i2c
// character device interface, with no dependency on a hardware
// abstraction layer. It is the lightest way to reach a CR14 on embedded
// Linux boards.
package i2cdev

import (
	"fmt"

	cr14 "github.com/srxtools/go-cr14"
	"golang.org/x/sys/unix"
)

// I2C_SLAVE ioctl from linux/i2c-dev.h.
const i2cSlave = 0x0703

// DefaultAddr is the CR14's fixed I2C address.
const DefaultAddr = 0x50

// Transport implements the cr14.Transport interface over /dev/i2c-N.
type Transport struct {
	path string
	fd   int
}

// New opens the given /dev/i2c-N device and binds the CR14 at its
// default address.
func New(path string) (*Transport, error) {
	return NewWithAddr(path, DefaultAddr)
}

// NewWithAddr opens the given /dev/i2c-N device with an explicit
// device address.
func NewWithAddr(path string, addr int) (*Transport, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), i2cSlave, uintptr(addr)); errno != 0 {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to bind address %#02x on %s: %w", addr, path, errno)
	}

	return &Transport{fd: fd, path: path}, nil
}

// classify maps errnos to retryability: the kernel reports a busy or
// stretching CR14 as EREMOTEIO or ETIMEDOUT, which the protocol layer
// retries; EINTR and EAGAIN are handled locally.
func classify(err error) cr14.ErrorType {
	switch err {
	case unix.EREMOTEIO, unix.ETIMEDOUT, unix.ENXIO:
		return cr14.ErrorTypeTransient
	default:
		return cr14.ErrorTypePermanent
	}
}

// ReadRegister reads n bytes from the given register.
func (t *Transport) ReadRegister(reg byte, n int) ([]byte, error) {
	if err := t.writeRaw([]byte{reg}); err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	for {
		got, err := unix.Read(t.fd, buf)
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if err != nil {
			return nil, cr14.NewTransportError("read", t.path, err, classify(err))
		}
		if got != n {
			return nil, cr14.NewTransportError("read", t.path,
				fmt.Errorf("%w: requested %d bytes, got %d", cr14.ErrTransportRead, n, got),
				cr14.ErrorTypeTransient)
		}
		return buf, nil
	}
}

// WriteRegister writes data to the given register. An empty data slice
// sends the bare register address.
func (t *Transport) WriteRegister(reg byte, data []byte) error {
	frame := make([]byte, 0, 1+len(data))
	frame = append(frame, reg)
	frame = append(frame, data...)
	return t.writeRaw(frame)
}

func (t *Transport) writeRaw(frame []byte) error {
	for {
		n, err := unix.Write(t.fd, frame)
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if err != nil {
			return cr14.NewTransportError("write", t.path, err, classify(err))
		}
		if n != len(frame) {
			return cr14.NewTransportError("write", t.path,
				fmt.Errorf("%w: wrote %d of %d bytes", cr14.ErrTransportWrite, n, len(frame)),
				cr14.ErrorTypeTransient)
		}
		return nil
	}
}

// WriteRegisterChecked writes a single byte and verifies it by reading
// it back.
func (t *Transport) WriteRegisterChecked(reg, value byte) error {
	if err := t.WriteRegister(reg, []byte{value}); err != nil {
		return err
	}
	readback, err := t.ReadRegister(reg, 1)
	if err != nil {
		return err
	}
	if readback[0] != value {
		return fmt.Errorf("%w: register %#02x wrote %#02x, read %#02x",
			cr14.ErrReadbackMismatch, reg, value, readback[0])
	}
	return nil
}

// Close closes the device file descriptor.
func (t *Transport) Close() error {
	if err := unix.Close(t.fd); err != nil {
		return fmt.Errorf("failed to close %s: %w", t.path, err)
	}
	return nil
}

// Type returns cr14.TransportI2CDev.
func (*Transport) Type() cr14.TransportType {
	return cr14.TransportI2CDev
}

var _ cr14.Transport = (*Transport)(nil)
