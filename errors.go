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
)

// Sentinel errors returned by the protocol layers. Wrap-aware code should
// test them with errors.Is.
var (
	// ErrTransportRead indicates a register read failed at the bus level.
	ErrTransportRead = errors.New("transport read failed")
	// ErrTransportWrite indicates a register write failed at the bus level.
	ErrTransportWrite = errors.New("transport write failed")
	// ErrTransportTimeout indicates the bus did not answer in time.
	ErrTransportTimeout = errors.New("transport timeout")
	// ErrCommunicationFailed indicates repeated transient faults exhausted
	// the retry budget.
	ErrCommunicationFailed = errors.New("communication failed")
	// ErrDeviceNotFound indicates the parameter register did not answer
	// during probing; nothing is listening at the bus address.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrWrongDevice indicates the probed part identified as an ST25R or
	// another lookalike rather than a CR14.
	ErrWrongDevice = errors.New("not a CR14 device")
	// ErrFrameLength indicates a response frame with an unexpected length
	// byte. This is a hard protocol fault, not a retry condition.
	ErrFrameLength = errors.New("unexpected frame length")
	// ErrReadbackMismatch indicates a checked register write read back a
	// different value.
	ErrReadbackMismatch = errors.New("register readback mismatch")
	// ErrSessionBusy indicates the session endpoint is already open.
	ErrSessionBusy = errors.New("session already open")
	// ErrSessionClosed indicates an operation on a session that is not open.
	ErrSessionClosed = errors.New("session not open")
)

// ErrorType classifies a transport failure for retry decisions.
type ErrorType int

const (
	// ErrorTypeTransient marks faults worth retrying, such as the bus
	// briefly NAKing while the reader is busy with the RF front end.
	ErrorTypeTransient ErrorType = iota
	// ErrorTypeTimeout marks deadline expiry; retryable.
	ErrorTypeTimeout
	// ErrorTypePermanent marks faults that will not go away on their own.
	ErrorTypePermanent
)

// String returns a human-readable name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// TransportError wraps a bus-level failure with the operation and port it
// occurred on plus a retryability classification.
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a TransportError with retryability derived
// from the error type.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a TransportError for a timed-out operation.
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// IsRetryable reports whether err represents a condition that may clear
// on retry. TransportError carries its own classification; bare sentinel
// errors fall back to a fixed table.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrCommunicationFailed):
		return true
	default:
		return false
	}
}

// GetErrorType returns the classification for err, defaulting to
// permanent for anything not explicitly known to be transient.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTransportTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrCommunicationFailed):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
