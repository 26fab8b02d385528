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

import "sync"

// MockWrite records one register write seen by a MockTransport.
type MockWrite struct {
	Data []byte
	Reg  byte
}

// MockTransport is a scripted register transport for tests. Reads are
// served from per-register FIFO queues; writes are recorded. An optional
// ReadFunc overrides the queues entirely.
type MockTransport struct {
	ReadFunc   func(reg byte, n int) ([]byte, error)
	WriteFunc  func(reg byte, data []byte) error
	responses  map[byte][][]byte
	writes     []MockWrite
	checkFails map[byte]error
	mu         sync.Mutex
	closed     bool
}

// NewMockTransport creates an empty mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses:  make(map[byte][][]byte),
		checkFails: make(map[byte]error),
	}
}

// QueueRead appends a canned response for reads of the given register.
func (m *MockTransport) QueueRead(reg byte, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[reg] = append(m.responses[reg], data)
}

// FailCheckedWrite makes WriteRegisterChecked of reg return err.
func (m *MockTransport) FailCheckedWrite(reg byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkFails[reg] = err
}

// Writes returns every recorded register write in order.
func (m *MockTransport) Writes() []MockWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockWrite, len(m.writes))
	copy(out, m.writes)
	return out
}

// WritesTo returns the recorded writes for one register.
func (m *MockTransport) WritesTo(reg byte) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]byte
	for _, w := range m.writes {
		if w.Reg == reg {
			out = append(out, w.Data)
		}
	}
	return out
}

// ReadRegister serves the next queued response for reg. If the queue is
// empty it reports a timeout, which the device classifies as retryable.
func (m *MockTransport) ReadRegister(reg byte, n int) ([]byte, error) {
	m.mu.Lock()
	readFunc := m.ReadFunc
	m.mu.Unlock()
	if readFunc != nil {
		return readFunc(reg, n)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	queue := m.responses[reg]
	if len(queue) == 0 {
		return nil, NewTransportError("read", "mock", ErrTransportRead, ErrorTypePermanent)
	}
	resp := queue[0]
	m.responses[reg] = queue[1:]

	buf := make([]byte, n)
	copy(buf, resp)
	return buf, nil
}

// WriteRegister records the write.
func (m *MockTransport) WriteRegister(reg byte, data []byte) error {
	m.mu.Lock()
	writeFunc := m.WriteFunc
	m.mu.Unlock()
	if writeFunc != nil {
		return writeFunc(reg, data)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, MockWrite{Reg: reg, Data: append([]byte(nil), data...)})
	return nil
}

// WriteRegisterChecked records the write and succeeds unless a failure
// was scripted with FailCheckedWrite.
func (m *MockTransport) WriteRegisterChecked(reg, value byte) error {
	m.mu.Lock()
	err := m.checkFails[reg]
	m.writes = append(m.writes, MockWrite{Reg: reg, Data: []byte{value}})
	m.mu.Unlock()
	return err
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (m *MockTransport) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Type returns TransportMock.
func (*MockTransport) Type() TransportType {
	return TransportMock
}
