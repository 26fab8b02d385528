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
	"log"
	"os"
)

// LogLevel gates how much the protocol layers report.
type LogLevel int

const (
	// LogLevelNone silences the logger entirely.
	LogLevelNone LogLevel = iota
	// LogLevelError reports bus faults and protocol violations.
	LogLevelError
	// LogLevelWarning additionally reports recoverable oddities such as
	// select echo mismatches.
	LogLevelWarning
	// LogLevelInfo additionally reports session lifecycle events.
	LogLevelInfo
	// LogLevelDebug reports every frame exchange.
	LogLevelDebug
)

// Logger is a minimal leveled logger over the standard library's log
// package. A nil *Logger is valid and discards everything.
type Logger struct {
	logger *log.Logger
	level  LogLevel
}

// NewLogger wraps an existing *log.Logger at the given level.
func NewLogger(logger *log.Logger, level LogLevel) *Logger {
	return &Logger{logger: logger, level: level}
}

// DefaultLogger logs errors and warnings to stderr.
func DefaultLogger() *Logger {
	return NewLogger(log.New(os.Stderr, "cr14: ", log.LstdFlags), LogLevelWarning)
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, v ...any) {
	if l != nil && l.level >= LogLevelDebug {
		l.logger.Printf("DEBUG: "+format, v...)
	}
}

// Infof logs at info level.
func (l *Logger) Infof(format string, v ...any) {
	if l != nil && l.level >= LogLevelInfo {
		l.logger.Printf(format, v...)
	}
}

// Warnf logs at warning level.
func (l *Logger) Warnf(format string, v ...any) {
	if l != nil && l.level >= LogLevelWarning {
		l.logger.Printf("WARN: "+format, v...)
	}
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, v ...any) {
	if l != nil && l.level >= LogLevelError {
		l.logger.Printf("ERROR: "+format, v...)
	}
}
