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

package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry_SucceedsFirstTry(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := WithRetry(RetryConfig{MaxRetries: 3}, func() (int, bool, error) {
		calls++
		return 42, false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := WithRetry(RetryConfig{MaxRetries: 5}, func() (string, bool, error) {
		calls++
		if calls < 3 {
			return "", true, nil
		}
		return "done", false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_Exhaustion(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := WithRetry(RetryConfig{MaxRetries: 4, Description: "frame read"}, func() (int, bool, error) {
		calls++
		return 0, true, nil
	})
	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Contains(t, err.Error(), "frame read")
	// First attempt plus the retry budget.
	assert.Equal(t, 5, calls)
}

func TestWithRetry_PermanentErrorStops(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	calls := 0
	_, err := WithRetry(RetryConfig{MaxRetries: 10}, func() (int, bool, error) {
		calls++
		return 0, false, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_OnRetryFailureStops(t *testing.T) {
	t.Parallel()

	hookErr := errors.New("hook failed")
	calls := 0
	_, err := WithRetry(RetryConfig{
		MaxRetries: 10,
		OnRetry:    func() error { return hookErr },
	}, func() (int, bool, error) {
		calls++
		return 0, true, nil
	})
	require.ErrorIs(t, err, hookErr)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ZeroBudget(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := WithRetry(RetryConfig{}, func() (int, bool, error) {
		calls++
		return 0, true, nil
	})
	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, calls)
}
