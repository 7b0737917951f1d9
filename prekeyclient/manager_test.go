// Copyright (C) 2025 the libotr-ng contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package prekeyclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRegisterGetRemove(t *testing.T) {
	m := NewManager()
	defer m.Close()

	c, _ := newTestClient(t, nil)
	id := m.Register(c)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(id)
	require.NoError(t, err)
	assert.Same(t, c, got)

	require.NoError(t, m.Remove(id))
	assert.Zero(t, m.Len())

	_, err = m.Get(id)
	assert.ErrorIs(t, err, ErrClientNotFound)
	assert.ErrorIs(t, m.Remove(id), ErrClientNotFound)
}

func TestManagerDistinctHandles(t *testing.T) {
	m := NewManager()
	defer m.Close()

	a, _ := newTestClient(t, nil)
	b, _ := newTestClient(t, nil)
	idA := m.Register(a)
	idB := m.Register(b)
	assert.NotEqual(t, idA, idB)
	assert.Equal(t, 2, m.Len())
}

func TestManagerCloseFreesClients(t *testing.T) {
	m := NewManager()

	c, _ := newTestClient(t, nil)
	srv := newServerEmulator(t)
	runToAwaitingReply(t, c, srv, c.RequestStorageStatus)
	require.NotEqual(t, make([]byte, 64), c.macKey[:])

	m.Register(c)
	m.Close()

	assert.Zero(t, m.Len())
	assert.Equal(t, make([]byte, 64), c.macKey[:])
	assert.Equal(t, StateIdle, c.State())
}
