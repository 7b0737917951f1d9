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

package prekey

import (
	"bytes"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrWhax/libotr-ng/ed448"
)

const testInstanceTag = 0x10203040

func TestBuildMessages(t *testing.T) {
	store := NewStore()
	messages, err := BuildMessages(rand.Reader, store, testInstanceTag, 5)
	require.NoError(t, err)
	require.Len(t, messages, 5)
	assert.Equal(t, 5, store.Len())

	seen := map[uint32]bool{}
	for _, m := range messages {
		assert.Equal(t, uint32(testInstanceTag), m.InstanceTag)
		assert.False(t, seen[m.ID], "duplicate prekey id %#x", m.ID)
		seen[m.ID] = true

		stored, ok := store.Get(m.ID)
		require.True(t, ok)
		assert.True(t, stored.ECDH.Public().IsEqual(m.Y))
		assert.Zero(t, stored.DH.Pub.Cmp(m.B))
	}
}

func TestBuildMessagesTooMany(t *testing.T) {
	store := NewStore()
	_, err := BuildMessages(rand.Reader, store, testInstanceTag, 256)
	assert.ErrorIs(t, err, ErrTooManyMessages)
	assert.Zero(t, store.Len())
}

func TestMessageRoundTrip(t *testing.T) {
	store := NewStore()
	messages, err := BuildMessages(rand.Reader, store, testInstanceTag, 1)
	require.NoError(t, err)

	raw := messages[0].Serialize(nil)
	out, n, err := DeserializeMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, messages[0].ID, out.ID)
	assert.Equal(t, messages[0].InstanceTag, out.InstanceTag)
	assert.True(t, messages[0].Y.IsEqual(out.Y))
	assert.Zero(t, messages[0].B.Cmp(out.B))
}

func TestMessageDeserializeErrors(t *testing.T) {
	store := NewStore()
	messages, err := BuildMessages(rand.Reader, store, testInstanceTag, 1)
	require.NoError(t, err)
	raw := messages[0].Serialize(nil)

	t.Run("wrong version", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		bad[1] = 0x03
		_, _, err := DeserializeMessage(bad)
		assert.Error(t, err)
	})

	t.Run("truncated", func(t *testing.T) {
		_, _, err := DeserializeMessage(raw[:len(raw)-1])
		assert.Error(t, err)
	})
}

func TestStoreRemove(t *testing.T) {
	store := NewStore()
	messages, err := BuildMessages(rand.Reader, store, testInstanceTag, 3)
	require.NoError(t, err)

	require.NoError(t, store.Remove(messages[1].ID))
	assert.Equal(t, 2, store.Len())
	_, ok := store.Get(messages[1].ID)
	assert.False(t, ok)

	assert.ErrorIs(t, store.Remove(messages[1].ID), ErrNotFound)
}

func TestStoreAllOrdered(t *testing.T) {
	store := NewStore()
	_, err := BuildMessages(rand.Reader, store, testInstanceTag, 10)
	require.NoError(t, err)

	all := store.All()
	require.Len(t, all, 10)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestStoreExpireBefore(t *testing.T) {
	store := NewStore()
	messages, err := BuildMessages(rand.Reader, store, testInstanceTag, 4)
	require.NoError(t, err)

	cutoff := time.Now().Add(-time.Hour)
	old, ok := store.Get(messages[0].ID)
	require.True(t, ok)
	old.CreatedAt = cutoff.Add(-time.Minute)

	expired := store.ExpireBefore(cutoff)
	assert.Equal(t, []uint32{messages[0].ID}, expired)
	assert.Equal(t, 3, store.Len())
}

func TestStoreWipeZeroises(t *testing.T) {
	store := NewStore()
	messages, err := BuildMessages(rand.Reader, store, testInstanceTag, 1)
	require.NoError(t, err)

	stored, ok := store.Get(messages[0].ID)
	require.True(t, ok)
	ecdh := stored.ECDH
	dhPair := stored.DH

	store.Wipe()
	assert.Zero(t, store.Len())
	assert.True(t, bytes.Equal(ecdh.Scalar()[:], make([]byte, ed448.ScalarBytes)))
	assert.Zero(t, dhPair.Priv.Sign())
}
