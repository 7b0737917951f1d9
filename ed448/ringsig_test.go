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

package ed448

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrWhax/libotr-ng/kdf"
)

func ringFixture(t *testing.T) (*KeyPair, *KeyPair, *KeyPair) {
	t.Helper()
	a, err := FromSymmetricKey(symKey(1))
	require.NoError(t, err)
	b, err := FromSymmetricKey(symKey(2))
	require.NoError(t, err)
	c, err := FromSymmetricKey(symKey(3))
	require.NoError(t, err)
	return a, b, c
}

func TestRingSignatureEachPosition(t *testing.T) {
	a, b, c := ringFixture(t)
	msg := []byte{0x01, 0x02, 0x03}

	for i, signer := range []*KeyPair{a, b, c} {
		sigma, err := Authenticate(rand.Reader, kdf.UsageAuth, kdf.Domain,
			signer, a.Public(), b.Public(), c.Public(), msg)
		require.NoError(t, err, "position %d", i)
		assert.True(t, VerifyRing(kdf.UsageAuth, kdf.Domain, sigma,
			a.Public(), b.Public(), c.Public(), msg), "position %d", i)
	}
}

func TestRingSignatureTampering(t *testing.T) {
	a, b, c := ringFixture(t)
	msg := []byte{0x01, 0x02, 0x03}

	sigma, err := Authenticate(rand.Reader, kdf.UsageAuth, kdf.Domain,
		a, a.Public(), b.Public(), c.Public(), msg)
	require.NoError(t, err)

	t.Run("altered message", func(t *testing.T) {
		assert.False(t, VerifyRing(kdf.UsageAuth, kdf.Domain, sigma,
			a.Public(), b.Public(), c.Public(), []byte{0x03, 0x02, 0x01}))
	})

	t.Run("altered usage", func(t *testing.T) {
		assert.False(t, VerifyRing(kdf.UsageProofContext, kdf.Domain, sigma,
			a.Public(), b.Public(), c.Public(), msg))
	})

	t.Run("altered domain", func(t *testing.T) {
		assert.False(t, VerifyRing(kdf.UsageAuth, "OTR-Other-Context", sigma,
			a.Public(), b.Public(), c.Public(), msg))
	})

	t.Run("altered ring member", func(t *testing.T) {
		d, err := FromSymmetricKey(symKey(4))
		require.NoError(t, err)
		assert.False(t, VerifyRing(kdf.UsageAuth, kdf.Domain, sigma,
			a.Public(), d.Public(), c.Public(), msg))
	})

	t.Run("altered scalar", func(t *testing.T) {
		mangled := *sigma
		mangled.R2[0] ^= 0x01
		assert.False(t, VerifyRing(kdf.UsageAuth, kdf.Domain, &mangled,
			a.Public(), b.Public(), c.Public(), msg))
	})

	t.Run("altered aggregate challenge", func(t *testing.T) {
		mangled := *sigma
		mangled.C0[0] ^= 0x01
		assert.False(t, VerifyRing(kdf.UsageAuth, kdf.Domain, &mangled,
			a.Public(), b.Public(), c.Public(), msg))
	})
}

func TestRingSignatureSignerNotInRing(t *testing.T) {
	a, b, c := ringFixture(t)
	d, err := FromSymmetricKey(symKey(9))
	require.NoError(t, err)

	_, err = Authenticate(rand.Reader, kdf.UsageAuth, kdf.Domain,
		d, a.Public(), b.Public(), c.Public(), []byte{0x01})
	assert.Error(t, err)
}

func TestRingSignatureSerialization(t *testing.T) {
	a, b, c := ringFixture(t)
	msg := []byte("transcript")

	sigma, err := Authenticate(rand.Reader, kdf.UsageAuth, kdf.Domain,
		b, a.Public(), b.Public(), c.Public(), msg)
	require.NoError(t, err)

	buf := sigma.Serialize(nil)
	require.Len(t, buf, RingSigBytes)

	out, n, err := DeserializeRingSignature(buf)
	require.NoError(t, err)
	assert.Equal(t, RingSigBytes, n)
	assert.Equal(t, sigma, out)
	assert.True(t, VerifyRing(kdf.UsageAuth, kdf.Domain, out,
		a.Public(), b.Public(), c.Public(), msg))
}

func TestRingSignatureDeserializeTruncated(t *testing.T) {
	_, _, err := DeserializeRingSignature(make([]byte, RingSigBytes-1))
	assert.Error(t, err)
}
