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
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/cloudflare/circl/ecc/goldilocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrWhax/libotr-ng/dh"
	"github.com/DrWhax/libotr-ng/ed448"
)

func proofKeyPair(t *testing.T, first byte) *ed448.KeyPair {
	t.Helper()
	sym := make([]byte, ed448.SymmetricKeyBytes)
	sym[0] = first
	kp, err := ed448.FromSymmetricKey(sym)
	require.NoError(t, err)
	return kp
}

func TestECDHProofGenerationAndValidation(t *testing.T) {
	v1 := proofKeyPair(t, 1)
	v2 := proofKeyPair(t, 2)
	v3 := proofKeyPair(t, 3)
	v4 := proofKeyPair(t, 4)

	privs := []*goldilocks.Scalar{v1.Scalar(), v2.Scalar(), v3.Scalar()}
	pubs := []*goldilocks.Point{v1.Public(), v2.Public(), v3.Public()}

	m := make([]byte, 64)
	copy(m, []byte{0x01, 0x02, 0x03})
	m2 := make([]byte, 64)
	copy(m2, []byte{0x03, 0x02, 0x01})

	proof, err := GenerateECDHProof(rand.Reader, privs, pubs, m, 0x13)
	require.NoError(t, err)

	assert.True(t, proof.Verify(pubs, m, 0x13))
	assert.False(t, proof.Verify(pubs, m, 0x14))
	assert.False(t, proof.Verify(pubs, m2, 0x13))

	swapped := []*goldilocks.Point{v1.Public(), v4.Public(), v3.Public()}
	assert.False(t, proof.Verify(swapped, m, 0x13))
}

func TestDHProofGenerationAndValidation(t *testing.T) {
	var keys []*dh.KeyPair
	for i := 0; i < 4; i++ {
		kp, err := dh.GenerateKeyPair(rand.Reader)
		require.NoError(t, err)
		keys = append(keys, kp)
	}

	privs := []*big.Int{keys[0].Priv, keys[1].Priv, keys[2].Priv}
	pubs := []*big.Int{keys[0].Pub, keys[1].Pub, keys[2].Pub}

	m := make([]byte, 64)
	copy(m, []byte{0x01, 0x02, 0x03})
	m2 := make([]byte, 64)
	copy(m2, []byte{0x03, 0x02, 0x01})

	proof, err := GenerateDHProof(rand.Reader, privs, pubs, m, 0x13)
	require.NoError(t, err)

	assert.True(t, proof.Verify(pubs, m, 0x13))
	assert.False(t, proof.Verify(pubs, m, 0x14))
	assert.False(t, proof.Verify(pubs, m2, 0x13))

	swapped := []*big.Int{keys[0].Pub, keys[3].Pub, keys[2].Pub}
	assert.False(t, proof.Verify(swapped, m, 0x13))
}

func TestECDHProofSerialization(t *testing.T) {
	v1 := proofKeyPair(t, 1)

	px := &ECDHProof{V: *v1.Scalar()}
	px.C[0] = 0x42
	px.C[63] = 0x53

	out := px.Serialize(nil)
	require.Len(t, out, ECDHProofBytes)
	assert.Equal(t, byte(0x42), out[0])
	assert.Equal(t, byte(0x53), out[63])
	assert.Equal(t, v1.Scalar()[:], out[64:])
}

func TestDHProofSerialization(t *testing.T) {
	// 80-byte value {0x00, 0x01, 0x42, 0, ...}: the minimal MPI drops the
	// leading zero, leaving a 79-byte magnitude.
	vdata := make([]byte, dh.KeyBytes)
	vdata[1] = 0x01
	vdata[2] = 0x42

	px := &DHProof{V: new(big.Int).SetBytes(vdata)}
	px.C[0] = 0x42
	px.C[63] = 0x53

	expected := make([]byte, 147)
	expected[0] = 0x42
	expected[63] = 0x53
	expected[67] = 0x4F
	expected[68] = 0x01
	expected[69] = 0x42

	out := px.Serialize(nil)
	require.Len(t, out, 147)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x4F}, out[64:68])
	assert.Equal(t, expected, out)
}

func TestECDHProofDeserialization(t *testing.T) {
	v1 := proofKeyPair(t, 1)
	px := &ECDHProof{V: *v1.Scalar()}
	px.C[0] = 0x42
	px.C[63] = 0x53

	// Trailing bytes must be left unconsumed.
	raw := append(px.Serialize(nil), 0x00, 0x01)

	out, n, err := DeserializeECDHProof(raw)
	require.NoError(t, err)
	assert.Equal(t, ECDHProofBytes, n)
	assert.Equal(t, px.C, out.C)
	assert.Equal(t, px.V, out.V)
}

func TestDHProofDeserialization(t *testing.T) {
	vdata := make([]byte, dh.KeyBytes)
	vdata[1] = 0x01
	vdata[2] = 0x42

	px := &DHProof{V: new(big.Int).SetBytes(vdata)}
	px.C[0] = 0x42
	px.C[63] = 0x53

	raw := append(px.Serialize(nil), 0x00, 0x42)

	out, n, err := DeserializeDHProof(raw)
	require.NoError(t, err)
	assert.Equal(t, 147, n)
	assert.Equal(t, px.C, out.C)
	assert.Zero(t, px.V.Cmp(out.V))
}
