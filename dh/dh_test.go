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

package dh

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupParameters(t *testing.T) {
	p := Modulus()
	assert.Equal(t, 3072, p.BitLen())
	assert.True(t, p.ProbablyPrime(32))

	q := SubgroupOrder()
	expected := new(big.Int).Rsh(new(big.Int).Sub(p, big.NewInt(1)), 1)
	assert.Zero(t, q.Cmp(expected))
}

func TestKeyPairAgreement(t *testing.T) {
	a, err := GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	b, err := GenerateKeyPair(rand.Reader)
	require.NoError(t, err)

	ab, err := a.SharedSecret(b.Pub)
	require.NoError(t, err)
	ba, err := b.SharedSecret(a.Pub)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
	assert.NotEmpty(t, ab)
}

func TestValidatePublicKey(t *testing.T) {
	assert.NoError(t, ValidatePublicKey(big.NewInt(2)))
	assert.ErrorIs(t, ValidatePublicKey(big.NewInt(0)), ErrInvalidPublicKey)
	assert.ErrorIs(t, ValidatePublicKey(big.NewInt(1)), ErrInvalidPublicKey)
	assert.ErrorIs(t, ValidatePublicKey(Modulus()), ErrInvalidPublicKey)
	assert.ErrorIs(t, ValidatePublicKey(nil), ErrInvalidPublicKey)

	a, err := GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	_, err = a.SharedSecret(big.NewInt(1))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestDestroyWipesExponent(t *testing.T) {
	a, err := GenerateKeyPair(rand.Reader)
	require.NoError(t, err)

	a.Destroy()
	assert.Zero(t, a.Priv.Sign())
}
