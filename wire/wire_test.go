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

package wire

import (
	"math/big"
	"testing"

	"github.com/cloudflare/circl/ecc/goldilocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUintRoundTrips(t *testing.T) {
	t.Run("uint8", func(t *testing.T) {
		buf := AppendUint8(nil, 0x12)
		require.Len(t, buf, 1)

		v, n, err := ReadUint8(buf)
		require.NoError(t, err)
		assert.Equal(t, uint8(0x12), v)
		assert.Equal(t, len(buf), n)
	})

	t.Run("uint16", func(t *testing.T) {
		buf := AppendUint16(nil, 0x1234)
		require.Equal(t, []byte{0x12, 0x34}, buf)

		v, n, err := ReadUint16(buf)
		require.NoError(t, err)
		assert.Equal(t, uint16(0x1234), v)
		assert.Equal(t, len(buf), n)
	})

	t.Run("uint32", func(t *testing.T) {
		buf := AppendUint32(nil, 0x12345678)
		require.Equal(t, []byte{0x12, 0x34, 0x56, 0x78}, buf)

		v, n, err := ReadUint32(buf)
		require.NoError(t, err)
		assert.Equal(t, uint32(0x12345678), v)
		assert.Equal(t, len(buf), n)
	})

	t.Run("uint64", func(t *testing.T) {
		buf := AppendUint64(nil, 0x123456789ABCDEF0)
		require.Len(t, buf, 8)

		v, n, err := ReadUint64(buf)
		require.NoError(t, err)
		assert.Equal(t, uint64(0x123456789ABCDEF0), v)
		assert.Equal(t, len(buf), n)
	})
}

func TestDataRoundTrip(t *testing.T) {
	src := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	buf := AppendData(nil, src)
	require.Len(t, buf, 9)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x05}, buf[:4])

	out, n, err := ReadData(buf)
	require.NoError(t, err)
	assert.Equal(t, src, out)
	assert.Equal(t, len(buf), n)
}

func TestDataErrors(t *testing.T) {
	t.Run("length prefix overflows buffer", func(t *testing.T) {
		buf := []byte{0x00, 0x00, 0x00, 0x10, 0xAA}
		_, _, err := ReadData(buf)
		assert.ErrorIs(t, err, ErrMalformedInput)
	})

	t.Run("truncated length prefix", func(t *testing.T) {
		_, _, err := ReadData([]byte{0x00, 0x00})
		assert.ErrorIs(t, err, ErrUnexpectedEOF)
	})

	t.Run("truncated fixed reads", func(t *testing.T) {
		_, _, err := ReadUint32([]byte{0x01})
		assert.ErrorIs(t, err, ErrUnexpectedEOF)

		_, _, err = ReadUint64(nil)
		assert.ErrorIs(t, err, ErrUnexpectedEOF)
	})
}

func TestMPIRoundTrip(t *testing.T) {
	v := new(big.Int).SetBytes([]byte{0x01, 0x02, 0x03})
	buf := AppendMPI(nil, v)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x03, 0x01, 0x02, 0x03}, buf)

	out, n, err := ReadMPI(buf)
	require.NoError(t, err)
	assert.Zero(t, v.Cmp(out))
	assert.Equal(t, len(buf), n)
}

func TestMPIMinimality(t *testing.T) {
	t.Run("no leading zero bytes", func(t *testing.T) {
		v := new(big.Int).SetBytes([]byte{0x00, 0x01, 0x42})
		buf := AppendMPI(nil, v)
		assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x02, 0x01, 0x42}, buf)
	})

	t.Run("zero encodes as empty magnitude", func(t *testing.T) {
		buf := AppendMPI(nil, big.NewInt(0))
		require.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, buf)

		out, n, err := ReadMPI(buf)
		require.NoError(t, err)
		assert.Zero(t, out.Sign())
		assert.Equal(t, 4, n)
	})
}

func TestECPointRoundTrip(t *testing.T) {
	var s goldilocks.Scalar
	s.FromBytes([]byte{0x07})
	p := goldilocks.Curve{}.ScalarBaseMult(&s)

	buf := AppendECPoint(nil, p)
	require.Len(t, buf, ECPointBytes)

	out, n, err := ReadECPoint(buf)
	require.NoError(t, err)
	assert.Equal(t, ECPointBytes, n)
	assert.True(t, p.IsEqual(out))
}

func TestECPointErrors(t *testing.T) {
	t.Run("truncated", func(t *testing.T) {
		_, _, err := ReadECPoint(make([]byte, ECPointBytes-1))
		assert.ErrorIs(t, err, ErrUnexpectedEOF)
	})

	t.Run("undecodable", func(t *testing.T) {
		junk := make([]byte, ECPointBytes)
		for i := range junk {
			junk[i] = 0xFF
		}
		_, _, err := ReadECPoint(junk)
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})
}

func TestECScalarRoundTrip(t *testing.T) {
	var s goldilocks.Scalar
	s.FromBytes([]byte{0xAB, 0xCD, 0xEF})

	buf := AppendECScalar(nil, &s)
	require.Len(t, buf, ECScalarBytes)

	out, n, err := ReadECScalar(buf)
	require.NoError(t, err)
	assert.Equal(t, ECScalarBytes, n)
	assert.Equal(t, s, *out)
}

func TestECScalarRange(t *testing.T) {
	t.Run("group order is rejected", func(t *testing.T) {
		order := goldilocks.Curve{}.Order()
		_, _, err := ReadECScalar(order[:])
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("truncated", func(t *testing.T) {
		_, _, err := ReadECScalar(make([]byte, ECScalarBytes-1))
		assert.ErrorIs(t, err, ErrUnexpectedEOF)
	})
}
