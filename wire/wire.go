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

// Package wire implements the OTRv4 prekey wire encoding: big-endian
// integers, u32-length-prefixed opaque data, ed448 points and scalars,
// and OTR MPIs. Serializers append to a destination slice; deserializers
// report the number of bytes consumed.
package wire

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/cloudflare/circl/ecc/goldilocks"
)

const (
	// ECPointBytes is the size of a compressed ed448 point.
	ECPointBytes = 57
	// ECScalarBytes is the size of an ed448 scalar, little-endian.
	ECScalarBytes = 56
)

var (
	// ErrMalformedInput signals a length prefix overflowing the buffer.
	ErrMalformedInput = errors.New("wire: malformed input")
	// ErrUnexpectedEOF signals input ending before a fixed-size field.
	ErrUnexpectedEOF = errors.New("wire: unexpected end of input")
	// ErrInvalidEncoding signals a failed point decompression or an
	// out-of-range scalar.
	ErrInvalidEncoding = errors.New("wire: invalid encoding")
)

// AppendUint8 appends v to dst.
func AppendUint8(dst []byte, v uint8) []byte {
	return append(dst, v)
}

// AppendUint16 appends v to dst in big-endian order.
func AppendUint16(dst []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(dst, v)
}

// AppendUint32 appends v to dst in big-endian order.
func AppendUint32(dst []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(dst, v)
}

// AppendUint64 appends v to dst in big-endian order.
func AppendUint64(dst []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(dst, v)
}

// AppendData appends data as a u32 length followed by the bytes.
func AppendData(dst []byte, data []byte) []byte {
	dst = AppendUint32(dst, uint32(len(data)))
	return append(dst, data...)
}

// AppendECPoint appends the 57-byte compressed encoding of p.
func AppendECPoint(dst []byte, p *goldilocks.Point) []byte {
	var buf [ECPointBytes]byte
	if err := p.ToBytes(buf[:]); err != nil {
		// A Point held in memory always encodes.
		panic("wire: unencodable ed448 point")
	}
	return append(dst, buf[:]...)
}

// AppendECScalar appends the 56-byte little-endian encoding of s.
func AppendECScalar(dst []byte, s *goldilocks.Scalar) []byte {
	return append(dst, s[:]...)
}

// AppendMPI appends n as an OTR MPI: u32 length plus the minimal
// big-endian magnitude. Zero encodes as length 0 with no payload.
func AppendMPI(dst []byte, n *big.Int) []byte {
	return AppendData(dst, n.Bytes())
}

// ReadUint8 reads a u8 from src.
func ReadUint8(src []byte) (uint8, int, error) {
	if len(src) < 1 {
		return 0, 0, ErrUnexpectedEOF
	}
	return src[0], 1, nil
}

// ReadUint16 reads a big-endian u16 from src.
func ReadUint16(src []byte) (uint16, int, error) {
	if len(src) < 2 {
		return 0, 0, ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint16(src), 2, nil
}

// ReadUint32 reads a big-endian u32 from src.
func ReadUint32(src []byte) (uint32, int, error) {
	if len(src) < 4 {
		return 0, 0, ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint32(src), 4, nil
}

// ReadUint64 reads a big-endian u64 from src.
func ReadUint64(src []byte) (uint64, int, error) {
	if len(src) < 8 {
		return 0, 0, ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint64(src), 8, nil
}

// ReadData reads a u32-length-prefixed byte string. The returned slice is
// a copy and does not alias src.
func ReadData(src []byte) ([]byte, int, error) {
	n, r, err := ReadUint32(src)
	if err != nil {
		return nil, 0, err
	}
	if uint64(n) > uint64(len(src)-r) {
		return nil, 0, ErrMalformedInput
	}
	out := make([]byte, n)
	copy(out, src[r:r+int(n)])
	return out, r + int(n), nil
}

// ReadBytes reads exactly n raw bytes from src.
func ReadBytes(src []byte, n int) ([]byte, int, error) {
	if len(src) < n {
		return nil, 0, ErrUnexpectedEOF
	}
	out := make([]byte, n)
	copy(out, src[:n])
	return out, n, nil
}

// ReadECPoint decodes a 57-byte compressed ed448 point.
func ReadECPoint(src []byte) (*goldilocks.Point, int, error) {
	if len(src) < ECPointBytes {
		return nil, 0, ErrUnexpectedEOF
	}
	p, err := goldilocks.FromBytes(src[:ECPointBytes])
	if err != nil {
		return nil, 0, ErrInvalidEncoding
	}
	return p, ECPointBytes, nil
}

// ReadECScalar decodes a 56-byte little-endian scalar, rejecting values
// not reduced modulo the group order.
func ReadECScalar(src []byte) (*goldilocks.Scalar, int, error) {
	if len(src) < ECScalarBytes {
		return nil, 0, ErrUnexpectedEOF
	}
	var s goldilocks.Scalar
	copy(s[:], src[:ECScalarBytes])
	if !scalarIsCanonical(&s) {
		return nil, 0, ErrInvalidEncoding
	}
	return &s, ECScalarBytes, nil
}

// ReadMPI reads an OTR MPI as a nonnegative big integer.
func ReadMPI(src []byte) (*big.Int, int, error) {
	data, n, err := ReadData(src)
	if err != nil {
		return nil, 0, err
	}
	return new(big.Int).SetBytes(data), n, nil
}

// scalarIsCanonical reports whether s, read little-endian, is strictly
// below the ed448 group order.
func scalarIsCanonical(s *goldilocks.Scalar) bool {
	order := goldilocks.Curve{}.Order()
	for i := ECScalarBytes - 1; i >= 0; i-- {
		if s[i] < order[i] {
			return true
		}
		if s[i] > order[i] {
			return false
		}
	}
	return false
}
