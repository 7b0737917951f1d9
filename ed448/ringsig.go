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
	"crypto/subtle"
	"io"

	"github.com/cloudflare/circl/ecc/goldilocks"

	"github.com/DrWhax/libotr-ng/internal/memwipe"
	"github.com/DrWhax/libotr-ng/kdf"
	"github.com/DrWhax/libotr-ng/wire"
)

// RingSigBytes is the serialised size of a ring signature: seven 56-byte
// scalars.
const RingSigBytes = 7 * ScalarBytes

// RingSignature is a Schnorr-style proof of knowledge of one of three
// discrete logs. C0 is the aggregate challenge; the verifier requires
// C0 = C1 + C2 + C3 and that C0 matches the challenge hash.
type RingSignature struct {
	C1, R1 goldilocks.Scalar
	C2, R2 goldilocks.Scalar
	C3, R3 goldilocks.Scalar
	C0     goldilocks.Scalar
}

// Authenticate produces a ring signature over msg with the ring
// {A1, A2, A3}. The secret key pair must match one of the three ring
// members. The usage tag and domain string bind the proof to its protocol
// context.
func Authenticate(rand io.Reader, usage byte, domain string, secret *KeyPair,
	a1, a2, a3 *goldilocks.Point, msg []byte) (*RingSignature, error) {

	ring := [3]*goldilocks.Point{a1, a2, a3}
	known := -1
	for i, a := range ring {
		if secret.pub.IsEqual(a) {
			known = i
			break
		}
	}
	if known < 0 {
		return nil, ErrInvalidSignature
	}

	curve := goldilocks.Curve{}

	t, err := RandomScalar(rand)
	if err != nil {
		return nil, err
	}
	defer memwipe.Bytes(t[:])

	var c, r [3]*goldilocks.Scalar
	var commitments [3]*goldilocks.Point
	commitments[known] = curve.ScalarBaseMult(t)
	for j := range ring {
		if j == known {
			continue
		}
		if c[j], err = RandomScalar(rand); err != nil {
			return nil, err
		}
		if r[j], err = RandomScalar(rand); err != nil {
			return nil, err
		}
		commitments[j] = curve.CombinedMult(r[j], c[j], ring[j])
	}

	c0 := challenge(usage, domain, ring, commitments, msg)

	// Close the ring: c_i = c0 - c_j - c_k, r_i = t - c_i * s_i.
	ci := &goldilocks.Scalar{}
	ci.Sub(c0, c[(known+1)%3])
	ci.Sub(ci, c[(known+2)%3])
	c[known] = ci

	prod := &goldilocks.Scalar{}
	prod.Mul(ci, &secret.priv)
	ri := &goldilocks.Scalar{}
	ri.Sub(t, prod)
	memwipe.Bytes(prod[:])
	r[known] = ri

	return &RingSignature{
		C1: *c[0], R1: *r[0],
		C2: *c[1], R2: *r[1],
		C3: *c[2], R3: *r[2],
		C0: *c0,
	}, nil
}

// VerifyRing reports whether sigma proves knowledge of one of the three
// discrete logs of {A1, A2, A3} over msg.
func VerifyRing(usage byte, domain string, sigma *RingSignature,
	a1, a2, a3 *goldilocks.Point, msg []byte) bool {

	ring := [3]*goldilocks.Point{a1, a2, a3}
	curve := goldilocks.Curve{}

	commitments := [3]*goldilocks.Point{
		curve.CombinedMult(&sigma.R1, &sigma.C1, ring[0]),
		curve.CombinedMult(&sigma.R2, &sigma.C2, ring[1]),
		curve.CombinedMult(&sigma.R3, &sigma.C3, ring[2]),
	}

	expected := challenge(usage, domain, ring, commitments, msg)

	sum := &goldilocks.Scalar{}
	sum.Add(&sigma.C1, &sigma.C2)
	sum.Add(sum, &sigma.C3)

	ok := subtle.ConstantTimeCompare(expected[:], sigma.C0[:])
	ok &= subtle.ConstantTimeCompare(sum[:], sigma.C0[:])
	return ok == 1
}

// Serialize appends the 392-byte wire form of sigma:
// (C1, R1, C2, R2, C3, R3, C0).
func (s *RingSignature) Serialize(dst []byte) []byte {
	dst = wire.AppendECScalar(dst, &s.C1)
	dst = wire.AppendECScalar(dst, &s.R1)
	dst = wire.AppendECScalar(dst, &s.C2)
	dst = wire.AppendECScalar(dst, &s.R2)
	dst = wire.AppendECScalar(dst, &s.C3)
	dst = wire.AppendECScalar(dst, &s.R3)
	dst = wire.AppendECScalar(dst, &s.C0)
	return dst
}

// DeserializeRingSignature reads a ring signature and reports the bytes
// consumed.
func DeserializeRingSignature(src []byte) (*RingSignature, int, error) {
	var sigma RingSignature
	slots := [7]*goldilocks.Scalar{
		&sigma.C1, &sigma.R1,
		&sigma.C2, &sigma.R2,
		&sigma.C3, &sigma.R3,
		&sigma.C0,
	}
	read := 0
	for _, slot := range slots {
		s, n, err := wire.ReadECScalar(src[read:])
		if err != nil {
			return nil, 0, err
		}
		*slot = *s
		read += n
	}
	return &sigma, read, nil
}

// challenge hashes the ring context to a scalar:
// scalar(KDF(usage | domain, G || A1..A3 || T1..T3 || msg, 64)).
func challenge(usage byte, domain string, ring, commitments [3]*goldilocks.Point, msg []byte) *goldilocks.Scalar {
	var buf [64]byte
	kdf.WithDomain(domain, usage, buf[:],
		PointBytes(goldilocks.Curve{}.Generator()),
		PointBytes(ring[0]), PointBytes(ring[1]), PointBytes(ring[2]),
		PointBytes(commitments[0]), PointBytes(commitments[1]), PointBytes(commitments[2]),
		msg,
	)
	var c goldilocks.Scalar
	c.FromBytes(buf[:])
	return &c
}
