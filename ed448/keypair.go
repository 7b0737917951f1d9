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

// Package ed448 provides the Edwards-448 key material used by the prekey
// protocol: long-term and ephemeral key pairs derived from a 57-byte
// symmetric key, EdDSA signatures over profile bodies, ECDH, and the
// 3-of-3 ring signature of the DAKE.
package ed448

import (
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/ecc/goldilocks"
	circled448 "github.com/cloudflare/circl/sign/ed448"
	"golang.org/x/crypto/sha3"

	"github.com/DrWhax/libotr-ng/internal/memwipe"
)

const (
	// SymmetricKeyBytes is the size of the symmetric key a key pair is
	// derived from, per RFC 8032.
	SymmetricKeyBytes = 57
	// PublicKeyBytes is the size of a compressed public point.
	PublicKeyBytes = 57
	// ScalarBytes is the size of a private scalar, little-endian.
	ScalarBytes = 56
	// SignatureBytes is the size of an EdDSA signature.
	SignatureBytes = 114
)

var (
	// ErrInvalidKeyLength signals a symmetric key of the wrong size.
	ErrInvalidKeyLength = errors.New("ed448: symmetric key must be 57 bytes")
	// ErrInvalidSignature signals a failed EdDSA verification.
	ErrInvalidSignature = errors.New("ed448: invalid signature")
)

// KeyPair holds a secret scalar, its public point, and the symmetric key
// both were derived from. The secret halves are wiped by Destroy.
type KeyPair struct {
	sym  [SymmetricKeyBytes]byte
	priv goldilocks.Scalar
	pub  *goldilocks.Point
}

// Generate creates a key pair from a fresh symmetric key read from rand.
func Generate(rand io.Reader) (*KeyPair, error) {
	var sym [SymmetricKeyBytes]byte
	if _, err := io.ReadFull(rand, sym[:]); err != nil {
		return nil, fmt.Errorf("ed448: sampling symmetric key: %w", err)
	}
	kp, err := FromSymmetricKey(sym[:])
	memwipe.Bytes(sym[:])
	return kp, err
}

// FromSymmetricKey derives a key pair from a 57-byte symmetric key using
// the RFC 8032 expansion: SHAKE-256(sym, 114), clamp the low 57 bytes,
// reduce modulo the group order.
func FromSymmetricKey(sym []byte) (*KeyPair, error) {
	if len(sym) != SymmetricKeyBytes {
		return nil, ErrInvalidKeyLength
	}

	var h [2 * SymmetricKeyBytes]byte
	sha3.ShakeSum256(h[:], sym)

	secret := h[:SymmetricKeyBytes]
	secret[0] &= 0xFC
	secret[SymmetricKeyBytes-1] = 0x00
	secret[SymmetricKeyBytes-2] |= 0x80

	kp := &KeyPair{}
	copy(kp.sym[:], sym)
	kp.priv.FromBytes(secret)
	kp.pub = goldilocks.Curve{}.ScalarBaseMult(&kp.priv)
	memwipe.Bytes(h[:])
	return kp, nil
}

// Public returns the public point.
func (kp *KeyPair) Public() *goldilocks.Point {
	return kp.pub
}

// PublicBytes returns the 57-byte compressed public point.
func (kp *KeyPair) PublicBytes() []byte {
	return PointBytes(kp.pub)
}

// Scalar returns the secret scalar. The caller borrows it; it is wiped by
// Destroy.
func (kp *KeyPair) Scalar() *goldilocks.Scalar {
	return &kp.priv
}

// Sign produces a 114-byte EdDSA signature over message.
func (kp *KeyPair) Sign(message []byte) []byte {
	priv := circled448.NewKeyFromSeed(kp.sym[:])
	return circled448.Sign(priv, message, "")
}

// Verify reports whether sig is a valid EdDSA signature over message by
// the holder of pub.
func Verify(pub *goldilocks.Point, message, sig []byte) bool {
	if len(sig) != SignatureBytes {
		return false
	}
	return circled448.Verify(circled448.PublicKey(PointBytes(pub)), message, sig, "")
}

// ECDH computes the shared point with the peer's public point and returns
// its 57-byte encoding.
func (kp *KeyPair) ECDH(peer *goldilocks.Point) []byte {
	shared := goldilocks.Curve{}.ScalarMult(&kp.priv, peer)
	return PointBytes(shared)
}

// Destroy wipes the symmetric key and the secret scalar.
func (kp *KeyPair) Destroy() {
	memwipe.Bytes(kp.sym[:])
	memwipe.Bytes(kp.priv[:])
}

// PointBytes returns the 57-byte compressed encoding of p.
func PointBytes(p *goldilocks.Point) []byte {
	var buf [PublicKeyBytes]byte
	if err := p.ToBytes(buf[:]); err != nil {
		panic("ed448: unencodable point")
	}
	return buf[:]
}

// RandomScalar samples a uniformly distributed scalar by reducing 64
// random bytes modulo the group order.
func RandomScalar(rand io.Reader) (*goldilocks.Scalar, error) {
	var buf [64]byte
	if _, err := io.ReadFull(rand, buf[:]); err != nil {
		return nil, fmt.Errorf("ed448: sampling scalar: %w", err)
	}
	var s goldilocks.Scalar
	s.FromBytes(buf[:])
	memwipe.Bytes(buf[:])
	return &s, nil
}
