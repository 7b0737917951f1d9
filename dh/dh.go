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

// Package dh implements the 3072-bit modp group (RFC 3526 group 15) used
// for the DH half of prekey messages. Public keys travel as OTR MPIs.
package dh

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/DrWhax/libotr-ng/internal/memwipe"
)

// KeyBytes is the size of a private exponent.
const KeyBytes = 80

// MPIMaxBytes bounds the serialised size of a group element.
const MPIMaxBytes = 4 + 384

const modulusHex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
	"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
	"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
	"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
	"15728E5A8AAAC42DAD33170D04507A33A85521ABDF1CBA64" +
	"ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7" +
	"ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6B" +
	"F12FFA06D98A0864D87602733EC86A64521F2B18177B200C" +
	"BBE117577A615D6C770988C0BAD946E208E24FA074E5AB31" +
	"43DB5BFCE0FD108E4B82D120A93AD2CAFFFFFFFFFFFFFFFF"

var (
	modulus       *big.Int
	modulusMin2   *big.Int
	subgroupOrder *big.Int
	generator     = big.NewInt(2)
	two           = big.NewInt(2)
)

func init() {
	var ok bool
	modulus, ok = new(big.Int).SetString(modulusHex, 16)
	if !ok {
		panic("dh: bad modulus")
	}
	modulusMin2 = new(big.Int).Sub(modulus, two)
	// q = (p - 1) / 2 for the prime-order subgroup of squares.
	subgroupOrder = new(big.Int).Rsh(new(big.Int).Sub(modulus, big.NewInt(1)), 1)
}

// ErrInvalidPublicKey signals an element outside [2, p-2].
var ErrInvalidPublicKey = errors.New("dh: public key out of range")

// Modulus returns the group modulus p.
func Modulus() *big.Int { return new(big.Int).Set(modulus) }

// SubgroupOrder returns q = (p-1)/2.
func SubgroupOrder() *big.Int { return new(big.Int).Set(subgroupOrder) }

// Generator returns the group generator g = 2.
func Generator() *big.Int { return new(big.Int).Set(generator) }

// KeyPair is a DH exponent and its public group element.
type KeyPair struct {
	Priv *big.Int
	Pub  *big.Int
}

// GenerateKeyPair samples an 80-byte private exponent from rand and
// computes the public element g^priv mod p.
func GenerateKeyPair(rand io.Reader) (*KeyPair, error) {
	var buf [KeyBytes]byte
	if _, err := io.ReadFull(rand, buf[:]); err != nil {
		return nil, fmt.Errorf("dh: sampling exponent: %w", err)
	}
	priv := new(big.Int).SetBytes(buf[:])
	memwipe.Bytes(buf[:])
	return &KeyPair{
		Priv: priv,
		Pub:  new(big.Int).Exp(generator, priv, modulus),
	}, nil
}

// ValidatePublicKey rejects elements outside [2, p-2].
func ValidatePublicKey(pub *big.Int) error {
	if pub == nil || pub.Cmp(two) < 0 || pub.Cmp(modulusMin2) > 0 {
		return ErrInvalidPublicKey
	}
	return nil
}

// SharedSecret computes peer^priv mod p after validating peer.
func (kp *KeyPair) SharedSecret(peer *big.Int) ([]byte, error) {
	if err := ValidatePublicKey(peer); err != nil {
		return nil, err
	}
	s := new(big.Int).Exp(peer, kp.Priv, modulus)
	out := s.Bytes()
	memwipe.BigInt(s)
	return out, nil
}

// Destroy wipes the private exponent.
func (kp *KeyPair) Destroy() {
	memwipe.BigInt(kp.Priv)
}
