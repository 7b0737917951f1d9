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
	"crypto/subtle"
	"io"
	"math/big"

	"github.com/cloudflare/circl/ecc/goldilocks"

	"github.com/DrWhax/libotr-ng/dh"
	"github.com/DrWhax/libotr-ng/ed448"
	"github.com/DrWhax/libotr-ng/internal/memwipe"
	"github.com/DrWhax/libotr-ng/kdf"
	"github.com/DrWhax/libotr-ng/wire"
)

// ProofCBytes is the size of a proof challenge.
const ProofCBytes = 64

// ECDHProofBytes is the serialised size of an ECDH proof.
const ECDHProofBytes = ProofCBytes + ed448.ScalarBytes

// ECDHProof is a batch Schnorr proof of knowledge of the discrete logs of
// a set of ed448 points.
type ECDHProof struct {
	C [ProofCBytes]byte
	V goldilocks.Scalar
}

// GenerateECDHProof proves knowledge of privs, the discrete logs of pubs,
// bound to the 64-byte message m and a usage tag.
func GenerateECDHProof(rand io.Reader, privs []*goldilocks.Scalar,
	pubs []*goldilocks.Point, m []byte, usage byte) (*ECDHProof, error) {

	curve := goldilocks.Curve{}
	r, err := ed448.RandomScalar(rand)
	if err != nil {
		return nil, err
	}
	defer memwipe.Bytes(r[:])

	a := curve.ScalarBaseMult(r)

	proof := &ECDHProof{}
	ecdhProofChallenge(proof.C[:], a, pubs, m, usage)

	var t goldilocks.Scalar
	t.FromBytes(proof.C[:])

	// v = r + t*x1 + t^2*x2 + ...
	proof.V = *r
	acc := t
	var term goldilocks.Scalar
	for _, x := range privs {
		term.Mul(&acc, x)
		proof.V.Add(&proof.V, &term)
		acc.Mul(&acc, &t)
	}
	memwipe.Bytes(term[:])
	return proof, nil
}

// Verify recomputes the commitment from (C, V) and checks the challenge.
func (p *ECDHProof) Verify(pubs []*goldilocks.Point, m []byte, usage byte) bool {
	curve := goldilocks.Curve{}

	var t goldilocks.Scalar
	t.FromBytes(p.C[:])

	// A = v*G - (t*P1 + t^2*P2 + ...)
	sum := curve.Identity()
	acc := t
	for _, pub := range pubs {
		sum.Add(curve.ScalarMult(&acc, pub))
		acc.Mul(&acc, &t)
	}
	sum.Neg()
	a := curve.ScalarBaseMult(&p.V)
	a.Add(sum)

	var expected [ProofCBytes]byte
	ecdhProofChallenge(expected[:], a, pubs, m, usage)
	return subtle.ConstantTimeCompare(expected[:], p.C[:]) == 1
}

// Serialize appends the 120-byte wire form: challenge then scalar.
func (p *ECDHProof) Serialize(dst []byte) []byte {
	dst = append(dst, p.C[:]...)
	return wire.AppendECScalar(dst, &p.V)
}

// DeserializeECDHProof reads an ECDH proof and reports the bytes consumed.
func DeserializeECDHProof(src []byte) (*ECDHProof, int, error) {
	c, w, err := wire.ReadBytes(src, ProofCBytes)
	if err != nil {
		return nil, 0, err
	}
	v, n, err := wire.ReadECScalar(src[w:])
	if err != nil {
		return nil, 0, err
	}
	p := &ECDHProof{V: *v}
	copy(p.C[:], c)
	return p, w + n, nil
}

func ecdhProofChallenge(out []byte, a *goldilocks.Point, pubs []*goldilocks.Point, m []byte, usage byte) {
	inputs := make([][]byte, 0, 2+len(pubs))
	inputs = append(inputs, ed448.PointBytes(a))
	for _, pub := range pubs {
		inputs = append(inputs, ed448.PointBytes(pub))
	}
	inputs = append(inputs, m)
	kdf.KDF(usage, out, inputs...)
}

// DHProof is the modp-group analogue of ECDHProof.
type DHProof struct {
	C [ProofCBytes]byte
	V *big.Int
}

// GenerateDHProof proves knowledge of privs, the discrete logs of pubs in
// the 3072-bit group, bound to m and a usage tag.
func GenerateDHProof(rand io.Reader, privs, pubs []*big.Int, m []byte, usage byte) (*DHProof, error) {
	var buf [dh.KeyBytes]byte
	if _, err := io.ReadFull(rand, buf[:]); err != nil {
		return nil, err
	}
	r := new(big.Int).SetBytes(buf[:])
	memwipe.Bytes(buf[:])
	defer memwipe.BigInt(r)

	a := new(big.Int).Exp(dh.Generator(), r, dh.Modulus())

	proof := &DHProof{}
	dhProofChallenge(proof.C[:], a, pubs, m, usage)

	q := dh.SubgroupOrder()
	t := new(big.Int).Mod(new(big.Int).SetBytes(proof.C[:]), q)

	// v = r + t*x1 + t^2*x2 + ... mod q
	v := new(big.Int).Set(r)
	acc := new(big.Int).Set(t)
	for _, x := range privs {
		v.Add(v, new(big.Int).Mul(acc, x))
		v.Mod(v, q)
		acc.Mul(acc, t)
		acc.Mod(acc, q)
	}
	proof.V = v
	return proof, nil
}

// Verify recomputes the commitment from (C, V) and checks the challenge.
func (p *DHProof) Verify(pubs []*big.Int, m []byte, usage byte) bool {
	mod := dh.Modulus()
	q := dh.SubgroupOrder()
	t := new(big.Int).Mod(new(big.Int).SetBytes(p.C[:]), q)

	// A = g^v * (P1^t * P2^t^2 * ...)^-1 mod p
	prod := big.NewInt(1)
	acc := new(big.Int).Set(t)
	for _, pub := range pubs {
		prod.Mul(prod, new(big.Int).Exp(pub, acc, mod))
		prod.Mod(prod, mod)
		acc.Mul(acc, t)
		acc.Mod(acc, q)
	}
	inv := new(big.Int).ModInverse(prod, mod)
	if inv == nil {
		return false
	}
	a := new(big.Int).Exp(dh.Generator(), p.V, mod)
	a.Mul(a, inv)
	a.Mod(a, mod)

	var expected [ProofCBytes]byte
	dhProofChallenge(expected[:], a, pubs, m, usage)
	return subtle.ConstantTimeCompare(expected[:], p.C[:]) == 1
}

// Serialize appends the wire form: challenge then MPI.
func (p *DHProof) Serialize(dst []byte) []byte {
	dst = append(dst, p.C[:]...)
	return wire.AppendMPI(dst, p.V)
}

// DeserializeDHProof reads a DH proof and reports the bytes consumed.
func DeserializeDHProof(src []byte) (*DHProof, int, error) {
	c, w, err := wire.ReadBytes(src, ProofCBytes)
	if err != nil {
		return nil, 0, err
	}
	v, n, err := wire.ReadMPI(src[w:])
	if err != nil {
		return nil, 0, err
	}
	p := &DHProof{V: v}
	copy(p.C[:], c)
	return p, w + n, nil
}

func dhProofChallenge(out []byte, a *big.Int, pubs []*big.Int, m []byte, usage byte) {
	inputs := make([][]byte, 0, 2+len(pubs))
	inputs = append(inputs, wire.AppendMPI(nil, a))
	for _, pub := range pubs {
		inputs = append(inputs, wire.AppendMPI(nil, pub))
	}
	inputs = append(inputs, m)
	kdf.KDF(usage, out, inputs...)
}
