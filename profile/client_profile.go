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

// Package profile implements the signed self-descriptions a client
// publishes: the client profile (long-term identity, supported versions,
// expiration) and the prekey profile (shared prekey under the same
// long-term key).
package profile

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cloudflare/circl/ecc/goldilocks"

	"github.com/DrWhax/libotr-ng/ed448"
	"github.com/DrWhax/libotr-ng/wire"
)

// Client profile field types.
const (
	fieldInstanceTag           uint16 = 0x01
	fieldPublicKey             uint16 = 0x02
	fieldForgingKey            uint16 = 0x03
	fieldVersions              uint16 = 0x04
	fieldExpiration            uint16 = 0x05
	fieldDSAKey                uint16 = 0x06
	fieldTransitionalSignature uint16 = 0x07
)

// Wire tags for the ed448 public key flavours.
const (
	pubkeyTypeEd448        uint16 = 0x0010
	pubkeyTypeSharedPrekey uint16 = 0x0011
	pubkeyTypeForging      uint16 = 0x0012
)

// TransitionalSignatureBytes is the size of an OTRv3 DSA signature.
const TransitionalSignatureBytes = 40

var (
	// ErrProfileSignature signals a failed profile signature check.
	ErrProfileSignature = errors.New("profile: signature does not verify")
	// ErrProfileExpired signals an expiration in the past.
	ErrProfileExpired = errors.New("profile: expired")
	// ErrProfileInstanceTag signals a sender-instance-tag mismatch.
	ErrProfileInstanceTag = errors.New("profile: unexpected instance tag")
	// ErrProfileVersions signals a versions string outside {"3", "4"}.
	ErrProfileVersions = errors.New("profile: invalid versions string")
	// ErrProfileField signals an unknown or duplicate profile field.
	ErrProfileField = errors.New("profile: invalid field")
)

// DSAKey is a legacy OTRv3 DSA public key carried for transitional
// verification.
type DSAKey struct {
	P, Q, G, Y *big.Int
}

// ClientProfile describes a user's long-term identity and version policy.
type ClientProfile struct {
	InstanceTag           uint32
	LongTermKey           *goldilocks.Point
	ForgingKey            *goldilocks.Point
	Versions              string
	Expires               uint64
	DSAKey                *DSAKey
	TransitionalSignature []byte

	Signature []byte
}

// BuildClientProfile assembles and signs a profile for the given identity.
func BuildClientProfile(instanceTag uint32, versions string, longTerm *ed448.KeyPair,
	forging *goldilocks.Point, expires time.Time) (*ClientProfile, error) {

	if err := validVersions(versions); err != nil {
		return nil, err
	}
	p := &ClientProfile{
		InstanceTag: instanceTag,
		LongTermKey: longTerm.Public(),
		ForgingKey:  forging,
		Versions:    versions,
		Expires:     uint64(expires.Unix()),
	}
	p.Sign(longTerm)
	return p, nil
}

// Sign computes the trailing signature over the serialised field body.
func (p *ClientProfile) Sign(longTerm *ed448.KeyPair) {
	p.Signature = longTerm.Sign(p.serializeBody(nil))
}

// Serialize appends the full wire form: field body then signature.
func (p *ClientProfile) Serialize(dst []byte) []byte {
	dst = p.serializeBody(dst)
	return append(dst, p.Signature...)
}

func (p *ClientProfile) serializeBody(dst []byte) []byte {
	n := uint32(5)
	if p.DSAKey != nil {
		n++
	}
	if p.TransitionalSignature != nil {
		n++
	}
	dst = wire.AppendUint32(dst, n)

	dst = wire.AppendUint16(dst, fieldInstanceTag)
	dst = wire.AppendUint32(dst, p.InstanceTag)

	dst = wire.AppendUint16(dst, fieldPublicKey)
	dst = wire.AppendUint16(dst, pubkeyTypeEd448)
	dst = wire.AppendECPoint(dst, p.LongTermKey)

	dst = wire.AppendUint16(dst, fieldForgingKey)
	dst = wire.AppendUint16(dst, pubkeyTypeForging)
	dst = wire.AppendECPoint(dst, p.ForgingKey)

	dst = wire.AppendUint16(dst, fieldVersions)
	dst = wire.AppendData(dst, []byte(p.Versions))

	dst = wire.AppendUint16(dst, fieldExpiration)
	dst = wire.AppendUint64(dst, p.Expires)

	if p.DSAKey != nil {
		dst = wire.AppendUint16(dst, fieldDSAKey)
		dst = wire.AppendUint16(dst, 0x0000)
		dst = wire.AppendMPI(dst, p.DSAKey.P)
		dst = wire.AppendMPI(dst, p.DSAKey.Q)
		dst = wire.AppendMPI(dst, p.DSAKey.G)
		dst = wire.AppendMPI(dst, p.DSAKey.Y)
	}
	if p.TransitionalSignature != nil {
		dst = wire.AppendUint16(dst, fieldTransitionalSignature)
		dst = append(dst, p.TransitionalSignature...)
	}
	return dst
}

// DeserializeClientProfile reads a profile and reports the bytes consumed.
func DeserializeClientProfile(src []byte) (*ClientProfile, int, error) {
	count, w, err := wire.ReadUint32(src)
	if err != nil {
		return nil, 0, err
	}

	p := &ClientProfile{}
	seen := map[uint16]bool{}
	for i := uint32(0); i < count; i++ {
		ft, n, err := wire.ReadUint16(src[w:])
		if err != nil {
			return nil, 0, err
		}
		w += n
		if seen[ft] {
			return nil, 0, ErrProfileField
		}
		seen[ft] = true

		switch ft {
		case fieldInstanceTag:
			p.InstanceTag, n, err = wire.ReadUint32(src[w:])
		case fieldPublicKey:
			p.LongTermKey, n, err = readTypedPoint(src[w:], pubkeyTypeEd448)
		case fieldForgingKey:
			p.ForgingKey, n, err = readTypedPoint(src[w:], pubkeyTypeForging)
		case fieldVersions:
			var v []byte
			v, n, err = wire.ReadData(src[w:])
			p.Versions = string(v)
		case fieldExpiration:
			p.Expires, n, err = wire.ReadUint64(src[w:])
		case fieldDSAKey:
			p.DSAKey, n, err = readDSAKey(src[w:])
		case fieldTransitionalSignature:
			p.TransitionalSignature, n, err = wire.ReadBytes(src[w:], TransitionalSignatureBytes)
		default:
			return nil, 0, ErrProfileField
		}
		if err != nil {
			return nil, 0, err
		}
		w += n
	}

	if p.LongTermKey == nil || p.ForgingKey == nil {
		return nil, 0, ErrProfileField
	}

	sig, n, err := wire.ReadBytes(src[w:], ed448.SignatureBytes)
	if err != nil {
		return nil, 0, err
	}
	p.Signature = sig
	return p, w + n, nil
}

// Validate checks the signature, the expected sender instance tag, the
// versions alphabet, and the expiration against now plus an extra grace
// window.
func (p *ClientProfile) Validate(expectedTag uint32, now time.Time, grace time.Duration) error {
	if !ed448.Verify(p.LongTermKey, p.serializeBody(nil), p.Signature) {
		return ErrProfileSignature
	}
	if p.InstanceTag != expectedTag {
		return ErrProfileInstanceTag
	}
	if err := validVersions(p.Versions); err != nil {
		return err
	}
	if expired(p.Expires, now, grace) {
		return ErrProfileExpired
	}
	return nil
}

func validVersions(versions string) error {
	if versions == "" || strings.Trim(versions, "34") != "" {
		return fmt.Errorf("%w: %q", ErrProfileVersions, versions)
	}
	return nil
}

func expired(expires uint64, now time.Time, grace time.Duration) bool {
	deadline := time.Unix(int64(expires), 0).Add(grace)
	return now.After(deadline)
}

func readTypedPoint(src []byte, wantType uint16) (*goldilocks.Point, int, error) {
	pt, w, err := wire.ReadUint16(src)
	if err != nil {
		return nil, 0, err
	}
	if pt != wantType {
		return nil, 0, wire.ErrInvalidEncoding
	}
	point, n, err := wire.ReadECPoint(src[w:])
	if err != nil {
		return nil, 0, err
	}
	return point, w + n, nil
}

func readDSAKey(src []byte) (*DSAKey, int, error) {
	kt, w, err := wire.ReadUint16(src)
	if err != nil {
		return nil, 0, err
	}
	if kt != 0x0000 {
		return nil, 0, wire.ErrInvalidEncoding
	}
	k := &DSAKey{}
	for _, dst := range []**big.Int{&k.P, &k.Q, &k.G, &k.Y} {
		v, n, err := wire.ReadMPI(src[w:])
		if err != nil {
			return nil, 0, err
		}
		*dst = v
		w += n
	}
	return k, w, nil
}
