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

package profile

import (
	"time"

	"github.com/cloudflare/circl/ecc/goldilocks"

	"github.com/DrWhax/libotr-ng/ed448"
	"github.com/DrWhax/libotr-ng/wire"
)

// PrekeyProfile binds a shared prekey to the owner of the client
// profile's long-term key.
type PrekeyProfile struct {
	InstanceTag  uint32
	Expires      uint64
	SharedPrekey *goldilocks.Point

	Signature []byte
}

// BuildPrekeyProfile assembles and signs a prekey profile with the same
// long-term key pair that signs the client profile.
func BuildPrekeyProfile(instanceTag uint32, sharedPrekey *goldilocks.Point,
	longTerm *ed448.KeyPair, expires time.Time) *PrekeyProfile {

	p := &PrekeyProfile{
		InstanceTag:  instanceTag,
		Expires:      uint64(expires.Unix()),
		SharedPrekey: sharedPrekey,
	}
	p.Sign(longTerm)
	return p
}

// Sign computes the trailing signature over the serialised body.
func (p *PrekeyProfile) Sign(longTerm *ed448.KeyPair) {
	p.Signature = longTerm.Sign(p.serializeBody(nil))
}

// Serialize appends the wire form: body then signature.
func (p *PrekeyProfile) Serialize(dst []byte) []byte {
	dst = p.serializeBody(dst)
	return append(dst, p.Signature...)
}

func (p *PrekeyProfile) serializeBody(dst []byte) []byte {
	dst = wire.AppendUint32(dst, p.InstanceTag)
	dst = wire.AppendUint64(dst, p.Expires)
	dst = wire.AppendUint16(dst, pubkeyTypeSharedPrekey)
	dst = wire.AppendECPoint(dst, p.SharedPrekey)
	return dst
}

// DeserializePrekeyProfile reads a prekey profile and reports the bytes
// consumed.
func DeserializePrekeyProfile(src []byte) (*PrekeyProfile, int, error) {
	p := &PrekeyProfile{}
	var err error
	var n, w int

	if p.InstanceTag, n, err = wire.ReadUint32(src); err != nil {
		return nil, 0, err
	}
	w += n
	if p.Expires, n, err = wire.ReadUint64(src[w:]); err != nil {
		return nil, 0, err
	}
	w += n
	if p.SharedPrekey, n, err = readTypedPoint(src[w:], pubkeyTypeSharedPrekey); err != nil {
		return nil, 0, err
	}
	w += n
	if p.Signature, n, err = wire.ReadBytes(src[w:], ed448.SignatureBytes); err != nil {
		return nil, 0, err
	}
	return p, w + n, nil
}

// Validate checks the signature against the long-term key that signed the
// client profile, the expected instance tag, and the expiration.
func (p *PrekeyProfile) Validate(longTermPub *goldilocks.Point, expectedTag uint32,
	now time.Time, grace time.Duration) error {

	if !ed448.Verify(longTermPub, p.serializeBody(nil), p.Signature) {
		return ErrProfileSignature
	}
	if p.InstanceTag != expectedTag {
		return ErrProfileInstanceTag
	}
	if expired(p.Expires, now, grace) {
		return ErrProfileExpired
	}
	return nil
}
