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

package prekeyclient

import (
	"github.com/cloudflare/circl/ecc/goldilocks"

	"github.com/DrWhax/libotr-ng/ed448"
	"github.com/DrWhax/libotr-ng/profile"
	"github.com/DrWhax/libotr-ng/wire"
)

const protocolVersion uint16 = 4

// Prekey server message types.
const (
	msgTypeDAKE1          byte = 0x35
	msgTypeDAKE2          byte = 0x36
	msgTypeDAKE3          byte = 0x37
	msgTypePublication    byte = 0x08
	msgTypeStorageInfoReq byte = 0x09
	msgTypeStorageStatus  byte = 0x0B
	msgTypeSuccess        byte = 0x06
	msgTypeQueryRetrieval byte = 0x10
)

const (
	macBytes        = 64
	successMsgBytes = 3 + 4 + macBytes
)

const ed448PubkeyType uint16 = 0x0010

func appendHeader(dst []byte, msgType byte) []byte {
	dst = wire.AppendUint16(dst, protocolVersion)
	return wire.AppendUint8(dst, msgType)
}

// parseHeader reads the version and message type, refusing versions other
// than 4.
func parseHeader(src []byte) (byte, int, error) {
	version, w, err := wire.ReadUint16(src)
	if err != nil {
		return 0, 0, err
	}
	if version != protocolVersion {
		return 0, 0, wire.ErrMalformedInput
	}
	msgType, n, err := wire.ReadUint8(src[w:])
	if err != nil {
		return 0, 0, err
	}
	return msgType, w + n, nil
}

type dake1Message struct {
	instanceTag   uint32
	clientProfile *profile.ClientProfile
	i             *goldilocks.Point
}

func (m *dake1Message) serialize(dst []byte) []byte {
	dst = appendHeader(dst, msgTypeDAKE1)
	dst = wire.AppendUint32(dst, m.instanceTag)
	dst = m.clientProfile.Serialize(dst)
	dst = wire.AppendECPoint(dst, m.i)
	return dst
}

func deserializeDAKE1(src []byte) (*dake1Message, error) {
	msgType, w, err := parseHeader(src)
	if err != nil {
		return nil, err
	}
	if msgType != msgTypeDAKE1 {
		return nil, wire.ErrMalformedInput
	}

	m := &dake1Message{}
	var n int
	if m.instanceTag, n, err = wire.ReadUint32(src[w:]); err != nil {
		return nil, err
	}
	w += n
	if m.clientProfile, n, err = profile.DeserializeClientProfile(src[w:]); err != nil {
		return nil, err
	}
	w += n
	if m.i, _, err = wire.ReadECPoint(src[w:]); err != nil {
		return nil, err
	}
	return m, nil
}

type dake2Message struct {
	instanceTag uint32
	// compositeIdentity keeps the raw bytes exactly as carried on the
	// wire: data(server identity) || typed server long-term key. The
	// DAKE transcript absorbs them verbatim.
	compositeIdentity []byte
	serverIdentity    []byte
	serverPub         *goldilocks.Point
	s                 *goldilocks.Point
	sigma             *ed448.RingSignature
}

func (m *dake2Message) serialize(dst []byte) []byte {
	dst = appendHeader(dst, msgTypeDAKE2)
	dst = wire.AppendUint32(dst, m.instanceTag)
	dst = wire.AppendData(dst, m.serverIdentity)
	dst = wire.AppendUint16(dst, ed448PubkeyType)
	dst = wire.AppendECPoint(dst, m.serverPub)
	dst = wire.AppendECPoint(dst, m.s)
	dst = m.sigma.Serialize(dst)
	return dst
}

func deserializeDAKE2(src []byte) (*dake2Message, error) {
	msgType, w, err := parseHeader(src)
	if err != nil {
		return nil, err
	}
	if msgType != msgTypeDAKE2 {
		return nil, wire.ErrMalformedInput
	}

	m := &dake2Message{}
	var n int
	if m.instanceTag, n, err = wire.ReadUint32(src[w:]); err != nil {
		return nil, err
	}
	w += n

	compositeStart := w
	if m.serverIdentity, n, err = wire.ReadData(src[w:]); err != nil {
		return nil, err
	}
	w += n
	keyType, n, err := wire.ReadUint16(src[w:])
	if err != nil {
		return nil, err
	}
	if keyType != ed448PubkeyType {
		return nil, wire.ErrInvalidEncoding
	}
	w += n
	if m.serverPub, n, err = wire.ReadECPoint(src[w:]); err != nil {
		return nil, err
	}
	w += n
	m.compositeIdentity = append([]byte(nil), src[compositeStart:w]...)

	if m.s, n, err = wire.ReadECPoint(src[w:]); err != nil {
		return nil, err
	}
	w += n
	if m.sigma, _, err = ed448.DeserializeRingSignature(src[w:]); err != nil {
		return nil, err
	}
	return m, nil
}

type dake3Message struct {
	instanceTag uint32
	sigma       *ed448.RingSignature
	message     []byte
}

func (m *dake3Message) serialize(dst []byte) []byte {
	dst = appendHeader(dst, msgTypeDAKE3)
	dst = wire.AppendUint32(dst, m.instanceTag)
	dst = m.sigma.Serialize(dst)
	dst = wire.AppendData(dst, m.message)
	return dst
}

func deserializeDAKE3(src []byte) (*dake3Message, error) {
	msgType, w, err := parseHeader(src)
	if err != nil {
		return nil, err
	}
	if msgType != msgTypeDAKE3 {
		return nil, wire.ErrMalformedInput
	}

	m := &dake3Message{}
	var n int
	if m.instanceTag, n, err = wire.ReadUint32(src[w:]); err != nil {
		return nil, err
	}
	w += n
	if m.sigma, n, err = ed448.DeserializeRingSignature(src[w:]); err != nil {
		return nil, err
	}
	w += n
	if m.message, _, err = wire.ReadData(src[w:]); err != nil {
		return nil, err
	}
	return m, nil
}

type storageStatusMessage struct {
	instanceTag   uint32
	storedPrekeys uint32
	mac           [macBytes]byte
}

func (m *storageStatusMessage) serialize(dst []byte) []byte {
	dst = appendHeader(dst, msgTypeStorageStatus)
	dst = wire.AppendUint32(dst, m.instanceTag)
	dst = wire.AppendUint32(dst, m.storedPrekeys)
	return append(dst, m.mac[:]...)
}

func deserializeStorageStatus(src []byte) (*storageStatusMessage, error) {
	msgType, w, err := parseHeader(src)
	if err != nil {
		return nil, err
	}
	if msgType != msgTypeStorageStatus {
		return nil, wire.ErrMalformedInput
	}

	m := &storageStatusMessage{}
	var n int
	if m.instanceTag, n, err = wire.ReadUint32(src[w:]); err != nil {
		return nil, err
	}
	w += n
	if m.storedPrekeys, n, err = wire.ReadUint32(src[w:]); err != nil {
		return nil, err
	}
	w += n
	mac, _, err := wire.ReadBytes(src[w:], macBytes)
	if err != nil {
		return nil, err
	}
	copy(m.mac[:], mac)
	return m, nil
}

// retrievalQuery is the standalone ensemble query retrieval message; it
// rides outside the DAKE.
type retrievalQuery struct {
	instanceTag uint32
	identity    string
	versions    string
}

func (m *retrievalQuery) serialize(dst []byte) []byte {
	dst = appendHeader(dst, msgTypeQueryRetrieval)
	dst = wire.AppendUint32(dst, m.instanceTag)
	dst = wire.AppendData(dst, []byte(m.identity))
	dst = wire.AppendData(dst, []byte(m.versions))
	return dst
}
