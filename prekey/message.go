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

// Package prekey builds publishable prekey messages, keeps their private
// halves in an id-keyed store until the double ratchet consumes them, and
// produces the proofs of knowledge published alongside them.
package prekey

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/cloudflare/circl/ecc/goldilocks"

	"github.com/DrWhax/libotr-ng/dh"
	"github.com/DrWhax/libotr-ng/ed448"
	"github.com/DrWhax/libotr-ng/wire"
)

// MessageType is the OTRv4 prekey message type byte.
const MessageType byte = 0x0F

// MaxMessages bounds a single publication batch.
const MaxMessages = 255

const protocolVersion uint16 = 4

// ErrTooManyMessages signals a batch larger than MaxMessages.
var ErrTooManyMessages = errors.New("prekey: more than 255 messages requested")

// Message is the publishable half of a one-time prekey: a fresh ECDH
// point and DH group element under a unique id.
type Message struct {
	ID          uint32
	InstanceTag uint32
	Y           *goldilocks.Point
	B           *big.Int
}

// Serialize appends the wire form of m.
func (m *Message) Serialize(dst []byte) []byte {
	dst = wire.AppendUint16(dst, protocolVersion)
	dst = wire.AppendUint8(dst, MessageType)
	dst = wire.AppendUint32(dst, m.ID)
	dst = wire.AppendUint32(dst, m.InstanceTag)
	dst = wire.AppendECPoint(dst, m.Y)
	dst = wire.AppendMPI(dst, m.B)
	return dst
}

// DeserializeMessage reads one prekey message and reports the bytes
// consumed.
func DeserializeMessage(src []byte) (*Message, int, error) {
	version, w, err := wire.ReadUint16(src)
	if err != nil {
		return nil, 0, err
	}
	if version != protocolVersion {
		return nil, 0, wire.ErrMalformedInput
	}
	mt, n, err := wire.ReadUint8(src[w:])
	if err != nil {
		return nil, 0, err
	}
	if mt != MessageType {
		return nil, 0, wire.ErrMalformedInput
	}
	w += n

	m := &Message{}
	if m.ID, n, err = wire.ReadUint32(src[w:]); err != nil {
		return nil, 0, err
	}
	w += n
	if m.InstanceTag, n, err = wire.ReadUint32(src[w:]); err != nil {
		return nil, 0, err
	}
	w += n
	if m.Y, n, err = wire.ReadECPoint(src[w:]); err != nil {
		return nil, 0, err
	}
	w += n
	if m.B, n, err = wire.ReadMPI(src[w:]); err != nil {
		return nil, 0, err
	}
	return m, w + n, nil
}

// BuildMessages generates n prekey messages with fresh ECDH and DH key
// pairs, storing the private halves in store under their prekey ids.
func BuildMessages(rand io.Reader, store *Store, instanceTag uint32, n int) ([]*Message, error) {
	if n > MaxMessages {
		return nil, ErrTooManyMessages
	}

	messages := make([]*Message, 0, n)
	for i := 0; i < n; i++ {
		ecdh, err := ed448.Generate(rand)
		if err != nil {
			return nil, err
		}
		dhPair, err := dh.GenerateKeyPair(rand)
		if err != nil {
			ecdh.Destroy()
			return nil, err
		}
		id, err := freshID(rand, store)
		if err != nil {
			ecdh.Destroy()
			dhPair.Destroy()
			return nil, err
		}

		store.Put(&StoredPrekey{
			ID:          id,
			InstanceTag: instanceTag,
			ECDH:        ecdh,
			DH:          dhPair,
			CreatedAt:   time.Now(),
		})
		messages = append(messages, &Message{
			ID:          id,
			InstanceTag: instanceTag,
			Y:           ecdh.Public(),
			B:           dhPair.Pub,
		})
	}
	return messages, nil
}

// freshID samples random u32 ids until one misses the live set.
func freshID(rand io.Reader, store *Store) (uint32, error) {
	var buf [4]byte
	for {
		if _, err := io.ReadFull(rand, buf[:]); err != nil {
			return 0, fmt.Errorf("prekey: sampling id: %w", err)
		}
		id := binary.BigEndian.Uint32(buf[:])
		if _, ok := store.Get(id); !ok {
			return id, nil
		}
	}
}
