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

// Package kdf provides the domain-separated SHAKE-256 key derivation used
// by the prekey client protocol. Every invocation absorbs the ASCII domain
// string, a one-byte usage tag, and then each input in order.
package kdf

import (
	"golang.org/x/crypto/sha3"
)

// Domain is the ASCII domain separator for all prekey-server derivations.
const Domain = "OTR-Prekey-Server"

// Usage tags reserved by the prekey client protocol.
const (
	UsageSK                    byte = 0x01
	UsageReceiverClientProfile byte = 0x02
	UsageReceiverPrekeyCompID  byte = 0x03
	UsageReceiverCompPhi       byte = 0x04
	UsageSenderClientProfile   byte = 0x05
	UsageSenderPrekeyCompID    byte = 0x06
	UsageSenderCompPhi         byte = 0x07
	UsagePrekeyMACKey          byte = 0x08
	UsagePublicationMAC        byte = 0x09
	UsageStorageInfoMAC        byte = 0x0A
	UsageStatusMAC             byte = 0x0B
	UsageSuccessMAC            byte = 0x0C
	UsageFailureMAC            byte = 0x0D
	UsagePrekeyMessage         byte = 0x0E
	UsageClientProfile         byte = 0x0F
	UsagePrekeyProfile         byte = 0x10
	UsageAuth                  byte = 0x11
	UsageProofContext          byte = 0x12
	UsageProofMessageECDH      byte = 0x13
	UsageProofMessageDH        byte = 0x14
	UsageProofSharedECDH       byte = 0x15
	UsageMACProofs             byte = 0x16
)

// KDF squeezes len(out) bytes of SHAKE-256 keyed by the domain string, the
// usage tag, and the inputs absorbed in order.
func KDF(usage byte, out []byte, inputs ...[]byte) {
	WithDomain(Domain, usage, out, inputs...)
}

// WithDomain is KDF under an explicit domain string.
func WithDomain(domain string, usage byte, out []byte, inputs ...[]byte) {
	h := sha3.NewShake256()
	_, _ = h.Write([]byte(domain))
	_, _ = h.Write([]byte{usage})
	for _, in := range inputs {
		_, _ = h.Write(in)
	}
	_, _ = h.Read(out)
}

// Derive is KDF with an allocated output of n bytes.
func Derive(usage byte, n int, inputs ...[]byte) []byte {
	out := make([]byte, n)
	KDF(usage, out, inputs...)
	return out
}
