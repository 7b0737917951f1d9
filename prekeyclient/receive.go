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
	"crypto/subtle"

	"github.com/DrWhax/libotr-ng/ed448"
	"github.com/DrWhax/libotr-ng/internal/logger"
	"github.com/DrWhax/libotr-ng/internal/memwipe"
	"github.com/DrWhax/libotr-ng/internal/metrics"
	"github.com/DrWhax/libotr-ng/kdf"
	"github.com/DrWhax/libotr-ng/prekey"
	"github.com/DrWhax/libotr-ng/wire"
)

// Receive processes one inbound message delivered on behalf of server.
// It returns the next outbound message, if the protocol calls for one.
// Messages of unexpected types, or types that do not match the current
// state, are discarded without a reply.
func (c *Client) Receive(server, message string) (string, error) {
	if server != c.serverIdentity {
		return "", ErrWrongServer
	}

	decoded, err := decodeMessage(message)
	if err != nil {
		c.log.Debug("discarding undecodable message", logger.Error(err))
		return "", err
	}
	return c.receiveDecoded(decoded)
}

func (c *Client) receiveDecoded(decoded []byte) (string, error) {
	msgType, _, err := parseHeader(decoded)
	if err != nil {
		return "", err
	}

	switch msgType {
	case msgTypeDAKE2:
		if c.state != StateAwaitingDAKE2 {
			c.log.Debug("ignoring dake2 outside of handshake",
				logger.String("state", c.state.String()))
			return "", nil
		}
		msg, err := deserializeDAKE2(decoded)
		if err != nil {
			return "", err
		}
		return c.receiveDAKE2(msg)

	case msgTypeStorageStatus:
		if c.state != StateAwaitingServerReply {
			return "", nil
		}
		msg, err := deserializeStorageStatus(decoded)
		if err != nil {
			return "", err
		}
		return "", c.receiveStorageStatus(msg)

	case msgTypeSuccess:
		if c.state != StateAwaitingServerReply {
			return "", nil
		}
		return "", c.receiveSuccess(decoded)

	default:
		// Unknown types are not prekey server traffic for us.
		return "", nil
	}
}

func (c *Client) receiveDAKE2(msg *dake2Message) (string, error) {
	if msg.instanceTag != c.instanceTag {
		c.log.Debug("ignoring dake2 for other instance",
			logger.Uint32("instance_tag", msg.instanceTag))
		return "", nil
	}

	sBytes := ed448.PointBytes(msg.s)

	t := c.transcript(0x00,
		kdf.UsageReceiverClientProfile,
		kdf.UsageReceiverPrekeyCompID,
		kdf.UsageReceiverCompPhi,
		msg.compositeIdentity, sBytes)

	metrics.CryptoOperations.WithLabelValues("ring_verify").Inc()
	if !ed448.VerifyRing(kdf.UsageAuth, kdf.Domain, msg.sigma,
		c.longTerm.Public(), msg.serverPub, c.ephemeral.Public(), t) {
		c.abortDAKE(ErrRingSigInvalid, "ring_sig_invalid")
		return "", ErrRingSigInvalid
	}

	// SK = KDF(0x01, ECDH(i, S), 64); prekey_mac_k = KDF(0x08, SK, 64).
	ecdhShared := c.ephemeral.ECDH(msg.s)
	kdf.KDF(kdf.UsageSK, c.sharedSecret[:], ecdhShared)
	kdf.KDF(kdf.UsagePrekeyMACKey, c.macKey[:], c.sharedSecret[:])
	memwipe.Bytes(ecdhShared)

	t2 := c.transcript(0x01,
		kdf.UsageSenderClientProfile,
		kdf.UsageSenderPrekeyCompID,
		kdf.UsageSenderCompPhi,
		msg.compositeIdentity, sBytes)

	metrics.CryptoOperations.WithLabelValues("ring_sign").Inc()
	sigma, err := ed448.Authenticate(c.rand, kdf.UsageAuth, kdf.Domain,
		c.longTerm, c.longTerm.Public(), msg.serverPub, msg.s, t2)
	if err != nil {
		c.abortDAKE(err, "ring_sign")
		return "", err
	}

	inner, err := c.buildInnerMessage()
	if err != nil {
		c.abortDAKE(err, "inner_message")
		return "", err
	}

	d3 := dake3Message{
		instanceTag: c.instanceTag,
		sigma:       sigma,
		message:     inner,
	}
	c.state = StateAwaitingServerReply
	c.log.Debug("dake3 sent", logger.String("operation", c.afterDAKE.label()))
	return encodeMessage(d3.serialize(nil)), nil
}

func (c *Client) buildInnerMessage() ([]byte, error) {
	switch c.afterDAKE {
	case opStorageStatus:
		return c.buildStorageInfoRequest(), nil
	case opPublication:
		return c.buildPublication()
	default:
		return nil, ErrStateMismatch
	}
}

// buildStorageInfoRequest produces the 67-byte storage information
// request: header plus KDF(0x0A, mac_k || type, 64).
func (c *Client) buildStorageInfoRequest() []byte {
	msg := appendHeader(nil, msgTypeStorageInfoReq)
	mac := kdf.Derive(kdf.UsageStorageInfoMAC, macBytes,
		c.macKey[:], []byte{msgTypeStorageInfoReq})
	return append(msg, mac...)
}

// buildPublication produces the publication message: N prekey messages,
// the client profile, the prekey profile when present, and the nested
// MAC over their hashes.
func (c *Client) buildPublication() ([]byte, error) {
	n := int(c.publishBatch)
	messages, err := prekey.BuildMessages(c.rand, c.store, c.instanceTag, n)
	if err != nil {
		return nil, err
	}
	metrics.PrekeysPublished.Add(float64(n))
	metrics.StoredPrekeys.Set(float64(c.store.Len()))

	body := appendHeader(nil, msgTypePublication)
	body = wire.AppendUint8(body, uint8(n))

	messagesStart := len(body)
	for _, m := range messages {
		body = m.Serialize(body)
	}
	prekeyMessagesHash := kdf.Derive(kdf.UsagePrekeyMessage, macBytes, body[messagesStart:])

	clientProfileBytes := c.clientProfile.Serialize(nil)
	body = wire.AppendUint8(body, 1)
	body = append(body, clientProfileBytes...)

	var j byte
	var prekeyProfileBytes []byte
	if c.prekeyProfile != nil {
		j = 1
		prekeyProfileBytes = c.prekeyProfile.Serialize(nil)
	}
	body = wire.AppendUint8(body, j)
	body = append(body, prekeyProfileBytes...)

	// MAC: KDF(0x09, mac_k || type || N || KDF(0x0E, messages, 64)
	//      || K || KDF(0x0F, client profile, 64)
	//      || J || [KDF(0x10, prekey profile, 64)], 64)
	macInputs := [][]byte{
		c.macKey[:],
		{msgTypePublication},
		{uint8(n)},
		prekeyMessagesHash,
		{1},
		kdf.Derive(kdf.UsageClientProfile, macBytes, clientProfileBytes),
		{j},
	}
	if j == 1 {
		macInputs = append(macInputs,
			kdf.Derive(kdf.UsagePrekeyProfile, macBytes, prekeyProfileBytes))
	}
	mac := kdf.Derive(kdf.UsagePublicationMAC, macBytes, macInputs...)
	return append(body, mac...), nil
}

// receiveStorageStatus validates the MAC and surfaces the stored count.
// An invalid MAC surfaces a failure event and leaves the state untouched.
func (c *Client) receiveStorageStatus(msg *storageStatusMessage) error {
	if msg.instanceTag != c.instanceTag {
		return nil
	}

	covered := []byte{msgTypeStorageStatus}
	covered = wire.AppendUint32(covered, msg.instanceTag)
	covered = wire.AppendUint32(covered, msg.storedPrekeys)
	expected := kdf.Derive(kdf.UsageStatusMAC, macBytes, c.macKey[:], covered)

	if subtle.ConstantTimeCompare(expected, msg.mac[:]) != 1 {
		metrics.DakeFailures.WithLabelValues("invalid_mac").Inc()
		c.log.Warn("storage status with invalid mac discarded")
		c.callbacks.Failure(ErrInvalidMAC)
		return ErrInvalidMAC
	}

	c.log.Info("storage status received",
		logger.Uint32("stored_prekeys", msg.storedPrekeys))
	c.callbacks.StorageStatusReceived(msg.storedPrekeys)
	if msg.storedPrekeys < c.minimumStoredPrekeyMsg {
		c.callbacks.LowPrekeyMessages(msg.storedPrekeys)
	}
	c.completeDAKE()
	return nil
}

// receiveSuccess validates KDF(0x0C, mac_k || type || instance tag, 64)
// against the trailing MAC of the fixed-size success message.
func (c *Client) receiveSuccess(decoded []byte) error {
	if len(decoded) < successMsgBytes {
		return wire.ErrUnexpectedEOF
	}

	tag, _, err := wire.ReadUint32(decoded[3:])
	if err != nil {
		return err
	}
	if tag != c.instanceTag {
		return nil
	}

	expected := kdf.Derive(kdf.UsageSuccessMAC, macBytes, c.macKey[:], decoded[2:7])
	if subtle.ConstantTimeCompare(expected, decoded[7:7+macBytes]) != 1 {
		metrics.DakeFailures.WithLabelValues("invalid_mac").Inc()
		c.log.Warn("success message with invalid mac discarded")
		c.callbacks.Failure(ErrInvalidMAC)
		return ErrInvalidMAC
	}

	c.log.Info("publication acknowledged")
	c.callbacks.Success()
	c.completeDAKE()
	return nil
}
