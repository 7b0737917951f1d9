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

// Package prekeyclient drives the deniable authenticated key exchange
// with an untrusted prekey storage server and the MAC-protected requests
// that ride inside it: storage-status queries and publications of prekey
// messages and profiles.
package prekeyclient

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/DrWhax/libotr-ng/ed448"
	"github.com/DrWhax/libotr-ng/internal/logger"
	"github.com/DrWhax/libotr-ng/internal/memwipe"
	"github.com/DrWhax/libotr-ng/internal/metrics"
	"github.com/DrWhax/libotr-ng/kdf"
	"github.com/DrWhax/libotr-ng/prekey"
	"github.com/DrWhax/libotr-ng/profile"
	"github.com/DrWhax/libotr-ng/wire"
)

// State is the position of a client in the DAKE.
type State int

const (
	// StateIdle accepts new outbound operations.
	StateIdle State = iota
	// StateAwaitingDAKE2 has emitted DAKE1 and waits for the server.
	StateAwaitingDAKE2
	// StateAwaitingServerReply has emitted DAKE3 and waits for the
	// authenticated reply.
	StateAwaitingServerReply
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingDAKE2:
		return "awaiting-dake2"
	case StateAwaitingServerReply:
		return "awaiting-server-reply"
	default:
		return "unknown"
	}
}

// deferredOp is the operation a DAKE was started for.
type deferredOp int

const (
	opNone deferredOp = iota
	opStorageStatus
	opPublication
)

func (o deferredOp) label() string {
	switch o {
	case opStorageStatus:
		return "storage_status"
	case opPublication:
		return "publication"
	default:
		return "none"
	}
}

var (
	// ErrMissingMandatoryInput signals an empty or zero constructor or
	// operation argument.
	ErrMissingMandatoryInput = errors.New("prekeyclient: missing mandatory input")
	// ErrWrongServer signals a delivery from an identity other than the
	// session's server.
	ErrWrongServer = errors.New("prekeyclient: message from unexpected server")
	// ErrStateMismatch signals an operation or message that does not
	// match the current state.
	ErrStateMismatch = errors.New("prekeyclient: operation does not match state")
	// ErrRingSigInvalid signals a DAKE2 ring signature that does not
	// verify.
	ErrRingSigInvalid = errors.New("prekeyclient: ring signature does not verify")
	// ErrInvalidMAC signals a server reply whose MAC does not match.
	ErrInvalidMAC = errors.New("prekeyclient: invalid mac")
)

const (
	minInstanceTag = 0x100

	defaultMaxPublishedPrekeyMsg  = 100
	defaultMinimumStoredPrekeyMsg = 20
)

// Option configures a Client.
type Option func(*Client)

// WithRandom injects the random source; the default is crypto/rand.
func WithRandom(r io.Reader) Option {
	return func(c *Client) { c.rand = r }
}

// WithCallbacks installs the protocol outcome callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(c *Client) { c.callbacks = cb }
}

// WithLogger installs a logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithPrekeyPolicy sets the maximum publication batch and the stored
// count below which LowPrekeyMessages fires.
func WithPrekeyPolicy(maxPublished, minimumStored uint32) Option {
	return func(c *Client) {
		c.maxPublishedPrekeyMsg = maxPublished
		c.minimumStoredPrekeyMsg = minimumStored
	}
}

// WithExpirationGrace extends profile validation by an extra window.
func WithExpirationGrace(d time.Duration) Option {
	return func(c *Client) { c.expirationGrace = d }
}

// Client is a prekey client session against one server. It is not safe
// for concurrent use; callers serialise Receive and the outbound
// operations.
type Client struct {
	serverIdentity string
	ourIdentity    string
	instanceTag    uint32

	// Borrowed; the session must not outlive them.
	longTerm      *ed448.KeyPair
	clientProfile *profile.ClientProfile
	prekeyProfile *profile.PrekeyProfile

	// Owned secret material, wiped on abort, completion and Free.
	ephemeral    *ed448.KeyPair
	sharedSecret [64]byte
	macKey       [64]byte

	state        State
	afterDAKE    deferredOp
	publishBatch uint8

	store     *prekey.Store
	rand      io.Reader
	callbacks Callbacks
	log       logger.Logger

	maxPublishedPrekeyMsg  uint32
	minimumStoredPrekeyMsg uint32
	expirationGrace        time.Duration
}

// NewClient creates a session against server for the account ourIdentity.
// The long-term key pair and the client profile are mandatory; the prekey
// profile may be nil when the caller does not intend to publish one.
func NewClient(server, ourIdentity string, instanceTag uint32,
	longTerm *ed448.KeyPair, clientProfile *profile.ClientProfile,
	prekeyProfile *profile.PrekeyProfile, opts ...Option) (*Client, error) {

	if strings.TrimSpace(server) == "" || strings.TrimSpace(ourIdentity) == "" {
		return nil, fmt.Errorf("%w: empty identity", ErrMissingMandatoryInput)
	}
	if instanceTag < minInstanceTag {
		return nil, fmt.Errorf("%w: instance tag %#x below 0x100", ErrMissingMandatoryInput, instanceTag)
	}
	if longTerm == nil || clientProfile == nil {
		return nil, fmt.Errorf("%w: nil key material", ErrMissingMandatoryInput)
	}

	c := &Client{
		serverIdentity:         server,
		ourIdentity:            ourIdentity,
		instanceTag:            instanceTag,
		longTerm:               longTerm,
		clientProfile:          clientProfile,
		prekeyProfile:          prekeyProfile,
		state:                  StateIdle,
		store:                  prekey.NewStore(),
		rand:                   rand.Reader,
		callbacks:              noopCallbacks{},
		log:                    logger.GetDefaultLogger(),
		maxPublishedPrekeyMsg:  defaultMaxPublishedPrekeyMsg,
		minimumStoredPrekeyMsg: defaultMinimumStoredPrekeyMsg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the current DAKE state.
func (c *Client) State() State { return c.state }

// Store returns the container of stored prekey private halves.
func (c *Client) Store() *prekey.Store { return c.store }

// RequestStorageStatus starts a DAKE whose inner message asks the server
// how many prekey messages it stores. Returns the encoded DAKE1.
func (c *Client) RequestStorageStatus() (string, error) {
	return c.startDAKE(opStorageStatus, 0)
}

// PublishPrekeys starts a DAKE whose inner message publishes n fresh
// prekey messages together with the session's profiles. Returns the
// encoded DAKE1.
func (c *Client) PublishPrekeys(n uint8) (string, error) {
	if n == 0 {
		return "", fmt.Errorf("%w: zero prekey messages", ErrMissingMandatoryInput)
	}
	if uint32(n) > c.maxPublishedPrekeyMsg {
		return "", fmt.Errorf("%w: batch of %d exceeds policy maximum %d",
			prekey.ErrTooManyMessages, n, c.maxPublishedPrekeyMsg)
	}
	return c.startDAKE(opPublication, n)
}

// RetrievePrekeys emits a standalone ensemble query retrieval message for
// a peer identity; no DAKE is involved.
func (c *Client) RetrievePrekeys(peerIdentity, versions string) (string, error) {
	if peerIdentity == "" || versions == "" {
		return "", fmt.Errorf("%w: empty retrieval arguments", ErrMissingMandatoryInput)
	}
	q := retrievalQuery{
		instanceTag: c.instanceTag,
		identity:    peerIdentity,
		versions:    versions,
	}
	return encodeMessage(q.serialize(nil)), nil
}

func (c *Client) startDAKE(op deferredOp, batch uint8) (string, error) {
	if c.state != StateIdle {
		return "", fmt.Errorf("%w: %s", ErrStateMismatch, c.state)
	}
	if err := c.clientProfile.Validate(c.instanceTag, time.Now(), c.expirationGrace); err != nil {
		return "", err
	}

	eph, err := ed448.Generate(c.rand)
	if err != nil {
		return "", err
	}

	msg := dake1Message{
		instanceTag:   c.instanceTag,
		clientProfile: c.clientProfile,
		i:             eph.Public(),
	}
	payload := msg.serialize(nil)

	c.ephemeral = eph
	c.afterDAKE = op
	c.publishBatch = batch
	c.state = StateAwaitingDAKE2

	metrics.DakesInitiated.WithLabelValues(op.label()).Inc()
	c.log.Debug("dake started",
		logger.String("operation", op.label()),
		logger.Uint32("instance_tag", c.instanceTag))

	return encodeMessage(payload), nil
}

// Free wipes all secret material owned by the session and returns it to
// idle. The session may be reused afterwards.
func (c *Client) Free() {
	c.wipeSecrets()
	c.store.Wipe()
	c.afterDAKE = opNone
	c.publishBatch = 0
	c.state = StateIdle
}

func (c *Client) wipeSecrets() {
	if c.ephemeral != nil {
		c.ephemeral.Destroy()
		c.ephemeral = nil
	}
	memwipe.Bytes(c.sharedSecret[:])
	memwipe.Bytes(c.macKey[:])
}

// abortDAKE zeroises the run's secrets, returns to idle and surfaces the
// failure.
func (c *Client) abortDAKE(err error, errType string) {
	c.wipeSecrets()
	c.afterDAKE = opNone
	c.publishBatch = 0
	c.state = StateIdle

	metrics.DakeFailures.WithLabelValues(errType).Inc()
	metrics.DakesCompleted.WithLabelValues("failure").Inc()
	c.log.Warn("dake aborted", logger.Error(err))
	c.callbacks.Failure(err)
}

// completeDAKE zeroises the run's secrets and returns to idle after a
// validated server reply.
func (c *Client) completeDAKE() {
	c.wipeSecrets()
	c.afterDAKE = opNone
	c.publishBatch = 0
	c.state = StateIdle
	metrics.DakesCompleted.WithLabelValues("success").Inc()
}

// transcript assembles the value the ring signatures bind:
// lead || KDF(usageProfile, our profile, 64) || KDF(usageIdentity,
// composite identity, 64) || I || S || KDF(usagePhi, composite phi, 64).
func (c *Client) transcript(lead byte, usageProfile, usageIdentity, usagePhi byte,
	compositeIdentity, s []byte) []byte {

	profileBytes := c.clientProfile.Serialize(nil)

	phi := wire.AppendData(nil, []byte(c.ourIdentity))
	phi = wire.AppendData(phi, []byte(c.serverIdentity))

	t := make([]byte, 0, 1+3*64+2*wire.ECPointBytes)
	t = append(t, lead)
	t = append(t, kdf.Derive(usageProfile, 64, profileBytes)...)
	t = append(t, kdf.Derive(usageIdentity, 64, compositeIdentity)...)
	t = append(t, ed448.PointBytes(c.ephemeral.Public())...)
	t = append(t, s...)
	t = append(t, kdf.Derive(usagePhi, 64, phi)...)
	return t
}

func encodeMessage(payload []byte) string {
	return base64.StdEncoding.EncodeToString(payload) + "."
}

func decodeMessage(message string) ([]byte, error) {
	if message == "" || message[len(message)-1] != '.' {
		return nil, fmt.Errorf("%w: missing terminator", wire.ErrMalformedInput)
	}
	decoded, err := base64.StdEncoding.DecodeString(message[:len(message)-1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wire.ErrMalformedInput, err)
	}
	return decoded, nil
}
