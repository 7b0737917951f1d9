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
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrClientNotFound signals a manager lookup for an unknown handle.
var ErrClientNotFound = errors.New("prekeyclient: client not found")

// Manager keeps the prekey clients of a multi-account host under opaque
// handles. Every Register call yields a fresh handle; the manager does not
// check whether a client for the same (account, server) pair is already
// registered. The manager only guards its own map; each client remains
// single-threaded per the session contract.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{clients: make(map[string]*Client)}
}

// Register adds a client and returns its handle.
func (m *Manager) Register(c *Client) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.clients[id] = c
	return id
}

// Get returns the client for a handle.
func (m *Manager) Get(id string) (*Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	return c, nil
}

// Remove frees the client's secret material and drops it.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return ErrClientNotFound
	}
	c.Free()
	delete(m.clients, id)
	return nil
}

// Len returns the number of registered clients.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Close frees every registered client.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.clients {
		c.Free()
		delete(m.clients, id)
	}
}
