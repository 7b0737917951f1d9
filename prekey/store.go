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
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/DrWhax/libotr-ng/dh"
	"github.com/DrWhax/libotr-ng/ed448"
)

// ErrNotFound signals a lookup for an id not in the store.
var ErrNotFound = errors.New("prekey: not found")

// StoredPrekey holds the private halves of a published prekey message.
// Callers borrow handles from the owning Store; the Store wipes secrets
// on removal and teardown.
type StoredPrekey struct {
	ID          uint32
	InstanceTag uint32
	ECDH        *ed448.KeyPair
	DH          *dh.KeyPair
	CreatedAt   time.Time
}

func (s *StoredPrekey) destroy() {
	s.ECDH.Destroy()
	s.DH.Destroy()
}

// Store is an in-memory container of stored prekeys keyed by id.
type Store struct {
	mu      sync.RWMutex
	prekeys map[uint32]*StoredPrekey
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{prekeys: make(map[uint32]*StoredPrekey)}
}

// Put inserts a stored prekey under its id.
func (s *Store) Put(p *StoredPrekey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prekeys[p.ID] = p
}

// Get returns the stored prekey for id, if present.
func (s *Store) Get(id uint32) (*StoredPrekey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prekeys[id]
	return p, ok
}

// Remove wipes and deletes the stored prekey for id.
func (s *Store) Remove(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prekeys[id]
	if !ok {
		return ErrNotFound
	}
	p.destroy()
	delete(s.prekeys, id)
	return nil
}

// Len returns the number of live stored prekeys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prekeys)
}

// All returns the stored prekeys ordered by id.
func (s *Store) All() []*StoredPrekey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*StoredPrekey, 0, len(s.prekeys))
	for _, p := range s.prekeys {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ExpireBefore removes every stored prekey created before cutoff and
// returns the removed ids. Ids are collected first and removed after, so
// the live set is never mutated mid-iteration.
func (s *Store) ExpireBefore(cutoff time.Time) []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []uint32
	for id, p := range s.prekeys {
		if p.CreatedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		s.prekeys[id].destroy()
		delete(s.prekeys, id)
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i] < expired[j] })
	return expired
}

// Wipe destroys all private halves and empties the store.
func (s *Store) Wipe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.prekeys {
		p.destroy()
		delete(s.prekeys, id)
	}
}
