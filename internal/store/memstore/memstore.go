// Copyright 2026 The Histoflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memstore is the in-process implementation of store.Store. A
// single mutex guards typed containers for sets, lists, and hashes;
// ListPushRight on a list key wakes any goroutine blocked in BLPop on that
// same key via a per-key waiters channel, following the signal-channel
// shape of the teacher's internal/daemon/queue.MemoryQueue.Dequeue.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/histoflow/engine/internal/store"
)

// Store is an in-memory, single-process implementation of store.Store.
type Store struct {
	mu      sync.Mutex
	sets    map[string]map[string]struct{}
	lists   map[string][]string
	hashes  map[string]map[string]string
	keys    map[string]string
	waiters map[string]chan struct{}
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		sets:    make(map[string]map[string]struct{}),
		lists:   make(map[string][]string),
		hashes:  make(map[string]map[string]string),
		keys:    make(map[string]string),
		waiters: make(map[string]chan struct{}),
	}
}

var _ store.Store = (*Store)(nil)

// notify wakes any BLPop currently waiting on key. Caller must hold mu.
func (s *Store) notify(key string) {
	if ch, ok := s.waiters[key]; ok {
		close(ch)
		delete(s.waiters, key)
	}
}

// --- Sets ---

func (s *Store) SetAdd(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	set[member] = struct{}{}
	return nil
}

func (s *Store) SetRemove(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.sets[key]; ok {
		delete(set, member)
		if len(set) == 0 {
			delete(s.sets, key)
		}
	}
	return nil
}

func (s *Store) SetMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[key]
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	return members, nil
}

func (s *Store) SetCard(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sets[key]), nil
}

func (s *Store) SetContains(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sets[key][member]
	return ok, nil
}

// --- Lists ---

func (s *Store) ListPushRight(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], value)
	s.notify(key)
	return nil
}

func (s *Store) ListPopLeft(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	if len(list) == 0 {
		return "", false, nil
	}
	v := list[0]
	s.lists[key] = list[1:]
	return v, true, nil
}

func (s *Store) ListRange(_ context.Context, key string, start, stop int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	n := len(list)
	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return []string{}, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

func (s *Store) ListRemoveByValue(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	out := list[:0]
	removed := false
	for _, v := range list {
		if !removed && v == value {
			removed = true
			continue
		}
		out = append(out, v)
	}
	s.lists[key] = out
	return nil
}

func (s *Store) ListLen(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists[key]), nil
}

// BLPop blocks until key yields an element or timeout elapses.
func (s *Store) BLPop(ctx context.Context, key string, timeout time.Duration) (string, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		list := s.lists[key]
		if len(list) > 0 {
			v := list[0]
			s.lists[key] = list[1:]
			s.mu.Unlock()
			return v, true, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			s.mu.Unlock()
			return "", false, nil
		}
		ch, ok := s.waiters[key]
		if !ok {
			ch = make(chan struct{})
			s.waiters[key] = ch
		}
		s.mu.Unlock()

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", false, ctx.Err()
		case <-timer.C:
			return "", false, nil
		case <-ch:
			timer.Stop()
			// loop around and re-check the list
		}
	}
}

// --- Hashes ---

func (s *Store) HashSet(_ context.Context, key, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string)
		s.hashes[key] = h
	}
	h[field] = value
	return nil
}

func (s *Store) HashSetMany(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string)
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (s *Store) HashGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.hashes[key][field]
	return v, ok, nil
}

func (s *Store) HashGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) HashDel(_ context.Context, key, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.hashes[key]; ok {
		delete(h, field)
		if len(h) == 0 {
			delete(s.hashes, key)
		}
	}
	return nil
}

// --- Plain keys ---

func (s *Store) KeySet(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = value
	return nil
}

func (s *Store) KeyGet(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.keys[key]
	return v, ok, nil
}

func (s *Store) KeyDel(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	delete(s.sets, key)
	delete(s.lists, key)
	delete(s.hashes, key)
	return nil
}

func (s *Store) KeyExists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}
