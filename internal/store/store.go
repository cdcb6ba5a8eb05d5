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

// Package store defines the key/value primitives every component
// coordinates through, per spec.md §4.1. Sets, lists, and hashes are the
// only composite structures; everything else is a plain string key.
package store

import (
	"context"
	"time"
)

// Store is the full set of primitives the engine depends on. A single
// implementation must provide atomicity per individual key.
type Store interface {
	// Sets
	SetAdd(ctx context.Context, key, member string) error
	SetRemove(ctx context.Context, key, member string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetCard(ctx context.Context, key string) (int, error)
	SetContains(ctx context.Context, key, member string) (bool, error)

	// Lists (queues)
	ListPushRight(ctx context.Context, key, value string) error
	ListPopLeft(ctx context.Context, key string) (string, bool, error)
	ListRange(ctx context.Context, key string, start, stop int) ([]string, error)
	ListRemoveByValue(ctx context.Context, key, value string) error
	ListLen(ctx context.Context, key string) (int, error)

	// BLPop blocks until key has an element or timeout elapses, whichever
	// comes first. ok is false on timeout.
	BLPop(ctx context.Context, key string, timeout time.Duration) (value string, ok bool, err error)

	// Hashes
	HashSet(ctx context.Context, key, field, value string) error
	HashSetMany(ctx context.Context, key string, fields map[string]string) error
	HashGet(ctx context.Context, key, field string) (string, bool, error)
	HashGetAll(ctx context.Context, key string) (map[string]string, error)
	HashDel(ctx context.Context, key, field string) error

	// Plain keys
	KeySet(ctx context.Context, key, value string) error
	KeyGet(ctx context.Context, key string) (string, bool, error)
	// KeyDel removes key whatever it holds: a plain value, set, list, or hash.
	KeyDel(ctx context.Context, key string) error
	KeyExists(ctx context.Context, key string) (bool, error)
}
