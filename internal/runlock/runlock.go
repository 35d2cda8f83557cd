// Copyright (c) 2026 John Earle
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

// Package runlock keeps two batch sessions from running at once, using a
// Redis key with a TTL as the lock.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL bounds how long a crashed session can hold the lock.
	DefaultTTL = 15 * time.Minute

	// keyPrefix namespaces lock keys in Redis.
	keyPrefix = "triage:lock:"
)

// ErrHeld is returned by Acquire when another session holds the lock.
var ErrHeld = errors.New("runlock: lock held by another session")

// releaseScript deletes the key only if it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Client is the subset of the Redis client the lock needs.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Locker hands out named locks.
type Locker struct {
	rdb Client
	ttl time.Duration
}

// NewLocker creates a Locker. A non-positive ttl uses DefaultTTL.
func NewLocker(rdb Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{rdb: rdb, ttl: ttl}
}

// Lock is a held lock. Release it on every exit path.
type Lock struct {
	rdb   Client
	key   string
	token string
}

// Acquire takes the named lock or returns ErrHeld.
func (l *Locker) Acquire(ctx context.Context, name string) (*Lock, error) {
	key := keyPrefix + name
	token := uuid.NewString()

	// SET NX = set only if key does not exist. Returns true if the key was set.
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("runlock SETNX: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return &Lock{rdb: l.rdb, key: key, token: token}, nil
}

// Release drops the lock if this session still owns it. A lock that expired
// and was taken by another session is left alone.
func (lk *Lock) Release(ctx context.Context) error {
	if err := lk.rdb.Eval(ctx, releaseScript, []string{lk.key}, lk.token).Err(); err != nil {
		return fmt.Errorf("runlock release: %w", err)
	}
	return nil
}
