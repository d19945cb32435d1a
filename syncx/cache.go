// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package syncx

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CacheState is the state of a [Cache].
type CacheState int

// Possible states of a [Cache].
const (
	// StateEmpty means nothing is cached and nothing is being computed.
	StateEmpty CacheState = iota
	// StatePending means a computation is in flight; callers join it.
	StatePending
	// StateReady means a result (value or error) is cached.
	StateReady
)

func (s CacheState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	}
	return "CacheState(" + strconv.Itoa(int(s)) + ")"
}

// Cache is a single-slot cache of a computed value that stays valid until
// [Cache.Invalidate] is called. Unlike [Lazy] it can be reset, and
// concurrent callers of [Cache.Get] share one in-flight computation.
//
// Errors are cached like values: a failed computation is returned to every
// caller until the next invalidation.
//
// The zero value is an empty cache. A Cache must not be copied.
type Cache[T any] struct {
	group singleflight.Group

	mu    sync.Mutex
	gen   uint64
	state CacheState
	val   T
	err   error
}

// Get returns the cached result, calling f to compute it if the cache is
// empty. Callers arriving while a computation is pending wait for it
// instead of starting their own.
//
// Once started, f runs to completion even if ctx is canceled; such a
// caller stops waiting and gets ctx.Err(), and the result is still cached.
func (c *Cache[T]) Get(ctx context.Context, f func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if c.state == StateReady {
		val, err := c.val, c.err
		c.mu.Unlock()
		return val, err
	}
	gen := c.gen
	c.state = StatePending
	c.mu.Unlock()

	// Generations keep computations started before an invalidation apart
	// from those started after it.
	ch := c.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		c.mu.Lock()
		if c.gen == gen && c.state == StateReady {
			val, err := c.val, c.err
			c.mu.Unlock()
			return val, err
		}
		c.mu.Unlock()

		val, err := f(context.WithoutCancel(ctx))

		c.mu.Lock()
		if c.gen == gen {
			c.val, c.err, c.state = val, err, StateReady
		}
		c.mu.Unlock()
		return val, err
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		val, _ := res.Val.(T)
		return val, res.Err
	}
}

// Invalidate drops the cached result. Computations already in flight
// still deliver their result to callers waiting on them, but it is not
// cached, and the next call to [Cache.Get] starts a fresh computation.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.gen++
	c.state = StateEmpty
	c.val, c.err = zero, nil
}

// State returns the current state of the cache.
func (c *Cache[T]) State() CacheState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
