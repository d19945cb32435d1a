// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package syncx

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"

	"go.astrophena.name/pctasks/testutil"
)

func TestCacheGet(t *testing.T) {
	t.Parallel()

	var c Cache[[]string]
	testutil.AssertEqual(t, c.State(), StateEmpty)

	var calls int
	f := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	v1, err := c.Get(context.Background(), f)
	testutil.AssertEqual(t, err, nil)
	v2, err := c.Get(context.Background(), f)
	testutil.AssertEqual(t, err, nil)

	testutil.AssertEqual(t, calls, 1)
	testutil.AssertEqual(t, c.State(), StateReady)
	// The very same slice is returned.
	if &v1[0] != &v2[0] {
		t.Fatal("Get returned a different slice without invalidation")
	}
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()

	var c Cache[int]
	var n int
	f := func(context.Context) (int, error) {
		n++
		return n, nil
	}

	v, _ := c.Get(context.Background(), f)
	testutil.AssertEqual(t, v, 1)

	c.Invalidate()
	testutil.AssertEqual(t, c.State(), StateEmpty)

	v, _ = c.Get(context.Background(), f)
	testutil.AssertEqual(t, v, 2)
	v, _ = c.Get(context.Background(), f)
	testutil.AssertEqual(t, v, 2)
}

func TestCacheErrorIsCached(t *testing.T) {
	t.Parallel()

	errBroken := errors.New("broken")
	var c Cache[string]
	var calls int
	broken := func(context.Context) (string, error) {
		calls++
		return "", errBroken
	}

	for range 2 {
		_, err := c.Get(context.Background(), broken)
		if !errors.Is(err, errBroken) {
			t.Fatalf("want %v, got %v", errBroken, err)
		}
	}
	testutil.AssertEqual(t, calls, 1)

	c.Invalidate()
	v, err := c.Get(context.Background(), func(context.Context) (string, error) { return "fixed", nil })
	testutil.AssertEqual(t, err, nil)
	testutil.AssertEqual(t, v, "fixed")
}

func TestCacheCoalescesConcurrentCalls(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var c Cache[int]
		var calls atomic.Int32
		release := make(chan struct{})

		f := func(context.Context) (int, error) {
			calls.Add(1)
			<-release
			return 42, nil
		}

		results := make(chan int, 10)
		for range 10 {
			go func() {
				v, _ := c.Get(context.Background(), f)
				results <- v
			}()
		}
		synctest.Wait()
		testutil.AssertEqual(t, c.State(), StatePending)

		close(release)
		for range 10 {
			testutil.AssertEqual(t, <-results, 42)
		}
		testutil.AssertEqual(t, int(calls.Load()), 1)
		testutil.AssertEqual(t, c.State(), StateReady)
	})
}

func TestCacheInvalidateWhilePending(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var c Cache[string]
		release := make(chan struct{})

		old := make(chan string, 1)
		go func() {
			v, _ := c.Get(context.Background(), func(context.Context) (string, error) {
				<-release
				return "stale", nil
			})
			old <- v
		}()
		synctest.Wait()

		c.Invalidate()

		// A caller after invalidation does not join the stale computation.
		v, err := c.Get(context.Background(), func(context.Context) (string, error) {
			return "fresh", nil
		})
		testutil.AssertEqual(t, err, nil)
		testutil.AssertEqual(t, v, "fresh")

		close(release)
		testutil.AssertEqual(t, <-old, "stale")

		// The stale result was delivered but not cached.
		v, _ = c.Get(context.Background(), func(context.Context) (string, error) {
			t.Fatal("cache must not recompute")
			return "", nil
		})
		testutil.AssertEqual(t, v, "fresh")
	})
}

func TestCacheCanceledCallerDoesNotCancelComputation(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var c Cache[int]
		release := make(chan struct{})
		var sawCancel atomic.Bool

		ctx, cancel := context.WithCancel(context.Background())
		errc := make(chan error, 1)
		go func() {
			_, err := c.Get(ctx, func(ctx context.Context) (int, error) {
				<-release
				sawCancel.Store(ctx.Err() != nil)
				return 7, nil
			})
			errc <- err
		}()
		synctest.Wait()

		cancel()
		if err := <-errc; !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}

		close(release)
		synctest.Wait()

		testutil.AssertEqual(t, sawCancel.Load(), false)
		testutil.AssertEqual(t, c.State(), StateReady)
		v, _ := c.Get(context.Background(), func(context.Context) (int, error) { return 0, nil })
		testutil.AssertEqual(t, v, 7)
	})
}
