// loading.go: GetOrLoad with duplicate load suppression
//
// The loader always runs with no bucket lock held. Concurrent misses on the
// same key share one loader call through a per-cache singleflight group.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import "context"

// GetOrLoad returns the cached value for key, or loads it with loader and
// caches the result. Concurrent misses on the same key run loader once.
//
// A busy bucket counts as a miss, so the value is loaded. If the loaded
// value cannot be cached (the key is banished or its bucket is busy) it is
// still returned. Loader errors are returned and never cached.
//
// Example:
//
//	value, err := cache.GetOrLoad("user:123", func() (interface{}, error) {
//	    return fetchUserFromDB(123)
//	})
func (c *bucketCache) GetOrLoad(key string, loader func() (interface{}, error)) (interface{}, error) {
	if loader == nil {
		return c.getOrLoad(context.Background(), "GetOrLoad", key, nil)
	}
	return c.getOrLoad(context.Background(), "GetOrLoad", key, func(context.Context) (interface{}, error) {
		return loader()
	})
}

// GetOrLoadWithContext is GetOrLoad with a context that is passed to loader
// and bounds how long the caller waits for a load started by another
// goroutine. A cancelled waiter returns ctx.Err(); the load itself goes on
// and its result is cached for later callers.
func (c *bucketCache) GetOrLoadWithContext(ctx context.Context, key string, loader func(context.Context) (interface{}, error)) (interface{}, error) {
	return c.getOrLoad(ctx, "GetOrLoadWithContext", key, loader)
}

func (c *bucketCache) getOrLoad(ctx context.Context, op, key string, loader func(context.Context) (interface{}, error)) (interface{}, error) {
	if key == "" {
		return nil, NewErrEmptyKey(op)
	}
	value, err := c.Lookup(key)
	if err == nil {
		return value, nil
	}
	if !IsNotFound(err) && !IsBusy(err) {
		return nil, err
	}
	if loader == nil {
		return nil, NewErrInvalidLoader(key)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := c.loads.DoChan(key, func() (interface{}, error) {
		return c.load(ctx, op, key, loader)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// load runs loader and stores a successful non-nil result. A panic in
// loader is returned as BUCKETLOCK_PANIC_RECOVERED.
func (c *bucketCache) load(ctx context.Context, op, key string, loader func(context.Context) (interface{}, error)) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, NewErrPanicRecovered(op+":"+key, r)
		}
	}()

	value, err = loader(ctx)
	if err != nil || value == nil {
		return value, err
	}
	if serr := c.Store(key, value); serr != nil {
		c.logger.Debug("loaded value not cached", "key", key, "error", serr)
	}
	return value, nil
}
