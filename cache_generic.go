// cache_generic.go: type-safe generic cache API
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import (
	"context"
	"fmt"
	"strconv"
)

// GenericCache is a typed view over Cache.
//
//	cache, err := bucketlock.NewGenericCache[int, User](bucketlock.Config{MaxSize: 10_000})
//	if err != nil {
//	    return err
//	}
//	cache.Set(123, user)
//	if u, ok := cache.Get(123); ok {
//	    fmt.Println(u.Name)
//	}
type GenericCache[K comparable, V any] struct {
	inner Cache
}

// NewGenericCache creates a typed cache.
func NewGenericCache[K comparable, V any](cfg Config) (*GenericCache[K, V], error) {
	inner, err := NewCache(cfg)
	if err != nil {
		return nil, err
	}
	return &GenericCache[K, V]{inner: inner}, nil
}

// Get retrieves a value. A busy bucket or a value of another type is a miss.
func (c *GenericCache[K, V]) Get(key K) (V, bool) {
	v, found := c.inner.Get(keyToString(key))
	if typed, ok := v.(V); found && ok {
		return typed, true
	}
	var zero V
	return zero, false
}

// Lookup is Get with the reason for a miss.
func (c *GenericCache[K, V]) Lookup(key K) (V, error) {
	var zero V
	v, err := c.inner.Lookup(keyToString(key))
	if err != nil {
		return zero, err
	}
	typed, ok := v.(V)
	if !ok {
		return zero, NewErrInternal("Lookup", fmt.Errorf("cached value has type %T", v))
	}
	return typed, nil
}

// Set stores a key-value pair and reports whether it was stored.
func (c *GenericCache[K, V]) Set(key K, value V) bool {
	return c.inner.Set(keyToString(key), value)
}

// Store is Set with the reason for a refusal.
func (c *GenericCache[K, V]) Store(key K, value V) error {
	return c.inner.Store(keyToString(key), value)
}

// Delete removes a key and reports whether it was present.
func (c *GenericCache[K, V]) Delete(key K) bool {
	return c.inner.Delete(keyToString(key))
}

// Has checks if a key exists.
func (c *GenericCache[K, V]) Has(key K) bool {
	return c.inner.Has(keyToString(key))
}

// Banish refuses key until the current banish term ends.
func (c *GenericCache[K, V]) Banish(key K) error {
	return c.inner.Banish(keyToString(key))
}

// Resize moves the cache into a table sized for maxSize entries.
func (c *GenericCache[K, V]) Resize(ctx context.Context, maxSize int) error {
	return c.inner.Resize(ctx, maxSize)
}

// Len returns the current number of entries.
func (c *GenericCache[K, V]) Len() int { return c.inner.Len() }

// Stats returns current cache statistics.
func (c *GenericCache[K, V]) Stats() CacheStats { return c.inner.Stats() }

// Clear removes all entries and returns the number of busy buckets skipped.
func (c *GenericCache[K, V]) Clear() int { return c.inner.Clear() }

// Close releases the cache.
func (c *GenericCache[K, V]) Close() error { return c.inner.Close() }

// Inner returns the untyped cache, e.g. for HotConfig.
func (c *GenericCache[K, V]) Inner() Cache { return c.inner }

// keyToString converts a key to its cache string without allocating for
// strings and avoiding fmt for the integer kinds.
func keyToString[K comparable](key K) string {
	switch v := any(key).(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	default:
		return fmt.Sprintf("%v", key)
	}
}
