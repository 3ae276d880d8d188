// loading_generic.go: typed GetOrLoad
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import (
	"context"
	"fmt"
)

// GetOrLoad is the typed form of Cache.GetOrLoad.
//
//	user, err := cache.GetOrLoad(42, func() (User, error) {
//	    return fetchUser(42)
//	})
func (c *GenericCache[K, V]) GetOrLoad(key K, loader func() (V, error)) (V, error) {
	var wrapped func() (interface{}, error)
	if loader != nil {
		wrapped = func() (interface{}, error) { return loader() }
	}
	result, err := c.inner.GetOrLoad(keyToString(key), wrapped)
	return typedResult[V]("GetOrLoad", result, err)
}

// GetOrLoadWithContext is the typed form of Cache.GetOrLoadWithContext.
func (c *GenericCache[K, V]) GetOrLoadWithContext(ctx context.Context, key K, loader func(context.Context) (V, error)) (V, error) {
	var wrapped func(context.Context) (interface{}, error)
	if loader != nil {
		wrapped = func(ctx context.Context) (interface{}, error) { return loader(ctx) }
	}
	result, err := c.inner.GetOrLoadWithContext(ctx, keyToString(key), wrapped)
	return typedResult[V]("GetOrLoadWithContext", result, err)
}

// typedResult converts a loaded value back to V. A value of another type
// can only come from the untyped cache behind Inner.
func typedResult[V any](op string, result interface{}, err error) (V, error) {
	var zero V
	if err != nil || result == nil {
		return zero, err
	}
	value, ok := result.(V)
	if !ok {
		return zero, NewErrInternal(op, fmt.Errorf("cached value has type %T", result))
	}
	return value, nil
}
