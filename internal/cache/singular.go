package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned by Get when no value has been stored yet.
var ErrNotFound = errors.New("cache: value not found")

// Singular holds at most one value under a fixed key. It never expires; the
// value stays until Delete.
type Singular[T any] struct {
	// m serialises MutexGetSet so concurrent misses compute the value once
	m sync.Mutex

	key string

	c *cache.Cache
}

func NewSingular[T any](key string) *Singular[T] {
	return &Singular[T]{
		key: key,
		c:   cache.New(cache.NoExpiration, time.Minute*10),
	}
}

func (c *Singular[T]) Get() (T, error) {
	var zero T
	result, ok := c.c.Get(c.key)
	if !ok {
		return zero, ErrNotFound
	}
	v, ok := result.(T)
	if !ok {
		return zero, ErrNotFound
	}
	return v, nil
}

func (c *Singular[T]) Set(value T) {
	c.c.Set(c.key, value, cache.NoExpiration)
}

// MutexGetSet returns the cached value, or computes it with valueFunc when
// absent. Concurrent callers that miss are serialised and re-check the cache,
// so valueFunc runs at most once per fill. A failing valueFunc stores nothing.
func (c *Singular[T]) MutexGetSet(valueFunc func() (T, error)) (T, error) {
	if v, err := c.Get(); err == nil {
		return v, nil
	}
	return c.slowMutexGetSet(valueFunc)
}

func (c *Singular[T]) slowMutexGetSet(valueFunc func() (T, error)) (T, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if v, err := c.Get(); err == nil {
		return v, nil
	}

	value, err := valueFunc()
	if err != nil {
		log.Error().Err(err).Str("key", c.key).Msg("failed to get value from valueFunc() in MutexGetSet")
		var zero T
		return zero, err
	}
	c.Set(value)
	return value, nil
}

func (c *Singular[T]) Delete() {
	c.c.Flush()
}
