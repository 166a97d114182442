// Package querycache is the request cache that sits between page handlers and the
// remote API. One Cache is built at the application root and handed to the services
// that need it.
//
// Reads go through Fetch: a fresh entry is served as-is, otherwise a single fetch per
// key runs (concurrent callers share it) with the policy's retries. Invalidate bumps a
// per-key generation so that a fetch started before the invalidation never overwrites
// what a newer fetch stores.
package querycache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lecturedesk/lecturedesk/internal/utils"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type entry struct {
	value     any
	fetchedAt time.Time
	usedAt    time.Time
}

type Cache struct {
	policy Policy
	clock  utils.Clock

	mu          sync.Mutex
	entries     map[string]*entry
	generations map[string]uint64
	inflight    map[string]int

	group singleflight.Group
}

func New(policy Policy, clock utils.Clock) *Cache {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Cache{
		policy:      policy,
		clock:       clock,
		entries:     make(map[string]*entry),
		generations: make(map[string]uint64),
		inflight:    make(map[string]int),
	}
}

func (c *Cache) Policy() Policy {
	return c.policy
}

// Fetch returns the cached value for key, or loads it with fn.
//
// When a refetch of a stale entry fails, the stale value is returned together with the
// error so callers can decide whether to show it.
func Fetch[T any](ctx context.Context, c *Cache, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	c.mu.Lock()
	now := c.clock.Now()
	stale, hasStale := c.entries[key]
	if hasStale && now.Sub(stale.fetchedAt) < c.policy.StaleTime {
		stale.usedAt = now
		v, ok := stale.value.(T)
		c.mu.Unlock()
		if ok {
			log.Tracef("querycache: hit %s", key)
			return v, nil
		}
		return zero, fmt.Errorf("querycache: entry %s holds %T", key, stale.value)
	}
	c.mu.Unlock()

	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(ctx, key, func(ctx context.Context) (any, error) {
			return fn(ctx)
		})
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}

	if res.Err != nil {
		if hasStale {
			if v, ok := stale.value.(T); ok {
				return v, res.Err
			}
		}
		return zero, res.Err
	}
	v, ok := res.Val.(T)
	if !ok {
		return zero, fmt.Errorf("querycache: fetch for %s returned %T", key, res.Val)
	}
	return v, nil
}

// load runs one shared fetch. It is detached from the first caller's cancellation so
// that other callers waiting on the same key are not failed by it.
func (c *Cache) load(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	gen, known := c.generations[key]
	if !known {
		c.generations[key] = 0
	}
	c.inflight[key]++
	c.mu.Unlock()

	fetchCtx := context.WithoutCancel(ctx)
	if c.policy.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(fetchCtx, c.policy.FetchTimeout)
		defer cancel()
	}

	started := c.clock.Now()
	v, err := Retry(fetchCtx, c.policy, c.policy.Retry, fn)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[key]--; c.inflight[key] <= 0 {
		delete(c.inflight, key)
	}
	if err != nil {
		log.Debugf("querycache: fetch %s failed: %v", key, err)
		return nil, err
	}
	if c.generations[key] != gen {
		log.Debugf("querycache: discarding result for %s, invalidated after %s", key, started.Format(time.RFC3339))
		return v, nil
	}
	now := c.clock.Now()
	c.entries[key] = &entry{value: v, fetchedAt: now, usedAt: now}
	return v, nil
}

// Mutate runs fn with the mutation retry budget. Nothing is cached.
func Mutate[T any](ctx context.Context, c *Cache, fn func(ctx context.Context) (T, error)) (T, error) {
	return Retry(ctx, c.policy, c.policy.MutationRetry, fn)
}

// Invalidate drops key and makes any in-flight fetch for it unable to store its result.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.generations[key]++
	c.mu.Unlock()
	c.group.Forget(key)
}

// InvalidatePrefix invalidates every known key starting with prefix, including keys
// whose first fetch is still in flight.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	keys := make(map[string]struct{})
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			keys[key] = struct{}{}
		}
	}
	for key := range c.generations {
		if strings.HasPrefix(key, prefix) {
			keys[key] = struct{}{}
		}
	}
	dropped := 0
	for key := range keys {
		if _, ok := c.entries[key]; ok {
			delete(c.entries, key)
			dropped++
		}
		c.generations[key]++
	}
	c.mu.Unlock()

	for key := range keys {
		c.group.Forget(key)
	}
	return dropped
}

// Sweep drops entries that have not been read for longer than CacheTime, and forgets
// the generation of every key that has neither an entry nor a fetch in flight.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.usedAt) > c.policy.CacheTime {
			delete(c.entries, key)
			removed++
		}
	}
	for key := range c.generations {
		_, cached := c.entries[key]
		if !cached && c.inflight[key] == 0 {
			delete(c.generations, key)
		}
	}
	return removed
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
