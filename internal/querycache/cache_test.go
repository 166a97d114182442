package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lecturedesk/lecturedesk/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")
var errPermanent = errors.New("permanent")

func testPolicy() Policy {
	p := DefaultPolicy()
	p.RetryDelay = func(int) time.Duration { return 0 }
	p.RetryIf = func(err error) bool { return !errors.Is(err, errPermanent) }
	return p
}

func setupCache(t *testing.T) (*Cache, *utils.MockClock) {
	t.Helper()
	clock := utils.NewMockClock(time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC))
	return New(testPolicy(), clock), clock
}

func counter(values ...string) (func(ctx context.Context) (string, error), *atomic.Int32) {
	var calls atomic.Int32
	return func(ctx context.Context) (string, error) {
		n := calls.Add(1)
		idx := int(n) - 1
		if idx >= len(values) {
			idx = len(values) - 1
		}
		return values[idx], nil
	}, &calls
}

func TestFetch_ServesFreshEntryWithoutRefetch(t *testing.T) {
	// given
	cache, clock := setupCache(t)
	fn, calls := counter("first", "second")

	// when
	v1, err1 := Fetch(context.Background(), cache, "lectures/2024/06", fn)
	clock.Advance(4 * time.Minute)
	v2, err2 := Fetch(context.Background(), cache, "lectures/2024/06", fn)

	// then
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, "first", v1)
	assert.Equal(t, "first", v2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_RefetchesStaleEntry(t *testing.T) {
	cache, clock := setupCache(t)
	fn, calls := counter("first", "second")

	_, _ = Fetch(context.Background(), cache, "materials", fn)
	clock.Advance(5*time.Minute + time.Second)
	v, err := Fetch(context.Background(), cache, "materials", fn)

	require.NoError(t, err)
	assert.Equal(t, "second", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_RetriesTransientErrors(t *testing.T) {
	cache, _ := setupCache(t)
	attempts := 0

	v, err := Fetch(context.Background(), cache, "materials", func(ctx context.Context) ([]string, error) {
		attempts++
		if attempts < 3 {
			return nil, errTransient
		}
		return []string{"a"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v)
	assert.Equal(t, 3, attempts)
}

func TestFetch_GivesUpAfterRetryBudget(t *testing.T) {
	cache, _ := setupCache(t)
	attempts := 0

	_, err := Fetch(context.Background(), cache, "materials", func(ctx context.Context) ([]string, error) {
		attempts++
		return nil, errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 4, attempts, "one attempt plus three retries")
	assert.Equal(t, 0, cache.Len())
}

func TestFetch_DoesNotRetryPermanentErrors(t *testing.T) {
	cache, _ := setupCache(t)
	attempts := 0

	_, err := Fetch(context.Background(), cache, "materials", func(ctx context.Context) ([]string, error) {
		attempts++
		return nil, errPermanent
	})

	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, attempts)
}

func TestFetch_ReturnsStaleValueWhenRefetchFails(t *testing.T) {
	cache, clock := setupCache(t)
	_, err := Fetch(context.Background(), cache, "materials", func(ctx context.Context) (string, error) {
		return "old", nil
	})
	require.NoError(t, err)
	clock.Advance(6 * time.Minute)

	v, err := Fetch(context.Background(), cache, "materials", func(ctx context.Context) (string, error) {
		return "", errPermanent
	})

	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, "old", v)
}

func TestFetch_SharesInFlightCall(t *testing.T) {
	cache, _ := setupCache(t)
	release := make(chan struct{})
	var calls atomic.Int32
	fn := func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Fetch(context.Background(), cache, "lectures/2024/06", fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	// Let the goroutines join the flight before releasing it.
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestFetch_InvalidatedFlightDoesNotOverwriteNewerResult(t *testing.T) {
	// given a slow fetch in flight
	cache, _ := setupCache(t)
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan string)
	go func() {
		v, _ := Fetch(context.Background(), cache, "materials", func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "old response", nil
		})
		done <- v
	}()
	<-started

	// when the key is invalidated and a newer request completes first
	cache.Invalidate("materials")
	v, err := Fetch(context.Background(), cache, "materials", func(ctx context.Context) (string, error) {
		return "new response", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new response", v)
	close(release)
	assert.Equal(t, "old response", <-done)

	// then the cache still holds the newer result
	v, err = Fetch(context.Background(), cache, "materials", func(ctx context.Context) (string, error) {
		t.Fatal("fresh entry must be served from cache")
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new response", v)
}

func TestFetch_CallerCancellation(t *testing.T) {
	cache, _ := setupCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Fetch(ctx, cache, "slow", func(ctx context.Context) (string, error) {
		<-release
		return "late", nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvalidatePrefix(t *testing.T) {
	cache, _ := setupCache(t)
	for _, key := range []string{"lectures/anon/2024/05", "lectures/anon/2024/06", "materials/anon"} {
		_, err := Fetch(context.Background(), cache, key, func(ctx context.Context) (int, error) { return 1, nil })
		require.NoError(t, err)
	}

	dropped := cache.InvalidatePrefix("lectures/anon/")

	assert.Equal(t, 2, dropped)
	assert.Equal(t, 1, cache.Len())
}

func TestSweep_DropsUnusedEntries(t *testing.T) {
	cache, clock := setupCache(t)
	get := func(key string) {
		_, err := Fetch(context.Background(), cache, key, func(ctx context.Context) (int, error) { return 1, nil })
		require.NoError(t, err)
	}
	get("a")
	get("b")
	clock.Advance(4 * time.Minute)
	get("b") // still fresh, marks b as used

	clock.Advance(7 * time.Minute)
	removed := cache.Sweep()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, cache.Len())
}

func TestSweep_ForgetsGenerationsOfIdleKeys(t *testing.T) {
	// given one key swept away and one fetch still in flight
	cache, clock := setupCache(t)
	_, err := Fetch(context.Background(), cache, "lectures/anon/date/2024-06-05", func(ctx context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	cache.Invalidate("lectures/anon/id/7")

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Fetch(context.Background(), cache, "materials/anon/all", func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 2, nil
		})
	}()
	<-started
	clock.Advance(11 * time.Minute)

	// when
	cache.Sweep()

	// then only the in-flight key keeps its generation
	cache.mu.Lock()
	assert.Len(t, cache.generations, 1)
	assert.Contains(t, cache.generations, "materials/anon/all")
	cache.mu.Unlock()

	close(release)
	<-done
	clock.Advance(11 * time.Minute)
	cache.Sweep()
	cache.mu.Lock()
	assert.Empty(t, cache.generations)
	assert.Empty(t, cache.inflight)
	cache.mu.Unlock()
}

func TestFetch_StopsRetryingAtFetchTimeout(t *testing.T) {
	policy := testPolicy()
	policy.Retry = 100
	policy.FetchTimeout = 20 * time.Millisecond
	cache := New(policy, utils.NewMockClock(time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)))
	var calls atomic.Int32

	started := time.Now()
	_, err := Fetch(context.Background(), cache, "slow", func(ctx context.Context) (string, error) {
		calls.Add(1)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Millisecond):
			return "", errTransient
		}
	})

	assert.Error(t, err)
	assert.Less(t, time.Since(started), time.Second)
	assert.Less(t, calls.Load(), int32(100))
}

func TestMutate_UsesMutationRetryBudget(t *testing.T) {
	cache, _ := setupCache(t)
	attempts := 0

	_, err := Mutate(context.Background(), cache, func(ctx context.Context) (string, error) {
		attempts++
		return "", errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 2, attempts)
}

func TestExponentialDelay(t *testing.T) {
	delay := ExponentialDelay(time.Second, 30*time.Second)

	assert.Equal(t, time.Second, delay(0))
	assert.Equal(t, 2*time.Second, delay(1))
	assert.Equal(t, 4*time.Second, delay(2))
	assert.Equal(t, 16*time.Second, delay(4))
	assert.Equal(t, 30*time.Second, delay(5))
	assert.Equal(t, 30*time.Second, delay(20))
	assert.Equal(t, time.Second, delay(-1))
}

func TestRetry_StopsWhenContextDone(t *testing.T) {
	p := testPolicy()
	p.RetryDelay = func(int) time.Duration { return time.Hour }
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Retry(ctx, p, 3, func(ctx context.Context) (int, error) {
		return 0, errTransient
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
