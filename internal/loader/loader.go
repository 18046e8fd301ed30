// Package loader batches per-item association lookups made while building one
// response into a single store round trip per lookup kind.
//
// Callers first Load every key they need (the accumulation phase), then call
// Flush once, then read each Thunk. Results are cached for the lifetime of the
// Loader, which must not outlive the request that created it.
package loader

import (
	"context"
	"errors"
	"sync"
)

// ErrPending is returned by Thunk.Get when its key has not been flushed yet.
var ErrPending = errors.New("loader: key not flushed")

// BatchFunc fetches the values for keys. Keys absent from the returned map are
// recorded as absent; result order does not matter.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

type result[V any] struct {
	value V
	found bool
	err   error
}

// Loader accumulates keys and resolves them with one BatchFunc call per Flush.
// A key loaded while its batch is being fetched joins that batch; Flush waits
// for it instead of fetching the key again.
type Loader[K comparable, V any] struct {
	fetch   BatchFunc[K, V]
	observe func(keys int)

	mu       sync.Mutex
	pending  []K
	queued   map[K]struct{}
	inflight map[K]chan struct{}
	cache    map[K]result[V]
	batches  int
}

// New creates a loader. observe, if non-nil, is called with the size of each batch.
func New[K comparable, V any](fetch BatchFunc[K, V], observe func(keys int)) *Loader[K, V] {
	return &Loader[K, V]{
		fetch:    fetch,
		observe:  observe,
		queued:   make(map[K]struct{}),
		inflight: make(map[K]chan struct{}),
		cache:    make(map[K]result[V]),
	}
}

// Load schedules key for the next Flush unless it is already resolved, queued
// or being fetched.
func (l *Loader[K, V]) Load(key K) *Thunk[K, V] {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, done := l.cache[key]
	_, queued := l.queued[key]
	_, fetching := l.inflight[key]
	if !done && !queued && !fetching {
		l.queued[key] = struct{}{}
		l.pending = append(l.pending, key)
	}
	return &Thunk[K, V]{loader: l, key: key}
}

// Flush issues one batch fetch for every pending key, then waits for any
// batch another caller still has in flight. Keys missing from the batch result
// are cached as absent so they are never fetched again. A fetch error is
// cached against each key of the failed batch and also returned.
func (l *Loader[K, V]) Flush(ctx context.Context) error {
	l.mu.Lock()
	waits := make(map[chan struct{}]struct{})
	for _, ch := range l.inflight {
		waits[ch] = struct{}{}
	}
	if len(l.pending) == 0 {
		l.mu.Unlock()
		return wait(ctx, waits)
	}
	keys := l.pending
	l.pending = nil
	done := make(chan struct{})
	for _, k := range keys {
		delete(l.queued, k)
		l.inflight[k] = done
	}
	l.batches++
	l.mu.Unlock()

	if l.observe != nil {
		l.observe(len(keys))
	}
	values, err := l.fetch(ctx, keys)

	l.mu.Lock()
	for _, k := range keys {
		delete(l.inflight, k)
		if err != nil {
			l.cache[k] = result[V]{err: err}
			continue
		}
		v, ok := values[k]
		l.cache[k] = result[V]{value: v, found: ok}
	}
	l.mu.Unlock()
	close(done)

	if werr := wait(ctx, waits); err == nil {
		err = werr
	}
	return err
}

func wait(ctx context.Context, chans map[chan struct{}]struct{}) error {
	for ch := range chans {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Get loads, flushes and reads a single key. Convenient outside a batch window.
func (l *Loader[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	th := l.Load(key)
	if err := l.Flush(ctx); err != nil {
		var zero V
		return zero, false, err
	}
	return th.Get()
}

// Batches returns how many batch fetches the loader has issued.
func (l *Loader[K, V]) Batches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.batches
}

// Thunk is a deferred lookup result.
type Thunk[K comparable, V any] struct {
	loader *Loader[K, V]
	key    K
}

// Get returns the value and whether it exists. It returns ErrPending until the
// key's batch has been flushed.
func (t *Thunk[K, V]) Get() (V, bool, error) {
	t.loader.mu.Lock()
	defer t.loader.mu.Unlock()

	r, ok := t.loader.cache[t.key]
	if !ok {
		var zero V
		return zero, false, ErrPending
	}
	return r.value, r.found, r.err
}
