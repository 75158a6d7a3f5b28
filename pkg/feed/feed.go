// Package feed provides a reusable incremental fetch controller for paged
// listings ("infinite scroll"): it owns a growing, order-preserving sequence
// of items, requests pages strictly in increasing order, suppresses
// overlapping fetches, and terminates once a page comes back empty.
//
// A Controller is owned by a single listing view. Its methods are safe for
// concurrent use, but pages are never fetched concurrently: the loading guard
// admits at most one in-flight request, and page N+1 is only requested after
// page N has resolved.
package feed

import (
	"context"
	"sync"
)

// State enumerates the controller lifecycle.
type State int

const (
	// StateIdle is the initial state before the first Load.
	StateIdle State = iota
	// StateFetchingInitial means page 1 for the current context is in flight.
	StateFetchingInitial
	// StateReady means at least one page is accumulated and more may exist.
	StateReady
	// StateFetchingMore means a follow-up page is in flight.
	StateFetchingMore
	// StateExhausted is terminal for the current context: a page returned
	// zero items and no further fetches will be issued until Reset.
	StateExhausted
	// StateError records a failed fetch. Accumulated items are retained and a
	// renewed sentinel trigger retries the same page.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingInitial:
		return "fetching-initial"
	case StateReady:
		return "ready"
	case StateFetchingMore:
		return "fetching-more"
	case StateExhausted:
		return "exhausted"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// FetchFunc fetches one page (1-based) for the controller's current filter
// context. Returning an empty slice with a nil error signals exhaustion.
type FetchFunc[T any] func(ctx context.Context, page int) ([]T, error)

// Option configures a Controller.
type Option func(*options)

type options struct {
	prefetchMargin int
}

// WithPrefetchMargin makes ItemVisible trigger when any of the last 1+n
// rendered items becomes visible, instead of only the very last one. This is
// the pre-emptive margin of a viewport observer.
func WithPrefetchMargin(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.prefetchMargin = n
		}
	}
}

// Controller drives incremental consumption of a paged listing.
type Controller[T any] struct {
	mu    sync.Mutex
	fetch FetchFunc[T]
	opts  options

	state    State
	items    []T
	nextPage int
	// generation tags each fetch with the filter context it was issued under.
	// Reset bumps it, so a stale response resolving afterwards is discarded
	// instead of being merged into a now-irrelevant accumulation.
	generation uint64
	lastErr    error
}

// New creates a Controller for one filter context. The fetch closure captures
// the context (search term, category, availability); changing any of those
// means calling Reset with a new closure.
func New[T any](fetch FetchFunc[T], opts ...Option) *Controller[T] {
	c := &Controller[T]{
		fetch:    fetch,
		state:    StateIdle,
		nextPage: 1,
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

// Load fetches page 1 for the current context. It is a no-op unless the
// controller is Idle (fresh or just Reset) or retrying after an initial-load
// failure. An empty first page moves straight to Exhausted; the caller renders
// an empty state, not an error.
func (c *Controller[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle && !(c.state == StateError && len(c.items) == 0) {
		c.mu.Unlock()
		return nil
	}
	c.state = StateFetchingInitial
	gen := c.generation
	c.mu.Unlock()

	items, err := c.fetch(ctx, 1)
	return c.apply(gen, 1, items, err)
}

// ItemVisible reports that the item at index has entered the viewport. When
// the index falls on the sentinel (the tail of the accumulated sequence, give
// or take the prefetch margin) and no fetch is in flight and the context is
// not exhausted, the next page is fetched synchronously. It returns true if a
// fetch was performed.
//
// A double trigger while a fetch is in flight issues no second request: the
// guard below admits one fetch per resolved page.
func (c *Controller[T]) ItemVisible(ctx context.Context, index int) bool {
	c.mu.Lock()
	if c.state != StateReady && c.state != StateError {
		c.mu.Unlock()
		return false
	}
	if len(c.items) == 0 || index < len(c.items)-1-c.opts.prefetchMargin {
		c.mu.Unlock()
		return false
	}
	c.state = StateFetchingMore
	gen := c.generation
	page := c.nextPage
	c.mu.Unlock()

	items, err := c.fetch(ctx, page)
	_ = c.apply(gen, page, items, err)
	return true
}

// Reset discards the accumulation and returns to Idle for a new filter
// context. A non-nil fetch replaces the fetch closure. Any in-flight fetch
// keeps running but its result is dropped on arrival.
func (c *Controller[T]) Reset(fetch FetchFunc[T]) {
	c.mu.Lock()
	c.generation++
	c.items = nil
	c.nextPage = 1
	c.lastErr = nil
	if fetch != nil {
		c.fetch = fetch
	}
	c.state = StateIdle
	c.mu.Unlock()
}

// apply merges a resolved fetch into controller state, unless the context has
// changed since the fetch was issued.
func (c *Controller[T]) apply(gen uint64, page int, items []T, err error) error {
	c.mu.Lock()
	if gen != c.generation {
		// Stale response from a previous filter context.
		c.mu.Unlock()
		return nil
	}

	if err != nil {
		c.lastErr = err
		c.state = StateError
		c.mu.Unlock()
		return err
	}

	c.lastErr = nil
	if len(items) == 0 {
		c.state = StateExhausted
		c.mu.Unlock()
		return nil
	}

	// Pages merge strictly in order: items from page N+1 land after all
	// items from page N.
	c.items = append(c.items, items...)
	c.nextPage = page + 1
	c.state = StateReady
	c.mu.Unlock()
	return nil
}

// Items returns a snapshot of the accumulated sequence.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// State returns the current lifecycle state.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// NextPage returns the page the controller will request next.
func (c *Controller[T]) NextPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextPage
}

// Exhausted reports whether the current context has no more data.
func (c *Controller[T]) Exhausted() bool {
	return c.State() == StateExhausted
}

// Err returns the error from the most recent failed fetch, or nil.
func (c *Controller[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
