package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/halo-sigs/plugin-unsplash/interfaces"
)

// fetchCall is a fetch shared by every caller that arrives while it runs.
type fetchCall struct {
	done     chan struct{}
	snapshot Snapshot
}

// Resolver fetches the plugin configuration from the host once and serves
// the memoized snapshot until Refresh is called. Fetch and parse failures
// degrade to the unconfigured snapshot instead of failing the caller.
type Resolver struct {
	fetcher interfaces.ConfigFetcher
	name    string
	logger  interfaces.Logger

	mu          sync.Mutex
	current     Snapshot
	loaded      bool
	inflight    *fetchCall
	pending     *fetchCall
	pendingCtx  context.Context
	subscribers map[chan Snapshot]struct{}
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithPluginName overrides the plugin name the config map is fetched for.
func WithPluginName(name string) Option {
	return func(r *Resolver) { r.name = name }
}

// NewResolver creates a Resolver reading from fetcher.
func NewResolver(fetcher interfaces.ConfigFetcher, logger interfaces.Logger, opts ...Option) *Resolver {
	resolver := &Resolver{
		fetcher:     fetcher,
		name:        interfaces.PluginName,
		logger:      logger,
		current:     Snapshot{state: StateIdle},
		subscribers: make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(resolver)
	}
	return resolver
}

// Resolve returns the cached snapshot, fetching it on first use.
func (r *Resolver) Resolve(ctx context.Context) Snapshot {
	r.mu.Lock()
	if r.loaded && r.inflight == nil {
		snapshot := r.current
		r.mu.Unlock()
		return snapshot
	}
	call := r.startLocked(ctx)
	r.mu.Unlock()

	return r.wait(ctx, call)
}

// Refresh refetches the configuration. A fetch already in flight may have
// read the source before the change being refreshed for, so Refresh queues
// one follow-up fetch after it instead of joining it. Concurrent refreshes
// share that follow-up.
func (r *Resolver) Refresh(ctx context.Context) Snapshot {
	r.mu.Lock()
	var call *fetchCall
	switch {
	case r.inflight == nil:
		call = r.startLocked(ctx)
	case r.pending != nil:
		call = r.pending
	default:
		call = &fetchCall{done: make(chan struct{})}
		r.pending = call
		r.pendingCtx = context.WithoutCancel(ctx)
	}
	r.mu.Unlock()

	return r.wait(ctx, call)
}

// Current returns the latest snapshot without fetching.
func (r *Resolver) Current() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// IsLoading is true until the first fetch has completed. Resolve returns
// a StateLoading snapshot only when its context ends before that.
func (r *Resolver) IsLoading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.loaded
}

// IsFetching is true while any fetch is in flight.
func (r *Resolver) IsFetching() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight != nil
}

// Subscribe returns a channel receiving every new snapshot. Slow readers
// only see the most recent one.
func (r *Resolver) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	r.mu.Unlock()
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (r *Resolver) Unsubscribe(ch <-chan Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sub := range r.subscribers {
		if sub == ch {
			delete(r.subscribers, sub)
			close(sub)
			return
		}
	}
}

// GetAccessKey implements interfaces.Account.
func (r *Resolver) GetAccessKey(ctx context.Context) (string, error) {
	key := r.Resolve(ctx).AccessKey()
	if key == "" {
		return "", interfaces.ErrMissingAccessKey
	}
	return key, nil
}

// startLocked joins the in-flight fetch or starts a new one. r.mu must be held.
func (r *Resolver) startLocked(ctx context.Context) *fetchCall {
	if r.inflight != nil {
		return r.inflight
	}

	call := &fetchCall{done: make(chan struct{})}
	r.inflight = call
	if !r.loaded {
		r.current = Snapshot{state: StateLoading}
	}

	// The fetch outlives a caller that stops waiting; other callers may
	// still be joined to it.
	fetchCtx := context.WithoutCancel(ctx)
	go r.fetch(fetchCtx, call)

	return call
}

func (r *Resolver) wait(ctx context.Context, call *fetchCall) Snapshot {
	select {
	case <-call.done:
		return call.snapshot
	case <-ctx.Done():
		return r.Current()
	}
}

func (r *Resolver) fetch(ctx context.Context, call *fetchCall) {
	snapshot := r.load(ctx)

	r.mu.Lock()
	r.current = snapshot
	r.loaded = true
	r.inflight = nil
	if next := r.pending; next != nil {
		r.inflight = next
		r.pending = nil
		go r.fetch(r.pendingCtx, next)
		r.pendingCtx = nil
	}
	call.snapshot = snapshot
	for sub := range r.subscribers {
		select {
		case <-sub:
		default:
		}
		sub <- snapshot
	}
	r.mu.Unlock()

	close(call.done)
}

// load performs one fetch and parse, degrading every failure to the
// unconfigured snapshot.
func (r *Resolver) load(ctx context.Context) Snapshot {
	if r.fetcher == nil {
		return r.failed(fmt.Errorf("no configuration source for plugin %s", r.name))
	}

	configMap, err := r.fetcher.FetchPluginConfig(ctx, r.name)
	if err != nil {
		return r.failed(fmt.Errorf("fetch config for plugin %s: %w", r.name, err))
	}

	basic, err := BasicFromConfigMap(configMap)
	if err != nil {
		return r.failed(err)
	}

	return NewSnapshot(basic)
}

func (r *Resolver) failed(err error) Snapshot {
	if r.logger != nil {
		r.logger.Warn(fmt.Sprintf("falling back to unconfigured defaults: %v", err))
	}
	return Snapshot{state: StateError, err: err, fetchedAt: time.Now()}
}
