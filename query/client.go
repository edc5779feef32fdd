package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MrEthical07/goBlog/internal/logging"
)

var (
	// ErrNoFetcher is returned when an entry must be fetched but no fetcher
	// was ever registered for its key.
	ErrNoFetcher = errors.New("query: no fetcher registered")
	// ErrCancelled is returned to waiters of a fetch that was cancelled or
	// superseded by a newer one.
	ErrCancelled = errors.New("query: fetch cancelled")
)

const (
	defaultGCTime       = 5 * time.Minute
	defaultFetchTimeout = 30 * time.Second
	maxFetchJoins       = 3
)

// Fetcher loads the value for one key. The returned value is JSON-encoded
// before it is stored; a json.RawMessage is stored as-is.
type Fetcher func(ctx context.Context) (any, error)

// Snapshot is the captured state of one entry.
type Snapshot struct {
	Key     Key
	Raw     json.RawMessage
	Existed bool
}

// State is a point-in-time view of one entry.
type State struct {
	Data      json.RawMessage
	HasData   bool
	Fetching  bool
	Stale     bool
	Err       error
	UpdatedAt time.Time
}

type call struct {
	done   chan struct{}
	data   json.RawMessage
	err    error
	gen    uint64
	cancel context.CancelFunc
}

type entry struct {
	key        Key
	hash       string
	parts      []string
	data       json.RawMessage
	hasData    bool
	updatedAt  time.Time
	accessedAt time.Time
	stale      bool
	err        error
	gen        uint64
	inflight   *call
	fetcher    Fetcher
}

// Client is a concurrency-safe query cache.
type Client struct {
	mu           sync.Mutex
	entries      map[string]*entry
	staleTime    time.Duration
	gcTime       time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	logger       logging.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithStaleTime makes data older than d stale. Zero keeps data fresh until
// it is invalidated.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) { c.staleTime = d }
}

// WithGCTime sets how long an idle entry survives [Client.Prune].
func WithGCTime(d time.Duration) Option {
	return func(c *Client) { c.gcTime = d }
}

// WithFetchTimeout bounds one fetch. Fetches are detached from the caller
// that started them, so this is their only deadline.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithLogger sets the logger for refetch failures.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns an empty cache. Callers share one Client per process
// and pass it where it is needed.
func NewClient(opts ...Option) *Client {
	c := &Client{
		entries:      make(map[string]*entry),
		gcTime:       defaultGCTime,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
		logger:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached value for key, fetching it with fn when the entry
// is missing or stale. Concurrent fetches of one key share a single call.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var fetcher Fetcher
	if fn != nil {
		fetcher = func(ctx context.Context) (any, error) { return fn(ctx) }
	}
	raw, err := c.FetchRaw(ctx, key, fetcher)
	if err != nil {
		return zero, err
	}
	return decode[T](raw)
}

// Get decodes the cached value for key without fetching.
func Get[T any](c *Client, key Key) (T, bool, error) {
	var zero T
	raw, ok := c.GetRaw(key)
	if !ok {
		return zero, false, nil
	}
	v, err := decode[T](raw)
	if err != nil {
		return zero, true, err
	}
	return v, true, nil
}

// Refetch fetches key with fn regardless of freshness, superseding a fetch
// already in flight, and registers fn for later invalidations. Cached data
// is kept when the fetch fails.
func Refetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, fmt.Errorf("%w: %s", ErrNoFetcher, key)
	}
	c.mu.Lock()
	e := c.entryLocked(key)
	e.fetcher = func(ctx context.Context) (any, error) { return fn(ctx) }
	e.accessedAt = c.now()
	cl := c.startLocked(ctx, e)
	c.mu.Unlock()

	raw, err := wait(ctx, cl)
	if err != nil {
		return zero, err
	}
	return decode[T](raw)
}

// FetchRaw is [Fetch] without decoding. A nil fetch reuses the fetcher
// registered by an earlier call.
func (c *Client) FetchRaw(ctx context.Context, key Key, fetch Fetcher) (json.RawMessage, error) {
	var (
		data json.RawMessage
		err  error
	)
	for attempt := 0; attempt < maxFetchJoins; attempt++ {
		data, err = c.fetchOnce(ctx, key, fetch)
		if !errors.Is(err, ErrCancelled) || ctx.Err() != nil {
			return data, err
		}
	}
	return data, err
}

func (c *Client) fetchOnce(ctx context.Context, key Key, fetch Fetcher) (json.RawMessage, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	if fetch != nil {
		e.fetcher = fetch
	}
	e.accessedAt = c.now()
	if e.hasData && !c.isStaleLocked(e) {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	cl := e.inflight
	if cl == nil {
		if e.fetcher == nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrNoFetcher, key)
		}
		cl = c.startLocked(ctx, e)
	}
	c.mu.Unlock()

	return wait(ctx, cl)
}

func wait(ctx context.Context, cl *call) (json.RawMessage, error) {
	select {
	case <-cl.done:
		return cl.data, cl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// startLocked supersedes any in-flight call on e and starts a new one.
// Other callers may join the call, so it keeps ctx's values but not its
// cancellation; callers stop waiting in [wait] instead.
func (c *Client) startLocked(ctx context.Context, e *entry) *call {
	if e.inflight != nil {
		e.inflight.cancel()
	}
	e.gen++
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	cl := &call{done: make(chan struct{}), gen: e.gen, cancel: cancel}
	e.inflight = cl
	go c.run(fetchCtx, e, cl, e.fetcher)
	return cl
}

func (c *Client) run(ctx context.Context, e *entry, cl *call, fetch Fetcher) {
	defer cl.cancel()

	v, err := fetch(ctx)
	var data json.RawMessage
	if err == nil {
		data, err = encode(v)
	}

	c.mu.Lock()
	current := c.entries[e.hash] == e && e.gen == cl.gen
	switch {
	case !current:
		data, err = nil, ErrCancelled
	case err != nil:
		e.inflight = nil
		e.err = err
	default:
		e.inflight = nil
		e.data = data
		e.hasData = true
		e.stale = false
		e.err = nil
		e.updatedAt = c.now()
	}
	c.mu.Unlock()

	cl.data, cl.err = data, err
	close(cl.done)
}

// Invalidate marks every entry under prefix stale and refetches those with a
// registered fetcher, cancelling fetches already in flight. It waits for the
// refetches and returns their joined errors; data is kept on failure.
func (c *Client) Invalidate(ctx context.Context, prefix Key) error {
	pp := prefix.parts()

	c.mu.Lock()
	var (
		calls []*call
		keys  []Key
	)
	for _, e := range c.sortedLocked() {
		if !hasPrefix(e.parts, pp) {
			continue
		}
		e.stale = true
		if e.fetcher == nil {
			continue
		}
		calls = append(calls, c.startLocked(ctx, e))
		keys = append(keys, e.key)
	}
	c.mu.Unlock()

	var errs []error
	for i, cl := range calls {
		if _, err := wait(ctx, cl); err != nil {
			c.logger.Warn(ctx, "query refetch failed", "key", keys[i].String(), "error", err)
			errs = append(errs, fmt.Errorf("refetch %s: %w", keys[i], err))
		}
	}
	return errors.Join(errs...)
}

// CancelQueries cancels in-flight fetches under prefix. Their results are
// discarded.
func (c *Client) CancelQueries(prefix Key) {
	c.mu.Lock()
	c.cancelLocked(prefix.parts())
	c.mu.Unlock()
}

func (c *Client) cancelLocked(pp []string) {
	for _, e := range c.entries {
		if e.inflight == nil || !hasPrefix(e.parts, pp) {
			continue
		}
		e.inflight.cancel()
		e.inflight = nil
		e.gen++
	}
}

// Snapshot captures every entry under prefix that holds data, ordered by key.
func (c *Client) Snapshot(prefix Key) []Snapshot {
	pp := prefix.parts()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Snapshot
	for _, e := range c.sortedLocked() {
		if e.hasData && hasPrefix(e.parts, pp) {
			out = append(out, snapshotOf(e))
		}
	}
	return out
}

// Restore writes snapshots back in order. An entry captured without data is
// emptied.
func (c *Client) Restore(snaps []Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for _, s := range snaps {
		e := c.entryLocked(s.Key)
		if !s.Existed {
			e.data = nil
			e.hasData = false
			continue
		}
		e.data = append(json.RawMessage(nil), s.Raw...)
		e.hasData = true
		e.updatedAt = now
	}
}

// Patch cancels in-flight fetches under prefix, captures every matching
// entry with data, and replaces each with fn(old). Either every entry is
// patched or, when fn fails, none is.
func (c *Client) Patch(prefix Key, fn func(json.RawMessage) (json.RawMessage, error)) ([]Snapshot, error) {
	pp := prefix.parts()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked(pp)

	var (
		snaps   []Snapshot
		targets []*entry
		next    []json.RawMessage
	)
	for _, e := range c.sortedLocked() {
		if !e.hasData || !hasPrefix(e.parts, pp) {
			continue
		}
		patched, err := fn(append(json.RawMessage(nil), e.data...))
		if err != nil {
			return nil, fmt.Errorf("patch %s: %w", e.key, err)
		}
		snaps = append(snaps, snapshotOf(e))
		targets = append(targets, e)
		next = append(next, patched)
	}

	now := c.now()
	for i, e := range targets {
		e.data = next[i]
		e.stale = false
		e.updatedAt = now
	}
	return snaps, nil
}

// Set stores v under key, replacing any value and marking it fresh.
func (c *Client) Set(key Key, v any) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	c.SetRaw(key, data)
	return nil
}

// SetRaw is [Client.Set] for bytes that are already JSON.
func (c *Client) SetRaw(key Key, data json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	now := c.now()
	e.data = append(json.RawMessage(nil), data...)
	e.hasData = true
	e.stale = false
	e.err = nil
	e.updatedAt = now
	e.accessedAt = now
}

// GetRaw returns the cached bytes for key.
func (c *Client) GetRaw(key Key) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.Hash()]
	if !ok || !e.hasData {
		return nil, false
	}
	return e.data, true
}

// Peek reports the state of key without touching it.
func (c *Client) Peek(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.Hash()]
	if !ok {
		return State{}
	}
	return State{
		Data:      e.data,
		HasData:   e.hasData,
		Fetching:  e.inflight != nil,
		Stale:     c.isStaleLocked(e),
		Err:       e.err,
		UpdatedAt: e.updatedAt,
	}
}

// Remove evicts every entry under prefix, cancelling their fetches, and
// returns how many were removed.
func (c *Client) Remove(prefix Key) int {
	pp := prefix.parts()
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for hash, e := range c.entries {
		if !hasPrefix(e.parts, pp) {
			continue
		}
		if e.inflight != nil {
			e.inflight.cancel()
		}
		delete(c.entries, hash)
		n++
	}
	return n
}

// Prune evicts idle entries not accessed within the GC time.
func (c *Client) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.gcTime)
	n := 0
	for hash, e := range c.entries {
		if e.inflight == nil && e.accessedAt.Before(cutoff) {
			delete(c.entries, hash)
			n++
		}
	}
	return n
}

// Keys lists the keys under prefix, ordered by hash.
func (c *Client) Keys(prefix Key) []Key {
	pp := prefix.parts()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Key
	for _, e := range c.sortedLocked() {
		if hasPrefix(e.parts, pp) {
			out = append(out, e.key)
		}
	}
	return out
}

// Len reports the number of entries, with or without data.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Client) entryLocked(key Key) *entry {
	parts := key.parts()
	hash := joinParts(parts)
	e, ok := c.entries[hash]
	if !ok {
		e = &entry{
			key:        append(Key(nil), key...),
			hash:       hash,
			parts:      parts,
			accessedAt: c.now(),
		}
		c.entries[hash] = e
	}
	return e
}

func (c *Client) isStaleLocked(e *entry) bool {
	if e.stale {
		return true
	}
	return c.staleTime > 0 && c.now().Sub(e.updatedAt) >= c.staleTime
}

func (c *Client) sortedLocked() []*entry {
	out := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].hash < out[j].hash })
	return out
}

func snapshotOf(e *entry) Snapshot {
	return Snapshot{
		Key:     e.key,
		Raw:     append(json.RawMessage(nil), e.data...),
		Existed: e.hasData,
	}
}

func encode(v any) (json.RawMessage, error) {
	switch t := v.(type) {
	case json.RawMessage:
		return append(json.RawMessage(nil), t...), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode query value: %w", err)
	}
	return data, nil
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode query value: %w", err)
	}
	return v, nil
}
