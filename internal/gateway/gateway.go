// Package gateway serializes, paces and caches calls to the match-data provider.
//
// At most one provider call is in flight per Gateway. Callers that miss the cache
// are queued and served strictly in order by a single drain goroutine, except that a
// request recovering from a rate-limit rejection goes back to the head of the queue.
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/footcast/internal/clock"
	"github.com/Alias1177/footcast/internal/metrics"
)

type result struct {
	body []byte
	err  error
}

// pending is a queued request waiting for the drain loop
type pending struct {
	req     Request
	key     string
	retries int
	done    chan result
}

func (p *pending) resolve(body []byte, err error) {
	p.done <- result{body: body, err: err}
}

// Gateway is the single entry point to the provider
type Gateway struct {
	transport Transport
	cfg       Config
	store     Store
	clock     clock.Clock
	logger    zerolog.Logger
	metrics   *metrics.Recorder

	mu       sync.Mutex
	queue    *deque
	draining bool

	// owned by the drain goroutine
	lastCallEnd time.Time
}

// Option configures a Gateway
type Option func(*Gateway)

// WithClock replaces the wall clock
func WithClock(c clock.Clock) Option {
	return func(g *Gateway) { g.clock = c }
}

// WithStore replaces the in-memory store
func WithStore(s Store) Option {
	return func(g *Gateway) { g.store = s }
}

// WithLogger replaces the component logger
func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithMetrics records gateway metrics
func WithMetrics(m *metrics.Recorder) Option {
	return func(g *Gateway) { g.metrics = m }
}

// New creates a gateway in front of transport
func New(transport Transport, cfg Config, opts ...Option) *Gateway {
	if cfg.TTL == nil {
		cfg.TTL = DefaultTTL()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	g := &Gateway{
		transport: transport,
		cfg:       cfg,
		store:     NewMemoryStore(),
		clock:     clock.Real{},
		logger:    log.With().Str("component", "gateway").Logger(),
		queue:     newDeque(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Request returns the provider response for req, from cache when fresh.
// Cancelling ctx only abandons the wait; the queued request still runs to completion.
func (g *Gateway) Request(ctx context.Context, req Request) ([]byte, error) {
	key := req.Key()

	if entry, ok := g.lookup(ctx, key); ok && g.fresh(entry, req.Action) {
		g.metrics.RecordGatewayRequest(string(req.Action), metrics.OutcomeHit)
		return entry.Body, nil
	}

	p := &pending{req: req, key: key, done: make(chan result, 1)}

	g.mu.Lock()
	g.queue.PushBack(p)
	g.metrics.SetQueueDepth(g.queue.Len())
	start := !g.draining
	if start {
		g.draining = true
	}
	g.mu.Unlock()

	if start {
		go g.drain()
	}

	select {
	case r := <-p.done:
		return r.body, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// QueueLen returns the number of requests waiting for the provider
func (g *Gateway) QueueLen() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queue.Len()
}

func (g *Gateway) drain() {
	ctx := context.Background()
	for {
		g.mu.Lock()
		p, ok := g.queue.PopFront()
		if !ok {
			g.draining = false
			g.mu.Unlock()
			return
		}
		g.metrics.SetQueueDepth(g.queue.Len())
		g.mu.Unlock()

		g.process(ctx, p)
	}
}

func (g *Gateway) process(ctx context.Context, p *pending) {
	action := string(p.req.Action)
	logger := g.logger.With().Str("action", action).Str("key", p.key).Int("retries", p.retries).Logger()

	// An identical request ahead in the queue may have filled the cache already
	if entry, ok := g.lookup(ctx, p.key); ok && g.fresh(entry, p.req.Action) {
		g.metrics.RecordGatewayRequest(action, metrics.OutcomeHit)
		p.resolve(entry.Body, nil)
		return
	}

	g.waitInterval(ctx)

	started := g.clock.Now()
	body, err := g.transport.Do(ctx, p.req)
	g.lastCallEnd = g.clock.Now()
	g.metrics.RecordCallDuration(action, g.lastCallEnd.Sub(started).Seconds())

	if err == nil {
		if serr := g.store.Set(ctx, p.key, Entry{Body: body, FetchedAt: g.lastCallEnd}); serr != nil {
			logger.Warn().Err(serr).Msg("Failed to cache provider response")
		}
		g.metrics.RecordGatewayRequest(action, metrics.OutcomeNetwork)
		p.resolve(body, nil)
		return
	}

	rl, ok := AsRateLimit(err)
	if !ok {
		logger.Error().Err(err).Msg("Provider call failed")
		g.metrics.RecordGatewayRequest(action, metrics.OutcomeError)
		p.resolve(nil, err)
		return
	}

	if p.retries < g.cfg.MaxRetries {
		wait := rl.RetryAfter
		if wait <= 0 {
			wait = g.cfg.DefaultRetryAfter
		}
		wait += g.cfg.RetryJitter
		logger.Warn().Dur("wait", wait).Msg("Rate limited by provider, retrying")
		_ = g.clock.Sleep(ctx, wait)

		p.retries++
		g.mu.Lock()
		g.queue.PushFront(p)
		g.metrics.SetQueueDepth(g.queue.Len())
		g.mu.Unlock()
		return
	}

	if entry, ok := g.lookup(ctx, p.key); ok {
		logger.Warn().Time("fetched_at", entry.FetchedAt).Msg("Retries exhausted, serving stale response")
		g.metrics.RecordGatewayRequest(action, metrics.OutcomeStale)
		p.resolve(entry.Body, nil)
		return
	}

	logger.Error().Err(err).Msg("Retries exhausted with nothing cached")
	g.metrics.RecordGatewayRequest(action, metrics.OutcomeRateLimited)
	p.resolve(nil, fmt.Errorf("%w: %s", ErrRateLimited, rl.Error()))
}

// waitInterval blocks the drain loop until MinInterval has passed since the last call ended
func (g *Gateway) waitInterval(ctx context.Context) {
	if g.lastCallEnd.IsZero() || g.cfg.MinInterval <= 0 {
		return
	}
	wait := g.lastCallEnd.Add(g.cfg.MinInterval).Sub(g.clock.Now())
	if wait > 0 {
		_ = g.clock.Sleep(ctx, wait)
	}
}

func (g *Gateway) lookup(ctx context.Context, key string) (Entry, bool) {
	entry, ok, err := g.store.Get(ctx, key)
	if err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed, treating as miss")
		return Entry{}, false
	}
	return entry, ok
}

func (g *Gateway) fresh(e Entry, action Action) bool {
	ttl, ok := g.cfg.TTL[action]
	if !ok {
		return false
	}
	return e.FreshAt(g.clock.Now(), ttl)
}

func (g *Gateway) isDraining() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.draining
}
