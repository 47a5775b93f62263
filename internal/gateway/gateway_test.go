package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/footcast/internal/clock"
)

type call struct {
	key   string
	start time.Time
	end   time.Time
}

// fakeTransport replays scripted replies per key and records every call
type fakeTransport struct {
	clock    *clock.Fake
	duration time.Duration

	mu      sync.Mutex
	calls   []call
	replies map[string][]error // errors to return before succeeding
	gate    chan struct{}      // when set, the first call blocks until it is closed
	gated   bool
}

func newFakeTransport(c *clock.Fake) *fakeTransport {
	return &fakeTransport{clock: c, duration: time.Second, replies: map[string][]error{}}
}

func (f *fakeTransport) script(req Request, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[req.Key()] = append(f.replies[req.Key()], errs...)
}

func (f *fakeTransport) Do(_ context.Context, req Request) ([]byte, error) {
	f.mu.Lock()
	gate := f.gate
	wait := gate != nil && !f.gated
	f.gated = f.gated || wait
	f.mu.Unlock()
	if wait {
		<-gate
	}

	key := req.Key()
	start := f.clock.Now()
	f.clock.Advance(f.duration)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{key: key, start: start, end: f.clock.Now()})
	if errs := f.replies[key]; len(errs) > 0 {
		err := errs[0]
		f.replies[key] = errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return []byte(fmt.Sprintf("body:%s:%d", req.Competition, len(f.calls))), nil
}

func (f *fakeTransport) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

func testGateway(t *testing.T) (*Gateway, *fakeTransport, *clock.Fake) {
	t.Helper()
	c := clock.NewFake(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	tr := newFakeTransport(c)
	g := New(tr, DefaultConfig(), WithClock(c), WithLogger(zerolog.Nop()))
	return g, tr, c
}

func standings(code string) Request {
	return Request{Action: ActionStandings, Competition: code}
}

func TestRequestCachesWithinTTL(t *testing.T) {
	g, tr, c := testGateway(t)
	ctx := context.Background()

	first, err := g.Request(ctx, standings("PL"))
	require.NoError(t, err)

	c.Advance(30 * time.Minute)
	second, err := g.Request(ctx, standings("PL"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, tr.Calls(), 1, "fresh entry must not reach the network")

	c.Advance(time.Hour)
	_, err = g.Request(ctx, standings("PL"))
	require.NoError(t, err)
	assert.Len(t, tr.Calls(), 2, "expired entry must be refetched")
}

func TestRequestEnforcesMinInterval(t *testing.T) {
	g, tr, _ := testGateway(t)
	ctx := context.Background()

	codes := []string{"PL", "PD", "SA", "BL1", "FL1", "CL"}
	var wg sync.WaitGroup
	for _, code := range codes {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			_, err := g.Request(ctx, standings(code))
			assert.NoError(t, err)
		}(code)
	}
	wg.Wait()

	calls := tr.Calls()
	require.Len(t, calls, len(codes))
	for i := 1; i < len(calls); i++ {
		gap := calls[i].start.Sub(calls[i-1].end)
		assert.GreaterOrEqual(t, gap, 7*time.Second, "gap before call %d", i)
	}
}

func TestRequestRetriesRateLimit(t *testing.T) {
	g, tr, c := testGateway(t)
	req := standings("PL")
	tr.script(req, &RateLimitError{RetryAfter: 3 * time.Second})

	body, err := g.Request(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "body:PL:2", string(body))
	assert.Len(t, tr.Calls(), 2)
	assert.Contains(t, c.Sleeps(), 3500*time.Millisecond)
}

func TestRequestDefaultRetryAfter(t *testing.T) {
	g, tr, c := testGateway(t)
	req := standings("PL")
	tr.script(req, &RateLimitError{})

	_, err := g.Request(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, c.Sleeps(), 10500*time.Millisecond)
}

func TestRequestRetriesExhausted(t *testing.T) {
	tests := []struct {
		name      string
		warmCache bool
		wantErr   bool
	}{
		{name: "no cache fails", warmCache: false, wantErr: true},
		{name: "stale cache served", warmCache: true, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, tr, c := testGateway(t)
			ctx := context.Background()
			req := standings("PL")

			var warm []byte
			if tt.warmCache {
				var err error
				warm, err = g.Request(ctx, req)
				require.NoError(t, err)
				c.Advance(2 * time.Hour)
			}
			before := len(tr.Calls())

			rl := &RateLimitError{RetryAfter: time.Second}
			tr.script(req, rl, rl, rl)

			body, err := g.Request(ctx, req)
			assert.Len(t, tr.Calls(), before+DefaultConfig().MaxRetries+1)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRateLimited)
				assert.Nil(t, body)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, warm, body)
		})
	}
}

func TestRequestOtherErrorsFailFast(t *testing.T) {
	g, tr, _ := testGateway(t)
	ctx := context.Background()
	req := standings("PL")
	boom := errors.New("malformed response")
	tr.script(req, boom)

	_, err := g.Request(ctx, req)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, tr.Calls(), 1)

	// failures are not cached
	_, err = g.Request(ctx, req)
	require.NoError(t, err)
	assert.Len(t, tr.Calls(), 2)
}

func TestRetryGoesToHeadOfQueue(t *testing.T) {
	g, tr, _ := testGateway(t)
	tr.gate = make(chan struct{})
	ctx := context.Background()

	first, second := standings("PL"), standings("PD")
	tr.script(first, &RateLimitError{RetryAfter: time.Second})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := g.Request(ctx, first)
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return g.QueueLen() == 0 && g.isDraining() }, time.Second, time.Millisecond)
	go func() {
		defer wg.Done()
		_, err := g.Request(ctx, second)
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return g.QueueLen() == 1 }, time.Second, time.Millisecond)
	close(tr.gate)
	wg.Wait()

	calls := tr.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, first.Key(), calls[0].key)
	assert.Equal(t, first.Key(), calls[1].key, "retry must run before the newer arrival")
	assert.Equal(t, second.Key(), calls[2].key)
}

func TestIdenticalQueuedRequestsCollapse(t *testing.T) {
	g, tr, _ := testGateway(t)
	tr.gate = make(chan struct{})
	ctx := context.Background()

	blocker, shared := standings("CL"), standings("PL")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := g.Request(ctx, blocker)
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return g.QueueLen() == 0 && g.isDraining() }, time.Second, time.Millisecond)

	bodies := make([][]byte, 3)
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, err := g.Request(ctx, shared)
			assert.NoError(t, err)
			bodies[i] = body
		}(i)
	}
	require.Eventually(t, func() bool { return g.QueueLen() == 3 }, time.Second, time.Millisecond)
	close(tr.gate)
	wg.Wait()

	assert.Len(t, tr.Calls(), 2)
	for _, b := range bodies {
		assert.Equal(t, bodies[0], b)
	}
}

func TestCancelledCallerDoesNotCancelRequest(t *testing.T) {
	g, tr, _ := testGateway(t)
	tr.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := g.Request(ctx, standings("PL"))
		errc <- err
	}()
	require.Eventually(t, func() bool { return g.isDraining() }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(tr.gate)
	require.Eventually(t, func() bool { return !g.isDraining() }, time.Second, time.Millisecond)
	assert.Len(t, tr.Calls(), 1)

	// the abandoned response still landed in the cache
	_, err := g.Request(context.Background(), standings("PL"))
	require.NoError(t, err)
	assert.Len(t, tr.Calls(), 1)
}

func TestUnknownActionIsNeverFresh(t *testing.T) {
	g, tr, _ := testGateway(t)
	ctx := context.Background()
	req := Request{Action: Action("odds")}

	_, err := g.Request(ctx, req)
	require.NoError(t, err)
	_, err = g.Request(ctx, req)
	require.NoError(t, err)
	assert.Len(t, tr.Calls(), 2)
}

func TestRequestKeyDistinguishesParameters(t *testing.T) {
	a := Request{Action: ActionMatches, Competition: "PL", DateFrom: "2025-03-01", DateTo: "2025-03-14"}
	b := a
	b.Status = "FINISHED"
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), Request{Action: ActionMatches, Competition: "PL", DateFrom: "2025-03-01", DateTo: "2025-03-14"}.Key())
}
