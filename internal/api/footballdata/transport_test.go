package footballdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/footcast/internal/gateway"
)

func testTransport(t *testing.T, handler http.HandlerFunc) *HTTPTransport {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPTransport(TransportOptions{
		APIKey:         "secret",
		BaseURL:        srv.URL,
		RequestTimeout: 5 * time.Second,
		RequestsPerMin: 60000,
	})
}

func TestTransportBuildsProviderPaths(t *testing.T) {
	tests := []struct {
		name string
		req  gateway.Request
		want string
	}{
		{
			name: "standings",
			req:  gateway.Request{Action: gateway.ActionStandings, Competition: "PL"},
			want: "/competitions/PL/standings",
		},
		{
			name: "finished matches",
			req:  gateway.Request{Action: gateway.ActionMatches, Competition: "SA", DateFrom: "2025-02-15", DateTo: "2025-03-01", Status: "FINISHED"},
			want: "/competitions/SA/matches?dateFrom=2025-02-15&dateTo=2025-03-01&status=FINISHED",
		},
		{
			name: "head to head",
			req:  gateway.Request{Action: gateway.ActionHead2Head, MatchID: 42, Limit: 10},
			want: "/matches/42/head2head?limit=10",
		},
		{
			name: "team matches",
			req:  gateway.Request{Action: gateway.ActionTeamMatches, TeamID: 57, Status: "FINISHED", Limit: 5},
			want: "/teams/57/matches?limit=5&status=FINISHED",
		},
		{
			name: "live",
			req:  gateway.Request{Action: gateway.ActionLive},
			want: "/matches?status=LIVE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got, token string
			tr := testTransport(t, func(w http.ResponseWriter, r *http.Request) {
				got = r.URL.RequestURI()
				token = r.Header.Get("X-Auth-Token")
				_, _ = w.Write([]byte(`{"matches":[]}`))
			})
			_, err := tr.Do(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "secret", token)
		})
	}
}

func TestTransportRateLimits(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    time.Duration
	}{
		{
			name: "429 with Retry-After",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "23")
				w.WriteHeader(http.StatusTooManyRequests)
			},
			want: 23 * time.Second,
		},
		{
			name: "429 with counter reset",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-RequestCounter-Reset", "41")
				w.WriteHeader(http.StatusTooManyRequests)
			},
			want: 41 * time.Second,
		},
		{
			name: "error code in body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"message":"You reached your request limit. Wait 12 seconds.","errorCode":429}`))
			},
			want: 12 * time.Second,
		},
		{
			name: "no hint",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := testTransport(t, tt.handler)
			_, err := tr.Do(context.Background(), gateway.Request{Action: gateway.ActionStandings, Competition: "PL"})
			rl, ok := gateway.AsRateLimit(err)
			require.True(t, ok, "want rate limit error, got %v", err)
			assert.Equal(t, tt.want, rl.RetryAfter)
		})
	}
}

func TestTransportOtherErrors(t *testing.T) {
	calls := 0
	tr := testTransport(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := tr.Do(context.Background(), gateway.Request{Action: gateway.ActionStandings, Competition: "PL"})
	require.Error(t, err)
	_, isRateLimit := gateway.AsRateLimit(err)
	assert.False(t, isRateLimit)
	assert.Equal(t, 1, calls, "transport must not retry on its own")
}

func TestTransportRejectsIncompleteRequests(t *testing.T) {
	tr := testTransport(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called")
	})
	for _, req := range []gateway.Request{
		{Action: gateway.ActionStandings},
		{Action: gateway.ActionHead2Head},
		{Action: gateway.Action("odds")},
	} {
		_, err := tr.Do(context.Background(), req)
		assert.Error(t, err, "action %s", req.Action)
	}
}
