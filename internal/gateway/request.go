package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Action is the kind of provider query
type Action string

const (
	ActionLive        Action = "live"
	ActionMatches     Action = "matches"
	ActionStandings   Action = "standings"
	ActionHead2Head   Action = "head2head"
	ActionTeamMatches Action = "team_matches"
)

// Request describes one provider query. Unused parameters stay zero.
type Request struct {
	Action      Action `json:"action"`
	Competition string `json:"competition,omitempty"`
	DateFrom    string `json:"date_from,omitempty"`
	DateTo      string `json:"date_to,omitempty"`
	Status      string `json:"status,omitempty"`
	MatchID     int64  `json:"match_id,omitempty"`
	TeamID      int64  `json:"team_id,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// Key is the cache key of the request: its serialized payload
func (r Request) Key() string {
	b, err := json.Marshal(r)
	if err != nil {
		// Request only holds strings and integers
		return fmt.Sprintf("%+v", r)
	}
	return string(b)
}

// Transport performs a single provider call
type Transport interface {
	Do(ctx context.Context, req Request) ([]byte, error)
}

// TransportFunc adapts a function to Transport
type TransportFunc func(ctx context.Context, req Request) ([]byte, error)

// Do calls f
func (f TransportFunc) Do(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// Config tunes pacing, retries and freshness
type Config struct {
	MinInterval       time.Duration            // between the end of one call and the start of the next
	MaxRetries        int                      // rate-limit retries per request
	DefaultRetryAfter time.Duration            // used when the provider gives no hint
	RetryJitter       time.Duration            // added to every rate-limit sleep
	TTL               map[Action]time.Duration // freshness per action, missing actions are never fresh
}

// DefaultTTL returns the per-action freshness windows
func DefaultTTL() map[Action]time.Duration {
	return map[Action]time.Duration{
		ActionLive:        30 * time.Second,
		ActionMatches:     5 * time.Minute,
		ActionHead2Head:   6 * time.Hour,
		ActionStandings:   time.Hour,
		ActionTeamMatches: 30 * time.Minute,
	}
}

// DefaultConfig returns settings sized for a 10 requests/minute provider
func DefaultConfig() Config {
	return Config{
		MinInterval:       7 * time.Second,
		MaxRetries:        2,
		DefaultRetryAfter: 10 * time.Second,
		RetryJitter:       500 * time.Millisecond,
		TTL:               DefaultTTL(),
	}
}
