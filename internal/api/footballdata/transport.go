package footballdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/footcast/internal/gateway"
	phttp "github.com/Alias1177/footcast/internal/platform/http"
)

// DefaultBaseURL is the football-data.org v4 API root
const DefaultBaseURL = "https://api.football-data.org/v4"

// TransportOptions holds options for creating an HTTPTransport
type TransportOptions struct {
	APIKey         string
	BaseURL        string
	RequestTimeout time.Duration
	RequestsPerMin int
}

// HTTPTransport performs single provider calls for the gateway.
// It never retries; rate-limit rejections surface as *gateway.RateLimitError.
type HTTPTransport struct {
	httpClient *phttp.Client
	apiKey     string
	baseURL    string
	logger     zerolog.Logger
}

// NewHTTPTransport creates a transport with a hard per-minute ceiling under the gateway's pacing
func NewHTTPTransport(opts TransportOptions) *HTTPTransport {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestsPerMin == 0 {
		opts.RequestsPerMin = 10
	}
	return &HTTPTransport{
		httpClient: phttp.NewClient(phttp.ClientOptions{
			Timeout:        opts.RequestTimeout,
			RequestsPerMin: opts.RequestsPerMin,
		}),
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		logger:  log.With().Str("component", "footballdata_transport").Logger(),
	}
}

// Do implements gateway.Transport
func (t *HTTPTransport) Do(ctx context.Context, req gateway.Request) ([]byte, error) {
	endpoint, err := t.endpoint(req)
	if err != nil {
		return nil, err
	}

	t.logger.Debug().Str("url", endpoint).Msg("Calling provider")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if t.apiKey != "" {
		httpReq.Header.Set("X-Auth-Token", t.apiKey)
	}

	resp, err := t.httpClient.Do(ctx, httpReq)
	if err != nil {
		var statusErr *phttp.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
			return nil, &gateway.RateLimitError{
				RetryAfter: retryAfter(statusErr.Header, apiMessage(statusErr.Body)),
				Message:    apiMessage(statusErr.Body),
			}
		}
		return nil, fmt.Errorf("%s request: %w", req.Action, err)
	}

	if rl := bodyRateLimit(resp.Header, resp.Body); rl != nil {
		return nil, rl
	}
	return resp.Body, nil
}

func (t *HTTPTransport) endpoint(req gateway.Request) (string, error) {
	q := url.Values{}
	var path string

	switch req.Action {
	case gateway.ActionLive:
		path = "/matches"
		q.Set("status", "LIVE")
		if req.Competition != "" {
			q.Set("competitions", req.Competition)
		}
	case gateway.ActionMatches:
		if req.Competition == "" {
			return "", fmt.Errorf("matches request needs a competition")
		}
		path = "/competitions/" + url.PathEscape(req.Competition) + "/matches"
		setIf(q, "dateFrom", req.DateFrom)
		setIf(q, "dateTo", req.DateTo)
		setIf(q, "status", req.Status)
	case gateway.ActionStandings:
		if req.Competition == "" {
			return "", fmt.Errorf("standings request needs a competition")
		}
		path = "/competitions/" + url.PathEscape(req.Competition) + "/standings"
	case gateway.ActionHead2Head:
		if req.MatchID == 0 {
			return "", fmt.Errorf("head2head request needs a match id")
		}
		path = fmt.Sprintf("/matches/%d/head2head", req.MatchID)
		if req.Limit > 0 {
			q.Set("limit", strconv.Itoa(req.Limit))
		}
	case gateway.ActionTeamMatches:
		if req.TeamID == 0 {
			return "", fmt.Errorf("team matches request needs a team id")
		}
		path = fmt.Sprintf("/teams/%d/matches", req.TeamID)
		setIf(q, "status", req.Status)
		setIf(q, "dateFrom", req.DateFrom)
		setIf(q, "dateTo", req.DateTo)
		if req.Limit > 0 {
			q.Set("limit", strconv.Itoa(req.Limit))
		}
	default:
		return "", fmt.Errorf("unsupported action %q", req.Action)
	}

	endpoint := t.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	return endpoint, nil
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

type apiError struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
}

// bodyRateLimit detects a rate-limit rejection delivered inside a successful response
func bodyRateLimit(h http.Header, body []byte) *gateway.RateLimitError {
	if !bytes.Contains(body, []byte("errorCode")) {
		return nil
	}
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil || e.ErrorCode != http.StatusTooManyRequests {
		return nil
	}
	return &gateway.RateLimitError{RetryAfter: retryAfter(h, e.Message), Message: e.Message}
}

func apiMessage(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}

var waitSeconds = regexp.MustCompile(`(?i)wait\s+(\d+)\s*sec`)

// retryAfter reads the provider hint from headers or the message text; zero means no hint
func retryAfter(h http.Header, message string) time.Duration {
	for _, name := range []string{"Retry-After", "X-RequestCounter-Reset"} {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	if m := waitSeconds.FindStringSubmatch(message); m != nil {
		if secs, err := strconv.Atoi(m[1]); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
