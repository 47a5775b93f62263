package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/Alias1177/footcast/models"
)

// ProviderName identifies advice produced by this client
const ProviderName = "openai"

// ClientOptions holds options for creating a new Client
type ClientOptions struct {
	APIKey          string
	Model           string
	BaseURL         string
	RequestTimeout  time.Duration
	MaxRetryTimeout time.Duration
}

// Client wraps the OpenAI API client and acts as the forecast advisor
type Client struct {
	client     *openai.Client
	model      string
	timeout    time.Duration
	maxElapsed time.Duration
	logger     zerolog.Logger
}

// NewClient creates a new OpenAI client
func NewClient(opts ClientOptions) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MaxRetryTimeout == 0 {
		opts.MaxRetryTimeout = 45 * time.Second
	}
	return &Client{
		client:     openai.NewClientWithConfig(cfg),
		model:      opts.Model,
		timeout:    opts.RequestTimeout,
		maxElapsed: opts.MaxRetryTimeout,
		logger:     log.With().Str("component", "openai_client").Logger(),
	}
}

// GenerateCompletion sends a prompt to OpenAI and returns the JSON completion.
// Rate limits, server errors and network failures are retried; other API errors are not.
func (c *Client) GenerateCompletion(ctx context.Context, system, prompt string) (string, error) {
	c.logger.Debug().Str("prompt", prompt).Msg("Sending prompt to OpenAI")

	var content string
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Temperature: 0.2,
		})
		if err != nil {
			if permanent(err) {
				return backoff.Permanent(err)
			}
			c.logger.Warn().Err(err).Msg("OpenAI call failed, retrying")
			return err
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("OpenAI returned empty choices"))
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		c.logger.Error().Err(err).Msg("OpenAI API error")
		return "", err
	}
	return content, nil
}

// permanent reports API errors that retrying cannot fix
func permanent(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests && status != http.StatusRequestTimeout
}

// Advise implements models.Advisor
func (c *Client) Advise(ctx context.Context, req models.AdviceRequest) (*models.Advice, error) {
	content, err := c.GenerateCompletion(ctx, systemPrompt, FormatAdvicePrompt(req))
	if err != nil {
		return nil, fmt.Errorf("advisor completion: %w", err)
	}
	advice, err := ParseAdvice(content)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Int("opinions", len(advice.Opinions)).Msg("Advice received")
	return advice, nil
}

const systemPrompt = `You are a football analyst. You give a second opinion on a statistical match model.
Answer only with JSON of the form
{"predictions":[{"type":"result|total_goals|btts|correct_score|first_half_result","label":"...","confidence":0.0-1.0,"reasoning":"..."}]}`

// FormatAdvicePrompt describes the fixture, the model output and the track record to the advisor
func FormatAdvicePrompt(req models.AdviceRequest) string {
	fv, m := req.Features, req.Model
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("League: %s\n", fv.League))
	sb.WriteString(fmt.Sprintf("%s (home) vs %s (away)\n\n", fv.HomeTeam, fv.AwayTeam))

	sb.WriteString(fmt.Sprintf("Table positions: %d vs %d\n", fv.HomePosition, fv.AwayPosition))
	sb.WriteString(fmt.Sprintf("Form score (0-100): %.0f vs %.0f\n", fv.HomeForm, fv.AwayForm))
	sb.WriteString(fmt.Sprintf("Goals per game for/against: home %.2f/%.2f, away %.2f/%.2f (league %.2f)\n",
		fv.HomeGoalsFor, fv.HomeGoalsAgainst, fv.AwayGoalsFor, fv.AwayGoalsAgainst, fv.LeagueAvgGoals))
	sb.WriteString(fmt.Sprintf("Derby: %t, importance: %s\n", fv.IsDerby, fv.Importance))
	if fv.H2H.Matches > 0 {
		sb.WriteString(fmt.Sprintf("Head to head (%d): %d-%d-%d, goals %d:%d\n",
			fv.H2H.Matches, fv.H2H.HomeWins, fv.H2H.Draws, fv.H2H.AwayWins, fv.H2H.HomeGoals, fv.H2H.AwayGoals))
	}

	sb.WriteString(fmt.Sprintf("\nModel: xG %.2f vs %.2f, 1X2 %.0f%%/%.0f%%/%.0f%%, BTTS %.0f%%\n",
		m.HomeExpectedGoals, m.AwayExpectedGoals, m.HomeWin*100, m.Draw*100, m.AwayWin*100, m.BTTS*100))
	for _, gl := range m.OverUnder {
		sb.WriteString(fmt.Sprintf("Over %.1f: %.0f%%\n", gl.Line, gl.Over*100))
	}
	if len(m.TopScores) > 0 {
		scores := make([]string, 0, len(m.TopScores))
		for _, s := range m.TopScores {
			scores = append(scores, fmt.Sprintf("%s (%.0f%%)", s, s.Probability*100))
		}
		sb.WriteString("Likely scores: " + strings.Join(scores, ", ") + "\n")
	}

	if len(req.Accuracy) > 0 {
		sb.WriteString("\nRecent accuracy of the model by type:\n")
		for _, a := range req.Accuracy {
			sb.WriteString(fmt.Sprintf("- %s: %d/%d (%.0f%%)\n", a.Type, a.Correct, a.Total, a.Rate()*100))
		}
	}

	sb.WriteString("\nGive one opinion per prediction type.")
	return sb.String()
}

type adviceResponse struct {
	Predictions []struct {
		Type       string  `json:"type"`
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	} `json:"predictions"`
}

// ParseAdvice decodes the advisor's JSON. Unknown types are dropped and confidences clamped to [0,1].
func ParseAdvice(content string) (*models.Advice, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var resp adviceResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, fmt.Errorf("decoding advice: %w", err)
	}

	advice := &models.Advice{Provider: ProviderName, Opinions: make(map[models.PredictionType]models.Opinion)}
	for _, p := range resp.Predictions {
		t := models.PredictionType(strings.ToLower(strings.TrimSpace(p.Type)))
		if !t.Valid() {
			continue
		}
		conf := p.Confidence
		if conf > 1 && conf <= 100 {
			// percentages
			conf /= 100
		}
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		advice.Opinions[t] = models.Opinion{Type: t, Label: p.Label, Confidence: conf, Reasoning: p.Reasoning}
	}
	if len(advice.Opinions) == 0 {
		return nil, errors.New("advice has no usable opinions")
	}
	return advice, nil
}
