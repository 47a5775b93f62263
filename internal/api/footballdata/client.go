package footballdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/footcast/internal/gateway"
	"github.com/Alias1177/footcast/models"
)

// Match statuses used in queries
const (
	StatusFinished  = "FINISHED"
	StatusScheduled = "SCHEDULED,TIMED"
)

// Requester is the gateway as seen by the client
type Requester interface {
	Request(ctx context.Context, req gateway.Request) ([]byte, error)
}

// Client decodes provider responses into domain types. All reads go through the gateway.
type Client struct {
	gw     Requester
	logger zerolog.Logger
}

// NewClient creates a client reading through gw
func NewClient(gw Requester) *Client {
	return &Client{
		gw:     gw,
		logger: log.With().Str("component", "footballdata_client").Logger(),
	}
}

type teamRef struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
}

type goals struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

type matchDTO struct {
	ID       int64     `json:"id"`
	UTCDate  time.Time `json:"utcDate"`
	Status   string    `json:"status"`
	Matchday int       `json:"matchday"`
	HomeTeam teamRef   `json:"homeTeam"`
	AwayTeam teamRef   `json:"awayTeam"`
	Score    struct {
		FullTime goals `json:"fullTime"`
		HalfTime goals `json:"halfTime"`
	} `json:"score"`
}

type matchesResponse struct {
	Matches []matchDTO `json:"matches"`
}

type tableRow struct {
	Position     int     `json:"position"`
	Team         teamRef `json:"team"`
	PlayedGames  int     `json:"playedGames"`
	Form         *string `json:"form"`
	Points       int     `json:"points"`
	GoalsFor     int     `json:"goalsFor"`
	GoalsAgainst int     `json:"goalsAgainst"`
}

type standingsResponse struct {
	Competition struct {
		Code string `json:"code"`
	} `json:"competition"`
	Season struct {
		CurrentMatchday int `json:"currentMatchday"`
	} `json:"season"`
	Standings []struct {
		Type  string     `json:"type"`
		Group *string    `json:"group"`
		Table []tableRow `json:"table"`
	} `json:"standings"`
}

// Standings is a league table at fetch time
type Standings struct {
	Competition string
	Matchday    int
	Teams       []models.TeamSnapshot
}

// Standings fetches the overall table of a competition. Group tables are merged.
func (c *Client) Standings(ctx context.Context, code string) (*Standings, error) {
	body, err := c.gw.Request(ctx, gateway.Request{Action: gateway.ActionStandings, Competition: code})
	if err != nil {
		return nil, fmt.Errorf("fetching standings for %s: %w", code, err)
	}

	var resp standingsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding standings for %s: %w", code, err)
	}

	fetched := time.Now()
	out := &Standings{Competition: code, Matchday: resp.Season.CurrentMatchday}
	for _, st := range resp.Standings {
		if st.Type != "" && st.Type != "TOTAL" {
			continue
		}
		for _, row := range st.Table {
			form := ""
			if row.Form != nil {
				form = NormalizeForm(*row.Form)
			}
			out.Teams = append(out.Teams, models.TeamSnapshot{
				TeamID:       row.Team.ID,
				Name:         row.Team.Name,
				ShortName:    row.Team.ShortName,
				Position:     row.Position,
				Points:       row.Points,
				GoalsFor:     row.GoalsFor,
				GoalsAgainst: row.GoalsAgainst,
				PlayedGames:  row.PlayedGames,
				Form:         form,
				FetchedAt:    fetched,
			})
		}
	}
	if len(out.Teams) == 0 {
		return nil, fmt.Errorf("standings for %s: empty table", code)
	}
	return out, nil
}

// Matches fetches a competition's matches in [from, to] with the given status filter
func (c *Client) Matches(ctx context.Context, code string, from, to time.Time, status string) ([]models.FinishedMatch, error) {
	return c.matches(ctx, gateway.Request{
		Action:      gateway.ActionMatches,
		Competition: code,
		DateFrom:    models.FormatDate(from),
		DateTo:      models.FormatDate(to),
		Status:      status,
	})
}

// FinishedMatches fetches completed matches of a competition in [from, to]
func (c *Client) FinishedMatches(ctx context.Context, code string, from, to time.Time) ([]models.FinishedMatch, error) {
	return c.Matches(ctx, code, from, to, StatusFinished)
}

// Head2Head fetches previous meetings of the two teams playing matchID
func (c *Client) Head2Head(ctx context.Context, matchID int64, limit int) ([]models.FinishedMatch, error) {
	return c.matches(ctx, gateway.Request{Action: gateway.ActionHead2Head, MatchID: matchID, Limit: limit})
}

// TeamMatches fetches a team's most recent finished matches, most recent first
func (c *Client) TeamMatches(ctx context.Context, teamID int64, limit int) ([]models.FinishedMatch, error) {
	ms, err := c.matches(ctx, gateway.Request{
		Action: gateway.ActionTeamMatches,
		TeamID: teamID,
		Status: StatusFinished,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].UTCDate.After(ms[j].UTCDate) })
	return ms, nil
}

// Live fetches matches in play, optionally restricted to one competition
func (c *Client) Live(ctx context.Context, code string) ([]models.FinishedMatch, error) {
	return c.matches(ctx, gateway.Request{Action: gateway.ActionLive, Competition: code})
}

func (c *Client) matches(ctx context.Context, req gateway.Request) ([]models.FinishedMatch, error) {
	body, err := c.gw.Request(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", req.Action, err)
	}

	var resp matchesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", req.Action, err)
	}

	out := make([]models.FinishedMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		out = append(out, m.toModel())
	}
	c.logger.Debug().Str("action", string(req.Action)).Int("matches", len(out)).Msg("Decoded matches")
	return out, nil
}

func (m matchDTO) toModel() models.FinishedMatch {
	fm := models.FinishedMatch{
		ID:       m.ID,
		UTCDate:  m.UTCDate,
		Status:   m.Status,
		Matchday: m.Matchday,
		HomeTeam: m.HomeTeam.Name,
		AwayTeam: m.AwayTeam.Name,
	}
	if m.Score.FullTime.Home != nil && m.Score.FullTime.Away != nil {
		fm.Score = &models.Score{Home: *m.Score.FullTime.Home, Away: *m.Score.FullTime.Away}
		if m.Score.HalfTime.Home != nil && m.Score.HalfTime.Away != nil {
			fm.Score.HalfTimeHome = m.Score.HalfTime.Home
			fm.Score.HalfTimeAway = m.Score.HalfTime.Away
		}
	}
	return fm
}

// NormalizeForm turns "W,D,L" style form into "WDL", dropping anything else
func NormalizeForm(form string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(form) {
		switch r {
		case 'W', 'D', 'L':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormFromMatches builds a most-recent-first form string for team from its finished matches
func FormFromMatches(team string, matches []models.FinishedMatch, limit int) string {
	var b strings.Builder
	for _, m := range matches {
		if m.Score == nil {
			continue
		}
		if limit > 0 && b.Len() >= limit {
			break
		}
		home := strings.EqualFold(m.HomeTeam, team)
		if !home && !strings.EqualFold(m.AwayTeam, team) {
			continue
		}
		switch outcome := m.Score.Outcome(); {
		case outcome == models.PickDraw:
			b.WriteByte('D')
		case (outcome == models.PickHome) == home:
			b.WriteByte('W')
		default:
			b.WriteByte('L')
		}
	}
	return b.String()
}
