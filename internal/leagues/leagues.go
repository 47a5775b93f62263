// Package leagues is the fixed set of supported competitions and their reference data.
package leagues

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Alias1177/footcast/internal/teamname"
)

// ErrUnknownLeague is returned for league names with no competition mapping
var ErrUnknownLeague = errors.New("unknown league")

//go:embed leagues.yaml
var defaultData []byte

// Competition is one supported provider competition
type Competition struct {
	Code      string     `yaml:"code"`
	Name      string     `yaml:"name"`
	Aliases   []string   `yaml:"aliases"`
	Teams     int        `yaml:"teams"`
	Matchdays int        `yaml:"matchdays"`
	AvgGoals  float64    `yaml:"avg_goals"` // per team per game
	Rivalries [][]string `yaml:"rivalries"`
}

type file struct {
	Competitions []Competition `yaml:"competitions"`
}

// Registry resolves league names to competitions. It is read-only after construction.
type Registry struct {
	byCode  map[string]*Competition
	byAlias map[string]*Competition
}

// Default returns the registry built from the embedded reference data
func Default() *Registry {
	r, err := Parse(defaultData)
	if err != nil {
		panic(fmt.Sprintf("embedded leagues.yaml: %v", err))
	}
	return r
}

// Parse builds a registry from YAML
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing leagues: %w", err)
	}

	r := &Registry{
		byCode:  make(map[string]*Competition),
		byAlias: make(map[string]*Competition),
	}
	for i := range f.Competitions {
		c := &f.Competitions[i]
		if c.Code == "" {
			return nil, fmt.Errorf("competition %d has no code", i)
		}
		if _, dup := r.byCode[c.Code]; dup {
			return nil, fmt.Errorf("duplicate competition %s", c.Code)
		}
		for _, pair := range c.Rivalries {
			if len(pair) != 2 {
				return nil, fmt.Errorf("%s: rivalry %v must name two clubs", c.Code, pair)
			}
		}
		r.byCode[c.Code] = c
		for _, name := range append([]string{c.Code, c.Name}, c.Aliases...) {
			key := teamname.Normalize(name)
			if key == "" {
				continue
			}
			if other, dup := r.byAlias[key]; dup && other != c {
				return nil, fmt.Errorf("alias %q maps to both %s and %s", name, other.Code, c.Code)
			}
			r.byAlias[key] = c
		}
	}
	return r, nil
}

// Resolve maps a code, name or alias to its competition
func (r *Registry) Resolve(name string) (Competition, error) {
	if c, ok := r.byCode[name]; ok {
		return *c, nil
	}
	if c, ok := r.byAlias[teamname.Normalize(name)]; ok {
		return *c, nil
	}
	return Competition{}, fmt.Errorf("%w: %q", ErrUnknownLeague, name)
}

// Codes lists the supported competition codes in sorted order
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.byCode))
	for code := range r.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// IsRivalry reports whether home and away form a listed rivalry in competition code, in either order
func (r *Registry) IsRivalry(code, home, away string) bool {
	c, ok := r.byCode[code]
	if !ok {
		return false
	}
	for _, pair := range c.Rivalries {
		if (sameClub(home, pair[0]) && sameClub(away, pair[1])) ||
			(sameClub(home, pair[1]) && sameClub(away, pair[0])) {
			return true
		}
	}
	return false
}

// first-word matches are too loose for rivalries
func sameClub(a, b string) bool {
	return teamname.Compare(a, b) >= teamname.Containment
}
