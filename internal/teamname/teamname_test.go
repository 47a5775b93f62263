package teamname

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Manchester United FC", "manchester united"},
		{"  Arsenal   FC ", "arsenal"},
		{"AFC Bournemouth", "bournemouth"},
		{"1. FC Köln", "1 koln"},
		{"Atlético de Madrid", "atletico de madrid"},
		{"Brighton & Hove Albion FC", "brighton hove albion"},
		{"FC", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"suffix stripped", "Manchester United FC", "Manchester United", true},
		{"case and accents", "ATLETICO DE MADRID", "Atlético de Madrid", true},
		{"containment", "Tottenham Hotspur FC", "Tottenham", true},
		{"first word", "Borussia Dortmund", "Borussia Mönchengladbach", true},
		{"short first word", "AS Roma", "AS Monaco", false},
		{"prefix of longer name", "Inter", "FC Internazionale Milano", true},
		{"different clubs", "Arsenal FC", "Chelsea FC", false},
		{"empty", "", "Chelsea", false},
		{"shared first word", "Real Madrid CF", "Real Sociedad", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.a, tt.b); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestBestPrefersStrongerMatch(t *testing.T) {
	candidates := []string{"Manchester City FC", "Manchester United FC", "Newcastle United FC"}

	i, ok := Best("Manchester United", candidates)
	if !ok || i != 1 {
		t.Errorf("Best() = %d, %v, want 1, true", i, ok)
	}

	if _, ok := Best("Leeds United", candidates); ok {
		t.Error("Best() matched a club that is not listed")
	}
}
