package config

import "testing"

func TestMatchPatterns(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		value    string
		want     bool
	}{
		{"empty list allows all", nil, "main", true},
		{"regex match", []string{"^main$"}, "main", true},
		{"regex no match", []string{"^main$"}, "main-backup", false},
		{"or logic", []string{"^main$", "^release/"}, "release/1.2", true},
		{"exclude wins over include", []string{".*", "!^dev"}, "dev-spike", false},
		{"exclude only allows rest", []string{"!^v\\d"}, "abc1234", true},
		{"exclude only rejects match", []string{"!^v\\d"}, "v1.2.3", false},
		{"literal fallback on bad regex", []string{"main["}, "main[", true},
		{"no include match", []string{"^release/"}, "main", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchPatterns(tt.patterns, tt.value); got != tt.want {
				t.Errorf("MatchPatterns(%v, %q) = %v, want %v", tt.patterns, tt.value, got, tt.want)
			}
		})
	}
}
