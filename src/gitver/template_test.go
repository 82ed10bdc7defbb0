package gitver

import "testing"

func TestResolveTemplate(t *testing.T) {
	info := &Info{
		SHA:        "abc1234",
		FullSHA:    "abc1234def5678",
		Branch:     "feature/login",
		Version:    "1.4.0",
		Major:      "1",
		Minor:      "4",
		Patch:      "0",
		Prerelease: "rc.1",
	}

	tests := []struct {
		template string
		want     string
	}{
		{"{sha}", "abc1234"},
		{"{sha.full}", "abc1234def5678"},
		{"{branch}", "feature-login"}, // slashes are invalid in image tags
		{"{version}", "1.4.0"},
		{"{major}.{minor}", "1.4"},
		{"{prerelease}", "rc.1"},
		{"v{version}-{sha}", "v1.4.0-abc1234"},
		{"{unknown}", "{unknown}"}, // left visible, not dropped
		{"", ""},
	}

	for _, tt := range tests {
		if got := ResolveTemplate(tt.template, info); got != tt.want {
			t.Errorf("ResolveTemplate(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestResolveTemplateNilInfo(t *testing.T) {
	if got := ResolveTemplate("{sha}", nil); got != "{sha}" {
		t.Errorf("got %q, want template untouched", got)
	}
}
