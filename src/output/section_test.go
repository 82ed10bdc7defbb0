package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Microsecond, "<1ms"},
		{42 * time.Millisecond, "42ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30.0s"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSectionFrame(t *testing.T) {
	var buf bytes.Buffer

	sec := NewSection(&buf, "Build", 2*time.Second, false)
	sec.Field("tool", "maven")
	sec.Separator()
	sec.Row("done")
	sec.Close()

	out := buf.String()
	for _, want := range []string{"── Build ", " 2.0s ──", "│ tool", "maven", "├", "└"} {
		if !strings.Contains(out, want) {
			t.Errorf("section output missing %q:\n%s", want, out)
		}
	}
}

func TestSectionStatusAndTotal(t *testing.T) {
	var buf bytes.Buffer

	sec := NewSection(&buf, "Summary", 0, false)
	sec.Status("build", "success", "maven, app.jar")
	sec.Status("deploy", "skipped", "branch gate")
	sec.Separator()
	sec.Total(90*time.Second, "success")
	sec.Close()

	out := buf.String()
	for _, want := range []string{"build", "✓", "deploy", "⊘", "branch gate", "total", "1m30.0s"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusIcon(t *testing.T) {
	if StatusIcon("success", false) != "✓" {
		t.Error("plain success icon")
	}
	if StatusIcon("failed", false) != "✗" {
		t.Error("plain failed icon")
	}
	if !strings.Contains(StatusIcon("success", true), "\033[32m") {
		t.Error("colored success icon must be green")
	}
}

func TestGroupMarkersOutsideCI(t *testing.T) {
	t.Setenv("GITHUB_ACTIONS", "")
	t.Setenv("GITLAB_CI", "")

	var buf bytes.Buffer
	GroupStart(&buf, "id", "Name")
	GroupEnd(&buf, "id")
	if buf.Len() != 0 {
		t.Errorf("group markers outside CI = %q, want none", buf.String())
	}
}

func TestGroupMarkersGitHub(t *testing.T) {
	t.Setenv("GITHUB_ACTIONS", "true")

	var buf bytes.Buffer
	GroupStart(&buf, "id", "Build")
	GroupEnd(&buf, "id")

	out := buf.String()
	if !strings.Contains(out, "::group::Build") || !strings.Contains(out, "::endgroup::") {
		t.Errorf("output = %q", out)
	}
}
