// Package output renders gantry's human-readable pipeline output. There
// is no logging framework behind it: what the pipeline prints IS its log,
// so every stage speaks the same framed-section vocabulary.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// frameWidth is the inner width of a section frame, between the border
// glyph and the end of the rule.
const frameWidth = 61

const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[90m"
	ansiHeader = "\033[2;36m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
)

// paint wraps s in an ANSI code when color is on.
func paint(code, s string, color bool) string {
	if !color {
		return s
	}
	return code + s + ansiReset
}

func rule(n int) string {
	if n < 1 {
		n = 1
	}
	return strings.Repeat("─", n)
}

// Section is one framed block of stage output: a titled header rule,
// indented body rows, and a closing rule.
type Section struct {
	w     io.Writer
	color bool
}

// NewSection writes the header and returns the open section. A non-zero
// elapsed appears right-aligned in the header rule.
func NewSection(w io.Writer, name string, elapsed time.Duration, color bool) *Section {
	title := fmt.Sprintf("── %s ", name)
	tail := "──"
	if elapsed > 0 {
		tail = fmt.Sprintf(" %s ──", formatElapsed(elapsed))
	}
	line := title + rule(frameWidth+4-len(title)-len(tail)) + tail
	fmt.Fprintf(w, "\n    %s\n", paint(ansiHeader, line, color))
	return &Section{w: w, color: color}
}

// Row writes one printf-formatted body line.
func (s *Section) Row(format string, args ...any) {
	fmt.Fprintf(s.w, "    │ %s\n", fmt.Sprintf(format, args...))
}

// Field writes an aligned key/value body line, the shape most stage
// details take (tool, artifact, tag, ...).
func (s *Section) Field(key string, value any) {
	s.Row("%-16s%v", key, value)
}

// Status writes a stage-result line: name, outcome icon, detail.
func (s *Section) Status(name, status, detail string) {
	s.Row("%-12s%s  %s", name, StatusIcon(status, s.color), detail)
}

// Total writes the closing total line of the run summary.
func (s *Section) Total(elapsed time.Duration, status string) {
	s.Row("%-12s%40s   %s", "total", formatElapsed(elapsed), StatusIcon(status, s.color))
}

// Separator writes a mid-section divider.
func (s *Section) Separator() {
	fmt.Fprintf(s.w, "    ├%s\n", rule(frameWidth))
}

// Close writes the bottom rule.
func (s *Section) Close() {
	fmt.Fprintf(s.w, "    └%s\n", rule(frameWidth))
}

// statusGlyphs maps the three stage outcomes to icon and color. Finding
// severities and anything else unknown get the skipped glyph.
var statusGlyphs = map[string]struct {
	glyph string
	code  string
}{
	"success": {"✓", ansiGreen},
	"failed":  {"✗", ansiRed},
	"skipped": {"⊘", ansiYellow},
}

// StatusIcon returns the icon for a stage outcome.
func StatusIcon(status string, color bool) string {
	g, ok := statusGlyphs[status]
	if !ok {
		g = statusGlyphs["skipped"]
	}
	return paint(g.code, g.glyph, color)
}

// Dimmed renders de-emphasized text.
func Dimmed(text string, color bool) string {
	return paint(ansiDim, text, color)
}

// KV is a key-value pair for the context block.
type KV struct {
	Key   string
	Value string
}

// ContextBlock prints the run context (run ID, commit, branch, version)
// as two key/value columns per line.
func ContextBlock(w io.Writer, kv []KV) {
	if len(kv) == 0 {
		return
	}
	fmt.Fprintln(w)
	for len(kv) > 0 {
		row := kv
		if len(row) > 2 {
			row = row[:2]
		}
		kv = kv[len(row):]

		if len(row) == 2 {
			fmt.Fprintf(w, "    %-12s%-22s%-11s%s\n",
				row[0].Key, row[0].Value, row[1].Key, row[1].Value)
		} else {
			fmt.Fprintf(w, "    %-12s%s\n", row[0].Key, row[0].Value)
		}
	}
}

// formatElapsed renders a duration for header rules and totals.
func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "<1ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	mins := int(d.Minutes())
	return fmt.Sprintf("%dm%.1fs", mins, d.Seconds()-float64(mins*60))
}
