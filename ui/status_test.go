package ui

import (
	"strings"
	"testing"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/dub/quality"
)

// TestCompactStatus tests the one line status.
func TestCompactStatus(t *testing.T) {
	if s := (SyncStatus{}).CompactStatus(80); s != "" {
		t.Errorf("Expected empty status with no lines, got %q", s)
	}

	s := SyncStatus{Done: 3, Total: 10, State: dub.StateMeasuring, Failed: 2, Line: "مرحبا بكم"}
	out := s.CompactStatus(80)
	for _, want := range []string{"⟳", "3/10", "2 failed", "مرحبا"} {
		if !strings.Contains(out, want) {
			t.Errorf("Status %q missing %q", out, want)
		}
	}
}

// TestCompactStatusTruncates tests that long lines are cut to width.
func TestCompactStatusTruncates(t *testing.T) {
	s := SyncStatus{Done: 1, Total: 2, Line: strings.Repeat("word ", 40)}
	out := s.CompactStatus(40)
	if !strings.Contains(out, "…") {
		t.Errorf("Expected truncated line, got %q", out)
	}
}

// TestStatusIcons tests that every status has an icon.
func TestStatusIcons(t *testing.T) {
	seen := map[quality.Status]string{}
	for s := quality.Perfect; s <= quality.VeryPoor; s++ {
		icon, _ := StatusIcon(s)
		if icon == "" {
			t.Errorf("Status %s has no icon", s)
		}
		seen[s] = icon
		if !strings.Contains(RenderStatus(s), s.String()) {
			t.Errorf("Rendered status missing name %s", s)
		}
	}
	if seen[quality.Poor] != seen[quality.VeryPoor] {
		t.Error("Poor statuses should share an icon")
	}
}

// TestProgressBar tests the text progress bar.
func TestProgressBar(t *testing.T) {
	tests := []struct {
		fraction float64
		width    int
		want     string
	}{
		{0, 6, "[░░░░]"},
		{0.5, 6, "[██░░]"},
		{1, 6, "[████]"},
		{2, 6, "[████]"},
		{0.5, 2, ""},
	}
	for _, tt := range tests {
		if got := ProgressBar(tt.fraction, tt.width); got != tt.want {
			t.Errorf("ProgressBar(%v, %d) = %q, want %q", tt.fraction, tt.width, got, tt.want)
		}
	}
}

// TestValidateStyle tests style validation.
func TestValidateStyle(t *testing.T) {
	for _, style := range []string{"auto", "dark", "light", "notty"} {
		if err := ValidateStyle(style); err != nil {
			t.Errorf("Style %s should be valid: %v", style, err)
		}
	}
	if err := ValidateStyle("/does/not/exist.json"); err == nil {
		t.Error("Missing style file should be invalid")
	}
}

// TestRenderMarkdown tests report rendering.
func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("# Sync quality report\n\nAll good.", Config{GlamourStyle: "notty", Width: 60})
	if err != nil {
		t.Fatalf("RenderMarkdown failed: %v", err)
	}
	if !strings.Contains(out, "Sync quality report") || !strings.Contains(out, "All good.") {
		t.Errorf("Unexpected render:\n%s", out)
	}
}
