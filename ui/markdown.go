package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/mitchellh/go-homedir"
)

// ValidateStyle reports whether style names a built-in glamour style or
// an existing style file.
func ValidateStyle(style string) error {
	if style == styles.AutoStyle {
		return nil
	}
	if _, ok := styles.DefaultStyles[style]; ok {
		return nil
	}
	path, err := homedir.Expand(style)
	if err != nil {
		return fmt.Errorf("error expanding style path: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("specified style does not exist: %s", style)
	}
	return nil
}

func styleOption(style string) glamour.TermRendererOption {
	switch {
	case style == "" || style == styles.AutoStyle:
		return glamour.WithAutoStyle()
	case styles.DefaultStyles[style] != nil:
		return glamour.WithStandardStyle(style)
	default:
		path, _ := homedir.Expand(style)
		return glamour.WithStylePath(path)
	}
}

// RenderMarkdown renders a markdown report for the terminal.
func RenderMarkdown(md string, cfg Config) (string, error) {
	width := int(cfg.Width) //nolint:gosec
	if width == 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		styleOption(cfg.GlamourStyle),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return "", fmt.Errorf("unable to create renderer: %w", err)
	}

	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("unable to render markdown: %w", err)
	}
	return out, nil
}
