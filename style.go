package main

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	keywordStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Background(lipgloss.Color("235"))
	paragraphStyle = lipgloss.NewStyle().Width(78).Padding(0, 0, 0, 2)
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8800"))
)

func keyword(s string) string {
	return keywordStyle.Render(s)
}

func paragraph(s string) string {
	return paragraphStyle.Render(s)
}
