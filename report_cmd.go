package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/dub/quality"
	"github.com/nashdub/dubsync/dub/subtitle"
	"github.com/nashdub/dubsync/ui"
)

var (
	copyReport bool
	matchQuery string

	reportCmd = &cobra.Command{
		Use:     "report FILE",
		Short:   "Show the sync quality report of a project",
		Long:    paragraph(fmt.Sprintf("\n%s how well every line fits its window.", keyword("Grade"))),
		Example: paragraph("dubsync report episode.yaml\ndubsync report episode.yaml --copy"),
		Args:    cobra.ExactArgs(1),
		RunE:    runReport,
	}

	linesCmd = &cobra.Command{
		Use:     "lines FILE",
		Short:   "List lines with their timing status",
		Example: paragraph("dubsync lines episode.yaml\ndubsync lines episode.yaml --match مرحبا"),
		Args:    cobra.ExactArgs(1),
		RunE:    runLines,
	}
)

func init() {
	reportCmd.Flags().BoolVar(&copyReport, "copy", false, "copy the markdown report to the clipboard")
	linesCmd.Flags().StringVarP(&matchQuery, "match", "m", "", "only show lines fuzzily matching text")
}

func runReport(_ *cobra.Command, args []string) error {
	lines, err := loadLines(args[0])
	if err != nil {
		return err
	}

	a, closeCache, err := newAnalyzer()
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()

	md := newManager(a).QualityReport(lines)
	if copyReport {
		if err := clipboard.WriteAll(md); err != nil {
			return fmt.Errorf("unable to copy report: %w", err)
		}
		fmt.Fprintln(os.Stderr, successStyle.Render("Copied report to clipboard"))
	}

	out, err := ui.RenderMarkdown(md, uiConfig)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, out)
	return nil
}

func runLines(_ *cobra.Command, args []string) error {
	lines, err := loadLines(args[0])
	if err != nil {
		return err
	}

	for _, i := range matchLines(lines, matchQuery) {
		fmt.Fprint(os.Stdout, formatLine(i, lines[i], int(uiConfig.Width))) //nolint:gosec
	}
	return nil
}

// matchLines returns the indexes of lines matching query, best match
// first. An empty query matches every line in order.
func matchLines(lines []dub.Line, query string) []int {
	if query == "" {
		idx := make([]int, len(lines))
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	matches := fuzzy.Find(query, texts)

	idx := make([]int, len(matches))
	for i, m := range matches {
		idx[i] = m.Index
	}
	return idx
}

// formatLine renders one line as a header row and its wrapped text.
func formatLine(i int, l dub.Line, width int) string {
	status := "-"
	if l.ActualDuration > 0 {
		status = ui.RenderStatus(quality.StatusFor(quality.Accuracy(l.TargetDuration(), l.ActualDuration)))
	}

	timing := subtitle.FormatTimestamp(l.Start) + " → " + subtitle.FormatTimestamp(l.End)
	header := fmt.Sprintf("%s  %s  %.2fx  %s",
		runewidth.FillLeft(fmt.Sprint(i+1), 4),
		timing,
		l.Speed,
		status)
	if l.NeedsSync() {
		header += warnStyle.Render(" needs sync")
	}
	if l.ActualDuration > 0 {
		header += fmt.Sprintf("  (%s of %s)", l.ActualDuration.Round(time.Millisecond), l.TargetDuration())
	}

	if width <= 8 {
		width = 80
	}
	text := indent.String(wordwrap.String(l.Text, width-6), 6)
	return header + "\n" + strings.TrimRight(text, " ") + "\n\n"
}
