package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nashdub/dubsync/dub"
	dubsync "github.com/nashdub/dubsync/dub/sync"
	"github.com/nashdub/dubsync/internal/logging"
	"github.com/nashdub/dubsync/ui"
)

var (
	outputFile string
	noProgress bool

	quickCmd = &cobra.Command{
		Use:   "quick FILE",
		Short: "Estimate timing from text alone",
		Long:  paragraph(fmt.Sprintf("\n%s every line from its text without running a speech engine.", keyword("Estimate"))),
		Example: paragraph("dubsync quick episode.srt\n" +
			"dubsync quick episode.srt -o episode.yaml"),
		Args: cobra.ExactArgs(1),
		RunE: runQuick,
	}

	syncCmd = &cobra.Command{
		Use:   "sync FILE",
		Short: "Measure every line with the speech engine",
		Long:  paragraph(fmt.Sprintf("\n%s each line with the speech engine and adjust its speed to fit its window.", keyword("Time"))),
		Example: paragraph("dubsync sync episode.srt -o episode.yaml\n" +
			"dubsync sync script.md --engine piper"),
		Args: cobra.ExactArgs(1),
		RunE: runSync,
	}
)

func init() {
	for _, c := range []*cobra.Command{quickCmd, syncCmd} {
		c.Flags().StringVarP(&outputFile, "output", "o", "", "write synced lines to an .srt or .yaml file")
	}
	syncCmd.Flags().BoolVar(&noProgress, "no-progress", false, "log progress instead of showing the progress view")
}

func runQuick(_ *cobra.Command, args []string) error {
	lines, err := loadLines(args[0])
	if err != nil {
		return err
	}

	a, closeCache, err := newAnalyzer()
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()

	synced := newManager(a).Quick(lines)
	printSummary(os.Stdout, dubsync.Summarize(synced))
	return writeOutput(synced)
}

func runSync(cmd *cobra.Command, args []string) error {
	lines, err := loadLines(args[0])
	if err != nil {
		return err
	}

	a, closeCache, err := newAnalyzer()
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()

	synth, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = synth.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var (
		synced []dub.Line
		report string
	)
	work := func(ctx context.Context, progress dubsync.Progress, observe dubsync.StateObserver) error {
		var opts []dubsync.Option
		if observe != nil {
			// keep info logs from drawing over the progress view
			quiet := logging.Component("sync")
			quiet.SetLevel(log.WarnLevel)
			opts = append(opts, dubsync.WithObserver(observe), dubsync.WithLogger(quiet))
		}
		m := newManager(a, opts...)

		out, _, err := m.Smart(ctx, synth, lines, progress)
		synced = out
		if err != nil {
			return err
		}
		report = m.QualityReport(out)
		return nil
	}

	started := time.Now()
	if showProgress() {
		err = ui.RunSync(ctx, os.Stderr, lines, work)
	} else {
		logger := logging.Component("sync")
		err = work(ctx, func(done, total int) {
			logger.Info("Synced line", "done", done, "total", total)
		}, nil)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, dub.ErrCanceled) {
		return savePartial(synced, err)
	}
	if err != nil {
		return err
	}
	log.Debug("Smart sync finished", "lines", len(synced), "elapsed", time.Since(started).Round(time.Millisecond))

	out, err := ui.RenderMarkdown(report, uiConfig)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, out)

	printSummary(os.Stdout, dubsync.Summarize(synced))
	return writeOutput(synced)
}

// savePartial writes the lines of a canceled pass, synced ones and the
// untouched rest, so finished measurements are kept.
func savePartial(lines []dub.Line, cause error) error {
	if !errors.Is(cause, dub.ErrCanceled) {
		cause = fmt.Errorf("%w: %w", dub.ErrCanceled, cause)
	}
	if len(lines) == 0 {
		return cause
	}

	s := dubsync.Summarize(lines)
	log.Warn("Sync canceled", "synced", s.Synced, "lines", s.Lines)
	if err := writeOutput(lines); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func showProgress() bool {
	return !noProgress && uiConfig.Progress && term.IsTerminal(int(os.Stderr.Fd()))
}

func writeOutput(lines []dub.Line) error {
	if outputFile == "" {
		return nil
	}
	if err := saveLines(outputFile, lines); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("Wrote " + outputFile))
	return nil
}

func printSummary(w io.Writer, s dubsync.Summary) {
	fmt.Fprintf(w, "%d lines, %d synced, %d need sync (%.0f%% synced)\n",
		s.Lines, s.Synced, s.NeedsSync, s.SyncPercentage)
	fmt.Fprintf(w, "Average speed %.2fx, target %s, actual %s\n",
		s.AvgSpeed, s.TotalTargetDuration.Round(time.Millisecond), s.TotalActualDuration.Round(time.Millisecond))
	if s.NeedsManualReview {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Lines overshoot by %s on average; review them manually.", s.AvgOvershoot.Round(time.Millisecond))))
	}
}
