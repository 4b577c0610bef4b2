package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nashdub/dubsync/dub/export"
	"github.com/nashdub/dubsync/internal/logging"
)

var (
	enhancedExport bool

	exportCmd = &cobra.Command{
		Use:   "export FILE OUTPUT.wav",
		Short: "Render the dub track to a WAV file",
		Long:  paragraph(fmt.Sprintf("\n%s every line at its start time into one WAV track, filling gaps with silence.", keyword("Render"))),
		Example: paragraph("dubsync export episode.yaml episode.wav\n" +
			"dubsync export episode.srt episode.wav --enhanced"),
		Args: cobra.ExactArgs(2),
		RunE: runExport,
	}
)

func init() {
	exportCmd.Flags().BoolVar(&enhancedExport, "enhanced", false, "quick sync and correct speeds before rendering")
}

func runExport(cmd *cobra.Command, args []string) error {
	lines, err := loadLines(args[0])
	if err != nil {
		return err
	}

	out := args[1]
	if !filepath.IsAbs(out) && cfg.Export.Dir != "" {
		out = filepath.Join(expand(cfg.Export.Dir), out)
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

	logger := logging.Component("export")
	exp := export.New(synth,
		export.WithSampleRate(cfg.Export.SampleRate),
		export.WithManager(newManager(a)),
		export.WithLogger(logger))

	progress := func(done, total int) {
		logger.Debug("Rendered line", "done", done, "total", total)
	}

	var res export.Result
	if enhancedExport {
		res, err = exp.Enhanced(ctx, lines, out, progress)
	} else {
		res, err = exp.ExportFile(ctx, lines, out, progress)
	}
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("Wrote %s (%s, %s)",
		res.Path, res.Duration.Round(time.Millisecond), humanize.Bytes(uint64(res.Bytes))))) //nolint:gosec
	fmt.Printf("%d of %d lines rendered", res.Rendered, len(res.Lines))
	if res.Failed > 0 {
		fmt.Print(warnStyle.Render(fmt.Sprintf(", %d replaced with silence", res.Failed)))
	}
	fmt.Println()
	return nil
}
