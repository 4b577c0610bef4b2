package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/dub/measure"
	"github.com/nashdub/dubsync/dub/project"
	"github.com/nashdub/dubsync/internal/logging"
)

var (
	previewLine int
	saveActual  bool

	previewCmd = &cobra.Command{
		Use:   "preview FILE",
		Short: "Speak one line and time it",
		Long:  paragraph(fmt.Sprintf("\n%s a single line with its own speed and pitch and record how long it took.", keyword("Speak"))),
		Example: paragraph("dubsync preview episode.yaml --line 3\n" +
			"dubsync preview episode.yaml --line 3 --save"),
		Args: cobra.ExactArgs(1),
		RunE: runPreview,
	}
)

func init() {
	previewCmd.Flags().IntVarP(&previewLine, "line", "n", 1, "line number to preview")
	previewCmd.Flags().BoolVar(&saveActual, "save", false, "store the measured duration in the project file")
}

func runPreview(cmd *cobra.Command, args []string) error {
	path := args[0]
	lines, err := loadLines(path)
	if err != nil {
		return err
	}
	if previewLine < 1 || previewLine > len(lines) {
		return fmt.Errorf("line %d of %d: %w", previewLine, len(lines), dub.ErrLineNotFound)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	session := project.New(name,
		project.WithTracker(measure.NewTracker()),
		project.WithLogger(logging.Component("project")))
	if err := session.Replace(lines); err != nil {
		return err
	}

	synth, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = synth.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	line := lines[previewLine-1]
	d, err := session.Preview(ctx, synth, line.ID)
	if err != nil {
		return err
	}

	a, closeCache, err := newAnalyzer()
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()

	updated, err := session.Get(line.ID)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, formatLine(previewLine-1, updated, int(uiConfig.Width))) //nolint:gosec
	fmt.Fprintf(os.Stdout, "Spoke in %s, window %s\n\n", d.Round(time.Millisecond), line.TargetDuration())
	fmt.Fprintln(os.Stdout, newManager(a).LineAnalysis(updated))

	if saveActual {
		if !isProjectFile(path) {
			return fmt.Errorf("--save needs a project file, got %s: %w", path, dub.ErrUnknownFormat)
		}
		return session.Save(path)
	}
	return nil
}
