package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	dubsync "github.com/nashdub/dubsync/dub/sync"
	"github.com/nashdub/dubsync/internal/logging"
)

// watchInterval is the minimum time between two resyncs of a watched file.
const watchInterval = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Quick sync a file every time it changes",
	Long:  paragraph(fmt.Sprintf("\n%s a subtitle or script file and rerun the quick sync on every save.", keyword("Watch"))),
	Example: paragraph("dubsync watch episode.srt\n" +
		"dubsync watch script.md -o script.srt"),
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write synced lines to an .srt or .yaml file")
}

func runWatch(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("unable to resolve %s: %w", args[0], err)
	}
	if outputFile != "" {
		if out, err := filepath.Abs(outputFile); err == nil && out == path {
			return errors.New("output file must differ from the watched file")
		}
	}

	a, closeCache, err := newAnalyzer()
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()
	manager := newManager(a)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory so editors that replace the file are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("unable to watch %s: %w", path, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger := logging.Component("watch")
	resync := func() {
		lines, err := loadLines(path)
		if err != nil {
			logger.Warn("Could not load file", "path", path, "err", err)
			return
		}
		synced := manager.Quick(lines)
		printSummary(os.Stdout, dubsync.Summarize(synced))
		if err := writeOutput(synced); err != nil {
			logger.Error("Could not write output", "err", err)
		}
	}

	resync()
	logger.Info("Watching for changes", "path", path)
	return watchLoop(ctx, watcher, path, rate.NewLimiter(rate.Every(watchInterval), 1), resync)
}

// watchLoop calls fn after every write to path. Bursts of events are
// collapsed by limiter.
func watchLoop(ctx context.Context, w *fsnotify.Watcher, path string, limiter *rate.Limiter, fn func()) error {
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != path || (!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create)) {
				continue
			}
			if pending == nil {
				pending = time.After(limiter.Reserve().Delay())
			}

		case <-pending:
			pending = nil
			fn()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("Watcher error", "err", err)
		}
	}
}
