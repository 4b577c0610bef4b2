package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/dub/project"
	"github.com/nashdub/dubsync/dub/script"
	"github.com/nashdub/dubsync/dub/subtitle"
	"github.com/nashdub/dubsync/internal/logging"
)

// Input formats by file extension.
const (
	formatSRT      = ".srt"
	formatMarkdown = ".md"
	formatYAML     = ".yaml"
	formatYML      = ".yml"
)

func isProjectFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == formatYAML || ext == formatYML
}

// loadLines reads a subtitle file, a markdown script, a saved project or
// a plain script with one line per asterisk.
func loadLines(path string) ([]dub.Line, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case formatSRT:
		enc, err := subtitle.Charset(cfg.Import.Charset)
		if err != nil {
			return nil, err
		}
		p := subtitle.New(subtitle.WithCharset(enc), subtitle.WithLogger(logging.Component("srt")))
		return p.ParseFile(path)

	case formatYAML, formatYML:
		s, err := project.Load(path, project.WithLogger(logging.Component("project")))
		if err != nil {
			return nil, err
		}
		return s.Lines(), nil
	}

	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}

	var lines []dub.Line
	if strings.EqualFold(filepath.Ext(path), formatMarkdown) {
		lines = script.ParseMarkdown(data)
	} else {
		lines = script.Split(string(data))
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%s: %w", path, dub.ErrNoSubtitles)
	}
	return lines, nil
}

// saveLines writes lines as a subtitle file or a project file, chosen by
// extension.
func saveLines(path string, lines []dub.Line) error {
	if isProjectFile(path) {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		s := project.New(name, project.WithLogger(logging.Component("project")))
		if err := s.Replace(lines); err != nil {
			return err
		}
		return s.Save(path)
	}

	if !strings.EqualFold(filepath.Ext(path), formatSRT) {
		return fmt.Errorf("'%s' is not a supported output type: use '%s', '%s' or '%s': %w",
			filepath.Ext(path), formatSRT, formatYAML, formatYML, dub.ErrUnknownFormat)
	}

	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", path, err)
	}
	if err := subtitle.Write(f, lines); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
