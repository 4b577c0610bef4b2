package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nashdub/dubsync/dub"
)

// FormatVersion is the current project file version.
const FormatVersion = 1

// ErrUnsupportedVersion is returned for project files written by a newer
// release.
var ErrUnsupportedVersion = errors.New("unsupported project file version")

type fileHeader struct {
	Version int        `yaml:"version" validate:"gte=1"`
	Name    string     `yaml:"name" validate:"required"`
	Saved   time.Time  `yaml:"saved"`
	Lines   []fileLine `yaml:"lines" validate:"dive"`
}

type fileLine struct {
	ID             string        `yaml:"id" validate:"required"`
	Text           string        `yaml:"text" validate:"required"`
	Start          time.Duration `yaml:"start"`
	End            time.Duration `yaml:"end"`
	Voice          string        `yaml:"voice,omitempty"`
	Speed          float64       `yaml:"speed"`
	Pitch          float64       `yaml:"pitch"`
	ActualDuration time.Duration `yaml:"actual_duration,omitempty"`
	NeedsSync      bool          `yaml:"needs_sync,omitempty"`
}

var fileValidator = validator.New()

// Save writes the session to path as YAML.
func (s *Session) Save(path string) error {
	lines := s.Lines()
	f := fileHeader{
		Version: FormatVersion,
		Name:    s.Name(),
		Saved:   time.Now().UTC().Truncate(time.Second),
		Lines:   make([]fileLine, len(lines)),
	}
	for i, l := range lines {
		f.Lines[i] = fileLine{
			ID:             l.ID,
			Text:           l.Text,
			Start:          l.Start,
			End:            l.End,
			Voice:          l.Voice,
			Speed:          l.Speed,
			Pitch:          l.Pitch,
			ActualDuration: l.ActualDuration,
			NeedsSync:      l.NeedsSync(),
		}
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write project file: %w", err)
	}

	s.logger.Info("Saved project", "path", path, "lines", len(lines))
	return nil
}

// Load reads a session saved with Save.
func Load(path string, opts ...Option) (*Session, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var f fileHeader
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse project file: %w", err)
	}
	if f.Version > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}
	if err := fileValidator.Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %w", dub.ErrInvalidLine, err)
	}

	lines := make([]dub.Line, len(f.Lines))
	for i, fl := range f.Lines {
		l := dub.Line{
			ID:    fl.ID,
			Text:  fl.Text,
			Start: fl.Start,
			End:   fl.End,
			Voice: fl.Voice,
			Pitch: fl.Pitch,
		}
		lines[i] = l.WithSync(fl.Speed, fl.ActualDuration, fl.NeedsSync)
	}

	s := New(f.Name, opts...)
	if err := s.Replace(lines); err != nil {
		return nil, err
	}
	s.logger.Info("Loaded project", "path", path, "lines", len(lines))
	return s, nil
}
