package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"golang.org/x/text/language"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/dub/analysis"
	"github.com/nashdub/dubsync/dub/engines"
	"github.com/nashdub/dubsync/dub/engines/mock"
	"github.com/nashdub/dubsync/dub/engines/piper"
	dubsync "github.com/nashdub/dubsync/dub/sync"
	"github.com/nashdub/dubsync/internal/audio"
	"github.com/nashdub/dubsync/internal/cache"
	"github.com/nashdub/dubsync/internal/logging"
)

// Piper failures tolerated before falling back to the mock engine.
const fallbackAfter = 3

// newEngine creates the configured speech engine. Every engine is
// serialized so a single utterance runs at a time.
func newEngine() (*engines.Exclusive, error) {
	var synth dub.Synthesizer

	switch strings.ToLower(cfg.Engine) {
	case "piper":
		pc := cfg.Piper
		pc.Model = expand(pc.Model)
		pc.ConfigPath = expand(pc.ConfigPath)

		var opts []piper.Option
		if pc.Playback {
			player, err := audio.NewOtoPlayer(audio.Format{SampleRate: pc.SampleRate, Channels: 1})
			if err != nil {
				return nil, fmt.Errorf("unable to open audio device: %w", err)
			}
			opts = append(opts, piper.WithPlayer(player))
		}

		p, err := piper.New(pc, opts...)
		if err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			log.Warn("Piper is not usable, falling back to mock engine", "err", err)
			_ = p.Close()
			synth = mock.New(cfg.Mock)
			break
		}
		synth = engines.NewFallback(p, mock.New(cfg.Mock), fallbackAfter)

	default:
		synth = mock.New(cfg.Mock)
	}

	log.Debug("Speech engine ready", "engine", synth.Capabilities().Engine)
	return engines.NewExclusive(synth, 0), nil
}

// newAnalyzer creates the text analyzer with its cache. The returned
// closer flushes the disk tier.
func newAnalyzer() (analysis.TextAnalyzer, func() error, error) {
	tag, err := language.Parse(cfg.Analysis.Language)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid analysis language %q: %w", cfg.Analysis.Language, err)
	}
	base := analysis.New(analysis.WithScript(
		analysis.ScriptRange(rune(cfg.Analysis.ScriptStart), rune(cfg.Analysis.ScriptEnd)),
		tag,
	))

	dir := cfg.Cache.Dir
	if dir == "" {
		if d, err := gap.NewScope(gap.User, appName).CacheDir(); err == nil {
			dir = filepath.Join(d, "analysis")
		}
	}

	store, err := cache.NewTiered[analysis.TextAnalysis](cache.Config{
		MemoryEntries:    cfg.Cache.MemoryEntries,
		DiskPath:         expand(dir),
		DiskCapacity:     cfg.Cache.DiskCapacity,
		CompressionLevel: cfg.Cache.CompressionLevel,
	})
	if err != nil {
		log.Warn("Analysis cache unavailable, using memory only", "err", err)
		store, err = cache.NewTiered[analysis.TextAnalysis](cache.Config{MemoryEntries: cfg.Cache.MemoryEntries})
		if err != nil {
			return nil, nil, err
		}
	}

	namespace := fmt.Sprintf("%s-%x-%x", tag, cfg.Analysis.ScriptStart, cfg.Analysis.ScriptEnd)
	return analysis.NewCached(base, store, namespace), store.Close, nil
}

// newManager creates a sync manager from the configuration.
func newManager(a analysis.TextAnalyzer, opts ...dubsync.Option) *dubsync.Manager {
	return dubsync.New(append([]dubsync.Option{
		dubsync.WithLogger(logging.Component("sync")),
		dubsync.WithAnalyzer(a),
		dubsync.WithConfig(cfg.Sync),
	}, opts...)...)
}

func expand(path string) string {
	if path == "" {
		return ""
	}
	p, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return p
}
