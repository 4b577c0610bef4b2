package main

import (
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"

	"github.com/nashdub/dubsync/internal/logging"
)

// setupLog configures logging from the loaded configuration. Debug logs go
// to a file in the user cache directory unless a file is configured.
func setupLog() (func() error, error) {
	file := cfg.Log.File
	if file == "" && cfg.Log.Level == "debug" {
		dir, err := gap.NewScope(gap.User, appName).CacheDir()
		if err != nil {
			return nil, fmt.Errorf("unable to find cache directory: %w", err)
		}
		file = filepath.Join(dir, appName+".log")
	}

	if file != "" {
		expanded, err := homedir.Expand(file)
		if err != nil {
			return nil, fmt.Errorf("unable to expand log path: %w", err)
		}
		file = expanded
	}

	return logging.Setup(cfg.Log.Level, file)
}
