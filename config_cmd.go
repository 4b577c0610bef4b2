package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# style name or JSON path (default "auto")
style: "auto"
# word-wrap at width
width: 80

# speech engine: mock or piper
engine: "mock"

# timing sync
sync:
  # measurement trials per line
  trials: 3
  # settle delay between trials
  trial_delay: "100ms"
  # measurements below this confidence fall back to text estimates
  confidence_threshold: 0.5
  # quick sync flags lines whose estimate exceeds target by this factor
  quick_tolerance: 1.2

# text analysis
analysis:
  # language reported for text in the script range below
  language: "ar"
  script_start: 0x0600
  script_end: 0x06FF

# analysis cache
cache:
  # dir: "~/.cache/dubsync/analysis"
  memory_entries: 1024
  disk_capacity: 16777216
  compression_level: 3

# subtitle import
import:
  # code page used for subtitle files that are not UTF-8
  charset: "windows-1256"

# audio export
export:
  sample_rate: 22050
  # dir: "~/dubs"

log:
  level: "info"
  # file: "~/.cache/dubsync/dubsync.log"

# Piper engine configuration
piper:
  binary: "piper"
  # model: "/path/to/ar_JO-kareem-medium.onnx"
  # config_path: "/path/to/ar_JO-kareem-medium.onnx.json"
  speaker: 0
  sample_rate: 22050
  # play audio while measuring, otherwise time from rendered length
  playback: true
  timeout: "30s"

# Mock engine configuration (for testing and dry runs)
mock:
  words_per_minute: 150
  jitter: 0.05
  failure_rate: 0.0
  seed: 1
  simulate_latency: false
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the dubsync config file",
	Long:    paragraph(fmt.Sprintf("\n%s the dubsync config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("dubsync config\ndubsync config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("dubsync", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
