package dub

import (
	"fmt"
	"strings"
	"time"
)

// Config contains all dubsync configuration options.
type Config struct {
	// Engine selects the speech engine: mock or piper.
	Engine string `yaml:"engine" env:"DUBSYNC_ENGINE"`

	Sync     SyncConfig     `yaml:"sync"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Cache    CacheConfig    `yaml:"cache"`
	Import   ImportConfig   `yaml:"import"`
	Export   ExportConfig   `yaml:"export"`
	Log      LogConfig      `yaml:"log"`

	// Engine-specific configurations
	Piper PiperConfig `yaml:"piper"`
	Mock  MockConfig  `yaml:"mock"`
}

// SyncConfig controls the sync passes.
type SyncConfig struct {
	Trials              int           `yaml:"trials" env:"DUBSYNC_SYNC_TRIALS"`
	TrialDelay          time.Duration `yaml:"trial_delay" env:"DUBSYNC_SYNC_TRIAL_DELAY"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold" env:"DUBSYNC_SYNC_CONFIDENCE_THRESHOLD"`
	QuickTolerance      float64       `yaml:"quick_tolerance" env:"DUBSYNC_SYNC_QUICK_TOLERANCE"`
}

// AnalysisConfig controls text analysis.
type AnalysisConfig struct {
	// Language is the BCP 47 tag reported for text written in the script
	// range below.
	Language    string `yaml:"language" env:"DUBSYNC_ANALYSIS_LANGUAGE"`
	ScriptStart int    `yaml:"script_start" env:"DUBSYNC_ANALYSIS_SCRIPT_START"`
	ScriptEnd   int    `yaml:"script_end" env:"DUBSYNC_ANALYSIS_SCRIPT_END"`
}

// CacheConfig controls the analysis cache.
type CacheConfig struct {
	// Dir enables the persistent tier when set.
	Dir              string `yaml:"dir" env:"DUBSYNC_CACHE_DIR"`
	MemoryEntries    int    `yaml:"memory_entries" env:"DUBSYNC_CACHE_MEMORY_ENTRIES"`
	DiskCapacity     int64  `yaml:"disk_capacity" env:"DUBSYNC_CACHE_DISK_CAPACITY"`
	CompressionLevel int    `yaml:"compression_level" env:"DUBSYNC_CACHE_COMPRESSION_LEVEL"`
}

// ImportConfig controls subtitle and script import.
type ImportConfig struct {
	// Charset is the legacy code page used when a subtitle file is not
	// valid UTF-8.
	Charset string `yaml:"charset" env:"DUBSYNC_IMPORT_CHARSET"`
}

// ExportConfig controls audio export.
type ExportConfig struct {
	SampleRate int    `yaml:"sample_rate" env:"DUBSYNC_EXPORT_SAMPLE_RATE"`
	Dir        string `yaml:"dir" env:"DUBSYNC_EXPORT_DIR"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" env:"DUBSYNC_LOG_LEVEL"`
	File  string `yaml:"file" env:"DUBSYNC_LOG_FILE"`
}

// PiperConfig contains Piper engine specific settings.
type PiperConfig struct {
	Binary     string        `yaml:"binary" env:"DUBSYNC_PIPER_BINARY"`
	Model      string        `yaml:"model" env:"DUBSYNC_PIPER_MODEL"`
	ConfigPath string        `yaml:"config_path" env:"DUBSYNC_PIPER_CONFIG_PATH"`
	Speaker    int           `yaml:"speaker" env:"DUBSYNC_PIPER_SPEAKER"`
	SampleRate int           `yaml:"sample_rate" env:"DUBSYNC_PIPER_SAMPLE_RATE"`
	Playback   bool          `yaml:"playback" env:"DUBSYNC_PIPER_PLAYBACK"`
	Timeout    time.Duration `yaml:"timeout" env:"DUBSYNC_PIPER_TIMEOUT"`
}

// MockConfig contains mock engine settings for testing and dry runs.
type MockConfig struct {
	WordsPerMinute  int     `yaml:"words_per_minute" env:"DUBSYNC_MOCK_WORDS_PER_MINUTE"`
	Jitter          float64 `yaml:"jitter" env:"DUBSYNC_MOCK_JITTER"`
	FailureRate     float64 `yaml:"failure_rate" env:"DUBSYNC_MOCK_FAILURE_RATE"`
	Seed            uint64  `yaml:"seed" env:"DUBSYNC_MOCK_SEED"`
	SimulateLatency bool    `yaml:"simulate_latency" env:"DUBSYNC_MOCK_SIMULATE_LATENCY"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:   "mock",
		Sync:     DefaultSyncConfig(),
		Analysis: DefaultAnalysisConfig(),
		Cache: CacheConfig{
			MemoryEntries:    1024,
			DiskCapacity:     16 << 20,
			CompressionLevel: 3,
		},
		Import: ImportConfig{Charset: "windows-1256"},
		Export: ExportConfig{SampleRate: 22050},
		Log:    LogConfig{Level: "info"},
		Piper:  DefaultPiperConfig(),
		Mock:   DefaultMockConfig(),
	}
}

// DefaultSyncConfig returns default sync settings.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Trials:              3,
		TrialDelay:          100 * time.Millisecond,
		ConfidenceThreshold: 0.5,
		QuickTolerance:      1.2,
	}
}

// DefaultAnalysisConfig returns default analysis settings: Arabic script.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Language:    "ar",
		ScriptStart: 0x0600,
		ScriptEnd:   0x06FF,
	}
}

// DefaultPiperConfig returns default Piper configuration.
func DefaultPiperConfig() PiperConfig {
	return PiperConfig{
		Binary:     "piper",
		SampleRate: 22050,
		Playback:   true,
		Timeout:    30 * time.Second,
	}
}

// DefaultMockConfig returns default mock engine configuration.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		WordsPerMinute: 150,
		Jitter:         0.05,
		Seed:           1,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Engine) {
	case "mock", "piper":
	default:
		return fmt.Errorf("invalid speech engine: %s (must be mock or piper): %w", c.Engine, ErrInvalidConfig)
	}

	if err := c.Sync.Validate(); err != nil {
		return err
	}

	if c.Analysis.ScriptStart < 0 || c.Analysis.ScriptEnd < c.Analysis.ScriptStart {
		return fmt.Errorf("invalid script range %#x-%#x: %w", c.Analysis.ScriptStart, c.Analysis.ScriptEnd, ErrInvalidConfig)
	}

	if c.Cache.MemoryEntries < 1 {
		return fmt.Errorf("cache memory entries must be positive, got %d: %w", c.Cache.MemoryEntries, ErrInvalidConfig)
	}
	if c.Cache.CompressionLevel < 0 || c.Cache.CompressionLevel > 22 {
		return fmt.Errorf("cache compression level must be between 0 and 22, got %d: %w", c.Cache.CompressionLevel, ErrInvalidConfig)
	}

	if !validSampleRate(c.Export.SampleRate) {
		return fmt.Errorf("invalid export sample rate: %d: %w", c.Export.SampleRate, ErrInvalidConfig)
	}

	if c.Mock.WordsPerMinute < 1 || c.Mock.WordsPerMinute > 1000 {
		return fmt.Errorf("mock words per minute must be between 1 and 1000, got %d: %w", c.Mock.WordsPerMinute, ErrInvalidConfig)
	}
	if c.Mock.FailureRate < 0 || c.Mock.FailureRate > 1 {
		return fmt.Errorf("mock failure rate must be between 0 and 1, got %.2f: %w", c.Mock.FailureRate, ErrInvalidConfig)
	}
	if c.Mock.Jitter < 0 || c.Mock.Jitter >= 1 {
		return fmt.Errorf("mock jitter must be between 0 and 1, got %.2f: %w", c.Mock.Jitter, ErrInvalidConfig)
	}

	if c.Engine == "piper" {
		if c.Piper.Binary == "" {
			return fmt.Errorf("piper binary is required: %w", ErrInvalidConfig)
		}
		if c.Piper.Model == "" {
			return fmt.Errorf("piper model is required: %w", ErrInvalidConfig)
		}
		if c.Piper.Timeout <= 0 {
			return fmt.Errorf("piper timeout must be positive: %w", ErrInvalidConfig)
		}
		if !validSampleRate(c.Piper.SampleRate) {
			return fmt.Errorf("invalid piper sample rate: %d: %w", c.Piper.SampleRate, ErrInvalidConfig)
		}
	}

	return nil
}

// Validate checks the sync settings.
func (c SyncConfig) Validate() error {
	if c.Trials < 1 || c.Trials > 10 {
		return fmt.Errorf("sync trials must be between 1 and 10, got %d: %w", c.Trials, ErrInvalidConfig)
	}
	if c.TrialDelay < 0 || c.TrialDelay > 5*time.Second {
		return fmt.Errorf("sync trial delay must be between 0 and 5s, got %s: %w", c.TrialDelay, ErrInvalidConfig)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("sync confidence threshold must be between 0 and 1, got %.2f: %w", c.ConfidenceThreshold, ErrInvalidConfig)
	}
	if c.QuickTolerance < 1 {
		return fmt.Errorf("sync quick tolerance must be at least 1.0, got %.2f: %w", c.QuickTolerance, ErrInvalidConfig)
	}
	return nil
}

func validSampleRate(rate int) bool {
	switch rate {
	case 8000, 16000, 22050, 24000, 44100, 48000:
		return true
	default:
		return false
	}
}
