package dub

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads configuration from Viper, then applies
// DUBSYNC_* environment overrides.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("engine") {
		cfg.Engine = viper.GetString("engine")
	}

	cfg.Sync = loadSyncConfig(cfg.Sync)
	cfg.Analysis = loadAnalysisConfig(cfg.Analysis)
	cfg.Piper = loadPiperConfig(cfg.Piper)
	cfg.Mock = loadMockConfig(cfg.Mock)

	// Cache settings
	if viper.IsSet("cache.dir") {
		cfg.Cache.Dir = viper.GetString("cache.dir")
	}
	if viper.IsSet("cache.memory_entries") {
		cfg.Cache.MemoryEntries = viper.GetInt("cache.memory_entries")
	}
	if viper.IsSet("cache.disk_capacity") {
		cfg.Cache.DiskCapacity = viper.GetInt64("cache.disk_capacity")
	}
	if viper.IsSet("cache.compression_level") {
		cfg.Cache.CompressionLevel = viper.GetInt("cache.compression_level")
	}

	// Import and export settings
	if viper.IsSet("import.charset") {
		cfg.Import.Charset = viper.GetString("import.charset")
	}
	if viper.IsSet("export.sample_rate") {
		cfg.Export.SampleRate = viper.GetInt("export.sample_rate")
	}
	if viper.IsSet("export.dir") {
		cfg.Export.Dir = viper.GetString("export.dir")
	}

	// Logging settings
	if viper.IsSet("log.level") {
		cfg.Log.Level = viper.GetString("log.level")
	}
	if viper.IsSet("log.file") {
		cfg.Log.File = viper.GetString("log.file")
	}

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid dubsync configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields whose DUBSYNC_* variable is set.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("error parsing environment: %w", err)
	}
	return nil
}

func loadSyncConfig(cfg SyncConfig) SyncConfig {
	if viper.IsSet("sync.trials") {
		cfg.Trials = viper.GetInt("sync.trials")
	}
	if viper.IsSet("sync.trial_delay") {
		cfg.TrialDelay = viper.GetDuration("sync.trial_delay")
	}
	if viper.IsSet("sync.confidence_threshold") {
		cfg.ConfidenceThreshold = viper.GetFloat64("sync.confidence_threshold")
	}
	if viper.IsSet("sync.quick_tolerance") {
		cfg.QuickTolerance = viper.GetFloat64("sync.quick_tolerance")
	}
	return cfg
}

func loadAnalysisConfig(cfg AnalysisConfig) AnalysisConfig {
	if viper.IsSet("analysis.language") {
		cfg.Language = viper.GetString("analysis.language")
	}
	if viper.IsSet("analysis.script_start") {
		cfg.ScriptStart = viper.GetInt("analysis.script_start")
	}
	if viper.IsSet("analysis.script_end") {
		cfg.ScriptEnd = viper.GetInt("analysis.script_end")
	}
	return cfg
}

func loadPiperConfig(cfg PiperConfig) PiperConfig {
	if viper.IsSet("piper.binary") {
		cfg.Binary = viper.GetString("piper.binary")
	}
	if viper.IsSet("piper.model") {
		cfg.Model = viper.GetString("piper.model")
	}
	if viper.IsSet("piper.config_path") {
		cfg.ConfigPath = viper.GetString("piper.config_path")
	}
	if viper.IsSet("piper.speaker") {
		cfg.Speaker = viper.GetInt("piper.speaker")
	}
	if viper.IsSet("piper.sample_rate") {
		cfg.SampleRate = viper.GetInt("piper.sample_rate")
	}
	if viper.IsSet("piper.playback") {
		cfg.Playback = viper.GetBool("piper.playback")
	}
	if viper.IsSet("piper.timeout") {
		cfg.Timeout = viper.GetDuration("piper.timeout")
	}
	return cfg
}

func loadMockConfig(cfg MockConfig) MockConfig {
	if viper.IsSet("mock.words_per_minute") {
		cfg.WordsPerMinute = viper.GetInt("mock.words_per_minute")
	}
	if viper.IsSet("mock.jitter") {
		cfg.Jitter = viper.GetFloat64("mock.jitter")
	}
	if viper.IsSet("mock.failure_rate") {
		cfg.FailureRate = viper.GetFloat64("mock.failure_rate")
	}
	if viper.IsSet("mock.seed") {
		cfg.Seed = viper.GetUint64("mock.seed")
	}
	if viper.IsSet("mock.simulate_latency") {
		cfg.SimulateLatency = viper.GetBool("mock.simulate_latency")
	}
	return cfg
}

// SetDefaults sets default values in Viper.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("engine", defaults.Engine)

	viper.SetDefault("sync.trials", defaults.Sync.Trials)
	viper.SetDefault("sync.trial_delay", defaults.Sync.TrialDelay.String())
	viper.SetDefault("sync.confidence_threshold", defaults.Sync.ConfidenceThreshold)
	viper.SetDefault("sync.quick_tolerance", defaults.Sync.QuickTolerance)

	viper.SetDefault("analysis.language", defaults.Analysis.Language)
	viper.SetDefault("analysis.script_start", defaults.Analysis.ScriptStart)
	viper.SetDefault("analysis.script_end", defaults.Analysis.ScriptEnd)

	viper.SetDefault("cache.dir", defaults.Cache.Dir)
	viper.SetDefault("cache.memory_entries", defaults.Cache.MemoryEntries)
	viper.SetDefault("cache.disk_capacity", defaults.Cache.DiskCapacity)
	viper.SetDefault("cache.compression_level", defaults.Cache.CompressionLevel)

	viper.SetDefault("import.charset", defaults.Import.Charset)
	viper.SetDefault("export.sample_rate", defaults.Export.SampleRate)
	viper.SetDefault("export.dir", defaults.Export.Dir)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.file", defaults.Log.File)

	viper.SetDefault("piper.binary", defaults.Piper.Binary)
	viper.SetDefault("piper.sample_rate", defaults.Piper.SampleRate)
	viper.SetDefault("piper.playback", defaults.Piper.Playback)
	viper.SetDefault("piper.timeout", defaults.Piper.Timeout.String())

	viper.SetDefault("mock.words_per_minute", defaults.Mock.WordsPerMinute)
	viper.SetDefault("mock.jitter", defaults.Mock.Jitter)
	viper.SetDefault("mock.failure_rate", defaults.Mock.FailureRate)
	viper.SetDefault("mock.seed", defaults.Mock.Seed)
	viper.SetDefault("mock.simulate_latency", defaults.Mock.SimulateLatency)
}
