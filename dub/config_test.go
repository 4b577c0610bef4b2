package dub

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// TestDefaultConfig tests that default configuration is valid.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}

	if cfg.Engine != "mock" {
		t.Errorf("Default engine should be mock, got %s", cfg.Engine)
	}

	if cfg.Sync.Trials != 3 {
		t.Errorf("Default trials should be 3, got %d", cfg.Sync.Trials)
	}

	if cfg.Sync.TrialDelay != 100*time.Millisecond {
		t.Errorf("Default trial delay should be 100ms, got %s", cfg.Sync.TrialDelay)
	}
}

// TestConfigValidation tests configuration validation.
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid engine",
			modify: func(c *Config) {
				c.Engine = "espeak"
			},
			wantErr: true,
			errMsg:  "invalid speech engine",
		},
		{
			name: "zero trials",
			modify: func(c *Config) {
				c.Sync.Trials = 0
			},
			wantErr: true,
			errMsg:  "sync trials must be between",
		},
		{
			name: "confidence threshold too high",
			modify: func(c *Config) {
				c.Sync.ConfidenceThreshold = 1.5
			},
			wantErr: true,
			errMsg:  "confidence threshold",
		},
		{
			name: "quick tolerance below one",
			modify: func(c *Config) {
				c.Sync.QuickTolerance = 0.9
			},
			wantErr: true,
			errMsg:  "quick tolerance",
		},
		{
			name: "inverted script range",
			modify: func(c *Config) {
				c.Analysis.ScriptStart = 0x06FF
				c.Analysis.ScriptEnd = 0x0600
			},
			wantErr: true,
			errMsg:  "invalid script range",
		},
		{
			name: "invalid export sample rate",
			modify: func(c *Config) {
				c.Export.SampleRate = 12345
			},
			wantErr: true,
			errMsg:  "invalid export sample rate",
		},
		{
			name: "mock failure rate out of range",
			modify: func(c *Config) {
				c.Mock.FailureRate = 2
			},
			wantErr: true,
			errMsg:  "mock failure rate",
		},
		{
			name: "piper without model",
			modify: func(c *Config) {
				c.Engine = "piper"
			},
			wantErr: true,
			errMsg:  "piper model is required",
		},
		{
			name: "piper with model",
			modify: func(c *Config) {
				c.Engine = "piper"
				c.Piper.Model = "/models/ar_JO-kareem-medium.onnx"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Expected error containing %q, got %q", tt.errMsg, err.Error())
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}

// TestLoadConfigFromViper tests loading configuration from Viper.
func TestLoadConfigFromViper(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("sync.trials", 5)
	viper.Set("sync.trial_delay", "250ms")
	viper.Set("sync.confidence_threshold", 0.6)
	viper.Set("mock.words_per_minute", 180)
	viper.Set("import.charset", "iso-8859-6")

	cfg, err := LoadConfigFromViper()
	if err != nil {
		t.Fatalf("LoadConfigFromViper failed: %v", err)
	}

	if cfg.Sync.Trials != 5 {
		t.Errorf("Expected 5 trials, got %d", cfg.Sync.Trials)
	}
	if cfg.Sync.TrialDelay != 250*time.Millisecond {
		t.Errorf("Expected 250ms trial delay, got %s", cfg.Sync.TrialDelay)
	}
	if cfg.Sync.ConfidenceThreshold != 0.6 {
		t.Errorf("Expected threshold 0.6, got %.2f", cfg.Sync.ConfidenceThreshold)
	}
	if cfg.Mock.WordsPerMinute != 180 {
		t.Errorf("Expected 180 wpm, got %d", cfg.Mock.WordsPerMinute)
	}
	if cfg.Import.Charset != "iso-8859-6" {
		t.Errorf("Expected charset iso-8859-6, got %s", cfg.Import.Charset)
	}

	// Unset keys keep their defaults
	if cfg.Sync.QuickTolerance != 1.2 {
		t.Errorf("Expected default quick tolerance, got %.2f", cfg.Sync.QuickTolerance)
	}
}

// TestLoadConfigFromViperInvalid tests that invalid values are rejected.
func TestLoadConfigFromViperInvalid(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("engine", "festival")

	if _, err := LoadConfigFromViper(); err == nil {
		t.Fatal("Expected error for unknown engine")
	}
}

// TestApplyEnv tests environment overrides.
func TestApplyEnv(t *testing.T) {
	t.Setenv("DUBSYNC_SYNC_TRIALS", "7")
	t.Setenv("DUBSYNC_MOCK_FAILURE_RATE", "0.25")

	cfg := DefaultConfig()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Sync.Trials != 7 {
		t.Errorf("Expected 7 trials from env, got %d", cfg.Sync.Trials)
	}
	if cfg.Mock.FailureRate != 0.25 {
		t.Errorf("Expected failure rate 0.25 from env, got %.2f", cfg.Mock.FailureRate)
	}
	if cfg.Engine != "mock" {
		t.Errorf("Unset variables must keep defaults, got engine %q", cfg.Engine)
	}
}

// TestSetDefaults tests that defaults are registered in Viper.
func TestSetDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	SetDefaults()

	if viper.GetInt("sync.trials") != 3 {
		t.Errorf("Expected default trials 3, got %d", viper.GetInt("sync.trials"))
	}
	if viper.GetDuration("sync.trial_delay") != 100*time.Millisecond {
		t.Errorf("Expected default trial delay 100ms, got %s", viper.GetDuration("sync.trial_delay"))
	}
	if viper.GetString("import.charset") != "windows-1256" {
		t.Errorf("Expected default charset, got %s", viper.GetString("import.charset"))
	}
}
