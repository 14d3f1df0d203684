package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harun/jsonlfmt/pkg/transcript"
)

// Config represents the format-jsonl configuration
type Config struct {
	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Transcript extraction
	Transcript TranscriptConfig `json:"transcript" mapstructure:"transcript"`

	// Watch mode
	Watch WatchConfig `json:"watch" mapstructure:"watch"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level          string   `json:"level" mapstructure:"level"`
	File           string   `json:"file" mapstructure:"file"`
	Pretty         bool     `json:"pretty" mapstructure:"pretty"`
	Redaction      bool     `json:"redaction" mapstructure:"redaction"`
	RedactPatterns []string `json:"redact_patterns" mapstructure:"redact_patterns"` // extra regexps to mask
}

// TranscriptConfig holds extraction settings. None of them change the output format.
type TranscriptConfig struct {
	MaxLineSize int  `json:"max_line_size" mapstructure:"max_line_size"` // bytes
	Verbose     bool `json:"verbose" mapstructure:"verbose"`             // log skipped lines
}

// WatchConfig holds watch mode configuration
type WatchConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	DebounceMs int  `json:"debounce_ms" mapstructure:"debounce_ms"`
}

// Debounce returns the debounce interval as a duration
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:     "warn",
			Pretty:    true,
			Redaction: true,
		},
		Transcript: TranscriptConfig{
			MaxLineSize: transcript.DefaultMaxLineSize,
		},
		Watch: WatchConfig{
			DebounceMs: int(transcript.DefaultDebounce / time.Millisecond),
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if errs := NewValidator().ValidateConfig(c); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errs[0])
	}
	return nil
}
