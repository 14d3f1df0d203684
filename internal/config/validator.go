package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateRedactPattern checks that a redaction pattern compiles
func (v *Validator) ValidateRedactPattern(pattern string) error {
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("invalid redact pattern %q: %w", pattern, err)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}
	for _, pattern := range cfg.Logging.RedactPatterns {
		if err := v.ValidateRedactPattern(pattern); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Transcript.MaxLineSize < 0 {
		errors = append(errors, fmt.Errorf("transcript.max_line_size must be >= 0"))
	}
	if cfg.Watch.DebounceMs < 0 {
		errors = append(errors, fmt.Errorf("watch.debounce_ms must be >= 0"))
	}

	return errors
}
