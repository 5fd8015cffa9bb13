package app

import "errors"

// Config holds everything an App instance needs to run one pipeline.
type Config struct {
	ConfigPath string // .hcl file or directory of .hcl files
	Pipeline   string
	Source     string
	Sink       string

	// Test selects single-file test mode: load file FileIndex, apply the
	// first UpTo stages, print the result, and skip the sink entirely.
	Test      bool
	FileIndex int
	UpTo      int // 0 means the full stage sequence

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.Pipeline == "" {
		return nil, errors.New("Pipeline is a required configuration field and cannot be empty")
	}
	if cfg.Source == "" {
		return nil, errors.New("Source is a required configuration field and cannot be empty")
	}
	if cfg.Sink == "" {
		return nil, errors.New("Sink is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
