package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration file.
//
//	provider: together
//	model: mistralai/Mixtral-8x7B-Instruct-v0.1
//	analysis:
//	  max_files: 5
//	  base_delay_ms: 2000
type FileConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	MaxTokens   uint32   `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
	TopP        *float64 `yaml:"top_p"`

	Analysis FileAnalysis `yaml:"analysis"`

	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
}

// FileAnalysis overrides analysis limits. Zero fields keep the default.
type FileAnalysis struct {
	MaxFiles         int `yaml:"max_files"`
	MaxFileChars     int `yaml:"max_file_chars"`
	MaxRetries       int `yaml:"max_retries"`
	BaseDelayMs      int `yaml:"base_delay_ms"`
	TimeoutSecs      int `yaml:"timeout_secs"`
	MinResponseChars int `yaml:"min_response_chars"`
}

func (f FileAnalysis) applyTo(cfg *AnalysisConfig) {
	if f.MaxFiles > 0 {
		cfg.MaxFiles = f.MaxFiles
	}
	if f.MaxFileChars > 0 {
		cfg.MaxFileContentChars = f.MaxFileChars
	}
	if f.MaxRetries > 0 {
		cfg.MaxRetries = f.MaxRetries
	}
	if f.BaseDelayMs > 0 {
		cfg.BaseDelay = time.Duration(f.BaseDelayMs) * time.Millisecond
	}
	if f.TimeoutSecs > 0 {
		cfg.RequestTimeout = time.Duration(f.TimeoutSecs) * time.Second
	}
	if f.MinResponseChars > 0 {
		cfg.MinResponseChars = f.MinResponseChars
	}
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
