package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"sales-pipeline/pkg/utils"
)

// GeneratorConfig controls the synthetic sales data generator.
type GeneratorConfig struct {
	// Interval is the gap between generated files, e.g. "2s".
	Interval string `yaml:"interval"`

	// RowsPerFile is the number of data rows per generated CSV.
	RowsPerFile int `yaml:"rows_per_file"`

	// ErrorRate is the fraction of rows generated intentionally malformed,
	// between 0 and 1.
	ErrorRate float64 `yaml:"error_rate"`
}

// Config holds the pipeline configuration loaded from YAML.
type Config struct {
	// InputDir is scanned for .csv files to ingest.
	InputDir string `yaml:"input_dir"`

	// ProcessedDir receives files whose error count stayed within the
	// threshold.
	ProcessedDir string `yaml:"processed_dir"`

	// ErrorDir receives files whose error count exceeded the threshold.
	ErrorDir string `yaml:"error_dir"`

	// ReportDir holds the three append-only report CSVs.
	ReportDir string `yaml:"report_dir"`

	// DatabasePath is the sqlite tracking database.
	DatabasePath string `yaml:"database_path"`

	// PollInterval is the sleep between polling cycles, e.g. "5s".
	PollInterval string `yaml:"poll_interval"`

	// ErrorThreshold is the per-file row-error budget. A file with more
	// errors than this is routed to the error area.
	ErrorThreshold int `yaml:"error_threshold"`

	// LogLevel controls console log verbosity: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// ListenAddr is the control API bind address for the serve command.
	ListenAddr string `yaml:"listen_addr"`

	Generator GeneratorConfig `yaml:"generator"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		InputDir:       "data/in",
		ProcessedDir:   "data/out",
		ErrorDir:       "data/err",
		ReportDir:      "reports",
		DatabasePath:   "pipeline.db",
		PollInterval:   "5s",
		ErrorThreshold: 5,
		LogLevel:       "info",
		ListenAddr:     ":8080",
		Generator: GeneratorConfig{
			Interval:    "2s",
			RowsPerFile: 100,
			ErrorRate:   0.05,
		},
	}
}

// Load reads the YAML config at path, applying defaults for missing fields.
// A missing file is not an error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input_dir must not be empty")
	}
	if c.ProcessedDir == "" || c.ErrorDir == "" {
		return fmt.Errorf("processed_dir and error_dir must not be empty")
	}
	if c.ReportDir == "" {
		return fmt.Errorf("report_dir must not be empty")
	}
	if c.ErrorThreshold < 0 {
		return fmt.Errorf("error_threshold must not be negative, got %d", c.ErrorThreshold)
	}
	if _, err := time.ParseDuration(c.PollInterval); c.PollInterval != "" && err != nil {
		return fmt.Errorf("poll_interval is not a valid duration: %w", err)
	}
	if c.Generator.ErrorRate < 0 || c.Generator.ErrorRate > 1 {
		return fmt.Errorf("generator error_rate must be between 0 and 1, got %v", c.Generator.ErrorRate)
	}
	return nil
}

// PollDuration returns the parsed polling interval.
func (c *Config) PollDuration() time.Duration {
	return utils.ParseDuration(c.PollInterval, 5*time.Second)
}

// GeneratorInterval returns the parsed generator interval.
func (c *Config) GeneratorInterval() time.Duration {
	return utils.ParseDuration(c.Generator.Interval, 2*time.Second)
}
