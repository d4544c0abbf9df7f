package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"imagetools-go/internal/compressor"
	"imagetools-go/internal/logger"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the main configuration structure
type Config struct {
	OutputDirectory string            `mapstructure:"output_directory" yaml:"output_directory"`
	FontsDirectory  string            `mapstructure:"fonts_directory" yaml:"fonts_directory"`
	ValidExtensions []string          `mapstructure:"valid_extensions" yaml:"valid_extensions"`
	Compression     CompressionConfig `mapstructure:"compression" yaml:"compression"`
	Performance     PerformanceConfig `mapstructure:"performance" yaml:"performance"`
	Logging         LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Metrics         MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
}

// CompressionConfig contains the size reduction settings
type CompressionConfig struct {
	AllowedLimits    []string `mapstructure:"allowed_limits" yaml:"allowed_limits"`
	StartQuality     int      `mapstructure:"start_quality" yaml:"start_quality"`
	QualityStep      int      `mapstructure:"quality_step" yaml:"quality_step"`
	MinQuality       int      `mapstructure:"min_quality" yaml:"min_quality"`
	ForcedMinQuality int      `mapstructure:"forced_min_quality" yaml:"forced_min_quality"`
	ResizeThreshold  int      `mapstructure:"resize_threshold" yaml:"resize_threshold"`
	ResizeSchedule   []int    `mapstructure:"resize_schedule" yaml:"resize_schedule"`
	PreShrinkPercent int      `mapstructure:"pre_shrink_percent" yaml:"pre_shrink_percent"`
	PreShrinkPixels  int      `mapstructure:"pre_shrink_pixels" yaml:"pre_shrink_pixels"`
}

// PerformanceConfig contains performance tuning settings
type PerformanceConfig struct {
	WorkerThreads int `mapstructure:"worker_threads" yaml:"worker_threads"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	FilePath   string `mapstructure:"file_path" yaml:"file_path"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// MetricsConfig contains the Prometheus textfile export settings
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	policy := compressor.DefaultPolicy()
	return &Config{
		OutputDirectory: policy.OutputDirectory,
		FontsDirectory:  "fonts",
		ValidExtensions: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp"},
		Compression: CompressionConfig{
			AllowedLimits:    []string{"512KB", "1024KB", "2048KB"},
			StartQuality:     policy.StartQuality,
			QualityStep:      policy.QualityStep,
			MinQuality:       policy.MinQuality,
			ForcedMinQuality: policy.ForcedMinQuality,
			ResizeThreshold:  policy.ResizeThreshold,
			ResizeSchedule:   policy.ResizeSchedule,
			PreShrinkPercent: policy.PreShrinkPercent,
			PreShrinkPixels:  policy.PreShrinkPixels,
		},
		Performance: PerformanceConfig{
			WorkerThreads: 1,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config file in current directory and home directory
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.imagetools")
		v.AddConfigPath("/etc/imagetools")
	}

	setDefaults(v, DefaultConfig())

	// Enable environment variable support
	v.SetEnvPrefix("IMAGETOOLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// setDefaults registers every key so environment variables can override keys absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("output_directory", d.OutputDirectory)
	v.SetDefault("fonts_directory", d.FontsDirectory)
	v.SetDefault("valid_extensions", d.ValidExtensions)

	v.SetDefault("compression.allowed_limits", d.Compression.AllowedLimits)
	v.SetDefault("compression.start_quality", d.Compression.StartQuality)
	v.SetDefault("compression.quality_step", d.Compression.QualityStep)
	v.SetDefault("compression.min_quality", d.Compression.MinQuality)
	v.SetDefault("compression.forced_min_quality", d.Compression.ForcedMinQuality)
	v.SetDefault("compression.resize_threshold", d.Compression.ResizeThreshold)
	v.SetDefault("compression.resize_schedule", d.Compression.ResizeSchedule)
	v.SetDefault("compression.pre_shrink_percent", d.Compression.PreShrinkPercent)
	v.SetDefault("compression.pre_shrink_pixels", d.Compression.PreShrinkPixels)

	v.SetDefault("performance.worker_threads", d.Performance.WorkerThreads)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file_path", d.Logging.FilePath)
	v.SetDefault("logging.max_size", d.Logging.MaxSize)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age", d.Logging.MaxAge)
	v.SetDefault("logging.compress", d.Logging.Compress)

	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OutputDirectory) == "" {
		return fmt.Errorf("output_directory is required")
	}
	c.OutputDirectory = expandPath(c.OutputDirectory)
	c.FontsDirectory = expandPath(c.FontsDirectory)

	c.ValidExtensions = normalizeExtensions(c.ValidExtensions)
	if len(c.ValidExtensions) == 0 {
		return fmt.Errorf("valid_extensions must not be empty")
	}

	for i, l := range c.Compression.AllowedLimits {
		limit, err := compressor.ParseSizeLimit(l)
		if err != nil {
			return fmt.Errorf("invalid compression.allowed_limits entry: %w", err)
		}
		c.Compression.AllowedLimits[i] = limit.String()
	}
	if err := c.CompressionPolicy().Validate(); err != nil {
		return fmt.Errorf("invalid compression settings: %w", err)
	}

	if c.Performance.WorkerThreads <= 0 {
		c.Performance.WorkerThreads = 1
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Logging.Format)
	}

	return nil
}

// CompressionPolicy returns the reduction loop parameters.
func (c *Config) CompressionPolicy() compressor.Policy {
	return compressor.Policy{
		OutputDirectory:  c.OutputDirectory,
		StartQuality:     c.Compression.StartQuality,
		QualityStep:      c.Compression.QualityStep,
		MinQuality:       c.Compression.MinQuality,
		ForcedMinQuality: c.Compression.ForcedMinQuality,
		ResizeThreshold:  c.Compression.ResizeThreshold,
		ResizeSchedule:   slices.Clone(c.Compression.ResizeSchedule),
		PreShrinkPercent: c.Compression.PreShrinkPercent,
		PreShrinkPixels:  c.Compression.PreShrinkPixels,
	}
}

// ParseLimit parses a size limit and checks it against compression.allowed_limits.
// An empty allow-list accepts any positive limit.
func (c *Config) ParseLimit(s string) (compressor.SizeLimit, error) {
	limit, err := compressor.ParseSizeLimit(s)
	if err != nil {
		return compressor.SizeLimit{}, err
	}
	if len(c.Compression.AllowedLimits) > 0 && !slices.Contains(c.Compression.AllowedLimits, limit.String()) {
		return compressor.SizeLimit{}, fmt.Errorf("size limit %s is not one of %s", limit, strings.Join(c.Compression.AllowedLimits, ", "))
	}
	return limit, nil
}

// LoggerConfig converts the logging section for logger.NewLogger.
func (c *Config) LoggerConfig(console bool) logger.LoggerConfig {
	return logger.LoggerConfig{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
		Compress:   c.Logging.Compress,
		Console:    console,
	}
}

// SaveConfig writes the configuration as YAML to path.
func SaveConfig(c *Config, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Helper functions

func expandPath(path string) string {
	if path == "" {
		return path
	}
	expanded := os.ExpandEnv(path)
	if strings.HasPrefix(expanded, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			expanded = filepath.Join(home, expanded[1:])
		}
	}
	return expanded
}

func normalizeExtensions(extensions []string) []string {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return normalized
}
