package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing-dir-config"))
	if err == nil {
		t.Fatalf("Expected an error for an explicit config path that does not exist, got %+v", cfg)
	}

	cfg, err = LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.OutputDirectory != "new_images" {
		t.Errorf("Expected default output directory new_images, got %q", cfg.OutputDirectory)
	}
	if !reflect.DeepEqual(cfg.Compression.ResizeSchedule, []int{75, 50, 25, 10}) {
		t.Errorf("Unexpected resize schedule %v", cfg.Compression.ResizeSchedule)
	}
	if cfg.Performance.WorkerThreads != 1 || cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `output_directory: out
valid_extensions: [JPG, "png"]
compression:
  min_quality: 30
logging:
  level: DEBUG
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IMAGETOOLS_PERFORMANCE_WORKER_THREADS", "4")
	t.Setenv("IMAGETOOLS_METRICS_TEXTFILE", "/tmp/imagetools.prom")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.OutputDirectory != "out" {
		t.Errorf("Expected output directory from file, got %q", cfg.OutputDirectory)
	}
	if !reflect.DeepEqual(cfg.ValidExtensions, []string{".jpg", ".png"}) {
		t.Errorf("Extensions not normalized: %v", cfg.ValidExtensions)
	}
	if cfg.Compression.MinQuality != 30 || cfg.Compression.StartQuality != 100 {
		t.Errorf("Expected file value merged with defaults, got %+v", cfg.Compression)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected level normalized to debug, got %q", cfg.Logging.Level)
	}
	if cfg.Performance.WorkerThreads != 4 || cfg.Metrics.Textfile != "/tmp/imagetools.prom" {
		t.Errorf("Environment overrides not applied: %+v %+v", cfg.Performance, cfg.Metrics)
	}

	policy := cfg.CompressionPolicy()
	if policy.MinQuality != 30 || policy.OutputDirectory != "out" {
		t.Errorf("Unexpected policy %+v", policy)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Defaults", func(c *Config) {}, false},
		{"No output directory", func(c *Config) { c.OutputDirectory = " " }, true},
		{"No extensions", func(c *Config) { c.ValidExtensions = []string{""} }, true},
		{"Bad limit", func(c *Config) { c.Compression.AllowedLimits = []string{"1MB"} }, true},
		{"Bad policy", func(c *Config) { c.Compression.QualityStep = 0 }, true},
		{"Bad log level", func(c *Config) { c.Logging.Level = "trace" }, true},
		{"Bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"Workers fixed up", func(c *Config) { c.Performance.WorkerThreads = -2 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && c.Performance.WorkerThreads < 1 {
				t.Errorf("Worker threads left at %d", c.Performance.WorkerThreads)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	c := DefaultConfig()
	if l, err := c.ParseLimit("1024kb"); err != nil || l.KB() != 1024 {
		t.Errorf("ParseLimit(1024kb) = %v, %v", l, err)
	}
	if _, err := c.ParseLimit("300KB"); err == nil {
		t.Error("Expected 300KB to be rejected by the allow-list")
	}

	c.Compression.AllowedLimits = nil
	if l, err := c.ParseLimit("300"); err != nil || l.KB() != 300 {
		t.Errorf("ParseLimit(300) with no allow-list = %v, %v", l, err)
	}
}

func TestSaveConfigRoundTripsThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := DefaultConfig()
	c.OutputDirectory = "reduced"
	c.Compression.AllowedLimits = []string{"256KB"}

	if err := SaveConfig(c, path); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.OutputDirectory != "reduced" || !reflect.DeepEqual(loaded.Compression.AllowedLimits, []string{"256KB"}) {
		t.Errorf("Unexpected loaded config %+v", loaded)
	}
}
