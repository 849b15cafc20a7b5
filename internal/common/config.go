package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Paths    PathsConfig    `toml:"paths"`
	Raster   RasterConfig   `toml:"raster"`
	OCR      OCRConfig      `toml:"ocr"`
	Workers  WorkersConfig  `toml:"workers"`
	Storage  StorageConfig  `toml:"storage"`
	Schedule ScheduleConfig `toml:"schedule"`
	Progress ProgressConfig `toml:"progress"`
	Logging  LoggingConfig  `toml:"logging"`
}

// PathsConfig locates the index and the root directory layout
type PathsConfig struct {
	Root        string `toml:"root" validate:"required"`      // Root directory holding resource/, data/ and temp/
	Index       string `toml:"index" validate:"required"`     // Index spreadsheet (.xlsx, .csv, .yaml)
	Fallback    string `toml:"fallback"`                      // Optional per-source parameter table
	ResourceDir string `toml:"resource_dir" validate:"required"` // Source documents, relative to root
	DataDir     string `toml:"data_dir" validate:"required"`  // Normalized article files, relative to root
	TempDir     string `toml:"temp_dir" validate:"required"`  // Page image cache, relative to root
}

// RasterConfig controls page rasterization
type RasterConfig struct {
	DPI         int    `toml:"dpi" validate:"min=50,max=1200"`
	Format      string `toml:"format" validate:"oneof=png jpeg tiff ppm"`
	Engine      string `toml:"engine" validate:"oneof=pdftocairo pdftoppm embedded"`
	PopplerPath string `toml:"poppler_path"` // Directory holding the poppler binaries; empty = PATH
}

// OCRConfig controls line recognition
type OCRConfig struct {
	DefaultLanguage   string `toml:"default_language" validate:"required"` // Tesseract language, e.g. "chi_sim" or "chi_sim+eng"
	TessdataPath      string `toml:"tessdata_path"`                       // Empty = tesseract default
	PageSegMode       int    `toml:"page_seg_mode" validate:"min=0,max=13"`
	ExcludeEmptyPages bool   `toml:"exclude_empty_pages"` // Leave zero-line pages out of the article average
}

// WorkersConfig sizes the per-file worker pool
type WorkersConfig struct {
	Count int `toml:"count" validate:"min=0"` // 0 = runtime.NumCPU()
}

// StorageConfig holds the run ledger settings
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Enabled        bool   `toml:"enabled"`
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// ScheduleConfig drives `quire schedule`
type ScheduleConfig struct {
	Cron string `toml:"cron"` // Standard 5-field cron expression
}

// ProgressConfig throttles progress output
type ProgressConfig struct {
	TickInterval string `toml:"tick_interval"` // e.g. "500ms"; empty = log every tick
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05"
	Dir        string   `toml:"dir"`         // Log directory; empty = ./logs next to the executable
}

// NewDefaultConfig returns the configuration used before any file is applied
func NewDefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Root:        ".",
			Index:       "index.xlsx",
			ResourceDir: "resource",
			DataDir:     "data",
			TempDir:     "temp",
		},
		Raster: RasterConfig{
			DPI:    300,
			Format: "jpeg",
			Engine: "pdftocairo",
		},
		OCR: OCRConfig{
			DefaultLanguage: "chi_sim",
			PageSegMode:     3, // fully automatic page segmentation
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Enabled: true,
				Path:    "./ledger",
			},
		},
		Schedule: ScheduleConfig{
			Cron: "0 */6 * * *",
		},
		Progress: ProgressConfig{
			TickInterval: "500ms",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFile loads configuration from a single file
func LoadFromFile(path string) (*Config, error) {
	return LoadFromFiles(path)
}

// LoadFromFiles applies defaults, then each file in order, then environment overrides.
// Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies QUIRE_* environment variables
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("QUIRE_ROOT"); v != "" {
		config.Paths.Root = v
	}
	if v := os.Getenv("QUIRE_INDEX"); v != "" {
		config.Paths.Index = v
	}
	if v := os.Getenv("QUIRE_FALLBACK"); v != "" {
		config.Paths.Fallback = v
	}
	if v := os.Getenv("QUIRE_DPI"); v != "" {
		if dpi, err := strconv.Atoi(v); err == nil {
			config.Raster.DPI = dpi
		}
	}
	if v := os.Getenv("QUIRE_RASTER_FORMAT"); v != "" {
		config.Raster.Format = strings.ToLower(v)
	}
	if v := os.Getenv("QUIRE_RASTER_ENGINE"); v != "" {
		config.Raster.Engine = strings.ToLower(v)
	}
	if v := os.Getenv("QUIRE_POPPLER_PATH"); v != "" {
		config.Raster.PopplerPath = v
	}
	if v := os.Getenv("QUIRE_OCR_LANG"); v != "" {
		config.OCR.DefaultLanguage = v
	}
	if v := os.Getenv("QUIRE_TESSDATA"); v != "" {
		config.OCR.TessdataPath = v
	} else if v := os.Getenv("TESSDATA_PREFIX"); v != "" && config.OCR.TessdataPath == "" {
		config.OCR.TessdataPath = v
	}
	if v := os.Getenv("QUIRE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Workers.Count = n
		}
	}
	if v := os.Getenv("QUIRE_LOG_LEVEL"); v != "" {
		config.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("QUIRE_LOG_OUTPUT"); v != "" {
		config.Logging.Output = splitString(v, ",")
	}
}

// FlagOverrides carries command-line values; zero values leave the config untouched
type FlagOverrides struct {
	Root     string
	Index    string
	Fallback string
	Workers  int
	LogLevel string
}

// ApplyFlagOverrides applies command-line flags (highest priority)
func ApplyFlagOverrides(config *Config, flags FlagOverrides) {
	if flags.Root != "" {
		config.Paths.Root = flags.Root
	}
	if flags.Index != "" {
		config.Paths.Index = flags.Index
	}
	if flags.Fallback != "" {
		config.Paths.Fallback = flags.Fallback
	}
	if flags.Workers > 0 {
		config.Workers.Count = flags.Workers
	}
	if flags.LogLevel != "" {
		config.Logging.Level = strings.ToLower(flags.LogLevel)
	}
}

// Validate checks the struct tags of the configuration
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// WorkerCount resolves the pool size
func (c *Config) WorkerCount() int {
	if c.Workers.Count > 0 {
		return c.Workers.Count
	}
	return runtime.NumCPU()
}

// ResourcePath returns the absolute-or-root-relative source directory
func (c *Config) ResourcePath() string { return c.underRoot(c.Paths.ResourceDir) }

// DataPath returns the normalized article directory
func (c *Config) DataPath() string { return c.underRoot(c.Paths.DataDir) }

// TempPath returns the page image cache directory
func (c *Config) TempPath() string { return c.underRoot(c.Paths.TempDir) }

// IndexPath returns the index file location
func (c *Config) IndexPath() string { return c.underRoot(c.Paths.Index) }

// FallbackPath returns the parameter fallback table location, empty when not configured
func (c *Config) FallbackPath() string {
	if c.Paths.Fallback == "" {
		return ""
	}
	return c.underRoot(c.Paths.Fallback)
}

func (c *Config) underRoot(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.Root, p)
}

// splitString splits a string by separator and trims whitespace
func splitString(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
