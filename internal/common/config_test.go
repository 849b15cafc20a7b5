package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfigIsValid(t *testing.T) {
	config := NewDefaultConfig()
	require.NoError(t, config.Validate())
	assert.Equal(t, 300, config.Raster.DPI)
	assert.Equal(t, "jpeg", config.Raster.Format)
	assert.Equal(t, "chi_sim", config.OCR.DefaultLanguage)
}

func TestLoadFromFilesLayering(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	local := filepath.Join(dir, "local.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
[paths]
root = "/srv/corpus"
index = "index.csv"

[raster]
dpi = 200
format = "png"
`), 0644))
	require.NoError(t, os.WriteFile(local, []byte(`
[raster]
dpi = 400

[ocr]
default_language = "eng"
exclude_empty_pages = true
`), 0644))

	config, err := LoadFromFiles(base, local)
	require.NoError(t, err)

	assert.Equal(t, "/srv/corpus", config.Paths.Root)
	assert.Equal(t, "index.csv", config.Paths.Index)
	assert.Equal(t, 400, config.Raster.DPI)
	assert.Equal(t, "png", config.Raster.Format)
	assert.Equal(t, "eng", config.OCR.DefaultLanguage)
	assert.True(t, config.OCR.ExcludeEmptyPages)
	// untouched defaults survive
	assert.Equal(t, "resource", config.Paths.ResourceDir)
	assert.Equal(t, filepath.Join("/srv/corpus", "data"), config.DataPath())
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUIRE_DPI", "150")
	t.Setenv("QUIRE_RASTER_ENGINE", "PDFTOPPM")
	t.Setenv("QUIRE_OCR_LANG", "chi_tra")
	t.Setenv("QUIRE_LOG_OUTPUT", "stdout, file")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 150, config.Raster.DPI)
	assert.Equal(t, "pdftoppm", config.Raster.Engine)
	assert.Equal(t, "chi_tra", config.OCR.DefaultLanguage)
	assert.Equal(t, []string{"stdout", "file"}, config.Logging.Output)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, FlagOverrides{Root: "/tmp/r", Workers: 3, LogLevel: "DEBUG"})

	assert.Equal(t, "/tmp/r", config.Paths.Root)
	assert.Equal(t, 3, config.WorkerCount())
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "index.xlsx", config.Paths.Index)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"dpi too low", func(c *Config) { c.Raster.DPI = 10 }},
		{"unknown format", func(c *Config) { c.Raster.Format = "gif" }},
		{"unknown engine", func(c *Config) { c.Raster.Engine = "ghostscript" }},
		{"empty language", func(c *Config) { c.OCR.DefaultLanguage = "" }},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestIsBadInput(t *testing.T) {
	assert.True(t, IsBadInput(&FormatError{Source: "index.xlsx", Row: 2, Reason: "x"}))
	assert.True(t, IsBadInput(&IOError{Op: "stat", Path: "resource", Missing: true}))
	assert.False(t, IsBadInput(&IOError{Op: "write", Path: "data/x.txt", Err: os.ErrPermission}))
	assert.ErrorIs(t, &IOError{Op: "write", Path: "x", Err: os.ErrPermission}, os.ErrPermission)
}

func TestSafeCallRecoversPanic(t *testing.T) {
	err := SafeCall(nil, "boom", func() error { panic("kaboom") })
	var perr *PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "kaboom", perr.Value)
}

func TestSafeGoSurvivesPanic(t *testing.T) {
	before := GetGoroutineCount()
	done := make(chan struct{})
	SafeGo(nil, "boom", func() {
		defer close(done)
		panic("kaboom")
	})
	<-done
	assert.Equal(t, before+1, GetGoroutineCount())
}
