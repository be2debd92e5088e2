package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config lookup at an empty directory so a
// developer's own ~/.config/doctext does not leak into tests.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, 10, cfg.Search.TopK)
	assert.Equal(t, 120, cfg.Search.SnippetWindow)
	assert.Equal(t, 1.2, cfg.Search.BM25K1)
	assert.Equal(t, 0.75, cfg.Search.BM25B)
	assert.Equal(t, "porter", cfg.Index.Stemmer)
	assert.Equal(t, runtime.NumCPU(), cfg.Index.Workers)
	assert.False(t, cfg.Index.KeepRemoved)
	assert.Contains(t, cfg.Source.Extensions, ".txt")
	assert.Contains(t, cfg.Source.Exclude, ".git/**")
	assert.Equal(t, "stdio", cfg.Server.Transport)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFile_ResolvesPathsAgainstDir(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	// When: loading from a directory without .doctext.yaml
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: the collection root is dir and the index lives inside it
	assert.Equal(t, filepath.Clean(dir), cfg.Source.Dir)
	assert.Equal(t, filepath.Join(dir, DefaultIndexDirName), cfg.Index.Dir)
	assert.Equal(t, filepath.Join(dir, DefaultIndexDirName, "index.db"), cfg.IndexPath())
	assert.Equal(t, filepath.Join(dir, DefaultIndexDirName, "indexing.lock"), cfg.LockPath())
}

func TestLoad_ProjectConfigOverridesDefaults(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	// Given: a project config with custom values
	yaml := `
source:
  dir: books
  exclude:
    - "drafts/**"
index:
  dir: idx
  stemmer: snowball
search:
  top_k: 5
  snippet_window: 40
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte(yaml), 0o644))

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: values are merged and relative paths resolved
	assert.Equal(t, filepath.Join(dir, "books"), cfg.Source.Dir)
	assert.Equal(t, filepath.Join(dir, "idx"), cfg.Index.Dir)
	assert.Equal(t, "snowball", cfg.Index.Stemmer)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, 40, cfg.Search.SnippetWindow)
	assert.Equal(t, 1.2, cfg.Search.BM25K1, "unset values keep defaults")
	assert.Contains(t, cfg.Source.Exclude, "drafts/**")
	assert.Contains(t, cfg.Source.Exclude, ".git/**", "excludes merge with defaults")
}

func TestLoad_UserConfigThenProjectThenEnv(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "doctext"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "doctext", "config.yaml"),
		[]byte("search:\n  top_k: 7\n  snippet_window: 90\n"), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName),
		[]byte("search:\n  top_k: 8\n"), 0o644))
	t.Setenv("DOCTEXT_SNIPPET_WINDOW", "33")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Search.TopK, "project beats user")
	assert.Equal(t, 33, cfg.Search.SnippetWindow, "env beats everything")
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	idx := t.TempDir()

	t.Setenv("DOCTEXT_INDEX_DIR", idx)
	t.Setenv("DOCTEXT_TOP_K", "3")
	t.Setenv("DOCTEXT_STEMMER", "SNOWBALL")
	t.Setenv("DOCTEXT_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, idx, cfg.Index.Dir)
	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, "snowball", cfg.Index.Stemmer)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte("search: [oops"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero top_k", func(c *Config) { c.Search.TopK = 0 }, "top_k"},
		{"negative window", func(c *Config) { c.Search.SnippetWindow = -1 }, "snippet_window"},
		{"b above one", func(c *Config) { c.Search.BM25B = 1.5 }, "bm25_b"},
		{"unknown stemmer", func(c *Config) { c.Index.Stemmer = "lancaster" }, "stemmer"},
		{"no extensions", func(c *Config) { c.Source.Extensions = nil }, "extensions"},
		{"bad exclude", func(c *Config) { c.Source.Exclude = []string{"[oops"} }, "exclude"},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "soon" }, "debounce"},
		{"bad transport", func(c *Config) { c.Server.Transport = "sse" }, "transport"},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "loud" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestWatchDebounce(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce())

	cfg.Watch.Debounce = "2s"
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce())
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	// Given: a config with a custom value written as project config
	cfg := NewConfig()
	cfg.Search.TopK = 4
	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectConfigName)))

	// When: loading it back
	loaded, err := Load(dir)
	require.NoError(t, err)

	// Then: the value survives
	assert.Equal(t, 4, loaded.Search.TopK)
}
