// Package config loads doctext configuration from defaults, YAML files and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectConfigName is the per-collection configuration file name.
const ProjectConfigName = ".doctext.yaml"

// DefaultIndexDirName is the index directory created inside the collection
// root when index.dir is not configured.
const DefaultIndexDirName = ".doctext"

// Config represents the complete doctext configuration.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Source  SourceConfig `yaml:"source" json:"source"`
	Index   IndexConfig  `yaml:"index" json:"index"`
	Search  SearchConfig `yaml:"search" json:"search"`
	Cache   CacheConfig  `yaml:"cache" json:"cache"`
	Watch   WatchConfig  `yaml:"watch" json:"watch"`
	Server  ServerConfig `yaml:"server" json:"server"`
}

// SourceConfig describes the document collection.
type SourceConfig struct {
	// Dir is the collection root. Document IDs are paths relative to it.
	Dir string `yaml:"dir" json:"dir"`
	// Extensions lists the file extensions treated as documents.
	Extensions []string `yaml:"extensions" json:"extensions"`
	// Exclude lists glob patterns (matched against the relative path) to skip.
	Exclude []string `yaml:"exclude" json:"exclude"`
	// MaxFileSize is the largest document, in bytes, that will be read.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
}

// IndexConfig configures the persistent index.
type IndexConfig struct {
	// Dir holds index.db and the writer lock.
	Dir string `yaml:"dir" json:"dir"`
	// Workers bounds concurrent document extraction (0 = NumCPU).
	Workers int `yaml:"workers" json:"workers"`
	// Stemmer selects the stemming algorithm: "porter" or "snowball".
	// Changing it requires a full rebuild (index --force).
	Stemmer string `yaml:"stemmer" json:"stemmer"`
	// KeepRemoved keeps documents whose source file disappeared.
	KeepRemoved bool `yaml:"keep_removed" json:"keep_removed"`
}

// SearchConfig configures ranking and result presentation.
type SearchConfig struct {
	TopK          int     `yaml:"top_k" json:"top_k"`
	SnippetWindow int     `yaml:"snippet_window" json:"snippet_window"`
	BM25K1        float64 `yaml:"bm25_k1" json:"bm25_k1"`
	BM25B         float64 `yaml:"bm25_b" json:"bm25_b"`
}

// CacheConfig sizes in-memory caches.
type CacheConfig struct {
	// Documents is the number of documents (raw text + token table) kept
	// in the snippet cache.
	Documents int `yaml:"documents" json:"documents"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce" json:"debounce"`
}

// ServerConfig configures `doctext serve`.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	HTTPAddr  string `yaml:"http_addr" json:"http_addr"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// defaultExcludePatterns are always excluded.
var defaultExcludePatterns = []string{
	".git/**",
	DefaultIndexDirName + "/**",
	"**/node_modules/**",
}

// NewConfig returns a Config with default values for a collection rooted
// at the current directory.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Source: SourceConfig{
			Dir:         ".",
			Extensions:  []string{".txt", ".text", ".md", ".markdown"},
			Exclude:     append([]string(nil), defaultExcludePatterns...),
			MaxFileSize: 32 << 20,
		},
		Index: IndexConfig{
			Workers: runtime.NumCPU(),
			Stemmer: "porter",
		},
		Search: SearchConfig{
			TopK:          10,
			SnippetWindow: 120,
			BM25K1:        1.2,
			BM25B:         0.75,
		},
		Cache: CacheConfig{
			Documents: 256,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/doctext/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/doctext/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "doctext", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "doctext", "config.yaml")
	}
	return filepath.Join(home, ".config", "doctext", "config.yaml")
}

// Load loads configuration for the collection rooted at dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/doctext/config.yaml)
//  3. Project config (.doctext.yaml in dir)
//  4. Environment variables (DOCTEXT_*)
//
// Relative source and index directories are resolved against dir.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	projectPath := filepath.Join(dir, ProjectConfigName)
	if fileExists(projectPath) {
		if err := cfg.loadYAML(projectPath); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	cfg.resolvePaths(dir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Source.Dir != "" {
		c.Source.Dir = other.Source.Dir
	}
	if len(other.Source.Extensions) > 0 {
		c.Source.Extensions = other.Source.Extensions
	}
	if len(other.Source.Exclude) > 0 {
		// Merge with defaults rather than replace
		c.Source.Exclude = append(c.Source.Exclude, other.Source.Exclude...)
	}
	if other.Source.MaxFileSize != 0 {
		c.Source.MaxFileSize = other.Source.MaxFileSize
	}

	if other.Index.Dir != "" {
		c.Index.Dir = other.Index.Dir
	}
	if other.Index.Workers != 0 {
		c.Index.Workers = other.Index.Workers
	}
	if other.Index.Stemmer != "" {
		c.Index.Stemmer = other.Index.Stemmer
	}
	if other.Index.KeepRemoved {
		c.Index.KeepRemoved = true
	}

	if other.Search.TopK != 0 {
		c.Search.TopK = other.Search.TopK
	}
	if other.Search.SnippetWindow != 0 {
		c.Search.SnippetWindow = other.Search.SnippetWindow
	}
	if other.Search.BM25K1 != 0 {
		c.Search.BM25K1 = other.Search.BM25K1
	}
	if other.Search.BM25B != 0 {
		c.Search.BM25B = other.Search.BM25B
	}

	if other.Cache.Documents != 0 {
		c.Cache.Documents = other.Cache.Documents
	}
	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.HTTPAddr != "" {
		c.Server.HTTPAddr = other.Server.HTTPAddr
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies DOCTEXT_* environment variables.
// Unparseable numeric values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCTEXT_SOURCE_DIR"); v != "" {
		c.Source.Dir = v
	}
	if v := os.Getenv("DOCTEXT_INDEX_DIR"); v != "" {
		c.Index.Dir = v
	}
	if v := os.Getenv("DOCTEXT_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.TopK = n
		}
	}
	if v := os.Getenv("DOCTEXT_SNIPPET_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.SnippetWindow = n
		}
	}
	if v := os.Getenv("DOCTEXT_STEMMER"); v != "" {
		c.Index.Stemmer = strings.ToLower(v)
	}
	if v := os.Getenv("DOCTEXT_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// resolvePaths makes source and index directories absolute relative to base.
func (c *Config) resolvePaths(base string) {
	if !filepath.IsAbs(c.Source.Dir) {
		c.Source.Dir = filepath.Join(base, c.Source.Dir)
	}
	c.Source.Dir = filepath.Clean(c.Source.Dir)

	if c.Index.Dir == "" {
		c.Index.Dir = filepath.Join(c.Source.Dir, DefaultIndexDirName)
	} else if !filepath.IsAbs(c.Index.Dir) {
		c.Index.Dir = filepath.Join(base, c.Index.Dir)
	}
	c.Index.Dir = filepath.Clean(c.Index.Dir)
}

// IndexPath returns the SQLite database path inside the index directory.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Index.Dir, "index.db")
}

// LockPath returns the writer lock file path inside the index directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Index.Dir, "indexing.lock")
}

// WatchDebounce parses Watch.Debounce. Validate guarantees it parses.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Search.SnippetWindow <= 0 {
		return fmt.Errorf("search.snippet_window must be positive, got %d", c.Search.SnippetWindow)
	}
	if c.Search.BM25K1 < 0 {
		return fmt.Errorf("search.bm25_k1 must be non-negative, got %f", c.Search.BM25K1)
	}
	if c.Search.BM25B < 0 || c.Search.BM25B > 1 {
		return fmt.Errorf("search.bm25_b must be between 0 and 1, got %f", c.Search.BM25B)
	}

	switch c.Index.Stemmer {
	case "porter", "snowball":
	default:
		return fmt.Errorf("index.stemmer must be 'porter' or 'snowball', got %s", c.Index.Stemmer)
	}
	if c.Index.Workers < 0 {
		return fmt.Errorf("index.workers must be non-negative, got %d", c.Index.Workers)
	}

	if len(c.Source.Extensions) == 0 {
		return fmt.Errorf("source.extensions must not be empty")
	}
	if c.Source.MaxFileSize <= 0 {
		return fmt.Errorf("source.max_file_size must be positive, got %d", c.Source.MaxFileSize)
	}
	for _, pattern := range c.Source.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("source.exclude pattern %q is invalid: %w", pattern, err)
		}
	}

	if c.Cache.Documents < 0 {
		return fmt.Errorf("cache.documents must be non-negative, got %d", c.Cache.Documents)
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("watch.debounce is not a duration: %w", err)
	}

	if c.Server.Transport != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
