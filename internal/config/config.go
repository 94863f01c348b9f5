// Package config provides configuration loading and structs for the askpdf server and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug" env:"ASKPDF_DEBUG"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Index      IndexConfig      `yaml:"index"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host                  string `yaml:"host" env:"ASKPDF_HOST"`
	Port                  int    `yaml:"port" env:"ASKPDF_PORT"`
	MaxUploadMB           int    `yaml:"max_upload_mb"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

// StorageConfig holds paths for the corpus database and uploaded files.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" env:"ASKPDF_DATABASE_PATH"`
	UploadDir    string `yaml:"upload_dir" env:"ASKPDF_UPLOAD_DIR"`
	// Persist enables the SQLite tier of the index cache.
	Persist *bool `yaml:"persist"`
}

// PersistOrDefault returns whether built corpora are persisted; defaults to true when unset.
func (s *StorageConfig) PersistOrDefault() bool {
	if s.Persist != nil {
		return *s.Persist
	}
	return true
}

// ChunkingConfig holds chunk size and overlap, both in runes.
type ChunkingConfig struct {
	ChunkSize    int  `yaml:"chunk_size"`
	ChunkOverlap *int `yaml:"chunk_overlap"`
}

// OverlapOrDefault returns the configured overlap, or 100 when unset.
func (c *ChunkingConfig) OverlapOrDefault() int {
	if c.ChunkOverlap != nil {
		return *c.ChunkOverlap
	}
	return defaultChunkOverlap
}

// RetrievalConfig holds question answering settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
	// SummaryPrefixChars bounds how much of the corpus is sent for a summary.
	SummaryPrefixChars int `yaml:"summary_prefix_chars"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider" env:"ASKPDF_EMBEDDING_PROVIDER"`
	Model             string  `yaml:"model" env:"ASKPDF_EMBEDDING_MODEL"`
	BaseURL           string  `yaml:"base_url" env:"ASKPDF_EMBEDDING_URL"`
	APIKey            string  `yaml:"api_key" env:"ASKPDF_EMBEDDING_API_KEY"`
	ModelPath         string  `yaml:"model_path"`
	Dimensions        int     `yaml:"dimensions"`
	MaxTokens         int     `yaml:"max_tokens"`
	CacheSize         int     `yaml:"cache_size"`
	Concurrency       int     `yaml:"concurrency"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	DocumentPrefix    string  `yaml:"document_prefix"`
	QueryPrefix       string  `yaml:"query_prefix"`
}

// GenerationConfig selects and configures the generation provider.
type GenerationConfig struct {
	Provider       string  `yaml:"provider" env:"ASKPDF_GENERATION_PROVIDER"`
	Model          string  `yaml:"model" env:"ASKPDF_GENERATION_MODEL"`
	BaseURL        string  `yaml:"base_url" env:"ASKPDF_GENERATION_URL"`
	APIKey         string  `yaml:"api_key" env:"ASKPDF_GENERATION_API_KEY"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// IndexConfig holds vector index and cache settings.
type IndexConfig struct {
	Backend       string `yaml:"backend" env:"ASKPDF_INDEX_BACKEND"`
	CacheMaxBytes int64  `yaml:"cache_max_bytes"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories    []string `yaml:"directories"`
	Extensions     []string `yaml:"extensions"`
	Recursive      *bool    `yaml:"recursive"`
	DebounceMillis int      `yaml:"debounce_millis"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies ASKPDF_* environment
// overrides and defaults, validates, and expands paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := finish(&cfg, filepath.Dir(path)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv builds a config from defaults and ASKPDF_* environment variables only.
// Relative paths are resolved against the working directory.
func FromEnv() (*Config, error) {
	var cfg Config
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	if err := finish(&cfg, wd); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func finish(cfg *Config, configDir string) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.UploadDir = expandPath(cfg.Storage.UploadDir, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}
	return nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	overlap := c.Chunking.OverlapOrDefault()
	if c.Chunking.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunking.chunk_size must be positive"))
	}
	if overlap < 0 || overlap >= c.Chunking.ChunkSize {
		errs = append(errs, fmt.Errorf("chunking.chunk_overlap must be in [0, chunk_size), got %d", overlap))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive"))
	}
	if !oneOf(c.Embedding.Provider, EmbeddingProviders) {
		errs = append(errs, fmt.Errorf("embedding.provider %q is not one of %s", c.Embedding.Provider, strings.Join(EmbeddingProviders, ", ")))
	}
	if !oneOf(c.Generation.Provider, GenerationProviders) {
		errs = append(errs, fmt.Errorf("generation.provider %q is not one of %s", c.Generation.Provider, strings.Join(GenerationProviders, ", ")))
	}
	if !oneOf(c.Index.Backend, IndexBackends) {
		errs = append(errs, fmt.Errorf("index.backend %q is not one of %s", c.Index.Backend, strings.Join(IndexBackends, ", ")))
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		errs = append(errs, fmt.Errorf("generation.temperature must be in [0, 2]"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// SaveWatchDirectories records dirs as watch.directories in the config file at
// path, creating the file if needed. Only that key is rewritten; the rest of
// the file, comments included, is kept as written. Environment overrides and
// defaults never reach the file.
func SaveWatchDirectories(path string, dirs []string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("failed to update config: top level is not a mapping")
	}
	watch := mappingValue(root, "watch")
	if watch.Kind != yaml.MappingNode {
		*watch = yaml.Node{Kind: yaml.MappingNode}
	}
	if dirs == nil {
		dirs = []string{}
	}
	var list yaml.Node
	if err := list.Encode(dirs); err != nil {
		return fmt.Errorf("failed to encode directories: %w", err)
	}
	*mappingValue(watch, "directories") = list

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// mappingValue returns the value node for key in m, appending an empty one if missing.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	v := &yaml.Node{Kind: yaml.MappingNode}
	m.Content = append(m.Content, k, v)
	return v
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
