package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking,omitempty"`
	Search    SearchConfig    `yaml:"search,omitempty"`
	Chat      ChatConfig      `yaml:"chat,omitempty"`
	Data      DataConfig      `yaml:"data,omitempty"`
}

// EmbeddingConfig holds embedding service configuration
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "openai" | "ollama"

	APIKey   string `yaml:"api_key,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Model    string `yaml:"model,omitempty"`

	// Embedding parameters
	Dimensions int `yaml:"dimensions,omitempty"`
	BatchSize  int `yaml:"batch_size,omitempty"`
}

// ChunkingConfig controls how ingested documents are split
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size,omitempty"`    // Target chunk size in runes
	ChunkOverlap int `yaml:"chunk_overlap,omitempty"` // Overlap between consecutive chunks
	MinChunk     int `yaml:"min_chunk,omitempty"`     // Minimum chunk size to emit
}

// SearchConfig holds retrieval configuration
type SearchConfig struct {
	DefaultTopK   int     `yaml:"default_top_k,omitempty"` // Default number of results
	VectorWeight  float32 `yaml:"vector_weight,omitempty"` // Vector search weight (0-1)
	KeywordWeight float32 `yaml:"keyword_weight,omitempty"`
	Rerank        *bool   `yaml:"rerank,omitempty"`       // Rerank candidates before cutting to top-k
	CandidateK    int     `yaml:"candidate_k,omitempty"`  // Candidates retrieved before reranking
	RerankTopK    int     `yaml:"rerank_top_k,omitempty"` // Candidates kept after reranking
}

// ChatConfig holds answer synthesis configuration.
// BaseURL may point at any OpenAI-compatible server, local ones included.
type ChatConfig struct {
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float32 `yaml:"temperature,omitempty"`
}

// DataConfig holds data directory configuration
type DataConfig struct {
	// Dir is the root for per-bank data.
	// If empty, ~/.raglab/data is used.
	Dir string `yaml:"dir,omitempty"`
}

// RerankEnabled reports whether reranking is on (default true)
func (s SearchConfig) RerankEnabled() bool {
	if s.Rerank == nil {
		return true
	}
	return *s.Rerank
}

// Load loads configuration from the default config file
// Default location: ~/.raglab/config/raglab.yaml
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".raglab", "config", "raglab.yaml")
	return LoadFromFile(configPath)
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			homeDir, _ := os.UserHomeDir()
			defaultPath := filepath.Join(homeDir, ".raglab", "config", "raglab.yaml")
			return nil, &ConfigNotFoundError{
				RequestedPath: path,
				DefaultPath:   defaultPath,
			}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ConfigNotFoundError is returned when config file is not found
type ConfigNotFoundError struct {
	RequestedPath string
	DefaultPath   string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found at: %s\n\nDefault location: %s\n\nYou can:\n"+
		"  1. Create the config file at the default location\n"+
		"  2. Specify a custom path with -config flag",
		e.RequestedPath, e.DefaultPath)
}

// IsConfigNotFound checks if error is config not found
func IsConfigNotFound(err error) bool {
	_, ok := err.(*ConfigNotFoundError)
	return ok
}

// expandPath expands ~ and $HOME to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "$HOME/") || path == "$HOME" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			var err error
			homeDir, err = os.UserHomeDir()
			if err != nil {
				return path
			}
		}
		if path == "$HOME" {
			return homeDir
		}
		return filepath.Join(homeDir, path[6:])
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ApplyDefaults sets default values for missing configuration
func (c *Config) ApplyDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.Endpoint == "" {
			c.Embedding.Endpoint = "https://api.openai.com/v1"
		}
		if c.Embedding.Model == "" {
			c.Embedding.Model = "text-embedding-3-small"
		}
		if c.Embedding.Dimensions == 0 {
			c.Embedding.Dimensions = 1536
		}
	case "ollama":
		if c.Embedding.Endpoint == "" {
			c.Embedding.Endpoint = "http://localhost:11434"
		}
		if c.Embedding.Model == "" {
			c.Embedding.Model = "nomic-embed-text"
		}
		if c.Embedding.Dimensions == 0 {
			c.Embedding.Dimensions = 768
		}
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 32
	}

	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = 256
	}
	if c.Chunking.ChunkOverlap == 0 {
		c.Chunking.ChunkOverlap = 50
	}
	if c.Chunking.MinChunk == 0 {
		c.Chunking.MinChunk = 20
	}

	if c.Search.DefaultTopK == 0 {
		c.Search.DefaultTopK = 5
	}
	if c.Search.VectorWeight == 0 && c.Search.KeywordWeight == 0 {
		c.Search.VectorWeight = 0.7
		c.Search.KeywordWeight = 0.3
	}
	if c.Search.CandidateK == 0 {
		c.Search.CandidateK = 20
	}
	if c.Search.RerankTopK == 0 {
		c.Search.RerankTopK = 5
	}

	if c.Chat.BaseURL == "" {
		c.Chat.BaseURL = "https://api.openai.com/v1"
	}
	if c.Chat.Model == "" {
		c.Chat.Model = "gpt-4o-mini"
	}
	if c.Chat.MaxTokens == 0 {
		c.Chat.MaxTokens = 4096
	}

	if c.Data.Dir != "" {
		c.Data.Dir = expandPath(c.Data.Dir)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.APIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("openai provider requires embedding.api_key (or OPENAI_API_KEY)")
		}
	case "ollama":
		// a local ollama server needs no credentials
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got: %d", c.Embedding.Dimensions)
	}
	if c.Embedding.BatchSize <= 0 || c.Embedding.BatchSize > 512 {
		return fmt.Errorf("batch_size must be between 1 and 512, got: %d", c.Embedding.BatchSize)
	}

	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got: %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got: %d", c.Chunking.ChunkOverlap)
	}

	if c.Search.VectorWeight < 0 || c.Search.KeywordWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}

	return nil
}

// DataDir returns the root directory for per-bank data
func (c *Config) DataDir() (string, error) {
	if c.Data.Dir != "" {
		return c.Data.Dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".raglab", "data"), nil
}

const defaultConfigTemplate = `# raglab configuration
#
# Copy and edit this file for your environment.
# Default location: $HOME/.raglab/config/raglab.yaml

embedding:
  # Provider: "openai" or "ollama"
  provider: openai

  # OpenAI-compatible embedding endpoint
  api_key: your-openai-api-key
  endpoint: https://api.openai.com/v1
  model: text-embedding-3-small
  dimensions: 1536
  batch_size: 32

  # Local Ollama (alternative)
  # provider: ollama
  # endpoint: http://localhost:11434
  # model: nomic-embed-text
  # dimensions: 768

chunking:
  chunk_size: 256
  chunk_overlap: 50

search:
  default_top_k: 5
  vector_weight: 0.7
  keyword_weight: 0.3
  rerank: true
  candidate_k: 20
  rerank_top_k: 5

chat:
  # Any OpenAI-compatible chat endpoint, local servers included
  base_url: https://api.openai.com/v1
  api_key: your-openai-api-key
  model: gpt-4o-mini
  max_tokens: 4096
`

// WriteDefaultTemplate creates a default configuration file if it does not exist.
// It returns true if a file was created, false if it already existed.
func WriteDefaultTemplate(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("failed to write config template: %w", err)
	}

	return true, nil
}
