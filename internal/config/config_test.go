package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raglab.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile_OllamaDefaults(t *testing.T) {
	path := writeConfig(t, "embedding:\n  provider: ollama\n")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Embedding.Endpoint != "http://localhost:11434" {
		t.Errorf("unexpected endpoint: %s", cfg.Embedding.Endpoint)
	}
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("unexpected model: %s", cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimensions != 768 {
		t.Errorf("unexpected dimensions: %d", cfg.Embedding.Dimensions)
	}
	if cfg.Chunking.ChunkSize != 256 || cfg.Chunking.ChunkOverlap != 50 {
		t.Errorf("unexpected chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.Search.DefaultTopK != 5 {
		t.Errorf("unexpected default_top_k: %d", cfg.Search.DefaultTopK)
	}
	if cfg.Search.VectorWeight != 0.7 || cfg.Search.KeywordWeight != 0.3 {
		t.Errorf("unexpected search weights: %+v", cfg.Search)
	}
	if cfg.Search.CandidateK != 20 || cfg.Search.RerankTopK != 5 {
		t.Errorf("unexpected rerank defaults: %+v", cfg.Search)
	}
	if !cfg.Search.RerankEnabled() {
		t.Error("rerank should default to enabled")
	}
	if cfg.Chat.MaxTokens != 4096 {
		t.Errorf("unexpected chat max_tokens: %d", cfg.Chat.MaxTokens)
	}
}

func TestLoadFromFile_RerankDisabled(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: ollama
search:
  rerank: false
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Search.RerankEnabled() {
		t.Error("rerank: false should disable reranking")
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !IsConfigNotFound(err) {
		t.Errorf("expected ConfigNotFoundError, got %T", err)
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "embedding: [not: valid")
	if _, err := LoadFromFile(path); err != nil {
		if IsConfigNotFound(err) {
			t.Error("parse error must not be reported as not-found")
		}
		return
	}
	t.Fatal("expected parse error")
}

func TestValidate_OpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := &Config{Embedding: EmbeddingConfig{Provider: "openai"}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when openai has no api key")
	}

	cfg.Embedding.APIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with api key set: %v", err)
	}
}

func TestValidate_OpenAIKeyFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg := &Config{Embedding: EmbeddingConfig{Provider: "openai"}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with env key: %v", err)
	}
}

func TestValidate_UnsupportedProvider(t *testing.T) {
	cfg := &Config{Embedding: EmbeddingConfig{Provider: "mystery", Dimensions: 8, BatchSize: 1}}
	cfg.Chunking = ChunkingConfig{ChunkSize: 256, ChunkOverlap: 50}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestValidate_OverlapBounds(t *testing.T) {
	cfg := &Config{Embedding: EmbeddingConfig{Provider: "ollama"}}
	cfg.ApplyDefaults()

	cfg.Chunking.ChunkOverlap = cfg.Chunking.ChunkSize
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when overlap equals chunk size")
	}

	cfg.Chunking.ChunkOverlap = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative overlap")
	}
}

func TestDataDir_ConfiguredOverride(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Data: DataConfig{Dir: dir}}
	got, err := cfg.DataDir()
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if got != dir {
		t.Errorf("expected configured dir %s, got %s", dir, got)
	}
}

func TestWriteDefaultTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "raglab.yaml")

	created, err := WriteDefaultTemplate(path)
	if err != nil {
		t.Fatalf("WriteDefaultTemplate failed: %v", err)
	}
	if !created {
		t.Error("expected template to be created")
	}

	// Second call must not overwrite.
	created, err = WriteDefaultTemplate(path)
	if err != nil {
		t.Fatalf("second WriteDefaultTemplate failed: %v", err)
	}
	if created {
		t.Error("expected existing file to be left alone")
	}

	// The template itself must load once a key is present.
	t.Setenv("OPENAI_API_KEY", "sk-test")
	if _, err := LoadFromFile(path); err != nil {
		t.Errorf("generated template does not load: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandPath("~/data"); got != filepath.Join(home, "data") {
		t.Errorf("expandPath(~/data) = %s", got)
	}
	if got := expandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path must pass through, got %s", got)
	}
}
