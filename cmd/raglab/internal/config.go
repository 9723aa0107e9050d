package internal

import (
	"fmt"
	"os"

	"github.com/mlxlab/raglab/internal/config"
)

// LoadConfig reads the config from an explicit path or the default
// location.
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// PrintConfigExample writes a starter config to stderr.
func PrintConfigExample() {
	homeDir, _ := os.UserHomeDir()
	configPath := fmt.Sprintf("%s/.raglab/config/raglab.yaml", homeDir)

	fmt.Fprintf(os.Stderr, `Create a configuration file at %s:

# Embedding service configuration (required)
embedding:
  # Provider: "openai" | "ollama"
  provider: ollama

  # Ollama configuration
  endpoint: http://localhost:11434
  model: nomic-embed-text
  batch_size: 16

# For the OpenAI provider, use:
# embedding:
#   provider: openai
#   api_key: your-openai-api-key     # or set OPENAI_API_KEY
#   model: text-embedding-3-small
#   dimensions: 1536

# Chat model for the ask command (optional)
chat:
  base_url: http://localhost:11434/v1
  model: llama3.1
  max_tokens: 4096

Usage:
  1. Create the config file
  2. Ingest documents: raglab ingest ./docs
  3. Query: raglab query "your question"
`, configPath)
}
