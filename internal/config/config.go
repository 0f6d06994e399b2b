package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultChunkSize    = 2000 // characters per window
	DefaultChunkOverlap = 400  // characters shared by adjacent windows
	DefaultBatchSize    = 50   // chunks embedded and upserted per batch
	DefaultTopK         = 3
)

type Config struct {
	Store        StoreConfig    `yaml:"store"`
	Registry     RegistryConfig `yaml:"registry"`
	EmbedLLM     LLMConfig      `yaml:"embed_llm"`
	InferenceLLM LLMConfig      `yaml:"inference_llm"`
	RAG          RAGConfig      `yaml:"rag"`
}

// StoreConfig locates the on-disk vector database.
type StoreConfig struct {
	DBPath   string `yaml:"db_path"`
	InMemory bool   `yaml:"in_memory"`
}

// RegistryConfig holds the Postgres connection for store metadata.
type RegistryConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // "ollama" or "openai"
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	BatchSize    int `yaml:"batch_size"`
	TopK         int `yaml:"top_k"`
}

// LoadConfig reads the YAML config at path, expanding ${VAR} references from
// the environment (a .env file next to the binary is honored). Defaults are
// applied and the result is validated once, so downstream components can
// assume a well-formed configuration.
func LoadConfig(path string) (*Config, error) {
	// ignore a missing .env; the environment may already be populated
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %v", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = DefaultChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = DefaultChunkOverlap
	}
	if c.RAG.BatchSize == 0 {
		c.RAG.BatchSize = DefaultBatchSize
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = DefaultTopK
	}
}

// Validate enforces the chunking and batching constraints at configuration
// time so the pipelines never have to re-check them per call.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 {
		return fmt.Errorf("rag.chunk_overlap must not be negative, got %d", c.RAG.ChunkOverlap)
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap (%d) must be smaller than rag.chunk_size (%d)", c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	if c.RAG.BatchSize <= 0 {
		return fmt.Errorf("rag.batch_size must be positive, got %d", c.RAG.BatchSize)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be positive, got %d", c.RAG.TopK)
	}
	return nil
}
