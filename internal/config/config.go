package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SystemPrompt string         `yaml:"system_prompt"`
	Database     DatabaseConfig `yaml:"database"`
	EmbedLLM     LLMConfig      `yaml:"embed_llm"`
	ChatLLM      LLMConfig      `yaml:"chat_llm"`
	RAG          RAGConfig      `yaml:"rag"`
}

// LLMConfig selects an LLM endpoint, either a local ollama server or an
// openai-compatible API.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "ollama" or "openai"
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type DatabaseConfig struct {
	DSN   string `yaml:"dsn"`
	Debug bool   `yaml:"debug"`
}

// RAGConfig configures the vector collection and the retrieval pipeline.
// Model, collection and persist directory are fixed for the process
// lifetime once the store is opened.
type RAGConfig struct {
	CollectionName string `yaml:"collection_name"`
	PersistDir     string `yaml:"persist_dir"`
	ChunkSize      int    `yaml:"chunk_size"`
	ChunkOverlap   int    `yaml:"chunk_overlap"`
	TopK           int    `yaml:"top_k"`
	Template       string `yaml:"template"` // "default", "llama" or "mistral"
	UseHistory     bool   `yaml:"use_history"`
}

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
	DefaultTopK         = 4
	DefaultCollection   = "study_stream_collection"
	DefaultPersistDir   = "./vectordb"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.RAG.ChunkSize <= 0 {
		cfg.RAG.ChunkSize = DefaultChunkSize
	}
	if cfg.RAG.ChunkOverlap <= 0 {
		cfg.RAG.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = DefaultTopK
	}
	if cfg.RAG.CollectionName == "" {
		cfg.RAG.CollectionName = DefaultCollection
	}
	if cfg.RAG.PersistDir == "" {
		cfg.RAG.PersistDir = DefaultPersistDir
	}
	if cfg.RAG.Template == "" {
		cfg.RAG.Template = "default"
	}
	// The database DSN may come from the environment instead of the file.
	if dsn := os.Getenv("STUDY_STREAM_DB_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
}
