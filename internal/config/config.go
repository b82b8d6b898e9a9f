package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultTopK         = 4
	defaultMaxTokens    = 900
	defaultSnapshotDir  = "./chromemdb"
)

type Config struct {
	Log           LogConfig           `yaml:"log"`
	Database      DatabaseConfig      `yaml:"database"`
	EmbedLLM      LLMConfig           `yaml:"embed_llm"`
	InferenceLLM  LLMConfig           `yaml:"inference_llm"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	RAG           RAGConfig           `yaml:"rag"`
	Web           WebConfig           `yaml:"web"`
	Storage       StorageConfig       `yaml:"storage"`
	Server        ServerConfig        `yaml:"server"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// LLMConfig configures a hosted or local model endpoint.
// Provider is one of openai, ollama or gemini.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type TranscriptionConfig struct {
	BaseURL string `yaml:"base_url"`
	Key     string `yaml:"key"`
	Model   string `yaml:"model"`
}

type RAGConfig struct {
	ChunkSize     int    `yaml:"chunk_size"`
	ChunkOverlap  int    `yaml:"chunk_overlap"`
	TopK          int    `yaml:"top_k"`
	MaxTokens     int    `yaml:"max_tokens"`
	Backend       string `yaml:"backend"` // memory or postgres
	SnapshotDir   string `yaml:"snapshot_dir"`
	EncryptionKey string `yaml:"encryption_key"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type WebConfig struct {
	Readability    bool `yaml:"readability"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
}

type StorageConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoadConfig reads the YAML file at path. A missing file yields the defaults.
// Values from the environment (and a .env file, if present) fill in credentials.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		EmbedLLM: LLMConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		InferenceLLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Transcription: TranscriptionConfig{Model: "whisper-1"},
		RAG: RAGConfig{
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
			TopK:         defaultTopK,
			MaxTokens:    defaultMaxTokens,
			Backend:      "memory",
			SnapshotDir:  defaultSnapshotDir,
		},
		Web:     WebConfig{TimeoutSeconds: 30},
		Storage: StorageConfig{Region: "us-east-1"},
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
	}
}

func applyEnv(cfg *Config) {
	openAIKey := os.Getenv("OPENAI_API_KEY")
	geminiKey := os.Getenv("GEMINI_API_KEY")
	for _, llm := range []*LLMConfig{&cfg.EmbedLLM, &cfg.InferenceLLM} {
		if llm.Key != "" {
			continue
		}
		switch strings.ToLower(llm.Provider) {
		case "openai", "":
			llm.Key = openAIKey
		case "gemini":
			llm.Key = geminiKey
		}
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" && cfg.InferenceLLM.BaseURL == "" && cfg.InferenceLLM.Provider == "openai" {
		cfg.InferenceLLM.BaseURL = base
	}
	if cfg.Transcription.Key == "" {
		cfg.Transcription.Key = openAIKey
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.Storage.SecretKey = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.Region = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		cfg.RAG.ChunkOverlap = cfg.RAG.ChunkSize / 5
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.RAG.MaxTokens <= 0 {
		cfg.RAG.MaxTokens = defaultMaxTokens
	}
	if cfg.RAG.Backend == "" {
		cfg.RAG.Backend = "memory"
	}
	if cfg.RAG.SnapshotDir == "" {
		cfg.RAG.SnapshotDir = defaultSnapshotDir
	}
	if cfg.Transcription.Model == "" {
		cfg.Transcription.Model = "whisper-1"
	}
	if cfg.Web.TimeoutSeconds <= 0 {
		cfg.Web.TimeoutSeconds = 30
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
}
