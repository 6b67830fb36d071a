package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. Values are layered: defaults, then
// an optional YAML file, then the environment (including a .env file).
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	LLM         LLMConfig         `yaml:"llm"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Log         LogConfig         `yaml:"log"`

	UnidocLicenseKey string `yaml:"unidoc_license_key"`
}

type ServerConfig struct {
	Port       string `yaml:"port" validate:"required,numeric"`
	UploadDir  string `yaml:"upload_dir" validate:"required"`
	WatchDir   string `yaml:"watch_dir"`
	WatchScope string `yaml:"watch_scope"`
}

// DatabaseConfig selects the thread/document store. DSN is only used by postgres.
type DatabaseConfig struct {
	Driver  string `yaml:"driver" validate:"oneof=sqlite postgres"`
	DSN     string `yaml:"dsn" validate:"required_if=Driver postgres"`
	DataDir string `yaml:"data_dir"`
}

type EmbeddingConfig struct {
	ModelName string `yaml:"model_name" validate:"required"`
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	Dimension int    `yaml:"dimension" validate:"gt=0"`
}

type VectorIndexConfig struct {
	Backend    string `yaml:"backend" validate:"oneof=chroma memory"`
	URL        string `yaml:"url" validate:"required,url"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection" validate:"required"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider" validate:"oneof=openai gemini"`
	APIKey      string  `yaml:"api_key"`
	ModelName   string  `yaml:"model_name" validate:"required"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
}

// PipelineConfig holds the ingestion and retrieval knobs.
type PipelineConfig struct {
	ChunkSize       int `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap    int `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	RetrievalK      int `yaml:"retrieval_k" validate:"gt=0"`
	IngestBatchSize int `yaml:"ingest_batch_size" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Per-provider model defaults, applied when no model is configured. The
// openai provider talks to Groq's OpenAI-compatible endpoint unless told
// otherwise.
var (
	defaultLLMModels = map[string]string{
		"openai": "llama-3.1-8b-instant",
		"gemini": "gemini-2.5-flash",
	}
	defaultOpenAIBaseURL = "https://api.groq.com/openai/v1"
)

// Default returns the configuration used when nothing overrides it. The LLM
// model is filled in by Load once the provider is known.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      "8080",
			UploadDir: "uploads",
		},
		Database: DatabaseConfig{
			Driver:  "sqlite",
			DataDir: "data",
		},
		Embedding: EmbeddingConfig{
			ModelName: "all-minilm",
			BaseURL:   "http://localhost:11434",
			Dimension: 384,
		},
		VectorIndex: VectorIndexConfig{
			Backend:    "chroma",
			URL:        "http://localhost:8000",
			Collection: "document-qa",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Temperature: 0.3,
		},
		Pipeline: PipelineConfig{
			ChunkSize:       1000,
			ChunkOverlap:    200,
			RetrievalK:      3,
			IngestBatchSize: 50,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, CONFIG_FILE (or ./config.yaml if
// present), .env and the process environment, then validates it.
func Load() (*Config, error) {
	// Load .env file from the current directory
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg := Default()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyProviderDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// mergeFile overlays YAML values onto cfg. A missing file is not an error.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("could not read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.UploadDir = getEnv("UPLOAD_DIR", c.Server.UploadDir)
	c.Server.WatchDir = getEnv("WATCH_DIR", c.Server.WatchDir)
	c.Server.WatchScope = getEnv("WATCH_SCOPE", c.Server.WatchScope)

	c.Database.Driver = getEnv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DATABASE_URL", c.Database.DSN)
	c.Database.DataDir = getEnv("DATA_DIR", c.Database.DataDir)

	c.Embedding.ModelName = getEnv("EMBEDDING_MODEL_NAME", c.Embedding.ModelName)
	c.Embedding.BaseURL = getEnv("EMBEDDING_BASE_URL", c.Embedding.BaseURL)
	c.Embedding.Dimension = getEnvAsInt("EMBEDDING_DIMENSION", c.Embedding.Dimension)

	c.VectorIndex.Backend = getEnv("VECTOR_INDEX_BACKEND", c.VectorIndex.Backend)
	c.VectorIndex.URL = getEnv("VECTOR_INDEX_URL", c.VectorIndex.URL)
	c.VectorIndex.APIKey = getEnv("VECTOR_INDEX_API_KEY", c.VectorIndex.APIKey)
	c.VectorIndex.Collection = getEnv("VECTOR_INDEX_COLLECTION", c.VectorIndex.Collection)

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.APIKey = getEnv("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.ModelName = getEnv("LLM_MODEL_NAME", c.LLM.ModelName)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat("LLM_TEMPERATURE", c.LLM.Temperature)

	c.Pipeline.ChunkSize = getEnvAsInt("CHUNK_SIZE", c.Pipeline.ChunkSize)
	c.Pipeline.ChunkOverlap = getEnvAsInt("CHUNK_OVERLAP", c.Pipeline.ChunkOverlap)
	c.Pipeline.RetrievalK = getEnvAsInt("RETRIEVAL_K", c.Pipeline.RetrievalK)
	c.Pipeline.IngestBatchSize = getEnvAsInt("INGEST_BATCH_SIZE", c.Pipeline.IngestBatchSize)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.UnidocLicenseKey = getEnv("UNIDOC_LICENSE_KEY", c.UnidocLicenseKey)
}

// applyProviderDefaults picks the model (and for openai the endpoint) that
// matches the configured provider when none was set explicitly.
func (c *Config) applyProviderDefaults() {
	if c.LLM.ModelName == "" {
		c.LLM.ModelName = defaultLLMModels[c.LLM.Provider]
	}
	if c.LLM.Provider == "openai" && c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultOpenAIBaseURL
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// RAGEnabled reports whether a vector index can be used at all. The chroma
// backend needs credentials; the in-memory backend never does.
func (c *Config) RAGEnabled() bool {
	if c.VectorIndex.Backend == "memory" {
		return true
	}
	return c.VectorIndex.APIKey != ""
}

// LLMEnabled reports whether a language model credential is present.
func (c *Config) LLMEnabled() bool {
	return c.LLM.APIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
