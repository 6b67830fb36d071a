package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		yaml    string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "8080", cfg.Server.Port)
				assert.Equal(t, "all-minilm", cfg.Embedding.ModelName)
				assert.Equal(t, 384, cfg.Embedding.Dimension)
				assert.Equal(t, 1000, cfg.Pipeline.ChunkSize)
				assert.Equal(t, 200, cfg.Pipeline.ChunkOverlap)
				assert.Equal(t, 3, cfg.Pipeline.RetrievalK)
				assert.Equal(t, 50, cfg.Pipeline.IngestBatchSize)
				assert.Equal(t, 0.3, cfg.LLM.Temperature)
				assert.Equal(t, "openai", cfg.LLM.Provider)
				assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.ModelName)
				assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
				assert.False(t, cfg.RAGEnabled())
				assert.False(t, cfg.LLMEnabled())
			},
		},
		{
			name: "environment overrides",
			envVars: map[string]string{
				"EMBEDDING_MODEL_NAME": "nomic-embed-text",
				"VECTOR_INDEX_API_KEY": "chroma-token",
				"LLM_API_KEY":          "gsk-test",
				"LLM_MODEL_NAME":       "llama-3.3-70b-versatile",
				"CHUNK_SIZE":           "500",
				"CHUNK_OVERLAP":        "50",
				"RETRIEVAL_K":          "5",
				"INGEST_BATCH_SIZE":    "10",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "nomic-embed-text", cfg.Embedding.ModelName)
				assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.ModelName)
				assert.Equal(t, 500, cfg.Pipeline.ChunkSize)
				assert.Equal(t, 50, cfg.Pipeline.ChunkOverlap)
				assert.Equal(t, 5, cfg.Pipeline.RetrievalK)
				assert.Equal(t, 10, cfg.Pipeline.IngestBatchSize)
				assert.True(t, cfg.RAGEnabled())
				assert.True(t, cfg.LLMEnabled())
			},
		},
		{
			name: "yaml file then environment",
			yaml: "pipeline:\n  chunk_size: 800\n  retrieval_k: 4\nvector_index:\n  backend: memory\n",
			envVars: map[string]string{
				"RETRIEVAL_K": "6",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 800, cfg.Pipeline.ChunkSize)
				assert.Equal(t, 6, cfg.Pipeline.RetrievalK)
				assert.Equal(t, "memory", cfg.VectorIndex.Backend)
				assert.True(t, cfg.RAGEnabled())
			},
		},
		{
			name: "gemini gets a gemini model by default",
			envVars: map[string]string{
				"LLM_PROVIDER": "gemini",
				"LLM_API_KEY":  "gemini-key",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "gemini", cfg.LLM.Provider)
				assert.Equal(t, "gemini-2.5-flash", cfg.LLM.ModelName)
				assert.Empty(t, cfg.LLM.BaseURL)
			},
		},
		{
			name: "explicit model wins over the provider default",
			envVars: map[string]string{
				"LLM_PROVIDER":   "gemini",
				"LLM_MODEL_NAME": "gemini-2.0-flash",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "gemini-2.0-flash", cfg.LLM.ModelName)
			},
		},
		{
			name: "invalid integer falls back to default",
			envVars: map[string]string{
				"CHUNK_SIZE": "not-a-number",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 1000, cfg.Pipeline.ChunkSize)
			},
		},
		{
			name: "overlap must be smaller than chunk size",
			envVars: map[string]string{
				"CHUNK_SIZE":    "100",
				"CHUNK_OVERLAP": "100",
			},
			wantErr: true,
		},
		{
			name: "unknown vector backend",
			envVars: map[string]string{
				"VECTOR_INDEX_BACKEND": "pinecone",
			},
			wantErr: true,
		},
		{
			name: "postgres requires a dsn",
			envVars: map[string]string{
				"DATABASE_DRIVER": "postgres",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if tt.yaml != "" {
				require.NoError(t, os.WriteFile(configPath, []byte(tt.yaml), 0o644))
			}
			t.Setenv("CONFIG_FILE", configPath)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("pipeline: [oops"), 0o644))
	t.Setenv("CONFIG_FILE", configPath)

	_, err := Load()
	assert.Error(t, err)
}
