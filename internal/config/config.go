package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Embedding EmbeddingConfig
	Worker    WorkerConfig
	Storage   StorageConfig
	Search    SearchConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type EmbeddingConfig struct {
	Provider      string // "ollama" or "openai"
	OllamaURL     string
	OpenAIKey     string
	OpenAIBaseURL string
	Model         string
}

type WorkerConfig struct {
	PollInterval time.Duration
	ChunkSize    int
	ChunkOverlap int
}

type StorageConfig struct {
	UploadsDir    string
	MaxFileSizeMB int
}

type SearchConfig struct {
	MaxContextChunks int
	ScoreThreshold   float64
	Metric           string
}

func Load() (*Config, error) {
	// .env is optional; real env vars take precedence.
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	pollMs, err := getEnvInt("WORKER_POLL_INTERVAL_MS", 5000)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_POLL_INTERVAL_MS: %w", err)
	}

	chunkSize, err := getEnvInt("CHUNK_SIZE", 500)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_SIZE: %w", err)
	}

	chunkOverlap, err := getEnvInt("CHUNK_OVERLAP", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_OVERLAP: %w", err)
	}

	maxFileSize, err := getEnvInt("MAX_FILE_SIZE_MB", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_FILE_SIZE_MB: %w", err)
	}

	maxChunks, err := getEnvInt("MAX_CONTEXT_CHUNKS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_CONTEXT_CHUNKS: %w", err)
	}

	threshold, err := getEnvFloat("SEARCH_SCORE_THRESHOLD", 0.3)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_SCORE_THRESHOLD: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Embedding: EmbeddingConfig{
			Provider:      getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaURL:     getEnv("OLLAMA_URL", "http://localhost:11434"),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			Model:         getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Worker: WorkerConfig{
			PollInterval: time.Duration(pollMs) * time.Millisecond,
			ChunkSize:    chunkSize,
			ChunkOverlap: chunkOverlap,
		},
		Storage: StorageConfig{
			UploadsDir:    getEnv("UPLOADS_DIR", "storage/uploads"),
			MaxFileSizeMB: maxFileSize,
		},
		Search: SearchConfig{
			MaxContextChunks: maxChunks,
			ScoreThreshold:   threshold,
			Metric:           getEnv("SEARCH_METRIC", "cosine"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Embedding.Provider == "openai" && c.Embedding.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}
