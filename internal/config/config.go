package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries process-level settings shared by the CLI and the server.
// Per-run inputs (event id, clip path, sampling) stay on the command line.
type Config struct {
	ModelPath  string
	ConfigPath string

	DBPath string // empty disables run-history persistence

	IngestURL   string // empty disables result upload
	IngestToken string

	Port          int
	ClipDirectory string
	MaxUploadSize int64
}

// Load reads configuration from the environment, with .env as a fallback
// source when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ModelPath:     getEnv("MODEL_PATH", filepath.Join("models", "frozen_inference_graph.pb")),
		ConfigPath:    getEnv("MODEL_CONFIG_PATH", filepath.Join("models", "graph_config.pbtxt")),
		DBPath:        getEnv("DB_PATH", ""),
		IngestURL:     getEnv("INGEST_URL", ""),
		IngestToken:   getEnv("INGEST_TOKEN", ""),
		Port:          getEnvAsInt("PORT", 8080),
		ClipDirectory: getEnv("CLIP_DIR", filepath.Join(".", "clips")),
		MaxUploadSize: getEnvAsInt64("MAX_UPLOAD_SIZE", 104857600),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
