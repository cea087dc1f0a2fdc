package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	LLMTimeoutSeconds  int
	EmbeddingBaseURL   string
	EmbeddingModelName string
	VectorSize         int

	DBPath        string
	DocumentsDir  string
	QdrantURL     string
	CollectionPfx string

	// Routing knobs. RouterAlpha weights embedding similarity against keyword
	// overlap; MinConfidence is the blended-score floor below which the caller
	// is asked to disambiguate.
	RouterAlpha   float64
	MinConfidence float64

	// TenantAliases maps a lowercase alias to a tenant ID, parsed from
	// "alias=tenant,alias2=tenant2".
	TenantAliases map[string]string

	// AllowedDomains restricts URL ingestion.
	AllowedDomains []string

	CleaningEnabled  bool
	MaxContextTokens int

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded
// automatically; environment variables already set take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a project-root .env (where go.mod lives).
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "llama-3.1-8b-instant"),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "bge-small-en-v1.5"),
		DBPath:             getEnv("DB_PATH", "./data/docqa.db"),
		DocumentsDir:       getEnv("DOCUMENTS_DIR", "./documents"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		CollectionPfx:      getEnv("QDRANT_COLLECTION_PREFIX", "docqa"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	vectorSizeStr := getEnv("VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("VECTOR_SIZE must be greater than 0")
	}
	cfg.VectorSize = vectorSize

	cfg.LLMTimeoutSeconds, err = getEnvInt("LLM_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.MaxContextTokens, err = getEnvInt("MAX_CONTEXT_TOKENS", 3500)
	if err != nil {
		return nil, err
	}

	cfg.RouterAlpha, err = getEnvFloat("ROUTER_ALPHA", 0.7)
	if err != nil {
		return nil, err
	}
	if cfg.RouterAlpha < 0 || cfg.RouterAlpha > 1 {
		return nil, fmt.Errorf("ROUTER_ALPHA must be in [0,1], got %v", cfg.RouterAlpha)
	}
	cfg.MinConfidence, err = getEnvFloat("TENANT_MIN_CONF_THRESH", 0.5)
	if err != nil {
		return nil, err
	}

	cfg.TenantAliases = parseAliases(getEnv("TENANT_ALIASES", ""))

	domains := getEnv("ALLOWED_DOMAINS", "www.cms.gov,esmdguide-fhir.cms.hhs.gov,www.hhs.gov")
	for _, d := range strings.Split(domains, ",") {
		if d = strings.TrimSpace(d); d != "" {
			cfg.AllowedDomains = append(cfg.AllowedDomains, strings.ToLower(d))
		}
	}

	switch strings.ToLower(getEnv("CLEANING_ENABLED", "true")) {
	case "0", "false", "no":
		cfg.CleaningEnabled = false
	default:
		cfg.CleaningEnabled = true
	}

	switch strings.ToLower(getEnv("LOG_LEVEL", "info")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	// Create data and documents directories if they don't exist.
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.DocumentsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create documents directory: %w", err)
	}

	return cfg, nil
}

// parseAliases parses "alias=tenant,alias2=tenant2" into a lowercase map.
// Malformed pairs are skipped.
func parseAliases(raw string) map[string]string {
	aliases := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		alias := strings.ToLower(strings.TrimSpace(parts[0]))
		tenant := strings.TrimSpace(parts[1])
		if alias != "" && tenant != "" {
			aliases[alias] = tenant
		}
	}
	return aliases
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return v, nil
}
