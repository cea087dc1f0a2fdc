package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// setEnv sets an environment variable, ignoring errors (for test setup)
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
}

// unsetEnv unsets an environment variable, ignoring errors (for test cleanup)
func unsetEnv(key string) {
	_ = os.Unsetenv(key)
}

func TestLoad(t *testing.T) {
	// Save original env vars
	originalEnv := make(map[string]string)
	envVars := []string{
		"LLM_BASE_URL", "LLM_API_KEY", "LLM_MODEL", "LLM_TIMEOUT_SECONDS",
		"EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME", "VECTOR_SIZE",
		"DB_PATH", "DOCUMENTS_DIR", "QDRANT_URL", "QDRANT_COLLECTION_PREFIX",
		"ROUTER_ALPHA", "TENANT_MIN_CONF_THRESH", "TENANT_ALIASES",
		"ALLOWED_DOMAINS", "CLEANING_ENABLED", "MAX_CONTEXT_TOKENS",
		"API_PORT", "LOG_LEVEL", "LOG_FORMAT",
	}
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
		unsetEnv(key)
	}
	defer func() {
		for key, value := range originalEnv {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}
	}()

	baseEnv := func(t *testing.T) {
		dir := t.TempDir()
		setEnv("LLM_API_KEY", "test-key")
		setEnv("VECTOR_SIZE", "384")
		setEnv("DB_PATH", filepath.Join(dir, "data", "docqa.db"))
		setEnv("DOCUMENTS_DIR", filepath.Join(dir, "documents"))
	}

	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name:     "valid config with required fields only",
			setupEnv: baseEnv,
			wantErr:  false,
			checkConfig: func(cfg *Config) bool {
				return cfg.VectorSize == 384 &&
					cfg.RouterAlpha == 0.7 &&
					cfg.MinConfidence == 0.5 &&
					cfg.CleaningEnabled &&
					cfg.MaxContextTokens == 3500
			},
		},
		{
			name: "missing LLM_API_KEY",
			setupEnv: func(t *testing.T) {
				setEnv("VECTOR_SIZE", "384")
			},
			wantErr: true,
		},
		{
			name: "missing VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setEnv("LLM_API_KEY", "test-key")
			},
			wantErr: true,
		},
		{
			name: "invalid VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				baseEnv(t)
				setEnv("VECTOR_SIZE", "not-a-number")
			},
			wantErr: true,
		},
		{
			name: "negative VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				baseEnv(t)
				setEnv("VECTOR_SIZE", "-5")
			},
			wantErr: true,
		},
		{
			name: "router alpha out of range",
			setupEnv: func(t *testing.T) {
				baseEnv(t)
				setEnv("ROUTER_ALPHA", "1.5")
			},
			wantErr: true,
		},
		{
			name: "aliases parsed lowercase",
			setupEnv: func(t *testing.T) {
				baseEnv(t)
				setEnv("TENANT_ALIASES", "HIH Portal=HIH, rc=RC, malformed")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.TenantAliases["hih portal"] == "HIH" &&
					cfg.TenantAliases["rc"] == "RC" &&
					len(cfg.TenantAliases) == 2
			},
		},
		{
			name: "cleaning disabled",
			setupEnv: func(t *testing.T) {
				baseEnv(t)
				setEnv("CLEANING_ENABLED", "false")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return !cfg.CleaningEnabled
			},
		},
		{
			name: "debug log level",
			setupEnv: func(t *testing.T) {
				baseEnv(t)
				setEnv("LOG_LEVEL", "debug")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.LogLevel == slog.LevelDebug
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range envVars {
				unsetEnv(key)
			}
			tt.setupEnv(t)

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() returned unexpected config: %+v", cfg)
			}
		})
	}
}

func TestParseAliases(t *testing.T) {
	got := parseAliases("")
	if len(got) != 0 {
		t.Errorf("expected empty alias map, got %v", got)
	}

	got = parseAliases("a=T1,,b = T2 , =T3, c=")
	if got["a"] != "T1" || got["b"] != "T2" || len(got) != 2 {
		t.Errorf("unexpected alias map: %v", got)
	}
}
