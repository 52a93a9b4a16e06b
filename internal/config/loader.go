package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr    string `json:"addr" yaml:"addr" toml:"addr"`
	DataDir string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	DBPath  string `json:"db_path" yaml:"db_path" toml:"db_path"`

	// Model file cache (downloaded once, reused afterwards).
	ModelPath   string `json:"model_path" yaml:"model_path" toml:"model_path"`
	ModelURL    string `json:"model_url" yaml:"model_url" toml:"model_url"`
	ModelSHA256 string `json:"model_sha256" yaml:"model_sha256" toml:"model_sha256"`

	// Inference backend: server | ollama | cgo | mock. Empty means mock.
	Backend        string `json:"backend" yaml:"backend" toml:"backend"`
	LlamaServerURL string `json:"llama_server_url" yaml:"llama_server_url" toml:"llama_server_url"`
	LlamaAPIKey    string `json:"llama_api_key" yaml:"llama_api_key" toml:"llama_api_key"`
	OllamaHost     string `json:"ollama_host" yaml:"ollama_host" toml:"ollama_host"`
	OllamaModel    string `json:"ollama_model" yaml:"ollama_model" toml:"ollama_model"`
	LlamaCtx       int    `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads   int    `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`

	// Generation defaults.
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP        float64 `json:"top_p" yaml:"top_p" toml:"top_p"`
	TopK        int     `json:"top_k" yaml:"top_k" toml:"top_k"`

	// Admission queue.
	MaxQueueDepth  int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitSeconds int `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds"`

	// HTTP.
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled  bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	// Per-client rate limit on generate requests. Negative disables it.
	GenerateRatePerSec float64 `json:"generate_rate_per_sec" yaml:"generate_rate_per_sec" toml:"generate_rate_per_sec"`
	GenerateBurst      int     `json:"generate_burst" yaml:"generate_burst" toml:"generate_burst"`

	// Teacher access. AccessCodeHash (bcrypt) wins over AccessCode when set.
	AccessCode     string `json:"access_code" yaml:"access_code" toml:"access_code"`
	AccessCodeHash string `json:"access_code_hash" yaml:"access_code_hash" toml:"access_code_hash"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	SentryDSN string `json:"sentry_dsn" yaml:"sentry_dsn" toml:"sentry_dsn"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overlays CLASSKIT_* environment variables onto cfg. The original
// app read TEACHER_CODE from the environment; keep that name working.
func ApplyEnv(cfg *Config) {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setStr(&cfg.Addr, "CLASSKIT_ADDR")
	setStr(&cfg.DataDir, "CLASSKIT_DATA_DIR")
	setStr(&cfg.DBPath, "CLASSKIT_DB_PATH")
	setStr(&cfg.ModelPath, "CLASSKIT_MODEL_PATH")
	setStr(&cfg.ModelURL, "CLASSKIT_MODEL_URL")
	setStr(&cfg.ModelSHA256, "CLASSKIT_MODEL_SHA256")
	setStr(&cfg.Backend, "CLASSKIT_BACKEND")
	setStr(&cfg.LlamaServerURL, "CLASSKIT_LLAMA_SERVER_URL")
	setStr(&cfg.LlamaAPIKey, "CLASSKIT_LLAMA_API_KEY")
	setStr(&cfg.OllamaHost, "CLASSKIT_OLLAMA_HOST")
	setStr(&cfg.OllamaModel, "CLASSKIT_OLLAMA_MODEL")
	setStr(&cfg.AccessCode, "CLASSKIT_ACCESS_CODE")
	setStr(&cfg.AccessCode, "TEACHER_CODE")
	setStr(&cfg.AccessCodeHash, "CLASSKIT_ACCESS_CODE_HASH")
	setStr(&cfg.LogLevel, "CLASSKIT_LOG_LEVEL")
	setStr(&cfg.SentryDSN, "SENTRY_DSN")
	if v := os.Getenv("CLASSKIT_MAX_QUEUE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxQueueDepth = n
		}
	}
	if v := os.Getenv("CLASSKIT_MAX_WAIT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxWaitSeconds = n
		}
	}
	if v := os.Getenv("CLASSKIT_GENERATE_RATE_PER_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.GenerateRatePerSec = f
		}
	}
	if v := os.Getenv("CLASSKIT_GENERATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GenerateBurst = n
		}
	}
}

// Defaults applied by ApplyDefaults for unset fields.
const (
	DefaultAddr           = ":8640"
	DefaultDataDir        = "~/.classkit"
	DefaultBackend        = "mock"
	DefaultMaxTokens      = 1024
	DefaultTemperature    = 0.7
	DefaultTopP           = 0.9
	DefaultTopK           = 40
	DefaultMaxQueueDepth  = 8
	DefaultMaxWaitSeconds = 60
	DefaultAccessCode     = "changeme"

	DefaultGenerateRatePerSec = 2.0
	DefaultGenerateBurst      = 4
)

// ApplyDefaults fills unset fields with defaults. DBPath and ModelPath
// default relative to DataDir.
func ApplyDefaults(cfg *Config) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "classkit.db")
	}
	if cfg.Backend == "" {
		cfg.Backend = DefaultBackend
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.TopP <= 0 {
		cfg.TopP = DefaultTopP
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = DefaultMaxQueueDepth
	}
	if cfg.MaxWaitSeconds <= 0 {
		cfg.MaxWaitSeconds = DefaultMaxWaitSeconds
	}
	if cfg.GenerateRatePerSec == 0 {
		cfg.GenerateRatePerSec = DefaultGenerateRatePerSec
	}
	if cfg.GenerateBurst <= 0 {
		cfg.GenerateBurst = DefaultGenerateBurst
	}
	if cfg.AccessCode == "" && cfg.AccessCodeHash == "" {
		cfg.AccessCode = DefaultAccessCode
	}
}
