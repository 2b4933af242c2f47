package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration.
type Config struct {
	// ProjectID is the remote document store project.
	ProjectID string `json:"project_id" env:"PROJECT_ID"`

	// BaseURL overrides the document store endpoint, mainly for tests.
	BaseURL string `json:"base_url,omitempty" env:"BASE_URL"`

	// DefaultDocID is the sync document used when a request names none.
	DefaultDocID string `json:"default_doc_id,omitempty" env:"DEFAULT_DOC_ID"`

	// ChunkLength is the per-chunk encoded-text length for chunked state.
	ChunkLength int `json:"chunk_length,omitempty" env:"CHUNK_LENGTH"`

	// InlineMaxLength is the encoded-text length above which state is chunked.
	InlineMaxLength int `json:"inline_max_length,omitempty" env:"INLINE_MAX_LENGTH"`

	// Retries is the number of retry attempts for remote requests.
	Retries int `json:"retries,omitempty" env:"RETRIES"`

	// BaseDelayMillis is the initial retry backoff in milliseconds.
	BaseDelayMillis int `json:"base_delay_millis,omitempty" env:"BASE_DELAY_MILLIS"`

	// ListenAddr is the HTTP listen address for serve mode.
	ListenAddr string `json:"listen_addr,omitempty" env:"LISTEN_ADDR"`

	// PollIntervalSeconds is the reconciliation polling interval.
	PollIntervalSeconds int `json:"poll_interval_seconds,omitempty" env:"POLL_INTERVAL_SECONDS"`

	// DBMaxOpenConns limits the maximum number of open cache connections.
	// If set to 1, all cache access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" env:"DB_MAX_OPEN_CONNS"`

	// DBMaxIdleConns limits the maximum number of idle cache connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" env:"DB_MAX_IDLE_CONNS"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultDocID:        "flowdeck_v1",
		ChunkLength:         700000,
		InlineMaxLength:     700000,
		Retries:             2,
		BaseDelayMillis:     250,
		ListenAddr:          ":8787",
		PollIntervalSeconds: 30,
	}
}

// Load loads configuration from baseDir/config.json, then applies
// FLOWDECK_* environment overrides on top. Returns default config when
// neither source sets a value. The baseDir parameter allows tests to use
// t.TempDir() instead of ~/.flowdeck.
func Load(baseDir string) (*Config, error) {
	file, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}

	overlay := &Config{}
	if err := env.ParseWithOptions(overlay, env.Options{Prefix: "FLOWDECK_"}); err != nil {
		return nil, err
	}

	// Defaults, then file, then environment
	return Merge(Merge(DefaultConfig(), file), overlay), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for non-zero scalars.
func Merge(base, overlay *Config) *Config {
	result := *overlay

	if result.ProjectID == "" {
		result.ProjectID = base.ProjectID
	}
	if result.BaseURL == "" {
		result.BaseURL = base.BaseURL
	}
	if result.DefaultDocID == "" {
		result.DefaultDocID = base.DefaultDocID
	}
	if result.ChunkLength == 0 {
		result.ChunkLength = base.ChunkLength
	}
	if result.InlineMaxLength == 0 {
		result.InlineMaxLength = base.InlineMaxLength
	}
	if result.Retries == 0 {
		result.Retries = base.Retries
	}
	if result.BaseDelayMillis == 0 {
		result.BaseDelayMillis = base.BaseDelayMillis
	}
	if result.ListenAddr == "" {
		result.ListenAddr = base.ListenAddr
	}
	if result.PollIntervalSeconds == 0 {
		result.PollIntervalSeconds = base.PollIntervalSeconds
	}
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	return &result
}
