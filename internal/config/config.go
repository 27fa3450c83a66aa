package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRemoteURL is the hosted knowledge-base endpoint. Using it requires
// an API key; without one the process stays in local mode.
const DefaultRemoteURL = "https://api.errsolve.dev"

// Environment variable overrides for remote configuration.
const (
	EnvRemoteURL    = "ERRSOLVE_REMOTE_URL"
	EnvRemoteAPIKey = "ERRSOLVE_REMOTE_API_KEY"
)

// Config holds application configuration.
type Config struct {
	// RemoteURL is the base URL of a remote knowledge-base server.
	// When resolved (see ResolveRemote), reads and writes route to it
	// instead of the local embedded store.
	RemoteURL string `json:"remote_url,omitempty"`

	// RemoteAPIKey authenticates against the remote server.
	RemoteAPIKey string `json:"remote_api_key,omitempty"`

	// EmbedURL is the base URL of the embedding service.
	EmbedURL string `json:"embed_url,omitempty"`

	// EmbedModel is the embedding model name requested from the service.
	EmbedModel string `json:"embed_model,omitempty"`

	// DenseWeight is the hybrid-search weight for dense similarity.
	DenseWeight float64 `json:"dense_weight,omitempty"`

	// SparseWeight is the hybrid-search weight for normalized BM25.
	SparseWeight float64 `json:"sparse_weight,omitempty"`

	// SyncConcurrency bounds simultaneous uploads during push.
	SyncConcurrency int `json:"sync_concurrency,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is
	// locked" errors). 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		EmbedURL:        "http://127.0.0.1:11434",
		EmbedModel:      "all-minilm",
		DenseWeight:     0.7,
		SparseWeight:    0.3,
		SyncConcurrency: 4,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.errsolve.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
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
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.RemoteURL = overlayString(base.RemoteURL, overlay.RemoteURL)
	result.RemoteAPIKey = overlayString(base.RemoteAPIKey, overlay.RemoteAPIKey)
	result.EmbedURL = overlayString(base.EmbedURL, overlay.EmbedURL)
	result.EmbedModel = overlayString(base.EmbedModel, overlay.EmbedModel)

	result.DenseWeight = overlay.DenseWeight
	if result.DenseWeight == 0 {
		result.DenseWeight = base.DenseWeight
	}
	result.SparseWeight = overlay.SparseWeight
	if result.SparseWeight == 0 {
		result.SparseWeight = base.SparseWeight
	}
	result.SyncConcurrency = overlay.SyncConcurrency
	if result.SyncConcurrency == 0 {
		result.SyncConcurrency = base.SyncConcurrency
	}
	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}
	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func overlayString(base, overlay string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// RemoteConfig is a resolved remote endpoint.
type RemoteConfig struct {
	BaseURL string
	APIKey  string
}

// ResolveRemote decides whether the process runs against a remote store.
// Precedence: explicit overrides, then environment, then the config file.
// The hosted default URL without an API key resolves to nil (local mode),
// so a bare install never silently talks to the hosted service.
func (c *Config) ResolveRemote(overrideURL, overrideKey string) *RemoteConfig {
	baseURL := firstNonEmpty(overrideURL, os.Getenv(EnvRemoteURL), c.RemoteURL, DefaultRemoteURL)
	apiKey := firstNonEmpty(overrideKey, os.Getenv(EnvRemoteAPIKey), c.RemoteAPIKey)

	if baseURL == DefaultRemoteURL && apiKey == "" {
		return nil
	}
	return &RemoteConfig{BaseURL: baseURL, APIKey: apiKey}
}

// MaskAPIKey renders an API key safe for logs and status output.
func MaskAPIKey(apiKey string) string {
	if apiKey == "" {
		return "(not set)"
	}
	if len(apiKey) <= 4 {
		return strings.Repeat("*", len(apiKey))
	}
	core := len(apiKey) - 4
	if core < 2 {
		core = 2
	}
	return apiKey[:2] + strings.Repeat("*", core) + apiKey[len(apiKey)-2:]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
