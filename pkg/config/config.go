// Package config provides configuration loading, validation, and management
// for the interview engine.
//
// A single Config instance is maintained in memory, protected by a mutex.
// GetConfig() returns the config BY VALUE (copy, not reference) to prevent
// external mutation. State (session results, transcripts) never lives here -
// it belongs in the database.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"interview/pkg/logx"
)

// SchemaVersion guards against breaking config changes. Any change to the
// Config shape must increment it.
const SchemaVersion = 1

// ConfigFileName is the project config file, stored under .interview/.
const ConfigFileName = "config.json"

// ProjectDirName is the dot-directory holding config and secrets.
const ProjectDirName = ".interview"

//nolint:gochecknoglobals // Intentional package-level config with mutex protection
var (
	config     *Config
	projectDir string // Immutable after LoadConfig
	logger     *logx.Logger
	mu         sync.RWMutex
)

func getLogger() *logx.Logger {
	if logger == nil {
		logger = logx.NewLogger("config")
	}
	return logger
}

// Provider identifies which LLM backend runs the interviewer.
type Provider struct {
	Name  string `json:"name"`  // anthropic, openai, ollama, google
	Model string `json:"model"` // Provider-specific model name
	Host  string `json:"host,omitempty"`
}

// Interview holds interview pacing and cap settings.
type Interview struct {
	MaxQuestions       int `json:"max_questions"`
	LoadingTimeoutSecs int `json:"loading_timeout_secs"`
	RateFloorSecs      int `json:"rate_floor_secs"`
	LLMTimeoutSecs     int `json:"llm_timeout_secs"`
}

// WebUI holds host UI bridge settings. PrometheusURL enables the
// per-session metrics endpoint when a Prometheus server scrapes /metrics.
type WebUI struct {
	Addr          string `json:"addr"`
	PrometheusURL string `json:"prometheus_url,omitempty"`
}

// Storage holds persistence settings.
type Storage struct {
	DBPath      string `json:"db_path"`
	EventLogDir string `json:"event_log_dir"`
}

// Config is the project configuration.
type Config struct {
	SchemaVersion int       `json:"schema_version"`
	Provider      Provider  `json:"provider"`
	Interview     Interview `json:"interview"`
	WebUI         WebUI     `json:"webui"`
	Storage       Storage   `json:"storage"`
	QuestionPack  string    `json:"question_pack,omitempty"` // Path to a YAML question pack
}

// DefaultConfig returns the config used when no file exists yet.
func DefaultConfig() Config {
	return Config{
		SchemaVersion: SchemaVersion,
		Provider: Provider{
			Name:  "anthropic",
			Model: "",
		},
		Interview: Interview{
			MaxQuestions:       6,
			LoadingTimeoutSecs: 10,
			RateFloorSecs:      4,
			LLMTimeoutSecs:     30,
		},
		WebUI: WebUI{
			Addr: ":8085",
		},
		Storage: Storage{
			DBPath:      filepath.Join(ProjectDirName, "interview.db"),
			EventLogDir: filepath.Join(ProjectDirName, "logs"),
		},
	}
}

// Validate rejects configs that would break the engine at runtime.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Provider.Name) {
	case "anthropic", "openai", "ollama", "google":
	case "":
		return fmt.Errorf("provider name cannot be empty")
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}

	if c.Interview.MaxQuestions <= 0 {
		return fmt.Errorf("max_questions must be positive")
	}
	if c.Interview.LoadingTimeoutSecs <= 0 {
		return fmt.Errorf("loading_timeout_secs must be positive")
	}
	if c.Interview.RateFloorSecs < 0 {
		return fmt.Errorf("rate_floor_secs cannot be negative")
	}
	if c.Interview.LLMTimeoutSecs <= 0 {
		return fmt.Errorf("llm_timeout_secs must be positive")
	}
	return nil
}

// LoadConfig loads the project config from dir/.interview/config.json,
// falling back to defaults when the file does not exist.
func LoadConfig(dir string) error {
	mu.Lock()
	defer mu.Unlock()

	projectDir = dir
	path := filepath.Join(dir, ProjectDirName, ConfigFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			config = &cfg
			getLogger().Info("No config file found, using defaults")
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.SchemaVersion != SchemaVersion {
		return fmt.Errorf("config schema version %d does not match expected %d", cfg.SchemaVersion, SchemaVersion)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	config = &cfg
	getLogger().Info("Config loaded from %s", path)
	return nil
}

// GetConfig returns a copy of the current config.
func GetConfig() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()

	if config == nil {
		return Config{}, fmt.Errorf("config not loaded - call LoadConfig first")
	}
	return *config, nil
}

// GetProjectDir returns the project directory set at LoadConfig.
func GetProjectDir() string {
	mu.RLock()
	defer mu.RUnlock()
	return projectDir
}

// SaveConfig validates and atomically persists a new config.
func SaveConfig(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()

	cfg.SchemaVersion = SchemaVersion

	dir := filepath.Join(projectDir, ProjectDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(dir, ConfigFileName)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}

	copied := *cfg
	config = &copied
	return nil
}
