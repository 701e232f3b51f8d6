// Package config loads drover's configuration: a config.yaml in the data
// directory layered over defaults, with the API key coming from the
// environment.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/droverhq/drover/internal/agent/window"
)

// APIKeyEnv is the environment variable consulted for the Anthropic key.
const APIKeyEnv = "ANTHROPIC_API_KEY"

// Config holds the agent configuration.
type Config struct {
	// DataDir holds the database, models.yaml overlay, and config.yaml.
	DataDir string `yaml:"data_dir"`

	// Model and sampling settings.
	Model          string `yaml:"model"`
	MaxTokens      int    `yaml:"max_tokens"`      // 0 = model output ceiling
	TimeoutSeconds int    `yaml:"timeout_seconds"` // per-request total (default: 600)

	Thinking ThinkingConfig `yaml:"thinking"`

	// Execution settings.
	MaxIterations int    `yaml:"max_iterations"` // safety limit per run (default: 100)
	SystemPrompt  string `yaml:"system_prompt"`

	// Image retention: keep the most recent N tool-result images,
	// evicting in chunks so the request prefix stays cacheable.
	ImageRetainCount  int `yaml:"image_retain_count"`  // 0 = unlimited
	ImageRemovalChunk int `yaml:"image_removal_chunk"` // default: 10

	// Context pruning settings.
	Prune window.PruneConfig `yaml:"prune"`

	// APIKey is never read from config.yaml; it comes from the
	// environment so it cannot end up on disk.
	APIKey string `yaml:"-"`
}

// ThinkingConfig controls extended thinking.
type ThinkingConfig struct {
	Enabled      bool `yaml:"enabled"`
	BudgetTokens int  `yaml:"budget_tokens"` // 0 = model-recommended budget
	Interleaved  bool `yaml:"interleaved"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:           DefaultDataDir(),
		Model:             "claude-sonnet-4-5",
		TimeoutSeconds:    600,
		MaxIterations:     100,
		ImageRetainCount:  0,
		ImageRemovalChunk: window.DefaultMinRemovalChunk,
		Prune:             window.DefaultPruneConfig(),
	}
}

// DefaultDataDir returns ~/.drover, falling back to a relative directory
// when the home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".drover"
	}
	return filepath.Join(home, ".drover")
}

// Load reads config.yaml from the default data directory. A missing file
// yields the defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(cfg.DataDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.overlayEnv()
			return cfg, nil
		}
		return nil, err
	}
	return finish(cfg, data)
}

// LoadFrom reads config from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return finish(cfg, data)
}

func finish(cfg *Config, data []byte) (*Config, error) {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if strings.HasPrefix(cfg.DataDir, "~/") {
		home, _ := os.UserHomeDir()
		cfg.DataDir = filepath.Join(home, cfg.DataDir[2:])
	}
	cfg.overlayEnv()
	return cfg, nil
}

func (c *Config) overlayEnv() {
	if key := os.Getenv(APIKeyEnv); key != "" {
		c.APIKey = key
	}
}

// DBPath returns the path to the SQLite database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "drover.db")
}

// EnsureDataDir creates the data directory if it does not exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0700)
}
