// Package config handles MooAgent configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/mooagent/config.yaml, /etc/mooagent/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "mooagent", "config.yaml"))
	}

	paths = append(paths, "/etc/mooagent/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all MooAgent configuration.
type Config struct {
	Listen         ListenConfig `yaml:"listen"`
	Groq           GroqConfig   `yaml:"groq"`
	Models         ModelsConfig `yaml:"models"`
	MCP            MCPConfig    `yaml:"mcp"`
	Agent          AgentConfig  `yaml:"agent"`
	Auth           AuthConfig   `yaml:"auth"`
	AllowedOrigins []string     `yaml:"allowed_origins"`
	LogLevel       string       `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// GroqConfig defines the Groq API connection.
type GroqConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // Defaults to the public Groq endpoint
}

// ModelsConfig defines the known model set and routing.
type ModelsConfig struct {
	Default   string        `yaml:"default"`
	Available []ModelConfig `yaml:"available"`
}

// ModelConfig defines a single model and its fallback chain, tried in
// order when the model reports permanent unavailability.
type ModelConfig struct {
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	ContextWindow int      `yaml:"context_window"`
	Fallbacks     []string `yaml:"fallbacks"`
}

// MCPConfig defines the optional remote tool server connection.
type MCPConfig struct {
	URL        string `yaml:"url"` // Empty disables remote tools
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Timeout returns the per-call remote tool timeout.
func (m MCPConfig) Timeout() time.Duration {
	if m.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(m.TimeoutSec) * time.Second
}

// AgentConfig bounds the reasoning loop.
type AgentConfig struct {
	MaxIterations int `yaml:"max_iterations"`
	DeadlineSec   int `yaml:"deadline_sec"`
}

// Deadline returns the whole-session wall-clock budget.
func (a AgentConfig) Deadline() time.Duration {
	if a.DeadlineSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.DeadlineSec) * time.Second
}

// AuthConfig defines token signing settings.
type AuthConfig struct {
	Secret          string `yaml:"secret"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

// TokenTTL returns the access token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	if a.TokenTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

// LoadDotenv loads a .env file from the working directory if present.
// Missing files are not an error; existing environment variables win
// over file values.
func LoadDotenv() {
	_ = godotenv.Load()
}

// Load reads configuration from a YAML file. Environment variable
// references in the file (e.g. ${GROQ_API_KEY}) are expanded before
// parsing so secrets never live in the config file itself.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration matching the public Groq
// model catalog.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8000},
		Models: ModelsConfig{
			Default: "openai/gpt-oss-120b",
			Available: []ModelConfig{
				{
					Name:          "openai/gpt-oss-120b",
					Description:   "OpenAI's flagship open model",
					ContextWindow: 131072,
					Fallbacks:     []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"},
				},
				{
					Name:          "openai/gpt-oss-20b",
					Description:   "Fast OpenAI open model",
					ContextWindow: 131072,
					Fallbacks:     []string{"llama-3.1-8b-instant"},
				},
				{
					Name:          "llama-3.3-70b-versatile",
					Description:   "Latest Meta model",
					ContextWindow: 131072,
					Fallbacks:     []string{"llama-3.1-8b-instant"},
				},
				{
					Name:          "llama-3.1-8b-instant",
					Description:   "Fastest model",
					ContextWindow: 131072,
				},
			},
		},
		MCP:            MCPConfig{TimeoutSec: 30},
		Agent:          AgentConfig{MaxIterations: 10, DeadlineSec: 30},
		Auth:           AuthConfig{TokenTTLMinutes: 30},
		AllowedOrigins: []string{"http://localhost:3000"},
	}
}
