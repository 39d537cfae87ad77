package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/mgpai22/trimsub/internal/timecode"
)

// Remap controls how subtitle tracks are rebuilt after a cut.
type Remap struct {
	MinDurationMS int64 `toml:"min_duration_ms"`
	KeepOverlaps  bool  `toml:"keep_overlaps"`
}

// LLM selects the provider used by analyze, correct and chapters.
type LLM struct {
	Provider        string `toml:"provider"`
	Model           string `toml:"model"`
	Concurrency     int    `toml:"concurrency"`
	BatchSize       int    `toml:"batch_size"`
	GeminiAPIKey    string `toml:"gemini_api_key"`
	OpenAIAPIKey    string `toml:"openai_api_key"`
	AnthropicAPIKey string `toml:"anthropic_api_key"`
}

type Logging struct {
	Level string `toml:"level"`
}

type Config struct {
	Remap   Remap   `toml:"remap"`
	LLM     LLM     `toml:"llm"`
	Logging Logging `toml:"logging"`
}

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

func Default() Config {
	return Config{
		Remap: Remap{
			MinDurationMS: 100,
		},
		LLM: LLM{
			Provider:    ProviderGemini,
			Concurrency: 3,
			BatchSize:   50,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/trimsub/config.toml")
}

// Load reads the config file (if any), overlays API keys from the
// environment and validates the result. It returns the resolved path and
// whether a file was found there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// LoadDotEnv loads KEY=value pairs from the given files (default ".env")
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("trimsub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		c.LLM.GeminiAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		c.LLM.OpenAIAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		c.LLM.AnthropicAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("TRIMSUB_PROVIDER")); v != "" {
		c.LLM.Provider = v
	}
}

func (c *Config) normalize() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("llm.provider %q: expected gemini, openai or anthropic", c.LLM.Provider)
	}
	if c.Remap.MinDurationMS < 0 {
		return fmt.Errorf("remap.min_duration_ms must not be negative, got %d", c.Remap.MinDurationMS)
	}
	if c.LLM.Concurrency <= 0 {
		return fmt.Errorf("llm.concurrency must be positive, got %d", c.LLM.Concurrency)
	}
	if c.LLM.BatchSize <= 0 {
		return fmt.Errorf("llm.batch_size must be positive, got %d", c.LLM.BatchSize)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q: expected debug, info, warn or error", c.Logging.Level)
	}
	return nil
}

// MinDuration is the remap drop threshold as a Timestamp.
func (c *Config) MinDuration() timecode.Timestamp {
	return timecode.Timestamp(c.Remap.MinDurationMS)
}

// APIKey returns the configured key for provider, or "".
func (c *Config) APIKey(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderGemini:
		return c.LLM.GeminiAPIKey
	case ProviderOpenAI:
		return c.LLM.OpenAIAPIKey
	case ProviderAnthropic:
		return c.LLM.AnthropicAPIKey
	}
	return ""
}

// APIKeyEnv names the environment variable holding provider's key.
func APIKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return "GEMINI_API_KEY"
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
