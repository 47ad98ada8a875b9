// Package config loads the dub engine's runtime configuration from a YAML
// file with environment-variable overrides layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yml"
	AppDirName     = "dubengine"
)

// Config holds all runtime settings for the server and pipeline.
type Config struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	UploadDir string `yaml:"upload_dir,omitempty"`
	OutputDir string `yaml:"output_dir,omitempty"`

	MaxUploadBytes    int64 `yaml:"max_upload_bytes,omitempty"`
	MaxConcurrentJobs int   `yaml:"max_concurrent_jobs,omitempty"`

	// AuthEnabled gates every /api/jobs endpoint behind X-API-Key.
	AuthEnabled bool     `yaml:"auth_enabled,omitempty"`
	APIKeys     []string `yaml:"api_keys,omitempty"`

	CORSOrigins []string `yaml:"cors_origins,omitempty"`

	RateLimitPerMinute int `yaml:"rate_limit_per_minute,omitempty"`

	// SubtitleBatchThreshold is reserved for a future subtitle-batch feature;
	// it belongs to the translation chunker as a parameter, never a hidden
	// global.
	SubtitleBatchThreshold float64 `yaml:"subtitle_batch_threshold,omitempty"`

	Credentials CredentialConfig `yaml:"credentials,omitempty"`
	LocalModels LocalModelConfig `yaml:"local_models,omitempty"`
}

// CredentialConfig holds provider API keys. Values are probed for presence
// only (never logged, never echoed back over the API).
type CredentialConfig struct {
	OpenAIAPIKey      string `yaml:"openai_api_key,omitempty"`
	AnthropicAPIKey   string `yaml:"anthropic_api_key,omitempty"`
	CloningTTSAPIKey  string `yaml:"cloning_tts_api_key,omitempty"`
	CloningTTSBaseURL string `yaml:"cloning_tts_base_url,omitempty"`
	LocalTranslateURL string `yaml:"local_translate_base_url,omitempty"`
}

// LocalModelConfig points at on-disk local-engine assets.
type LocalModelConfig struct {
	WhisperModelPath string `yaml:"whisper_model_path,omitempty"`
	LocalTTSBinary   string `yaml:"local_tts_binary,omitempty"`
}

// HasOpenAI reports whether an OpenAI credential is configured.
func (c CredentialConfig) HasOpenAI() bool { return c.OpenAIAPIKey != "" }

// HasAnthropic reports whether an Anthropic credential is configured.
func (c CredentialConfig) HasAnthropic() bool { return c.AnthropicAPIKey != "" }

// HasCloningTTS reports whether a cloning-capable remote TTS credential is configured.
func (c CredentialConfig) HasCloningTTS() bool { return c.CloningTTSAPIKey != "" }

// ConfigDir returns the standard config directory for dubengine.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:                   "0.0.0.0",
		Port:                   8080,
		UploadDir:              "./data/uploads",
		OutputDir:              "./data/outputs",
		MaxUploadBytes:         2 * 1024 * 1024 * 1024, // 2 GB
		MaxConcurrentJobs:      2,
		RateLimitPerMinute:     10,
		SubtitleBatchThreshold: 0.8,
	}
}

// Load reads the config from disk and layers environment overrides on top.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err == nil {
		if data, readErr := os.ReadFile(path); readErr == nil {
			if yamlErr := yaml.Unmarshal(data, cfg); yamlErr != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, yamlErr)
			}
		}
	}

	loadEnvOverrides(cfg)
	return cfg, nil
}

// LoadOrDefault loads config, falling back to defaults plus env overrides on error.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = DefaultConfig()
		loadEnvOverrides(cfg)
	}
	return cfg
}

// Save writes the config to ~/.config/dubengine/config.yml
func Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	path, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := "# dubengine configuration file\n\n"
	return os.WriteFile(path, []byte(header+string(data)), 0644)
}

// loadEnvOverrides layers DUBENGINE_* environment variables over cfg.
func loadEnvOverrides(cfg *Config) {
	if v := os.Getenv("DUBENGINE_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("DUBENGINE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("DUBENGINE_UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("DUBENGINE_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("DUBENGINE_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("DUBENGINE_MAX_CONCURRENT_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrentJobs = n
		}
	}
	if v := os.Getenv("DUBENGINE_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("DUBENGINE_AUTH_ENABLED"); v != "" {
		cfg.AuthEnabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("DUBENGINE_API_KEYS"); v != "" {
		cfg.APIKeys = splitAndTrim(v)
	}
	if v := os.Getenv("DUBENGINE_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAIAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Credentials.AnthropicAPIKey = v
	}
	if v := os.Getenv("DUBENGINE_CLONING_TTS_API_KEY"); v != "" {
		cfg.Credentials.CloningTTSAPIKey = v
	}
	if v := os.Getenv("DUBENGINE_CLONING_TTS_BASE_URL"); v != "" {
		cfg.Credentials.CloningTTSBaseURL = v
	}
	if v := os.Getenv("DUBENGINE_LOCAL_TRANSLATE_BASE_URL"); v != "" {
		cfg.Credentials.LocalTranslateURL = v
	}
	if v := os.Getenv("DUBENGINE_WHISPER_MODEL_PATH"); v != "" {
		cfg.LocalModels.WhisperModelPath = v
	}
	if v := os.Getenv("DUBENGINE_LOCAL_TTS_BINARY"); v != "" {
		cfg.LocalModels.LocalTTSBinary = v
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
