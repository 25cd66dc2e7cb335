// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() or Load() which handle:
// - Optional YAML file overlay (Load only)
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup
//
// Precedence, lowest first: built-in defaults, YAML file, environment.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings holds all application configuration.
type Settings struct {
	LLM      LLMConfig
	Analysis AnalysisConfig
	Storage  StorageConfig
	Logging  LoggingConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	MaxTokens   uint32
	Temperature float64
	TopP        float64
}

// AnalysisConfig holds the constants of one analysis run.
type AnalysisConfig struct {
	MaxFiles            int
	MaxFileContentChars int
	MaxRetries          int
	BaseDelay           time.Duration
	RequestTimeout      time.Duration
	MinResponseChars    int
	ModelEndpoint       string
	ModelName           string
	MaxTokens           uint32
}

// StorageConfig locates the state database.
type StorageConfig struct {
	DBPath string
}

// LoggingConfig selects log level, format and destination.
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// DefaultAnalysisConfig returns the analysis defaults.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		MaxFiles:            5,
		MaxFileContentChars: 2000,
		MaxRetries:          3,
		BaseDelay:           2 * time.Second,
		RequestTimeout:      60 * time.Second,
		MinResponseChars:    50,
		ModelEndpoint:       "https://api.together.xyz/v1",
		ModelName:           "mistralai/Mixtral-8x7B-Instruct-v0.1",
		MaxTokens:           2048,
	}
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
	baseURLEnv   string
	defaultURL   string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"together":  {"TOGETHER_MODEL", "mistralai/Mixtral-8x7B-Instruct-v0.1", "TOGETHER_API_KEY", "TOGETHER_BASE_URL", "https://api.together.xyz/v1"},
	"openai":    {"OPENAI_MODEL", "gpt-4o-mini", "OPENAI_API_KEY", "OPENAI_BASE_URL", ""},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY", "", ""},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY", "DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY", "", ""},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude":     "anthropic",
	"google":     "gemini",
	"gpt":        "openai",
	"togetherai": "together",
	"mixtral":    "together",
}

// DefaultProvider is used when neither flag, file nor LLM_PROVIDER names one.
const DefaultProvider = "together"

// New creates settings for the specified provider, loading values from environment variables.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	return Load(provider, "")
}

// Load creates settings from an optional YAML file at path and the environment.
// An empty provider falls back to LLM_PROVIDER, then the file, then DefaultProvider.
func Load(provider, path string) (Settings, error) {
	file := FileConfig{}
	if path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return Settings{}, err
		}
		file = f
	}

	if provider == "" {
		provider = os.Getenv("LLM_PROVIDER")
	}
	if provider == "" {
		provider = file.Provider
	}
	if provider == "" {
		provider = DefaultProvider
	}
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	defaults := DefaultAnalysisConfig()
	file.Analysis.applyTo(&defaults)

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", orUint32(file.MaxTokens, defaults.MaxTokens))
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", orFloat64(file.Temperature, 0.3))
	if err != nil {
		return Settings{}, err
	}

	topP, err := getEnvFloat64("LLM_TOP_P", orFloat64(file.TopP, 0.9))
	if err != nil {
		return Settings{}, err
	}

	maxFiles, err := getEnvInt("ANALYSIS_MAX_FILES", defaults.MaxFiles)
	if err != nil {
		return Settings{}, err
	}

	maxFileChars, err := getEnvInt("ANALYSIS_MAX_FILE_CHARS", defaults.MaxFileContentChars)
	if err != nil {
		return Settings{}, err
	}

	maxRetries, err := getEnvInt("ANALYSIS_MAX_RETRIES", defaults.MaxRetries)
	if err != nil {
		return Settings{}, err
	}

	baseDelayMs, err := getEnvInt("ANALYSIS_BASE_DELAY_MS", int(defaults.BaseDelay/time.Millisecond))
	if err != nil {
		return Settings{}, err
	}

	timeoutSecs, err := getEnvInt("ANALYSIS_TIMEOUT_SECS", int(defaults.RequestTimeout/time.Second))
	if err != nil {
		return Settings{}, err
	}

	minChars, err := getEnvInt("ANALYSIS_MIN_RESPONSE_CHARS", defaults.MinResponseChars)
	if err != nil {
		return Settings{}, err
	}

	if maxRetries < 1 {
		return Settings{}, fmt.Errorf("ANALYSIS_MAX_RETRIES must be at least 1, got %d", maxRetries)
	}
	if maxFiles < 1 {
		return Settings{}, fmt.Errorf("ANALYSIS_MAX_FILES must be at least 1, got %d", maxFiles)
	}

	// Get model and endpoint from environment, then file, then provider default
	model := os.Getenv(info.modelEnv)
	if model == "" {
		model = file.Model
	}
	if model == "" {
		model = info.defaultModel
	}

	baseURL := ""
	if info.baseURLEnv != "" {
		baseURL = os.Getenv(info.baseURLEnv)
	}
	if baseURL == "" {
		baseURL = file.BaseURL
	}
	if baseURL == "" {
		baseURL = info.defaultURL
	}

	dbPath := getEnvString("REPOLENS_DB", orString(file.Storage.DBPath, ".repolens/state.db"))

	return Settings{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       model,
			BaseURL:     baseURL,
			MaxTokens:   maxTokens,
			Temperature: temperature,
			TopP:        topP,
		},
		Analysis: AnalysisConfig{
			MaxFiles:            maxFiles,
			MaxFileContentChars: maxFileChars,
			MaxRetries:          maxRetries,
			BaseDelay:           time.Duration(baseDelayMs) * time.Millisecond,
			RequestTimeout:      time.Duration(timeoutSecs) * time.Second,
			MinResponseChars:    minChars,
			ModelEndpoint:       baseURL,
			ModelName:           model,
			MaxTokens:           maxTokens,
		},
		Storage: StorageConfig{
			DBPath: dbPath,
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", orString(file.Logging.Level, "info")),
			Format: getEnvString("LOG_FORMAT", orString(file.Logging.Format, "text")),
			Output: getEnvString("LOG_OUTPUT", orString(file.Logging.Output, "stderr")),
		},
	}, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	return result
}

// Environment variable helpers with proper error handling

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func orString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func orUint32(v, fallback uint32) uint32 {
	if v != 0 {
		return v
	}
	return fallback
}

func orFloat64(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}
