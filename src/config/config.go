package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	// PlaceholderAPIKey is what the bootstrapped .env ships with; it counts as unset.
	PlaceholderAPIKey = "your_api_key_here"
	// InsecureSecretKey signs session cookies when ASSIST_SECRET_KEY is unset.
	// Never rely on it outside local development.
	InsecureSecretKey = "dev-secret-key-change-me-in-production"

	DefaultModel = "claude-3-7-sonnet-20250219"
)

// DefaultAllowedExtensions is the upload allow-list.
var DefaultAllowedExtensions = []string{
	"txt", "pdf", "png", "jpg", "jpeg", "gif", "py", "js", "html", "css", "java",
	"c", "cpp", "h", "cs", "php", "rb", "go", "rs", "ts", "json", "xml", "yaml",
	"yml", "md", "asm", "sql",
}

// Config is built once at startup and handed to every component.
type Config struct {
	Port    string
	EnvFile string

	Provider        string // anthropic|openai|gemini|ollama|dummy
	APIKey          string // key for Provider; empty when unset or placeholder
	ProviderBaseURL string

	SecretKey string

	UploadDir         string
	AllowedExtensions []string
	MaxUploadBytes    int64

	DefaultModel      string
	Temperature       float64
	MaxTokens         int
	ThinkingMaxTokens int
	ThinkingModels    string // regexp matched against model ids

	HistoryLimit    int
	HistoryBackend  string // memory|sqlite|postgres|mongo
	HistoryDSN      string
	MongoDatabase   string
	SessionTTL      time.Duration
	SessionCapacity int

	GitHubAPIURL  string
	GitHubToken   string
	GitHubTimeout time.Duration

	LLMCacheSize       int
	LLMCacheTTL        time.Duration
	MaxConcurrentCalls int // 0 = unlimited

	LogLevel string
	LogFile  string
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		Port:              "5000",
		EnvFile:           ".env",
		Provider:          "anthropic",
		SecretKey:         InsecureSecretKey,
		UploadDir:         "uploads",
		AllowedExtensions: append([]string(nil), DefaultAllowedExtensions...),
		MaxUploadBytes:    16 << 20,
		DefaultModel:      DefaultModel,
		Temperature:       0.7,
		MaxTokens:         20000,
		ThinkingMaxTokens: 16000,
		ThinkingModels:    `claude-3-7|claude-(sonnet|opus)-4`,
		HistoryLimit:      10,
		HistoryBackend:    "memory",
		MongoDatabase:     "codeassist",
		SessionTTL:        24 * time.Hour,
		SessionCapacity:   10000,
		GitHubAPIURL:      "https://api.github.com",
		GitHubTimeout:     10 * time.Second,
		LLMCacheTTL:       5 * time.Minute,
		LogLevel:          "info",
		LogFile:           "app.log",
	}
}

// Load bootstraps and reads the .env file (without overriding variables that
// are already set), then builds the Config from the process environment.
func Load() (*Config, error) {
	envFile := getEnv(os.LookupEnv, "ASSIST_ENV_FILE", ".env")
	if _, err := Bootstrap(envFile); err != nil {
		return nil, err
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg, err := FromLookup(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	cfg.EnvFile = envFile
	return cfg, nil
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	def := Default()
	cfg := &Config{
		Port:     getEnv(lookup, "PORT", def.Port),
		EnvFile:  getEnv(lookup, "ASSIST_ENV_FILE", def.EnvFile),
		Provider: strings.ToLower(getEnv(lookup, "ASSIST_PROVIDER", def.Provider)),

		SecretKey: getEnv(lookup, "ASSIST_SECRET_KEY", def.SecretKey),

		UploadDir:         getEnv(lookup, "ASSIST_UPLOAD_DIR", def.UploadDir),
		AllowedExtensions: getList(lookup, "ASSIST_ALLOWED_EXTENSIONS", def.AllowedExtensions),

		DefaultModel:   getEnv(lookup, "ASSIST_DEFAULT_MODEL", def.DefaultModel),
		ThinkingModels: getEnv(lookup, "ASSIST_THINKING_MODELS", def.ThinkingModels),

		HistoryBackend: strings.ToLower(getEnv(lookup, "ASSIST_HISTORY_BACKEND", def.HistoryBackend)),
		HistoryDSN:     getEnv(lookup, "ASSIST_HISTORY_DSN", ""),
		MongoDatabase:  getEnv(lookup, "ASSIST_MONGO_DATABASE", def.MongoDatabase),

		GitHubAPIURL: strings.TrimRight(getEnv(lookup, "GITHUB_API_URL", def.GitHubAPIURL), "/"),
		GitHubToken:  getEnv(lookup, "GITHUB_TOKEN", ""),

		LogLevel: getEnv(lookup, "ASSIST_LOG_LEVEL", def.LogLevel),
		LogFile:  getEnv(lookup, "ASSIST_LOG_FILE", def.LogFile),
	}

	var err error
	if cfg.MaxUploadBytes, err = cast.ToInt64E(getEnv(lookup, "ASSIST_MAX_UPLOAD_BYTES", cast.ToString(def.MaxUploadBytes))); err != nil {
		return nil, fmt.Errorf("ASSIST_MAX_UPLOAD_BYTES: %w", err)
	}
	if cfg.Temperature, err = cast.ToFloat64E(getEnv(lookup, "ASSIST_TEMPERATURE", cast.ToString(def.Temperature))); err != nil {
		return nil, fmt.Errorf("ASSIST_TEMPERATURE: %w", err)
	}
	if cfg.MaxTokens, err = cast.ToIntE(getEnv(lookup, "ASSIST_MAX_TOKENS", cast.ToString(def.MaxTokens))); err != nil {
		return nil, fmt.Errorf("ASSIST_MAX_TOKENS: %w", err)
	}
	if cfg.ThinkingMaxTokens, err = cast.ToIntE(getEnv(lookup, "ASSIST_THINKING_MAX_TOKENS", cast.ToString(def.ThinkingMaxTokens))); err != nil {
		return nil, fmt.Errorf("ASSIST_THINKING_MAX_TOKENS: %w", err)
	}
	if cfg.HistoryLimit, err = cast.ToIntE(getEnv(lookup, "ASSIST_HISTORY_LIMIT", cast.ToString(def.HistoryLimit))); err != nil {
		return nil, fmt.Errorf("ASSIST_HISTORY_LIMIT: %w", err)
	}
	if cfg.SessionCapacity, err = cast.ToIntE(getEnv(lookup, "ASSIST_SESSION_CAPACITY", cast.ToString(def.SessionCapacity))); err != nil {
		return nil, fmt.Errorf("ASSIST_SESSION_CAPACITY: %w", err)
	}
	if cfg.LLMCacheSize, err = cast.ToIntE(getEnv(lookup, "ASSIST_LLM_CACHE_SIZE", "0")); err != nil {
		return nil, fmt.Errorf("ASSIST_LLM_CACHE_SIZE: %w", err)
	}
	if cfg.MaxConcurrentCalls, err = cast.ToIntE(getEnv(lookup, "ASSIST_MAX_CONCURRENT_CALLS", "0")); err != nil {
		return nil, fmt.Errorf("ASSIST_MAX_CONCURRENT_CALLS: %w", err)
	}
	if cfg.SessionTTL, err = cast.ToDurationE(getEnv(lookup, "ASSIST_SESSION_TTL", def.SessionTTL.String())); err != nil {
		return nil, fmt.Errorf("ASSIST_SESSION_TTL: %w", err)
	}
	if cfg.GitHubTimeout, err = cast.ToDurationE(getEnv(lookup, "ASSIST_GITHUB_TIMEOUT", def.GitHubTimeout.String())); err != nil {
		return nil, fmt.Errorf("ASSIST_GITHUB_TIMEOUT: %w", err)
	}
	if cfg.LLMCacheTTL, err = cast.ToDurationE(getEnv(lookup, "ASSIST_LLM_CACHE_TTL", def.LLMCacheTTL.String())); err != nil {
		return nil, fmt.Errorf("ASSIST_LLM_CACHE_TTL: %w", err)
	}

	cfg.APIKey, cfg.ProviderBaseURL = providerCredentials(lookup, cfg.Provider)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and patterns.
func (c *Config) Validate() error {
	switch c.Provider {
	case "anthropic", "claude", "openai", "gemini", "google", "ollama", "dummy":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	switch c.HistoryBackend {
	case "memory", "sqlite", "postgres", "mongo":
	default:
		return fmt.Errorf("unknown history backend %q", c.HistoryBackend)
	}
	if c.HistoryLimit <= 0 {
		return errors.New("ASSIST_HISTORY_LIMIT must be positive")
	}
	if c.MaxTokens <= 0 || c.ThinkingMaxTokens <= 0 {
		return errors.New("token budgets must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %v out of range", c.Temperature)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("ASSIST_MAX_UPLOAD_BYTES must be positive")
	}
	if _, err := regexp.Compile(c.ThinkingModels); err != nil {
		return fmt.Errorf("ASSIST_THINKING_MODELS: %w", err)
	}
	return nil
}

// APIKeyConfigured reports whether the selected provider has usable credentials.
// Keyless providers always report true.
func (c *Config) APIKeyConfigured() bool {
	switch c.Provider {
	case "ollama", "dummy":
		return true
	}
	return strings.TrimSpace(c.APIKey) != ""
}

// InsecureSecret reports whether session cookies are signed with the fallback key.
func (c *Config) InsecureSecret() bool {
	return c.SecretKey == "" || c.SecretKey == InsecureSecretKey
}

// Addr is the listen address.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func providerCredentials(lookup func(string) (string, bool), provider string) (key, baseURL string) {
	switch provider {
	case "openai":
		key = getEnv(lookup, "OPENAI_API_KEY", "")
		baseURL = getEnv(lookup, "OPENAI_BASE_URL", "")
	case "gemini", "google":
		key = getEnv(lookup, "GEMINI_API_KEY", getEnv(lookup, "GOOGLE_API_KEY", ""))
	case "ollama":
		baseURL = getEnv(lookup, "OLLAMA_HOST", "")
	case "dummy":
	default:
		key = getEnv(lookup, "ANTHROPIC_API_KEY", "")
		baseURL = getEnv(lookup, "ANTHROPIC_BASE_URL", "")
	}
	if key == PlaceholderAPIKey {
		key = ""
	}
	return key, baseURL
}

func getEnv(lookup func(string) (string, bool), key, def string) string {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getList(lookup func(string) (string, bool), key string, def []string) []string {
	raw := getEnv(lookup, key, "")
	if raw == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(p), "."))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
