// Package config loads runtime configuration from the environment (and an
// optional .env file) and persists provider settings changed at runtime.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"docinsight/internal/llm"
)

// Config is the validated process configuration.
type Config struct {
	Port             string            `validate:"required,numeric"`
	Provider         string            `validate:"oneof=openai cohere anthropic huggingface"`
	Model            string            `validate:"omitempty,max=200"`
	ProviderKeys     map[string]string `validate:"-"`
	SecretKey        string            `validate:"-"`
	ChunkWords       int               `validate:"gte=1"`
	SummaryMaxTokens int               `validate:"gte=1,lte=8192"`
	AnswerMaxTokens  int               `validate:"gte=1,lte=8192"`
	MaxUploadMB      int64             `validate:"gte=1,lte=1024"`
	SessionTTL       time.Duration     `validate:"gte=1s"`
	DataDir          string            `validate:"required"`
	LogLevel         string            `validate:"oneof=debug info warn error"`
	LogFile          string            `validate:"omitempty"`
	SettingsSecret   string            `validate:"-"`
}

var keyEnv = map[string]string{
	llm.OpenAI:      "OPENAI_API_KEY",
	llm.Cohere:      "COHERE_API_KEY",
	llm.Anthropic:   "ANTHROPIC_API_KEY",
	llm.HuggingFace: "HUGGINGFACE_API_KEY",
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults and validation.
func FromEnv(getenv func(string) string) (*Config, error) {
	str := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	var errs []error
	num := func(key string, def int) int {
		v := str(key, "")
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: not an integer", key, v))
			return def
		}
		return n
	}

	cfg := &Config{
		Port:             str("PORT", "8080"),
		Provider:         strings.ToLower(str("LLM_PROVIDER", llm.OpenAI)),
		Model:            str("LLM_MODEL", ""),
		ProviderKeys:     make(map[string]string, len(keyEnv)),
		SecretKey:        str("API_SECRET_KEY", ""),
		ChunkWords:       num("CHUNK_WORDS", 3000),
		SummaryMaxTokens: num("SUMMARY_MAX_TOKENS", 300),
		AnswerMaxTokens:  num("ANSWER_MAX_TOKENS", 100),
		MaxUploadMB:      int64(num("MAX_UPLOAD_MB", 50)),
		DataDir:          str("DATA_DIR", "data"),
		LogLevel:         strings.ToLower(str("LOG_LEVEL", "info")),
		LogFile:          str("LOG_FILE", ""),
		SettingsSecret:   str("SETTINGS_SECRET", ""),
	}
	for name, env := range keyEnv {
		cfg.ProviderKeys[name] = str(env, "")
	}

	ttl := str("SESSION_TTL", "1h")
	d, err := time.ParseDuration(ttl)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid SESSION_TTL %q: %w", ttl, err))
		d = time.Hour
	}
	cfg.SessionTTL = d

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config validation: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag()+paramSuffix(fe.Param()), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

// APIKey returns the key for the named provider, falling back to
// API_SECRET_KEY when the provider-specific variable is unset.
func (c *Config) APIKey(provider string) string {
	if k := c.ProviderKeys[provider]; k != "" {
		return k
	}
	return c.SecretKey
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// ErrNoAPIKey is returned by NewProvider when the selected provider has no key.
var ErrNoAPIKey = errors.New("no API key configured")

// NewProvider builds the configured language model client.
func (c *Config) NewProvider() (llm.Provider, error) {
	key := c.APIKey(c.Provider)
	if key == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrNoAPIKey, c.Provider)
	}
	return llm.NewProvider(c.Provider, key, c.Model)
}
