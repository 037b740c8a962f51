// Package config loads the process-wide configuration from the environment.
// The resulting Config is constructed once at startup and injected into the
// service; it is never mutated afterwards.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Provider selects the language model backend.
type Provider string

const (
	// ProviderAnthropic uses the Anthropic Messages API (default).
	ProviderAnthropic Provider = "anthropic"
	// ProviderOpenAI uses the OpenAI Chat Completions API.
	ProviderOpenAI Provider = "openai"
)

// Config carries every external input of the research service. TavilyAPIKey
// may be empty: web search is then omitted from the capability registry and
// the system degrades gracefully to fewer tools.
type Config struct {
	Provider        Provider
	AnthropicAPIKey string
	OpenAIAPIKey    string
	TavilyAPIKey    string
	ModelName       string
	CallTimeout     time.Duration
	MaxLoopbacks    int
	RosterPath      string
}

// FromEnv builds a Config from environment variables, applying defaults for
// everything optional. It fails only when the selected provider's credential
// is missing.
func FromEnv() (Config, error) {
	cfg := Config{
		Provider:        Provider(getEnv("DEEPRESEARCH_PROVIDER", string(ProviderAnthropic))),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		TavilyAPIKey:    os.Getenv("TAVILY_API_KEY"),
		ModelName:       os.Getenv("DEEPRESEARCH_MODEL"),
		CallTimeout:     5 * time.Minute,
		MaxLoopbacks:    2,
		RosterPath:      os.Getenv("DEEPRESEARCH_ROSTER"),
	}

	if v := os.Getenv("DEEPRESEARCH_CALL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DEEPRESEARCH_CALL_TIMEOUT %q: %w", v, err)
		}
		cfg.CallTimeout = d
	}

	if v := os.Getenv("DEEPRESEARCH_MAX_LOOPBACKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid DEEPRESEARCH_MAX_LOOPBACKS %q", v)
		}
		cfg.MaxLoopbacks = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks provider selection and credentials.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
