package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderElevenLabs = "elevenlabs"
	ProviderGoogle     = "google"
)

type Config struct {
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	ElevenLabsAPIKey string `env:"ELEVENLABS_API_KEY"`
	FirecrawlAPIKey  string `env:"FIRECRAWL_API_KEY"`
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	GoogleTTSAPIKey  string `env:"GOOGLE_TTS_API_KEY"`

	SummarizerProvider  string `env:"SUMMARIZER_PROVIDER"  envDefault:"openai"`
	SynthesizerProvider string `env:"SYNTHESIZER_PROVIDER" envDefault:"elevenlabs"`

	Addr           string   `env:"ADDR"            envDefault:":8000"`
	SessionSecret  string   `env:"SESSION_SECRET"  envDefault:"secret"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`
}

// MissingKeysError names every required credential that is not set.
type MissingKeysError struct {
	Names []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf(
		"Missing API keys in .env: %s. Please add them to your .env file and restart the app.",
		strings.Join(e.Names, ", "),
	)
}

// Load reads .env when present and parses the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	return Parse(env.Options{})
}

// Parse builds a Config from opts.Environment, or the process environment when that is nil.
func Parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.SummarizerProvider = strings.ToLower(strings.TrimSpace(cfg.SummarizerProvider))
	cfg.SynthesizerProvider = strings.ToLower(strings.TrimSpace(cfg.SynthesizerProvider))

	return cfg, nil
}

// Missing lists the unset credentials required by the selected providers, in a fixed order.
func (c Config) Missing() []string {
	var missing []string

	switch c.SummarizerProvider {
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	default:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	}

	// Google TTS falls back to application default credentials.
	if c.SynthesizerProvider != ProviderGoogle && strings.TrimSpace(c.ElevenLabsAPIKey) == "" {
		missing = append(missing, "ELEVENLABS_API_KEY")
	}

	if strings.TrimSpace(c.FirecrawlAPIKey) == "" {
		missing = append(missing, "FIRECRAWL_API_KEY")
	}

	return missing
}

func (c Config) Validate() error {
	switch c.SummarizerProvider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown SUMMARIZER_PROVIDER %q", c.SummarizerProvider)
	}

	switch c.SynthesizerProvider {
	case ProviderElevenLabs, ProviderGoogle:
	default:
		return fmt.Errorf("unknown SYNTHESIZER_PROVIDER %q", c.SynthesizerProvider)
	}

	if missing := c.Missing(); len(missing) > 0 {
		return &MissingKeysError{Names: missing}
	}

	return nil
}
