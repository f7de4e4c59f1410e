package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var (
	// ErrEmptyResponse means the service answered without any usable text.
	ErrEmptyResponse = errors.New("model returned no content")
	ErrNotConfigured = errors.New("model client not configured")
)

// PageRequest is a single-page inference request.
type PageRequest struct {
	Page     int
	ImageB64 string // PNG, standard base64
	Prompt   string
	TaskType string
}

// GenerationParams are fixed for a whole run.
type GenerationParams struct {
	MaxTokens         int64
	Temperature       float64
	TopP              float64
	RepetitionPenalty float64 // extension field, only sent where the backend accepts it
}

var DefaultParams = GenerationParams{
	MaxTokens:         16384,
	Temperature:       0.1,
	TopP:              0.6,
	RepetitionPenalty: 1.2,
}

// Model turns one page image plus instruction into generated text.
type Model interface {
	Infer(ctx context.Context, req PageRequest) (string, error)
}

// DataURL wraps base64 PNG data as an inline image reference.
func DataURL(imageB64 string) string {
	return "data:image/png;base64," + imageB64
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config selects and configures a backend.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Params   GenerationParams
}

// New builds the long-lived client for a run.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Model, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Params == (GenerationParams{}) {
		cfg.Params = DefaultParams
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		o, err := NewOpenAI(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Params:  cfg.Params,
		}, logger)
		if err != nil {
			return nil, err
		}
		return o, nil
	case ProviderGemini:
		g, err := NewGemini(ctx, GeminiConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Params:  cfg.Params,
		}, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported model provider: %q", cfg.Provider)
	}
}
