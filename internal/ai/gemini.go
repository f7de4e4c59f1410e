package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini sends pages to the Gemini API. It has no repetition penalty knob,
// so that parameter is dropped.
type Gemini struct {
	client *genai.Client
	model  string
	params GenerationParams
	logger *slog.Logger
}

// GeminiConfig configures the Gemini API backend.
type GeminiConfig struct {
	APIKey  string
	BaseURL string // empty keeps the public endpoint
	Model   string
	Params  GenerationParams
}

func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing GOOGLE_API_KEY", ErrNotConfigured)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Params == (GenerationParams{}) {
		cfg.Params = DefaultParams
	}
	if logger == nil {
		logger = slog.Default()
	}
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Gemini{client: c, model: cfg.Model, params: cfg.Params, logger: logger}, nil
}

func (g *Gemini) Infer(ctx context.Context, req PageRequest) (string, error) {
	if g.client == nil {
		return "", ErrNotConfigured
	}
	content, err := geminiContents(req)
	if err != nil {
		return "", err
	}
	start := time.Now()
	res, err := g.client.Models.GenerateContent(ctx, g.model, content, geminiConfig(g.params))
	if err != nil {
		g.logger.Error("ai.gemini.infer.error",
			"page", req.Page, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	if len(res.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrEmptyResponse)
	}
	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty candidate", ErrEmptyResponse)
	}
	g.logger.Debug("ai.gemini.infer.ok",
		"page", req.Page,
		"model", g.model,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// geminiContents builds a multimodal prompt with inline image bytes.
func geminiContents(req PageRequest) ([]*genai.Content, error) {
	img, err := base64.StdEncoding.DecodeString(req.ImageB64)
	if err != nil {
		return nil, fmt.Errorf("decode page image: %w", err)
	}
	return []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: req.Prompt},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: img}},
			},
		},
	}, nil
}

func geminiConfig(p GenerationParams) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		MaxOutputTokens: int32(p.MaxTokens),
		Temperature:     genai.Ptr(float32(p.Temperature)),
		TopP:            genai.Ptr(float32(p.TopP)),
	}
}
