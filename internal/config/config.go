package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/thywilljoshua/pdf-ocr/internal/ai"
	"github.com/thywilljoshua/pdf-ocr/internal/extract"
	"github.com/thywilljoshua/pdf-ocr/internal/pdf"
	"github.com/thywilljoshua/pdf-ocr/internal/prompt"
)

// EnvPrefix namespaces every environment variable, e.g. PDFOCR_MODEL_API_KEY.
const EnvPrefix = "PDFOCR"

// Config holds all application configuration.
type Config struct {
	Model  ModelConfig  `mapstructure:"model"`
	Render RenderConfig `mapstructure:"render"`
	Anchor AnchorConfig `mapstructure:"anchor"`
	Run    RunConfig    `mapstructure:"run"`
	Log    LogConfig    `mapstructure:"log"`
}

// ModelConfig selects the inference backend.
type ModelConfig struct {
	Provider    string `mapstructure:"provider"`
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Name        string `mapstructure:"name"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

type RenderConfig struct {
	Backend  string `mapstructure:"backend"` // poppler | mupdf
	MaxDim   int    `mapstructure:"max_dim"`
	Pdftoppm string `mapstructure:"pdftoppm"`
}

type AnchorConfig struct {
	Engine       string `mapstructure:"engine"`
	TargetLength int    `mapstructure:"target_length"`
	Pdftotext    string `mapstructure:"pdftotext"`
}

type RunConfig struct {
	TaskType string `mapstructure:"task_type"`
	Markdown bool   `mapstructure:"markdown"`
	Sentinel string `mapstructure:"sentinel"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	RenderPoppler = "poppler"
	RenderMuPDF   = "mupdf"
)

// New returns a viper instance with defaults and PDFOCR_ environment binding.
// Callers may bind command-line flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("model.provider", ai.ProviderOpenAI)
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.base_url", ai.DefaultOpenAIBaseURL)
	v.SetDefault("model.name", ai.DefaultOpenAIModel)
	v.SetDefault("model.timeout_secs", 0)

	v.SetDefault("render.backend", RenderPoppler)
	v.SetDefault("render.max_dim", pdf.DefaultMaxDim)
	v.SetDefault("render.pdftoppm", "pdftoppm")

	v.SetDefault("anchor.engine", pdf.EngineReport)
	v.SetDefault("anchor.target_length", pdf.DefaultTargetLength)
	v.SetDefault("anchor.pdftotext", "pdftotext")

	v.SetDefault("run.task_type", string(prompt.TaskDefault))
	v.SetDefault("run.markdown", true)
	v.SetDefault("run.sentinel", extract.DefaultSentinel)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	return v
}

// Load reads configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would fail every run. Unknown task types are
// accepted on purpose: they degrade to a placeholder prompt.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Render.Backend) {
	case RenderPoppler, RenderMuPDF:
	default:
		return fmt.Errorf("invalid render.backend %q (want %s|%s)", c.Render.Backend, RenderPoppler, RenderMuPDF)
	}
	switch c.Anchor.Engine {
	case pdf.EngineReport, pdf.EnginePdftotext:
	default:
		return fmt.Errorf("invalid anchor.engine %q (want %s|%s)", c.Anchor.Engine, pdf.EngineReport, pdf.EnginePdftotext)
	}
	if c.Render.MaxDim <= 0 {
		return fmt.Errorf("render.max_dim must be positive, got %d", c.Render.MaxDim)
	}
	return nil
}

// AI maps the model section onto the client configuration.
func (c *Config) AI() ai.Config {
	model, baseURL := c.Model.Name, c.Model.BaseURL
	if strings.EqualFold(c.Model.Provider, ai.ProviderGemini) {
		// the defaults only exist on the OpenAI-compatible endpoint
		if model == ai.DefaultOpenAIModel {
			model = ""
		}
		if baseURL == ai.DefaultOpenAIBaseURL {
			baseURL = ""
		}
	}
	return ai.Config{
		Provider: c.Model.Provider,
		APIKey:   c.Model.APIKey,
		BaseURL:  baseURL,
		Model:    model,
		Timeout:  time.Duration(c.Model.TimeoutSecs) * time.Second,
		Params:   ai.DefaultParams,
	}
}

// Extract maps the run, render and anchor sections onto the pipeline config.
func (c *Config) Extract() extract.Config {
	return extract.Config{
		TaskType:     prompt.TaskType(strings.TrimSpace(c.Run.TaskType)),
		Markdown:     c.Run.Markdown,
		Sentinel:     c.Run.Sentinel,
		MaxDim:       c.Render.MaxDim,
		AnchorEngine: c.Anchor.Engine,
		AnchorLength: c.Anchor.TargetLength,
	}
}

// Renderer builds the configured page renderer.
func (c *Config) Renderer(logger *slog.Logger) extract.Renderer {
	if strings.EqualFold(c.Render.Backend, RenderMuPDF) {
		return pdf.FitzRenderer{}
	}
	return pdf.NewPopplerRenderer(c.Render.Pdftoppm, logger)
}

// Anchors builds the anchor text engines.
func (c *Config) Anchors(logger *slog.Logger) extract.AnchorExtractor {
	return pdf.DefaultEngines(c.Anchor.Pdftotext, logger)
}

// Logger builds a slog logger from the log section, writing to stderr so
// stdout stays free for the result.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
