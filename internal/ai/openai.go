package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultOpenAIBaseURL = "https://api.opentyphoon.ai/v1"
	DefaultOpenAIModel   = "typhoon-ocr-preview"
)

// OpenAIConfig configures an OpenAI-compatible chat completions backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration // 0 keeps the SDK default
	Params  GenerationParams
}

type OpenAI struct {
	client openai.Client
	model  string
	params GenerationParams
	logger *slog.Logger
}

func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Params == (GenerationParams{}) {
		cfg.Params = DefaultParams
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/") + "/"),
		// one request per page; the caller owns retry policy
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		params: cfg.Params,
		logger: logger,
	}, nil
}

func (o *OpenAI) Infer(ctx context.Context, req PageRequest) (string, error) {
	start := time.Now()
	o.logger.Debug("ai.openai.infer.start",
		"page", req.Page,
		"model", o.model,
		"task_type", req.TaskType,
		"prompt_len", len(req.Prompt),
		"image_b64_len", len(req.ImageB64),
	)

	var extra []option.RequestOption
	if o.params.RepetitionPenalty > 0 {
		extra = append(extra, option.WithJSONSet("repetition_penalty", o.params.RepetitionPenalty))
	}
	resp, err := o.client.Chat.Completions.New(ctx, o.chatParams(req), extra...)
	if err != nil {
		o.logger.Error("ai.openai.infer.error",
			"page", req.Page, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("%w: empty message (finish_reason=%s)", ErrEmptyResponse, resp.Choices[0].FinishReason)
	}

	o.logger.Debug("ai.openai.infer.ok",
		"page", req.Page,
		"finish_reason", resp.Choices[0].FinishReason,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// chatParams builds the single user turn: instruction text, then the page image.
func (o *OpenAI) chatParams(req PageRequest) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(req.Prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: DataURL(req.ImageB64),
				}),
			}),
		},
		MaxTokens:   openai.Int(o.params.MaxTokens),
		Temperature: openai.Float(o.params.Temperature),
		TopP:        openai.Float(o.params.TopP),
	}
}
