package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/pdf-ocr/internal/ai"
	"github.com/thywilljoshua/pdf-ocr/internal/config"
	"github.com/thywilljoshua/pdf-ocr/internal/extract"
	"github.com/thywilljoshua/pdf-ocr/internal/pdf"
	"github.com/thywilljoshua/pdf-ocr/internal/prompt"
)

func extractCmd() *cobra.Command {
	v := config.New()
	var out string

	cmd := &cobra.Command{
		Use:   "extract <pdf>",
		Short: "Transcribe every page of a PDF into a single JSON result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			if _, err := os.Stat(src); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("%w: %s", extract.ErrSourceNotFound, src)
				}
				return err
			}
			dest := resultPath(src, out)

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logger := cfg.Logger()
			if _, ok := prompt.ParseTaskType(cfg.Run.TaskType); !ok {
				logger.Warn("cli.extract.unknown_task_type", "task_type", cfg.Run.TaskType)
			}

			ctx := cmd.Context()
			model, err := ai.New(ctx, cfg.AI(), logger)
			if err != nil {
				return fmt.Errorf("model client: %w", err)
			}
			p, err := extract.New(cfg.Extract(), extract.Deps{
				Pages:    pdf.PageCount,
				Renderer: cfg.Renderer(logger),
				Anchors:  cfg.Anchors(logger),
				Model:    model,
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			res, err := p.Run(ctx, src, dest)
			if err != nil {
				return err
			}
			b, err := res.Result.Encode()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "", "output JSON path (default: <pdf name>_ocr.json)")
	f.String("task-type", string(prompt.TaskDefault), "prompt template: default|structure")
	f.Bool("markdown", true, "markdown flag stored in the result")
	f.String("sentinel", extract.DefaultSentinel, "stop after the first page whose response contains this text (empty disables)")
	f.String("provider", ai.ProviderOpenAI, "model backend: openai|gemini")
	f.String("model", ai.DefaultOpenAIModel, "model name")
	f.String("base-url", ai.DefaultOpenAIBaseURL, "OpenAI-compatible API base URL")
	f.String("renderer", config.RenderPoppler, "page renderer: poppler|mupdf")
	f.String("anchor-engine", pdf.EngineReport, "anchor text engine: pdfreport|pdftotext")
	f.String("log-level", "info", "log level: debug|info|warn|error")

	for key, flag := range map[string]string{
		"run.task_type":  "task-type",
		"run.markdown":   "markdown",
		"run.sentinel":   "sentinel",
		"model.provider": "provider",
		"model.name":     "model",
		"model.base_url": "base-url",
		"render.backend": "renderer",
		"anchor.engine":  "anchor-engine",
		"log.level":      "log-level",
	} {
		if err := v.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
	return cmd
}

// resultPath defaults the output to <pdf name>_ocr.json in the working directory.
func resultPath(src, out string) string {
	if out != "" {
		return out
	}
	return strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + "_ocr.json"
}
