package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thywilljoshua/pdf-ocr/internal/ai"
	"github.com/thywilljoshua/pdf-ocr/internal/prompt"
)

// ErrSourceNotFound is returned before any work when the input is missing.
var ErrSourceNotFound = fmt.Errorf("source document not found: %w", fs.ErrNotExist)

// Outcome is a finished run: the persisted result plus loop statistics.
type Outcome struct {
	RunID          string
	Result         RunResult
	PagesProcessed int
	StoppedEarly   bool
}

type Pipeline struct {
	cfg  Config
	deps Deps
	log  *slog.Logger
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Pages == nil || deps.Renderer == nil || deps.Anchors == nil || deps.Model == nil {
		return nil, errors.New("extract: pipeline requires a page counter, renderer, anchor extractor and model")
	}
	def := DefaultConfig()
	if cfg.TaskType == "" {
		cfg.TaskType = def.TaskType
	}
	if cfg.MaxDim <= 0 {
		cfg.MaxDim = def.MaxDim
	}
	if cfg.AnchorEngine == "" {
		cfg.AnchorEngine = def.AnchorEngine
	}
	if cfg.AnchorLength <= 0 {
		cfg.AnchorLength = def.AnchorLength
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, deps: deps, log: logger}, nil
}

// Run transcribes src page by page and writes the aggregated result to dest.
// Pages run strictly in order; the loop ends after the last page or after the
// first response containing the sentinel. Any collaborator failure aborts the
// run and nothing is written.
func (p *Pipeline) Run(ctx context.Context, src, dest string) (Outcome, error) {
	st, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Outcome{}, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
		}
		return Outcome{}, err
	}
	if st.IsDir() {
		return Outcome{}, fmt.Errorf("source %s is a directory", src)
	}

	runID := uuid.NewString()
	log := p.log.With("run_id", runID)
	start := time.Now()

	total, err := p.deps.Pages(src)
	if err != nil {
		return Outcome{}, fmt.Errorf("count pages: %w", err)
	}
	log.Info("extract.run.start",
		"src", src,
		"dest", dest,
		"total_pages", total,
		"task_type", p.cfg.TaskType,
	)

	var text strings.Builder
	processed := 0
	stoppedEarly := false
	for page := 1; page <= total; page++ {
		resp, err := p.page(ctx, log, src, page)
		if err != nil {
			log.Error("extract.run.aborted", "page", page, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
			return Outcome{}, fmt.Errorf("page %d: %w", page, err)
		}
		text.WriteString(resp)
		text.WriteString("\n")
		processed = page

		if p.cfg.Sentinel != "" && strings.Contains(resp, p.cfg.Sentinel) {
			stoppedEarly = true
			log.Info("extract.run.last_page_detected", "page", page, "total_pages", total)
			break
		}
	}

	res := Assemble(text.String(), p.cfg.Markdown, string(p.cfg.TaskType), total, src, dest)
	if err := WriteResult(dest, res); err != nil {
		return Outcome{}, err
	}
	log.Info("extract.run.done",
		"pages_processed", processed,
		"stopped_early", stoppedEarly,
		"text_len", len(res.NaturalText),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Outcome{RunID: runID, Result: res, PagesProcessed: processed, StoppedEarly: stoppedEarly}, nil
}

// page runs render -> anchor -> prompt -> infer for one page. An empty model
// answer is not fatal: it is logged and contributes an empty string.
func (p *Pipeline) page(ctx context.Context, log *slog.Logger, src string, page int) (string, error) {
	start := time.Now()

	img, err := p.deps.Renderer.Render(ctx, src, page, p.cfg.MaxDim)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	anchor, err := p.deps.Anchors.Extract(ctx, src, page, p.cfg.AnchorEngine, p.cfg.AnchorLength)
	if err != nil {
		return "", fmt.Errorf("anchor text: %w", err)
	}
	req := ai.PageRequest{
		Page:     page,
		ImageB64: base64.StdEncoding.EncodeToString(img),
		Prompt:   prompt.Build(p.cfg.TaskType, anchor),
		TaskType: string(p.cfg.TaskType),
	}
	resp, err := p.deps.Model.Infer(ctx, req)
	if err != nil {
		if !errors.Is(err, ai.ErrEmptyResponse) {
			return "", fmt.Errorf("infer: %w", err)
		}
		log.Warn("extract.page.empty_response", "page", page, "error", err)
		resp = ""
	}

	log.Debug("extract.page.done",
		"page", page,
		"image_bytes", len(img),
		"anchor_len", len(anchor),
		"response_len", len(resp),
		"response", resp,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
