package extract

import (
	"context"
	"log/slog"

	"github.com/thywilljoshua/pdf-ocr/internal/ai"
	"github.com/thywilljoshua/pdf-ocr/internal/pdf"
	"github.com/thywilljoshua/pdf-ocr/internal/prompt"
)

// DefaultSentinel is the closing salutation of Thai official letters; a page
// containing it is treated as the last page of the document.
const DefaultSentinel = "จึงเรียน"

// Renderer produces PNG bytes for a 1-based page.
type Renderer interface {
	Render(ctx context.Context, path string, page, maxDim int) ([]byte, error)
}

// AnchorExtractor produces bounded raw text for a 1-based page.
type AnchorExtractor interface {
	Extract(ctx context.Context, path string, page int, engine string, targetLength int) (string, error)
}

// PageCounter reports the total number of pages of a document.
type PageCounter func(path string) (int, error)

type Config struct {
	TaskType     prompt.TaskType
	Markdown     bool
	Sentinel     string // empty disables early stop
	MaxDim       int
	AnchorEngine string
	AnchorLength int
}

func DefaultConfig() Config {
	return Config{
		TaskType:     prompt.TaskDefault,
		Markdown:     true,
		Sentinel:     DefaultSentinel,
		MaxDim:       pdf.DefaultMaxDim,
		AnchorEngine: pdf.EngineReport,
		AnchorLength: pdf.DefaultTargetLength,
	}
}

// Deps are the collaborators a pipeline drives. They are created once and
// shared by every page of a run.
type Deps struct {
	Pages    PageCounter
	Renderer Renderer
	Anchors  AnchorExtractor
	Model    ai.Model
	Logger   *slog.Logger
}
