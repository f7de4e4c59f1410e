package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gen2brain/go-fitz"
)

// DefaultMaxDim bounds the longest side of a rendered page in pixels.
const DefaultMaxDim = 1800

// PopplerRenderer rasterizes single pages with pdftoppm.
type PopplerRenderer struct {
	bin    string
	runner Runner
	logger *slog.Logger
}

func NewPopplerRenderer(bin string, logger *slog.Logger) *PopplerRenderer {
	if bin == "" {
		bin = "pdftoppm"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PopplerRenderer{bin: bin, runner: execRunner{logger: logger}, logger: logger}
}

// Render returns the PNG bytes of a 1-based page scaled so its longest side
// is maxDim pixels.
func (r *PopplerRenderer) Render(ctx context.Context, path string, page, maxDim int) ([]byte, error) {
	if page < 1 {
		return nil, fmt.Errorf("invalid page %d", page)
	}
	if maxDim <= 0 {
		maxDim = DefaultMaxDim
	}
	tmpDir, err := os.MkdirTemp("", "pdfocr-page-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("pdf.render.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(page)
	// pdftoppm -png -f N -l N -scale-to D -singlefile <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.bin,
		"-png", "-f", n, "-l", n,
		"-scale-to", strconv.Itoa(maxDim),
		"-singlefile", path, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, truncate(string(errb), 512))
	}
	b, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d produced no image: %w", page, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("pdftoppm page %d produced an empty image", page)
	}
	return b, nil
}

// FitzRenderer rasterizes pages in-process through MuPDF.
type FitzRenderer struct{}

func (FitzRenderer) Render(ctx context.Context, path string, page, maxDim int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxDim <= 0 {
		maxDim = DefaultMaxDim
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer doc.Close()

	idx := page - 1
	if idx < 0 || idx >= doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (1..%d)", page, doc.NumPage())
	}
	bound, err := doc.Bound(idx)
	if err != nil {
		return nil, fmt.Errorf("page %d bounds: %w", page, err)
	}
	img, err := doc.ImageDPI(idx, fitDPI(bound.Dx(), bound.Dy(), maxDim))
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", page, err)
	}
	return buf.Bytes(), nil
}

// fitDPI picks the resolution at which a page measured in points renders
// with its longest side at maxDim pixels.
func fitDPI(w, h, maxDim int) float64 {
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= 0 {
		return 72
	}
	return 72 * float64(maxDim) / float64(longest)
}
