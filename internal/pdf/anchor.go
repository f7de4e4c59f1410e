package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	lpdf "github.com/ledongthuc/pdf"
)

// Anchor text engines.
const (
	EngineReport    = "pdfreport"
	EnginePdftotext = "pdftotext"
)

// DefaultTargetLength is the anchor text budget in characters.
const DefaultTargetLength = 8000

var ErrUnknownEngine = errors.New("unknown anchor text engine")

// Engine produces anchor text for one page.
type Engine interface {
	PageText(ctx context.Context, path string, page, targetLength int) (string, error)
}

// Engines dispatches anchor text extraction by engine name.
type Engines map[string]Engine

// DefaultEngines registers every engine; pdftotextBin may be empty.
func DefaultEngines(pdftotextBin string, logger *slog.Logger) Engines {
	return Engines{
		EngineReport:    ReportExtractor{},
		EnginePdftotext: NewPopplerTextExtractor(pdftotextBin, logger),
	}
}

func (e Engines) Extract(ctx context.Context, path string, page int, engine string, targetLength int) (string, error) {
	eng, ok := e[engine]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
	if targetLength <= 0 {
		targetLength = DefaultTargetLength
	}
	return eng.PageText(ctx, path, page, targetLength)
}

// ReportExtractor builds a positional text report of a page: a dimensions
// header followed by one "[XxY]text" line per text row, top to bottom.
type ReportExtractor struct{}

type reportLine struct {
	X, Y float64
	Text string
}

func (ReportExtractor) PageText(ctx context.Context, path string, page, targetLength int) (out string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, r, err := lpdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	if page < 1 || page > r.NumPage() {
		return "", fmt.Errorf("page %d out of range (1..%d)", page, r.NumPage())
	}
	p := r.Page(page)
	if p.V.IsNull() {
		return "", fmt.Errorf("page %d: missing page object", page)
	}

	// the parser panics on some malformed content streams
	defer func() {
		if rec := recover(); rec != nil {
			out, err = "", fmt.Errorf("page %d: parse content: %v", page, rec)
		}
	}()

	w, h := mediaBox(p)
	var lines []reportLine
	for _, row := range groupRows(p.Content().Text) {
		if ln, ok := joinRow(row); ok {
			lines = append(lines, ln)
		}
	}
	return formatReport(w, h, lines, targetLength), nil
}

// mediaBox returns the page size in points. The box may be inherited from
// any ancestor in the page tree.
func mediaBox(p lpdf.Page) (float64, float64) {
	var box lpdf.Value
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		if b := v.Key("MediaBox"); !b.IsNull() {
			box = b
			break
		}
	}
	if box.Len() != 4 {
		return 612, 792
	}
	return box.Index(2).Float64() - box.Index(0).Float64(),
		box.Index(3).Float64() - box.Index(1).Float64()
}

// groupRows buckets positioned glyphs by rounded baseline, top row first.
func groupRows(glyphs []lpdf.Text) [][]lpdf.Text {
	byY := make(map[float64][]lpdf.Text)
	for _, g := range glyphs {
		if g.S == "" || g.S == "\n" || g.S == "\r" {
			continue
		}
		y := math.Round(g.Y)
		byY[y] = append(byY[y], g)
	}
	ys := make([]float64, 0, len(byY))
	for y := range byY {
		ys = append(ys, y)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ys)))

	rows := make([][]lpdf.Text, 0, len(ys))
	for _, y := range ys {
		rows = append(rows, byY[y])
	}
	return rows
}

// joinRow merges the glyphs of one row into a single string, inserting a
// space where the horizontal gap looks like a word break.
func joinRow(glyphs []lpdf.Text) (reportLine, bool) {
	sorted := make([]lpdf.Text, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var b strings.Builder
	var prevEnd float64
	for i, t := range sorted {
		if i > 0 && t.FontSize > 0 && t.X-prevEnd > t.FontSize*0.25 &&
			!strings.HasPrefix(t.S, " ") && !strings.HasSuffix(b.String(), " ") {
			b.WriteString(" ")
		}
		b.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	s := strings.TrimSpace(b.String())
	if s == "" {
		return reportLine{}, false
	}
	return reportLine{X: sorted[0].X, Y: math.Round(sorted[0].Y), Text: s}, true
}

// formatReport renders the page report, dropping trailing lines once the
// budget is spent. The header is always kept.
func formatReport(w, h float64, lines []reportLine, targetLength int) string {
	var b strings.Builder
	b.WriteString("Page dimensions: ")
	b.WriteString(strconv.FormatFloat(w, 'f', 1, 64))
	b.WriteString("x")
	b.WriteString(strconv.FormatFloat(h, 'f', 1, 64))
	b.WriteString("\n")

	used := utf8.RuneCountInString(b.String())
	for _, ln := range lines {
		entry := fmt.Sprintf("[%.0fx%.0f]%s\n", ln.X, ln.Y, ln.Text)
		n := utf8.RuneCountInString(entry)
		if targetLength > 0 && used+n > targetLength {
			break
		}
		b.WriteString(entry)
		used += n
	}
	return strings.TrimRight(b.String(), "\n")
}

// PopplerTextExtractor reads the layout text of a page with pdftotext.
type PopplerTextExtractor struct {
	bin    string
	runner Runner
}

func NewPopplerTextExtractor(bin string, logger *slog.Logger) *PopplerTextExtractor {
	if bin == "" {
		bin = "pdftotext"
	}
	return &PopplerTextExtractor{bin: bin, runner: execRunner{logger: logger}}
}

func (e *PopplerTextExtractor) PageText(ctx context.Context, path string, page, targetLength int) (string, error) {
	n := strconv.Itoa(page)
	// pdftotext -f N -l N -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.bin, "-f", n, "-l", n, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext page %d: %w: %s", page, err, truncate(string(errb), 512))
	}
	text := strings.TrimRight(strings.ReplaceAll(string(out), "\f", ""), "\n ")
	return truncateRunes(text, targetLength), nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
