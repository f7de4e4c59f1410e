package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeBlankPDF writes a minimal PDF with n empty letter-sized pages.
func writeBlankPDF(t *testing.T, n int) string {
	t.Helper()

	kids := make([]string, n)
	for i := 0; i < n; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
	}
	for i := 0; i < n; i++ {
		objs = append(objs, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}
	return writePDF(t, fmt.Sprintf("blank-%d.pdf", n), objs)
}

// textPage describes a single-page document drawn with Helvetica.
type textPage struct {
	content  string // content stream operators
	pagesBox string // MediaBox on the /Pages node, e.g. "0 0 595 842"
	pageBox  string // MediaBox on the page itself
}

func writeTextPDF(t *testing.T, tp textPage) string {
	t.Helper()

	pages := "<< /Type /Pages /Kids [3 0 R] /Count 1"
	if tp.pagesBox != "" {
		pages += " /MediaBox [" + tp.pagesBox + "]"
	}
	page := "<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R"
	if tp.pageBox != "" {
		page += " /MediaBox [" + tp.pageBox + "]"
	}
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		pages + " >>",
		page + " >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(tp.content), tp.content),
	}
	return writePDF(t, "text.pdf", objs)
}

// writePDF serializes numbered objects with a valid xref table.
func writePDF(t *testing.T, name string, objs []string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objs)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

type call struct {
	name string
	args []string
}

// stubRunner records invocations and replays a canned result.
type stubRunner struct {
	calls  []call
	stdout []byte
	stderr []byte
	err    error
	// onRun lets a test emulate side effects such as files written by the tool.
	onRun func(args []string) error
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, call{name: name, args: args})
	if s.onRun != nil {
		if err := s.onRun(args); err != nil {
			return nil, nil, err
		}
	}
	return s.stdout, s.stderr, s.err
}
