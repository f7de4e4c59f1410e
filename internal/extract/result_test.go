package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble(t *testing.T) {
	r := Assemble("\n first page\nsecond page\n\n", true, "default", 7, "in.pdf", "out.json")

	assert.Equal(t, RunResult{
		NaturalText:      "first page\nsecond page",
		Markdown:         true,
		TaskType:         "default",
		TotalPages:       7,
		OriginalFilePath: "in.pdf",
		OutputJSONPath:   "out.json",
	}, r)
}

func TestWriteResult_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "result.json")
	want := Assemble("| a | b |\n<figure>IMAGE_ANALYSIS</figure>\nจึงเรียนมาเพื่อโปรดทราบ", false, "structure", 2, "/docs/หนังสือ.pdf", path)

	require.NoError(t, WriteResult(path, want))
	got, err := ReadResult(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteResult_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, WriteResult(path, Assemble("<b>จึงเรียน</b> & co", true, "default", 1, "a.pdf", path)))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(b)

	assert.True(t, strings.HasPrefix(s, "{\n    \"natural_text\": \"<b>จึงเรียน</b> & co\",\n"), s)
	assert.NotContains(t, s, `\u`)
	keys := []string{`"natural_text"`, `"markdown"`, `"task_type"`, `"total_pages"`, `"original_file_path"`, `"output_json_path"`}
	last := -1
	for _, k := range keys {
		i := strings.Index(s, k)
		require.Greater(t, i, last, k)
		last = i
	}
}

func TestReadResult_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadResult(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = ReadResult(bad)
	assert.Error(t, err)
}
