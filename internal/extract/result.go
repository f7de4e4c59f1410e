package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RunResult is the single artifact persisted at the end of a run.
type RunResult struct {
	NaturalText      string `json:"natural_text"`
	Markdown         bool   `json:"markdown"`
	TaskType         string `json:"task_type"`
	TotalPages       int    `json:"total_pages"`
	OriginalFilePath string `json:"original_file_path"`
	OutputJSONPath   string `json:"output_json_path"`
}

// Assemble packages the accumulated page text and run metadata.
func Assemble(accumulated string, markdown bool, taskType string, totalPages int, src, dest string) RunResult {
	return RunResult{
		NaturalText:      strings.TrimSpace(accumulated),
		Markdown:         markdown,
		TaskType:         taskType,
		TotalPages:       totalPages,
		OriginalFilePath: src,
		OutputJSONPath:   dest,
	}
}

// Encode renders r as indented UTF-8 JSON with non-ASCII text left unescaped.
func (r RunResult) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteResult writes r to path in a single write.
func WriteResult(path string, r RunResult) error {
	b, err := r.Encode()
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write result %s: %w", path, err)
	}
	return nil
}

func ReadResult(path string) (RunResult, error) {
	var r RunResult
	b, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return r, fmt.Errorf("decode result %s: %w", path, err)
	}
	return r, nil
}
