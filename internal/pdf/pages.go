package pdf

import (
	"errors"
	"fmt"
	"os"

	rpdf "rsc.io/pdf"
)

// ErrNoPages is returned for documents that parse but report zero pages.
var ErrNoPages = errors.New("pdf has no pages")

// PageCount opens path and returns the number of pages in the document.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	doc, err := rpdf.NewReader(f, st.Size())
	if err != nil {
		return 0, fmt.Errorf("open pdf %s: %w", path, err)
	}
	n := doc.NumPage()
	if n <= 0 {
		return 0, fmt.Errorf("%s: %w", path, ErrNoPages)
	}
	return n, nil
}
