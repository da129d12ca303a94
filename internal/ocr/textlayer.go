package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextLayer reads the embedded text of a PDF, one string per page.
type TextLayer interface {
	PageTexts(ctx context.Context, data []byte) ([]string, error)
}

// goTextLayer parses the PDF in-process.
type goTextLayer struct{}

func (goTextLayer) PageTexts(_ context.Context, data []byte) (pages []string, err error) {
	// the parser panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n := r.NumPage()
	if n == 0 {
		return nil, errors.New("pdf has no pages")
	}
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			// keep going; an unreadable page is OCR'd like a scanned one
			continue
		}
		pages[i-1] = txt
	}
	return pages, nil
}

// popplerTextLayer shells out to pdftotext, which copes with more fonts.
type popplerTextLayer struct {
	runner Runner
	bin    string
}

func (p popplerTextLayer) PageTexts(ctx context.Context, data []byte) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "menu-pdftotext-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.bin, "-layout", "-enc", "UTF-8", "-eol", "unix", in, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	// A form-feed \f terminates every page
	pages := strings.Split(string(out), "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages, nil
}

// chainTextLayer tries each reader in turn and keeps the first result with
// any text in it.
type chainTextLayer []TextLayer

func (c chainTextLayer) PageTexts(ctx context.Context, data []byte) ([]string, error) {
	var errs []error
	var fallback []string
	for _, tl := range c {
		pages, err := tl.PageTexts(ctx, data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if hasText(pages) {
			return pages, nil
		}
		if fallback == nil {
			fallback = pages
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, errors.Join(errs...)
}

func hasText(pages []string) bool {
	for _, p := range pages {
		if countNonSpace(p) > 0 {
			return true
		}
	}
	return false
}
