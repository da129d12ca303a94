package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
)

// extractPDF reads the embedded text layer first. When the whole document has
// too little text it is rasterized and every page OCR'd; otherwise only the
// pages whose text layer is empty are rasterized.
func (e *Extractor) extractPDF(ctx context.Context, data []byte, log *slog.Logger) ([]string, string, []string, error) {
	var warns []string
	layer, err := e.textLayer.PageTexts(ctx, data)
	if err != nil {
		log.Warn("ocr.pdf.text_layer_failed", "error", err)
		warns = append(warns, "pdf text layer unreadable: "+err.Error())
		layer = nil
	}
	if e.cfg.MaxPages > 0 && len(layer) > e.cfg.MaxPages {
		layer = layer[:e.cfg.MaxPages]
	}

	total := 0
	for _, t := range layer {
		total += countNonSpace(t)
	}

	tmpDir, err := os.MkdirTemp("", "menu-pdf-*")
	if err != nil {
		return nil, "", warns, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			log.Warn("failed to remove temp dir", "dir", path, "error", err)
		}
	}(tmpDir)
	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, "", warns, err
	}

	if total < MinTextLayerChars {
		log.Info("ocr.pdf.scanned_fallback", "text_layer_chars", total, "pages", len(layer))
		texts, w, err := e.pdfToOCR(ctx, in, tmpDir)
		return texts, MethodPDFOCR, append(warns, w...), err
	}

	method := MethodPDFText
	for i, t := range layer {
		if countNonSpace(t) > 0 {
			continue
		}
		page := i + 1
		txt, err := e.ocrPDFPage(ctx, in, tmpDir, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, method, warns, ctx.Err()
			}
			log.Warn("ocr.pdf.page_fallback_failed", "page", page, "error", err)
			warns = append(warns, fmt.Sprintf("page %d: OCR fallback failed: %v", page, err))
			continue
		}
		layer[i] = txt
		method = MethodPDFMixed
	}
	return layer, method, warns, nil
}

// pdfToOCR renders every page and OCRs the images in page order.
func (e *Extractor) pdfToOCR(ctx context.Context, in, tmpDir string) ([]string, []string, error) {
	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, append(args, in, prefix)...)
	if err != nil {
		return nil, nil, common.NewAppError(common.CodeOCRFailed, "pdftoppm: "+common.Truncate(string(errb), 512), err)
	}

	matches := renderedPages(prefix)
	if len(matches) == 0 {
		return nil, []string{"pdftoppm produced no images"}, common.NewAppError(common.CodeOCRFailed, "no pages rendered", common.ErrOCR)
	}

	texts := make([]string, 0, len(matches))
	var warns []string
	for i, img := range matches {
		txt, err := e.tesseractOCR(ctx, img)
		if err != nil {
			if common.CodeOf(err) == common.CodeOCRTimeout || ctx.Err() != nil {
				return nil, warns, err
			}
			warns = append(warns, fmt.Sprintf("page %d: %v", i+1, err))
			txt = ""
		}
		texts = append(texts, txt)
	}
	return texts, warns, nil
}

// ocrPDFPage renders and OCRs a single page.
func (e *Extractor) ocrPDFPage(ctx context.Context, in, tmpDir string, page int) (string, error) {
	prefix := filepath.Join(tmpDir, "p"+strconv.Itoa(page))
	n := strconv.Itoa(page)
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", "-f", n, "-l", n, in, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, common.Truncate(string(errb), 512))
	}
	matches := renderedPages(prefix)
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no image for page %d", page)
	}
	return e.tesseractOCR(ctx, matches[0])
}

// renderedPages collects prefix-1.png, prefix-2.png, ... in page order.
// pdftoppm zero-pads to the page count width, so numeric sort is required.
func renderedPages(prefix string) []string {
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Slice(matches, func(i, j int) bool {
		return pageIndex(prefix, matches[i]) < pageIndex(prefix, matches[j])
	})
	return matches
}

func pageIndex(prefix, path string) int {
	s := strings.TrimSuffix(strings.TrimPrefix(path, prefix+"-"), ".png")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 1 << 30
	}
	return n
}
