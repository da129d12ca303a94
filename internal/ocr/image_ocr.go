package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
)

// extractImage converts HEIC when needed, preprocesses, and runs tesseract.
func (e *Extractor) extractImage(ctx context.Context, f entity.SavedFile, log *slog.Logger) (string, []string, error) {
	tmpDir, err := os.MkdirTemp("", "menu-img-*")
	if err != nil {
		return "", nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			log.Warn("failed to remove temp dir", "dir", path, "error", err)
		}
	}(tmpDir)

	var warns []string
	data := f.Data
	if constants.IsHEIC(f.MimeType) {
		in := filepath.Join(tmpDir, "source.heic")
		if err := os.WriteFile(in, data, 0o600); err != nil {
			return "", nil, err
		}
		png, w, err := convertHEICtoPNG(ctx, e.runner, e.cfg.HeicConverter, in, tmpDir)
		warns = append(warns, w...)
		if err != nil {
			return "", warns, common.NewAppError(common.CodeOCRFailed, "heic conversion failed for "+f.FileName, err)
		}
		if data, err = os.ReadFile(png); err != nil {
			return "", warns, err
		}
	}

	if e.cfg.Preprocess && e.preprocess != nil {
		if out, err := e.preprocess(data); err != nil {
			log.Warn("ocr.preprocess.failed", "error", err)
			warns = append(warns, "image preprocessing skipped: "+err.Error())
		} else {
			data = out
		}
	}

	path := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", warns, err
	}
	txt, err := e.tesseractOCR(ctx, path)
	return txt, warns, err
}

// tesseractArgs builds: <file> stdout -l <langs> --psm N --oem N [--tessdata-dir d] -c preserve_interword_spaces=1
func (e *Extractor) tesseractArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.Languages}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return append(args, "-c", "preserve_interword_spaces=1")
}

// tesseractOCR runs one tesseract process under its own deadline. On timeout
// the process is killed and a timeout error naming the languages is returned.
func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	out, errb, err := e.runner.Run(callCtx, e.cfg.Tesseract, e.tesseractArgs(path)...)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", common.NewAppError(common.CodeOCRTimeout,
				fmt.Sprintf("tesseract OCR timed out after %s (languages: %s)", e.cfg.Timeout, e.cfg.Languages),
				common.ErrOCR)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", common.NewAppError(common.CodeOCRFailed,
			"tesseract: "+common.Truncate(string(errb), 512), errors.Join(common.ErrOCR, err))
	}
	return stripBoxNoise(string(out)), nil
}
