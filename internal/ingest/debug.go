package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
)

// WriteDebugSnapshot writes one text file per page with a small header.
func WriteDebugSnapshot(dir, batchID string, pages []entity.OcrPage) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, p := range pages {
		var b strings.Builder
		fmt.Fprintf(&b, "BATCH: %s\nFILE:  %s\nPAGE:  %d\n", batchID, p.FileName, p.PageNumber)
		b.WriteString(strings.Repeat("-", 40))
		b.WriteString("\n")
		b.WriteString(p.RawText)
		path := filepath.Join(dir, DebugFileName(batchID, p.PageNumber, p.FileName))
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return err
		}
	}
	return nil
}
