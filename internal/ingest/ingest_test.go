package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/extract"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/ingest"
)

type stubText struct {
	mu    sync.Mutex
	calls int
	got   []entity.SavedFile
	batch string
	err   error
}

func (s *stubText) ExtractText(ctx context.Context, files []entity.SavedFile) extract.TextExtractionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.got = files
	s.batch = common.BatchIDFromContext(ctx)
	res := extract.TextExtractionResult{Err: s.err}
	for _, f := range files {
		res.Pages = append(res.Pages, entity.OcrPage{FileID: f.FileID, FileName: f.FileName, PageNumber: 1, RawText: "text of " + f.FileName})
		res.Files = append(res.Files, entity.FileMeta{FileID: f.FileID, OriginalName: f.FileName, PageCount: 1})
	}
	return res
}

func TestHandleUpload_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		uploads []ingest.Upload
		code    string
		status  int
	}{
		{"no files", nil, common.CodeNoFiles, 400},
		{"unsupported", []ingest.Upload{
			{FileName: "menu.pdf", MimeType: "application/pdf", Data: []byte("x")},
			{FileName: "notes.txt", MimeType: "text/plain", Data: []byte("x")},
		}, common.CodeUnsupportedFileType, 400},
		{"unknown field", []ingest.Upload{
			{FieldName: "attachment", FileName: "menu.pdf", MimeType: "application/pdf", Data: []byte("x")},
		}, common.CodeInvalidInput, 400},
		{"too large", []ingest.Upload{
			{FileName: "big.png", MimeType: "image/png", Data: make([]byte, 2<<20)},
		}, common.CodeFileTooLarge, 413},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text := &stubText{}
			svc := ingest.NewService(ingest.Config{MaxFileBytes: 1 << 20}, text, nil)
			_, err := svc.HandleUploadAndExtractOcr(context.Background(), tc.uploads)
			if common.CodeOf(err) != tc.code {
				t.Fatalf("code = %q, want %q (err %v)", common.CodeOf(err), tc.code, err)
			}
			if got := common.HTTPStatus(err); got != tc.status {
				t.Errorf("status = %d, want %d", got, tc.status)
			}
			if text.calls != 0 {
				t.Errorf("OCR ran %d times for a rejected batch", text.calls)
			}
		})
	}
}

func TestHandleUpload_TooLargeMessage(t *testing.T) {
	svc := ingest.NewService(ingest.Config{MaxFileBytes: 1 << 20}, &stubText{}, nil)
	_, err := svc.HandleUploadAndExtractOcr(context.Background(), []ingest.Upload{
		{FileName: "big.jpg", MimeType: "image/jpeg", Data: make([]byte, (1<<20)+1)},
	})
	if err == nil || !strings.Contains(err.Error(), "maximum allowed size of 1 MB") {
		t.Fatalf("err = %v", err)
	}
}

func TestHandleUpload_Accepted(t *testing.T) {
	text := &stubText{err: errors.New("scan.png: ocr failed")}
	svc := ingest.NewService(ingest.Config{}, text, nil)

	res, err := svc.HandleUploadAndExtractOcr(context.Background(), []ingest.Upload{
		{FieldName: "files[]", FileName: "../../etc/menu.pdf", MimeType: "application/pdf", Data: []byte("%PDF")},
		{FieldName: "files[]", FileName: `C:\Users\me\scan.png`, MimeType: "application/octet-stream", Data: []byte("png")},
		{FieldName: "file", FileName: "", MimeType: "IMAGE/JPEG", Data: []byte("jpg")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !regexp.MustCompile(`^b_\d{8}_\d{6}_[0-9a-z]{4}$`).MatchString(res.BatchID) {
		t.Errorf("batch id %q has the wrong shape", res.BatchID)
	}
	if text.batch != res.BatchID {
		t.Errorf("context batch id = %q, want %q", text.batch, res.BatchID)
	}
	if res.OCRErr == nil {
		t.Error("expected OCR error to be carried through")
	}

	got := text.got
	if len(got) != 3 {
		t.Fatalf("files = %d", len(got))
	}
	if got[0].FileName != "menu.pdf" || got[1].FileName != "scan.png" {
		t.Errorf("names = %q, %q", got[0].FileName, got[1].FileName)
	}
	if got[1].MimeType != "image/png" {
		t.Errorf("octet-stream mime not inferred: %q", got[1].MimeType)
	}
	if got[2].MimeType != "image/jpeg" || got[2].FileName != "upload-"+got[2].FileID {
		t.Errorf("unnamed upload = %+v", got[2])
	}
	ids := map[string]bool{}
	for _, f := range got {
		ids[f.FileID] = true
	}
	if len(ids) != 3 {
		t.Errorf("file ids not unique: %v", ids)
	}
	if len(res.FilesMeta) != 3 || len(res.OcrPages) != 3 {
		t.Errorf("meta=%d pages=%d", len(res.FilesMeta), len(res.OcrPages))
	}
}

func TestHandleUpload_DebugSnapshot(t *testing.T) {
	dir := t.TempDir()
	svc := ingest.NewService(ingest.Config{DebugDir: dir}, &stubText{}, nil)
	res, err := svc.HandleUploadAndExtractOcr(context.Background(), []ingest.Upload{
		{FileName: "spa menu (2024).png", MimeType: "image/png", Data: []byte("x")},
	})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, res.BatchID+"_p1_spa_menu_2024_.png.txt")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}
	want := "BATCH: " + res.BatchID + "\nFILE:  spa menu (2024).png\nPAGE:  1\n" + strings.Repeat("-", 40) + "\ntext of spa menu (2024).png"
	if string(b) != want {
		t.Errorf("snapshot =\n%s\nwant\n%s", b, want)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"menu.pdf":            "menu.pdf",
		"a/b/c.png":           "c.png",
		`dir\sub\x.jpg`:       "x.jpg",
		"  spaced.heic ":      "spaced.heic",
		"..":                  "",
		"folder/":             "",
		"../../../etc/passwd": "passwd",
	}
	for in, want := range tests {
		if got := ingest.SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewBatchID(t *testing.T) {
	now := time.Date(2024, 3, 9, 7, 5, 2, 0, time.UTC)
	id := ingest.NewBatchID(now)
	if !strings.HasPrefix(id, "b_20240309_070502_") || len(id) != len("b_20240309_070502_")+4 {
		t.Errorf("NewBatchID = %q", id)
	}
}

func TestLoadDirectory(t *testing.T) {
	root := t.TempDir()
	write := func(rel, body string) {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.pdf", "pdf")
	write("sub/b.JPG", "jpg")
	write("notes.txt", "skip")
	write(".hidden/c.png", "hidden")

	uploads, stats, err := ingest.LoadDirectory(root, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(uploads) != 2 || stats.Loaded != 2 || stats.Matched != 2 {
		t.Fatalf("uploads=%d stats=%+v", len(uploads), stats)
	}
	if uploads[0].FileName != "a.pdf" || uploads[0].MimeType != "application/pdf" {
		t.Errorf("first = %+v", uploads[0])
	}
	if uploads[1].FileName != "b.JPG" || uploads[1].MimeType != "image/jpeg" {
		t.Errorf("second = %+v", uploads[1])
	}

	if _, _, err := ingest.LoadDirectory(" ", true); err == nil {
		t.Error("expected error for empty root")
	}
}

func TestStartWatcher_EmitsMenuFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "existing.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	wait := func(name string) {
		t.Helper()
		deadline := time.After(3 * time.Second)
		for !seen[name] {
			select {
			case p := <-events:
				seen[filepath.Base(p)] = true
			case <-deadline:
				t.Fatalf("no event for %s; seen %v", name, seen)
			}
		}
	}
	wait("existing.png")

	if err := os.WriteFile(filepath.Join(root, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "new.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	wait("new.pdf")
	if seen["ignored.txt"] {
		t.Error("non-menu file emitted")
	}

	cancel()
	for range events {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	if _, _, err := ingest.StartWatcher(context.Background(), ingest.WatchConfig{}); err == nil {
		t.Fatal("expected error")
	}
}
