package extract_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/extract"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/llm"
)

// stubLLM answers by looking for a marker in the prompt.
type stubLLM struct {
	mu      sync.Mutex
	prompts []string
	answers map[string]llm.Completion
	errs    map[string]error
}

func (s *stubLLM) Invoke(_ context.Context, prompt string, _ llm.InvokeOptions) (llm.Completion, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	for marker, err := range s.errs {
		if strings.Contains(prompt, marker) {
			return llm.Completion{}, err
		}
	}
	for marker, c := range s.answers {
		if strings.Contains(prompt, marker) {
			return c, nil
		}
	}
	return llm.Completion{Text: `{"packages":[]}`}, nil
}

func text(s string) llm.Completion { return llm.Completion{Text: s, StopReason: "end_turn"} }

func pkgJSON(title, price, currency string) string {
	return fmt.Sprintf(`{"title":%q,"hospital_name":"","treatment_name":"","price":%s,"currency":%q,"status":"active"}`, title, price, currency)
}

func newService(l llm.Invoker, concurrency int) *extract.Service {
	return extract.NewService(extract.Config{Concurrency: concurrency, SchemaValidation: true}, l, nil)
}

// ── Grouping ───────────────────────────────────────────────────────────────

func TestExtract_OneCallPerFileInPageOrder(t *testing.T) {
	l := &stubLLM{answers: map[string]llm.Completion{
		"menu-a.pdf": text(`{"packages":[` + pkgJSON("A1", "100", "GBP") + `,` + pkgJSON("A2", "125", "GBP") + `]}`),
		"menu-b.png": text(`{"packages":[` + pkgJSON("B1", "50", "USD") + `]}`),
	}}
	pages := []entity.OcrPage{
		{FileID: "a", FileName: "menu-a.pdf", PageNumber: 2, RawText: "second page of a"},
		{FileID: "b", FileName: "menu-b.png", PageNumber: 1, RawText: "only page of b"},
		{FileID: "a", FileName: "menu-a.pdf", PageNumber: 1, RawText: "first page of a"},
	}
	res, err := newService(l, 1).Extract(context.Background(), pages)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(l.prompts) != 2 {
		t.Fatalf("want one call per file, got %d", len(l.prompts))
	}
	pa := l.prompts[0]
	if strings.Contains(pa, "only page of b") {
		t.Error("pages of different files must not share a prompt")
	}
	if strings.Index(pa, "first page of a") > strings.Index(pa, "second page of a") {
		t.Error("pages should be sorted by page number")
	}

	var titles []string
	for _, p := range res.Packages {
		titles = append(titles, p.Title)
	}
	if got := strings.Join(titles, ","); got != "A1,A2,B1" {
		t.Errorf("packages = %s, want file-group order A1,A2,B1", got)
	}
	if res.Files[0].FileID != "a" || res.Files[1].FileID != "b" {
		t.Errorf("file outcomes out of order: %+v", res.Files)
	}
}

func TestExtract_ProvenanceAndIDs(t *testing.T) {
	l := &stubLLM{answers: map[string]llm.Completion{
		"multi.pdf": text(`{"packages":[` + pkgJSON("M1", "1", "USD") +
			`,{"title":"M2","price":2,"currency":"USD","_meta":{"source_file":"model-said.pdf","source_page":2}}]}`),
		"single.jpg": text("```json\n{\"packages\":[" + pkgJSON("S1", "3", "USD") + "]}\n```"),
	}}
	pages := []entity.OcrPage{
		{FileID: "m", FileName: "multi.pdf", PageNumber: 1, RawText: "x"},
		{FileID: "m", FileName: "multi.pdf", PageNumber: 2, RawText: "y"},
		{FileID: "s", FileName: "single.jpg", PageNumber: 1, RawText: "z"},
	}
	res, err := newService(l, 2).Extract(context.Background(), pages)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Packages) != 3 {
		t.Fatalf("packages = %d", len(res.Packages))
	}
	m1, m2, s1 := res.Packages[0], res.Packages[1], res.Packages[2]
	if m1.Meta.SourceFile != "multi.pdf" || m1.Meta.SourcePage != nil {
		t.Errorf("m1 meta = %+v", m1.Meta)
	}
	if m2.Meta.SourceFile != "model-said.pdf" || m2.Meta.SourcePage == nil || *m2.Meta.SourcePage != 2 {
		t.Errorf("model provenance should be kept: %+v", m2.Meta)
	}
	if s1.Meta.SourceFile != "single.jpg" || s1.Meta.SourcePage == nil || *s1.Meta.SourcePage != 1 {
		t.Errorf("single-page file should get its page stamped: %+v", s1.Meta)
	}
	seen := map[string]bool{}
	for _, p := range res.Packages {
		if !strings.HasPrefix(p.ID, "pkg_") || seen[p.ID] {
			t.Errorf("bad or duplicate id %q", p.ID)
		}
		seen[p.ID] = true
	}
}

// ── Failures ───────────────────────────────────────────────────────────────

func TestExtract_InvalidJSONIsolatedToFile(t *testing.T) {
	l := &stubLLM{answers: map[string]llm.Completion{
		"bad.pdf":  text("I'm sorry, I can't read this menu."),
		"good.pdf": text(`{"packages":[` + pkgJSON("G", "10", "USD") + `]}`),
	}}
	pages := []entity.OcrPage{
		{FileID: "1", FileName: "bad.pdf", PageNumber: 1},
		{FileID: "2", FileName: "good.pdf", PageNumber: 1},
	}
	svc := newService(l, 1)
	rows, err := svc.ExtractPackagesFromOcrText(context.Background(), pages)
	if len(rows) != 1 || rows[0].Title != "G" {
		t.Fatalf("sibling file should still produce packages, got %+v", rows)
	}
	if common.CodeOf(err) != common.CodeLLMOutputInvalid {
		t.Fatalf("err = %v, want invalid output", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "bad.pdf") || !strings.Contains(msg, "can't read this menu") {
		t.Errorf("error should name the file and preview the output: %s", msg)
	}
	if !errors.Is(err, common.ErrLLMOutput) {
		t.Error("want ErrLLMOutput in chain")
	}
}

func TestExtract_TruncatedOutput(t *testing.T) {
	l := &stubLLM{answers: map[string]llm.Completion{
		"long.pdf": {Text: `{"packages":[{"title":"A","price":1`, StopReason: "max_tokens", OutputTokens: 6000, Truncated: true},
	}}
	res, err := newService(l, 1).Extract(context.Background(), []entity.OcrPage{{FileID: "1", FileName: "long.pdf", PageNumber: 1}})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if common.CodeOf(res.Files[0].Err) != common.CodeLLMOutputTruncated {
		t.Errorf("err = %v, want truncated", res.Files[0].Err)
	}
}

func TestExtract_TransportErrorNamesFile(t *testing.T) {
	l := &stubLLM{errs: map[string]error{
		"down.pdf": common.NewAppError(common.CodeLLMUnavailable, "AWS Bedrock temporarily unavailable.", common.ErrLLMTransport),
	}}
	_, err := newService(l, 1).ExtractPackagesFromOcrText(context.Background(), []entity.OcrPage{{FileID: "1", FileName: "down.pdf", PageNumber: 1}})
	if common.CodeOf(err) != common.CodeLLMUnavailable || !strings.Contains(err.Error(), "down.pdf") {
		t.Errorf("err = %v", err)
	}
}

func TestExtract_MissingPackagesIsEmpty(t *testing.T) {
	for _, body := range []string{`{"items":[1]}`, `{"packages":"none"}`, `[]`, ``} {
		l := &stubLLM{answers: map[string]llm.Completion{"f.pdf": text(body)}}
		rows, err := newService(l, 1).ExtractPackagesFromOcrText(context.Background(), []entity.OcrPage{{FileID: "1", FileName: "f.pdf", PageNumber: 1}})
		if err != nil || len(rows) != 0 {
			t.Errorf("body %q: rows=%d err=%v", body, len(rows), err)
		}
	}
}

func TestExtract_NoPages(t *testing.T) {
	l := &stubLLM{}
	res, err := newService(l, 1).Extract(context.Background(), nil)
	if err != nil || len(res.Packages) != 0 || len(l.prompts) != 0 {
		t.Errorf("res=%+v err=%v calls=%d", res, err, len(l.prompts))
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newService(&stubLLM{}, 1).Extract(ctx, []entity.OcrPage{{FileID: "1", FileName: "f.pdf", PageNumber: 1}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// ── Price anchors ──────────────────────────────────────────────────────────

const denseMenu = "Express IV Drips\n" +
	"Hydration Drip £100 Sodium Chloride + Bicarbonate + Potassium + Calcium " +
	"MultiVit Drip £125 Basic Hydration + B Complex + 2g Vitamin C " +
	"Energy Drip (Myers Cocktail) £150 Basic Hydration + B Complex + Amino Acids\n" +
	"NAD+ Drip (IV) 250mg £250\nVitamin C (500mg) £30"

func TestExtract_MinimumOutputAgainstAnchors(t *testing.T) {
	var items []string
	for i, p := range []string{"100", "125", "150", "250", "30"} {
		items = append(items, pkgJSON(fmt.Sprintf("Drip %d", i+1), p, "GBP"))
	}
	l := &stubLLM{answers: map[string]llm.Completion{"iv.pdf": text(`{"packages":[` + strings.Join(items, ",") + `]}`)}}
	res, err := newService(l, 1).Extract(context.Background(), []entity.OcrPage{{FileID: "1", FileName: "iv.pdf", PageNumber: 1, RawText: denseMenu}})
	if err != nil {
		t.Fatal(err)
	}
	f := res.Files[0]
	if f.PriceAnchors != 5 || len(res.Packages) < 5 {
		t.Fatalf("anchors=%d packages=%d, want >= 5 packages for 5 anchors", f.PriceAnchors, len(res.Packages))
	}
	for _, w := range f.Warnings {
		if strings.Contains(w, "under-extraction") {
			t.Errorf("unexpected warning %q", w)
		}
	}
	for _, p := range res.Packages {
		if p.Currency != "GBP" || p.Price == nil {
			t.Errorf("package %+v", p)
		}
	}
}

func TestExtract_UnderExtractionWarned(t *testing.T) {
	l := &stubLLM{answers: map[string]llm.Completion{"iv.pdf": text(`{"packages":[` + pkgJSON("Hydration Drip", "100", "GBP") + `]}`)}}
	res, err := newService(l, 1).Extract(context.Background(), []entity.OcrPage{{FileID: "1", FileName: "iv.pdf", PageNumber: 1, RawText: denseMenu}})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, w := range res.Files[0].Warnings {
		if strings.Contains(w, "5 price anchors") && strings.Contains(w, "1 packages") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want an under-extraction warning", res.Files[0].Warnings)
	}
	if res.Files[0].Err != nil {
		t.Error("under-extraction must not fail the file")
	}
}

func TestExtract_SchemaMismatchIsWarningOnly(t *testing.T) {
	l := &stubLLM{answers: map[string]llm.Completion{"f.pdf": text(`{"packages":[{"title":"Peel","price":"£100","currency":"£"}]}`)}}
	res, err := newService(l, 1).Extract(context.Background(), []entity.OcrPage{{FileID: "1", FileName: "f.pdf", PageNumber: 1}})
	if err != nil || len(res.Packages) != 1 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	p := res.Packages[0]
	if p.Price != nil || p.Currency != "GBP" {
		t.Errorf("normalizer should still run: price=%v currency=%s", p.Price, p.Currency)
	}
	if len(res.Files[0].Warnings) == 0 {
		t.Error("schema mismatch should be reported as a file warning")
	}
}
