package llm_test

import (
	"strings"
	"testing"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/llm"
)

// ── SanitizeModelResponse ──────────────────────────────────────────────────

func TestSanitizeModelResponse(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"bare object", `{"packages":[]}`, `{"packages":[]}`},
		{"json fence", "```json\n{\"packages\":[]}\n```", `{"packages":[]}`},
		{"upper fence", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here is the result:\n{\"a\":{\"b\":2}}\nLet me know!", `{"a":{"b":2}}`},
		{"chatty", "Sure! {\"packages\":[]} Let me know if you need more.", `{"packages":[]}`},
		{"prose and fence", "Sure.\n```json\n{\"a\":1}\n```", `{"a":1}`},
		{"array", "result: [1,2,3] done", `[1,2,3]`},
		{"bracket in prose before object", "Here are the packages [3 found]: {\"packages\":[{\"title\":\"a\"}]}", `{"packages":[{"title":"a"}]}`},
		{"no json", "I could not read this menu.", "I could not read this menu."},
		{"only opening brace", "oops { never closed", "oops { never closed"},
		{"empty", "   ", ""},
	}
	for _, c := range cases {
		if got := llm.SanitizeModelResponse(c.in); got != c.want {
			t.Errorf("%s: SanitizeModelResponse(%q) = %q, want %q", c.name, c.in, got, c.want)
		}
	}
}

// ── CountPriceAnchors ──────────────────────────────────────────────────────

func TestCountPriceAnchors(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"Hydration Drip £100 Sodium Chloride + Bicarbonate MultiVit Drip £125 Basic Hydration + B Complex + 2g Vitamin C Energy Drip £150 NAD+ Drip (IV) 250mg £250 Vitamin C (500mg) £30", 5},
		{"Facial Treatment - $120", 1},
		{"Package RM 2,000 and another RM150", 2},
		{"Checkup 120 USD, scan 3,500 thb", 2},
		{"Peel 150€", 1},
		{"from £55", 1},
		{"Singapore S$ 300 and US$45", 2},
		{"Time needed: approx. 20 mins", 0},
		{"FORM 20 required", 0},
		{"", 0},
	}
	for _, c := range cases {
		if got := llm.CountPriceAnchors(c.in); got != c.want {
			t.Errorf("CountPriceAnchors(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

// ── BuildPrompt ────────────────────────────────────────────────────────────

func TestBuildPrompt_OrdersPagesAndNamesFile(t *testing.T) {
	pages := []entity.OcrPage{
		{FileID: "f1", FileName: "menu.pdf", PageNumber: 2, RawText: "Hydration Drip £100"},
		{FileID: "f1", FileName: "menu.pdf", PageNumber: 1, RawText: "Facial Treatment - $120"},
	}
	p := llm.BuildPrompt(pages)

	if !strings.Contains(p, `FILE NAME: "menu.pdf"`) || !strings.Contains(p, "TOTAL PAGES: 2") {
		t.Error("prompt should name the file and page count")
	}
	i1 := strings.Index(p, "--- PAGE 1 (menu.pdf) ---\nFacial Treatment - $120")
	i2 := strings.Index(p, "--- PAGE 2 (menu.pdf) ---\nHydration Drip £100")
	if i1 < 0 || i2 < 0 || i1 > i2 {
		t.Errorf("pages missing or out of order (i1=%d, i2=%d)", i1, i2)
	}
	if pages[0].PageNumber != 2 {
		t.Error("BuildPrompt must not reorder the caller's slice")
	}
}

func TestBuildPrompt_Content(t *testing.T) {
	p := llm.BuildPrompt([]entity.OcrPage{{FileID: "f", FileName: "a.png", PageNumber: 1}})
	for _, want := range []string{
		"PRICE ANCHOR",
		"at least N packages",
		"PRECEDING anchor",
		"\"packages\"",
		"translation_title",
		"is_le_package",
		"Botox Treatment",
		"IVF (In Vitro Fertilization)",
		"Cosmetic & Plastic Surgery:",
		"\"RM\" -> MYR",
		"USD, THB, EUR, GBP, SGD, MYR, KRW",
		"--- PAGE 1 (a.png) ---",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

// ── Schema ─────────────────────────────────────────────────────────────────

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := llm.BuildPackagesJSONSchema()
	cases := []struct {
		name string
		doc  string
		ok   bool
	}{
		{"empty list", `{"packages":[]}`, true},
		{"full package", `{"packages":[{"title":"Hydration Drip","hospital_name":"","treatment_name":"IV Therapy","price":100,"currency":"GBP","status":"active","featured":false,"_meta":{"confidence_score":0.9,"warnings":[]}}]}`, true},
		{"null price", `{"packages":[{"title":"x","hospital_name":"","treatment_name":"","price":null,"currency":"USD"}]}`, true},
		{"extra keys", `{"packages":[{"title":"x","hospital_name":"","treatment_name":"","price":1,"currency":"USD","notes":"y"}],"model":"z"}`, true},
		{"missing packages", `{"items":[]}`, false},
		{"packages not array", `{"packages":{}}`, false},
		{"string price", `{"packages":[{"title":"x","hospital_name":"","treatment_name":"","price":"£100","currency":"GBP"}]}`, false},
		{"bad currency", `{"packages":[{"title":"x","hospital_name":"","treatment_name":"","price":1,"currency":"JPY"}]}`, false},
		{"confidence out of range", `{"packages":[{"title":"x","hospital_name":"","treatment_name":"","price":1,"currency":"USD","_meta":{"confidence_score":3}}]}`, false},
	}
	for _, c := range cases {
		err := llm.ValidateJSONAgainstSchema(schema, []byte(c.doc))
		if (err == nil) != c.ok {
			t.Errorf("%s: err = %v, want ok=%v", c.name, err, c.ok)
		}
	}
}

func TestIsTruncated(t *testing.T) {
	cases := []struct {
		stop       string
		out, limit int
		want       bool
	}{
		{"max_tokens", 10, 6000, true},
		{"length", 10, 6000, true},
		{"end_turn", 5900, 6000, true},
		{"end_turn", 5000, 6000, false},
		{"end_turn", 5000, 0, false},
	}
	for _, c := range cases {
		if got := llm.IsTruncated(c.stop, c.out, c.limit); got != c.want {
			t.Errorf("IsTruncated(%q, %d, %d) = %v, want %v", c.stop, c.out, c.limit, got, c.want)
		}
	}
}
