package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
)

// Example anchors used in the dense-layout section of the prompt.
var denseLayoutExample = []string{
	"Hydration Drip £100 Sodium Chloride + Bicarbonate + Potassium + Calcium",
	"MultiVit Drip £125 Basic Hydration + B Complex + 2g Vitamin C",
	"Energy Drip (Myers Cocktail) £150 Basic Hydration + B Complex + Amino Acids + B12 + Magnesium",
	"NAD+ Drip (IV) 250mg £250",
	"Vitamin C (500mg) £30",
}

// BuildPrompt composes the extraction instructions for the pages of ONE file.
// Pages are emitted in page-number order regardless of input order.
func BuildPrompt(pages []entity.OcrPage) string {
	ordered := append([]entity.OcrPage(nil), pages...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].PageNumber < ordered[j].PageNumber })

	fileName := "unknown-file"
	if len(ordered) > 0 && strings.TrimSpace(ordered[0].FileName) != "" {
		fileName = ordered[0].FileName
	}

	var b strings.Builder
	section := func(title string, lines ...string) {
		b.WriteString(title)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", len(title)))
		b.WriteString("\n")
		for _, l := range lines {
			b.WriteString(l)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("You convert clinic and hospital price menus into structured package records for a bulk catalog import.\n\n")
	fmt.Fprintf(&b, "All OCR text below comes from a single file.\n- FILE NAME: %q\n- TOTAL PAGES: %d\n\n", fileName, len(ordered))

	section("INPUT CAVEATS",
		"- Text may span several pages and come from two or more column layouts.",
		"- English branding is often mixed with Chinese, Thai or other regional text.",
		"- Priced items sit next to explanatory text that is not priced.",
		"- Line breaks are preserved from the source and are meaningful.",
	)

	section("SEGMENTATION ALGORITHM",
		"Read every line of every page. Do not stop early.",
		"1. Find every PRICE ANCHOR: a currency symbol or code adjacent to a number, e.g. \"£100\", \"RM 150\", \"120 USD\", \"150€\", \"from £55\".",
		"2. Each price anchor defines exactly one candidate package.",
		"3. The package name is the nearest plausible label within one or two lines of the anchor.",
		"   Descriptive text after an anchor (ingredients, inclusions, duration) belongs to the PRECEDING anchor, not the following one.",
		"4. Section headings without a price (e.g. \"IV DRIP MENU\", \"Express IV Drips\") are never packages by themselves.",
		"5. MINIMUM OUTPUT: if you find N distinct price anchors you must return at least N packages. Only exact duplicates of the same item may be merged.",
		"6. When a boundary is ambiguous still emit the package, set _meta.confidence_score between 0.3 and 0.6 and explain in _meta.warnings.",
		"Chinese-only or bilingual lines are packages too when they carry a price.",
	)

	dense := []string{
		"Some menus pack many items into one paragraph with no separators other than the prices:",
		"",
	}
	for _, ex := range denseLayoutExample {
		dense = append(dense, "  "+ex)
	}
	dense = append(dense,
		"",
		"Treat each \"name + price\" pair as its own package and use the price tokens as hard boundaries.",
		"Sentences such as \"Time needed: approx. 20 mins\" or \"Save £10 when you book two\" are not packages; attach them to the nearby package's details or duration.",
	)
	section("DENSE LAYOUTS", dense...)

	section("LOW CONFIDENCE POLICY",
		"Prefer low-confidence inclusion over silent omission.",
		"If a fragment probably is a purchasable item but its boundaries are unclear, emit it with a low confidence_score and a warning such as:",
		"- \"Low confidence segmentation: package boundaries may be incorrect\"",
		"- \"Title and description may be mixed from neighbouring items\"",
		"- \"Price attached with low confidence\"",
		"Omit only text that is clearly not purchasable: disclaimers, unpriced headings, marketing copy.",
	)

	section("OUTPUT FORMAT",
		"Return VALID JSON only. No markdown, no code fences, no comments.",
		"Top-level shape: {\"packages\": [ ... ]}",
		"Every package object must contain ALL of these keys: "+strings.Join(PackageFields, ", ")+", _meta.",
		"_meta holds source_file (string), source_page (1-based page number), confidence_score (0.0 to 1.0) and warnings (array of strings).",
		"Currency must be one of: "+strings.Join(constants.CurrencyCodes(), ", ")+".",
		"Unknown values: \"\" for strings, null for numbers, false for featured and is_le_package, \"active\" for status.",
		"JSON Schema of the response:",
		mustJSON(BuildPackagesJSONSchema()),
	)

	section("LANGUAGE AND TRANSLATION",
		"- English source: keep title, description and details in English; leave translation_title, translation_description and translation_details empty; translation is \"\" or \"EN\".",
		"- Non-English source: keep the original language in title, description and details; put a Chinese translation in the translation_* fields; set translation to a short code such as \"ZH\" or \"TH->ZH\".",
		"- Unreadable text: leave translation_* empty and add the warning \"OCR text unreadable for this package\".",
	)

	canon := []string{
		"Prefer these exact treatment_name values (same capitalization and spacing) when an item clearly matches.",
		"If none fits, use a short descriptive name such as \"IV Drip Therapy\".",
		"",
	}
	for _, cat := range constants.TreatmentCategories() {
		canon = append(canon, string(cat)+":")
		for _, name := range constants.TreatmentsByCategory(cat) {
			canon = append(canon, "- "+name)
		}
	}
	section("CANONICAL TREATMENT NAMES", canon...)

	hints := []string{"Infer currency from the local symbol or context:"}
	for _, g := range constants.CurrencyGlyphs() {
		hints = append(hints, fmt.Sprintf("- %q -> %s", g.Glyph, g.Code))
	}
	hints = append(hints,
		"treatment_category: the category heading of the canonical treatment above, when one applies.",
		"sub_treatments: comma-separated sub-focuses, e.g. \"Hydration,Skin Rejuvenation\".",
		"includes: comma-separated inclusions, e.g. \"Consultation,Drip,Follow Up\".",
	)
	section("FIELD HINTS", hints...)

	section("OCR INPUT (THIS FILE ONLY, BY PAGE)")
	for _, p := range ordered {
		name := p.FileName
		if name == "" {
			name = fileName
		}
		fmt.Fprintf(&b, "--- PAGE %d (%s) ---\n%s\n\n", p.PageNumber, name, p.RawText)
	}
	return b.String()
}
