package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
)

// PackageFields lists every key the model must emit for a package, in export order.
var PackageFields = []string{
	"title", "description", "details", "hospital_name", "treatment_name",
	"sub_treatments", "price", "original_price", "currency", "duration",
	"treatment_category", "anaesthesia", "commission", "featured", "status",
	"doctor_name", "is_le_package", "includes", "image_file_id",
	"hospital_location", "category", "hospital_country", "translation_title",
	"translation_description", "translation_details", "translation",
}

// BuildPackagesJSONSchema returns the response envelope schema as a generic map:
// {"packages": [PackageRow...]}. It is shown to the model and used to check
// responses. Extra keys are tolerated; the normalizer drops them.
func BuildPackagesJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	num := map[string]any{"type": []string{"number", "null"}}

	props := map[string]any{}
	for _, k := range PackageFields {
		props[k] = str
	}
	props["price"] = num
	props["original_price"] = num
	props["commission"] = map[string]any{"type": []string{"number", "null"}, "minimum": 0, "maximum": 100}
	props["currency"] = map[string]any{"type": "string", "enum": constants.CurrencyCodes()}
	props["featured"] = map[string]any{"type": "boolean"}
	props["is_le_package"] = map[string]any{"type": "boolean"}
	props["status"] = map[string]any{"type": "string", "enum": []string{string(constants.StatusActive), string(constants.StatusInactive)}}
	props["image_file_id"] = map[string]any{"type": []string{"string", "null"}}
	props["_meta"] = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source_file":      str,
			"source_page":      map[string]any{"type": "integer", "minimum": 1},
			"confidence_score": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"warnings":         map[string]any{"type": "array", "items": str},
		},
	}

	pkg := map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"title", "hospital_name", "treatment_name", "price", "currency"},
	}
	return map[string]any{
		"type":     "object",
		"required": []string{"packages"},
		"properties": map[string]any{
			"packages": map[string]any{"type": "array", "items": pkg},
		},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
