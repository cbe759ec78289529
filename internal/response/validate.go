package response

import (
	"encoding/json"
	"fmt"

	"github.com/gluk-w/claworc/launchpad-ai/internal/content"
)

// SectionResult is the outcome of ValidateSection. Section is set only when
// Valid is true.
type SectionResult struct {
	Valid   bool
	Errors  []string
	Section *content.Section
}

// DocumentResult is the outcome of ValidateDocument. Document is set only
// when Valid is true.
type DocumentResult struct {
	Valid    bool
	Errors   []string
	Document *content.Document
}

func missing(field string) string {
	return fmt.Sprintf("Missing or invalid '%s' field", field)
}

// ValidateSection checks the structure of a decoded section: a non-empty
// string id and type, a content object, an optional style object and an
// optional items array whose entries each carry an id.
func ValidateSection(v any) SectionResult {
	errs := sectionErrors(v)
	if len(errs) > 0 {
		return SectionResult{Errors: errs}
	}

	var s content.Section
	if err := remarshal(v, &s); err != nil {
		return SectionResult{Errors: []string{fmt.Sprintf("Section does not match schema: %v", err)}}
	}
	return SectionResult{Valid: true, Section: &s}
}

func sectionErrors(v any) []string {
	obj, ok := v.(map[string]any)
	if !ok {
		return []string{"Section must be a JSON object"}
	}

	var errs []string
	if !nonEmptyString(obj["id"]) {
		errs = append(errs, missing("id"))
	}
	if !nonEmptyString(obj["type"]) {
		errs = append(errs, missing("type"))
	}
	if _, ok := obj["content"].(map[string]any); !ok {
		errs = append(errs, missing("content"))
	}
	if style, present := obj["style"]; present && style != nil {
		if _, ok := style.(map[string]any); !ok {
			errs = append(errs, missing("style"))
		}
	}
	if raw, present := obj["items"]; present && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			errs = append(errs, missing("items"))
		} else {
			for i, it := range items {
				m, ok := it.(map[string]any)
				if !ok {
					errs = append(errs, fmt.Sprintf("Item %d must be a JSON object", i))
					continue
				}
				if !nonEmptyString(m["id"]) {
					errs = append(errs, fmt.Sprintf("Item %d is missing 'id' field", i))
				}
			}
		}
	}
	return errs
}

// ValidateDocument checks a decoded page: title, a color scheme object, a
// typography object and a sections array where every element passes
// ValidateSection on its own.
func ValidateDocument(v any) DocumentResult {
	obj, ok := v.(map[string]any)
	if !ok {
		return DocumentResult{Errors: []string{"Document must be a JSON object"}}
	}

	var errs []string
	if !nonEmptyString(obj["title"]) {
		errs = append(errs, missing("title"))
	}
	if sections, ok := obj["sections"].([]any); !ok {
		errs = append(errs, missing("sections"))
	} else {
		for i, s := range sections {
			for _, e := range sectionErrors(s) {
				errs = append(errs, fmt.Sprintf("Section %d: %s", i, e))
			}
		}
	}
	if _, ok := obj["colorScheme"].(map[string]any); !ok {
		errs = append(errs, missing("colorScheme"))
	}
	if _, ok := obj["typography"].(map[string]any); !ok {
		errs = append(errs, missing("typography"))
	}
	if len(errs) > 0 {
		return DocumentResult{Errors: errs}
	}

	var d content.Document
	if err := remarshal(v, &d); err != nil {
		return DocumentResult{Errors: []string{fmt.Sprintf("Document does not match schema: %v", err)}}
	}
	return DocumentResult{Valid: true, Document: &d}
}

func nonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}

func remarshal(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
