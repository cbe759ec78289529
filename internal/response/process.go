package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gluk-w/claworc/launchpad-ai/internal/content"
)

// ValidationError lists the structural problems found in a model reply.
type ValidationError struct {
	Tier   content.Tier
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s response: %s", e.Tier, strings.Join(e.Errors, "; "))
}

// Output is the processed reply. Exactly one field is set, chosen by tier.
type Output struct {
	Text     string
	Style    map[string]any
	Section  *content.Section
	Document *content.Document
}

// Process turns a raw model reply into the typed value the tier expects.
// Tier 1 is plain text; tier 2 must be a JSON object; tiers 3 and 4 must pass
// section and document validation and come back normalized. Failures are
// returned as *ValidationError.
func Process(tier content.Tier, raw string) (*Output, error) {
	switch tier {
	case content.TierInline:
		text := CleanText(raw)
		if text == "" {
			return nil, &ValidationError{Tier: tier, Errors: []string{"Response is empty"}}
		}
		return &Output{Text: text}, nil

	case content.TierVisual:
		v, err := decode(raw)
		if err != nil {
			return nil, &ValidationError{Tier: tier, Errors: []string{err.Error()}}
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, &ValidationError{Tier: tier, Errors: []string{"Response must be a JSON object"}}
		}
		return &Output{Style: obj}, nil

	case content.TierSection:
		v, err := decode(raw)
		if err != nil {
			return nil, &ValidationError{Tier: tier, Errors: []string{err.Error()}}
		}
		res := ValidateSection(v)
		if !res.Valid {
			return nil, &ValidationError{Tier: tier, Errors: res.Errors}
		}
		s := NormalizeSection(*res.Section)
		return &Output{Section: &s}, nil

	case content.TierDocument:
		v, err := decode(raw)
		if err != nil {
			return nil, &ValidationError{Tier: tier, Errors: []string{err.Error()}}
		}
		res := ValidateDocument(v)
		if !res.Valid {
			return nil, &ValidationError{Tier: tier, Errors: res.Errors}
		}
		d := NormalizeDocument(*res.Document)
		return &Output{Document: &d}, nil
	}
	return nil, fmt.Errorf("unknown tier %d", int(tier))
}

// decode cleans raw and parses it as JSON.
func decode(raw string) (any, error) {
	cleaned := Clean(raw)
	if cleaned == "" {
		return nil, errors.New("Response is empty")
	}
	var v any
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fmt.Errorf("Response is not valid JSON: %v", err)
	}
	return v, nil
}
