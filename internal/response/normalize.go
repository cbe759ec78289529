package response

import (
	"github.com/google/uuid"

	"github.com/gluk-w/claworc/launchpad-ai/internal/content"
)

// NewID generates identifiers for sections and items that arrive without one.
var NewID = func() string {
	return uuid.NewString()
}

// NormalizeSection returns a copy of s where the section, every item and
// every object inside an array-valued content field has a non-empty id.
// Existing ids are never replaced.
func NormalizeSection(s content.Section) content.Section {
	if s.ID == "" {
		s.ID = NewID()
	}

	if s.Items != nil {
		items := make([]content.Item, len(s.Items))
		for i, it := range s.Items {
			cp := make(content.Item, len(it)+1)
			for k, v := range it {
				cp[k] = v
			}
			if cp.ID() == "" {
				cp["id"] = NewID()
			}
			items[i] = cp
		}
		s.Items = items
	}

	if s.Content != nil {
		c := make(map[string]any, len(s.Content))
		for k, v := range s.Content {
			c[k] = normalizeList(v)
		}
		s.Content = c
	}
	return s
}

// NormalizeDocument applies NormalizeSection to every section.
func NormalizeDocument(d content.Document) content.Document {
	sections := make([]content.Section, len(d.Sections))
	for i, s := range d.Sections {
		sections[i] = NormalizeSection(s)
	}
	d.Sections = sections
	return d
}

func normalizeList(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, len(list))
	for i, el := range list {
		m, ok := el.(map[string]any)
		if !ok {
			out[i] = el
			continue
		}
		cp := make(map[string]any, len(m)+1)
		for k, val := range m {
			cp[k] = val
		}
		if id, _ := cp["id"].(string); id == "" {
			cp["id"] = NewID()
		}
		out[i] = cp
	}
	return out
}
