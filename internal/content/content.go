// Package content holds the page document types the AI core inspects by field
// name. Rendering and layout semantics live elsewhere.
package content

import "fmt"

// Tier is the escalation level of an edit. Higher tiers touch more of the page.
type Tier int

const (
	TierInline   Tier = 1 // single field value
	TierVisual   Tier = 2 // colors, typography, section style
	TierSection  Tier = 3 // one whole section
	TierDocument Tier = 4 // the whole page
)

func (t Tier) Valid() bool {
	return t >= TierInline && t <= TierDocument
}

func (t Tier) String() string {
	switch t {
	case TierInline:
		return "inline"
	case TierVisual:
		return "visual"
	case TierSection:
		return "section"
	case TierDocument:
		return "document"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Document is a full landing page.
type Document struct {
	ID          string         `json:"id,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	ColorScheme map[string]any `json:"colorScheme"`
	Typography  map[string]any `json:"typography"`
	Sections    []Section      `json:"sections"`
}

// Section is one block of the page. Content holds copy and toggles, Style
// holds per-section visual overrides, Items holds repeated entries (feature
// cards, pricing tiers, FAQ entries...).
type Section struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Variant string         `json:"variant,omitempty"`
	Content map[string]any `json:"content"`
	Style   map[string]any `json:"style,omitempty"`
	Items   []Item         `json:"items,omitempty"`
}

// Item is a repeated entry inside a section. It is keyed by "id".
type Item map[string]any

// ID returns the item's identifier or "" when missing or not a string.
func (it Item) ID() string {
	id, _ := it["id"].(string)
	return id
}

// Section returns the section with the given id.
func (d *Document) Section(id string) (*Section, bool) {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return &d.Sections[i], true
		}
	}
	return nil, false
}

// Item returns the item with the given id.
func (s *Section) Item(id string) (Item, bool) {
	for _, it := range s.Items {
		if it.ID() == id {
			return it, true
		}
	}
	return nil, false
}

// Heading returns the section's main headline, falling back to its title.
func (s *Section) Heading() string {
	for _, key := range []string{"headline", "title", "heading"} {
		if v, ok := s.Content[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// FieldValue resolves a field on the section, or on one of its items when
// itemID is set. Content wins over Style when both define the key.
func (s *Section) FieldValue(field, itemID string) (any, bool) {
	if itemID != "" {
		it, ok := s.Item(itemID)
		if !ok {
			return nil, false
		}
		v, ok := it[field]
		return v, ok
	}
	if v, ok := s.Content[field]; ok {
		return v, true
	}
	v, ok := s.Style[field]
	return v, ok
}
