package aicontext

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gluk-w/claworc/launchpad-ai/internal/content"
)

// LibraryContext describes every section kind, variant and field of the
// default catalog.
func LibraryContext() string { return Default().LibraryContext() }

// ScopeContext lists the editable fields of one section by category.
func ScopeContext(s content.Section) string { return Default().ScopeContext(s) }

// FieldContext gives the writing guidelines for one field.
func FieldContext(field string, value any, sectionKind string) string {
	return Default().FieldContext(field, value, sectionKind)
}

func (c *Catalog) LibraryContext() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "COMPONENT LIBRARY (version %d)\n", c.Version)
	sb.WriteString("Use only these section types, variants and field names. Never invent new ones.\n")

	for _, s := range c.Sections {
		fmt.Fprintf(&sb, "\n%s: %s\n", s.Kind, s.Description)
		fmt.Fprintf(&sb, "  variants: %s\n", strings.Join(s.Variants, ", "))
		sb.WriteString("  fields:\n")
		writeFields(&sb, s.Fields)
		if len(s.Items) > 0 {
			sb.WriteString("  items (each needs a unique \"id\"):\n")
			writeFields(&sb, s.Items)
		}
	}
	return sb.String()
}

func writeFields(sb *strings.Builder, fields []Field) {
	for _, f := range fields {
		fmt.Fprintf(sb, "    - %s [%s]: %s\n", f.Name, f.Category, f.Role)
	}
}

// DocumentContext summarizes a page: title, palette, typography and the
// ordered sections by kind and heading. Section bodies are left out.
func DocumentContext(doc content.Document) string {
	var sb strings.Builder
	sb.WriteString("CURRENT PAGE\n")
	fmt.Fprintf(&sb, "Title: %s\n", orNone(doc.Title))
	if doc.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", doc.Description)
	}
	fmt.Fprintf(&sb, "Colors: %s\n", inlineMap(doc.ColorScheme))
	fmt.Fprintf(&sb, "Typography: %s\n", inlineMap(doc.Typography))

	fmt.Fprintf(&sb, "Sections (%d):\n", len(doc.Sections))
	for i, s := range doc.Sections {
		fmt.Fprintf(&sb, "  %d. %s", i+1, s.Type)
		if s.Variant != "" {
			fmt.Fprintf(&sb, " [%s]", s.Variant)
		}
		fmt.Fprintf(&sb, " id=%s", s.ID)
		if h := s.Heading(); h != "" {
			fmt.Fprintf(&sb, ": %q", h)
		}
		if len(s.Items) > 0 {
			fmt.Fprintf(&sb, " (%d items)", len(s.Items))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

var categoryOrder = []string{CategoryText, CategoryStyle, CategoryVisibility, CategoryLayout}

var layoutKeys = map[string]bool{
	"alignment": true, "columns": true, "layout": true, "order": true,
	"width": true, "spacing": true, "position": true,
}

// categorize places a field the catalog does not know by its name and value.
func categorize(name string, value any, fromStyle bool) string {
	if fromStyle {
		return CategoryStyle
	}
	if _, ok := value.(bool); ok {
		return CategoryVisibility
	}
	if layoutKeys[name] {
		return CategoryLayout
	}
	lower := strings.ToLower(name)
	if strings.Contains(lower, "color") || strings.Contains(lower, "font") {
		return CategoryStyle
	}
	return CategoryText
}

func (c *Catalog) ScopeContext(s content.Section) string {
	kind, _ := c.Kind(s.Type)

	groups := make(map[string][]string, len(categoryOrder))
	add := func(name string, value any, fromStyle bool) {
		cat := ""
		if kind != nil {
			if f, ok := kind.Field(name); ok {
				cat = f.Category
			}
		}
		if cat == "" {
			cat = categorize(name, value, fromStyle)
		}
		groups[cat] = append(groups[cat], fmt.Sprintf("    - %s: %s", name, compactJSON(value)))
	}
	for _, k := range sortedKeys(s.Content) {
		add(k, s.Content[k], false)
	}
	for _, k := range sortedKeys(s.Style) {
		if _, dup := s.Content[k]; dup {
			continue
		}
		add(k, s.Style[k], true)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECTED SECTION: %s (id %s", s.Type, s.ID)
	if s.Variant != "" {
		fmt.Fprintf(&sb, ", variant %s", s.Variant)
	}
	sb.WriteString(")\n")
	if kind != nil && len(kind.Variants) > 0 {
		fmt.Fprintf(&sb, "Available variants: %s\n", strings.Join(kind.Variants, ", "))
	}

	sb.WriteString("Editable fields:\n")
	for _, cat := range categoryOrder {
		fmt.Fprintf(&sb, "  %s:\n", cat)
		if len(groups[cat]) == 0 {
			sb.WriteString("    (none)\n")
			continue
		}
		sb.WriteString(strings.Join(groups[cat], "\n"))
		sb.WriteString("\n")
	}

	raw, _ := json.MarshalIndent(s, "", "  ")
	sb.WriteString("Section JSON:\n")
	sb.Write(raw)
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Items (%d):\n", len(s.Items))
	for _, it := range s.Items {
		fmt.Fprintf(&sb, "  - %s: %s\n", orNone(it.ID()), compactJSON(it))
	}
	return sb.String()
}

func (c *Catalog) FieldContext(field string, value any, sectionKind string) string {
	var role, key string
	if kind, ok := c.Kind(sectionKind); ok {
		if f, ok := kind.Field(field); ok {
			role, key = f.Role, f.Guideline
		}
	}
	if key == "" {
		if _, ok := c.Guidelines[field]; ok {
			key = field
		} else {
			key = "default"
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "FIELD: %s", field)
	if sectionKind != "" {
		fmt.Fprintf(&sb, " in a %s section", sectionKind)
	}
	sb.WriteString("\n")
	if role != "" {
		fmt.Fprintf(&sb, "Role: %s\n", role)
	}
	fmt.Fprintf(&sb, "Current value: %s\n", compactJSON(value))
	fmt.Fprintf(&sb, "Guidelines: %s\n", c.Guidelines[key])
	return sb.String()
}

func inlineMap(m map[string]any) string {
	if len(m) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		v := m[k]
		if s, ok := v.(string); ok {
			parts = append(parts, k+"="+s)
			continue
		}
		parts = append(parts, k+"="+compactJSON(v))
	}
	return strings.Join(parts, ", ")
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
