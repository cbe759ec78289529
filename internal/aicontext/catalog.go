// Package aicontext renders the text that grounds prompts: the component
// library, a summary of the page being edited and the editable parts of one
// section. Every function here is pure.
package aicontext

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Field categories.
const (
	CategoryText       = "text"
	CategoryStyle      = "style"
	CategoryVisibility = "visibility"
	CategoryLayout     = "layout"
)

// Field is one named slot of a section or of its items.
type Field struct {
	Name      string `yaml:"name"`
	Category  string `yaml:"category"`
	Role      string `yaml:"role"`
	Guideline string `yaml:"guideline,omitempty"`
}

// SectionKind describes one section type the page builder can render.
type SectionKind struct {
	Kind        string   `yaml:"kind"`
	Description string   `yaml:"description"`
	Variants    []string `yaml:"variants"`
	Fields      []Field  `yaml:"fields"`
	Items       []Field  `yaml:"items,omitempty"`
}

// Catalog is the versioned component library.
type Catalog struct {
	Version    int               `yaml:"version"`
	Categories []string          `yaml:"categories"`
	Sections   []SectionKind     `yaml:"sections"`
	Guidelines map[string]string `yaml:"guidelines"`
}

// ParseCatalog decodes a catalog and checks that every field has a known
// category and every guideline reference resolves.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Sections) == 0 {
		return nil, fmt.Errorf("catalog has no sections")
	}

	known := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		known[cat] = true
	}
	seen := make(map[string]bool, len(c.Sections))
	for _, s := range c.Sections {
		if s.Kind == "" {
			return nil, fmt.Errorf("catalog section without kind")
		}
		if seen[s.Kind] {
			return nil, fmt.Errorf("duplicate section kind %q", s.Kind)
		}
		seen[s.Kind] = true
		for _, f := range append(append([]Field{}, s.Fields...), s.Items...) {
			if !known[f.Category] {
				return nil, fmt.Errorf("%s.%s: unknown category %q", s.Kind, f.Name, f.Category)
			}
			if f.Guideline != "" {
				if _, ok := c.Guidelines[f.Guideline]; !ok {
					return nil, fmt.Errorf("%s.%s: unknown guideline %q", s.Kind, f.Name, f.Guideline)
				}
			}
		}
	}
	return &c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := ParseCatalog(catalogYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Kind looks up a section kind.
func (c *Catalog) Kind(kind string) (*SectionKind, bool) {
	for i := range c.Sections {
		if c.Sections[i].Kind == kind {
			return &c.Sections[i], true
		}
	}
	return nil, false
}

// Field looks up a field by name among the section fields, then among the
// item fields.
func (k *SectionKind) Field(name string) (Field, bool) {
	for _, f := range k.Fields {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range k.Items {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// KindNames lists every section kind in catalog order.
func (c *Catalog) KindNames() []string {
	names := make([]string, len(c.Sections))
	for i, s := range c.Sections {
		names[i] = s.Kind
	}
	return names
}
