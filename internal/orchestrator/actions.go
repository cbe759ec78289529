package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gluk-w/claworc/launchpad-ai/internal/aicontext"
	"github.com/gluk-w/claworc/launchpad-ai/internal/content"
)

type scopeNeed int

const (
	scopeNone scopeNeed = iota
	scopeSection
	scopeField
)

// input is a request with its scope resolved against the document.
type input struct {
	req     *Request
	section *content.Section
	value   any
}

// actionSpec is the recipe for one action. Adding an action is adding an
// entry to actions.
type actionSpec struct {
	tiers      []content.Tier
	vision     bool
	needsImage bool
	scope      scopeNeed
	// field names the document property a tier 2 suggestion replaces.
	field    string
	build    func(in *input) (string, error)
	original func(in *input) any
}

func (s actionSpec) supports(t content.Tier) bool {
	for _, st := range s.tiers {
		if st == t {
			return true
		}
	}
	return false
}

var actions = map[Action]actionSpec{
	ActionImproveText: fieldEdit("Improve this text so it is clearer and more persuasive."),
	ActionRewrite:     fieldEdit("Rewrite this text from a fresh angle. Keep the meaning, change the wording."),
	ActionShorten:     fieldEdit("Shorten this text. Keep the core message and cut everything else."),
	ActionExpand:      fieldEdit("Expand this text with one concrete, specific detail."),
	ActionChangeTone:  fieldEdit("Change the tone of this text as the instruction describes."),

	ActionSuggestColors: {
		tiers: []content.Tier{content.TierVisual},
		field: "colorScheme",
		build: func(in *input) (string, error) {
			return message(
				aicontext.DocumentContext(in.req.Document),
				"Current color scheme:\n"+indentJSON(in.req.Document.ColorScheme),
				"Suggest a new color scheme. Return a JSON object with the same keys and hex color values.",
				instruction(in.req),
			), nil
		},
		original: func(in *input) any { return in.req.Document.ColorScheme },
	},
	ActionSuggestTypography: {
		tiers: []content.Tier{content.TierVisual},
		field: "typography",
		build: func(in *input) (string, error) {
			return message(
				aicontext.DocumentContext(in.req.Document),
				"Current typography:\n"+indentJSON(in.req.Document.Typography),
				"Suggest new typography. Return a JSON object with the same keys and font family values.",
				instruction(in.req),
			), nil
		},
		original: func(in *input) any { return in.req.Document.Typography },
	},
	ActionRestyleSection: {
		tiers: []content.Tier{content.TierVisual},
		scope: scopeSection,
		field: "style",
		build: func(in *input) (string, error) {
			return message(
				aicontext.DocumentContext(in.req.Document),
				aicontext.ScopeContext(*in.section),
				"Restyle this section. Return its style object as JSON. Only style keys, no content.",
				instruction(in.req),
			), nil
		},
		original: func(in *input) any { return in.section.Style },
	},
	ActionAnalyzeLayout: {
		tiers:  []content.Tier{content.TierVisual},
		vision: true,
		build: func(in *input) (string, error) {
			return message(
				aicontext.DocumentContext(in.req.Document),
				"Analyze the visual hierarchy and flow of this page. Return {\"observations\": [...], \"suggestions\": [...]}.",
				instruction(in.req),
			), nil
		},
	},

	ActionGenerateSection: {
		tiers: []content.Tier{content.TierSection},
		build: func(in *input) (string, error) {
			kind := in.req.TargetSectionKind
			if kind == "" {
				return "", fmt.Errorf("targetSectionKind is required")
			}
			if _, ok := aicontext.Default().Kind(kind); !ok {
				return "", fmt.Errorf("unknown section kind %q", kind)
			}
			return message(
				aicontext.LibraryContext(),
				aicontext.DocumentContext(in.req.Document),
				fmt.Sprintf("Create a new %q section for this page. Return one section JSON object.", kind),
				instruction(in.req),
			), nil
		},
	},
	ActionRewriteSection: {
		tiers: []content.Tier{content.TierSection},
		scope: scopeSection,
		build: func(in *input) (string, error) {
			return message(
				aicontext.LibraryContext(),
				aicontext.DocumentContext(in.req.Document),
				aicontext.ScopeContext(*in.section),
				"Rewrite this section. Keep its id and type. Return the complete section JSON object.",
				instruction(in.req),
			), nil
		},
		original: func(in *input) any { return *in.section },
	},
	ActionAddItems: {
		tiers: []content.Tier{content.TierSection},
		scope: scopeSection,
		build: func(in *input) (string, error) {
			if kind, ok := aicontext.Default().Kind(in.section.Type); ok && len(kind.Items) == 0 {
				return "", fmt.Errorf("%s sections have no items", in.section.Type)
			}
			return message(
				aicontext.DocumentContext(in.req.Document),
				aicontext.ScopeContext(*in.section),
				"Add new items to this section. Keep every existing item and its id unchanged. Return the complete section JSON object.",
				instruction(in.req),
			), nil
		},
		original: func(in *input) any { return *in.section },
	},

	ActionGeneratePage: {
		tiers: []content.Tier{content.TierDocument},
		build: func(in *input) (string, error) {
			parts := []string{aicontext.LibraryContext()}
			if len(in.req.Document.Sections) > 0 || in.req.Document.Title != "" {
				parts = append(parts, aicontext.DocumentContext(in.req.Document))
			}
			parts = append(parts,
				"Generate a complete landing page. Return one document JSON object.",
				instruction(in.req))
			return message(parts...), nil
		},
		original: func(in *input) any { return in.req.Document },
	},
	ActionReorderSections: {
		tiers: []content.Tier{content.TierDocument},
		build: func(in *input) (string, error) {
			if len(in.req.Document.Sections) < 2 {
				return "", fmt.Errorf("document needs at least two sections to reorder")
			}
			return message(
				aicontext.DocumentContext(in.req.Document),
				"Full document:\n"+indentJSON(in.req.Document),
				"Reorder the sections for a better narrative. Do not change any section content or id. Return the complete document JSON object.",
				instruction(in.req),
			), nil
		},
		original: func(in *input) any { return in.req.Document },
	},

	ActionAnalyzeScreenshot: {
		tiers:      []content.Tier{content.TierVisual, content.TierSection, content.TierDocument},
		vision:     true,
		needsImage: true,
		build: func(in *input) (string, error) {
			var task string
			switch in.req.Tier {
			case content.TierVisual:
				task = "Extract the visual style of the attached screenshot. Return a JSON object with \"colorScheme\" and \"typography\"."
				return message(aicontext.DocumentContext(in.req.Document), task, instruction(in.req)), nil
			case content.TierSection:
				task = "Recreate the section shown in the attached screenshot. Return one section JSON object."
			default:
				task = "Recreate the page shown in the attached screenshot. Return one document JSON object."
			}
			return message(aicontext.LibraryContext(), task, instruction(in.req)), nil
		},
	},
}

func fieldEdit(task string) actionSpec {
	return actionSpec{
		tiers: []content.Tier{content.TierInline},
		scope: scopeField,
		build: func(in *input) (string, error) {
			return message(
				aicontext.FieldContext(in.req.Scope.Field, in.value, in.section.Type),
				task,
				instruction(in.req),
				"Reply with the new text only.",
			), nil
		},
		original: func(in *input) any { return in.value },
	}
}

func message(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

func instruction(r *Request) string {
	if strings.TrimSpace(r.Instruction) == "" {
		return "Instruction: none given, use your best judgment."
	}
	return "Instruction: " + strings.TrimSpace(r.Instruction)
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
