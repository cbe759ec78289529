package orchestrator

import (
	"errors"

	"github.com/gluk-w/claworc/launchpad-ai/internal/billing"
	"github.com/gluk-w/claworc/launchpad-ai/internal/content"
	"github.com/gluk-w/claworc/launchpad-ai/internal/providers"
	"github.com/gluk-w/claworc/launchpad-ai/internal/response"
)

var (
	ErrUnknownAction    = errors.New("unknown action")
	ErrTierNotSupported = errors.New("action not supported at this tier")
	ErrScopeNotFound    = errors.New("scope not found")
)

type Action string

const (
	ActionImproveText       Action = "improve-text"
	ActionRewrite           Action = "rewrite"
	ActionShorten           Action = "shorten"
	ActionExpand            Action = "expand"
	ActionChangeTone        Action = "change-tone"
	ActionSuggestColors     Action = "suggest-colors"
	ActionSuggestTypography Action = "suggest-typography"
	ActionRestyleSection    Action = "restyle-section"
	ActionAnalyzeLayout     Action = "analyze-layout"
	ActionGenerateSection   Action = "generate-section"
	ActionRewriteSection    Action = "rewrite-section"
	ActionAddItems          Action = "add-items"
	ActionGeneratePage      Action = "generate-page"
	ActionReorderSections   Action = "reorder-sections"
	ActionAnalyzeScreenshot Action = "analyze-screenshot"
)

// Scope addresses the element being edited. Field and ItemID are optional
// for section-level actions.
type Scope struct {
	SectionID string `json:"sectionId"`
	Field     string `json:"field,omitempty"`
	ItemID    string `json:"itemId,omitempty"`
}

// Request is one unit of work. Document is a snapshot and is never
// modified.
type Request struct {
	Tier              content.Tier     `json:"tier"`
	Action            Action           `json:"action"`
	Instruction       string           `json:"instruction"`
	Document          content.Document `json:"document"`
	Scope             *Scope           `json:"scope,omitempty"`
	Image             string           `json:"image,omitempty"`
	TargetSectionKind string           `json:"targetSectionKind,omitempty"`
	Effort            providers.Effort `json:"effort,omitempty"`
}

type SuggestionKind string

const (
	KindText     SuggestionKind = "text"
	KindStyle    SuggestionKind = "style"
	KindSection  SuggestionKind = "section"
	KindDocument SuggestionKind = "document"
)

// Suggestion is a validated change offered for approval. The shape of
// Original and Proposed depends on Kind: a string for text, an object for
// style, a content.Section for section and a content.Document for document.
type Suggestion struct {
	Kind      SuggestionKind `json:"kind"`
	Field     string         `json:"field,omitempty"`
	SectionID string         `json:"sectionId,omitempty"`
	ItemID    string         `json:"itemId,omitempty"`
	Original  any            `json:"original"`
	Proposed  any            `json:"proposed"`
}

type ErrorKind string

const (
	ErrorBackend        ErrorKind = "backend"
	ErrorQuota          ErrorKind = "quota"
	ErrorValidation     ErrorKind = "validation"
	ErrorInvalidRequest ErrorKind = "invalid_request"
	ErrorCancelled      ErrorKind = "cancelled"
	ErrorInternal       ErrorKind = "internal"
)

// Result is what Execute returns for every request. Usage and Cost are
// always present and zero when no backend call completed.
type Result struct {
	Success          bool                 `json:"success"`
	Suggestion       *Suggestion          `json:"suggestion,omitempty"`
	Error            string               `json:"error,omitempty"`
	Kind             ErrorKind            `json:"errorKind,omitempty"`
	ValidationErrors []string             `json:"validationErrors,omitempty"`
	Usage            providers.TokenUsage `json:"usage"`
	Cost             billing.Cost         `json:"cost"`
	Diff             *response.Diff       `json:"diff,omitempty"`
}
