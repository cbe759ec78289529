// Package orchestrator turns an edit request into a validated, billed
// suggestion.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gluk-w/claworc/launchpad-ai/internal/billing"
	"github.com/gluk-w/claworc/launchpad-ai/internal/content"
	"github.com/gluk-w/claworc/launchpad-ai/internal/prompts"
	"github.com/gluk-w/claworc/launchpad-ai/internal/providers"
	"github.com/gluk-w/claworc/launchpad-ai/internal/response"
)

// Caller is the model client.
type Caller interface {
	Call(ctx context.Context, backend providers.Backend, systemPrompt, userMessage string, opts providers.CallOptions) (*providers.Response, error)
}

// Output token budget per tier.
var maxOutputTokens = map[content.Tier]int{
	content.TierInline:   1024,
	content.TierVisual:   2048,
	content.TierSection:  8192,
	content.TierDocument: 16384,
}

// User-facing messages. Details go to the log, not to the caller.
const (
	msgBackend    = "The AI service is temporarily unavailable. Please try again."
	msgQuota      = "You have used all AI generations included in your plan for this period."
	msgValidation = "The AI response did not match the expected format."
	msgCancelled  = "The request was cancelled."
	msgInternal   = "Something went wrong while processing the request."
)

type Orchestrator struct {
	caller      Caller
	governor    *billing.Governor
	log         *zap.Logger
	callTimeout time.Duration
}

type Option func(*Orchestrator)

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithCallTimeout bounds each backend call. Zero means no bound beyond the
// request context.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.callTimeout = d }
}

func New(caller Caller, governor *billing.Governor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		caller:   caller,
		governor: governor,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs one request for accountID. It never returns an error: every
// failure is reported in the Result.
//
// Quota is reserved before the backend call and committed after a reply is
// received, even when the reply fails validation. A failed or cancelled call
// releases the reservation and records nothing.
func (o *Orchestrator) Execute(ctx context.Context, req Request, accountID string) Result {
	start := time.Now()
	log := o.log.With(
		zap.String("account", accountID),
		zap.String("action", string(req.Action)),
		zap.Int("tier", int(req.Tier)))

	if ctx.Err() != nil {
		return failure(ErrorCancelled, msgCancelled)
	}

	spec, in, err := prepare(&req)
	if err != nil {
		return failure(ErrorInvalidRequest, err.Error())
	}
	userMessage, err := spec.build(in)
	if err != nil {
		return failure(ErrorInvalidRequest, err.Error())
	}

	var images []providers.Image
	if req.Image != "" {
		img, err := providers.DecodeImage(req.Image)
		if err != nil {
			return failure(ErrorInvalidRequest, fmt.Sprintf("image: %v", err))
		}
		images = append(images, img)
	}

	backend := providers.BackendText
	if spec.vision || len(images) > 0 {
		backend = providers.BackendVision
	}

	bucket := billing.BucketForTier(req.Tier)
	reservation, err := o.governor.Reserve(ctx, accountID, bucket)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrQuotaExhausted):
			return failure(ErrorQuota, msgQuota)
		case errors.Is(err, billing.ErrAccountNotFound):
			return failure(ErrorInvalidRequest, err.Error())
		case ctx.Err() != nil:
			return failure(ErrorCancelled, msgCancelled)
		}
		log.Error("reserve quota failed", zap.Error(err))
		return failure(ErrorInternal, msgInternal)
	}

	callCtx := ctx
	if o.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.callTimeout)
		defer cancel()
	}

	resp, err := o.caller.Call(callCtx, backend, prompts.ForTier(req.Tier), userMessage, providers.CallOptions{
		MaxOutputTokens: maxOutputTokens[req.Tier],
		Images:          images,
		Effort:          req.Effort,
	})
	if err != nil {
		// The reservation must come back even when ctx is already done.
		if relErr := o.governor.Release(context.WithoutCancel(ctx), reservation); relErr != nil {
			log.Error("release reservation failed", zap.Error(relErr))
		}
		if ctx.Err() != nil {
			log.Info("request cancelled during backend call", zap.Duration("elapsed", time.Since(start)))
			return failure(ErrorCancelled, msgCancelled)
		}
		log.Warn("backend call failed", zap.String("backend", string(backend)), zap.Error(err))
		return failure(ErrorBackend, msgBackend)
	}

	out, procErr := response.Process(req.Tier, resp.Text)

	// Tokens were spent whether or not the reply is usable.
	cost, err := o.governor.Commit(context.WithoutCancel(ctx), reservation, resp.Usage)
	if err != nil {
		log.Error("commit usage failed", zap.Error(err))
		cost = o.governor.Cost(resp.Usage)
	}

	result := Result{Usage: resp.Usage, Cost: cost}
	if procErr != nil {
		var ve *response.ValidationError
		if errors.As(procErr, &ve) {
			log.Info("response failed validation", zap.Strings("errors", ve.Errors))
			result.Kind = ErrorValidation
			result.Error = msgValidation
			result.ValidationErrors = ve.Errors
			return result
		}
		log.Error("process response failed", zap.Error(procErr))
		result.Kind = ErrorInternal
		result.Error = msgInternal
		return result
	}

	s := suggestionFor(spec, in, out)
	result.Success = true
	result.Suggestion = &s
	if s.Kind != KindText {
		d := response.Compare(s.Original, s.Proposed)
		result.Diff = &d
	}

	log.Info("suggestion ready",
		zap.String("backend", string(backend)),
		zap.String("kind", string(s.Kind)),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
		zap.Int64("cost_cents", cost.TotalCostCents),
		zap.Duration("elapsed", time.Since(start)))
	return result
}

func failure(kind ErrorKind, msg string) Result {
	return Result{Kind: kind, Error: msg}
}

// prepare looks up the action and resolves the scope it needs.
func prepare(req *Request) (actionSpec, *input, error) {
	if !req.Tier.Valid() {
		return actionSpec{}, nil, fmt.Errorf("invalid tier %d", int(req.Tier))
	}
	spec, ok := actions[req.Action]
	if !ok {
		return actionSpec{}, nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	if !spec.supports(req.Tier) {
		return actionSpec{}, nil, fmt.Errorf("%w: %s at tier %d", ErrTierNotSupported, req.Action, int(req.Tier))
	}
	if spec.needsImage && req.Image == "" {
		return actionSpec{}, nil, fmt.Errorf("%s requires an image", req.Action)
	}

	in := &input{req: req}
	if spec.scope == scopeNone {
		return spec, in, nil
	}

	if req.Scope == nil || req.Scope.SectionID == "" {
		return actionSpec{}, nil, fmt.Errorf("%w: a section id is required", ErrScopeNotFound)
	}
	section, ok := req.Document.Section(req.Scope.SectionID)
	if !ok {
		return actionSpec{}, nil, fmt.Errorf("%w: section %q", ErrScopeNotFound, req.Scope.SectionID)
	}
	in.section = section

	if spec.scope == scopeField {
		if req.Scope.Field == "" {
			return actionSpec{}, nil, fmt.Errorf("%w: a field is required", ErrScopeNotFound)
		}
		if req.Scope.ItemID != "" {
			if _, ok := section.Item(req.Scope.ItemID); !ok {
				return actionSpec{}, nil, fmt.Errorf("%w: item %q in section %q", ErrScopeNotFound, req.Scope.ItemID, section.ID)
			}
		}
		v, ok := section.FieldValue(req.Scope.Field, req.Scope.ItemID)
		if !ok {
			return actionSpec{}, nil, fmt.Errorf("%w: field %q", ErrScopeNotFound, req.Scope.Field)
		}
		in.value = v
	}
	return spec, in, nil
}

func suggestionFor(spec actionSpec, in *input, out *response.Output) Suggestion {
	var original any
	if spec.original != nil {
		original = spec.original(in)
	}
	s := Suggestion{Original: original}
	if in.section != nil {
		s.SectionID = in.section.ID
	}

	switch {
	case out.Section != nil:
		proposed := *out.Section
		if in.section != nil {
			// Edits of an existing section must land on that section.
			proposed.ID = in.section.ID
		} else {
			s.SectionID = proposed.ID
		}
		s.Kind = KindSection
		s.Proposed = proposed
	case out.Document != nil:
		s.Kind = KindDocument
		s.Proposed = *out.Document
	case out.Style != nil:
		s.Kind = KindStyle
		s.Field = spec.field
		s.Proposed = out.Style
	default:
		s.Kind = KindText
		s.Field = in.req.Scope.Field
		s.ItemID = in.req.Scope.ItemID
		s.Proposed = out.Text
	}
	return s
}
