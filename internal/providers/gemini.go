package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// Effort is a hint for how much reasoning the vision backend may spend
// before answering.
type Effort string

const (
	EffortNone   Effort = ""
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

func thinkingBudget(e Effort) (int32, bool) {
	switch e {
	case EffortLow:
		return 1024, true
	case EffortMedium:
		return 8192, true
	case EffortHigh:
		return 24576, true
	}
	return 0, false
}

// GeminiStreamer serves the vision backend through the genai SDK. It keeps
// one client, rebuilt when the key or base URL changes.
type GeminiStreamer struct {
	Keys KeyFunc

	mu        sync.Mutex
	cached    *genai.Client
	cachedFor string
}

func (s *GeminiStreamer) client(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cacheKey := baseURL + "|" + apiKey
	if s.cached != nil && s.cachedFor == cacheKey {
		return s.cached, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	s.cached, s.cachedFor = c, cacheKey
	return c, nil
}

func (s *GeminiStreamer) Stream(ctx context.Context, req StreamRequest, emit func(string) error) error {
	provider, _ := Get(string(BackendVision))

	apiKey := s.Keys(BackendVision)
	if apiKey == "" {
		return errors.New("no API key configured")
	}

	// Only pass a base URL when it was overridden; the SDK knows the default.
	baseURL := ""
	if provider.UpstreamURL != registry[BackendVision].UpstreamURL {
		baseURL = strings.TrimRight(provider.UpstreamURL, "/") + "/"
	}
	c, err := s.client(ctx, apiKey, baseURL)
	if err != nil {
		return err
	}

	model := req.Model
	if model == "" {
		model = provider.DefaultModel
	}

	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.UserMessage))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxOutputTokens),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if budget, ok := thinkingBudget(req.Effort); ok {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(budget)}
	}

	for chunk, err := range c.Models.GenerateContentStream(ctx, model, contents, cfg) {
		if err != nil {
			return err
		}
		text := chunkText(chunk)
		if text == "" {
			continue
		}
		if err := emit(text); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// chunkText joins the visible text parts of the first candidate. Thought
// summaries are skipped.
func chunkText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}
