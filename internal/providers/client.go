package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// KeyFunc resolves the API key for a backend at call time.
type KeyFunc func(Backend) string

// StreamRequest is what a Streamer sends upstream.
type StreamRequest struct {
	Model           string
	SystemPrompt    string
	UserMessage     string
	MaxOutputTokens int
	Images          []Image
	Effort          Effort
}

// Streamer produces the ordered text chunks of one generation.
type Streamer interface {
	Stream(ctx context.Context, req StreamRequest, emit func(chunk string) error) error
}

// CallOptions tunes a single Call. Images and Effort only apply to the
// vision backend.
type CallOptions struct {
	MaxOutputTokens int
	Images          []Image
	Effort          Effort
}

// Response is the accumulated reply and its estimated usage.
type Response struct {
	Text  string
	Usage TokenUsage
}

// Client is the single entry point to the model backends.
type Client struct {
	streamers map[Backend]Streamer
	estimator TokenEstimator
	sem       *semaphore.Weighted
	log       *zap.Logger
}

type Option func(*Client)

// WithEstimator replaces the character-count heuristic.
func WithEstimator(e TokenEstimator) Option {
	return func(c *Client) { c.estimator = e }
}

// WithMaxConcurrent bounds the number of in-flight backend calls.
func WithMaxConcurrent(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(n)
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient wires one Streamer per backend family.
func NewClient(text, vision Streamer, opts ...Option) *Client {
	c := &Client{
		streamers: map[Backend]Streamer{
			BackendText:   text,
			BackendVision: vision,
		},
		estimator: DefaultEstimator,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewDefaultClient builds a client on the Anthropic and Gemini streamers.
func NewDefaultClient(keys KeyFunc, opts ...Option) *Client {
	return NewClient(
		&AnthropicStreamer{Keys: keys},
		&GeminiStreamer{Keys: keys},
		opts...,
	)
}

// Call streams one generation from backend and concatenates the chunks in
// arrival order. Usage is estimated from the combined prompt text and the
// reply. Every failure is returned as *BackendError; no retry happens here.
// When ctx is cancelled the accumulation stops and the error wraps ctx.Err().
func (c *Client) Call(ctx context.Context, backend Backend, systemPrompt, userMessage string, opts CallOptions) (*Response, error) {
	streamer, ok := c.streamers[backend]
	if !ok || streamer == nil {
		return nil, &BackendError{Backend: backend, Err: errors.New("backend not configured")}
	}

	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, &BackendError{Backend: backend, Err: err}
		}
		defer c.sem.Release(1)
	}

	req := StreamRequest{
		SystemPrompt:    systemPrompt,
		UserMessage:     userMessage,
		MaxOutputTokens: opts.MaxOutputTokens,
	}
	if backend == BackendVision {
		req.Images = opts.Images
		req.Effort = opts.Effort
	}

	start := time.Now()
	var sb strings.Builder
	err := streamer.Stream(ctx, req, func(chunk string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		sb.WriteString(chunk)
		return nil
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		c.log.Warn("backend call failed",
			zap.String("backend", string(backend)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, &BackendError{Backend: backend, Err: fmt.Errorf("stream: %w", err)}
	}

	text := sb.String()
	in, out := c.estimator.Estimate(systemPrompt+userMessage, text)
	c.log.Debug("backend call completed",
		zap.String("backend", string(backend)),
		zap.Int("chars", len(text)),
		zap.Int64("input_tokens_est", in),
		zap.Int64("output_tokens_est", out),
		zap.Duration("elapsed", time.Since(start)))

	return &Response{
		Text:  text,
		Usage: TokenUsage{InputTokens: in, OutputTokens: out, Backend: backend},
	}, nil
}
