package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const anthropicVersion = "2023-06-01"

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream"`
}

// ParseAnthropicDelta extracts streamed text from one Anthropic SSE event and
// reports whether the event is the terminal message_stop.
// Events: message_start, content_block_delta (text), message_delta, message_stop, error
func ParseAnthropicDelta(eventType, data string) (text string, stop bool, err error) {
	var evt struct {
		Type  string `json:"type"`
		Delta *struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return "", eventType == "message_stop", nil
	}
	if eventType == "" {
		eventType = evt.Type
	}

	switch eventType {
	case "error":
		if evt.Error != nil {
			return "", false, fmt.Errorf("%s: %s", evt.Error.Type, evt.Error.Message)
		}
		return "", false, errors.New("upstream stream error")
	case "content_block_delta":
		if evt.Delta != nil && evt.Delta.Type == "text_delta" {
			return evt.Delta.Text, false, nil
		}
	case "message_stop":
		return "", true, nil
	}
	return "", false, nil
}

// errStreamTruncated is returned when the connection closes cleanly before
// message_stop. The partial reply is discarded.
var errStreamTruncated = errors.New("stream ended before message_stop")

// AnthropicStreamer serves the text backend over the Messages streaming API.
// Images are not sent; the vision backend handles those.
type AnthropicStreamer struct {
	HTTPClient *http.Client
	Keys       KeyFunc
}

func (s *AnthropicStreamer) Stream(ctx context.Context, req StreamRequest, emit func(string) error) error {
	provider, _ := Get(string(BackendText))

	apiKey := s.Keys(BackendText)
	if apiKey == "" {
		return errors.New("no API key configured")
	}

	model := req.Model
	if model == "" {
		model = provider.DefaultModel
	}
	body, err := json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: req.MaxOutputTokens,
		System:    req.SystemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: req.UserMessage}},
		Stream:    true,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	upstreamURL := strings.TrimRight(provider.UpstreamURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, upstreamURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upstream returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	stopped := false
	err = ScanSSE(ctx, resp.Body, func(event, data string) error {
		text, stop, err := ParseAnthropicDelta(event, data)
		if err != nil {
			return err
		}
		if stop {
			stopped = true
		}
		if text == "" {
			return nil
		}
		return emit(text)
	})
	if err != nil {
		return err
	}
	if !stopped {
		return errStreamTruncated
	}
	return nil
}
