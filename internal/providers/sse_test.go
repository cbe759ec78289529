package providers

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestScanSSE(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantEvents []string
		wantData   []string
	}{
		{
			name: "named events",
			input: `event: message_start
data: {"a":1}

event: content_block_delta
data: {"b":2}

`,
			wantEvents: []string{"message_start", "content_block_delta"},
			wantData:   []string{`{"a":1}`, `{"b":2}`},
		},
		{
			name: "data only with done marker",
			input: `data: {"x":1}

data: [DONE]

`,
			wantEvents: []string{""},
			wantData:   []string{`{"x":1}`},
		},
		{
			name:  "comments and blanks ignored",
			input: ": keep-alive\n\ndata:\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events, data []string
			err := ScanSSE(context.Background(), strings.NewReader(tt.input), func(e, d string) error {
				events = append(events, e)
				data = append(data, d)
				return nil
			})
			if err != nil {
				t.Fatalf("ScanSSE() error = %v", err)
			}
			if strings.Join(events, ",") != strings.Join(tt.wantEvents, ",") {
				t.Errorf("events = %v, want %v", events, tt.wantEvents)
			}
			if strings.Join(data, ",") != strings.Join(tt.wantData, ",") {
				t.Errorf("data = %v, want %v", data, tt.wantData)
			}
		})
	}
}

func TestScanSSEStopsOnHandlerError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := ScanSSE(context.Background(), strings.NewReader("data: 1\n\ndata: 2\n\n"), func(string, string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("ScanSSE() error = %v, want %v", err, stop)
	}
	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestScanSSECancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ScanSSE(ctx, strings.NewReader("data: 1\n\n"), func(string, string) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ScanSSE() error = %v, want context.Canceled", err)
	}
}
