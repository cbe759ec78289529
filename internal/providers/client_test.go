package providers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeStreamer struct {
	chunks []string
	err    error

	mu   sync.Mutex
	last StreamRequest
}

func (f *fakeStreamer) Stream(ctx context.Context, req StreamRequest, emit func(string) error) error {
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	for _, c := range f.chunks {
		if err := emit(c); err != nil {
			return err
		}
	}
	return f.err
}

func TestClientCallConcatenatesInOrder(t *testing.T) {
	text := &fakeStreamer{chunks: []string{"Claim ", "Your Spot ", "Now"}}
	c := NewClient(text, &fakeStreamer{})

	resp, err := c.Call(context.Background(), BackendText, "sys", "Sign up", CallOptions{MaxOutputTokens: 1024})
	require.NoError(t, err)

	assert.Equal(t, "Claim Your Spot Now", resp.Text)
	assert.Equal(t, BackendText, resp.Usage.Backend)
	// "sys" + "Sign up" = 10 chars, reply is 19 chars.
	assert.Equal(t, int64(3), resp.Usage.InputTokens)
	assert.Equal(t, int64(5), resp.Usage.OutputTokens)
	assert.Equal(t, 1024, text.last.MaxOutputTokens)
}

func TestClientCallImagesOnlyForVision(t *testing.T) {
	text := &fakeStreamer{chunks: []string{"ok"}}
	vision := &fakeStreamer{chunks: []string{"{}"}}
	c := NewClient(text, vision)

	opts := CallOptions{
		Images: []Image{{MIMEType: "image/png", Data: pngPixel}},
		Effort: EffortHigh,
	}

	_, err := c.Call(context.Background(), BackendText, "", "x", opts)
	require.NoError(t, err)
	assert.Empty(t, text.last.Images)
	assert.Equal(t, EffortNone, text.last.Effort)

	_, err = c.Call(context.Background(), BackendVision, "", "x", opts)
	require.NoError(t, err)
	assert.Len(t, vision.last.Images, 1)
	assert.Equal(t, EffortHigh, vision.last.Effort)
}

func TestClientCallWrapsBackendError(t *testing.T) {
	upstreamErr := errors.New("connection reset")
	c := NewClient(&fakeStreamer{chunks: []string{"partial"}, err: upstreamErr}, nil)

	resp, err := c.Call(context.Background(), BackendText, "", "x", CallOptions{})
	assert.Nil(t, resp)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, BackendText, be.Backend)
	assert.ErrorIs(t, err, upstreamErr)
}

func TestClientCallUnconfiguredBackend(t *testing.T) {
	c := NewClient(&fakeStreamer{}, nil)
	_, err := c.Call(context.Background(), BackendVision, "", "x", CallOptions{})

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, BackendVision, be.Backend)
}

type blockingStreamer struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	release  chan struct{}
}

func (b *blockingStreamer) Stream(ctx context.Context, _ StreamRequest, emit func(string) error) error {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return emit("done")
}

func TestClientMaxConcurrent(t *testing.T) {
	s := &blockingStreamer{release: make(chan struct{})}
	c := NewClient(s, nil, WithMaxConcurrent(2))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Call(context.Background(), BackendText, "", "x", CallOptions{})
		}()
	}

	require.Eventually(t, func() bool { return s.inFlight.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(s.release)
	wg.Wait()

	assert.Equal(t, int32(2), s.peak.Load())
}

func TestClientCallCancelledMidStream(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	firstChunk := make(chan struct{})
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "text/event-stream")
		full := anthropicSSE("Claim ")
		io.WriteString(w, full[:strings.Index(full, "event: message_stop")])
		w.(http.Flusher).Flush()
		close(firstChunk)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer upstream.Close()
	// Runs before Close so the handler can never hold the server open.
	defer close(release)

	SetCustomUpstream(BackendText, upstream.URL)
	defer SetCustomUpstream(BackendText, "")

	streamer := &AnthropicStreamer{
		HTTPClient: &http.Client{Transport: &http.Transport{DisableKeepAlives: true}},
		Keys:       func(Backend) string { return "sk-ant-test" },
	}
	c := NewClient(streamer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-firstChunk
		cancel()
	}()

	resp, err := c.Call(ctx, BackendText, "", "x", CallOptions{})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.Canceled)

	var be *BackendError
	assert.ErrorAs(t, err, &be)
}
