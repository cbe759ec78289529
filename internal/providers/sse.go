package providers

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// SSEHandler receives each data payload together with the most recent
// event name. Returning an error stops the scan.
type SSEHandler func(event, data string) error

// ScanSSE reads a server-sent-event stream line by line and dispatches each
// data line. It stops early when ctx is done.
func ScanSSE(ctx context.Context, reader io.Reader, handle SSEHandler) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024) // 1MB buffer

	var currentEvent string

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Text()

		if strings.HasPrefix(line, "event:") {
			currentEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" || data == "[DONE]" {
				continue
			}
			if err := handle(currentEvent, data); err != nil {
				return err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return scanner.Err()
}
