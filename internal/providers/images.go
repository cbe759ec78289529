package providers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Image is a decoded inline image for the vision backend.
type Image struct {
	MIMEType string
	Data     []byte
}

// DecodeImage accepts a data URL ("data:image/png;base64,...") or bare
// base64. Without a declared type the content is sniffed.
func DecodeImage(encoded string) (Image, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return Image{}, errors.New("empty image")
	}

	mimeType := ""
	payload := encoded
	if strings.HasPrefix(encoded, "data:") {
		header, rest, ok := strings.Cut(encoded, ",")
		if !ok {
			return Image{}, errors.New("malformed data URL")
		}
		meta := strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(meta, ";base64") {
			return Image{}, errors.New("data URL is not base64 encoded")
		}
		mimeType = strings.TrimSuffix(meta, ";base64")
		payload = rest
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("decode image: %w", err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return Image{}, fmt.Errorf("unsupported image type %q", mimeType)
	}
	return Image{MIMEType: mimeType, Data: data}, nil
}
