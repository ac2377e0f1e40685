package utils

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidImagePayload = errors.New("invalid base64 image payload")

// DecodeBase64Image decodes an embedded image of the form
// "data:image/png;base64,<payload>" into raw bytes and its content type.
// A bare base64 string without the data URI prefix is treated as PNG.
func DecodeBase64Image(data string) ([]byte, string, error) {
	contentType := "image/png"
	payload := data

	if strings.HasPrefix(data, "data:") {
		parts := strings.SplitN(data, ",", 2)
		if len(parts) != 2 {
			return nil, "", ErrInvalidImagePayload
		}
		meta := strings.TrimPrefix(parts[0], "data:")
		meta = strings.TrimSuffix(meta, ";base64")
		if meta != "" {
			contentType = meta
		}
		payload = parts[1]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", ErrInvalidImagePayload
	}
	if len(raw) == 0 {
		return nil, "", ErrInvalidImagePayload
	}
	return raw, contentType, nil
}

// ImageExtension maps a decoded image content type to a file extension.
func ImageExtension(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
