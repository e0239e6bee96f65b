package service

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

var dataURLPrefix = regexp.MustCompile(`^data:image/[a-zA-Z+.-]+;base64,`)

// DecodeImageData strips an optional data-URL prefix and decodes the
// base64 payload.
func DecodeImageData(imageData string) ([]byte, error) {
	encoded := dataURLPrefix.ReplaceAllString(imageData, "")
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	return decoded, nil
}
