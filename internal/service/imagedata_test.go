package service

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestDecodeImageData(t *testing.T) {
	t.Parallel()

	payload := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}
	encoded := base64.StdEncoding.EncodeToString(payload)

	tests := []struct {
		name  string
		input string
	}{
		{"bare base64", encoded},
		{"png data url", "data:image/png;base64," + encoded},
		{"jpeg data url", "data:image/jpeg;base64," + encoded},
		{"svg data url", "data:image/svg+xml;base64," + encoded},
		{"trailing whitespace", encoded + "\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeImageData(tc.input)
			if err != nil {
				t.Fatalf("DecodeImageData error: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatalf("payload mismatch: got %v want %v", got, payload)
			}
		})
	}
}

func TestDecodeImageData_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := DecodeImageData("data:image/png;base64,!!!"); err == nil {
		t.Fatalf("expected error for invalid base64")
	}
}
