// Package qr renders attendance tokens as QR code images.
package qr

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 300

// PNG encodes content as a QR code PNG with medium error correction.
func PNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}

// Base64PNG returns the PNG as standard base64, ready for a JSON field.
func Base64PNG(content string, size int) (string, error) {
	png, err := PNG(content, size)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// WriteFile writes the QR PNG to path.
func WriteFile(content string, size int, path string) error {
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.WriteFile(content, qrcode.Medium, size, path)
}
