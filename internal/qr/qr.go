// Package qr renders verification links as PNG data URLs.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Size is the edge length in pixels of generated codes.
const Size = 256

const dataURLPrefix = "data:image/png;base64,"

// DataURL encodes content as a QR code and returns it as a PNG data URL.
func DataURL(content string) (string, error) {
	if content == "" {
		return "", fmt.Errorf("qr: empty content")
	}
	png, err := qrcode.Encode(content, qrcode.Medium, Size)
	if err != nil {
		return "", fmt.Errorf("qr: encode: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}
