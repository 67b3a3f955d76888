package upi

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// RenderQR encodes a deep link as a PNG QR code, for desktop customers who
// cannot follow a upi:// URI directly.
func RenderQR(link string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR: %w", err)
	}
	return png, nil
}
