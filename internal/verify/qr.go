package verify

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// RenderQR renders the canonical verification URL for a booking as a PNG.
// The payload is the plain URL; anything a generic phone camera can read is
// scannable at the gate.
func (c *Codec) RenderQR(bookingID string) ([]byte, error) {
	png, err := qrcode.Encode(c.Encode(bookingID), qrcode.Medium, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR: %w", err)
	}
	return png, nil
}
