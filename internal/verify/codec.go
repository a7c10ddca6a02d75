package verify

import (
	"errors"
	"strings"
)

// ErrUnrecognizedPayload marks a scanned string that matches none of the
// known verification formats. Callers fall back to treating the raw payload
// as a manually typed booking reference; decoding itself never fails hard.
var ErrUnrecognizedPayload = errors.New("unrecognized verification payload")

// Legacy colon-delimited payload prefixes, still honored so tickets issued by
// older builds keep scanning.
const (
	legacyVerifyPrefix  = "TICKIFY_VERIFY:"
	legacyBookingPrefix = "BOOKING:"
)

const verifyPathMarker = "/verify/"

// Codec produces the payload embedded in a ticket QR code.
type Codec struct {
	Origin string
}

func NewCodec(origin string) *Codec {
	return &Codec{Origin: strings.TrimRight(origin, "/")}
}

// Encode returns the canonical verification URL for a booking.
func (c *Codec) Encode(bookingID string) string {
	return c.Origin + verifyPathMarker + bookingID
}

// Decode extracts a candidate booking id from a scanned or typed payload.
// Formats are tried in order: the canonical verification URL, the two legacy
// colon-delimited forms, then passthrough. Passthrough returns the trimmed
// payload together with ErrUnrecognizedPayload so the caller can resolve it
// as a manual reference instead.
func Decode(payload string) (string, error) {
	trimmed := strings.TrimSpace(payload)

	if idx := strings.Index(trimmed, verifyPathMarker); idx >= 0 {
		id := trimmed[idx+len(verifyPathMarker):]
		if end := strings.IndexAny(id, "/?#"); end >= 0 {
			id = id[:end]
		}
		if id != "" {
			return id, nil
		}
		return trimmed, ErrUnrecognizedPayload
	}

	if id, ok := strings.CutPrefix(trimmed, legacyVerifyPrefix); ok && id != "" {
		return id, nil
	}
	if id, ok := strings.CutPrefix(trimmed, legacyBookingPrefix); ok && id != "" {
		return id, nil
	}

	return trimmed, ErrUnrecognizedPayload
}
