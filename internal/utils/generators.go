package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// referenceAlphabet leaves out 0/O and 1/I so a reference read over the phone
// or typed at a gate is unambiguous.
const (
	referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referenceLength   = 6
)

// GenerateReference produces a short human-readable booking reference such as
// "7GQ2XT". References are stored upper-case; lookup normalizes case.
func GenerateReference() string {
	code := make([]byte, referenceLength)
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// Fall back to a timestamp-derived character if the entropy
			// source fails; uniqueness is still enforced by the store.
			code[i] = referenceAlphabet[int(time.Now().UnixNano())%len(referenceAlphabet)]
			continue
		}
		code[i] = referenceAlphabet[n.Int64()]
	}
	return string(code)
}

// GenerateOTP returns a zero-padded numeric one-time code.
func GenerateOTP(digits int) string {
	limit := big.NewInt(1)
	for i := 0; i < digits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return fmt.Sprintf("%0*d", digits, time.Now().UnixNano()%limit.Int64())
	}
	return fmt.Sprintf("%0*d", digits, n.Int64())
}
