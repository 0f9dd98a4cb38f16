package order

import (
	"crypto/rand"
	"fmt"
	"time"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateOrderCode builds the human-readable, immutable order code,
// e.g. "SF-20260827-K4TZQR". Ambiguous characters are excluded.
func GenerateOrderCode(now time.Time) string {
	suffix := make([]byte, 6)
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; fall back
		// to a nanosecond-derived suffix rather than panic here.
		for i := range suffix {
			suffix[i] = codeAlphabet[(now.Nanosecond()>>uint(i*5))%len(codeAlphabet)]
		}
		return fmt.Sprintf("SF-%s-%s", now.Format("20060102"), suffix)
	}
	for i, b := range buf {
		suffix[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return fmt.Sprintf("SF-%s-%s", now.Format("20060102"), suffix)
}
