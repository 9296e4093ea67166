// Package token generates the single-use gate credentials issued at approval.
package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Alphabet is the fixed credential alphabet: uppercase letters and digits.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Length is the fixed credential length. 36^10 keyspace makes collisions
// negligible at campus volumes; the store still enforces uniqueness.
const Length = 10

// Generate returns a new opaque credential drawn from Alphabet using a
// cryptographically secure source. It has no error path short of the
// platform entropy source failing, which is not recoverable here.
func Generate() string {
	var b strings.Builder
	b.Grow(Length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := 0; i < Length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("token: entropy source unavailable: %v", err))
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String()
}

// RedemptionRef is the structured value the checkpoint client presents back
// verbatim. Opaque to the holder; only the redemption path interprets it.
type RedemptionRef struct {
	PassID string `json:"pass_id"`
	Token  string `json:"token"`
}

// QRPayload renders the reference as the string encoded into the pass QR.
func (r RedemptionRef) QRPayload() string {
	return r.PassID + "." + r.Token
}

// ParseQRPayload splits a scanned QR payload back into a RedemptionRef.
// The token segment is everything after the last dot, so UUID pass IDs
// (which contain no dots) round-trip cleanly.
func ParseQRPayload(payload string) (RedemptionRef, bool) {
	i := strings.LastIndexByte(payload, '.')
	if i <= 0 || i == len(payload)-1 {
		return RedemptionRef{}, false
	}
	return RedemptionRef{PassID: payload[:i], Token: payload[i+1:]}, true
}

// Valid reports whether s is structurally a credential: exact length, all
// symbols from Alphabet. It says nothing about whether the credential exists.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
