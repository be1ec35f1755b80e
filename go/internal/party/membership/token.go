package membership

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const tokenBytes = 18

// NewToken mints an unguessable bearer token for a seat
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate player token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
