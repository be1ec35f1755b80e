package session

import (
	"crypto/rand"
	"fmt"
)

// joinCodeAlphabet drops I, O, 0 and 1. Its 32 symbols map evenly onto 5 bits.
const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	joinCodeLength   = 6
	joinCodeAttempts = 6
)

func newJoinCode() (string, error) {
	buf := make([]byte, joinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate join code: %w", err)
	}
	for i, b := range buf {
		buf[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(buf), nil
}
