package utils

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet avoids the ambiguous O/0 and I/1 glyphs so codes can be
// read aloud or typed from another phone's screen.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode returns a short alphanumeric invite code.
func GenerateCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
