// Package textnorm provides the canonical text cleaning used for content
// fingerprints and answer comparison. Two pieces of text that differ only in
// case, surrounding whitespace or line endings normalize identically.
package textnorm

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"unicode"
)

// Clean trims whitespace, lowercases, and normalizes line endings.
func Clean(s string) string {
	s = strings.ToLower(s)
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return s
}

// Fingerprint cleans each part and returns the SHA-256 hash of the joined
// result as a hex string.
//
// Parts are joined with a newline to ensure separation between fields,
// preventing accidental joining of words. e.g. "question" and "answer"
// becoming "questionanswer".
func Fingerprint(parts ...string) string {
	cleaned := make([]string, len(parts))
	for i, p := range parts {
		cleaned[i] = Clean(p)
	}
	hashBytes := sha256.Sum256([]byte(strings.Join(cleaned, "\n")))
	return fmt.Sprintf("%x", hashBytes)
}

// Tokens splits cleaned text into comparison tokens. Punctuation is dropped
// so "it's a cache." and "its a cache" tokenize identically.
func Tokens(s string) []string {
	s = Clean(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'':
			// Drop apostrophes entirely so contractions keep one token.
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}
