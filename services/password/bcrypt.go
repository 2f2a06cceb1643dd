// Package password hashes and verifies local account passwords.
package password

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinLength is counted in characters, not bytes
	MinLength = 8
	// Symbols lists the characters that satisfy the symbol rule
	Symbols = "!#$%?"
	// maxBytes is bcrypt's input limit; longer inputs would be truncated
	maxBytes = 72
)

// Hasher is a bcrypt password hasher. Safe for concurrent use.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, or bcrypt.DefaultCost when cost is out of range
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted digest. Two calls with the same input differ.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest
func (h *Hasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// IsStrong applies the signup password policy: at least MinLength
// characters with a digit, a letter and one of Symbols.
func (h *Hasher) IsStrong(plaintext string) bool {
	return IsStrong(plaintext)
}

// IsStrong is the policy check used by Hasher.IsStrong
func IsStrong(plaintext string) bool {
	if utf8.RuneCountInString(plaintext) < MinLength || len(plaintext) > maxBytes {
		return false
	}

	var digit, letter, symbol bool
	for _, r := range plaintext {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case unicode.IsLetter(r):
			letter = true
		case strings.ContainsRune(Symbols, r):
			symbol = true
		}
	}
	return digit && letter && symbol
}
