package recovery

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// Alphabet is the symbol set codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	// DefaultLength gives about 62 bits of entropy over Alphabet.
	DefaultLength = 12
	// MinLength is the shortest code NewGenerator accepts.
	MinLength = 12
	maxLength = 64
)

// Hasher is the one-way function codes are stored under.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encodedHash string) bool
}

// Generator creates and verifies recovery codes.
type Generator struct {
	hasher Hasher
	length int
	random io.Reader
}

// NewGenerator returns a Generator for codes of the given length.
// A zero length selects DefaultLength.
func NewGenerator(hasher Hasher, length int) (*Generator, error) {
	if hasher == nil {
		return nil, errors.New("recovery: hasher is required")
	}
	if length == 0 {
		length = DefaultLength
	}
	if length < MinLength || length > maxLength {
		return nil, fmt.Errorf("recovery: code length must be between %d and %d", MinLength, maxLength)
	}
	return &Generator{hasher: hasher, length: length, random: rand.Reader}, nil
}

// Length returns the number of characters in generated codes.
func (g *Generator) Length() int {
	return g.length
}

// Generate returns a fresh plaintext code and its hash.
func (g *Generator) Generate() (code string, hash string, err error) {
	code, err = randomString(g.random, g.length)
	if err != nil {
		return "", "", err
	}
	hash, err = g.hasher.Hash(code)
	if err != nil {
		return "", "", fmt.Errorf("recovery: hash code: %w", err)
	}
	return code, hash, nil
}

// Verify reports whether code matches encodedHash. Input is normalized first, so
// lower-case entry and surrounding whitespace are accepted. Codes issued under an
// earlier length keep verifying.
func (g *Generator) Verify(code, encodedHash string) bool {
	code = Normalize(code)
	if len(code) < MinLength || len(code) > maxLength || encodedHash == "" {
		return false
	}
	return g.hasher.Verify(code, encodedHash)
}

// Normalize trims whitespace and upper-cases a user supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func randomString(r io.Reader, n int) (string, error) {
	var b strings.Builder
	b.Grow(n)

	limit := big.NewInt(int64(len(Alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(r, limit)
		if err != nil {
			return "", fmt.Errorf("recovery: random index: %w", err)
		}
		b.WriteByte(Alphabet[idx.Int64()])
	}
	return b.String(), nil
}
