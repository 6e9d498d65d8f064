// Package code generates and normalizes ticket redemption codes.
//
// A code is 15 random bytes (120 bits) in Crockford base32: 24 symbols shown
// as six groups of four, e.g. 7K3Q-M9XD-0TAV-R2PH-W8CN-5FJE. Normalize maps
// what a door operator might type back to the stored form.
package code

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"io"
	"strings"
)

const (
	alphabet  = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	byteLen   = 15
	Length    = 24
	groupSize = 4
)

var (
	encoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

	ErrInvalidCode = errors.New("invalid_code")
)

// Generator produces redemption codes from a random source.
type Generator struct {
	rand io.Reader
}

func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewGeneratorFrom is used by tests that need deterministic codes.
func NewGeneratorFrom(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// New returns a canonical code, without separators.
func (g *Generator) New() (string, error) {
	buf := make([]byte, byteLen)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", err
	}
	return encoding.EncodeToString(buf), nil
}

// Normalize folds user input to canonical form and rejects anything that
// cannot be a code.
func Normalize(input string) (string, error) {
	var b strings.Builder
	b.Grow(Length)
	for _, r := range strings.ToUpper(input) {
		switch {
		case r == '-' || r == ' ' || r == '\t':
			continue
		case r == 'O':
			r = '0'
		case r == 'I' || r == 'L':
			r = '1'
		}
		if !strings.ContainsRune(alphabet, r) {
			return "", ErrInvalidCode
		}
		b.WriteRune(r)
	}
	if b.Len() != Length {
		return "", ErrInvalidCode
	}
	return b.String(), nil
}

// Format groups a canonical code for display.
func Format(code string) string {
	var b strings.Builder
	for i, r := range code {
		if i > 0 && i%groupSize == 0 {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String()
}
