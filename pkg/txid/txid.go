// Package txid generates the short, shareable transaction IDs used as ledger keys.
package txid

import (
	"crypto/rand"
	"io"
	"strings"
)

const (
	// Prefix starts every transaction ID.
	Prefix = "TX-"
	// Length is the number of random characters after the prefix.
	Length = 5

	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Generator produces IDs of the form TX-XXXXX from a random source.
// It does not check the ledger for collisions.
type Generator struct {
	rand io.Reader
}

// New returns a Generator reading from crypto/rand.
func New() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewWithSource returns a Generator reading from r. Used for deterministic tests.
func NewWithSource(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate returns a fresh ID. If the random source fails it panics, since
// crypto/rand failing means the process cannot do anything useful.
func (g *Generator) Generate() string {
	var b strings.Builder
	b.Grow(len(Prefix) + Length)
	b.WriteString(Prefix)

	// 252 is the largest multiple of 36 below 256; rejecting bytes above it
	// keeps every character equally likely.
	buf := make([]byte, 1)
	for b.Len() < len(Prefix)+Length {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			panic("txid: reading random source: " + err.Error())
		}
		if buf[0] >= 252 {
			continue
		}
		b.WriteByte(alphabet[buf[0]%36])
	}
	return b.String()
}

// Valid reports whether id has the TX-XXXXX shape with uppercase base-36 characters.
func Valid(id string) bool {
	if len(id) != len(Prefix)+Length || !strings.HasPrefix(id, Prefix) {
		return false
	}
	for _, c := range id[len(Prefix):] {
		if !strings.ContainsRune(alphabet, c) {
			return false
		}
	}
	return true
}

// Normalize trims whitespace and upper-cases a user-supplied ID.
func Normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
