package txid

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var idPattern = regexp.MustCompile(`^TX-[A-Z0-9]{5}$`)

func TestGenerate_Shape(t *testing.T) {
	g := New()
	for i := 0; i < 1000; i++ {
		id := g.Generate()
		assert.Regexp(t, idPattern, id)
		assert.True(t, Valid(id), "generated id %q should be valid", id)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	// 0 -> '0', 10 -> 'A', 35 -> 'Z', 36 -> '0', 71 -> 'Z'.
	g := NewWithSource(bytes.NewReader([]byte{0, 10, 35, 36, 71}))
	assert.Equal(t, "TX-0AZ0Z", g.Generate())
}

func TestGenerate_RejectsBiasedBytes(t *testing.T) {
	g := NewWithSource(bytes.NewReader([]byte{255, 252, 1, 2, 3, 4, 5}))
	assert.Equal(t, "TX-12345", g.Generate())
}

func TestGenerate_PanicsOnExhaustedSource(t *testing.T) {
	g := NewWithSource(bytes.NewReader([]byte{1, 2}))
	assert.Panics(t, func() { g.Generate() })
}

func TestValid(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"TX-1A2B3", true},
		{"TX-ZZZZZ", true},
		{"TX-1a2b3", false},
		{"TX-1A2B", false},
		{"TX-1A2B34", false},
		{"TY-1A2B3", false},
		{"TX-1A-B3", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			assert.Equal(t, tc.want, Valid(tc.id))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "TX-1A2B3", Normalize("  tx-1a2b3 "))
	assert.Equal(t, "TX-REAL", Normalize("TX-REAL"))
}
