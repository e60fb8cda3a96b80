package token

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Generate(t *testing.T) {
	g := NewGenerator()

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		tok, err := g.Generate()
		require.NoError(t, err)
		assert.Len(t, tok, DefaultLength)
		for _, r := range tok {
			assert.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q", r)
		}
		_, dup := seen[tok]
		assert.False(t, dup)
		seen[tok] = struct{}{}
	}
}

func TestGenerator_MinimumLength(t *testing.T) {
	g := NewGenerator(WithLength(8))

	tok, err := g.Generate()
	require.NoError(t, err)
	assert.Len(t, tok, MinLength)
}

func TestGenerator_SkipsBiasedBytes(t *testing.T) {
	// 0xFF is above maxByte and must be discarded; 0x00 maps to 'A'.
	src := bytes.NewReader(append(bytes.Repeat([]byte{0xFF}, 40), bytes.Repeat([]byte{0x00}, 200)...))
	g := NewGenerator(WithRandReader(src))

	tok, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("A", DefaultLength), tok)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerator_RandError(t *testing.T) {
	g := NewGenerator(WithRandReader(failingReader{}))

	_, err := g.Generate()
	assert.ErrorContains(t, err, "entropy exhausted")
}
