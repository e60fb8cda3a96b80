package token

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// DefaultLength gives ~190 bits from a 62-symbol alphabet.
	DefaultLength = 32
	// MinLength keeps entropy at or above 128 bits.
	MinLength = 22

	// largest multiple of len(alphabet) below 256, to avoid modulo bias
	maxByte = 256 - (256 % len(alphabet))
)

type Generator struct {
	length int
	rand   io.Reader
}

type Option func(*Generator)

func WithLength(n int) Option {
	return func(g *Generator) {
		if n > MinLength {
			g.length = n
		} else {
			g.length = MinLength
		}
	}
}

// WithRandReader replaces crypto/rand. Tests only.
func WithRandReader(r io.Reader) Option {
	return func(g *Generator) {
		g.rand = r
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{length: DefaultLength, rand: rand.Reader}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns an opaque alphanumeric token.
func (g *Generator) Generate() (string, error) {
	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length+g.length/4)
	for len(out) < g.length {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxByte {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == g.length {
				break
			}
		}
	}
	return string(out), nil
}
