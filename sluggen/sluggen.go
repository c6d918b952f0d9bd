// Package sluggen generates the random handles used in click-tracking URLs.
package sluggen

import (
	"crypto/rand"
	"errors"
)

const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Bytes at or above this value are discarded so every symbol is equally likely.
	maxUnbiased = 256 - 256%len(alphabet)
)

var ErrInvalidLength = errors.New("length must be positive")

// Generator generates slugs. Implementations must be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

// Func adapts a plain function to Generator.
type Func func(length int) (string, error)

func (f Func) Generate(length int) (string, error) { return f(length) }

type base62 struct{}

// NewBase62 returns a Generator of uniformly distributed base62 slugs.
func NewBase62() Generator { return base62{} }

func (base62) Generate(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// Valid reports whether s could have been produced by NewBase62.
func Valid(s string) bool {
	if s == "" {
		return false
	}
	for i := range len(s) {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		default:
			return false
		}
	}
	return true
}
