// Package sanitize cleans free-text user input before it reaches a transcript
// or a prompt.
package sanitize

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputSize is 4KB.
const DefaultMaxInputSize = 4096

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
	ErrEmptyInput    = errors.New("input is empty")
)

// Sanitizer enforces a size limit, validates UTF-8 and strips control
// characters. The zero value uses DefaultMaxInputSize.
type Sanitizer struct {
	MaxSize int
}

// New returns a Sanitizer limited to maxSize bytes (<= 0 means default).
func New(maxSize int) Sanitizer {
	return Sanitizer{MaxSize: maxSize}
}

// Clean returns the sanitized, whitespace-trimmed input.
func (s Sanitizer) Clean(input string) (string, error) {
	limit := s.MaxSize
	if limit <= 0 {
		limit = DefaultMaxInputSize
	}
	// Oversized input is rejected rather than truncated.
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	out := strings.TrimSpace(stripControl(input))
	if out == "" {
		return "", ErrEmptyInput
	}
	return out, nil
}

// stripControl removes ESC, NUL, BEL and friends while keeping \n, \t and \r.
func stripControl(input string) string {
	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
