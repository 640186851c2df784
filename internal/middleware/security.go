package middleware

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxPromptLength bounds the free-text argument forwarded upstream
const MaxPromptLength = 4096

// SecurityMiddleware provides input checks
type SecurityMiddleware struct {
	maxLength int
}

// NewSecurityMiddleware creates security middleware
func NewSecurityMiddleware() *SecurityMiddleware {
	return &SecurityMiddleware{maxLength: MaxPromptLength}
}

// ValidateInput rejects prompts that are empty or too long
func (s *SecurityMiddleware) ValidateInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty input")
	}
	if n := utf8.RuneCountInString(text); n > s.maxLength {
		return fmt.Errorf("input too long: %d characters", n)
	}
	return nil
}

// Truncate shortens text to at most limit characters, marking the cut
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-1]) + "…"
}
