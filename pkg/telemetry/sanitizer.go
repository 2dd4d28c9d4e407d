package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// PIILevel defines how much personal data may reach logs and traces
type PIILevel string

const (
	// PIILevelNone redacts personal data entirely
	PIILevelNone PIILevel = "none"
	// PIILevelHashed replaces personal data with a salted digest
	PIILevelHashed PIILevel = "hashed"
	// PIILevelFull performs no sanitization
	PIILevelFull PIILevel = "full"
)

// ParsePIILevel maps a config value to a PIILevel, defaulting to hashed.
func ParsePIILevel(raw string) PIILevel {
	switch PIILevel(strings.ToLower(strings.TrimSpace(raw))) {
	case PIILevelNone:
		return PIILevelNone
	case PIILevelFull:
		return PIILevelFull
	default:
		return PIILevelHashed
	}
}

// Sanitizer redacts emails and other contact data before they are logged
type Sanitizer struct {
	level PIILevel
	salt  string

	emailPattern *regexp.Regexp
	phonePattern *regexp.Regexp
}

// NewSanitizer creates a sanitizer. salt keeps digests stable within one deployment.
func NewSanitizer(level PIILevel, salt string) *Sanitizer {
	return &Sanitizer{
		level:        level,
		salt:         salt,
		emailPattern: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		phonePattern: regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
	}
}

// Level returns the configured level
func (s *Sanitizer) Level() PIILevel {
	return s.level
}

// Email sanitizes a single email address field
func (s *Sanitizer) Email(email string) string {
	if email == "" {
		return ""
	}
	switch s.level {
	case PIILevelNone:
		return "[REDACTED]"
	case PIILevelFull:
		return email
	default:
		return fmt.Sprintf("[EMAIL:%s]", s.hash(strings.ToLower(email)))
	}
}

// Text sanitizes free text such as message content
func (s *Sanitizer) Text(input string) string {
	switch s.level {
	case PIILevelNone:
		return "[REDACTED]"
	case PIILevelFull:
		return input
	default:
		result := s.emailPattern.ReplaceAllStringFunc(input, func(match string) string {
			return fmt.Sprintf("[EMAIL:%s]", s.hash(strings.ToLower(match)))
		})
		return s.phonePattern.ReplaceAllStringFunc(result, func(match string) string {
			return fmt.Sprintf("[PHONE:%s]", s.hash(match))
		})
	}
}

// hash creates a SHA-256 hash with the salt and keeps the first 8 hex chars
func (s *Sanitizer) hash(data string) string {
	sum := sha256.Sum256([]byte(data + s.salt))
	return hex.EncodeToString(sum[:])[:8]
}
