package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// canonicalUUIDLen is the length of the hyphenated 8-4-4-4-12 form.
const canonicalUUIDLen = 36

// NormalizeMBID validates a MusicBrainz identifier and returns it lowercased.
// Only the canonical hyphenated form is accepted; braces, urn prefixes and
// the 32-digit form are rejected even though uuid.Parse understands them.
func NormalizeMBID(s string) (string, error) {
	if len(s) != canonicalUUIDLen {
		return "", fmt.Errorf("'%s' is not a valid UUID", s)
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("'%s' is not a valid UUID", s)
	}
	return strings.ToLower(s), nil
}

