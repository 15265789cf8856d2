// Package worker holds the four job workers the runner drives: index
// building, similarity tagging, name translation and rename
// application. Each worker implements runner.Worker and stamps exactly
// one version column.
package worker

import (
	"strings"
	"unicode"

	"samplevault/internal/errors"
)

func errInvalidParams(message string) error {
	return errors.New(errors.ErrCodeInvalidParams, message, nil)
}

// maxNameRunes caps sanitized names. Long model output would otherwise
// overflow path limits on some filesystems once the directory prefix is
// added back.
const maxNameRunes = 120

// SanitizeName makes a translated name safe to use as a file stem. Path
// separators, characters Windows rejects and control characters are
// dropped, whitespace runs collapse to single spaces, trailing dots go
// away, and the result is capped at maxNameRunes runes. Returns "" when
// nothing usable remains.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune(' ')
		case strings.ContainsRune(`<>:"|?*`, r):
			// dropped
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	cleaned = strings.TrimRight(cleaned, ". ")
	runes := []rune(cleaned)
	if len(runes) > maxNameRunes {
		cleaned = strings.TrimRight(string(runes[:maxNameRunes]), ". ")
	}
	return cleaned
}
