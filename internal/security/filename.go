// Package security holds input hygiene helpers for user-supplied names.
package security

import "strings"

// maxFilenameLen bounds names derived from user input.
const maxFilenameLen = 128

// SanitizeFilename turns an arbitrary identifier, such as a log directory
// name, into a safe file base name. Characters other than ASCII letters,
// digits, dot, underscore and dash become one underscore per run; leading and
// trailing dots and underscores are trimmed. An empty result becomes
// "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
