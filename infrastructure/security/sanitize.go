// Package security carries the secrecy-in-errors discipline spec.md §4.8
// and §7 require: error paths must never let key bytes, padded blocks, or
// ladder intermediates leak to a caller through a returned error string.
//
// Adapted from the teacher's infrastructure/security/sanitize.go, which
// redacts sensitive substrings from strings destined for a log sink; here
// the same regexp-based masking is narrowed to the patterns that key
// material and PEM-encoded blobs actually take, and applied to error
// messages rather than HTTP logs.
package security

import "regexp"

type sensitivePattern struct {
	pattern *regexp.Regexp
	mask    string
}

var patterns = []sensitivePattern{
	{
		pattern: regexp.MustCompile(`-----BEGIN[ A-Z]*(PRIVATE|PUBLIC) KEY-----[\s\S]*?-----END[ A-Z]*(PRIVATE|PUBLIC) KEY-----`),
		mask:    "[REDACTED_PEM_BLOCK]",
	},
	{
		pattern: regexp.MustCompile(`\b[0-9a-fA-F]{32,}\b`),
		mask:    "[REDACTED_HEX]",
	},
}

// SanitizeString masks substrings that look like key material (PEM
// blocks, long hex runs) so they are safe to surface in an error message
// or, if a caller chooses to, a log line.
func SanitizeString(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, p := range patterns {
		result = p.pattern.ReplaceAllString(result, p.mask)
	}
	return result
}

// SanitizeError returns err's message with SanitizeString applied, or ""
// for a nil error.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error())
}
