// Package security holds the request-admission heuristics: injection/XSS
// signature matching and sanitization of user-supplied text before it is
// persisted or embedded into email HTML.
package security

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// Known injection and XSS signatures. Free-text fields matching any of these
// are treated as an attack: logged, answered success-shaped, never persisted
// as-is.
var maliciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i) union `),
	regexp.MustCompile(`(?i) select `),
	regexp.MustCompile(`(?i) drop `),
	regexp.MustCompile(`(?i) or 1=1`),
	regexp.MustCompile(`--`),
}

// IsMalicious reports whether the input matches a known attack signature.
func IsMalicious(input string) bool {
	if input == "" {
		return false
	}
	for _, p := range maliciousPatterns {
		if p.MatchString(input) {
			return true
		}
	}
	return false
}

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup from user-supplied text. Applied before
// audit-log writes and before text is interpolated into email templates.
func SanitizeText(s string) string {
	return strictPolicy.Sanitize(s)
}
