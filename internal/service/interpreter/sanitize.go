package interpreter

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// sanitizeCap bounds the sanitized text kept for classification.
	sanitizeCap = 2000
	ellipsis    = "..."
	redacted    = "[redacted]"
)

// Patterns shaped like personal data are removed before any other processing.
var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`), // email
	regexp.MustCompile(`\+?[0-9][0-9 ()-]{6,}[0-9]`),                     // phone-shaped digit runs
}

// Sanitize normalizes raw provider text: redacts unsafe substrings, strips
// disallowed characters, collapses whitespace and truncates to a soft cap.
// Sanitize(Sanitize(x)) == Sanitize(x) — 截断与脱敏都必须保持幂等。
//
// Stripping can fuse digit runs into phone-shaped substrings the redaction
// patterns only see afterwards, so the pipeline runs to a fixed point. Each
// redaction removes digits, so the loop terminates.
func Sanitize(raw string) string {
	text := sanitizeOnce(raw)
	for prev := raw; text != prev; {
		prev = text
		text = sanitizeOnce(prev)
	}
	return text
}

func sanitizeOnce(raw string) string {
	text := raw
	for _, re := range unsafePatterns {
		text = re.ReplaceAllString(text, redacted)
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		case strings.ContainsRune(`.,!?;:'"$%()-+/[]`, r):
			b.WriteRune(r)
		}
	}

	text = strings.Join(strings.Fields(b.String()), " ")

	runes := []rune(text)
	if len(runes) > sanitizeCap {
		text = strings.TrimSpace(string(runes[:sanitizeCap-len(ellipsis)])) + ellipsis
	}
	return text
}

// cleanContent derives the bounded user-facing message from sanitized text.
func cleanContent(sanitized string, maxLen int) string {
	runes := []rune(sanitized)
	if len(runes) <= maxLen {
		return sanitized
	}
	return strings.TrimSpace(string(runes[:maxLen-len(ellipsis)])) + ellipsis
}
