package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return strings.TrimSpace(sanitizer.Sanitize(input))
}

// SanitizeText strips all markup, for single-line fields such as titles and tags.
func SanitizeText(input string) string {
	return strings.TrimSpace(stripper.Sanitize(input))
}

// SanitizeAll applies SanitizeText to every element.
func SanitizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, SanitizeText(s))
	}
	return out
}
