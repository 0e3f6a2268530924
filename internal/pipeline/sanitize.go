package pipeline

import (
	"regexp"
	"strings"
)

// Layout directives leak from structured drafts into image prompts and end up
// rendered as literal text on the image. These patterns strip them before any
// prompt reaches the image model.
var (
	labelPrefixRe = regexp.MustCompile(`(?i)\b(headline|body|context|visual|caption)\s*:\s*`)
	fontNameRe    = regexp.MustCompile(`(?i)\b(inter|arial|helvetica)\b`)
	sizeTokenRe   = regexp.MustCompile(`(?i)\b\d+\s*(pt|px)\b`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// SanitizePrompt removes layout directive tokens (field-label prefixes, font
// names, sizing tokens) and collapses whitespace. Applying it twice yields
// the same output as applying it once.
func SanitizePrompt(s string) string {
	s = labelPrefixRe.ReplaceAllString(s, "")
	s = fontNameRe.ReplaceAllString(s, "")
	s = sizeTokenRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
