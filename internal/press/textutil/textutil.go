// Package textutil holds the small text transforms shared by every
// platform: slug generation and minimal HTML block wrapping.
package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultSlugLen caps generated slugs.
const DefaultSlugLen = 80

var (
	slugStrip    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugCollapse = regexp.MustCompile(`[\s-]+`)

	blockMarkers = []string{"<p>", "<h", "<ul", "<ol"}
)

// Slug normalizes text into a lowercase ASCII slug: NFKC fold, keep
// letters, digits, and hyphens, collapse separator runs. An empty
// result falls back to "post".
func Slug(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSlugLen
	}
	s := strings.ToLower(norm.NFKC.String(text))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxLen {
		s = strings.Trim(s[:maxLen], "-")
	}
	if s == "" {
		return "post"
	}
	return s
}

// EnsureBlocks wraps bare text lines in <p> elements when the body
// carries no block-level markup of its own. Bodies that already contain
// paragraph, heading, or list tags pass through trimmed but unchanged.
func EnsureBlocks(html string) string {
	s := strings.TrimSpace(html)
	if s == "" {
		return ""
	}
	lowered := strings.ToLower(s)
	for _, marker := range blockMarkers {
		if strings.Contains(lowered, marker) {
			return s
		}
	}
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, "<p>"+line+"</p>")
	}
	return strings.Join(lines, "\n")
}
