package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// strict removes every tag and attribute.
	strict = bluemonday.StrictPolicy()

	// ugc keeps basic formatting (p, b, i, em, strong, a, lists, br).
	ugc = bluemonday.UGCPolicy()
)

// Text strips all HTML and returns plain text. Entities produced by the
// policy are decoded again since the result is served as JSON, not HTML.
func Text(input string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(input)))
}

// HTML keeps safe formatting tags and drops scripts, frames, handlers
// and style attributes.
func HTML(input string) string {
	return strings.TrimSpace(ugc.Sanitize(input))
}

// TextPtr sanitizes an optional field. Blank results collapse to nil.
func TextPtr(input *string) *string {
	if input == nil {
		return nil
	}
	out := Text(*input)
	if out == "" {
		return nil
	}
	return &out
}
