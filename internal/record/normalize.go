package record

import (
	"regexp"
	"strings"
)

// EmptyPlaceholder substitutes for content that normalizes to nothing when
// records are rendered into a numbered text block.
const EmptyPlaceholder = "（空）"

// Inline markup stripped from raw content before external consumption.
var (
	colorTokenRegex = regexp.MustCompile(`#![^:]+:([^#]+)#`)
	codeSpanRegex   = regexp.MustCompile("`([^`]+)`")
	boldRegex       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	bracketRegex    = regexp.MustCompile(`\[([^\]]+)\]`)
	imageURLRegex   = regexp.MustCompile(`(?i)https?://[^\s]+\.(?:jpg|jpeg|png|gif|webp)(?:\?[^\s]*)?`)
	bucketURLRegex  = regexp.MustCompile(`(?i)https://pub-[a-z0-9]+\.r2\.dev/[^\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// NormalizeContent strips inline markup and embedded image URLs from raw
// record content, collapsing whitespace. The result is what external
// consumers (the numbered todo block, exports) see.
func NormalizeContent(content string) string {
	s := colorTokenRegex.ReplaceAllString(content, "$1")
	s = codeSpanRegex.ReplaceAllString(s, "$1")
	s = boldRegex.ReplaceAllString(s, "$1")
	s = bracketRegex.ReplaceAllString(s, "$1")
	s = imageURLRegex.ReplaceAllString(s, "")
	s = bucketURLRegex.ReplaceAllString(s, "")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
