// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import "github.com/microcosm-cc/bluemonday"

var (
	// ugc allows the common formatting tags users paste into messages
	// (bold, italics, links) while stripping scripts and event handlers.
	ugc = bluemonday.UGCPolicy()

	// strict strips all markup. Used for group names, descriptions, and
	// display names, which are rendered as plain text everywhere.
	strict = bluemonday.StrictPolicy()
)

// Sanitize cleans user-supplied HTML, keeping safe formatting.
func Sanitize(s string) string {
	return ugc.Sanitize(s)
}

// PlainText strips every tag from user-supplied input.
func PlainText(s string) string {
	return strict.Sanitize(s)
}
