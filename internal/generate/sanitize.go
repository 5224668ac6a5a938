package generate

import (
	"html"
	"regexp"
	"strings"
)

var doctypeRe = regexp.MustCompile(`(?i)<!doctype\s+html`)

// CleanResponse strips markdown code fences and any chatter before the
// first doctype. Models routinely wrap output in ```html fences or prefix
// it with "Sure! Here's your app:".
func CleanResponse(raw string) string {
	code := strings.TrimSpace(raw)

	code = strings.TrimPrefix(code, "```html")
	code = strings.TrimPrefix(code, "```")
	code = strings.TrimSuffix(code, "```")
	code = strings.TrimSpace(code)

	if loc := doctypeRe.FindStringIndex(code); loc != nil && loc[0] > 0 {
		code = code[loc[0]:]
	}
	return strings.TrimSpace(code)
}

// EnsureDocument guarantees the result is an HTML document. Content with
// no doctype anywhere is wrapped as escaped preformatted text instead of
// being discarded: generation never silently loses output. The second
// return reports whether wrapping happened.
func EnsureDocument(code string) (string, bool) {
	if doctypeRe.MatchString(code) {
		return code, false
	}
	return "<!doctype html><html><body><pre>" + html.EscapeString(code) + "</pre></body></html>", true
}
