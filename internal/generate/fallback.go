package generate

import (
	"html"
	"strings"
)

const fallbackTemplate = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{TITLE}}</title>
<style>
  body{font-family:system-ui;display:flex;align-items:center;justify-content:center;height:100vh}
  .card{padding:20px;border-radius:12px;box-shadow:0 6px 20px rgba(0,0,0,0.08)}
</style>
</head>
<body>
  <div class="card">
    <h1>{{TITLE}}</h1>
    <p>{{PROMPT}}</p>
  </div>
</body>
</html>`

// FallbackDocument builds the deterministic local document used when every
// provider is unavailable. A user action never dead-ends on a network
// failure; it degrades to this placeholder.
func FallbackDocument(title, prompt string) string {
	if title == "" {
		title = "My App"
	}
	doc := strings.ReplaceAll(fallbackTemplate, "{{TITLE}}", html.EscapeString(title))
	return strings.ReplaceAll(doc, "{{PROMPT}}", html.EscapeString(prompt))
}
