package httphandler

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	commentRenderer goldmark.Markdown
	htmlSanitizer   *bluemonday.Policy
)

func init() {
	// Hard wraps keep each directive line of an override comment on its own line.
	commentRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// RenderComment converts an override comment body (GitHub-flavored markdown)
// to sanitized HTML. Returns empty string for empty input.
func RenderComment(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := commentRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}
