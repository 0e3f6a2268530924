package pipeline

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var articleMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// RenderArticleHTML converts drafted markdown into the HTML stored in the
// job result.
func RenderArticleHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := articleMarkdown.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render article: %w", err)
	}
	return buf.String(), nil
}
