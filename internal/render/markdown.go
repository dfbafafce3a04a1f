// Package render turns chat answers written in markdown into HTML.
package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// md has raw HTML rendering disabled (goldmark's default), so model output
// cannot inject markup.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Markdown renders src to HTML.
func Markdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
