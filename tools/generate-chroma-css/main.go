// Package main generates the Chroma stylesheet embedded in static/css.
//
// Usage:
//
//	go run ./tools/generate-chroma-css > static/css/chroma-github.css
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

func main() {
	style := styles.Get("github")
	if style == nil {
		fmt.Fprintf(os.Stderr, "Style 'github' not found\n")
		os.Exit(1)
	}

	formatter := html.New(
		html.WithClasses(true),
		html.WithLineNumbers(true),
		html.ClassPrefix(""),
	)

	if err := formatter.WriteCSS(os.Stdout, style); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating CSS: %v\n", err)
		os.Exit(1)
	}
}
