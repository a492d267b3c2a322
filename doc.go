// Package blogmd publishes a directory of markdown articles as a static
// website: clean previous output, render the site, validate the rendered
// HTML, then serve it locally for preview.
//
// Regenerate the syntax highlighting stylesheet using:
//
//	go generate
package blogmd

//go:generate sh -c "go run ./tools/generate-chroma-css > static/css/chroma-github.css"
