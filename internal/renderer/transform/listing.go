// Package transform provides custom rendering transformations for markdown elements.
package transform

import (
	"bytes"
	"html"

	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/util"
)

const filenameAttribute = "filename"

// ListingWrapper returns a wrapper renderer that decorates code listings.
// A fence carrying a {filename="point.cpp"} attribute renders inside a
// figure with the file name as caption, so readers can tell which source
// file a listing belongs to. Blocks the highlighter cannot handle fall back
// to a plain pre/code pair.
func ListingWrapper() highlighting.WrapperRenderer {
	return func(w util.BufWriter, ctx highlighting.CodeBlockContext, entering bool) {
		name := listingFilename(ctx)

		if ctx.Highlighted() {
			if name == "" {
				return
			}
			if entering {
				_, _ = w.WriteString(`<figure class="listing"><figcaption class="listing-filename">`)
				_, _ = w.WriteString(html.EscapeString(name))
				_, _ = w.WriteString("</figcaption>")
			} else {
				_, _ = w.WriteString("</figure>\n")
			}
			return
		}

		if entering {
			if name != "" {
				_, _ = w.WriteString(`<figure class="listing"><figcaption class="listing-filename">`)
				_, _ = w.WriteString(html.EscapeString(name))
				_, _ = w.WriteString("</figcaption>")
			}
			_, _ = w.WriteString("<pre><code")
			if lang, ok := ctx.Language(); ok && len(bytes.TrimSpace(lang)) > 0 {
				_, _ = w.WriteString(` class="language-`)
				_, _ = w.Write(util.EscapeHTML(lang))
				_, _ = w.WriteString(`"`)
			}
			_, _ = w.WriteString(">")
			return
		}
		_, _ = w.WriteString("</code></pre>\n")
		if name != "" {
			_, _ = w.WriteString("</figure>\n")
		}
	}
}

func listingFilename(ctx highlighting.CodeBlockContext) string {
	attrs := ctx.Attributes()
	if attrs == nil {
		return ""
	}
	value, ok := attrs.GetString(filenameAttribute)
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}
