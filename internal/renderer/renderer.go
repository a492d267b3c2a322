// Package renderer converts markdown article bodies to HTML with syntax highlighting.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	goldmarkmeta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmrenderer "github.com/yuin/goldmark/renderer"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"go.abhg.dev/goldmark/anchor"

	d2renderer "github.com/euforicio/blogmd/internal/renderer/d2"
	"github.com/euforicio/blogmd/internal/renderer/transform"
)

// Document represents a rendered markdown body.
type Document struct {
	HTML     string
	Modified time.Time
}

// RenderOptions tune a single render call.
type RenderOptions struct {
	// LineNumbers controls whether code listings carry line numbers.
	LineNumbers bool
}

type cacheKey struct {
	path        string
	lineNumbers bool
}

type cacheEntry struct {
	modTime time.Time
	doc     Document
}

// Service renders markdown into HTML. Two goldmark instances are kept, one
// per line-numbering mode, because chroma formatting options are fixed at
// construction time. Rendered documents are cached by path, modification
// time, and mode.
type Service struct {
	numbered goldmark.Markdown
	plain    goldmark.Markdown
	logger   *slog.Logger
	cache    sync.Map // map[cacheKey]cacheEntry
}

// Options configure the renderer service.
type Options struct {
	// DisableDiagrams skips the embedded D2 compiler. Diagram fences then
	// pass through as plain code listings.
	DisableDiagrams bool
}

// NewService constructs a markdown renderer with GitHub-flavored markdown
// extensions, chroma syntax highlighting, heading anchors, article link
// rewriting, and build-time D2 diagram compilation.
func NewService(logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "renderer")

	var diagrams *d2renderer.Renderer
	if !opts.DisableDiagrams {
		var err error
		diagrams, err = d2renderer.New(logger, nil)
		if err != nil {
			logger.Warn("d2 renderer unavailable, diagram fences render as code", slog.Any("err", err))
		}
	}

	return &Service{
		numbered: newMarkdown(diagrams, logger, true),
		plain:    newMarkdown(diagrams, logger, false),
		logger:   logger,
	}
}

func newMarkdown(diagrams *d2renderer.Renderer, logger *slog.Logger, lineNumbers bool) goldmark.Markdown {
	highlight := highlighting.NewHighlighting(
		highlighting.WithStyle("github"),
		highlighting.WithFormatOptions(
			chromahtml.WithLineNumbers(lineNumbers),
			chromahtml.WithClasses(true),
		),
		highlighting.WithWrapperRenderer(transform.ListingWrapper()),
	)

	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			goldmarkmeta.Meta,
			highlight,
			&anchor.Extender{
				Position: anchor.After,
			},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithAttribute(),
			parser.WithASTTransformers(
				util.Prioritized(&linkTransformer{}, 100),
				util.Prioritized(transform.NewDiagramTransformer(diagrams, logger), 200),
			),
		),
		goldmark.WithRendererOptions(
			gmrenderer.WithNodeRenderers(
				util.Prioritized(transform.NewDiagramBlockRenderer(), 100),
			),
			// Articles are trusted authored input; raw HTML passes through.
			htmlrenderer.WithUnsafe(),
			htmlrenderer.WithXHTML(),
		),
	)
}

// Render converts markdown content to HTML, caching results by path,
// modification time, and rendering mode. Content may carry a leading YAML
// front-matter block, which is stripped from the output.
func (s *Service) Render(_ context.Context, path string, modTime time.Time, content []byte, opts RenderOptions) (Document, error) {
	key := cacheKey{path: path, lineNumbers: opts.LineNumbers}

	if entry, ok := s.cache.Load(key); ok {
		if cached, ok := entry.(cacheEntry); ok {
			if !cached.modTime.IsZero() && modTime.Equal(cached.modTime) {
				return cached.doc, nil
			}
		}
	}

	md := s.plain
	if opts.LineNumbers {
		md = s.numbered
	}

	parserCtx := parser.NewContext()
	buf := bytes.NewBuffer(nil)

	if err := md.Convert(content, buf, parser.WithContext(parserCtx)); err != nil {
		return Document{}, fmt.Errorf("render markdown: %w", err)
	}

	doc := Document{
		HTML:     buf.String(),
		Modified: modTime,
	}

	s.cache.Store(key, cacheEntry{modTime: modTime, doc: doc})
	return doc, nil
}

// Invalidate removes cached entries for the given path in both modes.
func (s *Service) Invalidate(path string) {
	s.cache.Delete(cacheKey{path: path, lineNumbers: true})
	s.cache.Delete(cacheKey{path: path, lineNumbers: false})
}

// linkTransformer rewrites markdown-source links between articles into links
// between their rendered artifacts: "2019-04-02-copy-elision.md" becomes
// "copy-elision.html", fragments preserved. External URLs, absolute paths,
// and non-markdown targets pass through untouched.
type linkTransformer struct{}

func (t *linkTransformer) Transform(node *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if link, ok := n.(*ast.Link); ok {
			if rewritten, ok := rewriteArticleLink(string(link.Destination)); ok {
				link.Destination = []byte(rewritten)
			}
		}
		return ast.WalkContinue, nil
	})
}

func rewriteArticleLink(dest string) (string, bool) {
	if dest == "" || isExternalLink(dest) || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "/") {
		return "", false
	}

	target, fragment, _ := strings.Cut(dest, "#")
	lower := strings.ToLower(target)
	if !strings.HasSuffix(lower, ".md") && !strings.HasSuffix(lower, ".markdown") {
		return "", false
	}

	base := target
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}

	out := articleSlug(base) + ".html"
	if fragment != "" {
		out += "#" + fragment
	}
	return out, true
}

var datedArticle = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-(.+)$`)

// articleSlug strips the extension and any date prefix from an article file name.
func articleSlug(base string) string {
	if idx := strings.LastIndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	if m := datedArticle.FindStringSubmatch(base); m != nil {
		return m[1]
	}
	return base
}

func isExternalLink(dest string) bool {
	return strings.HasPrefix(dest, "http://") || strings.HasPrefix(dest, "https://") ||
		strings.HasPrefix(dest, "mailto:") || strings.Contains(dest, "://")
}
