package transform

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	d2renderer "github.com/euforicio/blogmd/internal/renderer/d2"
)

const diagramLanguage = "d2"

// DiagramTransformer finds fenced ```d2 blocks and replaces them with
// compiled SVG nodes, so rendered articles ship their diagrams inline
// without any client-side dependency.
type DiagramTransformer struct {
	renderer *d2renderer.Renderer
	logger   *slog.Logger
}

// NewDiagramTransformer constructs an AST transformer. If renderer is nil
// the transformer becomes a no-op and diagram fences stay code listings.
func NewDiagramTransformer(renderer *d2renderer.Renderer, logger *slog.Logger) parser.ASTTransformer {
	return &DiagramTransformer{
		renderer: renderer,
		logger:   logger,
	}
}

// Transform implements parser.ASTTransformer.
func (t *DiagramTransformer) Transform(node *ast.Document, reader text.Reader, _ parser.Context) {
	if t.renderer == nil || node == nil {
		return
	}
	t.walk(node, reader)
}

func (t *DiagramTransformer) walk(parent ast.Node, reader text.Reader) {
	for child := parent.FirstChild(); child != nil; {
		next := child.NextSibling()

		if block, ok := child.(*ast.FencedCodeBlock); ok && isDiagramBlock(block, reader.Source()) {
			replacement := t.renderBlock(block, reader)
			replacement.SetBlankPreviousLines(block.HasBlankPreviousLines())
			copyAttributes(block, replacement)
			parent.ReplaceChild(parent, block, replacement)
			child = next
			continue
		}

		if child.HasChildren() {
			t.walk(child, reader)
		}
		child = next
	}
}

func (t *DiagramTransformer) renderBlock(block *ast.FencedCodeBlock, reader text.Reader) *DiagramBlock {
	source := blockSource(block, reader)
	result, err := t.renderer.Render(context.Background(), source)
	if err != nil {
		if t.logger != nil {
			t.logger.Warn("d2 render failed", slog.Any("err", err))
		}
		return &DiagramBlock{
			Source: source,
			Error:  err.Error(),
		}
	}
	return &DiagramBlock{
		Source:  source,
		SVG:     result.SVG,
		Runtime: result.Duration,
	}
}

func isDiagramBlock(block *ast.FencedCodeBlock, source []byte) bool {
	lang := strings.TrimSpace(string(block.Language(source)))
	return strings.EqualFold(lang, diagramLanguage)
}

func blockSource(block *ast.FencedCodeBlock, reader text.Reader) string {
	var buf bytes.Buffer
	for i := 0; i < block.Lines().Len(); i++ {
		segment := block.Lines().At(i)
		buf.Write(segment.Value(reader.Source()))
	}
	return buf.String()
}

func copyAttributes(src, dst ast.Node) {
	if src == nil || dst == nil || src.Attributes() == nil {
		return
	}
	for _, attr := range src.Attributes() {
		dst.SetAttribute(attr.Name, attr.Value)
	}
}

// DiagramBlock is a compiled diagram placeholder included directly in the AST.
type DiagramBlock struct {
	ast.BaseBlock
	Source  string
	SVG     string
	Error   string
	Runtime time.Duration
}

// KindDiagramBlock represents a compiled diagram node kind.
var KindDiagramBlock = ast.NewNodeKind("DiagramBlock")

// Kind implements ast.Node.
func (b *DiagramBlock) Kind() ast.NodeKind {
	return KindDiagramBlock
}

// IsRaw marks the node as raw HTML.
func (b *DiagramBlock) IsRaw() bool {
	return true
}

// Dump aids debugging.
func (b *DiagramBlock) Dump(source []byte, level int) {
	info := map[string]string{
		"Source": fmt.Sprintf("%d bytes", len(b.Source)),
	}
	if b.Error != "" {
		info["Error"] = fmt.Sprintf("%q", b.Error)
	}
	ast.DumpHelper(b, source, level, info, nil)
}

// DiagramBlockRenderer writes compiled diagram nodes into HTML output.
type DiagramBlockRenderer struct{}

// NewDiagramBlockRenderer returns a renderer for compiled diagram nodes.
func NewDiagramBlockRenderer() renderer.NodeRenderer {
	return &DiagramBlockRenderer{}
}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *DiagramBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindDiagramBlock, r.renderDiagramBlock)
}

func (r *DiagramBlockRenderer) renderDiagramBlock(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	block := node.(*DiagramBlock)

	var attrs strings.Builder
	if block.Source != "" {
		fmt.Fprintf(&attrs, ` data-source-b64="%s"`, base64.StdEncoding.EncodeToString([]byte(block.Source)))
	}

	if _, err := w.WriteString(`<div class="diagram"` + attrs.String() + `>`); err != nil {
		return ast.WalkStop, err
	}

	var err error
	if block.Error != "" {
		_, err = w.WriteString(`<div class="diagram-error">` + html.EscapeString(block.Error) + `</div>`)
	} else {
		_, err = w.WriteString(block.SVG)
	}
	if err != nil {
		return ast.WalkStop, err
	}

	if _, err := w.WriteString(`</div>`); err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkSkipChildren, nil
}
