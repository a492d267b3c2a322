package renderer_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/euforicio/blogmd/internal/renderer"
)

func newService() *renderer.Service {
	return renderer.NewService(
		slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})),
		renderer.Options{DisableDiagrams: true},
	)
}

func TestRenderHighlightedListing(t *testing.T) {
	t.Parallel()
	svc := newService()

	content := []byte("## Listing\n\n" +
		"```cpp\n" +
		"int main() { return 0; }\n" +
		"```\n")

	doc, err := svc.Render(context.Background(), "_posts/2020-01-01-listing.md", time.Unix(1_000, 0), content, renderer.RenderOptions{LineNumbers: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	html := doc.HTML
	if !strings.Contains(html, `class="chroma"`) {
		t.Fatalf("expected chroma highlighter output, got %s", html)
	}
	if !strings.Contains(html, "lntable") {
		t.Fatalf("expected line-number table in numbered mode, got %s", html)
	}
	if !strings.Contains(html, `id="listing"`) {
		t.Fatalf("expected auto heading id, got %s", html)
	}
}

func TestRenderWithoutLineNumbers(t *testing.T) {
	t.Parallel()
	svc := newService()

	content := []byte("```go\npackage main\n```\n")

	doc, err := svc.Render(context.Background(), "_posts/2020-01-01-plain.md", time.Unix(1_000, 0), content, renderer.RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(doc.HTML, "lntable") {
		t.Fatalf("plain mode must not emit line-number tables, got %s", doc.HTML)
	}
	if !strings.Contains(doc.HTML, `<span class="kn">package</span>`) {
		t.Fatalf("expected go syntax tokens, got %s", doc.HTML)
	}
}

func TestRenderListingFilenameLabel(t *testing.T) {
	t.Parallel()
	svc := newService()

	content := []byte("```cpp {filename=\"widget.cpp\"}\nint x;\n```\n")

	doc, err := svc.Render(context.Background(), "_posts/2020-01-01-label.md", time.Unix(1_000, 0), content, renderer.RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(doc.HTML, `<figcaption class="listing-filename">widget.cpp</figcaption>`) {
		t.Fatalf("expected filename caption, got %s", doc.HTML)
	}
}

func TestRenderRewritesArticleLinks(t *testing.T) {
	t.Parallel()
	svc := newService()

	content := []byte("See [elision](2019-04-02-copy-elision.md) and " +
		"[section](2019-04-02-copy-elision.md#rvo) and " +
		"[external](https://example.com/page.md) and " +
		"[image](images/pic.png).\n")

	doc, err := svc.Render(context.Background(), "_posts/2020-01-01-links.md", time.Unix(1_000, 0), content, renderer.RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	html := doc.HTML
	if !strings.Contains(html, `href="copy-elision.html"`) {
		t.Fatalf("expected rewritten article link, got %s", html)
	}
	if !strings.Contains(html, `href="copy-elision.html#rvo"`) {
		t.Fatalf("expected fragment preserved, got %s", html)
	}
	if !strings.Contains(html, `href="https://example.com/page.md"`) {
		t.Fatalf("external link must pass through, got %s", html)
	}
	if !strings.Contains(html, `src="images/pic.png"`) {
		t.Fatalf("image path must pass through, got %s", html)
	}
}

func TestRenderCaching(t *testing.T) {
	t.Parallel()
	svc := newService()

	ctx := context.Background()
	path := "_posts/2020-01-01-cache.md"
	modTime := time.Unix(2_000, 0)
	opts := renderer.RenderOptions{}

	doc1, err := svc.Render(ctx, path, modTime, []byte("# First"), opts)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	doc2, err := svc.Render(ctx, path, modTime, []byte("# Second"), opts)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if doc2.HTML != doc1.HTML {
		t.Fatal("expected cached HTML for unchanged mod time")
	}

	doc3, err := svc.Render(ctx, path, modTime.Add(time.Second), []byte("# Second"), opts)
	if err != nil {
		t.Fatalf("third render: %v", err)
	}
	if doc3.HTML == doc1.HTML {
		t.Fatal("expected re-render after mod time change")
	}

	svc.Invalidate(path)
	doc4, err := svc.Render(ctx, path, modTime.Add(time.Second), []byte("# Third"), opts)
	if err != nil {
		t.Fatalf("fourth render: %v", err)
	}
	if doc4.HTML == doc3.HTML {
		t.Fatal("expected re-render after invalidation")
	}
}

func TestRenderModesCachedIndependently(t *testing.T) {
	t.Parallel()
	svc := newService()

	ctx := context.Background()
	path := "_posts/2020-01-01-modes.md"
	modTime := time.Unix(3_000, 0)
	content := []byte("```go\npackage main\n```\n")

	numbered, err := svc.Render(ctx, path, modTime, content, renderer.RenderOptions{LineNumbers: true})
	if err != nil {
		t.Fatalf("numbered render: %v", err)
	}
	plain, err := svc.Render(ctx, path, modTime, content, renderer.RenderOptions{})
	if err != nil {
		t.Fatalf("plain render: %v", err)
	}
	if numbered.HTML == plain.HTML {
		t.Fatal("modes must not share cache entries")
	}
}
