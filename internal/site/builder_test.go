package site_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/euforicio/blogmd/internal/site"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(raw)
}

func buildSite(t *testing.T, root string, opts site.Options) string {
	t.Helper()
	builder, err := site.New(discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := filepath.Join(root, "_site")
	opts.Root = root
	opts.OutputDir = out
	if err := builder.Build(context.Background(), opts); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return out
}

const article = `---
authors: [mara]
layout: post
title: Copy Elision
categories: [cpp]
tags: [compilers]
description: How copy elision works.
---

## Returning values

` + "```cpp\nWidget make() { return Widget{}; }\n```\n"

func TestBuildWritesOnePagePerDocument(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "_posts/2019-04-02-copy-elision.md", article)
	writeFile(t, root, "_posts/2019-05-01-about.md", "---\nauthors: [mara]\nlayout: page\ntitle: About\n---\nAbout this blog.\n")

	out := buildSite(t, root, site.Options{SiteTitle: "Test Blog"})

	pageHTML := readFile(t, filepath.Join(out, "copy-elision.html"))
	if !strings.Contains(pageHTML, "<title>Copy Elision") {
		t.Errorf("post title missing: %s", pageHTML)
	}
	if !strings.Contains(pageHTML, `class="chroma"`) {
		t.Error("expected highlighted listing in post")
	}
	if _, err := os.Stat(filepath.Join(out, "about.html")); err != nil {
		t.Errorf("page artifact missing: %v", err)
	}
}

func TestBuildIndexListsPostsNewestFirst(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "_posts/2019-04-02-older-post.md", "---\nauthors: [a]\nlayout: post\ntitle: Older Post\n---\nx\n")
	writeFile(t, root, "_posts/2020-04-02-newer-post.md", "---\nauthors: [a]\nlayout: post\ntitle: Newer Post\n---\nx\n")

	out := buildSite(t, root, site.Options{})

	index := readFile(t, filepath.Join(out, "index.html"))
	newer := strings.Index(index, "newer-post.html")
	older := strings.Index(index, "older-post.html")
	if newer < 0 || older < 0 {
		t.Fatalf("index missing post links:\n%s", index)
	}
	if newer > older {
		t.Fatal("index must list newest post first")
	}

	// Pages with layout page stay off the article index.
	writeFile(t, root, "_posts/2020-05-01-about.md", "---\nauthors: [a]\nlayout: page\ntitle: About\n---\nx\n")
	out = buildSite(t, root, site.Options{})
	index = readFile(t, filepath.Join(out, "index.html"))
	if strings.Contains(index, "about.html") {
		t.Fatal("page layout documents must not appear in the article index")
	}
}

func TestBuildCategoryArchives(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "_posts/2019-04-02-one.md", "---\nauthors: [a]\nlayout: post\ntitle: One\ncategories: [cpp]\n---\nx\n")
	writeFile(t, root, "_posts/2019-04-03-two.md", "---\nauthors: [a]\nlayout: post\ntitle: Two\ncategories: [Memory Model]\n---\nx\n")

	out := buildSite(t, root, site.Options{})

	archive := readFile(t, filepath.Join(out, "categories", "cpp.html"))
	if !strings.Contains(archive, "../one.html") {
		t.Errorf("archive must link back to posts: %s", archive)
	}
	if _, err := os.Stat(filepath.Join(out, "categories", "memory-model.html")); err != nil {
		t.Errorf("category slug not sanitized: %v", err)
	}

	index := readFile(t, filepath.Join(out, "index.html"))
	if !strings.Contains(index, "categories/cpp.html") {
		t.Error("index must link category archives")
	}
}

func TestBuildFeed(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "_posts/2019-04-02-copy-elision.md", article)

	out := buildSite(t, root, site.Options{SiteTitle: "Test Blog", BaseURL: "https://blog.example.com"})

	feed := readFile(t, filepath.Join(out, "feed.xml"))
	if !strings.Contains(feed, "<title>Test Blog</title>") {
		t.Errorf("feed title missing:\n%s", feed)
	}
	if !strings.Contains(feed, "https://blog.example.com/copy-elision.html") {
		t.Errorf("feed entry link missing:\n%s", feed)
	}
	if !strings.Contains(feed, "2019-04-02") {
		t.Errorf("feed timestamps must come from document dates:\n%s", feed)
	}
}

func TestBuildSearchIndexOptIn(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "_posts/2019-04-02-copy-elision.md", article)

	out := buildSite(t, root, site.Options{})
	if _, err := os.Stat(filepath.Join(out, "search.json")); !os.IsNotExist(err) {
		t.Fatalf("search index written without opt-in: %v", err)
	}

	out = buildSite(t, root, site.Options{SearchIndex: true})
	index := readFile(t, filepath.Join(out, "search.json"))
	if !strings.Contains(index, "copy-elision.html") {
		t.Fatalf("search index missing entry:\n%s", index)
	}
}

func TestBuildCopiesAssetsAndImages(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "_posts/2019-04-02-copy-elision.md", article)
	writeFile(t, root, "images/diagrams/widget.svg", "<svg/>")

	out := buildSite(t, root, site.Options{})

	if _, err := os.Stat(filepath.Join(out, "assets", "css", "app.css")); err != nil {
		t.Errorf("stylesheet bundle missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "assets", "css", "chroma-github.css")); err != nil {
		t.Errorf("chroma stylesheet missing: %v", err)
	}
	if got := readFile(t, filepath.Join(out, "images", "diagrams", "widget.svg")); got != "<svg/>" {
		t.Errorf("images not mirrored, got %q", got)
	}
}

func TestBuildDraftsOnRequest(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "_posts/2019-04-02-copy-elision.md", article)
	writeFile(t, root, "_drafts/wip-notes.md", "---\nauthors: [a]\nlayout: post\ntitle: WIP\n---\nx\n")

	out := buildSite(t, root, site.Options{})
	if _, err := os.Stat(filepath.Join(out, "wip-notes.html")); !os.IsNotExist(err) {
		t.Fatalf("draft rendered without opt-in: %v", err)
	}

	out = buildSite(t, root, site.Options{IncludeDrafts: true})
	if _, err := os.Stat(filepath.Join(out, "wip-notes.html")); err != nil {
		t.Fatalf("draft missing with opt-in: %v", err)
	}
}

func TestBuildSurfacesContentDefects(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "_posts/2019-04-02-bad.md", "---\nauthors: [a]\nlayout: nonsense\ntitle: Bad\n---\nx\n")

	builder, err := site.New(discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = builder.Build(context.Background(), site.Options{
		Root:      root,
		OutputDir: filepath.Join(root, "_site"),
	})
	if err == nil {
		t.Fatal("expected build failure for unknown layout")
	}
	if !strings.Contains(err.Error(), "2019-04-02-bad.md") {
		t.Fatalf("error must name the offending document, got %v", err)
	}
}
