// Package site renders the content store into the static build artifact tree.
package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/euforicio/blogmd/internal/content"
	"github.com/euforicio/blogmd/internal/renderer"
	blogstatic "github.com/euforicio/blogmd/static"
)

const (
	indexHTML    = "index.html"
	assetsPrefix = "assets"
	categoryDir  = "categories"
)

// Options configure one build.
type Options struct {
	Root          string
	OutputDir     string
	SiteTitle     string
	BaseURL       string
	IncludeDrafts bool
	SearchIndex   bool
}

// Builder renders markdown documents into a static HTML site.
type Builder struct {
	renderer  *renderer.Service
	templates *templateRenderer
	logger    *slog.Logger
}

// New constructs a builder instance ready for use.
func New(logger *slog.Logger) (*Builder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := newTemplateRenderer()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	return &Builder{
		renderer:  renderer.NewService(logger, renderer.Options{}),
		templates: tmpl,
		logger:    logger.With("component", "site"),
	}, nil
}

// Build scans the content store rooted at opts.Root and writes the full
// artifact tree to opts.OutputDir: one page per document, the article index,
// per-category archives, the Atom feed, and the asset bundle. The output is
// a pure function of the store, so repeated builds from the same input
// produce identical trees.
func (b *Builder) Build(ctx context.Context, opts Options) error {
	if strings.TrimSpace(opts.Root) == "" {
		return errors.New("site root is required")
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		return errors.New("output directory is required")
	}
	if strings.TrimSpace(opts.SiteTitle) == "" {
		opts.SiteTitle = "blogmd"
	}

	start := time.Now()

	store, err := content.Scan(ctx, opts.Root, content.Options{IncludeDrafts: opts.IncludeDrafts})
	if err != nil {
		return fmt.Errorf("scan content store: %w", err)
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil { //nolint:gosec // standard directory permissions
		return fmt.Errorf("prepare output: %w", err)
	}

	site := siteViewData{
		Title:   opts.SiteTitle,
		BaseURL: strings.TrimRight(opts.BaseURL, "/"),
	}

	pages := make([]pageViewData, 0, len(store.Documents))
	for _, doc := range store.Documents {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := b.renderDocument(ctx, doc, site)
		if err != nil {
			return fmt.Errorf("render %s: %w", doc.RelativePath, err)
		}
		if err := b.writePage(opts.OutputDir, doc.OutputPath(), doc.Matter.Layout, page, site); err != nil {
			return fmt.Errorf("write page %s: %w", doc.RelativePath, err)
		}
		pages = append(pages, page)
	}

	if err := b.writeIndex(opts.OutputDir, store, site); err != nil {
		return err
	}
	if err := b.writeArchives(opts.OutputDir, store, site); err != nil {
		return err
	}
	if err := writeFeed(opts.OutputDir, store, site, pages); err != nil {
		return err
	}
	if opts.SearchIndex {
		if err := writeSearchIndex(opts.OutputDir, store); err != nil {
			return err
		}
	}

	if err := b.copyAssets(opts.OutputDir, opts.Root); err != nil {
		return err
	}

	b.logger.Info("render complete",
		slog.Int("documents", len(store.Documents)),
		slog.String("output", opts.OutputDir),
		slog.Duration("duration", time.Since(start)))

	return nil
}

func (b *Builder) renderDocument(ctx context.Context, doc *content.Document, site siteViewData) (pageViewData, error) {
	rendered, err := b.renderer.Render(ctx, doc.RelativePath, doc.Modified, doc.Body, renderer.RenderOptions{
		LineNumbers: doc.Matter.WantLineNumbers(),
	})
	if err != nil {
		return pageViewData{}, err
	}

	page := pageViewData{
		Slug:        doc.Slug,
		URL:         doc.OutputPath(),
		Title:       doc.Title(),
		Date:        doc.Date,
		Authors:     doc.Matter.Authors,
		Categories:  doc.Matter.Categories,
		Tags:        doc.Matter.Tags,
		Description: doc.Matter.Description,
		Draft:       doc.Draft,
		HTML:        template.HTML(rendered.HTML), //nolint:gosec // HTML from trusted renderer
	}
	if site.BaseURL != "" {
		page.Canonical = site.BaseURL + "/" + page.URL
	}
	return page, nil
}

func (b *Builder) writePage(outputDir, rel, layout string, page pageViewData, site siteViewData) error {
	name := "post"
	if layout == content.LayoutPage {
		name = "page"
	}
	return b.writeTemplate(outputDir, rel, name, layoutViewData{
		Site: site,
		Page: page,
	})
}

func (b *Builder) writeIndex(outputDir string, store *content.Store, site siteViewData) error {
	posts := store.Posts()
	items := make([]pageViewData, 0, len(posts))
	for _, doc := range posts {
		items = append(items, pageViewData{
			Slug:        doc.Slug,
			URL:         doc.OutputPath(),
			Title:       doc.Title(),
			Date:        doc.Date,
			Authors:     doc.Matter.Authors,
			Categories:  doc.Matter.Categories,
			Description: doc.Matter.Description,
			Draft:       doc.Draft,
		})
	}

	data := indexViewData{
		Site:       site,
		Posts:      items,
		Categories: categoryRefs(store),
	}
	if err := b.writeTemplate(outputDir, indexHTML, "index", data); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

func (b *Builder) writeArchives(outputDir string, store *content.Store, site siteViewData) error {
	for name, docs := range store.Categories() {
		items := make([]pageViewData, 0, len(docs))
		for _, doc := range docs {
			items = append(items, pageViewData{
				Slug:  doc.Slug,
				URL:   "../" + doc.OutputPath(),
				Title: doc.Title(),
				Date:  doc.Date,
			})
		}
		data := archiveViewData{
			Site:     site,
			Category: name,
			Posts:    items,
		}
		rel := filepath.Join(categoryDir, categorySlug(name)+".html")
		if err := b.writeTemplate(outputDir, rel, "archive", data); err != nil {
			return fmt.Errorf("write archive %s: %w", name, err)
		}
	}
	return nil
}

func (b *Builder) writeTemplate(outputDir, rel, name string, data any) error {
	dest := filepath.Join(outputDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil { //nolint:gosec // standard directory permissions
		return err
	}
	buf := bytes.Buffer{}
	if err := b.templates.render(&buf, name, data); err != nil {
		return err
	}
	return os.WriteFile(dest, buf.Bytes(), 0o644) //nolint:gosec // standard file permissions
}

// copyAssets writes the embedded stylesheet bundle and mirrors the site's
// images directory, when one exists, into the output tree.
func (b *Builder) copyAssets(outputDir, root string) error {
	dest := filepath.Join(outputDir, assetsPrefix)
	if err := blogstatic.CopyAll(dest); err != nil {
		return fmt.Errorf("copy embedded assets: %w", err)
	}

	images := filepath.Join(root, "images")
	info, err := os.Stat(images)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat images: %w", err)
	}
	if !info.IsDir() {
		return nil
	}
	if err := copyTree(images, filepath.Join(outputDir, "images")); err != nil {
		return fmt.Errorf("copy images: %w", err)
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755) //nolint:gosec // standard directory permissions
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil { //nolint:gosec // standard directory permissions
			return err
		}
		data, err := os.ReadFile(path) //nolint:gosec // path from validated source directory
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644) //nolint:gosec // standard file permissions
	})
}

func categoryRefs(store *content.Store) []categoryRef {
	categories := store.Categories()
	refs := make([]categoryRef, 0, len(categories))
	for name, docs := range categories {
		refs = append(refs, categoryRef{
			Name:  name,
			URL:   categoryDir + "/" + categorySlug(name) + ".html",
			Count: len(docs),
		})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs
}

func categorySlug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
