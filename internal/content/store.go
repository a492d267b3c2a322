package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/euforicio/blogmd/internal/config"
)

// ErrDuplicateSlug is returned when two documents resolve to the same slug.
var ErrDuplicateSlug = errors.New("duplicate slug")

// Store is the set of documents that make up one build input.
type Store struct {
	Root      string
	Documents []*Document
}

// Options control which documents a scan picks up.
type Options struct {
	IncludeDrafts bool
}

// Scan reads the content store rooted at the site directory. Published posts
// come from _posts; drafts are included on request. The scan fails on the
// first malformed document so defects surface with the offending file named.
func Scan(ctx context.Context, root string, opts Options) (*Store, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve site root: %w", err)
	}

	store := &Store{Root: absRoot}

	if err := store.scanDir(ctx, config.PostsDirName, false); err != nil {
		return nil, err
	}
	if opts.IncludeDrafts {
		if err := store.scanDir(ctx, config.DraftsDirName, true); err != nil {
			return nil, err
		}
	}

	if err := store.checkSlugs(); err != nil {
		return nil, err
	}

	sort.SliceStable(store.Documents, func(i, j int) bool {
		a, b := store.Documents[i], store.Documents[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.Slug < b.Slug
	})

	return store, nil
}

// Posts returns the published, non-draft documents with the post layout.
func (s *Store) Posts() []*Document {
	var posts []*Document
	for _, doc := range s.Documents {
		if doc.Matter.Layout == LayoutPost {
			posts = append(posts, doc)
		}
	}
	return posts
}

// Categories returns every category used across the store, sorted, with the
// documents carrying each.
func (s *Store) Categories() map[string][]*Document {
	out := make(map[string][]*Document)
	for _, doc := range s.Documents {
		for _, cat := range doc.Matter.Categories {
			cat = strings.TrimSpace(cat)
			if cat == "" {
				continue
			}
			out[cat] = append(out[cat], doc)
		}
	}
	return out
}

func (s *Store) scanDir(ctx context.Context, dirName string, drafts bool) error {
	dir := filepath.Join(s.Root, dirName)
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			if drafts && errors.Is(walkErr, os.ErrNotExist) && path == dir {
				return nil
			}
			return fmt.Errorf("walk %s: %w", dirName, walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !isMarkdown(d.Name()) {
			return nil
		}

		doc, err := s.loadDocument(path, drafts)
		if err != nil {
			rel, relErr := filepath.Rel(s.Root, path)
			if relErr != nil {
				rel = path
			}
			return fmt.Errorf("%s: %w", filepath.ToSlash(rel), err)
		}
		if !doc.Matter.IsPublished() && !drafts {
			return nil
		}
		s.Documents = append(s.Documents, doc)
		return nil
	})
}

func (s *Store) loadDocument(path string, draft bool) (*Document, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from walking the validated site root
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}

	date, slug, err := SplitFileName(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if !draft && date.IsZero() {
		return nil, errors.New("post file name must carry a YYYY-MM-DD date prefix")
	}

	fm, body, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(s.Root, path)
	if err != nil {
		rel = path
	}

	return &Document{
		SourcePath:   path,
		RelativePath: filepath.ToSlash(rel),
		Slug:         slug,
		Date:         date,
		Matter:       fm,
		Body:         body,
		Modified:     info.ModTime(),
		Draft:        draft,
	}, nil
}

func (s *Store) checkSlugs() error {
	seen := make(map[string]string, len(s.Documents))
	for _, doc := range s.Documents {
		if prev, ok := seen[doc.Slug]; ok {
			return fmt.Errorf("%w: %q used by both %s and %s", ErrDuplicateSlug, doc.Slug, prev, doc.RelativePath)
		}
		seen[doc.Slug] = doc.RelativePath
	}
	return nil
}

func isMarkdown(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}
