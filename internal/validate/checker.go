// Package validate walks a rendered site and reports structural defects:
// internal links that resolve nowhere, missing fragment anchors, and
// malformed markup. External URLs are never fetched.
package validate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Kind classifies a defect.
type Kind string

// Defect kinds.
const (
	KindDanglingLink  Kind = "dangling-link"
	KindMissingAnchor Kind = "missing-anchor"
	KindMalformedHTML Kind = "malformed-html"
	KindDuplicateID   Kind = "duplicate-id"
)

// Defect is one structural problem found in the artifact tree.
type Defect struct {
	Artifact string // output-relative path of the file carrying the defect
	Kind     Kind
	Target   string // offending link target or tag, when applicable
	Detail   string
}

func (d Defect) String() string {
	if d.Target != "" {
		return fmt.Sprintf("%s: %s %q: %s", d.Artifact, d.Kind, d.Target, d.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", d.Artifact, d.Kind, d.Detail)
}

// Report collects the outcome of one validation pass.
type Report struct {
	Checked int
	Defects []Defect
}

// Err returns nil for a clean report, or an error enumerating each defect.
func (r *Report) Err() error {
	if len(r.Defects) == 0 {
		return nil
	}
	lines := make([]string, 0, len(r.Defects)+1)
	lines = append(lines, fmt.Sprintf("%d structural defect(s) in rendered site:", len(r.Defects)))
	for _, d := range r.Defects {
		lines = append(lines, "  "+d.String())
	}
	return errors.New(strings.Join(lines, "\n"))
}

// Checker validates a build artifact tree.
type Checker struct {
	logger *slog.Logger
}

// New constructs a checker.
func New(logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{logger: logger.With("component", "validate")}
}

// Check walks the artifact tree rooted at outputDir and returns a report.
// The returned error is non-nil only for environment problems (unreadable
// tree); content defects land in the report.
func (c *Checker) Check(ctx context.Context, outputDir string) (*Report, error) {
	root, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("stat output dir: %w", err)
	}

	tree, err := collectArtifacts(ctx, root)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	htmlFiles := tree.htmlFiles()
	pages := make(map[string]*pageInfo, len(htmlFiles))

	for _, rel := range htmlFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, defects, err := inspectPage(root, rel)
		if err != nil {
			return nil, err
		}
		pages[rel] = info
		report.Defects = append(report.Defects, defects...)
		report.Checked++
	}

	for _, rel := range htmlFiles {
		report.Defects = append(report.Defects, checkLinks(tree, pages, rel)...)
	}

	sort.SliceStable(report.Defects, func(i, j int) bool {
		if report.Defects[i].Artifact != report.Defects[j].Artifact {
			return report.Defects[i].Artifact < report.Defects[j].Artifact
		}
		return report.Defects[i].Target < report.Defects[j].Target
	})

	c.logger.Info("validation finished",
		slog.Int("pages", report.Checked),
		slog.Int("defects", len(report.Defects)))

	return report, nil
}

// artifactTree is the set of files in one build generation, keyed by
// slash-separated output-relative path.
type artifactTree struct {
	files map[string]struct{}
}

func (t *artifactTree) has(rel string) bool {
	_, ok := t.files[rel]
	return ok
}

func (t *artifactTree) htmlFiles() []string {
	var out []string
	for rel := range t.files {
		if strings.HasSuffix(strings.ToLower(rel), ".html") {
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out
}

func collectArtifacts(ctx context.Context, root string) (*artifactTree, error) {
	tree := &artifactTree{files: make(map[string]struct{})}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		tree.files[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk output tree: %w", err)
	}
	return tree, nil
}

// checkLinks resolves every internal reference of one page against the tree.
func checkLinks(tree *artifactTree, pages map[string]*pageInfo, rel string) []Defect {
	page := pages[rel]
	if page == nil {
		return nil
	}

	var defects []Defect
	baseDir := path.Dir(rel)

	for _, ref := range page.refs {
		target, fragment, ok := splitInternalRef(ref.target)
		if !ok {
			continue
		}

		resolved := rel
		if target != "" {
			resolved = resolveRef(baseDir, target)
			if resolved == "" || !tree.has(resolved) {
				// A directory reference counts when it holds an index page.
				if idx := path.Join(resolved, "index.html"); resolved != "" && tree.has(idx) {
					resolved = idx
				} else {
					defects = append(defects, Defect{
						Artifact: rel,
						Kind:     KindDanglingLink,
						Target:   ref.target,
						Detail:   fmt.Sprintf("<%s %s> does not resolve inside the site", ref.tag, ref.attr),
					})
					continue
				}
			}
		}

		if fragment != "" {
			targetPage := pages[resolved]
			if targetPage == nil {
				// Fragment into a non-HTML artifact; nothing to verify.
				continue
			}
			if _, ok := targetPage.ids[fragment]; !ok {
				defects = append(defects, Defect{
					Artifact: rel,
					Kind:     KindMissingAnchor,
					Target:   ref.target,
					Detail:   fmt.Sprintf("no element with id %q in %s", fragment, resolved),
				})
			}
		}
	}
	return defects
}

// splitInternalRef reports whether a reference is internal to the site and,
// when it is, returns its path and fragment parts.
func splitInternalRef(raw string) (target, fragment string, internal bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", "", false
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		// Unparseable references are treated as internal so they surface
		// as dangling rather than silently passing.
		return trimmed, "", true
	}
	if u.Scheme != "" || u.Host != "" || strings.HasPrefix(trimmed, "//") {
		return "", "", false
	}
	return u.Path, u.Fragment, true
}

// resolveRef turns a page-relative or root-absolute reference into an
// output-relative slash path, or "" when it escapes the tree.
func resolveRef(baseDir, target string) string {
	var joined string
	if strings.HasPrefix(target, "/") {
		joined = path.Clean(strings.TrimPrefix(target, "/"))
	} else {
		joined = path.Join(baseDir, target)
	}
	joined = strings.TrimSuffix(joined, "/")
	if joined == "." {
		joined = "index.html"
	}
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return ""
	}
	return joined
}
