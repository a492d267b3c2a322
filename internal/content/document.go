// Package content reads and validates the markdown documents that feed the pipeline.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Known layout values the renderer understands.
const (
	LayoutPost = "post"
	LayoutPage = "page"
)

var (
	// ErrNoFrontMatter is returned when a document lacks a leading front-matter block.
	ErrNoFrontMatter = errors.New("missing front matter block")
	// ErrUnknownLayout is returned when front matter declares a layout the renderer has no template for.
	ErrUnknownLayout = errors.New("unknown layout")
	// ErrMissingTitle is returned when front matter omits the title field.
	ErrMissingTitle = errors.New("missing title")
	// ErrMissingAuthors is returned when front matter omits the authors list.
	ErrMissingAuthors = errors.New("missing authors")
)

var frontMatterDelimiter = []byte("---")

// FrontMatter is the structured metadata block at the top of every document.
type FrontMatter struct {
	Authors     []string       `yaml:"authors"`
	Layout      string         `yaml:"layout"`
	Title       string         `yaml:"title"`
	Categories  []string       `yaml:"categories"`
	Tags        []string       `yaml:"tags"`
	Description string         `yaml:"description"`
	LineNumbers *bool          `yaml:"linenos"`
	Published   *bool          `yaml:"published"`
	Extra       map[string]any `yaml:"-"`
}

// IsPublished reports whether the document should be part of a build.
// Documents are published unless front matter says otherwise.
func (fm FrontMatter) IsPublished() bool {
	return fm.Published == nil || *fm.Published
}

// WantLineNumbers reports whether code listings in this document get line
// numbers. Numbering is on unless the linenos directive disables it.
func (fm FrontMatter) WantLineNumbers() bool {
	return fm.LineNumbers == nil || *fm.LineNumbers
}

// Document is one read-only input to the pipeline: metadata plus markdown body.
type Document struct {
	SourcePath   string
	RelativePath string
	Slug         string
	Date         time.Time
	Matter       FrontMatter
	Body         []byte
	Modified     time.Time
	Draft        bool
}

// OutputPath returns the artifact path for this document relative to the
// output root, e.g. "fast-pimpl-in-practice.html".
func (d *Document) OutputPath() string {
	return d.Slug + ".html"
}

// Title returns the front-matter title.
func (d *Document) Title() string {
	return d.Matter.Title
}

// Parse splits raw document bytes into validated front matter and body.
func Parse(raw []byte) (FrontMatter, []byte, error) {
	block, body, err := splitFrontMatter(raw)
	if err != nil {
		return FrontMatter{}, nil, err
	}

	var fm FrontMatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return FrontMatter{}, nil, fmt.Errorf("parse front matter: %w", err)
	}

	var extra map[string]any
	if err := yaml.Unmarshal(block, &extra); err == nil {
		for _, reserved := range []string{"authors", "layout", "title", "categories", "tags", "description", "linenos", "published"} {
			delete(extra, reserved)
		}
		if len(extra) > 0 {
			fm.Extra = extra
		}
	}

	if err := validateFrontMatter(fm); err != nil {
		return FrontMatter{}, nil, err
	}
	return fm, body, nil
}

func splitFrontMatter(raw []byte) (block, body []byte, err error) {
	trimmed := bytes.TrimLeft(raw, "\ufeff")
	if !bytes.HasPrefix(trimmed, frontMatterDelimiter) {
		return nil, nil, ErrNoFrontMatter
	}
	rest := trimmed[len(frontMatterDelimiter):]
	rest = bytes.TrimPrefix(rest, []byte("\r"))
	if !bytes.HasPrefix(rest, []byte("\n")) {
		return nil, nil, ErrNoFrontMatter
	}
	rest = rest[1:]

	end := findClosingDelimiter(rest)
	if end < 0 {
		return nil, nil, fmt.Errorf("%w: unterminated block", ErrNoFrontMatter)
	}

	block = rest[:end]
	body = rest[end:]
	if idx := bytes.IndexByte(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	} else {
		body = nil
	}
	return block, body, nil
}

func findClosingDelimiter(rest []byte) int {
	offset := 0
	for _, line := range bytes.SplitAfter(rest, []byte("\n")) {
		if bytes.Equal(bytes.TrimRight(line, "\r\n"), frontMatterDelimiter) {
			return offset
		}
		offset += len(line)
	}
	return -1
}

func validateFrontMatter(fm FrontMatter) error {
	if strings.TrimSpace(fm.Title) == "" {
		return ErrMissingTitle
	}
	if len(fm.Authors) == 0 {
		return ErrMissingAuthors
	}
	switch fm.Layout {
	case LayoutPost, LayoutPage:
		return nil
	case "":
		return fmt.Errorf("%w: layout field is required", ErrUnknownLayout)
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)", ErrUnknownLayout, fm.Layout, LayoutPost, LayoutPage)
	}
}

var datedName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)

// SplitFileName extracts the publication date and slug from a document file
// name such as "2019-04-02-copy-elision.md". Drafts may omit the date, in
// which case the zero time is returned.
func SplitFileName(name string) (time.Time, string, error) {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, ".md") && !strings.HasSuffix(lower, ".markdown") {
		return time.Time{}, "", fmt.Errorf("not a markdown file: %s", name)
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		return time.Time{}, "", fmt.Errorf("empty file name: %s", name)
	}

	if m := datedName.FindStringSubmatch(base); m != nil {
		date, err := time.Parse("2006-01-02", m[1])
		if err != nil {
			return time.Time{}, "", fmt.Errorf("invalid date in file name %s: %w", name, err)
		}
		return date, m[2], nil
	}
	return time.Time{}, base, nil
}
