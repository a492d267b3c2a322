// Package scaffold creates skeleton documents in the content store.
package scaffold

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/euforicio/blogmd/internal/config"
)

// Options configure one scaffold invocation.
type Options struct {
	Root  string    // site root holding the content store
	Words []string  // title words joined into the slug
	Dest  string    // optional subdirectory inside the store
	Draft bool      // create under the drafts directory instead of posts
	Date  time.Time // zero value means today
}

// Errors returned by Create.
var (
	ErrNoTitle = errors.New("at least one title word is required")
	ErrExists  = errors.New("document already exists")
)

var slugSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

// skeleton is the front matter a new document starts from. Placeholders
// are meant to be filled in by the author before the first build.
const skeleton = `---
authors: [%s]
layout: post
title: %s
categories: [%s]
tags: [%s]
---
`

// Create writes a new skeleton document and returns its absolute path.
// Posts get a date-prefixed filename; drafts carry the bare slug.
func Create(opts Options) (string, error) {
	slug := Slug(opts.Words)
	if slug == "" {
		return "", ErrNoTitle
	}

	day := opts.Date
	if day.IsZero() {
		day = time.Now()
	}

	dir := config.PostsDirName
	name := day.Format("2006-01-02") + "-" + slug + ".md"
	if opts.Draft {
		dir = config.DraftsDirName
		name = slug + ".md"
	}

	dest := filepath.Join(opts.Root, dir, filepath.FromSlash(opts.Dest))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}

	path := filepath.Join(dest, name)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	title := strings.Join(opts.Words, " ")
	content := fmt.Sprintf(skeleton, "<author>", title, "<categories>", "<tag>")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return path, nil
}

// Slug joins title words into a lowercase hyphenated identifier.
func Slug(words []string) string {
	joined := strings.ToLower(strings.Join(words, "-"))
	joined = slugSanitizer.ReplaceAllString(joined, "-")
	return strings.Trim(joined, "-")
}
