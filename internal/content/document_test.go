package content_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/euforicio/blogmd/internal/content"
)

func TestParseFrontMatter(t *testing.T) {
	t.Parallel()

	raw := []byte(`---
authors: [mara, jules]
layout: post
title: Copy Elision in Practice
categories: [cpp, performance]
tags: [compilers]
linenos: false
custom_field: 42
---

## Body

Some prose.
`)

	fm, body, err := content.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if fm.Title != "Copy Elision in Practice" {
		t.Errorf("title = %q", fm.Title)
	}
	if len(fm.Authors) != 2 || fm.Authors[0] != "mara" {
		t.Errorf("authors = %v", fm.Authors)
	}
	if fm.WantLineNumbers() {
		t.Error("linenos: false should disable line numbers")
	}
	if !fm.IsPublished() {
		t.Error("document without published field must default to published")
	}
	if fm.Extra["custom_field"] == nil {
		t.Errorf("extra fields not preserved: %v", fm.Extra)
	}
	if !strings.HasPrefix(string(body), "\n## Body") {
		t.Errorf("body = %q", body)
	}
}

func TestParseRejectsBadDocuments(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"no front matter", "just prose\n", content.ErrNoFrontMatter},
		{"unterminated", "---\ntitle: x\n", content.ErrNoFrontMatter},
		{"missing title", "---\nauthors: [a]\nlayout: post\n---\n", content.ErrMissingTitle},
		{"missing authors", "---\ntitle: x\nlayout: post\n---\n", content.ErrMissingAuthors},
		{"no layout", "---\ntitle: x\nauthors: [a]\n---\n", content.ErrUnknownLayout},
		{"bad layout", "---\ntitle: x\nauthors: [a]\nlayout: wiki\n---\n", content.ErrUnknownLayout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := content.Parse([]byte(tc.raw)); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSplitFileName(t *testing.T) {
	t.Parallel()

	date, slug, err := content.SplitFileName("2019-04-02-copy-elision.md")
	if err != nil {
		t.Fatalf("SplitFileName: %v", err)
	}
	if want := time.Date(2019, 4, 2, 0, 0, 0, 0, time.UTC); !date.Equal(want) {
		t.Errorf("date = %v, want %v", date, want)
	}
	if slug != "copy-elision" {
		t.Errorf("slug = %q", slug)
	}

	date, slug, err = content.SplitFileName("scratch-notes.markdown")
	if err != nil {
		t.Fatalf("SplitFileName: %v", err)
	}
	if !date.IsZero() {
		t.Errorf("undated name should give zero date, got %v", date)
	}
	if slug != "scratch-notes" {
		t.Errorf("slug = %q", slug)
	}

	if _, _, err := content.SplitFileName("diagram.svg"); err == nil {
		t.Error("non-markdown name must be rejected")
	}
	if _, _, err := content.SplitFileName("2019-13-45-bad-date.md"); err == nil {
		t.Error("impossible date must be rejected")
	}
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	doc := &content.Document{Slug: "fast-pimpl"}
	if got := doc.OutputPath(); got != "fast-pimpl.html" {
		t.Fatalf("OutputPath = %q", got)
	}
}
