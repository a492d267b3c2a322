package scaffold_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/euforicio/blogmd/internal/scaffold"
)

func TestCreatePost(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	path, err := scaffold.Create(scaffold.Options{
		Root:  root,
		Words: []string{"Memory", "Ordering"},
		Date:  day,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	want := filepath.Join(root, "_posts", "2024-06-15-memory-ordering.md")
	if path != want {
		t.Fatalf("path = %s, want %s", path, want)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, needle := range []string{"layout: post", "title: Memory Ordering", "authors: [<author>]"} {
		if !strings.Contains(string(raw), needle) {
			t.Errorf("skeleton missing %q:\n%s", needle, raw)
		}
	}
}

func TestCreateDraftHasNoDatePrefix(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path, err := scaffold.Create(scaffold.Options{
		Root:  root,
		Words: []string{"wip", "notes"},
		Draft: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := filepath.Base(path); got != "wip-notes.md" {
		t.Fatalf("draft name = %s, want wip-notes.md", got)
	}
	if dir := filepath.Base(filepath.Dir(path)); dir != "_drafts" {
		t.Fatalf("draft dir = %s, want _drafts", dir)
	}
}

func TestCreateDestSubdirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path, err := scaffold.Create(scaffold.Options{
		Root:  root,
		Words: []string{"atomics"},
		Dest:  "concurrency",
		Date:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := filepath.Join(root, "_posts", "concurrency", "2024-01-02-atomics.md")
	if path != want {
		t.Fatalf("path = %s, want %s", path, want)
	}
}

func TestCreateRefusesOverwrite(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	opts := scaffold.Options{
		Root:  root,
		Words: []string{"dup"},
		Date:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	if _, err := scaffold.Create(opts); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := scaffold.Create(opts); !errors.Is(err, scaffold.ErrExists) {
		t.Fatalf("second Create err = %v, want ErrExists", err)
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	t.Parallel()

	if _, err := scaffold.Create(scaffold.Options{Root: t.TempDir()}); !errors.Is(err, scaffold.ErrNoTitle) {
		t.Fatalf("err = %v, want ErrNoTitle", err)
	}
}

func TestSlugSanitizes(t *testing.T) {
	t.Parallel()

	if got := scaffold.Slug([]string{"C++", "Memory Model!"}); got != "c-memory-model" {
		t.Fatalf("Slug = %q", got)
	}
}
