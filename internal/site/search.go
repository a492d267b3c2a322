package site

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/euforicio/blogmd/internal/content"
)

type searchEntry struct {
	Path       string    `json:"path"`
	Source     string    `json:"source"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary,omitempty"`
	Categories []string  `json:"categories,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Date       time.Time `json:"date"`
	Raw        string    `json:"raw"`
}

// writeSearchIndex emits a JSON document per article for client-side search.
// No generation timestamp is included; the index is a pure function of the
// content store.
func writeSearchIndex(outputDir string, store *content.Store) error {
	entries := make([]searchEntry, 0, len(store.Documents))
	for _, doc := range store.Documents {
		entries = append(entries, searchEntry{
			Path:       doc.OutputPath(),
			Source:     doc.RelativePath,
			Title:      doc.Title(),
			Summary:    doc.Matter.Description,
			Categories: doc.Matter.Categories,
			Tags:       doc.Matter.Tags,
			Date:       doc.Date,
			Raw:        string(doc.Body),
		})
	}

	payload := struct {
		Entries []searchEntry `json:"entries"`
	}{Entries: entries}

	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode search index: %w", err)
	}
	dest := filepath.Join(outputDir, "search.json")
	if err := os.WriteFile(dest, raw, 0o644); err != nil { //nolint:gosec // standard file permissions
		return fmt.Errorf("write search.json: %w", err)
	}
	return nil
}
