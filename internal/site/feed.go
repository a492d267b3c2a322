package site

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/euforicio/blogmd/internal/content"
)

// Atom feed document. Timestamps come from document dates, not the wall
// clock, so rebuilding an unchanged store yields an identical feed.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	XMLNS   string      `xml:"xmlns,attr"`
	Title   string      `xml:"title"`
	ID      string      `xml:"id"`
	Updated string      `xml:"updated"`
	Links   []atomLink  `xml:"link"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
}

type atomEntry struct {
	Title   string     `xml:"title"`
	ID      string     `xml:"id"`
	Updated string     `xml:"updated"`
	Link    atomLink   `xml:"link"`
	Summary string     `xml:"summary,omitempty"`
	Authors []atomName `xml:"author"`
}

type atomName struct {
	Name string `xml:"name"`
}

func writeFeed(outputDir string, store *content.Store, site siteViewData, pages []pageViewData) error {
	base := site.BaseURL
	if base == "" {
		base = "/"
	} else {
		base += "/"
	}

	feed := atomFeed{
		XMLNS:   "http://www.w3.org/2005/Atom",
		Title:   site.Title,
		ID:      base,
		Updated: atomTime(latestDate(store)),
		Links:   []atomLink{{Href: base + "feed.xml", Rel: "self"}, {Href: base}},
	}

	for _, page := range pages {
		if page.Draft {
			continue
		}
		entry := atomEntry{
			Title:   page.Title,
			ID:      base + page.URL,
			Updated: atomTime(page.Date),
			Link:    atomLink{Href: base + page.URL},
			Summary: page.Description,
		}
		for _, author := range page.Authors {
			entry.Authors = append(entry.Authors, atomName{Name: author})
		}
		feed.Entries = append(feed.Entries, entry)
	}

	raw, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return fmt.Errorf("encode feed: %w", err)
	}
	raw = append([]byte(xml.Header), raw...)

	dest := filepath.Join(outputDir, "feed.xml")
	if err := os.WriteFile(dest, raw, 0o644); err != nil { //nolint:gosec // standard file permissions
		return fmt.Errorf("write feed.xml: %w", err)
	}
	return nil
}

func atomTime(t time.Time) string {
	if t.IsZero() {
		return time.Unix(0, 0).UTC().Format(time.RFC3339)
	}
	return t.UTC().Format(time.RFC3339)
}

func latestDate(store *content.Store) time.Time {
	var latest time.Time
	for _, doc := range store.Documents {
		if doc.Date.After(latest) {
			latest = doc.Date
		}
	}
	return latest
}
