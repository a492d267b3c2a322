package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// pageRef is one outgoing reference found in a page.
type pageRef struct {
	tag    string
	attr   string
	target string
}

// pageInfo is the inspection result for a single HTML artifact.
type pageInfo struct {
	ids  map[string]struct{}
	refs []pageRef
}

// refAttrs maps element names to the attribute carrying a reference.
var refAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"img":    "src",
	"script": "src",
	"source": "src",
}

// voidElements never carry a closing tag.
var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {},
	"hr": {}, "img": {}, "input": {}, "link": {}, "meta": {},
	"source": {}, "track": {}, "wbr": {},
}

// impliedEnd elements may be closed implicitly by their parent.
var impliedEnd = map[string]struct{}{
	"p": {}, "li": {}, "dt": {}, "dd": {}, "td": {}, "th": {},
	"tr": {}, "thead": {}, "tbody": {}, "tfoot": {}, "option": {},
}

// inspectPage reads one artifact and returns its anchors, outgoing
// references, and any structural defects.
func inspectPage(root, rel string) (*pageInfo, []Defect, error) {
	raw, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, nil, fmt.Errorf("read artifact %s: %w", rel, err)
	}

	info := &pageInfo{ids: make(map[string]struct{})}
	var defects []Defect

	tz := html.NewTokenizer(strings.NewReader(string(raw)))
	var open []string

	for {
		tt := tz.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := tz.Token()
			name := tok.Data

			if attr, ok := refAttrs[name]; ok {
				for _, a := range tok.Attr {
					if a.Key == attr && a.Val != "" {
						info.refs = append(info.refs, pageRef{tag: name, attr: attr, target: a.Val})
					}
				}
			}
			for _, a := range tok.Attr {
				if a.Key != "id" || a.Val == "" {
					continue
				}
				if _, dup := info.ids[a.Val]; dup {
					defects = append(defects, Defect{
						Artifact: rel,
						Kind:     KindDuplicateID,
						Target:   a.Val,
						Detail:   fmt.Sprintf("id %q declared more than once", a.Val),
					})
				}
				info.ids[a.Val] = struct{}{}
			}

			if tt == html.StartTagToken {
				if _, void := voidElements[name]; !void {
					open = append(open, name)
				}
			}

		case html.EndTagToken:
			tok := tz.Token()
			name := tok.Data
			if _, void := voidElements[name]; void {
				continue
			}
			idx := -1
			for i := len(open) - 1; i >= 0; i-- {
				if open[i] == name {
					idx = i
					break
				}
			}
			if idx < 0 {
				defects = append(defects, Defect{
					Artifact: rel,
					Kind:     KindMalformedHTML,
					Target:   "</" + name + ">",
					Detail:   "closing tag without matching open tag",
				})
				continue
			}
			// Elements skipped between idx and the top close implicitly;
			// anything without an implied end is a mismatch.
			for i := len(open) - 1; i > idx; i-- {
				if _, ok := impliedEnd[open[i]]; !ok {
					defects = append(defects, Defect{
						Artifact: rel,
						Kind:     KindMalformedHTML,
						Target:   "<" + open[i] + ">",
						Detail:   fmt.Sprintf("unclosed tag, closed by </%s>", name),
					})
				}
			}
			open = open[:idx]
		}
	}

	for _, name := range open {
		if _, ok := impliedEnd[name]; ok {
			continue
		}
		defects = append(defects, Defect{
			Artifact: rel,
			Kind:     KindMalformedHTML,
			Target:   "<" + name + ">",
			Detail:   "tag never closed",
		})
	}

	return info, defects, nil
}
