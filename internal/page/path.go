package page

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Path builds a positional CSS path for a node. Node references do not
// survive across snapshots, so anything tracked between passes is kept
// as a path and re-resolved against the next capture.
func Path(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	var parts []string
	for node := sel.Get(0); node != nil && node.Type == html.ElementNode; node = node.Parent {
		if node.Data == "html" {
			parts = append(parts, "html")
			break
		}
		parts = append(parts, fmt.Sprintf("%s:nth-child(%d)", node.Data, elementIndex(node)))
	}
	// parts were collected leaf-first
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

// Resolve looks a path up in a snapshot. It returns nil when the node no
// longer exists, which callers treat as a stale handle.
func (s *Snapshot) Resolve(path string) *goquery.Selection {
	if path == "" {
		return nil
	}
	found := s.Doc.Find(path).First()
	if found.Length() == 0 {
		return nil
	}
	return found
}

func elementIndex(node *html.Node) int {
	idx := 1
	for sib := node.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode {
			idx++
		}
	}
	return idx
}
