// Package page wraps a captured DOM snapshot and the node-level checks
// the detection heuristics depend on. A snapshot is immutable: every
// analysis pass parses a fresh capture and re-derives all node handles.
package page

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Annotation attributes written into the live page before capture. They
// carry computed-style facts (zero-size boxes, effective line-through)
// that static HTML cannot express.
const (
	HiddenAttr = "data-cg-hidden"
	StruckAttr = "data-cg-struck"
)

// Snapshot is one parsed capture of the host page.
type Snapshot struct {
	URL   *url.URL
	Title string
	Doc   *goquery.Document

	// Raw holds the captured markup lowercased, for cheap framework
	// fingerprint checks.
	Raw string
}

// Parse builds a snapshot from a captured page. rawURL may be empty when
// the capture source has no location (fixtures).
func Parse(rawURL, title, markup string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page markup: %w", err)
	}
	snap := &Snapshot{Title: title, Doc: doc, Raw: strings.ToLower(markup)}
	if rawURL != "" {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse page url: %w", err)
		}
		snap.URL = u
	}
	return snap, nil
}

// Body returns the document body, or the document root when the capture
// has no body element.
func (s *Snapshot) Body() *goquery.Selection {
	body := s.Doc.Find("body").First()
	if body.Length() == 0 {
		return s.Doc.Selection
	}
	return body
}

// Hostname returns the lowercase hostname, or "" without a URL.
func (s *Snapshot) Hostname() string {
	if s.URL == nil {
		return ""
	}
	return strings.ToLower(s.URL.Hostname())
}

// IsVisible reports whether a node would render with a non-empty box.
// It honors capture annotations first and falls back to static hints
// (hidden attributes, inline display/visibility styles) for documents
// parsed without annotation.
func IsVisible(sel *goquery.Selection) bool {
	if sel == nil || sel.Length() == 0 {
		return false
	}
	for cur := sel; cur.Length() > 0; cur = cur.Parent() {
		node := cur.Get(0)
		if node.Type != html.ElementNode {
			continue
		}
		if _, ok := cur.Attr(HiddenAttr); ok {
			return false
		}
		if _, ok := cur.Attr("hidden"); ok {
			return false
		}
		if v, _ := cur.Attr("aria-hidden"); v == "true" {
			return false
		}
		if node.Data == "input" {
			if v, _ := cur.Attr("type"); strings.EqualFold(v, "hidden") {
				return false
			}
		}
		style := normalizeStyle(cur)
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
		if node.Data == "html" {
			break
		}
	}
	return true
}

// IsStruckThrough reports whether a node renders with line-through
// decoration, i.e. a pre-discount price rather than the charged one.
func IsStruckThrough(sel *goquery.Selection) bool {
	if sel == nil || sel.Length() == 0 {
		return false
	}
	for cur := sel; cur.Length() > 0; cur = cur.Parent() {
		node := cur.Get(0)
		if node.Type != html.ElementNode {
			continue
		}
		switch node.Data {
		case "s", "del", "strike":
			return true
		case "html":
			return false
		}
		if _, ok := cur.Attr(StruckAttr); ok {
			return true
		}
		if strings.Contains(normalizeStyle(cur), "line-through") {
			return true
		}
	}
	return false
}

// Text returns the node text with whitespace runs collapsed.
func Text(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}
	return CollapseSpace(sel.Text())
}

// CollapseSpace squeezes whitespace runs into single spaces and trims.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateBytes shortens s to at most max bytes without splitting a
// multi-byte rune.
func TruncateBytes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func normalizeStyle(sel *goquery.Selection) string {
	style, _ := sel.Attr("style")
	return strings.ReplaceAll(strings.ToLower(style), " ", "")
}
