package detect

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mvidia/checkout-guard/internal/page"
	"github.com/mvidia/checkout-guard/internal/price"
)

// subtotalLabelMaxLen caps the text length of a keyword hit so a whole
// summary block is never mistaken for a label.
const subtotalLabelMaxLen = 150

const siblingScanLimit = 3

// TotalMatch is an explicitly labeled total amount and the node carrying
// it, so callers can attach a dedicated observer to that node.
type TotalMatch struct {
	Node  *goquery.Selection
	Price price.Price
}

var (
	subtotalRank = regexp.MustCompile(`(?i)sub\s*total`)
	orderRank    = regexp.MustCompile(`(?i)order\s*total`)
	grandRank    = regexp.MustCompile(`(?i)grand\s*total`)
)

// FindExplicitTotal locates a rendered subtotal/total figure. The text
// scan runs first; when it finds nothing the selector tables take over,
// ranked by label specificity (subtotal > order total > grand total >
// unranked).
func FindExplicitTotal(snap *page.Snapshot, scope *goquery.Selection) *TotalMatch {
	if match := findSubtotalByText(snap); match != nil {
		return match
	}

	type ranked struct {
		node  *goquery.Selection
		price *price.Price
		rank  int
	}
	var valid []ranked
	for _, node := range FindTotalNodes(scope) {
		p := price.Parse(node.Text())
		if p == nil {
			continue
		}
		valid = append(valid, ranked{node: node, price: p, rank: labelRank(node.Text())})
	}
	if len(valid) == 0 {
		return nil
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].rank < valid[j].rank })
	return &TotalMatch{Node: valid[0].node, Price: *valid[0].price}
}

// FindTotalNodes returns the visible, non-excluded nodes matching the
// total selector tables.
func FindTotalNodes(scope *goquery.Selection) []*goquery.Selection {
	var nodes []*goquery.Selection
	scope.Find(totalSelector).Each(func(_ int, s *goquery.Selection) {
		if !page.IsVisible(s) || InExcludedSection(s) {
			return
		}
		nodes = append(nodes, s)
	})
	return nodes
}

// findSubtotalByText scans the whole document for subtotal keywords in
// priority order. A keyword hit under the length cap is probed for a
// price on the element itself, its parent, generic price nodes under the
// parent, then up to three siblings on each side. Candidates mentioning
// shipping, tax or fees are skipped.
func findSubtotalByText(snap *page.Snapshot) *TotalMatch {
	var all []*goquery.Selection
	snap.Doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		all = append(all, s)
	})

	for _, keyword := range SubtotalKeywords {
		for _, element := range all {
			text := element.Text()
			if len(text) >= subtotalLabelMaxLen || !page.IsVisible(element) {
				continue
			}
			lower := strings.ToLower(text)
			if !strings.Contains(lower, keyword) {
				continue
			}
			if strings.Contains(lower, "shipping") || strings.Contains(lower, "tax") || strings.Contains(lower, "fee") {
				continue
			}

			if p := price.Parse(text); p != nil && p.Amount > 0 {
				return &TotalMatch{Node: element, Price: *p}
			}

			parent := element.Parent()
			if parent.Length() > 0 {
				if p := price.Parse(parent.Text()); p != nil && p.Amount > 0 {
					return &TotalMatch{Node: parent, Price: *p}
				}
				var match *TotalMatch
				parent.Find(genericPriceSelector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
					if !page.IsVisible(el) {
						return true
					}
					if p := price.Parse(el.Text()); p != nil && p.Amount > 0 {
						match = &TotalMatch{Node: el, Price: *p}
						return false
					}
					return true
				})
				if match != nil {
					return match
				}
			}

			if match := scanSiblings(element, true); match != nil {
				return match
			}
			if match := scanSiblings(element, false); match != nil {
				return match
			}
		}
	}
	return nil
}

func scanSiblings(element *goquery.Selection, forward bool) *TotalMatch {
	next := func(s *goquery.Selection) *goquery.Selection {
		if forward {
			return s.Next()
		}
		return s.Prev()
	}
	sib := next(element)
	for attempts := 0; attempts < siblingScanLimit && sib.Length() > 0; attempts++ {
		if page.IsVisible(sib) {
			if p := price.Parse(sib.Text()); p != nil && p.Amount > 0 {
				return &TotalMatch{Node: sib, Price: *p}
			}
		}
		sib = next(sib)
	}
	return nil
}

func labelRank(text string) int {
	switch {
	case subtotalRank.MatchString(text):
		return 0
	case orderRank.MatchString(text):
		return 1
	case grandRank.MatchString(text):
		return 2
	default:
		return 3
	}
}
