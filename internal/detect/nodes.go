package detect

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/mvidia/checkout-guard/internal/page"
)

// InExcludedSection reports whether a node sits inside saved-for-later,
// recommendation or sponsored markup.
func InExcludedSection(sel *goquery.Selection) bool {
	return sel.Closest(excludeSectionSelector).Length() > 0
}

// ContainsExcludedText reports whether the node's text mentions an
// excluded keyword ("save for later", "sponsored", ...).
func ContainsExcludedText(sel *goquery.Selection) bool {
	return containsExcludedKeyword(sel.Text())
}

// IsValidCartContainer applies the container validity checks: visible,
// outside excluded sections, no excluded keywords in its text.
func IsValidCartContainer(sel *goquery.Selection) bool {
	if sel == nil || sel.Length() == 0 || !page.IsVisible(sel) {
		return false
	}
	if InExcludedSection(sel) {
		return false
	}
	return !ContainsExcludedText(sel)
}

// VisiblePriceNodes returns every price-looking node in scope that is
// visible, not excluded and not struck through.
func VisiblePriceNodes(scope *goquery.Selection) []*goquery.Selection {
	var nodes []*goquery.Selection
	scope.Find(priceSelector).Each(func(_ int, s *goquery.Selection) {
		if page.IsVisible(s) && !ContainsExcludedText(s) && !page.IsStruckThrough(s) {
			nodes = append(nodes, s)
		}
	})
	return nodes
}

// VisibleQuantityNodes returns the visible quantity controls in scope.
func VisibleQuantityNodes(scope *goquery.Selection) []*goquery.Selection {
	var nodes []*goquery.Selection
	scope.Find(quantitySelector).Each(func(_ int, s *goquery.Selection) {
		if page.IsVisible(s) {
			nodes = append(nodes, s)
		}
	})
	return nodes
}
