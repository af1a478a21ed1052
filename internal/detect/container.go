package detect

import (
	"sort"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/mvidia/checkout-guard/internal/page"
)

const (
	ancestorWalkDepth   = 6
	selfWeight          = 4.0
	checkoutButtonBonus = 2.0
)

// FindCartContainer locates the element most likely to hold the cart.
// Explicit container selectors win when one matches; otherwise every
// visible price node votes for its ancestors and the highest-scoring
// valid ancestor is chosen.
func FindCartContainer(snap *page.Snapshot) *goquery.Selection {
	for _, selector := range ExplicitContainerSelectors {
		el := snap.Doc.Find(selector).First()
		if el.Length() > 0 && IsValidCartContainer(el) {
			return el
		}
	}

	type candidate struct {
		sel   *goquery.Selection
		score float64
	}
	scores := make(map[*html.Node]*candidate)

	for _, node := range VisiblePriceNodes(snap.Body()) {
		current := node.Parent()
		for depth := 0; depth < ancestorWalkDepth && current.Length() > 0; depth++ {
			if !IsValidCartContainer(current) {
				current = current.Parent()
				continue
			}
			key := current.Get(0)
			entry := scores[key]
			if entry == nil {
				entry = &candidate{sel: current}
				scores[key] = entry
			}
			if depth == 0 {
				entry.score += selfWeight
			} else {
				entry.score += 1.0 / float64(depth+1)
			}
			if current.Find(checkoutButtonSelector).Length() > 0 {
				entry.score += checkoutButtonBonus
			}
			current = current.Parent()
		}
	}

	candidates := make([]*candidate, 0, len(scores))
	for _, c := range scores {
		if IsValidCartContainer(c.sel) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	return candidates[0].sel
}

// FindAncestorItem resolves a price or item node to the element treated
// as one cart line: the nearest ancestor matching an item selector
// within six levels, else the nearest generic block element.
func FindAncestorItem(node *goquery.Selection) *goquery.Selection {
	current := node
	for depth := 0; depth < ancestorWalkDepth && current.Length() > 0; depth++ {
		if current.Is(cartItemSelector) {
			return current
		}
		current = current.Parent()
	}
	closest := node.Closest("li, article, section, div")
	if closest.Length() == 0 {
		return nil
	}
	return closest
}
