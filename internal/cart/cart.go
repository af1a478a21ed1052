// Package cart aggregates located items, prices and quantities into a
// cart snapshot. Everything is recomputed from scratch on every pass;
// nothing here survives across captures.
package cart

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/mvidia/checkout-guard/internal/detect"
	"github.com/mvidia/checkout-guard/internal/page"
	"github.com/mvidia/checkout-guard/internal/price"
)

const titleMaxLen = 160

// Item is one detected cart line.
type Item struct {
	Title     string
	UnitPrice float64
	Quantity  int
	Amount    float64
}

// Summary is the aggregated cart state for one analysis pass. Total is
// the explicit total when one was found, else the sum of item amounts,
// else zero. TotalNode carries the explicit total's node for dedicated
// observation, nil otherwise.
type Summary struct {
	Items          []Item
	Total          float64
	CurrencySymbol string
	Explicit       bool
	TotalNode      *goquery.Selection
}

var (
	titleSelector = strings.Join([]string{
		"h1", "h2", "h3", "h4",
		".title", ".product-title", ".a-truncate-cut", ".cart-item-name",
		`[data-test='cart-item-title']`, "a[href]",
	}, ", ")
	itemAndPriceSelector = strings.Join(append(append([]string{}, detect.CartItemSelectors...), detect.PriceSelectors...), ", ")
	priceSelector        = strings.Join(detect.PriceSelectors, ", ")
	digitsPattern        = regexp.MustCompile(`\d+`)
)

// Collect walks scope for cart items and computes the aggregate total.
// prevSymbol is the last known currency symbol and is kept when neither
// an explicit total nor any item reveals one.
func Collect(snap *page.Snapshot, scope *goquery.Selection, prevSymbol string) Summary {
	summary := Summary{CurrencySymbol: prevSymbol}
	if scope == nil || scope.Length() == 0 {
		return summary
	}

	seen := make(map[*html.Node]bool)
	scope.Find(itemAndPriceSelector).Each(func(_ int, node *goquery.Selection) {
		itemNode := detect.FindAncestorItem(node)
		if itemNode == nil || !detect.IsValidCartContainer(itemNode) {
			return
		}
		key := itemNode.Get(0)
		if seen[key] {
			return
		}

		p := priceForItem(itemNode)
		if p == nil {
			return
		}
		seen[key] = true

		if p.Symbol != "" {
			summary.CurrencySymbol = p.Symbol
		}
		quantity := extractQuantity(itemNode)
		summary.Items = append(summary.Items, Item{
			Title:     extractTitle(itemNode),
			UnitPrice: p.Amount,
			Quantity:  quantity,
			Amount:    p.Amount * float64(quantity),
		})
	})

	var itemsSum float64
	for _, item := range summary.Items {
		itemsSum += item.Amount
	}

	if explicit := detect.FindExplicitTotal(snap, scope); explicit != nil {
		summary.Total = explicit.Price.Amount
		summary.Explicit = true
		summary.TotalNode = explicit.Node
		if explicit.Price.Symbol != "" {
			summary.CurrencySymbol = explicit.Price.Symbol
		}
	} else if len(summary.Items) > 0 {
		summary.Total = itemsSum
	}
	return summary
}

// priceForItem extracts the charged price for one item node. When the
// item renders several price-like texts the minimum valid one wins,
// biasing toward the sale price over a struck-through original.
func priceForItem(itemNode *goquery.Selection) *price.Price {
	var candidates []*goquery.Selection
	if itemNode.Is(priceSelector) {
		candidates = append(candidates, itemNode)
	}
	itemNode.Find(priceSelector).Each(func(_ int, el *goquery.Selection) {
		candidates = append(candidates, el)
	})

	var best *price.Price
	for _, candidate := range candidates {
		if !page.IsVisible(candidate) || detect.InExcludedSection(candidate) ||
			detect.ContainsExcludedText(candidate) || page.IsStruckThrough(candidate) {
			continue
		}
		p := price.Parse(candidate.Text())
		if p == nil {
			continue
		}
		if best == nil || p.Amount < best.Amount {
			best = p
		}
	}
	if best != nil {
		return best
	}
	return price.Parse(itemNode.Text())
}

func extractTitle(itemNode *goquery.Selection) string {
	candidate := itemNode.Find(titleSelector).First()
	text := page.Text(candidate)
	if text == "" {
		text = page.Text(itemNode)
	}
	if text == "" {
		return "Item"
	}
	return page.TruncateBytes(text, titleMaxLen)
}

// extractQuantity reads the first usable quantity control inside the
// item, defaulting to one.
func extractQuantity(itemNode *goquery.Selection) int {
	for _, selector := range detect.QuantitySelectors {
		el := itemNode.Find(selector).First()
		if el.Length() == 0 || !page.IsVisible(el) {
			continue
		}
		if q := readQuantity(el); q >= 1 {
			return q
		}
	}
	return 1
}

func readQuantity(el *goquery.Selection) int {
	tag := goquery.NodeName(el)
	if tag == "select" {
		selected := el.Find("option[selected]").First()
		if v, ok := selected.Attr("value"); ok {
			if q := parseQuantity(v); q >= 1 {
				return q
			}
		}
	}
	if v, ok := el.Attr("value"); ok {
		if q := parseQuantity(v); q >= 1 {
			return q
		}
	}
	if match := digitsPattern.FindString(el.Text()); match != "" {
		if q := parseQuantity(match); q >= 1 {
			return q
		}
	}
	return 1
}

func parseQuantity(raw string) int {
	q, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || q < 1 {
		return 0
	}
	return q
}
