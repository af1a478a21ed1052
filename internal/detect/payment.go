package detect

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/mvidia/checkout-guard/internal/page"
)

// PaymentHint flags a risky payment offer found in a payment section.
type PaymentHint struct {
	Type    string // currently only "bnpl"
	Keyword string
	Details string
}

// FindPaymentSection locates payment/billing markup in scope. Candidates
// whose text mentions cart or subtotal are vetoed since summary blocks
// frequently reuse payment-ish class names.
func FindPaymentSection(scope *goquery.Selection) *goquery.Selection {
	isCandidate := func(node *goquery.Selection) bool {
		if node == nil || node.Length() == 0 {
			return false
		}
		text := strings.ToLower(node.Text())
		if strings.Contains(text, "cart") || strings.Contains(text, "subtotal") {
			return false
		}
		return page.IsVisible(node)
	}

	for _, selector := range PaymentSectionSelectors {
		match := scope.Find(selector).First()
		if isCandidate(match) {
			return match
		}
	}

	var section *goquery.Selection
	scope.Find("h1, h2, h3, h4, [role='heading']").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		text := strings.ToLower(h.Text())
		if strings.Contains(text, "payment") || strings.Contains(text, "billing") ||
			strings.Contains(text, "installment") || strings.Contains(text, "financing") {
			container := h.Closest("section, div, form")
			if isCandidate(container) {
				section = container
				return false
			}
		}
		return true
	})
	return section
}

// DetectBNPLHint reports a buy-now-pay-later offer inside scope's
// payment section, or nil when none is found.
func DetectBNPLHint(scope *goquery.Selection) *PaymentHint {
	if scope == nil || scope.Length() == 0 {
		return nil
	}
	section := FindPaymentSection(scope)
	if section == nil {
		return nil
	}
	keyword := MatchBNPLKeyword(page.Text(section))
	if keyword == "" {
		return nil
	}
	return &PaymentHint{
		Type:    "bnpl",
		Keyword: keyword,
		Details: extractSnippet(section, keyword),
	}
}

// extractSnippet pulls the text around the matched keyword for display.
func extractSnippet(node *goquery.Selection, keyword string) string {
	text := node.Text()
	idx := strings.Index(strings.ToLower(text), strings.ToLower(keyword))
	if idx == -1 {
		return page.CollapseSpace(page.TruncateBytes(text, 160))
	}
	start := idx - 120
	if start < 0 {
		start = 0
	}
	for start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}
	return page.CollapseSpace(page.TruncateBytes(text[start:], idx-start+240))
}
