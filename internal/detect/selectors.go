// Package detect implements the heuristic checkout-detection engine:
// cart container location, explicit total extraction, payment section
// discovery and the scored checkout-context classifier. All heuristics
// are best effort and tuned against common storefront markup; a miss is
// never an error, just a "not found".
package detect

import "strings"

// Selector tables are kept as declarative package-level configuration so
// per-site calibration does not require touching the heuristics.

var CartItemSelectors = []string{
	".cart-item",
	".line-item",
	"li.cart__row",
	".checkout-cart-item",
	".order-summary__section .product",
	".basket-item",
	".cart__item",
	".sc-list-item.sc-list-item-border",
	`[data-asin][data-removed="false"]`,
}

var PriceSelectors = []string{
	".price",
	".cart-item__price",
	".line-price",
	".product-price",
	".order-summary__emphasis",
	".a-price .a-offscreen",
	`[data-test='line-item-price']`,
	`[data-qa='cart-item-price']`,
}

var TotalSelectors = []string{
	"#sc-subtotal-amount-activecart",
	`[data-test='subtotal-amount']`,
	`[data-testid*='subtotal' i]`,
	`[data-qa*='subtotal' i]`,
	`[id*='subtotal' i]`,
	`[class*='subtotal' i]`,
	`[data-test='order-total']`,
	`[data-testid*='order-total' i]`,
	`[data-qa*='order-total' i]`,
	"#order-total",
	`[id*='order-total' i]`,
	".order-total",
	`[class*='order-total' i]`,
	`[data-test='grand-total']`,
	`[data-testid*='grand-total' i]`,
	`[data-qa*='grand-total' i]`,
	`[id*='grand-total' i]`,
	`[class*='grand-total' i]`,
	".total-price",
	`[class*='total' i]`,
	`[id*='total' i]`,
	// eBay
	`[data-test-id='CART_SUMMARY_SUBTOTAL']`,
	`[data-test-id*='subtotal' i]`,
	".cart-summary-subtotal",
	".cart-subtotal",
	".subtotal-amount",
	// Shopify
	".cart__subtotal",
	".order-summary__section--subtotal",
	".payment-due-label",
	".skeleton-while-loading--tabular-nums",
	// WooCommerce
	".cart-subtotal .amount",
	".order-total .amount",
	".woocommerce-Price-amount",
	// generic
	`[data-price-target='subtotal']`,
	`[data-automation-id*='subtotal']`,
	".checkout-subtotal",
	".cart-total-price",
	".order-summary-total",
}

var QuantitySelectors = []string{
	`input[name*='quantity' i]`,
	`select[name*='quantity' i]`,
	`[data-test='item-quantity']`,
	`span[class*='quantity' i]`,
	`div[class*='quantity' i]`,
}

var ExcludeSectionSelectors = []string{
	"#sc-saved-cart",
	".saved-items",
	".save-for-later",
	".sc-recommendations",
	".sc-upsell",
	".recommendations",
	`[data-component-type='s-atf-recs']`,
	`[data-test='cart-saved-for-later']`,
}

var ExcludeKeywords = []string{
	"save for later",
	"saved items",
	"sponsored",
	"recommend",
	"frequently bought",
	"customers also bought",
	"related items",
}

var CheckoutButtonSelectors = []string{
	"#sc-buy-box-ptc-button",
	"#sc-buy-box-ptc-button-announce",
	`button[name*='checkout' i]`,
	`button[id*='checkout' i]`,
	`button[data-test*='checkout' i]`,
	`button[data-action*='proceed-to-checkout' i]`,
	`button[data-testid*='checkout' i]`,
	`a[href*='checkout' i]`,
}

var ExplicitContainerSelectors = []string{
	"#sc-active-cart",
	"#cart-root",
	`form[action*='cart']`,
	".cart-items",
	`[data-test='cart-root']`,
	`[data-testid='cart-root']`,
	`section[aria-label*='cart']`,
}

var PaymentSectionSelectors = []string{
	"#payment-section",
	"#payment-options",
	"#payment-methods",
	"#checkout-payment",
	`form[name*='payment']`,
	`form[action*='payment']`,
	`section[data-test*='payment']`,
	`section[aria-label*='payment']`,
	".payment-options",
	".payment-section",
	".payment-method",
	"#pmts",
	"#spc-payment",
	"#payment-information",
}

// BNPLKeywords flag buy-now-pay-later offers in payment sections and
// intent triggers. Lowercase, matched by substring.
var BNPLKeywords = []string{
	"pay later",
	"pay over time",
	"pay in 4",
	"pay in four",
	"installments",
	"installment",
	"buy now pay later",
	"bnpl",
	"financing",
	"interest-free",
	"affirm",
	"klarna",
	"afterpay",
	"sezzle",
	"zip",
	"paypal credit",
	"split it",
	"pay monthly",
	"pay weekly",
}

var CheckoutKeywords = []string{"cart", "checkout", "bag", "basket", "review"}

// SubtotalKeywords drive the text-scan total search, in priority order.
var SubtotalKeywords = []string{
	"subtotal",
	"sub total",
	"sub-total",
	"cart total",
	"order total",
	"total",
	"amount due",
	"you pay",
}

// GenericPriceSelectors are scanned within a subtotal label's parent when
// the label itself carries no amount.
var GenericPriceSelectors = []string{
	".price", ".a-price", ".a-price-whole", ".a-color-price",
	`[class*="price"]`, `[class*="amount"]`, `[class*="total"]`,
	".cost", ".value", ".sum", ".currency",
	"[data-price]", "[data-amount]", "[data-total]",
}

var (
	cartItemSelector       = strings.Join(CartItemSelectors, ", ")
	priceSelector          = strings.Join(PriceSelectors, ", ")
	totalSelector          = strings.Join(TotalSelectors, ", ")
	quantitySelector       = strings.Join(QuantitySelectors, ", ")
	excludeSectionSelector = strings.Join(ExcludeSectionSelectors, ", ")
	checkoutButtonSelector = strings.Join(CheckoutButtonSelectors, ", ")
	genericPriceSelector   = strings.Join(GenericPriceSelectors, ", ")
)

// MatchBNPLKeyword returns the first buy-now-pay-later keyword found in
// text, or "".
func MatchBNPLKeyword(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range BNPLKeywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

// ContainsCheckoutKeyword reports whether text mentions a cart/checkout
// term.
func ContainsCheckoutKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range CheckoutKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func containsExcludedKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range ExcludeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
