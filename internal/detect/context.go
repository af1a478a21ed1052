package detect

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mvidia/checkout-guard/internal/page"
)

// DefaultThreshold is the score a page must reach to be treated as a
// checkout context unless a site policy overrides it.
const DefaultThreshold = 4

// SitePolicy is a per-host calibration entry: a score bonus for hosts
// known to be storefronts and an optional threshold override. The
// overrides are deliberate per-site tuning carried over from production
// calibration, not something to generalize.
type SitePolicy struct {
	Host      *regexp.Regexp
	Bonus     int
	Threshold int // 0 means DefaultThreshold
}

// SitePolicies lists the hosts with calibrated scoring. Walmart pages
// score lower on structural signals, hence the reduced threshold.
var SitePolicies = []SitePolicy{
	{Host: regexp.MustCompile(`(?i)amazon\.`), Bonus: 2},
	{Host: regexp.MustCompile(`(?i)ebay\.`), Bonus: 2},
	{Host: regexp.MustCompile(`(?i)walmart\.`), Bonus: 2, Threshold: 3},
}

// platformFingerprints are markup substrings identifying e-commerce
// frameworks; each present fingerprint adds one point.
var platformFingerprints = []string{"shopify", "woocommerce"}

// Context is the classifier verdict for one snapshot.
type Context struct {
	Score            int
	IsCheckout       bool
	Container        *goquery.Selection
	PaymentSection   *goquery.Selection
	ContainerChanged bool
}

// Classify computes the additive checkout score for a snapshot.
// prevContainerPath is the container handle from the previous pass; it
// is re-resolved against this snapshot and reused when still valid.
func Classify(snap *page.Snapshot, prevContainerPath string) Context {
	score := 0

	if snap.URL != nil {
		path := strings.ToLower(snap.URL.Path)
		host := snap.Hostname()
		if ContainsCheckoutKeyword(path) || ContainsCheckoutKeyword(host) {
			score += 2
		}
	}

	if ContainsCheckoutKeyword(snap.Title) {
		score++
	}

	heading := snap.Doc.Find("h1, h2").First()
	if heading.Length() > 0 && ContainsCheckoutKeyword(heading.Text()) {
		score++
	}

	container := snap.Resolve(prevContainerPath)
	if container != nil && !IsValidCartContainer(container) {
		container = nil
	}
	if container == nil {
		container = FindCartContainer(snap)
	}

	threshold := DefaultThreshold
	host := snap.Hostname()
	for _, policy := range SitePolicies {
		if policy.Threshold != 0 && policy.Host.MatchString(host) {
			threshold = policy.Threshold
		}
	}

	if container != nil {
		if len(VisiblePriceNodes(container)) >= 3 {
			score += 2
		}
		if len(VisibleQuantityNodes(container)) >= 1 {
			score++
		}
		if len(FindTotalNodes(container)) >= 1 {
			score += 2
		}
		button := container.Find(checkoutButtonSelector).First()
		if button.Length() > 0 && page.IsVisible(button) {
			score += 2
		}
		for _, policy := range SitePolicies {
			if policy.Host.MatchString(host) {
				score += policy.Bonus
			}
		}
		for _, fp := range platformFingerprints {
			if strings.Contains(snap.Raw, fp) {
				score++
			}
		}
	}

	paymentSection := FindPaymentSection(snap.Body())
	if paymentSection != nil {
		score++
	}

	containerChanged := false
	if container != nil && prevContainerPath != "" && page.Path(container) != prevContainerPath {
		containerChanged = true
	}

	return Context{
		Score:            score,
		IsCheckout:       score >= threshold,
		Container:        container,
		PaymentSection:   paymentSection,
		ContainerChanged: containerChanged,
	}
}
