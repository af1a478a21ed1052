// Package overlay renders the advisory surface as a pure function of
// aggregated cart state and drives its visibility. The actual DOM
// mounting is behind the Surface interface so the engine can run against
// a real page or a test fake.
package overlay

import (
	"fmt"
	"math"
	"strings"

	"github.com/mvidia/checkout-guard/internal/cart"
	"github.com/mvidia/checkout-guard/internal/detect"
	"github.com/mvidia/checkout-guard/internal/price"
)

// View is everything the overlay card displays.
type View struct {
	BalanceText  string
	TotalText    string
	ChipText     string
	ChipNegative bool
	Tip          string
	Caption      string
	// Progress is the spent share of the balance, clamped to [0, 1].
	Progress float64
}

// BuildView derives the card contents. A BNPL payment hint switches the
// card into installment-warning mode and suppresses the remaining-funds
// math.
func BuildView(balance, total float64, symbol string, hint *detect.PaymentHint, caption string) View {
	v := View{
		BalanceText: price.Format(symbol, balance),
		Caption:     caption,
	}

	if hint != nil && hint.Type == "bnpl" {
		v.TotalText = "Installment plan detected"
		v.ChipText = "Installments"
		v.ChipNegative = true
		v.Tip = "Installments detected. Verify total financed cost and schedule."
		v.Progress = 1
		return v
	}

	remaining := balance - total
	v.TotalText = price.Format(symbol, total)
	v.ChipText = price.Format(symbol, remaining)
	v.ChipNegative = remaining < 0
	if remaining < 0 {
		v.Tip = fmt.Sprintf("This puts you %s below zero.", price.Format(symbol, -remaining))
	} else {
		v.Tip = fmt.Sprintf("You'll have %s left.", price.Format(symbol, remaining))
	}

	if balance <= 0 {
		v.Progress = 1
		return v
	}
	frac := total / balance
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	v.Progress = frac
	return v
}

// HighestItemTitle returns the title of the costliest plausible item,
// for the "remove X to stay on budget" tip. Titles that look like CSS
// soup scraped out of style blocks are ignored.
func HighestItemTitle(items []cart.Item) string {
	best := ""
	bestAmount := 0.0
	for _, item := range items {
		if !plausibleTitle(item.Title) {
			continue
		}
		if best == "" || item.Amount > bestAmount {
			best = item.Title
			bestAmount = item.Amount
		}
	}
	return best
}

func plausibleTitle(title string) bool {
	if strings.TrimSpace(title) == "" || len(title) >= 100 {
		return false
	}
	for _, junk := range []string{"{", "}", "display:", "flex", "float:"} {
		if strings.Contains(title, junk) {
			return false
		}
	}
	return true
}

// GoalCaption projects the purchase against the user's monthly free
// cash flow and savings goal. It returns "" when either figure is
// missing, in which case the caller falls back to FallbackCaption.
func GoalCaption(savingsGoal, freeCashFlow, cartTotal float64, symbol, highestItem string) string {
	if savingsGoal <= 0 || freeCashFlow <= 0 {
		return ""
	}
	projected := freeCashFlow - cartTotal
	goal := price.Format(symbol, savingsGoal)
	if projected > 0 {
		months := int(math.Ceil(savingsGoal / projected))
		if months <= 12 {
			return fmt.Sprintf("Great! This purchase keeps you on track to reach your %s savings goal in %d months.", goal, months)
		}
		return fmt.Sprintf("This purchase is affordable, but you'll need %d months to reach your %s savings goal.", months, goal)
	}
	if highestItem == "" {
		highestItem = "an item"
	}
	overspend := price.Format(symbol, -projected)
	return fmt.Sprintf("Warning: This purchase exceeds your monthly net income by %s. Consider removing %s to stay on track.", overspend, highestItem)
}

// FallbackCaption is the advisory text used when no savings-goal
// projection is available.
func FallbackCaption(hint *detect.PaymentHint, highestItem string) string {
	if hint != nil {
		if hint.Details != "" {
			return hint.Details
		}
		return "Review the payment terms carefully."
	}
	if highestItem != "" {
		return fmt.Sprintf("Tip: remove %s to stay on budget.", highestItem)
	}
	return "Review your cart before purchasing."
}
