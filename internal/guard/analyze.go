package guard

import (
	"context"
	"fmt"
	"math"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/mvidia/checkout-guard/internal/cart"
	"github.com/mvidia/checkout-guard/internal/detect"
	"github.com/mvidia/checkout-guard/internal/overlay"
	"github.com/mvidia/checkout-guard/internal/page"
	"github.com/mvidia/checkout-guard/internal/storage"
)

// Analyze captures a snapshot and runs one full detection pass. With
// force set the overlay is re-shown even when the total is unchanged
// and the user dismissed it earlier.
func (s *Session) Analyze(ctx context.Context, force bool) error {
	snap, err := s.page.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture page: %w", err)
	}

	s.mu.Lock()
	prevPath := s.containerPath
	prevSymbol := s.currencySymbol
	lastTotal := s.lastTotal
	user := s.user
	s.mu.Unlock()

	pageCtx := detect.Classify(snap, prevPath)
	if !pageCtx.IsCheckout {
		s.leaveCheckout(ctx, prevSymbol, user)
		return nil
	}

	summary := cart.Collect(snap, pageCtx.Container, prevSymbol)

	// Installment wording usually sits in the payment section, which is
	// often a sibling of the cart container, so the hint scan is scoped
	// to it rather than to the cart.
	hintScope := pageCtx.PaymentSection
	if hintScope == nil {
		hintScope = snap.Body()
	}
	hint := detect.DetectBNPLHint(hintScope)

	totalChanged := math.Abs(summary.Total-lastTotal) > totalEpsilon

	var balance float64
	if user != nil {
		balance = user.Balance
	}

	caption := s.advisoryCaption(ctx, user, summary, hint)
	view := overlay.BuildView(balance, summary.Total, summary.CurrencySymbol, hint, caption)
	if err := s.overlay.Update(ctx, view); err != nil {
		log.Warn().Err(err).Msg("failed to update overlay")
	}

	// The overlay never auto-shows for an empty cart. Once the user
	// dismisses it, only a total change or a forced pass brings it back.
	shouldShow := force || totalChanged || (!s.overlay.Dismissed() && !s.overlay.Visible())
	if summary.Total > 0 && shouldShow {
		if err := s.overlay.Show(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to show overlay")
		}
	}

	s.followTotalNode(ctx, summary.TotalNode)

	hintType := ""
	if hint != nil {
		hintType = hint.Type
	}
	s.publishSummary("active", summary.Total, summary.CurrencySymbol, hintType, balance)

	s.mu.Lock()
	s.lastTotal = summary.Total
	s.currencySymbol = summary.CurrencySymbol
	if pageCtx.Container != nil {
		s.containerPath = page.Path(pageCtx.Container)
	} else {
		s.containerPath = ""
	}
	s.mu.Unlock()

	log.Debug().
		Int("score", pageCtx.Score).
		Float64("total", summary.Total).
		Int("items", len(summary.Items)).
		Bool("totalChanged", totalChanged).
		Bool("bnpl", hint != nil).
		Str("host", snap.Hostname()).
		Msg("analysis pass")

	return nil
}

// leaveCheckout resets state when the page no longer classifies as a
// checkout context.
func (s *Session) leaveCheckout(ctx context.Context, symbol string, user *storage.StoredUser) {
	if err := s.overlay.Hide(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to hide overlay")
	}

	var balance float64
	if user != nil {
		balance = user.Balance
	}
	s.publishSummary("inactive", 0, symbol, "", balance)

	s.mu.Lock()
	s.lastTotal = 0
	s.containerPath = ""
	s.totalPath = ""
	s.mu.Unlock()
}

// followTotalNode points the dedicated page-side observer at the
// explicit total node so price flips bypass the wide mutation window.
func (s *Session) followTotalNode(ctx context.Context, totalNode *goquery.Selection) {
	if totalNode == nil {
		return
	}
	path := page.Path(totalNode)
	if path == "" {
		return
	}

	s.mu.Lock()
	changed := path != s.totalPath
	s.totalPath = path
	s.mu.Unlock()

	if !changed {
		return
	}
	if err := s.page.WatchTotal(ctx, path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to watch total node")
	}
}

// advisoryCaption projects the purchase against the user's savings goal
// when their financial profile is reachable. A payment hint always takes
// precedence, and any remote failure falls back to the heuristic caption
// so a slow document store never blocks the overlay.
func (s *Session) advisoryCaption(ctx context.Context, user *storage.StoredUser, summary cart.Summary, hint *detect.PaymentHint) string {
	highest := overlay.HighestItemTitle(summary.Items)
	fallback := overlay.FallbackCaption(hint, highest)
	if hint != nil || user == nil || user.CustomerID == "" || user.SavingsGoal <= 0 || summary.Total <= 0 {
		return fallback
	}

	rctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	profile, err := s.remote.FinancialProfile(rctx, user.CustomerID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch financial profile")
		return fallback
	}
	if profile == nil {
		return fallback
	}

	caption := overlay.GoalCaption(user.SavingsGoal, profile.FinalAdjustedFCF, summary.Total, summary.CurrencySymbol, highest)
	if caption == "" {
		return fallback
	}
	return caption
}

func (s *Session) publishSummary(status string, total float64, symbol, hintType string, balance float64) {
	err := s.store.SaveSummary(&storage.Summary{
		Status:         status,
		Total:          total,
		CurrencySymbol: symbol,
		PaymentHint:    hintType,
		Balance:        balance,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to publish summary")
	}
}
