package guard

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mvidia/checkout-guard/internal/detect"
	"github.com/mvidia/checkout-guard/internal/llm"
)

// HandleClick classifies a click on an installment-wording trigger.
// Clicks whose text matches no buy-now-pay-later keyword never reach
// the model.
func (s *Session) HandleClick(ctx context.Context, ev Event) {
	trigger := strings.TrimSpace(ev.Text)
	if trigger == "" {
		return
	}

	if detect.MatchBNPLKeyword(trigger) == "" {
		return
	}

	if !s.clicks.Allow(ev.Path) {
		log.Debug().Str("path", ev.Path).Msg("click within cooldown, skipping classification")
		return
	}

	s.mu.Lock()
	total := s.lastTotal
	symbol := s.currencySymbol
	s.mu.Unlock()

	req := llm.IntentRequest{
		URL:              ev.URL,
		Title:            ev.Title,
		Text:             trigger,
		Context:          ev.Context,
		DetectedSubtotal: total,
		CurrencySymbol:   symbol,
	}

	rctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	result, err := s.classifier.ClassifyIntent(rctx, req)
	if err != nil {
		log.Warn().Err(err).Str("text", trigger).Msg("intent classification failed")
		if terr := s.overlay.Toast(ctx, fmt.Sprintf("Intent check failed: %v", err), "error"); terr != nil {
			log.Warn().Err(terr).Msg("failed to show toast")
		}
		return
	}

	log.Info().
		Bool("isPurchase", result.IsPurchase).
		Float64("confidence", result.Confidence).
		Str("purchaseType", result.PurchaseType).
		Str("reason", result.Reason).
		Msg("intent classified")

	if result.PurchaseType != "subscription" && result.PurchaseType != "bnpl" {
		return
	}

	confidencePercent := int(math.Round(result.Confidence * 100))
	reason := result.Reason
	if reason == "" {
		reason = "Review the payment terms before proceeding."
	}

	label, tone := "Pay later", "info"
	if result.PurchaseType == "subscription" {
		label, tone = "Subscription", "warning"
	}
	message := fmt.Sprintf("%s detected (%d%% confidence). %s", label, confidencePercent, reason)
	if err := s.overlay.Toast(ctx, message, tone); err != nil {
		log.Warn().Err(err).Msg("failed to show toast")
	}

	if err := s.Analyze(ctx, true); err != nil {
		log.Warn().Err(err).Msg("analysis after purchase intent failed")
	}
}
