// Package guard runs the checkout watcher for a single browser tab: it
// reacts to page events, re-runs the detection pipeline, and keeps the
// balance overlay in sync with the cart.
package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mvidia/checkout-guard/internal/accounts"
	"github.com/mvidia/checkout-guard/internal/debounce"
	"github.com/mvidia/checkout-guard/internal/llm"
	"github.com/mvidia/checkout-guard/internal/overlay"
	"github.com/mvidia/checkout-guard/internal/page"
	"github.com/mvidia/checkout-guard/internal/storage"
)

const (
	// Debounce windows for the page event streams. Mutations arrive in
	// bursts during SPA re-renders; the dedicated total observer gets a
	// much tighter window so price flips feel immediate.
	mutationWindow = 200 * time.Millisecond
	quantityWindow = 150 * time.Millisecond
	totalWindow    = 50 * time.Millisecond

	// A click on the same element within this window is not
	// re-classified.
	intentWindow = 8 * time.Second

	// Timeout for document store reads during an analysis pass.
	remoteTimeout = 3 * time.Second

	// Timeout for the intent classifier call.
	classifyTimeout = 15 * time.Second

	// Totals closer than this are considered unchanged.
	totalEpsilon = 0.01

	userPollInterval = 10 * time.Second
)

// Page is the browser side of a session: snapshot capture and the
// dedicated total observer.
type Page interface {
	Snapshot(ctx context.Context) (*page.Snapshot, error)
	WatchTotal(ctx context.Context, path string) error
}

// BalanceSource reads balances and financial profiles from the customer
// document store.
type BalanceSource interface {
	TotalBalance(ctx context.Context, customerID string) (float64, error)
	UserAccountByFirebaseUID(ctx context.Context, firebaseUID string) (*accounts.UserAccount, error)
	FinancialProfile(ctx context.Context, profileID string) (*accounts.FinancialProfile, error)
}

// IntentClassifier decides whether a click commits a purchase.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, req llm.IntentRequest) (*llm.IntentResult, error)
}

// Event is a page-side notification forwarded over the CDP binding.
type Event struct {
	Kind    string   `json:"kind"`
	Path    string   `json:"path"`
	Text    string   `json:"text"`
	Context []string `json:"context"`
	URL     string   `json:"url"`
	Title   string   `json:"title"`
}

// Session drives detection and overlay state for one tab.
type Session struct {
	page       Page
	overlay    *overlay.Overlay
	store      storage.UserStore
	remote     BalanceSource
	classifier IntentClassifier

	mutations  *debounce.Debouncer
	quantities *debounce.Debouncer
	totals     *debounce.Debouncer
	clicks     *debounce.Cooldown

	// base context for callbacks fired from debounce timers
	runCtx context.Context

	mu             sync.Mutex
	user           *storage.StoredUser
	lastTotal      float64
	currencySymbol string
	containerPath  string
	totalPath      string
}

// NewSession wires a session over the given page and overlay surface.
func NewSession(pg Page, surface overlay.Surface, store storage.UserStore, remote BalanceSource, classifier IntentClassifier) *Session {
	s := &Session{
		page:       pg,
		overlay:    overlay.New(surface),
		store:      store,
		remote:     remote,
		classifier: classifier,
		clicks:     debounce.NewCooldown(intentWindow),
		runCtx:     context.Background(),
	}
	s.mutations = debounce.New(mutationWindow, s.analyzeDebounced)
	s.quantities = debounce.New(quantityWindow, s.analyzeDebounced)
	s.totals = debounce.New(totalWindow, s.analyzeDebounced)
	return s
}

// Run mounts the overlay, hydrates the active user and performs the
// initial analysis, then blocks until the context is cancelled.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	if err := s.overlay.Mount(ctx); err != nil {
		return fmt.Errorf("failed to mount overlay: %w", err)
	}

	s.hydrateUser(ctx)

	if err := s.Analyze(ctx, false); err != nil {
		log.Warn().Err(err).Msg("initial analysis failed")
	}

	pruneTicker := time.NewTicker(intentWindow)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mutations.Stop()
			s.quantities.Stop()
			s.totals.Stop()
			log.Info().Msg("guard session stopped")
			return ctx.Err()
		case <-pruneTicker.C:
			s.clicks.Prune()
		}
	}
}

// HandleEvent dispatches a page event to the matching debouncer. Click
// events bypass debouncing and go straight to intent handling.
func (s *Session) HandleEvent(ev Event) {
	switch ev.Kind {
	case "mutation":
		s.mutations.Trigger()
	case "quantity":
		s.quantities.Trigger()
	case "total":
		s.totals.Trigger()
	case "click":
		go s.HandleClick(s.baseContext(), ev)
	case "dismiss":
		// the page already hid the host; record the dismissal
		if err := s.overlay.Hide(s.baseContext()); err != nil {
			log.Warn().Err(err).Msg("failed to record dismissal")
		}
	default:
		log.Debug().Str("kind", ev.Kind).Msg("ignoring unknown page event")
	}
}

func (s *Session) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCtx
}

func (s *Session) analyzeDebounced() {
	if err := s.Analyze(s.baseContext(), false); err != nil {
		log.Warn().Err(err).Msg("analysis failed")
	}
}

// SignIn resolves the Firebase UID to a customer record and persists it
// as the active user.
func (s *Session) SignIn(ctx context.Context, firebaseUID string) error {
	rctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	acct, err := s.remote.UserAccountByFirebaseUID(rctx, firebaseUID)
	if err != nil {
		return fmt.Errorf("failed to look up user account: %w", err)
	}
	if acct == nil {
		return fmt.Errorf("no account record for uid %s", firebaseUID)
	}

	user := &storage.StoredUser{
		FirebaseUID: acct.FirebaseUID,
		CustomerID:  acct.CustomerID,
		DisplayName: acct.DisplayName,
	}
	if err := s.store.SaveUser(user); err != nil {
		return err
	}

	s.hydrateUser(ctx)
	log.Info().Str("displayName", acct.DisplayName).Msg("user signed in")
	return nil
}

// hydrateUser loads the active user and refreshes their balance from
// the document store. Remote failures keep the stored balance.
func (s *Session) hydrateUser(ctx context.Context) {
	user, err := s.store.ActiveUser()
	if err != nil {
		log.Error().Err(err).Msg("failed to load active user")
		return
	}
	if user == nil {
		s.mu.Lock()
		s.user = nil
		s.mu.Unlock()
		return
	}

	if user.CustomerID != "" {
		rctx, cancel := context.WithTimeout(ctx, remoteTimeout)
		balance, err := s.remote.TotalBalance(rctx, user.CustomerID)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("failed to refresh balance, using stored value")
		} else if balance != user.Balance {
			user.Balance = balance
			if err := s.store.SaveUser(user); err != nil {
				log.Warn().Err(err).Msg("failed to persist refreshed balance")
			}
		}
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
}

// WatchUser polls the store for user changes made by other processes
// (sign-in, balance edits) and forces a refresh when one lands.
func (s *Session) WatchUser(ctx context.Context) error {
	ticker := time.NewTicker(userPollInterval)
	defer ticker.Stop()

	var lastSeen time.Time
	if u, err := s.store.ActiveUser(); err == nil && u != nil {
		lastSeen = u.UpdatedAt
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			user, err := s.store.ActiveUser()
			if err != nil {
				log.Error().Err(err).Msg("failed to poll active user")
				continue
			}
			if user == nil || user.UpdatedAt.Equal(lastSeen) {
				continue
			}
			lastSeen = user.UpdatedAt
			log.Info().Str("displayName", user.DisplayName).Msg("active user changed")
			s.hydrateUser(ctx)
			if err := s.Analyze(ctx, true); err != nil {
				log.Warn().Err(err).Msg("analysis after user change failed")
			}
		}
	}
}
