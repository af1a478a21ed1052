package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mvidia/checkout-guard/config"
	"github.com/mvidia/checkout-guard/internal/accounts"
	"github.com/mvidia/checkout-guard/internal/guard"
	"github.com/mvidia/checkout-guard/internal/llm"
	"github.com/mvidia/checkout-guard/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()

	targetURL := os.Getenv("GUARD_TARGET_URL")
	if targetURL == "" {
		log.Fatal().Msg("GUARD_TARGET_URL is not set")
	}
	if os.Getenv("GEMINI_API_KEY") == "" {
		log.Fatal().Msg("GEMINI_API_KEY environment variable is required")
	}
	projectID := os.Getenv("FIRESTORE_PROJECT_ID")
	if projectID == "" {
		log.Fatal().Msg("FIRESTORE_PROJECT_ID is not set")
	}
	profileKey := os.Getenv("GUARD_PROFILE_KEY")
	if profileKey == "" {
		log.Fatal().Msg("GUARD_PROFILE_KEY is not set")
	}

	dbPath := os.Getenv("GUARD_DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(config.DataDir(), "guard.db")
	}

	encryptionKey, err := storage.DeriveKey(profileKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to derive encryption key")
	}

	store, err := storage.NewSQLiteStore(dbPath, encryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer store.Close()
	log.Info().Str("dbPath", dbPath).Msg("store initialized")

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	classifier, err := llm.NewGeminiClassifier(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gemini classifier")
	}
	log.Info().Msg("gemini intent classifier initialized")

	remote := accounts.NewClient(accounts.ClientOpts{
		ProjectID: projectID,
		APIKey:    os.Getenv("FIRESTORE_API_KEY"),
	})

	headless := !strings.EqualFold(os.Getenv("GUARD_HEADFUL"), "true")
	browser, err := guard.NewBrowser(ctx, guard.BrowserOpts{Headless: headless})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to launch browser")
	}
	defer browser.Close()

	session := guard.NewSession(browser, browser, store, remote, classifier)

	if err := browser.Open(targetURL, session.HandleEvent); err != nil {
		log.Fatal().Err(err).Msg("failed to open target page")
	}

	if uid := os.Getenv("GUARD_FIREBASE_UID"); uid != "" {
		if err := session.SignIn(ctx, uid); err != nil {
			log.Warn().Err(err).Msg("sign-in failed, running without a user")
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return session.Run(ctx)
	})

	g.Go(func() error {
		return session.WatchUser(ctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
