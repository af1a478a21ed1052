package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lithammer/dedent"

	"github.com/mvidia/checkout-guard/config"
	"github.com/mvidia/checkout-guard/internal/price"
	"github.com/mvidia/checkout-guard/internal/storage"
)

// guard-status prints the last published guard summary and the active
// user from the local database. Useful for checking what a running
// guard last saw without attaching to it.
func main() {
	var dbPath string
	flag.StringVar(&dbPath, "db", "", "Path to the guard database (defaults to the config dir)")
	flag.Parse()

	config.LoadEnvFile()

	profileKey := os.Getenv("GUARD_PROFILE_KEY")
	if profileKey == "" {
		fmt.Fprintf(os.Stderr, "GUARD_PROFILE_KEY not set\n")
		os.Exit(1)
	}

	encryptionKey, err := storage.DeriveKey(profileKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error deriving encryption key: %v\n", err)
		os.Exit(1)
	}

	if dbPath == "" {
		dbPath = os.Getenv("GUARD_DB_PATH")
	}
	if dbPath == "" {
		dbPath = filepath.Join(config.DataDir(), "guard.db")
	}

	store, err := storage.NewSQLiteStore(dbPath, encryptionKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database at %s: %v\n", dbPath, err)
		os.Exit(1)
	}
	defer store.Close()

	user, err := store.ActiveUser()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading user: %v\n", err)
		os.Exit(1)
	}

	summary, err := store.GetSummary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading summary: %v\n", err)
		os.Exit(1)
	}

	if user == nil {
		fmt.Println("No user signed in.")
	} else {
		fmt.Print(formatText(`
			User:         %s
			Customer ID:  %s
			Balance:      %s
			Updated:      %s
		`, user.DisplayName, user.CustomerID, price.Format("$", user.Balance), user.UpdatedAt.Format("2006-01-02 15:04:05")))
		fmt.Println()
	}

	if summary == nil {
		fmt.Println("No summary published yet.")
		return
	}

	hint := summary.PaymentHint
	if hint == "" {
		hint = "none"
	}
	symbol := summary.CurrencySymbol
	if symbol == "" {
		symbol = "$"
	}
	fmt.Print(formatText(`
		Status:       %s
		Cart total:   %s
		Payment hint: %s
		Published:    %s
	`, summary.Status, price.Format(symbol, summary.Total), hint, summary.UpdatedAt.Format("2006-01-02 15:04:05")))
	fmt.Println()
}

func formatText(text string, a ...interface{}) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}
