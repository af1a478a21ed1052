package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// StoredUser is the signed-in user the guard works on behalf of. The
// financial fields are encrypted at rest.
type StoredUser struct {
	FirebaseUID string
	CustomerID  string
	DisplayName string
	Balance     float64
	SavingsGoal float64
	UpdatedAt   time.Time
}

// profileBlob holds the fields that get encrypted before hitting disk.
type profileBlob struct {
	Balance     float64 `json:"balance"`
	SavingsGoal float64 `json:"savings_goal"`
}

// Summary is the last published guard state, kept to one row so other
// local tooling can read the current status.
type Summary struct {
	Status         string
	Total          float64
	CurrencySymbol string
	PaymentHint    string
	Balance        float64
	UpdatedAt      time.Time
}

// UserStore defines the persistence interface used by the guard session.
type UserStore interface {
	GetUser(firebaseUID string) (*StoredUser, error)
	SaveUser(user *StoredUser) error
	DeleteUser(firebaseUID string) error
	ActiveUser() (*StoredUser, error)

	SaveSummary(summary *Summary) error
	GetSummary() (*Summary, error)

	Close() error
}

// SQLiteStore implements UserStore using SQLite with encrypted
// financial fields.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-backed store. The encryptionKey
// is used to encrypt the user's balance and savings goal.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	usersQuery := `
	CREATE TABLE IF NOT EXISTS users (
		firebase_uid TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		display_name TEXT NOT NULL,
		encrypted_profile TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(usersQuery)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	summaryQuery := `
	CREATE TABLE IF NOT EXISTS guard_summary (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		status TEXT NOT NULL,
		total REAL NOT NULL,
		currency_symbol TEXT NOT NULL,
		payment_hint TEXT,
		balance REAL NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err = s.db.Exec(summaryQuery)
	if err != nil {
		return fmt.Errorf("failed to create guard_summary table: %w", err)
	}

	return nil
}

// GetUser retrieves a user by Firebase UID.
// Returns nil, nil if the user doesn't exist.
func (s *SQLiteStore) GetUser(firebaseUID string) (*StoredUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getUser(firebaseUID)
}

func (s *SQLiteStore) getUser(firebaseUID string) (*StoredUser, error) {
	var customerID, displayName, encryptedProfile string
	var updatedAt time.Time

	err := s.db.QueryRow(
		"SELECT customer_id, display_name, encrypted_profile, updated_at FROM users WHERE firebase_uid = ?",
		firebaseUID,
	).Scan(&customerID, &displayName, &encryptedProfile, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	blob, err := s.decryptProfile(encryptedProfile)
	if err != nil {
		return nil, err
	}

	return &StoredUser{
		FirebaseUID: firebaseUID,
		CustomerID:  customerID,
		DisplayName: displayName,
		Balance:     blob.Balance,
		SavingsGoal: blob.SavingsGoal,
		UpdatedAt:   updatedAt,
	}, nil
}

func (s *SQLiteStore) decryptProfile(encrypted string) (*profileBlob, error) {
	profileJSON, err := Decrypt(encrypted, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt profile: %w", err)
	}

	var blob profileBlob
	if err := json.Unmarshal(profileJSON, &blob); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &blob, nil
}

// SaveUser stores or updates a user.
func (s *SQLiteStore) SaveUser(user *StoredUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profileJSON, err := json.Marshal(profileBlob{
		Balance:     user.Balance,
		SavingsGoal: user.SavingsGoal,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	encryptedProfile, err := Encrypt(profileJSON, s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt profile: %w", err)
	}

	user.UpdatedAt = time.Now()

	_, err = s.db.Exec(`
		INSERT INTO users (firebase_uid, customer_id, display_name, encrypted_profile, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(firebase_uid) DO UPDATE SET
			customer_id = excluded.customer_id,
			display_name = excluded.display_name,
			encrypted_profile = excluded.encrypted_profile,
			updated_at = excluded.updated_at
	`, user.FirebaseUID, user.CustomerID, user.DisplayName, encryptedProfile, user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

// DeleteUser removes a user by Firebase UID.
func (s *SQLiteStore) DeleteUser(firebaseUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM users WHERE firebase_uid = ?", firebaseUID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}

// ActiveUser returns the most recently updated user, or nil when no
// user has signed in yet.
func (s *SQLiteStore) ActiveUser() (*StoredUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var firebaseUID string
	err := s.db.QueryRow(
		"SELECT firebase_uid FROM users ORDER BY updated_at DESC LIMIT 1",
	).Scan(&firebaseUID)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active user: %w", err)
	}

	return s.getUser(firebaseUID)
}

// SaveSummary upserts the single published summary row.
func (s *SQLiteStore) SaveSummary(summary *Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary.UpdatedAt = time.Now()

	_, err := s.db.Exec(`
		INSERT INTO guard_summary (id, status, total, currency_symbol, payment_hint, balance, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			total = excluded.total,
			currency_symbol = excluded.currency_symbol,
			payment_hint = excluded.payment_hint,
			balance = excluded.balance,
			updated_at = excluded.updated_at
	`, summary.Status, summary.Total, summary.CurrencySymbol, summary.PaymentHint, summary.Balance, summary.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}

	return nil
}

// GetSummary returns the last published summary, or nil before the
// first publish.
func (s *SQLiteStore) GetSummary() (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary Summary
	err := s.db.QueryRow(
		"SELECT status, total, currency_symbol, payment_hint, balance, updated_at FROM guard_summary WHERE id = 1",
	).Scan(&summary.Status, &summary.Total, &summary.CurrencySymbol, &summary.PaymentHint, &summary.Balance, &summary.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	return &summary, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
