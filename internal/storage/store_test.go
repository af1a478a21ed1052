package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	key, err := DeriveKey("test-passphrase")
	require.NoError(t, err)
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "guard.db"), key)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUserRoundTrip(t *testing.T) {
	store := newTestStore(t)

	missing, err := store.GetUser("uid-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	user := &StoredUser{
		FirebaseUID: "uid-1",
		CustomerID:  "cust-1",
		DisplayName: "Alex",
		Balance:     1200.50,
		SavingsGoal: 5000,
	}
	require.NoError(t, store.SaveUser(user))
	assert.False(t, user.UpdatedAt.IsZero())

	got, err := store.GetUser("uid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "cust-1", got.CustomerID)
	assert.Equal(t, "Alex", got.DisplayName)
	assert.Equal(t, 1200.50, got.Balance)
	assert.Equal(t, 5000.0, got.SavingsGoal)
}

func TestSaveUserUpsert(t *testing.T) {
	store := newTestStore(t)

	user := &StoredUser{FirebaseUID: "uid-1", CustomerID: "cust-1", DisplayName: "Alex", Balance: 100}
	require.NoError(t, store.SaveUser(user))

	user.Balance = 250
	require.NoError(t, store.SaveUser(user))

	got, err := store.GetUser("uid-1")
	require.NoError(t, err)
	assert.Equal(t, 250.0, got.Balance)
}

func TestDeleteUser(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveUser(&StoredUser{FirebaseUID: "uid-1", CustomerID: "c", DisplayName: "A"}))
	require.NoError(t, store.DeleteUser("uid-1"))

	got, err := store.GetUser("uid-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestActiveUser(t *testing.T) {
	store := newTestStore(t)

	none, err := store.ActiveUser()
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, store.SaveUser(&StoredUser{FirebaseUID: "uid-1", CustomerID: "c1", DisplayName: "A"}))
	require.NoError(t, store.SaveUser(&StoredUser{FirebaseUID: "uid-2", CustomerID: "c2", DisplayName: "B"}))

	active, err := store.ActiveUser()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "uid-2", active.FirebaseUID)
}

func TestProfileIsEncryptedAtRest(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveUser(&StoredUser{FirebaseUID: "uid-1", CustomerID: "c", DisplayName: "A", Balance: 1234.56}))

	var encrypted string
	err := store.db.QueryRow("SELECT encrypted_profile FROM users WHERE firebase_uid = ?", "uid-1").Scan(&encrypted)
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "1234.56")
	assert.NotContains(t, encrypted, "balance")
}

func TestSummaryRoundTrip(t *testing.T) {
	store := newTestStore(t)

	none, err := store.GetSummary()
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, store.SaveSummary(&Summary{
		Status:         "active",
		Total:          87.50,
		CurrencySymbol: "$",
		PaymentHint:    "klarna",
		Balance:        1200,
	}))
	require.NoError(t, store.SaveSummary(&Summary{
		Status:         "inactive",
		CurrencySymbol: "$",
		Balance:        1200,
	}))

	got, err := store.GetSummary()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "inactive", got.Status)
	assert.Equal(t, 0.0, got.Total)
	assert.Equal(t, "", got.PaymentHint)
}

func TestEncryptDecrypt(t *testing.T) {
	key, err := DeriveKey("passphrase")
	require.NoError(t, err)
	require.Len(t, key, 32)

	encrypted, err := Encrypt([]byte(`{"balance": 42}`), key)
	require.NoError(t, err)

	plaintext, err := Decrypt(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, `{"balance": 42}`, string(plaintext))

	otherKey, err := DeriveKey("wrong")
	require.NoError(t, err)
	_, err = Decrypt(encrypted, otherKey)
	assert.Error(t, err)
}
