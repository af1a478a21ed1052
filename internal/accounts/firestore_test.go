package accounts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(ClientOpts{
		BaseURL:   url,
		ProjectID: "demo-project",
		APIKey:    "test-key",
	})
}

func TestTotalBalance(t *testing.T) {
	var req *http.Request
	var body []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"document":{"name":"projects/demo-project/databases/(default)/documents/accounts/acc1","fields":{"balance":{"doubleValue":1200.50},"customer_firestore_id":{"stringValue":"cust-1"}}}},
			{"document":{"name":"projects/demo-project/databases/(default)/documents/accounts/acc2","fields":{"balance":{"integerValue":"300"},"customer_firestore_id":{"stringValue":"cust-1"}}}},
			{"readTime":"2026-01-01T00:00:00Z"}
		]`))
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	total, err := client.TotalBalance(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, 1500.50, total)

	assert.Equal(t, "/projects/demo-project/databases/(default)/documents:runQuery", req.URL.Path)
	assert.Equal(t, "test-key", req.URL.Query().Get("key"))

	var q struct {
		StructuredQuery struct {
			Where struct {
				FieldFilter struct {
					Field struct {
						FieldPath string `json:"fieldPath"`
					} `json:"field"`
					Op    string `json:"op"`
					Value struct {
						StringValue string `json:"stringValue"`
					} `json:"value"`
				} `json:"fieldFilter"`
			} `json:"where"`
		} `json:"structuredQuery"`
	}
	require.NoError(t, json.Unmarshal(body, &q))
	assert.Equal(t, "customer_firestore_id", q.StructuredQuery.Where.FieldFilter.Field.FieldPath)
	assert.Equal(t, "EQUAL", q.StructuredQuery.Where.FieldFilter.Op)
	assert.Equal(t, "cust-1", q.StructuredQuery.Where.FieldFilter.Value.StringValue)
}

func TestTotalBalanceNoAccounts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"readTime":"2026-01-01T00:00:00Z"}]`))
	}))
	defer ts.Close()

	total, err := newTestClient(ts.URL).TotalBalance(context.Background(), "cust-none")
	require.NoError(t, err)
	assert.Equal(t, 0.0, total)
}

func TestUserAccountByFirebaseUID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"document":{"name":"projects/p/databases/(default)/documents/user_accounts/ua1","fields":{"firebase_uid":{"stringValue":"uid-1"},"customer_firestore_id":{"stringValue":"cust-1"},"display_name":{"stringValue":"Alex"}}}}
		]`))
	}))
	defer ts.Close()

	acct, err := newTestClient(ts.URL).UserAccountByFirebaseUID(context.Background(), "uid-1")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, "ua1", acct.DocID)
	assert.Equal(t, "uid-1", acct.FirebaseUID)
	assert.Equal(t, "cust-1", acct.CustomerID)
	assert.Equal(t, "Alex", acct.DisplayName)
}

func TestUserAccountByFirebaseUIDMissing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"readTime":"2026-01-01T00:00:00Z"}]`))
	}))
	defer ts.Close()

	acct, err := newTestClient(ts.URL).UserAccountByFirebaseUID(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, acct)
}

func TestFinancialProfile(t *testing.T) {
	var req *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"projects/p/databases/(default)/documents/financial_profiles/cust-1","fields":{"final_adjusted_fcf":{"doubleValue":425.75}}}`))
	}))
	defer ts.Close()

	profile, err := newTestClient(ts.URL).FinancialProfile(context.Background(), "cust-1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "cust-1", profile.DocID)
	assert.Equal(t, 425.75, profile.FinalAdjustedFCF)
	assert.Equal(t, "/projects/demo-project/databases/(default)/documents/financial_profiles/cust-1", req.URL.Path)
}

func TestFinancialProfileNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404}}`, http.StatusNotFound)
	}))
	defer ts.Close()

	profile, err := newTestClient(ts.URL).FinancialProfile(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestServerErrorSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).TotalBalance(context.Background(), "cust-1")
	assert.ErrorContains(t, err, "status: 500")
}
