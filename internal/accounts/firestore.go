package accounts

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

const firestoreBaseURL = "https://firestore.googleapis.com/v1"

// Collections read from the customer document store.
const (
	accountsCollection     = "accounts"
	userAccountsCollection = "user_accounts"
	profilesCollection     = "financial_profiles"
)

type ClientOpts struct {
	BaseURL   string
	ProjectID string
	APIKey    string
}

// Client reads customer balances and financial profiles from the
// Firestore REST API. All access is read-only.
type Client struct {
	httpClient *resty.Client
	baseURL    string
	projectID  string
	apiKey     string
}

func NewClient(opts ClientOpts) *Client {
	c := Client{baseURL: firestoreBaseURL, projectID: opts.ProjectID, apiKey: opts.APIKey}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json")

	return &c
}

// UserAccount links a signed-in user to their customer document.
type UserAccount struct {
	DocID       string
	FirebaseUID string
	CustomerID  string
	DisplayName string
}

// FinancialProfile carries the advisory figures computed elsewhere.
type FinancialProfile struct {
	DocID            string
	FinalAdjustedFCF float64
}

// fsValue is a Firestore typed value. Exactly one field is set.
type fsValue struct {
	StringValue  *string     `json:"stringValue,omitempty"`
	DoubleValue  *float64    `json:"doubleValue,omitempty"`
	IntegerValue *string     `json:"integerValue,omitempty"`
	BooleanValue *bool       `json:"booleanValue,omitempty"`
	MapValue     *fsMapValue `json:"mapValue,omitempty"`
	NullValue    *string     `json:"nullValue,omitempty"`
}

type fsMapValue struct {
	Fields map[string]fsValue `json:"fields"`
}

func (v fsValue) Number() float64 {
	switch {
	case v.DoubleValue != nil:
		return *v.DoubleValue
	case v.IntegerValue != nil:
		n, err := strconv.ParseFloat(*v.IntegerValue, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

func (v fsValue) String() string {
	if v.StringValue != nil {
		return *v.StringValue
	}
	return ""
}

type fsDocument struct {
	Name   string             `json:"name"`
	Fields map[string]fsValue `json:"fields"`
}

// docID returns the final path segment of the document name.
func (d fsDocument) docID() string {
	idx := strings.LastIndex(d.Name, "/")
	if idx == -1 {
		return d.Name
	}
	return d.Name[idx+1:]
}

// runQuery results interleave documents with read-time markers, so
// Document may be nil on some entries.
type fsQueryResult struct {
	Document *fsDocument `json:"document"`
}

func (c *Client) documentsPath() string {
	return fmt.Sprintf("/projects/%s/databases/(default)/documents", c.projectID)
}

func (c *Client) req(ctx context.Context, result any) *resty.Request {
	request := c.httpClient.
		NewRequest().
		SetContext(ctx)

	if c.apiKey != "" {
		request.SetQueryParam("key", c.apiKey)
	}
	if result != nil {
		request.SetResult(result)
	}

	return request
}

// runEqualityQuery runs a structured query for documents in collection
// where field == value.
func (c *Client) runEqualityQuery(ctx context.Context, collection, field, value string) ([]fsDocument, error) {
	body := map[string]any{
		"structuredQuery": map[string]any{
			"from": []map[string]any{{"collectionId": collection}},
			"where": map[string]any{
				"fieldFilter": map[string]any{
					"field": map[string]any{"fieldPath": field},
					"op":    "EQUAL",
					"value": map[string]any{"stringValue": value},
				},
			},
		},
	}

	var results []fsQueryResult
	_, err := handleError(c.req(ctx, &results).
		SetBody(body).
		Post(c.documentsPath() + ":runQuery"))
	if err != nil {
		return nil, err
	}

	var docs []fsDocument
	for _, r := range results {
		if r.Document != nil {
			docs = append(docs, *r.Document)
		}
	}
	return docs, nil
}

// TotalBalance sums the balance field over every account owned by the
// customer. A customer with no account documents has a zero balance.
func (c *Client) TotalBalance(ctx context.Context, customerID string) (float64, error) {
	docs, err := c.runEqualityQuery(ctx, accountsCollection, "customer_firestore_id", customerID)
	if err != nil {
		return 0, fmt.Errorf("failed to query accounts: %w", err)
	}

	var total float64
	for _, doc := range docs {
		total += doc.Fields["balance"].Number()
	}
	return total, nil
}

// UserAccountByFirebaseUID looks up the user_accounts document for the
// given auth UID. Returns nil when the user has no account record.
func (c *Client) UserAccountByFirebaseUID(ctx context.Context, firebaseUID string) (*UserAccount, error) {
	docs, err := c.runEqualityQuery(ctx, userAccountsCollection, "firebase_uid", firebaseUID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user accounts: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	doc := docs[0]
	return &UserAccount{
		DocID:       doc.docID(),
		FirebaseUID: doc.Fields["firebase_uid"].String(),
		CustomerID:  doc.Fields["customer_firestore_id"].String(),
		DisplayName: doc.Fields["display_name"].String(),
	}, nil
}

// FinancialProfile fetches the profile document by ID. A missing
// profile is not an error; advisory captions just fall back to the
// heuristic text.
func (c *Client) FinancialProfile(ctx context.Context, profileID string) (*FinancialProfile, error) {
	var doc fsDocument
	res, err := c.req(ctx, &doc).
		SetPathParams(map[string]string{"profileID": profileID}).
		Get(c.documentsPath() + "/" + profilesCollection + "/{profileID}")
	if err != nil {
		return nil, err
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return &FinancialProfile{
		DocID:            doc.docID(),
		FinalAdjustedFCF: doc.Fields["final_adjusted_fcf"].Number(),
	}, nil
}

// handleError is a generic error handler for failing response (>399
// status code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return res, nil
}
