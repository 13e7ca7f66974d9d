// Package plaid talks to the transaction aggregator. The service treats the
// aggregator as an opaque remote boundary: calls either succeed or fail, and
// cursors/tokens are never interpreted.
package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RawTransaction is one transaction as the aggregator reports it.
type RawTransaction struct {
	TransactionID      string   `json:"transaction_id"`
	AccountID          string   `json:"account_id"`
	Date               string   `json:"date"` // YYYY-MM-DD
	Amount             float64  `json:"amount"`
	ISOCurrencyCode    string   `json:"iso_currency_code"`
	Name               string   `json:"name"`
	MerchantName       string   `json:"merchant_name"`
	Pending            bool     `json:"pending"`
	Category           string   `json:"personal_finance_category"`
	CategoryConfidence *float64 `json:"category_confidence,omitempty"`
}

// RawAccount is one account under an item as the aggregator reports it.
type RawAccount struct {
	AccountID        string  `json:"account_id"`
	Name             string  `json:"name"`
	OfficialName     string  `json:"official_name"`
	Type             string  `json:"type"`
	Mask             string  `json:"mask"`
	CurrentBalance   float64 `json:"current_balance"`
	AvailableBalance float64 `json:"available_balance"`
	ISOCurrencyCode  string  `json:"iso_currency_code"`
}

// SyncResult is one page of the incremental transactions feed.
type SyncResult struct {
	Added      []RawTransaction `json:"added"`
	HasMore    bool             `json:"has_more"`
	NextCursor string           `json:"next_cursor"`
}

// ExchangeResult is the outcome of trading a public token for credentials.
type ExchangeResult struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// Client is the aggregator surface the sync engine depends on.
type Client interface {
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*SyncResult, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error)
	GetAccounts(ctx context.Context, accessToken string) ([]RawAccount, error)
	GetInstitution(ctx context.Context, accessToken string) (*Institution, error)
}

// Institution is static descriptive data about the linked bank.
type Institution struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Logo   string `json:"logo"`
}

// HTTPClient implements Client against the aggregator's REST API.
type HTTPClient struct {
	BaseURL  string
	ClientID string
	Secret   string
	HTTP     *http.Client
}

// NewHTTPClient builds a client with a sane request timeout.
func NewHTTPClient(baseURL, clientID, secret string) *HTTPClient {
	return &HTTPClient{
		BaseURL:  baseURL,
		ClientID: clientID,
		Secret:   secret,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) post(ctx context.Context, path string, body map[string]any, out any) error {
	body["client_id"] = c.ClientID
	body["secret"] = c.Secret

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("plaid %s: encode request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("plaid %s: build request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("plaid %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("plaid %s: status %d: %s", path, resp.StatusCode, snippet)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("plaid %s: decode response: %w", path, err)
	}
	return nil
}

// SyncTransactions fetches one page of the incremental feed from the given
// cursor. An empty cursor starts from the beginning of history.
func (c *HTTPClient) SyncTransactions(ctx context.Context, accessToken, cursor string) (*SyncResult, error) {
	var out SyncResult
	err := c.post(ctx, "/transactions/sync", map[string]any{
		"access_token": accessToken,
		"cursor":       cursor,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ExchangePublicToken trades the short-lived public token from the link flow
// for a durable access token and item id.
func (c *HTTPClient) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error) {
	var out ExchangeResult
	err := c.post(ctx, "/item/public_token/exchange", map[string]any{
		"public_token": publicToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAccounts lists the accounts under an item with current balances.
func (c *HTTPClient) GetAccounts(ctx context.Context, accessToken string) ([]RawAccount, error) {
	var out struct {
		Accounts []RawAccount `json:"accounts"`
	}
	err := c.post(ctx, "/accounts/get", map[string]any{
		"access_token": accessToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

// GetInstitution fetches descriptive institution metadata for an item.
func (c *HTTPClient) GetInstitution(ctx context.Context, accessToken string) (*Institution, error) {
	var out struct {
		Institution Institution `json:"institution"`
	}
	err := c.post(ctx, "/institutions/get_by_item", map[string]any{
		"access_token": accessToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Institution, nil
}
