package banking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client handles core-banking customer lookups. Requests carry the current
// bearer token (via the bearer transport) but do not participate in the
// refresh-and-retry cycle; a 401 here simply surfaces to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// CustomerSummary is the risk-oriented customer profile shown alongside an
// alert.
type CustomerSummary struct {
	CustomerID           string `json:"customer_id"`
	FullName             string `json:"full_name"`
	Tier                 string `json:"tier"`
	KYCStatus            string `json:"kyc_status"`
	AccountAgeDays       int    `json:"account_age_days"`
	TotalAccounts        int    `json:"total_accounts"`
	TotalTransactions30d int    `json:"total_transactions_30d"`
	TotalSpend30d        string `json:"total_spend_30d"`
	AvgTransactionAmount string `json:"avg_transaction_amount"`
	RiskRating           string `json:"risk_rating"`
}

// NewClient creates a new core-banking client.
// baseURL is the service root, e.g. "http://localhost:8001".
func NewClient(baseURL string, transport http.RoundTripper) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// GetCustomerSummary retrieves the customer's risk summary.
func (c *Client) GetCustomerSummary(ctx context.Context, customerID string) (*CustomerSummary, error) {
	endpoint := c.baseURL + "/api/v1/customers/" + url.PathEscape(customerID) + "/summary"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("banking api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("banking api: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var summary CustomerSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &summary, nil
}
