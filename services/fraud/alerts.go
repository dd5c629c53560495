package fraud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Alert statuses.
const (
	AlertStatusPending   = "pending"
	AlertStatusConfirmed = "confirmed"
	AlertStatusDismissed = "dismissed"
	AlertStatusEscalated = "escalated"
)

// TriggeredRule is a rule that contributed to an alert's risk score.
type TriggeredRule struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Severity    string  `json:"severity"`
	Score       float64 `json:"score"`
	Description string  `json:"description,omitempty"`
}

// AlertTransaction is the transaction snapshot attached to an alert.
type AlertTransaction struct {
	ExternalID      string    `json:"external_id"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	TransactionType string    `json:"transaction_type"`
	Channel         string    `json:"channel"`
	MerchantName    string    `json:"merchant_name,omitempty"`
	LocationCountry string    `json:"location_country,omitempty"`
	TransactionTime time.Time `json:"transaction_time"`
}

// Alert is a fraud alert raised against a transaction.
type Alert struct {
	ID                      string            `json:"id"`
	TransactionID           string            `json:"transaction_id"`
	CustomerID              string            `json:"customer_id"`
	RiskScore               float64           `json:"risk_score"`
	Decision                string            `json:"decision"` // "approve", "review", "flag"
	DecisionTier            string            `json:"decision_tier,omitempty"`
	DecisionTierDescription string            `json:"decision_tier_description,omitempty"`
	Status                  string            `json:"status"`
	TriggeredRules          []TriggeredRule   `json:"triggered_rules"`
	ProcessingTimeMs        *int              `json:"processing_time_ms,omitempty"`
	ReviewedBy              string            `json:"reviewed_by,omitempty"`
	ReviewedAt              *time.Time        `json:"reviewed_at,omitempty"`
	ReviewNotes             string            `json:"review_notes,omitempty"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
	Transaction             *AlertTransaction `json:"transaction,omitempty"`
}

// AlertPage is one page of alerts.
type AlertPage struct {
	Items []Alert `json:"items"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Size  int     `json:"size"`
	Pages int     `json:"pages"`
}

// AlertFilters narrows an alert listing. Zero values are omitted from the
// query string.
type AlertFilters struct {
	Status     string
	CustomerID string
	MinScore   float64
	MaxScore   float64
	Decision   string
	FromDate   string // YYYY-MM-DD
	ToDate     string // YYYY-MM-DD
	Page       int
	Size       int
}

// Values encodes the filters as URL query parameters.
func (f AlertFilters) Values() url.Values {
	values := url.Values{}
	if f.Status != "" {
		values.Set("status", f.Status)
	}
	if f.CustomerID != "" {
		values.Set("customer_id", f.CustomerID)
	}
	if f.MinScore > 0 {
		values.Set("min_score", strconv.FormatFloat(f.MinScore, 'f', -1, 64))
	}
	if f.MaxScore > 0 {
		values.Set("max_score", strconv.FormatFloat(f.MaxScore, 'f', -1, 64))
	}
	if f.Decision != "" {
		values.Set("decision", f.Decision)
	}
	if f.FromDate != "" {
		values.Set("from_date", f.FromDate)
	}
	if f.ToDate != "" {
		values.Set("to_date", f.ToDate)
	}
	if f.Page > 0 {
		values.Set("page", strconv.Itoa(f.Page))
	}
	if f.Size > 0 {
		values.Set("size", strconv.Itoa(f.Size))
	}
	return values
}

// AlertReview records an analyst's decision on an alert.
type AlertReview struct {
	Status string `json:"status"` // "confirmed", "dismissed", "escalated"
	Notes  string `json:"notes,omitempty"`
}

// AlertStats summarizes the alert backlog.
type AlertStats struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	AverageScore float64        `json:"average_score"`
}

// DailyVolume is the alert count for one day.
type DailyVolume struct {
	Date   string `json:"date"`
	Alerts int    `json:"alerts"`
}

// GetAlerts lists alerts matching the filters, paginated.
func (c *Client) GetAlerts(ctx context.Context, filters AlertFilters) (*AlertPage, error) {
	endpoint := c.baseURL + apiPrefix + "/alerts"
	if query := filters.Values().Encode(); query != "" {
		endpoint += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fraud api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var page AlertPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &page, nil
}

// GetAlert retrieves a single alert by ID.
func (c *Client) GetAlert(ctx context.Context, id string) (*Alert, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+"/alerts/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fraud api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var alert Alert
	if err := json.NewDecoder(resp.Body).Decode(&alert); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &alert, nil
}

// ReviewAlert records a review decision and returns the updated alert.
func (c *Client) ReviewAlert(ctx context.Context, id string, review AlertReview) (*Alert, error) {
	body, err := json.Marshal(review)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+"/alerts/"+url.PathEscape(id)+"/review", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fraud api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var alert Alert
	if err := json.NewDecoder(resp.Body).Decode(&alert); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &alert, nil
}

// GetAlertStats retrieves the backlog summary.
func (c *Client) GetAlertStats(ctx context.Context) (*AlertStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+"/alerts/stats/summary", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fraud api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var stats AlertStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &stats, nil
}

// GetDailyVolume retrieves per-day alert counts for the trailing window.
// days defaults to 7 when zero or negative.
func (c *Client) GetDailyVolume(ctx context.Context, days int) ([]DailyVolume, error) {
	if days <= 0 {
		days = 7
	}

	endpoint := fmt.Sprintf("%s%s/alerts/stats/daily-volume?days=%d", c.baseURL, apiPrefix, days)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fraud api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var volume []DailyVolume
	if err := json.NewDecoder(resp.Body).Decode(&volume); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return volume, nil
}
