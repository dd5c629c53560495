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

// Rule is a fraud-detection rule definition.
type Rule struct {
	Code          string                 `json:"code"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description,omitempty"`
	Category      string                 `json:"category"`
	Severity      string                 `json:"severity"`
	Score         float64                `json:"score"`
	Enabled       bool                   `json:"enabled"`
	Conditions    map[string]interface{} `json:"conditions"`
	EffectiveFrom *time.Time             `json:"effective_from,omitempty"`
	EffectiveTo   *time.Time             `json:"effective_to,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// RulePage is one page of rules.
type RulePage struct {
	Items []Rule `json:"items"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Size  int    `json:"size"`
	Pages int    `json:"pages"`
}

// RuleFilters narrows a rule listing.
type RuleFilters struct {
	Enabled  *bool
	Category string
	Page     int
	Size     int
}

// Values encodes the filters as URL query parameters.
func (f RuleFilters) Values() url.Values {
	values := url.Values{}
	if f.Enabled != nil {
		values.Set("enabled", strconv.FormatBool(*f.Enabled))
	}
	if f.Category != "" {
		values.Set("category", f.Category)
	}
	if f.Page > 0 {
		values.Set("page", strconv.Itoa(f.Page))
	}
	if f.Size > 0 {
		values.Set("size", strconv.Itoa(f.Size))
	}
	return values
}

// RuleInput is the writable portion of a rule, used for create and update.
type RuleInput struct {
	Code        string                 `json:"code"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Category    string                 `json:"category"`
	Severity    string                 `json:"severity"`
	Score       float64                `json:"score"`
	Enabled     bool                   `json:"enabled"`
	Conditions  map[string]interface{} `json:"conditions"`
}

// GetRules lists rules matching the filters, paginated.
func (c *Client) GetRules(ctx context.Context, filters RuleFilters) (*RulePage, error) {
	endpoint := c.baseURL + apiPrefix + "/rules"
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

	var page RulePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &page, nil
}

// GetRule retrieves a single rule by code.
func (c *Client) GetRule(ctx context.Context, code string) (*Rule, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+"/rules/"+url.PathEscape(code), nil)
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

	var rule Rule
	if err := json.NewDecoder(resp.Body).Decode(&rule); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &rule, nil
}

// CreateRule registers a new rule. Admin only; the server enforces the
// role, the console gates the UI action.
func (c *Client) CreateRule(ctx context.Context, input RuleInput) (*Rule, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+"/rules", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fraud api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, newAPIError(resp)
	}

	var rule Rule
	if err := json.NewDecoder(resp.Body).Decode(&rule); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &rule, nil
}

// UpdateRule replaces a rule's writable fields.
func (c *Client) UpdateRule(ctx context.Context, code string, input RuleInput) (*Rule, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+apiPrefix+"/rules/"+url.PathEscape(code), bytes.NewReader(body))
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

	var rule Rule
	if err := json.NewDecoder(resp.Body).Decode(&rule); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &rule, nil
}

// ToggleRule flips a rule's enabled flag and returns the updated rule.
func (c *Client) ToggleRule(ctx context.Context, code string) (*Rule, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+"/rules/"+url.PathEscape(code)+"/toggle", nil)
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

	var rule Rule
	if err := json.NewDecoder(resp.Body).Decode(&rule); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &rule, nil
}

// DeleteRule removes a rule by code.
func (c *Client) DeleteRule(ctx context.Context, code string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+apiPrefix+"/rules/"+url.PathEscape(code), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fraud api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return newAPIError(resp)
	}

	return nil
}
