package banking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetCustomerSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/customers/CUST-100042/summary" {
			t.Errorf("expected summary path, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(CustomerSummary{
			CustomerID:           "CUST-100042",
			FullName:             "Dana Whitfield",
			Tier:                 "gold",
			KYCStatus:            "verified",
			AccountAgeDays:       812,
			TotalAccounts:        3,
			TotalTransactions30d: 57,
			TotalSpend30d:        "12480.50",
			AvgTransactionAmount: "218.96",
			RiskRating:           "low",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	summary, err := client.GetCustomerSummary(context.Background(), "CUST-100042")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.FullName != "Dana Whitfield" || summary.Tier != "gold" {
		t.Errorf("unexpected summary %+v", summary)
	}
	if summary.TotalTransactions30d != 57 {
		t.Errorf("expected 57 transactions, got %d", summary.TotalTransactions30d)
	}
}

func TestGetCustomerSummary_EscapesID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/v1/customers/CUST%2F42/summary" {
			t.Errorf("expected escaped path, got %s", r.URL.EscapedPath())
		}
		json.NewEncoder(w).Encode(CustomerSummary{CustomerID: "CUST/42"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	if _, err := client.GetCustomerSummary(context.Background(), "CUST/42"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetCustomerSummary_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Customer not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	_, err := client.GetCustomerSummary(context.Background(), "CUST-0")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status in error, got %q", err.Error())
	}
}
