package mockapi

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"sentinel/services/fraud"
)

// seedFixtures populates a small but varied alert backlog and rule set so
// dashboards and listings have something to show out of the box.
func (s *Server) seedFixtures() {
	s.rules = []fraud.Rule{
		{
			Code:        "VEL-001",
			Name:        "Transaction velocity",
			Description: "More than 5 transactions within 10 minutes",
			Category:    "velocity",
			Severity:    "high",
			Score:       35,
			Enabled:     true,
			Conditions:  map[string]interface{}{"max_count": 5, "window_minutes": 10},
		},
		{
			Code:        "AMT-002",
			Name:        "Large amount deviation",
			Description: "Amount exceeds 10x the customer's 30-day average",
			Category:    "amount",
			Severity:    "high",
			Score:       40,
			Enabled:     true,
			Conditions:  map[string]interface{}{"multiplier": 10},
		},
		{
			Code:        "GEO-003",
			Name:        "High-risk country",
			Description: "Transaction originates from a flagged country",
			Category:    "geography",
			Severity:    "medium",
			Score:       25,
			Enabled:     true,
			Conditions:  map[string]interface{}{"countries": []string{"XX", "YY"}},
		},
		{
			Code:        "CHN-004",
			Name:        "Unusual channel",
			Description: "First use of a new payment channel",
			Category:    "behavior",
			Severity:    "low",
			Score:       10,
			Enabled:     false,
			Conditions:  map[string]interface{}{},
		},
	}
	now := time.Now().UTC()
	for i := range s.rules {
		s.rules[i].CreatedAt = now.AddDate(0, -1, 0)
		s.rules[i].UpdatedAt = now.AddDate(0, 0, -7)
	}

	statuses := []string{
		fraud.AlertStatusPending, fraud.AlertStatusPending, fraud.AlertStatusPending,
		fraud.AlertStatusConfirmed, fraud.AlertStatusDismissed, fraud.AlertStatusEscalated,
	}
	decisions := []string{"review", "flag", "review", "flag", "review", "flag"}
	for i, status := range statuses {
		created := now.AddDate(0, 0, -(i % 5))
		processing := 12 + i
		s.alerts = append(s.alerts, fraud.Alert{
			ID:            uuid.NewString(),
			TransactionID: uuid.NewString(),
			CustomerID:    fmt.Sprintf("cust-%03d", 100+i),
			RiskScore:     float64(45 + i*10),
			Decision:      decisions[i],
			Status:        status,
			TriggeredRules: []fraud.TriggeredRule{
				{
					Code:     s.rules[i%len(s.rules)].Code,
					Name:     s.rules[i%len(s.rules)].Name,
					Category: s.rules[i%len(s.rules)].Category,
					Severity: s.rules[i%len(s.rules)].Severity,
					Score:    s.rules[i%len(s.rules)].Score,
				},
			},
			ProcessingTimeMs: &processing,
			CreatedAt:        created,
			UpdatedAt:        created,
			Transaction: &fraud.AlertTransaction{
				ExternalID:      fmt.Sprintf("txn-%05d", 10000+i),
				Amount:          float64(250 * (i + 1)),
				Currency:        "USD",
				TransactionType: "purchase",
				Channel:         "card",
				MerchantName:    "Example Merchant",
				LocationCountry: "US",
				TransactionTime: created.Add(-5 * time.Minute),
			},
		})
	}
}
