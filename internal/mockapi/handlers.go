package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"sentinel/models"
	"sentinel/services/banking"
	"sentinel/services/fraud"
)

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Core-banking auth surface.
	r.HandleFunc("/api/v1/auth/admin/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/auth/admin/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/auth/admin/me", s.authed(s.handleMe)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/customers/{id}/summary", s.authed(s.handleCustomerSummary)).Methods(http.MethodGet)

	// Fraud-detection surface. Static stats routes register before the
	// {id} routes so mux does not capture "stats" as an alert ID.
	r.HandleFunc("/api/v1/alerts/stats/summary", s.authed(s.handleAlertStats)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/alerts/stats/daily-volume", s.authed(s.handleDailyVolume)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/alerts", s.authed(s.handleListAlerts)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/alerts/{id}", s.authed(s.handleGetAlert)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/alerts/{id}/review", s.authed(s.requireRole(s.handleReviewAlert, models.RoleAdmin, models.RoleAnalyst))).Methods(http.MethodPost)

	r.HandleFunc("/api/v1/rules", s.authed(s.handleListRules)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/rules", s.authed(s.requireRole(s.handleCreateRule, models.RoleAdmin))).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/rules/{code}", s.authed(s.handleGetRule)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/rules/{code}", s.authed(s.requireRole(s.handleUpdateRule, models.RoleAdmin))).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/rules/{code}", s.authed(s.requireRole(s.handleDeleteRule, models.RoleAdmin))).Methods(http.MethodDelete)
	r.HandleFunc("/api/v1/rules/{code}/toggle", s.authed(s.requireRole(s.handleToggleRule, models.RoleAdmin))).Methods(http.MethodPost)

	r.HandleFunc("/api/v1/config", s.authed(s.handleGetConfig)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/config", s.authed(s.requireRole(s.handleUpdateConfig, models.RoleAdmin))).Methods(http.MethodPut)

	s.router = r
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user models.AuthUser)

// authed rejects requests without a live access token.
func (s *Server) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authenticate(r)
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next(w, r, user)
	}
}

// requireRole rejects authenticated users whose role is not listed.
func (s *Server) requireRole(next authedHandler, roles ...string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, user models.AuthUser) {
		if !user.HasRole(roles...) {
			writeDetail(w, http.StatusForbidden, "Insufficient permissions")
			return
		}
		next(w, r, user)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, fraud.HealthStatus{
		Status:  "healthy",
		Service: "fraud-detection",
		Version: "dev",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[username]
	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	access, refresh := s.issueTokensLocked(username)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    int(s.tokenTTL.Seconds()),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.refreshTokens[req.RefreshToken]
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	// Single use: rotate on every exchange.
	delete(s.refreshTokens, req.RefreshToken)

	access, refresh := s.issueTokensLocked(username)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    int(s.tokenTTL.Seconds()),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, user models.AuthUser) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleCustomerSummary(w http.ResponseWriter, r *http.Request, _ models.AuthUser) {
	customerID := mux.Vars(r)["id"]
	writeJSON(w, http.StatusOK, banking.CustomerSummary{
		CustomerID:           customerID,
		FullName:             "Jordan Example",
		Tier:                 "standard",
		KYCStatus:            "verified",
		AccountAgeDays:       412,
		TotalAccounts:        2,
		TotalTransactions30d: 57,
		TotalSpend30d:        "4821.50",
		AvgTransactionAmount: "84.59",
		RiskRating:           "medium",
	})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request, _ models.AuthUser) {
	q := r.URL.Query()
	status := q.Get("status")
	customerID := q.Get("customer_id")
	page := intParam(q.Get("page"), 1)
	size := intParam(q.Get("size"), 20)

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []fraud.Alert
	for _, alert := range s.alerts {
		if status != "" && alert.Status != status {
			continue
		}
		if customerID != "" && alert.CustomerID != customerID {
			continue
		}
		matched = append(matched, alert)
	}

	total := len(matched)
	pages := (total + size - 1) / size
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, fraud.AlertPage{
		Items: matched[start:end],
		Total: total,
		Page:  page,
		Size:  size,
		Pages: pages,
	})
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request, _ models.AuthUser) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, alert := range s.alerts {
		if alert.ID == id {
			writeJSON(w, http.StatusOK, alert)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Alert not found")
}

func (s *Server) handleReviewAlert(w http.ResponseWriter, r *http.Request, user models.AuthUser) {
	id := mux.Vars(r)["id"]

	var review fraud.AlertReview
	if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch review.Status {
	case fraud.AlertStatusConfirmed, fraud.AlertStatusDismissed, fraud.AlertStatusEscalated:
	default:
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid review status %q", review.Status))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		if s.alerts[i].ID != id {
			continue
		}
		now := time.Now().UTC()
		s.alerts[i].Status = review.Status
		s.alerts[i].ReviewedBy = user.Username
		s.alerts[i].ReviewedAt = &now
		s.alerts[i].ReviewNotes = review.Notes
		s.alerts[i].UpdatedAt = now
		writeJSON(w, http.StatusOK, s.alerts[i])
		return
	}
	writeDetail(w, http.StatusNotFound, "Alert not found")
}

func (s *Server) handleAlertStats(w http.ResponseWriter, _ *http.Request, _ models.AuthUser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := fraud.AlertStats{ByStatus: make(map[string]int)}
	var scoreSum float64
	for _, alert := range s.alerts {
		stats.Total++
		stats.ByStatus[alert.Status]++
		scoreSum += alert.RiskScore
	}
	if stats.Total > 0 {
		stats.AverageScore = scoreSum / float64(stats.Total)
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDailyVolume(w http.ResponseWriter, r *http.Request, _ models.AuthUser) {
	days := intParam(r.URL.Query().Get("days"), s.volumeDays)

	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, alert := range s.alerts {
		counts[alert.CreatedAt.Format("2006-01-02")]++
	}

	volume := make([]fraud.DailyVolume, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := time.Now().UTC().AddDate(0, 0, -i).Format("2006-01-02")
		volume = append(volume, fraud.DailyVolume{Date: date, Alerts: counts[date]})
	}

	writeJSON(w, http.StatusOK, volume)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request, _ models.AuthUser) {
	q := r.URL.Query()
	category := q.Get("category")
	enabledFilter := q.Get("enabled")
	page := intParam(q.Get("page"), 1)
	size := intParam(q.Get("size"), 20)

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []fraud.Rule
	for _, rule := range s.rules {
		if category != "" && rule.Category != category {
			continue
		}
		if enabledFilter != "" && strconv.FormatBool(rule.Enabled) != enabledFilter {
			continue
		}
		matched = append(matched, rule)
	}

	total := len(matched)
	pages := (total + size - 1) / size
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, fraud.RulePage{
		Items: matched[start:end],
		Total: total,
		Page:  page,
		Size:  size,
		Pages: pages,
	})
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request, _ models.AuthUser) {
	code := mux.Vars(r)["code"]

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rule := range s.rules {
		if rule.Code == code {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Rule not found")
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request, _ models.AuthUser) {
	var input fraud.RuleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Code == "" || input.Name == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "code and name are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rule := range s.rules {
		if rule.Code == input.Code {
			writeDetail(w, http.StatusConflict, "Rule code already exists")
			return
		}
	}

	now := time.Now().UTC()
	rule := fraud.Rule{
		Code:        input.Code,
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Severity:    input.Severity,
		Score:       input.Score,
		Enabled:     input.Enabled,
		Conditions:  input.Conditions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.rules = append(s.rules, rule)

	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request, _ models.AuthUser) {
	code := mux.Vars(r)["code"]

	var input fraud.RuleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rules {
		if s.rules[i].Code != code {
			continue
		}
		s.rules[i].Name = input.Name
		s.rules[i].Description = input.Description
		s.rules[i].Category = input.Category
		s.rules[i].Severity = input.Severity
		s.rules[i].Score = input.Score
		s.rules[i].Enabled = input.Enabled
		s.rules[i].Conditions = input.Conditions
		s.rules[i].UpdatedAt = time.Now().UTC()
		writeJSON(w, http.StatusOK, s.rules[i])
		return
	}
	writeDetail(w, http.StatusNotFound, "Rule not found")
}

func (s *Server) handleToggleRule(w http.ResponseWriter, r *http.Request, _ models.AuthUser) {
	code := mux.Vars(r)["code"]

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rules {
		if s.rules[i].Code != code {
			continue
		}
		s.rules[i].Enabled = !s.rules[i].Enabled
		s.rules[i].UpdatedAt = time.Now().UTC()
		writeJSON(w, http.StatusOK, s.rules[i])
		return
	}
	writeDetail(w, http.StatusNotFound, "Rule not found")
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request, _ models.AuthUser) {
	code := mux.Vars(r)["code"]

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rules {
		if s.rules[i].Code != code {
			continue
		}
		s.rules = append(s.rules[:i], s.rules[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeDetail(w, http.StatusNotFound, "Rule not found")
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request, _ models.AuthUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.config)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request, _ models.AuthUser) {
	var update fraud.SystemConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if update.AutoEscalationThreshold != nil {
		s.config.AutoEscalationThreshold = *update.AutoEscalationThreshold
	}
	if update.DataRetentionDays != nil {
		s.config.DataRetentionDays = *update.DataRetentionDays
	}

	writeJSON(w, http.StatusOK, s.config)
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
