// Package mockapi is an in-process fake of the fraud-detection and
// core-banking services. Tests and local development run against it so the
// console can be exercised without the real platform.
package mockapi

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"sentinel/models"
	"sentinel/services/fraud"
)

const defaultTokenTTL = 30 * time.Minute

type account struct {
	passwordHash []byte
	profile      models.AuthUser
}

type accessGrant struct {
	username  string
	expiresAt time.Time
}

// Server holds the fake platform state: demo accounts, issued tokens, and
// alert/rule fixtures. Refresh tokens are single-use, matching the real
// token issuer, so refresh races are observable in tests.
type Server struct {
	mu            sync.Mutex
	accounts      map[string]account
	accessTokens  map[string]accessGrant
	refreshTokens map[string]string // token -> username, deleted on use
	tokenTTL      time.Duration

	alerts     []fraud.Alert
	rules      []fraud.Rule
	config     fraud.SystemConfig
	volumeDays int

	router *mux.Router
}

// NewServer creates a fake platform seeded with demo accounts
// (admin/admin123, analyst/analyst123, viewer/viewer123) and alert/rule
// fixtures.
func NewServer() *Server {
	s := &Server{
		accounts:      make(map[string]account),
		accessTokens:  make(map[string]accessGrant),
		refreshTokens: make(map[string]string),
		tokenTTL:      defaultTokenTTL,
		config: fraud.SystemConfig{
			AutoEscalationThreshold: 90,
			DataRetentionDays:       365,
		},
		volumeDays: 7,
	}

	s.seedAccounts()
	s.seedFixtures()
	s.routes()

	return s
}

// Handler returns the HTTP handler serving both fake services. In the real
// deployment these are two hosts; the fake serves both URL spaces from one
// listener, which the console tolerates because base URLs are independent
// settings.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetTokenTTL overrides the access-token lifetime.
func (s *Server) SetTokenTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = ttl
}

// ExpireAccessTokens invalidates every outstanding access token, forcing
// the next authenticated request into the 401 refresh path.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, grant := range s.accessTokens {
		grant.expiresAt = time.Now().Add(-time.Minute)
		s.accessTokens[token] = grant
	}
}

// RevokeRefreshTokens invalidates every outstanding refresh token, making
// the next refresh attempt fail.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = make(map[string]string)
}

func (s *Server) seedAccounts() {
	demo := []struct {
		username, password string
		profile            models.AuthUser
	}{
		{
			username: "admin", password: "admin123",
			profile: models.AuthUser{
				ID: "u-0001", Username: "admin", Email: "admin@sentinel.local",
				FullName: "Sentinel Admin", Role: models.RoleAdmin, IsActive: true,
			},
		},
		{
			username: "analyst", password: "analyst123",
			profile: models.AuthUser{
				ID: "u-0002", Username: "analyst", Email: "analyst@sentinel.local",
				FullName: "Fraud Analyst", Role: models.RoleAnalyst, IsActive: true,
			},
		},
		{
			username: "viewer", password: "viewer123",
			profile: models.AuthUser{
				ID: "u-0003", Username: "viewer", Email: "viewer@sentinel.local",
				FullName: "Read Only", Role: models.RoleViewer, IsActive: true,
			},
		},
	}

	for _, d := range demo {
		// MinCost keeps test startup fast; these are throwaway fixtures.
		hash, err := bcrypt.GenerateFromPassword([]byte(d.password), bcrypt.MinCost)
		if err != nil {
			panic(err)
		}
		s.accounts[d.username] = account{passwordHash: hash, profile: d.profile}
	}
}

// issueTokens mints a new access/refresh pair for the user. Callers must
// hold s.mu.
func (s *Server) issueTokensLocked(username string) (access, refresh string) {
	access = newToken()
	refresh = newToken()
	s.accessTokens[access] = accessGrant{
		username:  username,
		expiresAt: time.Now().Add(s.tokenTTL),
	}
	s.refreshTokens[refresh] = username
	return access, refresh
}

// authenticate resolves the bearer token on a request to a user profile.
func (s *Server) authenticate(r *http.Request) (models.AuthUser, bool) {
	token := bearerToken(r)
	if token == "" {
		return models.AuthUser{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	grant, ok := s.accessTokens[token]
	if !ok || time.Now().After(grant.expiresAt) {
		return models.AuthUser{}, false
	}

	acct, ok := s.accounts[grant.username]
	if !ok {
		return models.AuthUser{}, false
	}
	return acct.profile, true
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return ""
	}
	return header[len(prefix):]
}

func newToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}

// corsMiddleware allows cross-origin requests from the web console during
// local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
