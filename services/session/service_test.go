package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"

	"sentinel/models"
	"sentinel/services/authapi"
)

// fakeAuthServer is a minimal core-banking auth fake: one known credential
// pair, one valid access token, request counting so tests can assert call counts.
type fakeAuthServer struct {
	*httptest.Server
	meCalls    atomic.Int64
	loginCalls atomic.Int64

	validToken string
	profile    models.AuthUser
	failMe     atomic.Bool
}

func newFakeAuthServer(t *testing.T) *fakeAuthServer {
	t.Helper()

	f := &fakeAuthServer{
		validToken: "valid-token",
		profile: models.AuthUser{
			ID:       "u-0001",
			Username: "admin",
			Email:    "admin@sentinel.local",
			FullName: "Sentinel Admin",
			Role:     models.RoleAdmin,
			IsActive: true,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/admin/login", func(w http.ResponseWriter, r *http.Request) {
		f.loginCalls.Add(1)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostFormValue("username") != "analyst" || r.PostFormValue("password") != "analyst123" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid username or password"})
			return
		}
		f.validToken = "new-access"
		f.profile = models.AuthUser{
			ID: "u-0002", Username: "analyst", Role: models.RoleAnalyst, IsActive: true,
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"token_type":    "bearer",
			"expires_in":    1800,
		})
	})
	mux.HandleFunc("/api/v1/auth/admin/me", func(w http.ResponseWriter, r *http.Request) {
		f.meCalls.Add(1)
		if f.failMe.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+f.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(f.profile)
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newTestService(t *testing.T, server *fakeAuthServer) (*Service, *TokenStore) {
	t.Helper()
	store, err := NewTokenStore(afero.NewMemMapFs(), "/data")
	if err != nil {
		t.Fatalf("failed to create token store: %v", err)
	}
	return NewService(authapi.NewClient(server.URL), store), store
}

// mustHoldInvariant asserts user != nil => access token present, both in
// memory and on disk.
func mustHoldInvariant(t *testing.T, svc *Service, store *TokenStore) {
	t.Helper()
	if svc.User() == nil {
		return
	}
	if svc.AccessToken() == "" {
		t.Error("invariant violated: user set with empty in-memory access token")
	}
	pair, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if pair.AccessToken == "" {
		t.Error("invariant violated: user set with no persisted access token")
	}
}

func TestRehydrate_NoStoredToken(t *testing.T) {
	server := newFakeAuthServer(t)
	svc, store := newTestService(t, server)

	if svc.Status() != StatusLoading {
		t.Fatalf("expected loading before rehydrate, got %s", svc.Status())
	}

	svc.Rehydrate(context.Background())

	if svc.Status() != StatusAnonymous {
		t.Errorf("expected anonymous, got %s", svc.Status())
	}
	if svc.User() != nil {
		t.Error("expected nil user")
	}
	if got := server.meCalls.Load(); got != 0 {
		t.Errorf("expected no identity calls, got %d", got)
	}
	mustHoldInvariant(t, svc, store)
}

func TestRehydrate_ValidStoredToken(t *testing.T) {
	server := newFakeAuthServer(t)
	svc, store := newTestService(t, server)

	if err := store.Save(models.TokenPair{AccessToken: "valid-token", RefreshToken: "r"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	svc.Rehydrate(context.Background())

	if svc.Status() != StatusAuthenticated {
		t.Fatalf("expected authenticated, got %s", svc.Status())
	}
	user := svc.User()
	if user == nil || user.Username != "admin" {
		t.Errorf("expected admin user, got %+v", user)
	}
	if svc.AccessToken() != "valid-token" {
		t.Errorf("expected in-memory token to be set, got %q", svc.AccessToken())
	}
	if got := server.meCalls.Load(); got != 1 {
		t.Errorf("expected exactly one identity call, got %d", got)
	}
	mustHoldInvariant(t, svc, store)
}

func TestRehydrate_ExpiredStoredToken(t *testing.T) {
	server := newFakeAuthServer(t)
	svc, store := newTestService(t, server)

	if err := store.Save(models.TokenPair{AccessToken: "expired-token", RefreshToken: "r"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	svc.Rehydrate(context.Background())

	if svc.Status() != StatusAnonymous {
		t.Errorf("expected anonymous after rejected token, got %s", svc.Status())
	}
	pair, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !pair.IsZero() {
		t.Errorf("expected storage cleared, got %+v", pair)
	}
}

func TestRehydrate_RunsOnce(t *testing.T) {
	server := newFakeAuthServer(t)
	svc, store := newTestService(t, server)

	if err := store.Save(models.TokenPair{AccessToken: "valid-token", RefreshToken: "r"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	svc.Rehydrate(context.Background())
	svc.Rehydrate(context.Background())

	if got := server.meCalls.Load(); got != 1 {
		t.Errorf("expected rehydrate to run once, got %d identity calls", got)
	}
}

func TestLogin_Success(t *testing.T) {
	server := newFakeAuthServer(t)
	svc, store := newTestService(t, server)
	svc.Rehydrate(context.Background())

	if err := svc.Login(context.Background(), "analyst", "analyst123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	pair, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if pair.AccessToken != "new-access" || pair.RefreshToken != "new-refresh" {
		t.Errorf("expected minted pair persisted, got %+v", pair)
	}

	user := svc.User()
	if user == nil || user.Username != "analyst" {
		t.Errorf("expected analyst user, got %+v", user)
	}
	if svc.Status() != StatusAuthenticated {
		t.Errorf("expected authenticated, got %s", svc.Status())
	}
	mustHoldInvariant(t, svc, store)
}

func TestLogin_BadCredentials(t *testing.T) {
	server := newFakeAuthServer(t)
	svc, store := newTestService(t, server)
	svc.Rehydrate(context.Background())

	err := svc.Login(context.Background(), "wrong", "wrong")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Invalid username or password" {
		t.Errorf("expected server detail message, got %q", err.Error())
	}
	if svc.Status() != StatusAnonymous {
		t.Errorf("expected anonymous, got %s", svc.Status())
	}

	pair, _ := store.Load()
	if !pair.IsZero() {
		t.Errorf("expected no tokens persisted, got %+v", pair)
	}
}

func TestLogin_NoDetailFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	store, err := NewTokenStore(afero.NewMemMapFs(), "/data")
	if err != nil {
		t.Fatalf("failed to create token store: %v", err)
	}
	svc := NewService(authapi.NewClient(server.URL), store)

	err = svc.Login(context.Background(), "a", "b")
	if !errors.Is(err, ErrLoginFailed) {
		t.Errorf("expected ErrLoginFailed, got %v", err)
	}
}

func TestLogin_ProfileFetchFailureKeepsTokens(t *testing.T) {
	server := newFakeAuthServer(t)
	svc, store := newTestService(t, server)
	svc.Rehydrate(context.Background())

	server.failMe.Store(true)

	err := svc.Login(context.Background(), "analyst", "analyst123")
	if !errors.Is(err, ErrProfileFetch) {
		t.Fatalf("expected ErrProfileFetch, got %v", err)
	}

	// Tokens were valid; they stay persisted so the caller can retry the
	// profile lookup without another credential exchange.
	pair, loadErr := store.Load()
	if loadErr != nil {
		t.Fatalf("Load failed: %v", loadErr)
	}
	if pair.AccessToken != "new-access" || pair.RefreshToken != "new-refresh" {
		t.Errorf("expected tokens kept, got %+v", pair)
	}
	if svc.User() != nil {
		t.Error("expected user unset after failed profile fetch")
	}
	if svc.IsAuthenticated() {
		t.Error("expected unauthenticated")
	}
	mustHoldInvariant(t, svc, store)
}

func TestLogout_Idempotent(t *testing.T) {
	server := newFakeAuthServer(t)
	svc, store := newTestService(t, server)
	svc.Rehydrate(context.Background())

	if err := svc.Login(context.Background(), "analyst", "analyst123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	svc.Logout()
	if svc.Status() != StatusAnonymous {
		t.Errorf("expected anonymous after logout, got %s", svc.Status())
	}

	// Logging out again must stay anonymous with empty storage.
	svc.Logout()
	if svc.Status() != StatusAnonymous {
		t.Errorf("expected anonymous after second logout, got %s", svc.Status())
	}
	pair, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !pair.IsZero() {
		t.Errorf("expected storage cleared, got %+v", pair)
	}
	if svc.AccessToken() != "" {
		t.Error("expected empty in-memory token")
	}
}

func TestHasRole(t *testing.T) {
	server := newFakeAuthServer(t)
	svc, _ := newTestService(t, server)
	svc.Rehydrate(context.Background())

	// Anonymous users hold no roles.
	if svc.HasRole(models.RoleAdmin, models.RoleAnalyst, models.RoleViewer) {
		t.Error("expected no roles while anonymous")
	}

	if err := svc.Login(context.Background(), "analyst", "analyst123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if !svc.HasRole(models.RoleAdmin, models.RoleAnalyst) {
		t.Error("expected analyst to match admin|analyst")
	}
	if svc.HasRole(models.RoleAdmin) {
		t.Error("expected analyst not to match admin alone")
	}
}
