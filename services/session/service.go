package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"sentinel/models"
	"sentinel/services/authapi"
)

// Status is the session lifecycle state.
type Status string

const (
	// StatusLoading means rehydration has not completed yet.
	StatusLoading Status = "loading"
	// StatusAuthenticated means a user profile is loaded.
	StatusAuthenticated Status = "authenticated"
	// StatusAnonymous means no user is signed in.
	StatusAnonymous Status = "anonymous"
)

var (
	// ErrLoginFailed is returned for rejected credentials when the server
	// supplied no detail message.
	ErrLoginFailed = errors.New("Login failed")
	// ErrProfileFetch is returned when login minted valid tokens but the
	// follow-up identity lookup failed. The tokens remain persisted so the
	// caller can retry the lookup.
	ErrProfileFetch = errors.New("Failed to fetch user profile")
)

// AuthAPI is the slice of the core-banking client the session store needs.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*authapi.TokenResponse, error)
	Me(ctx context.Context, accessToken string) (*models.AuthUser, error)
}

// Service owns the authenticated identity and its persistence.
//
// Tokens and user always mutate together: set together on login and
// refresh success, cleared together on logout and rehydration failure.
// That keeps the invariant user != nil => access token != "".
type Service struct {
	api    AuthAPI
	tokens *TokenStore

	mu          sync.RWMutex
	user        *models.AuthUser
	accessToken string
	status      Status

	rehydrateOnce sync.Once
}

// NewService creates a session store in the loading state. Call Rehydrate
// once at startup to settle it.
func NewService(api AuthAPI, tokens *TokenStore) *Service {
	return &Service{
		api:    api,
		tokens: tokens,
		status: StatusLoading,
	}
}

// Rehydrate reconstructs the session from persisted tokens. It runs at most
// once per process; later calls are no-ops. Failures are silent: state
// reverts to anonymous and storage is cleared, never surfacing an error at
// startup. Always terminates in a non-loading status.
func (s *Service) Rehydrate(ctx context.Context) {
	s.rehydrateOnce.Do(func() {
		pair, err := s.tokens.Load()
		if err != nil || pair.AccessToken == "" {
			if err != nil {
				log.Printf("session: rehydrate: discarding unreadable tokens: %v", err)
				_ = s.tokens.Clear()
			}
			s.setAnonymous()
			return
		}

		user, err := s.api.Me(ctx, pair.AccessToken)
		if err != nil {
			log.Printf("session: rehydrate: stored token rejected, clearing")
			_ = s.tokens.Clear()
			s.setAnonymous()
			return
		}

		s.mu.Lock()
		s.user = user
		s.accessToken = pair.AccessToken
		s.status = StatusAuthenticated
		s.mu.Unlock()
	})
}

// Login authenticates with the core-banking service, persists the minted
// token pair, and loads the user profile.
//
// Rejected credentials surface the server's detail message when present
// (else ErrLoginFailed). A failed profile lookup after a successful token
// exchange returns ErrProfileFetch and leaves the tokens persisted.
func (s *Service) Login(ctx context.Context, username, password string) error {
	token, err := s.api.Login(ctx, username, password)
	if err != nil {
		var authErr *authapi.AuthError
		if errors.As(err, &authErr) {
			if authErr.Detail != "" {
				return authErr
			}
			return ErrLoginFailed
		}
		return err
	}

	pair := models.TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if err := s.tokens.Save(pair); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = token.AccessToken
	s.mu.Unlock()

	user, err := s.api.Me(ctx, token.AccessToken)
	if err != nil {
		return ErrProfileFetch
	}

	s.mu.Lock()
	s.user = user
	s.status = StatusAuthenticated
	s.mu.Unlock()

	return nil
}

// Logout clears the session and persisted tokens. It never fails and is
// safe to call when already anonymous.
func (s *Service) Logout() {
	if err := s.tokens.Clear(); err != nil {
		log.Printf("session: logout: clear tokens: %v", err)
	}
	s.setAnonymous()
}

// HasRole returns true if a user is signed in and their role is one of the
// given roles. Pure and side-effect free; used to gate admin actions.
func (s *Service) HasRole(roles ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return false
	}
	return s.user.HasRole(roles...)
}

// User returns a copy of the signed-in user, or nil when anonymous.
func (s *Service) User() *models.AuthUser {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// AccessToken returns the in-memory access token, or "" when signed out.
func (s *Service) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Status returns the current lifecycle state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// IsAuthenticated returns true when a user profile is loaded.
func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Service) setAnonymous() {
	s.mu.Lock()
	s.user = nil
	s.accessToken = ""
	s.status = StatusAnonymous
	s.mu.Unlock()
}
