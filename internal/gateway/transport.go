// Package gateway wraps outbound fraud-API calls with bearer-token
// attachment and a transparent, deduplicated refresh-and-retry on 401.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"sentinel/models"
	"sentinel/services/authapi"
)

const requestIDHeader = "X-Request-ID"

// TokenSource supplies the persisted token pair and stores refreshed pairs.
// Implemented by session.TokenStore.
type TokenSource interface {
	Load() (models.TokenPair, error)
	Save(pair models.TokenPair) error
	Clear() error
}

// Refresher exchanges a refresh token for a new token pair.
// Implemented by authapi.Client.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*authapi.TokenResponse, error)
}

// Transport is an http.RoundTripper that authenticates requests to the
// fraud-detection API.
//
// Before each request it re-reads the current access token from the token
// source, so a refresh performed by one request is visible to the next. On
// a 401 response it refreshes the token pair and retries the request
// exactly once; concurrent 401s share a single refresh call. Refresh
// failure clears the stored pair, fires OnSessionExpired, and lets the
// original 401 propagate to the caller.
type Transport struct {
	// Base performs the actual round trips. nil means http.DefaultTransport.
	Base http.RoundTripper
	// Tokens is the persisted credential store. Required.
	Tokens TokenSource
	// Refresher mints new token pairs. Required.
	Refresher Refresher
	// OnSessionExpired is invoked when authentication is unrecoverable
	// (no refresh token, or the refresh itself was rejected). The console
	// uses it to return to the login surface. Optional.
	OnSessionExpired func()

	group singleflight.Group
}

// BearerTransport attaches the current access token without the
// refresh-and-retry behavior. The banking client uses it: customer lookups
// are authenticated but do not drive the session lifecycle.
type BearerTransport struct {
	Base   http.RoundTripper
	Tokens TokenSource
}

// RoundTrip implements http.RoundTripper.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if pair, err := t.Tokens.Load(); err == nil && pair.AccessToken != "" {
		out.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}
	return base(t.Base).RoundTrip(out)
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Buffer the body up front so the request can be replayed if the first
	// attempt comes back 401.
	getBody := req.GetBody
	if req.Body != nil && req.Body != http.NoBody && getBody == nil {
		buffered, err := bufferBody(req)
		if err != nil {
			return nil, err
		}
		getBody = buffered
	}

	attempt := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		attempt.Body = body
	}

	pair, err := t.Tokens.Load()
	if err != nil {
		log.Printf("gateway: read tokens: %v", err)
		pair = models.TokenPair{}
	}
	if pair.AccessToken != "" {
		attempt.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}
	if attempt.Header.Get(requestIDHeader) == "" {
		attempt.Header.Set(requestIDHeader, uuid.NewString())
	}

	resp, err := base(t.Base).RoundTrip(attempt)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	token := t.refreshedToken(req.Context())
	if token == "" {
		// Unrecoverable; the caller still sees the original 401.
		return resp, nil
	}

	retry := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+token)
	retry.Header.Set(requestIDHeader, attempt.Header.Get(requestIDHeader))

	// The 401 body is replaced by the retried response.
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return base(t.Base).RoundTrip(retry)
}

// refreshedToken obtains a fresh access token, collapsing concurrent
// refresh attempts into one network call. Returns "" when the session
// cannot be recovered.
//
// Refresh tokens are single-use: N concurrent 401s racing to rotate the
// same token would invalidate each other, so all callers that observe a
// 401 before the in-flight refresh settles share its outcome.
func (t *Transport) refreshedToken(ctx context.Context) string {
	pair, err := t.Tokens.Load()
	if err != nil || pair.RefreshToken == "" {
		// Nothing to refresh with; drop the stale access token.
		_ = t.Tokens.Clear()
		t.sessionExpired()
		return ""
	}

	// The key is constant: there is only ever one credential pair per
	// process. The in-flight slot clears when Do returns, so a later 401
	// starts a new cycle.
	v, _, _ := t.group.Do("refresh", func() (interface{}, error) {
		token, err := t.Refresher.Refresh(ctx, pair.RefreshToken)
		if err != nil {
			log.Printf("gateway: token refresh rejected: %v", err)
			_ = t.Tokens.Clear()
			t.sessionExpired()
			return "", nil
		}

		saved := models.TokenPair{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
		}
		if err := t.Tokens.Save(saved); err != nil {
			log.Printf("gateway: persist refreshed tokens: %v", err)
		}
		return token.AccessToken, nil
	})

	token, _ := v.(string)
	return token
}

func (t *Transport) sessionExpired() {
	if t.OnSessionExpired != nil {
		t.OnSessionExpired()
	}
}

func base(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}

// bufferBody reads the request body into memory and returns a GetBody
// function that replays it.
func bufferBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	req.Body.Close()

	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}
