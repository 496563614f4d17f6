package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/termsync/internal/models"
	"github.com/desertthunder/termsync/internal/shared"
	"golang.org/x/oauth2"
)

// newOnlineTestService builds an authenticated service pointed at a test server.
func newOnlineTestService(t *testing.T, baseURL string) *OnlineService {
	t.Helper()

	srv, err := NewOnlineService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
		"base_url":      baseURL,
		"realm_id":      "12345",
		"access_token":  "test_access_token",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if err := srv.Authenticate(context.Background()); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}

	return srv
}

func TestOnlineService(t *testing.T) {
	t.Run("NewOnlineService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			}

			srv, err := NewOnlineService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv == nil {
				t.Fatal("expected service to be created")
			}

			if srv.Name() != "QuickBooks Online" {
				t.Errorf("expected service name 'QuickBooks Online', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			credentials := map[string]string{
				"client_secret": "test_client_secret",
			}

			if _, err := NewOnlineService(credentials); err == nil {
				t.Error("expected error for missing client_id")
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			credentials := map[string]string{
				"client_id": "test_client_id",
			}

			if _, err := NewOnlineService(credentials); err == nil {
				t.Error("expected error for missing client_secret")
			}
		})

		t.Run("Default Redirect URI and Base URL", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			}

			srv, err := NewOnlineService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != "http://127.0.0.1:8080/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
			if srv.baseURL != defaultQBOBaseURL {
				t.Errorf("expected default base URL, got %s", srv.baseURL)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		credentials := map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		}

		srv, err := NewOnlineService(credentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")
		if authURL == "" {
			t.Error("expected auth URL to be generated")
		}

		if !strings.Contains(authURL, "appcenter.intuit.com") {
			t.Error("auth URL should contain the Intuit domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		t.Run("With Stored Access Token", func(t *testing.T) {
			srv, err := NewOnlineService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"access_token":  "stored_token",
				"refresh_token": "stored_refresh",
			})
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			if err := srv.Authenticate(context.Background()); err != nil {
				t.Errorf("expected no error with stored token, got %v", err)
			}

			if srv.token == nil {
				t.Fatal("expected token to be set")
			}
			if srv.token.AccessToken != "stored_token" {
				t.Errorf("expected access token 'stored_token', got %s", srv.token.AccessToken)
			}
			if srv.token.RefreshToken != "stored_refresh" {
				t.Errorf("expected refresh token 'stored_refresh', got %s", srv.token.RefreshToken)
			}
		})

		t.Run("Without Stored Token", func(t *testing.T) {
			srv, err := NewOnlineService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			})
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			err = srv.Authenticate(context.Background())
			if err == nil {
				t.Fatal("expected error without a stored token")
			}
			if !errors.Is(err, shared.ErrTokenExpired) {
				t.Errorf("expected ErrTokenExpired, got %v", err)
			}
		})
	})

	t.Run("OAuthenticate", func(t *testing.T) {
		srv, err := NewOnlineService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("rejects nil token", func(t *testing.T) {
			if err := srv.OAuthenticate(context.Background(), nil); !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
		})

		t.Run("rejects empty token", func(t *testing.T) {
			if err := srv.OAuthenticate(context.Background(), &oauth2.Token{}); !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
		})

		t.Run("accepts refresh-only token", func(t *testing.T) {
			if err := srv.OAuthenticate(context.Background(), &oauth2.Token{RefreshToken: "refresh_only"}); err != nil {
				t.Errorf("expected no error for refresh-only token, got %v", err)
			}
		})
	})

	t.Run("Service Interface", func(t *testing.T) {
		credentials := map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		}

		srv, err := NewOnlineService(credentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		var _ TermService = srv
		var _ OAuthService = srv
	})

	t.Run("SetTokenRefreshCallback", func(t *testing.T) {
		credentials := map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		}

		srv, err := NewOnlineService(credentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("sets callback successfully", func(t *testing.T) {
			srv.SetTokenRefreshCallback(func(token *oauth2.Token) {
				// Callback set for testing
			})

			if srv.onTokenRefresh == nil {
				t.Error("expected callback to be set")
			}
		})

		t.Run("can set nil callback", func(t *testing.T) {
			srv.SetTokenRefreshCallback(nil)
			if srv.onTokenRefresh != nil {
				t.Error("expected callback to be nil")
			}
		})

		t.Run("callback can be replaced", func(t *testing.T) {
			srv.SetTokenRefreshCallback(func(token *oauth2.Token) {
				// First callback
			})

			srv.SetTokenRefreshCallback(func(token *oauth2.Token) {
				// Second callback
			})

			if srv.onTokenRefresh == nil {
				t.Error("expected callback to be set")
			}
		})
	})

	t.Run("FetchTerms", func(t *testing.T) {
		t.Run("maps records and skips unmanaged terms", func(t *testing.T) {
			discount := func(n int) *int { return &n }

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v3/company/12345/terms" {
					t.Errorf("expected terms path, got %s", r.URL.Path)
				}
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.Header.Get("Authorization") != "Bearer test_access_token" {
					t.Errorf("expected bearer token, got %s", r.Header.Get("Authorization"))
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{
					"terms": []OnlineTerm{
						{ID: "1", Name: "Net 30", Active: true, DueDays: 30, DiscountDays: discount(1)},
						{ID: "2", Name: "Imported", Active: true, DueDays: 45},
						{ID: "3", Name: "Net 15", Active: true, DueDays: 15, DiscountDays: discount(2)},
					},
				})
			}))
			defer server.Close()

			srv := newOnlineTestService(t, server.URL)

			terms, err := srv.FetchTerms(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(terms) != 2 {
				t.Fatalf("expected 2 terms after skipping, got %d", len(terms))
			}
			if terms[0] != (models.Term{Name: "Net 30", ID: 1}) {
				t.Errorf("expected first term Net 30/1, got %+v", terms[0])
			}
			if terms[1] != (models.Term{Name: "Net 15", ID: 2}) {
				t.Errorf("expected second term Net 15/2, got %+v", terms[1])
			}
		})

		t.Run("handles 401 with a refresh token", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"message": "token revoked"})
			}))
			defer server.Close()

			srv, err := NewOnlineService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"base_url":      server.URL,
				"realm_id":      "12345",
				"access_token":  "test_access_token",
				"refresh_token": "test_refresh_token",
			})
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}
			if err := srv.Authenticate(context.Background()); err != nil {
				t.Fatalf("failed to authenticate: %v", err)
			}

			_, err = srv.FetchTerms(context.Background())
			if err == nil {
				t.Fatal("expected error for 401")
			}
			if !errors.Is(err, shared.ErrRegistryUnavailable) {
				t.Errorf("expected ErrRegistryUnavailable, got %v", err)
			}
		})

		t.Run("handles 401 without a refresh token", func(t *testing.T) {
			// A rejected token that cannot be refreshed needs reauthorization,
			// not a retry against the registry.
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"message": "token revoked"})
			}))
			defer server.Close()

			srv := newOnlineTestService(t, server.URL)

			_, err := srv.FetchTerms(context.Background())
			if err == nil {
				t.Fatal("expected error for 401")
			}
			if !errors.Is(err, shared.ErrNoRefreshToken) {
				t.Errorf("expected ErrNoRefreshToken, got %v", err)
			}
		})

		t.Run("maps a failed token refresh", func(t *testing.T) {
			tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			}))
			defer tokenServer.Close()

			srv, err := NewOnlineService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"base_url":      "http://127.0.0.1:0",
				"realm_id":      "12345",
			})
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}
			srv.config.Endpoint = oauth2.Endpoint{TokenURL: tokenServer.URL}

			expired := &oauth2.Token{
				AccessToken:  "stale_access_token",
				RefreshToken: "stale_refresh_token",
				Expiry:       time.Now().Add(-time.Hour),
			}
			if err := srv.OAuthenticate(context.Background(), expired); err != nil {
				t.Fatalf("failed to authenticate: %v", err)
			}

			_, err = srv.FetchTerms(context.Background())
			if err == nil {
				t.Fatal("expected error when the refresh is rejected")
			}
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
		})

		t.Run("surfaces API errors with the registry message", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"message": "query engine offline"})
			}))
			defer server.Close()

			srv := newOnlineTestService(t, server.URL)

			_, err := srv.FetchTerms(context.Background())
			if err == nil {
				t.Fatal("expected error for 500")
			}

			var apiErr *shared.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != http.StatusInternalServerError {
				t.Errorf("expected status 500, got %d", apiErr.StatusCode)
			}
			if apiErr.Message != "query engine offline" {
				t.Errorf("expected registry message, got %s", apiErr.Message)
			}
		})

		t.Run("requires a realm", func(t *testing.T) {
			srv, err := NewOnlineService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"access_token":  "test_access_token",
			})
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}
			if err := srv.Authenticate(context.Background()); err != nil {
				t.Fatalf("failed to authenticate: %v", err)
			}

			_, err = srv.FetchTerms(context.Background())
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("CreateTerms", func(t *testing.T) {
		t.Run("records collisions and continues", func(t *testing.T) {
			var posted []string

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v3/company/12345/terms" || r.Method != http.MethodPost {
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}

				var req struct {
					Name         string `json:"name"`
					DiscountDays int    `json:"discount_days"`
				}
				json.NewDecoder(r.Body).Decode(&req)
				posted = append(posted, req.Name)

				w.Header().Set("Content-Type", "application/json")
				if req.Name == "Net 15" {
					w.WriteHeader(http.StatusConflict)
					json.NewEncoder(w).Encode(map[string]string{"message": `a term named "Net 15" already exists`})
					return
				}

				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(map[string]any{"id": "9", "name": req.Name, "discount_days": req.DiscountDays})
			}))
			defer server.Close()

			srv := newOnlineTestService(t, server.URL)

			terms := []models.Term{
				{Name: "Net 60", ID: 4},
				{Name: "Net 15", ID: 5},
				{Name: "Net 90", ID: 6},
			}

			report, err := srv.CreateTerms(context.Background(), terms)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(posted) != 3 {
				t.Fatalf("expected all terms to be attempted, got %d requests", len(posted))
			}

			if len(report.Created) != 2 {
				t.Fatalf("expected 2 created, got %d", len(report.Created))
			}
			if report.Created[0].ID != 4 || report.Created[1].ID != 6 {
				t.Errorf("expected creations in attempt order, got %+v", report.Created)
			}

			if len(report.Failed) != 1 || report.Failed[0].Term.ID != 5 {
				t.Fatalf("expected Net 15 to fail, got %+v", report.Failed)
			}
			if !strings.Contains(report.Failed[0].Reason, "already exists") {
				t.Errorf("expected collision reason, got %s", report.Failed[0].Reason)
			}
		})

		t.Run("aborts when the registry is unreachable", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			baseURL := server.URL
			server.Close()

			srv := newOnlineTestService(t, baseURL)

			_, err := srv.CreateTerms(context.Background(), []models.Term{{Name: "Net 30", ID: 1}})
			if err == nil {
				t.Fatal("expected error for unreachable registry")
			}
			if !errors.Is(err, shared.ErrRegistryUnavailable) {
				t.Errorf("expected ErrRegistryUnavailable, got %v", err)
			}
		})

		t.Run("empty plan makes no requests", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("expected no requests for an empty plan")
			}))
			defer server.Close()

			srv := newOnlineTestService(t, server.URL)

			report, err := srv.CreateTerms(context.Background(), nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if report.Total() != 0 {
				t.Errorf("expected empty report, got %d outcomes", report.Total())
			}
		})
	})
}

func TestRefreshableTokenSource(t *testing.T) {
	t.Run("calls callback on first token fetch", func(t *testing.T) {
		callbackCalled := false
		var capturedToken *oauth2.Token

		mockSource := &mockTokenSource{
			token: &oauth2.Token{AccessToken: "test_token"},
		}

		source := &refreshableTokenSource{
			source: mockSource,
			callback: func(token *oauth2.Token) {
				callbackCalled = true
				capturedToken = token
			},
		}

		token, err := source.Token()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !callbackCalled {
			t.Error("expected callback to be called on first fetch")
		}
		if capturedToken == nil {
			t.Fatal("expected token to be captured")
		}
		if capturedToken.AccessToken != "test_token" {
			t.Errorf("expected captured token to be 'test_token', got %s", capturedToken.AccessToken)
		}
		if token.AccessToken != "test_token" {
			t.Errorf("expected returned token to be 'test_token', got %s", token.AccessToken)
		}
	})

	t.Run("calls callback when token changes", func(t *testing.T) {
		callCount := 0
		var capturedTokens []*oauth2.Token

		mockSource := &mockTokenSource{
			token: &oauth2.Token{AccessToken: "token1"},
		}

		source := &refreshableTokenSource{
			source: mockSource,
			callback: func(token *oauth2.Token) {
				callCount++
				capturedTokens = append(capturedTokens, token)
			},
		}

		_, _ = source.Token()
		if callCount != 1 {
			t.Errorf("expected callback called once, got %d", callCount)
		}

		mockSource.token = &oauth2.Token{AccessToken: "token2"}
		token2, _ := source.Token()

		if callCount != 2 {
			t.Errorf("expected callback called twice, got %d", callCount)
		}
		if len(capturedTokens) != 2 {
			t.Errorf("expected 2 captured tokens, got %d", len(capturedTokens))
		}
		if token2.AccessToken != "token2" {
			t.Errorf("expected new token, got %s", token2.AccessToken)
		}
	})

	t.Run("doesn't call callback when token unchanged", func(t *testing.T) {
		callCount := 0

		mockSource := &mockTokenSource{
			token: &oauth2.Token{AccessToken: "same_token"},
		}

		source := &refreshableTokenSource{
			source: mockSource,
			callback: func(token *oauth2.Token) {
				callCount++
			},
		}

		source.Token()
		source.Token()
		source.Token()

		if callCount != 1 {
			t.Errorf("expected callback called once, got %d", callCount)
		}
	})

	t.Run("skips callback for a pre-seeded token", func(t *testing.T) {
		callCount := 0

		mockSource := &mockTokenSource{
			token: &oauth2.Token{AccessToken: "seeded"},
		}

		source := &refreshableTokenSource{
			source: mockSource,
			last:   "seeded",
			callback: func(token *oauth2.Token) {
				callCount++
			},
		}

		source.Token()
		if callCount != 0 {
			t.Errorf("expected no callback for unchanged seeded token, got %d", callCount)
		}

		mockSource.token = &oauth2.Token{AccessToken: "refreshed"}
		source.Token()
		if callCount != 1 {
			t.Errorf("expected callback after refresh, got %d", callCount)
		}
	})

	t.Run("handles nil callback gracefully", func(t *testing.T) {
		mockSource := &mockTokenSource{
			token: &oauth2.Token{AccessToken: "test_token"},
		}

		source := &refreshableTokenSource{
			source:   mockSource,
			callback: nil,
		}

		token, err := source.Token()
		if err != nil {
			t.Fatalf("expected no error with nil callback, got %v", err)
		}
		if token.AccessToken != "test_token" {
			t.Error("expected token to be returned despite nil callback")
		}
	})

	t.Run("propagates source errors", func(t *testing.T) {
		mockSource := &mockTokenSource{
			err: errors.New("token source error"),
		}

		source := &refreshableTokenSource{
			source: mockSource,
			callback: func(token *oauth2.Token) {
				t.Error("callback should not be called on error")
			},
		}

		token, err := source.Token()
		if err == nil {
			t.Fatal("expected error from source")
		}
		if !strings.Contains(err.Error(), "token source error") {
			t.Errorf("expected source error, got %v", err)
		}
		if token != nil {
			t.Error("expected nil token on error")
		}
	})

	t.Run("contains callback panics", func(t *testing.T) {
		mockSource := &mockTokenSource{
			token: &oauth2.Token{AccessToken: "test_token"},
		}

		source := &refreshableTokenSource{
			source: mockSource,
			callback: func(token *oauth2.Token) {
				panic("callback panic")
			},
		}

		token, err := source.Token()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "test_token" {
			t.Error("expected token despite panicking callback")
		}
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
