// QuickBooks Online API implementation of [TermService] and [OAuthService]
//
// Authorization follows the Intuit OAuth2 flow described at
// https://developer.intuit.com/app/developer/qbo/docs/develop/authentication-and-authorization
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/termsync/internal/models"
	"github.com/desertthunder/termsync/internal/shared"
	"golang.org/x/oauth2"
)

const (
	qboAuthURL        = "https://appcenter.intuit.com/connect/oauth2"
	qboTokenURL       = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
	defaultQBOBaseURL = "https://sandbox-quickbooks.api.intuit.com"
)

// OnlineTerm represents a payment term record in QuickBooks Online.
// DiscountDays is nil for records that carry no cross-reference id.
type OnlineTerm struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Active       bool   `json:"active"`
	DueDays      int    `json:"due_days"`
	DiscountDays *int   `json:"discount_days"`
}

// OnlineService implements the TermService interface for QuickBooks Online.
// Uses [oauth2] for authentication; expired access tokens are refreshed
// automatically and reported through the token refresh callback.
type OnlineService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	credentials    map[string]string
	baseURL        string
	realmID        string
	onTokenRefresh func(token *oauth2.Token)
	logger         *log.Logger
}

// NewOnlineService creates a new QuickBooks Online service with the given OAuth2 credentials.
func NewOnlineService(credentials map[string]string) (*OnlineService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("missing client_id in credentials")
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("missing client_secret in credentials")
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:8080/callback"
	}

	baseURL, ok := credentials["base_url"]
	if !ok || baseURL == "" {
		baseURL = defaultQBOBaseURL
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{"com.intuit.quickbooks.accounting"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  qboAuthURL,
			TokenURL: qboTokenURL,
		},
	}

	return &OnlineService{
		config:      config,
		httpClient:  http.DefaultClient,
		credentials: credentials,
		baseURL:     baseURL,
		realmID:     credentials["realm_id"],
		logger:      shared.NewLogger(nil),
	}, nil
}

func (o *OnlineService) Name() string {
	return "QuickBooks Online"
}

// SetLogger replaces the service logger.
func (o *OnlineService) SetLogger(logger *log.Logger) {
	o.logger = logger
}

// SetRealmID selects the company the service operates on.
func (o *OnlineService) SetRealmID(realmID string) {
	o.realmID = realmID
}

// SetTokenRefreshCallback registers a function invoked whenever the OAuth2
// token changes, so refreshed tokens can be written back to the config file.
func (o *OnlineService) SetTokenRefreshCallback(callback func(token *oauth2.Token)) {
	o.onTokenRefresh = callback
}

// Authenticate authenticates with the tokens stored in the service credentials.
//
// Returns an error wrapping [shared.ErrTokenExpired] when no token has been
// stored yet, meaning interactive authorization is required first.
func (o *OnlineService) Authenticate(ctx context.Context) error {
	accessToken := o.credentials["access_token"]
	refreshToken := o.credentials["refresh_token"]

	if accessToken == "" && refreshToken == "" {
		return fmt.Errorf("%w: no stored token for QuickBooks Online", shared.ErrTokenExpired)
	}

	return o.OAuthenticate(ctx, &oauth2.Token{AccessToken: accessToken, RefreshToken: refreshToken})
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (o *OnlineService) GetAuthURL(state string) string {
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the OAuth2 configuration used by the callback server.
func (o *OnlineService) GetOAuthConfig() *oauth2.Config {
	return o.config
}

// OAuthenticate authenticates with a previously obtained OAuth2 token.
//
// The resulting HTTP client refreshes expired access tokens with the refresh
// token and reports each refreshed token through the registered callback.
func (o *OnlineService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: empty token", shared.ErrAuthFailed)
	}

	o.token = token
	source := &refreshableTokenSource{
		source: o.config.TokenSource(ctx, token),
		last:   token.AccessToken,
		callback: func(refreshed *oauth2.Token) {
			o.token = refreshed
			if o.onTokenRefresh != nil {
				o.onTokenRefresh(refreshed)
			}
		},
	}

	o.httpClient = oauth2.NewClient(ctx, source)
	return nil
}

// doRequest performs an authenticated HTTP request against the QuickBooks Online API.
func (o *OnlineService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if o.token == nil {
		return fmt.Errorf("not authenticated: call Authenticate first")
	}

	if o.realmID == "" {
		return fmt.Errorf("%w: missing realm_id in credentials", shared.ErrMissingCredentials)
	}

	apiURL := fmt.Sprintf("%s/v3/company/%s%s", o.baseURL, o.realmID, endpoint)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+o.token.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, retrieveErr)
		}
		return fmt.Errorf("%w: %v", shared.ErrRegistryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if o.token.RefreshToken == "" {
			return fmt.Errorf("%w: authorization rejected (status 401)", shared.ErrNoRefreshToken)
		}
		return fmt.Errorf("%w: authorization rejected (status 401)", shared.ErrRegistryUnavailable)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Message != "" {
			return &shared.APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
		}
		return &shared.APIError{StatusCode: resp.StatusCode}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// FetchTerms retrieves every payment term defined for the company.
//
// Records without a cross-reference id are skipped with a warning, since they
// cannot be matched against the source.
func (o *OnlineService) FetchTerms(ctx context.Context) ([]models.Term, error) {
	var response struct {
		Terms []OnlineTerm `json:"terms"`
	}

	if err := o.doRequest(ctx, http.MethodGet, "/terms", nil, &response); err != nil {
		return nil, err
	}

	terms := make([]models.Term, 0, len(response.Terms))
	for _, item := range response.Terms {
		if item.DiscountDays == nil {
			o.logger.Warn("skipping term without a cross-reference id", "name", item.Name, "id", item.ID)
			continue
		}

		terms = append(terms, models.Term{Name: item.Name, ID: *item.DiscountDays})
	}

	return terms, nil
}

// createTerm creates a single term record.
func (o *OnlineService) createTerm(ctx context.Context, term models.Term) error {
	payload := map[string]any{
		"name":          term.Name,
		"discount_days": term.ID,
	}

	return o.doRequest(ctx, http.MethodPost, "/terms", payload, nil)
}

// CreateTerms adds the given terms one request at a time.
//
// A 409 response marks the term as failed (name collision) and the remaining
// terms are still attempted; an unreachable registry aborts the batch.
func (o *OnlineService) CreateTerms(ctx context.Context, terms []models.Term) (*models.CreationReport, error) {
	report := &models.CreationReport{}

	for _, term := range terms {
		err := o.createTerm(ctx, term)
		if err == nil {
			report.Created = append(report.Created, term)
			continue
		}

		if errors.Is(err, shared.ErrRegistryUnavailable) {
			return nil, err
		}

		var apiErr *shared.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			reason := "name already exists"
			if apiErr.Message != "" {
				reason = apiErr.Message
			}
			report.Failed = append(report.Failed, models.CreationFailure{Term: term, Reason: reason})
			continue
		}

		report.Failed = append(report.Failed, models.CreationFailure{Term: term, Reason: err.Error()})
	}

	return report, nil
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports new access
// tokens through a callback so refreshed tokens can be persisted.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(token *oauth2.Token)
	mu       sync.Mutex
	last     string
}

// Token returns the current token, invoking the callback whenever the access
// token changed since the previous call.
func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.notify(token)
	}

	return token, nil
}

// notify runs the callback, recovering any panic it raises.
func (r *refreshableTokenSource) notify(token *oauth2.Token) {
	defer func() {
		_ = recover()
	}()

	r.callback(token)
}
