// package services defines interface TermService for interacting with accounting registries
//
// QuickBooks Desktop (via the QBXML bridge), QuickBooks Online
package services

import (
	"context"

	"github.com/desertthunder/termsync/internal/models"
	"golang.org/x/oauth2"
)

// TermService defines the interface for accounting registries (QuickBooks Desktop, QuickBooks Online) that store payment terms.
type TermService interface {
	// Authenticate acquires a session with the registry using the credentials
	// the service was constructed with. Returns an error wrapping
	// [shared.ErrRegistryUnavailable] when no session can be opened.
	Authenticate(ctx context.Context) error

	// FetchTerms retrieves every payment term defined in the registry.
	// The registry's cross-reference field is read as the term id; records
	// without one are skipped.
	FetchTerms(ctx context.Context) ([]models.Term, error)

	// CreateTerms adds the given terms to the registry in order.
	// Individual failures are recorded in the report and do not abort the
	// remaining creations.
	CreateTerms(ctx context.Context, terms []models.Term) (*models.CreationReport, error)

	// Name returns the name of the registry (e.g., "QuickBooks Desktop")
	Name() string
}

// OAuthService extends TermService for registries that authorize through OAuth2.
type OAuthService interface {
	TermService

	// GetAuthURL returns the OAuth2 authorization URL for user login.
	GetAuthURL(state string) string

	// GetOAuthConfig returns the OAuth2 configuration used by the callback server.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate authenticates with a previously obtained token.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error

	// SetTokenRefreshCallback registers a function invoked whenever the
	// token is refreshed, so callers can persist the new token.
	SetTokenRefreshCallback(callback func(token *oauth2.Token))
}
