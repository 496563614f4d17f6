package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrTokenExpired   = fmt.Errorf("access token expired")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// Workbook errors
	ErrSourceFormat = fmt.Errorf("workbook format invalid")
	ErrRowParse     = fmt.Errorf("row could not be parsed")
	ErrNoTerms      = fmt.Errorf("no terms found in workbook")

	// Registry errors
	ErrAPIRequest          = fmt.Errorf("API request failed")
	ErrRegistryUnavailable = fmt.Errorf("registry unavailable")
	ErrDuplicateID         = fmt.Errorf("duplicate term id")
	ErrServiceUnavailable  = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// Sides a duplicate term id can originate from.
const (
	OriginSource   = "source"
	OriginRegistry = "registry"
)

// RowError describes a workbook row that could not be parsed into a term.
// It unwraps to [ErrRowParse] so callers can match the class with errors.Is.
type RowError struct {
	Row    int    // 1-based workbook row number
	Column string // column letter, "A" or "B"
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Reason)
}

func (e *RowError) Unwrap() error { return ErrRowParse }

// DuplicateIDError reports a term id appearing more than once on one side of a
// comparison. It unwraps to [ErrDuplicateID].
type DuplicateIDError struct {
	ID     int
	Origin string // OriginSource or OriginRegistry
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate term id %d in %s", e.ID, e.Origin)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// APIError carries an HTTP status returned by a registry endpoint.
// It unwraps to [ErrAPIRequest].
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("API error: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return ErrAPIRequest }
