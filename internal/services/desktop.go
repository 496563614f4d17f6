// QuickBooks Desktop [TermService] implementation
//
// Communicates with the QBXML bridge daemon, which relays QBXML envelopes to
// the desktop application over its SDK request processor. The bridge owns the
// company-file connection; this client only manages the session ticket.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/termsync/internal/models"
	"github.com/desertthunder/termsync/internal/shared"
	"golang.org/x/time/rate"
)

const defaultBridgeURL string = "http://localhost:8733"

// defaultBridgeRate caps bridge requests per second. The bridge serializes
// everything onto one SDK connection, so bursts only queue up behind it.
const defaultBridgeRate = 4

// DesktopService implements the TermService interface for QuickBooks Desktop via the QBXML bridge.
type DesktopService struct {
	bridgeURL   string
	companyFile string
	appName     string
	ticket      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *log.Logger
}

// NewDesktopService creates a new QuickBooks Desktop service from bridge credentials.
//
// Recognised keys are "bridge_url", "company_file" and "app_name". An empty
// company file tells the bridge to use whichever company file is open.
func NewDesktopService(credentials map[string]string) *DesktopService {
	bridgeURL, ok := credentials["bridge_url"]
	if !ok || bridgeURL == "" {
		bridgeURL = defaultBridgeURL
	}

	appName, ok := credentials["app_name"]
	if !ok || appName == "" {
		appName = "termsync"
	}

	return &DesktopService{
		bridgeURL:   bridgeURL,
		companyFile: credentials["company_file"],
		appName:     appName,
		httpClient:  http.DefaultClient,
		limiter:     rate.NewLimiter(rate.Limit(defaultBridgeRate), 1),
		logger:      shared.NewLogger(nil),
	}
}

// Name returns the registry name.
func (d *DesktopService) Name() string {
	return "QuickBooks Desktop"
}

// SetLogger replaces the service logger.
func (d *DesktopService) SetLogger(logger *log.Logger) {
	d.logger = logger
}

// SetRateLimit overrides the default bridge request rate.
func (d *DesktopService) SetRateLimit(rps float64) {
	if rps > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// Authenticate opens a bridge session against the configured company file.
//
// Calls POST /session on the bridge and stores the returned ticket for
// subsequent requests.
func (d *DesktopService) Authenticate(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"company_file": d.companyFile,
		"app_name":     d.appName,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.bridgeURL+"/session", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: bridge unreachable at %s: %v", shared.ErrRegistryUnavailable, d.bridgeURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: bridge refused to open a session (status %d)", shared.ErrRegistryUnavailable, resp.StatusCode)
	}

	var session struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return fmt.Errorf("failed to decode session response: %w", err)
	}

	if session.Ticket == "" {
		return fmt.Errorf("%w: bridge returned an empty session ticket", shared.ErrRegistryUnavailable)
	}

	d.ticket = session.Ticket
	return nil
}

// Close ends the bridge session. Safe to call when no session is open.
func (d *DesktopService) Close(ctx context.Context) error {
	if d.ticket == "" {
		return nil
	}

	endpoint := fmt.Sprintf("%s/session/%s", d.bridgeURL, d.ticket)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	defer resp.Body.Close()

	d.ticket = ""
	return nil
}

// doRequest posts a QBXML document to the open session and returns the raw response body.
func (d *DesktopService) doRequest(ctx context.Context, payload []byte) ([]byte, error) {
	if d.ticket == "" {
		return nil, fmt.Errorf("%w: no bridge session, call Authenticate first", shared.ErrRegistryUnavailable)
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("request cancelled: %w", err)
	}

	endpoint := fmt.Sprintf("%s/session/%s/request", d.bridgeURL, d.ticket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRegistryUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &shared.APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	return body, nil
}

// FetchTerms retrieves every standard term from the company file.
//
// Records without a cross-reference id (terms created outside the sync) are
// skipped with a warning, since they cannot be matched against the source.
func (d *DesktopService) FetchTerms(ctx context.Context) ([]models.Term, error) {
	payload, err := MarshalTermsQuery()
	if err != nil {
		return nil, err
	}

	body, err := d.doRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	records, err := ParseTermsQuery(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRegistryUnavailable, err)
	}

	terms := make([]models.Term, 0, len(records))
	for _, ret := range records {
		if ret.StdDiscountDays == nil {
			d.logger.Warn("skipping term without a cross-reference id", "name", ret.Name, "list_id", ret.ListID)
			continue
		}

		terms = append(terms, models.Term{Name: ret.Name, ID: *ret.StdDiscountDays})
	}

	return terms, nil
}

// CreateTerms adds the given terms through a single batched QBXML request.
//
// The request runs with onError="continueOnError", so each term's outcome is
// read from its own response status rather than from the batch as a whole.
func (d *DesktopService) CreateTerms(ctx context.Context, terms []models.Term) (*models.CreationReport, error) {
	report := &models.CreationReport{}
	if len(terms) == 0 {
		return report, nil
	}

	payload, err := MarshalTermsAdd(terms)
	if err != nil {
		return nil, err
	}

	body, err := d.doRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	results, err := ParseTermsAdd(body)
	if err != nil {
		return nil, err
	}

	outcomes := make(map[string]TermAddRs, len(results))
	for _, rs := range results {
		outcomes[rs.RequestID] = rs
	}

	for i, term := range terms {
		rs, ok := outcomes[strconv.Itoa(i+1)]
		if !ok {
			report.Failed = append(report.Failed, models.CreationFailure{Term: term, Reason: "no response from the bridge"})
			continue
		}

		switch rs.StatusCode {
		case statusOK:
			report.Created = append(report.Created, term)
		case statusNameExists:
			reason := "name already exists"
			if rs.StatusMessage != "" {
				reason = rs.StatusMessage
			}
			report.Failed = append(report.Failed, models.CreationFailure{Term: term, Reason: reason})
		default:
			report.Failed = append(report.Failed, models.CreationFailure{
				Term:   term,
				Reason: fmt.Sprintf("status %s: %s", rs.StatusCode, rs.StatusMessage),
			})
		}
	}

	return report, nil
}
