// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/termsync/internal/models"
)

// MockTermService is a configurable test double for [services.TermService].
// The zero value authenticates successfully, fetches no terms and reports
// every creation as successful.
type MockTermService struct {
	ServiceName string
	Terms       []models.Term
	Report      *models.CreationReport
	AuthErr     error
	FetchErr    error
	CreateErr   error

	// CreateCalls records the terms passed to each CreateTerms call.
	CreateCalls [][]models.Term
}

func (m *MockTermService) Authenticate(ctx context.Context) error {
	return m.AuthErr
}

func (m *MockTermService) FetchTerms(ctx context.Context) ([]models.Term, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return m.Terms, nil
}

func (m *MockTermService) CreateTerms(ctx context.Context, terms []models.Term) (*models.CreationReport, error) {
	m.CreateCalls = append(m.CreateCalls, terms)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if m.Report != nil {
		return m.Report, nil
	}
	return &models.CreationReport{Created: terms}, nil
}

func (m *MockTermService) Name() string {
	if m.ServiceName == "" {
		return "mock"
	}
	return m.ServiceName
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
