// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
)

// MockSource is a configurable test double for [services.PlaylistSource]
type MockSource struct {
	PlaylistName string
	Tracks       []models.TrackDescriptor
	Err          error
	Calls        int
}

func (m *MockSource) Resolve(ctx context.Context, playlistURL string) (string, []models.TrackDescriptor, error) {
	m.Calls++
	if m.Err != nil {
		return "", nil, m.Err
	}
	return m.PlaylistName, m.Tracks, nil
}

func (m *MockSource) Name() string { return "mock-source" }

// MockProvider is a configurable test double for [services.Provider]
type MockProvider struct {
	ProviderName string
	Match        *services.MatchedTrack
	SearchErr    error
	StreamURL    string
	ResolveErr   error
	DownloadErr  error
	FileBody     []byte

	SearchCalls   int
	DownloadCalls int
}

func (m *MockProvider) SearchTrack(ctx context.Context, query string) (*services.MatchedTrack, error) {
	m.SearchCalls++
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return m.Match, nil
}

func (m *MockProvider) ResolveStreamURL(ctx context.Context, track *services.MatchedTrack) (string, error) {
	if m.ResolveErr != nil {
		return "", m.ResolveErr
	}
	return m.StreamURL, nil
}

func (m *MockProvider) DownloadToFile(ctx context.Context, streamURL, dest string, onProgress services.ProgressFunc) error {
	m.DownloadCalls++
	if m.DownloadErr != nil {
		return m.DownloadErr
	}
	body := m.FileBody
	if body == nil {
		body = []byte("audio")
	}
	if err := os.WriteFile(dest, body, 0644); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(int64(len(body)), int64(len(body)))
	}
	return nil
}

func (m *MockProvider) Name() string {
	if m.ProviderName != "" {
		return m.ProviderName
	}
	return "mock-provider"
}

// MockAnalyzer returns a fixed loudness measurement
type MockAnalyzer struct {
	Db    float64
	Ok    bool
	Calls int
}

func (m *MockAnalyzer) Measure(ctx context.Context, path string) (float64, bool) {
	m.Calls++
	return m.Db, m.Ok
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

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
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
