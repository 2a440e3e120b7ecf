package scraper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/chamber-scraper/internal/browser"
	"github.com/maltedev/chamber-scraper/internal/models"
	"github.com/maltedev/chamber-scraper/internal/storage"
)

// trackedSession wraps a session and records Close.
type trackedSession struct {
	browser.Session
	closed int
}

func (s *trackedSession) Close() error {
	s.closed++
	return s.Session.Close()
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) SaveRegion(ctx context.Context, runID string, result models.RegionResult) error {
	args := m.Called(ctx, runID, result)
	return args.Error(0)
}

func chamberSite(t *testing.T) *fixtureSite {
	return newFixtureSite(t, map[string]string{
		"/co/chambers":       indexPage,
		"/co/chambers/texas": texasPage,
		"/co/chambers/ohio":  ohioPage,
	})
}

func newTestRunner(t *testing.T, site *fixtureSite, outDir string, sinks ...Sink) (*Runner, *trackedSession) {
	t.Helper()

	tracked := &trackedSession{Session: browser.NewHTTPSession(&browser.Options{Timeout: 5 * time.Second})}
	open := func() (browser.Session, error) { return tracked, nil }

	s := newTestScraper(t, site.URL+"/co/chambers")
	store := storage.NewJSONStore(outDir, discardLogger())
	return NewRunner(s, open, store, time.Millisecond, discardLogger(), sinks...), tracked
}

func TestRunner_EndToEnd(t *testing.T) {
	site := chamberSite(t)
	outDir := filepath.Join(t.TempDir(), "chambers_by_state")

	sink := new(MockSink)
	sink.On("SaveRegion", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("models.RegionResult")).Return(nil)

	runner, session := newTestRunner(t, site, outDir, sink)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, session.closed)
	assert.Equal(t, 2, report.Regions)
	assert.Equal(t, 1, report.Listings)
	assert.Empty(t, report.Skipped)
	assert.NotEmpty(t, report.RunID)

	texas, err := os.ReadFile(filepath.Join(outDir, "Texas.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Texas": [{"name": "Austin Chamber", "address": "123 Main St", "website": "https://austinchamber.org"}]}`, string(texas))

	ohio, err := os.ReadFile(filepath.Join(outDir, "Ohio.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ohio": []}`, string(ohio))

	assert.Equal(t, 1, site.Hits("/co/chambers/ohio"))

	sink.AssertNumberOfCalls(t, "SaveRegion", 2)
	first := sink.Calls[0].Arguments.Get(2).(models.RegionResult)
	assert.Equal(t, "Texas", first.Region)
	assert.Equal(t, report.RunID, sink.Calls[0].Arguments.String(1))
}

func TestRunner_NoRegionsExitsEarly(t *testing.T) {
	site := newFixtureSite(t, map[string]string{
		"/co/chambers": `<html><body><p>maintenance</p></body></html>`,
	})
	outDir := filepath.Join(t.TempDir(), "chambers_by_state")

	runner, session := newTestRunner(t, site, outDir)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, session.closed)
	assert.Equal(t, 0, report.Regions)

	_, err = os.Stat(outDir)
	assert.True(t, os.IsNotExist(err), "no output directory on early exit")
}

func TestRunner_IndexLoadFailure(t *testing.T) {
	site := newFixtureSite(t, map[string]string{})
	runner, session := newTestRunner(t, site, t.TempDir())

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, session.closed)
}

func TestRunner_PersistenceFailureIsFatal(t *testing.T) {
	site := chamberSite(t)

	// A regular file where the output directory should be.
	outDir := filepath.Join(t.TempDir(), "chambers_by_state")
	require.NoError(t, os.WriteFile(outDir, []byte("x"), 0o644))

	runner, session := newTestRunner(t, site, outDir)

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, session.closed)
}

func TestRunner_SinkFailureIsFatal(t *testing.T) {
	site := chamberSite(t)
	outDir := t.TempDir()

	sink := new(MockSink)
	sink.On("SaveRegion", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()

	runner, session := newTestRunner(t, site, outDir, sink)

	report, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Texas")
	assert.Equal(t, 1, session.closed)
	assert.Equal(t, 0, report.Regions)

	_, err = os.Stat(filepath.Join(outDir, "Ohio.json"))
	assert.True(t, os.IsNotExist(err), "run stops at the failing region")
}

func TestRunner_SkipsUnwritableNames(t *testing.T) {
	site := newFixtureSite(t, map[string]string{
		"/co/chambers": `<div id="chamber-finder-js">
  <a href="/co/chambers/a-b">A/B</a>
  <a href="/co/chambers/a-c">A:B</a>
  <a href="/co/chambers/ohio">Ohio</a>
</div>`,
		"/co/chambers/a-b":  texasPage,
		"/co/chambers/a-c":  texasPage,
		"/co/chambers/ohio": ohioPage,
	})
	outDir := t.TempDir()

	runner, _ := newTestRunner(t, site, outDir)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"A:B"}, report.Skipped)
	assert.Equal(t, 2, report.Regions)

	store := storage.NewJSONStore(outDir, discardLogger())
	saved, err := store.LoadRegion("A_B.json")
	require.NoError(t, err)
	assert.Equal(t, "A/B", saved.Region)
}

func TestRunner_BrowserStartFailure(t *testing.T) {
	s := newTestScraper(t, "https://www.uschamber.com/co/chambers")
	store := storage.NewJSONStore(t.TempDir(), discardLogger())
	open := func() (browser.Session, error) { return nil, errors.New("chromium not installed") }

	runner := NewRunner(s, open, store, 0, discardLogger())

	_, err := runner.Run(context.Background())
	assert.ErrorContains(t, err, "failed to start browser")
}

func TestRunner_Cancelled(t *testing.T) {
	site := chamberSite(t)
	runner, session := newTestRunner(t, site, t.TempDir())
	runner.indexSettle = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, session.closed)
}
