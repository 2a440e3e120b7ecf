package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maltedev/chamber-scraper/internal/browser"
)

const indexPage = `<html><body>
<nav><a href="/co/chambers/utah">Utah</a></nav>
<div id="chamber-finder-js">
  <ul>
    <li><a href="/co/chambers/texas">Texas</a></li>
    <li><a href="/co/chambers/ohio">
        Ohio
    </a></li>
  </ul>
</div>
</body></html>`

const texasPage = `<html><body>
<div class="chamber-finder__content">
  <h3>Austin Chamber</h3>
  <p class="chamber-finder__address">123 Main St</p>
  <a href="/co/chambers/texas/austin">Details</a>
  <a href="https://austinchamber.org">Website</a>
</div>
</body></html>`

const ohioPage = `<html><body><p>Loading chambers...</p></body></html>`

// fixtureSite serves HTML by path and counts requests.
type fixtureSite struct {
	*httptest.Server
	mu    sync.Mutex
	hits  map[string]int
	pages map[string]string
}

func newFixtureSite(t *testing.T, pages map[string]string) *fixtureSite {
	t.Helper()

	site := &fixtureSite{hits: make(map[string]int), pages: pages}
	site.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.hits[r.URL.Path]++
		site.mu.Unlock()

		body, ok := site.pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(site.Close)
	return site
}

func (f *fixtureSite) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScraper(t *testing.T, indexURL string) *Scraper {
	t.Helper()

	s, err := New(Options{
		IndexURL:         indexURL,
		RegionPath:       "/co/chambers/",
		DiscoveryTimeout: 50 * time.Millisecond,
		RegionTimeout:    50 * time.Millisecond,
		RegionSettle:     time.Millisecond,
	}, discardLogger())
	require.NoError(t, err)
	return s
}

// loadPage opens a static page on url.
func loadPage(t *testing.T, url string) browser.Page {
	t.Helper()

	session := browser.NewHTTPSession(&browser.Options{Timeout: 5 * time.Second})
	t.Cleanup(func() { session.Close() })

	page, err := session.NewPage(context.Background())
	require.NoError(t, err)
	if url != "" {
		require.NoError(t, page.Goto(context.Background(), url))
	}
	return page
}

// fakeElement is an in-memory Element with injectable failures.
type fakeElement struct {
	text     string
	attrs    map[string]string
	children map[string][]browser.Element
	textErr  error
	attrErr  error
	queryErr map[string]error
}

func (e *fakeElement) Text() (string, error) {
	return e.text, e.textErr
}

func (e *fakeElement) Attribute(name string) (string, error) {
	if e.attrErr != nil {
		return "", e.attrErr
	}
	return e.attrs[name], nil
}

func (e *fakeElement) QueryAll(selector string) ([]browser.Element, error) {
	if err := e.queryErr[selector]; err != nil {
		return nil, err
	}
	return e.children[selector], nil
}

func anchor(href, text string) *fakeElement {
	return &fakeElement{text: text, attrs: map[string]string{"href": href}}
}

// fakePage serves a fixed element tree and records navigation.
type fakePage struct {
	url      string
	gotos    []string
	gotoErr  error
	waitErr  map[string]error
	waits    []string
	elements map[string][]browser.Element
	queryErr error
	closed   bool
}

func (p *fakePage) Goto(ctx context.Context, url string) error {
	p.gotos = append(p.gotos, url)
	if p.gotoErr != nil {
		return p.gotoErr
	}
	p.url = url
	return nil
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	p.waits = append(p.waits, selector)
	if err := p.waitErr[selector]; err != nil {
		return err
	}
	return nil
}

func (p *fakePage) QueryAll(selector string) ([]browser.Element, error) {
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return p.elements[selector], nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

var errBoom = errors.New("stale element")
