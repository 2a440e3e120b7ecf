package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var errNoDocument = errors.New("no document loaded")

// HTTPSession fetches pages without running JavaScript. The DOM never
// changes after load, so WaitFor answers immediately.
type HTTPSession struct {
	client    *http.Client
	userAgent string
	language  string
	logger    *slog.Logger
}

func NewHTTPSession(opts *Options) *HTTPSession {
	opts = opts.withDefaults()

	return &HTTPSession{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		language:  opts.AcceptLanguage,
		logger:    slog.Default().With("component", "browser", "engine", EngineHTTP),
	}
}

func (s *HTTPSession) NewPage(ctx context.Context) (Page, error) {
	return &httpPage{session: s}, nil
}

func (s *HTTPSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

type httpPage struct {
	session *HTTPSession
	url     string
	doc     *goquery.Document
}

func (p *httpPage) Goto(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", p.session.userAgent)
	req.Header.Set("Accept-Language", p.session.language)

	resp, err := p.session.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("failed to navigate to %s: status %d", url, resp.StatusCode)
	}

	doc, err := parseDocument(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", url, err)
	}

	p.doc = doc
	p.url = resp.Request.URL.String()
	p.session.logger.Debug("page loaded", "url", p.url, "status", resp.StatusCode)
	return nil
}

func (p *httpPage) URL() string {
	return p.url
}

func (p *httpPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.doc == nil {
		return errNoDocument
	}
	if p.doc.Find(selector).Length() == 0 {
		return waitTimeout(selector, timeout)
	}
	return nil
}

func (p *httpPage) QueryAll(selector string) ([]Element, error) {
	if p.doc == nil {
		return nil, errNoDocument
	}
	return wrapSelection(p.doc.Find(selector)), nil
}

func (p *httpPage) Close() error {
	p.doc = nil
	return nil
}
