package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Selectors locate the parts of the chamber directory pages.
type Selectors struct {
	LinkContainer string
	LinkAnchor    string
	Listing       string
	Name          string
	Address       string
	Website       string
}

func DefaultSelectors() Selectors {
	return Selectors{
		LinkContainer: "#chamber-finder-js",
		LinkAnchor:    "a",
		Listing:       ".chamber-finder__content",
		Name:          "h3",
		Address:       ".chamber-finder__address",
		Website:       "a",
	}
}

type Options struct {
	IndexURL string
	// RegionPath must appear in a link for it to count as a region page.
	RegionPath       string
	Selectors        Selectors
	DiscoveryTimeout time.Duration
	RegionTimeout    time.Duration
	// RegionSettle is slept after the listing wait succeeds, for content the
	// wait condition does not cover.
	RegionSettle time.Duration
}

// Scraper reads regions and listings from pages positioned by the caller.
type Scraper struct {
	opts     Options
	siteHost string
	logger   *slog.Logger
}

func New(opts Options, logger *slog.Logger) (*Scraper, error) {
	index, err := url.Parse(opts.IndexURL)
	if err != nil || index.Host == "" {
		return nil, fmt.Errorf("invalid index URL %q", opts.IndexURL)
	}

	if opts.Selectors == (Selectors{}) {
		opts.Selectors = DefaultSelectors()
	}

	return &Scraper{
		opts:     opts,
		siteHost: baseDomain(index.Hostname()),
		logger:   logger.With("component", "scraper"),
	}, nil
}

func (s *Scraper) IndexURL() string {
	return s.opts.IndexURL
}

// resolve makes href absolute against the page it was found on.
func resolve(base, href string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, err
	}
	if base == "" {
		return ref, nil
	}

	b, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	return b.ResolveReference(ref), nil
}

// isExternal reports whether u is an http(s) link off the directory site.
// Subdomains of the site, www included, are not external.
func (s *Scraper) isExternal(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := baseDomain(u.Hostname())
	if host == "" {
		return false
	}
	return host != s.siteHost && !strings.HasSuffix(host, "."+s.siteHost)
}

func baseDomain(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func sameURL(a, b string) bool {
	return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
