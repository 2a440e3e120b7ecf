package scraper

import (
	"context"
	"strings"

	"github.com/maltedev/chamber-scraper/internal/browser"
	"github.com/maltedev/chamber-scraper/internal/models"
)

// DiscoverRegions collects region links from the index page already loaded
// in page. Failures are logged and end discovery with whatever was found.
func (s *Scraper) DiscoverRegions(ctx context.Context, page browser.Page) models.Regions {
	var regions models.Regions
	sel := s.opts.Selectors

	if err := page.WaitFor(ctx, sel.LinkContainer, s.opts.DiscoveryTimeout); err != nil {
		s.logger.Error("region link container not found", "selector", sel.LinkContainer, "error", err)
		return regions
	}

	containers, err := page.QueryAll(sel.LinkContainer)
	if err != nil || len(containers) == 0 {
		s.logger.Error("failed to read region link container", "selector", sel.LinkContainer, "error", err)
		return regions
	}

	anchors, err := containers[0].QueryAll(sel.LinkAnchor)
	if err != nil {
		s.logger.Error("failed to list region links", "error", err)
		return regions
	}

	pageURL := page.URL()
	for _, anchor := range anchors {
		href, err := anchor.Attribute("href")
		if err != nil {
			s.logger.Error("failed to read region link", "error", err, "found", regions.Len())
			return regions
		}

		name, err := anchor.Text()
		if err != nil {
			s.logger.Error("failed to read region name", "href", href, "error", err, "found", regions.Len())
			return regions
		}

		if link, ok := s.regionLink(pageURL, href, name); ok {
			regions.Add(strings.TrimSpace(name), link)
		}
	}

	s.logger.Info("discovered regions", "count", regions.Len())
	return regions
}

// regionLink returns the absolute region URL when href qualifies: non-empty
// text and href, the region path present and not the index page itself.
func (s *Scraper) regionLink(pageURL, href, name string) (string, bool) {
	if strings.TrimSpace(href) == "" || strings.TrimSpace(name) == "" {
		return "", false
	}

	u, err := resolve(pageURL, href)
	if err != nil {
		s.logger.Debug("skipping unparsable link", "href", href, "error", err)
		return "", false
	}

	link := u.String()
	if !strings.Contains(link, s.opts.RegionPath) || sameURL(link, s.opts.IndexURL) {
		return "", false
	}
	return link, true
}
