package scraper

import (
	"context"

	"github.com/maltedev/chamber-scraper/internal/browser"
	"github.com/maltedev/chamber-scraper/internal/models"
)

// ExtractRegion loads the region page and reads every listing on it. A
// region whose listings never appear yields no listings; it is not retried.
func (s *Scraper) ExtractRegion(ctx context.Context, page browser.Page, region models.Region) []models.Listing {
	log := s.logger.With("region", region.Name)
	log.Info("scraping region", "url", region.URL)

	if err := page.Goto(ctx, region.URL); err != nil {
		log.Error("failed to load region page", "error", err)
		return nil
	}

	sel := s.opts.Selectors
	if err := page.WaitFor(ctx, sel.Listing, s.opts.RegionTimeout); err != nil {
		log.Error("timed out waiting for listings", "selector", sel.Listing, "error", err)
		return nil
	}

	if err := sleep(ctx, s.opts.RegionSettle); err != nil {
		log.Warn("settle delay interrupted", "error", err)
		return nil
	}

	containers, err := page.QueryAll(sel.Listing)
	if err != nil {
		log.Error("failed to list chambers", "error", err)
		return nil
	}

	pageURL := page.URL()
	listings := make([]models.Listing, 0, len(containers))
	for _, c := range containers {
		listings = append(listings, s.extractListing(c, pageURL))
	}

	log.Info("extracted listings", "count", len(listings))
	return listings
}

// extractListing reads each field on its own; a missing or unreadable
// field never affects the others.
func (s *Scraper) extractListing(container browser.Element, pageURL string) models.Listing {
	sel := s.opts.Selectors

	name, ok := s.textOf(container, sel.Name)
	if !ok {
		name = models.UnknownField
	}

	address, ok := s.textOf(container, sel.Address)
	if !ok {
		address = models.UnknownField
	}

	var website *string
	if link, ok := s.websiteOf(container, pageURL); ok {
		website = &link
	}

	return models.Listing{Name: name, Address: address, Website: website}
}

// textOf returns the text of the first match of selector, if it has any.
func (s *Scraper) textOf(scope browser.Element, selector string) (string, bool) {
	el, found, err := browser.First(scope, selector)
	if err != nil {
		s.logger.Debug("field lookup failed", "selector", selector, "error", err)
		return "", false
	}
	if !found {
		return "", false
	}

	text, err := el.Text()
	if err != nil {
		s.logger.Debug("field text unreadable", "selector", selector, "error", err)
		return "", false
	}
	return text, text != ""
}

// websiteOf returns the first link in scope that leaves the directory site.
func (s *Scraper) websiteOf(scope browser.Element, pageURL string) (string, bool) {
	anchors, err := scope.QueryAll(s.opts.Selectors.Website)
	if err != nil {
		s.logger.Debug("website lookup failed", "error", err)
		return "", false
	}

	for _, a := range anchors {
		href, err := a.Attribute("href")
		if err != nil || href == "" {
			continue
		}

		u, err := resolve(pageURL, href)
		if err != nil {
			continue
		}
		if s.isExternal(u) {
			return u.String(), true
		}
	}
	return "", false
}
