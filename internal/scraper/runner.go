package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/chamber-scraper/internal/browser"
	"github.com/maltedev/chamber-scraper/internal/models"
	"github.com/maltedev/chamber-scraper/internal/storage"
)

// Opener starts the browser session for a run.
type Opener func() (browser.Session, error)

// Sink receives every region after it has been written to the JSON store.
type Sink interface {
	SaveRegion(ctx context.Context, runID string, result models.RegionResult) error
}

// Report summarises a finished run.
type Report struct {
	RunID     string
	Regions   int
	Listings  int
	Skipped   []string
	StartedAt time.Time
	Duration  time.Duration
}

// Runner drives one scrape: index page, region discovery, then every
// region in discovery order, one at a time.
type Runner struct {
	scraper     *Scraper
	open        Opener
	store       *storage.JSONStore
	sinks       []Sink
	indexSettle time.Duration
	logger      *slog.Logger
}

func NewRunner(s *Scraper, open Opener, store *storage.JSONStore, indexSettle time.Duration, logger *slog.Logger, sinks ...Sink) *Runner {
	return &Runner{
		scraper:     s,
		open:        open,
		store:       store,
		sinks:       sinks,
		indexSettle: indexSettle,
		logger:      logger.With("component", "runner"),
	}
}

// Run executes the scrape. The browser session is closed on every return
// path. Only browser start-up, index loading and persistence failures are
// returned as errors.
func (r *Runner) Run(ctx context.Context) (report *Report, err error) {
	report = &Report{RunID: uuid.NewString(), StartedAt: time.Now()}
	log := r.logger.With("run_id", report.RunID)

	session, err := r.open()
	if err != nil {
		return report, fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Error("failed to close browser", "error", cerr)
			if err == nil {
				err = fmt.Errorf("failed to close browser: %w", cerr)
			}
		}
		report.Duration = time.Since(report.StartedAt)
	}()

	page, err := session.NewPage(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Warn("failed to close page", "error", cerr)
		}
	}()

	index := r.scraper.IndexURL()
	log.Info("loading index page", "url", index)
	if err := page.Goto(ctx, index); err != nil {
		return report, fmt.Errorf("failed to load index page: %w", err)
	}

	// Client-side rendering has no single element to wait on before the
	// link container exists; this delay is a heuristic.
	if err := sleep(ctx, r.indexSettle); err != nil {
		return report, err
	}

	regions := r.scraper.DiscoverRegions(ctx, page)
	if regions.Len() == 0 {
		log.Warn("no region links found, verify the page structure", "url", index)
		return report, nil
	}

	if err := r.store.Prepare(); err != nil {
		return report, err
	}

	for _, region := range regions.All() {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result := models.RegionResult{
			Region:   region.Name,
			Listings: r.scraper.ExtractRegion(ctx, page, region),
		}

		if err := r.store.SaveRegion(ctx, result); err != nil {
			if errors.Is(err, storage.ErrEmptyFilename) || errors.Is(err, storage.ErrFilenameCollision) {
				log.Error("skipping region output", "region", region.Name, "error", err)
				report.Skipped = append(report.Skipped, region.Name)
				continue
			}
			return report, fmt.Errorf("failed to persist region %s: %w", region.Name, err)
		}

		for _, sink := range r.sinks {
			if err := sink.SaveRegion(ctx, report.RunID, result); err != nil {
				return report, fmt.Errorf("failed to persist region %s: %w", region.Name, err)
			}
		}

		report.Regions++
		report.Listings += len(result.Listings)
	}

	return report, nil
}
