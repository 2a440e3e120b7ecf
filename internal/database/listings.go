package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/maltedev/chamber-scraper/internal/models"
)

const createListingsTable = `
	CREATE TABLE IF NOT EXISTS chamber_listings (
		region     TEXT        NOT NULL,
		position   INTEGER     NOT NULL,
		name       TEXT        NOT NULL,
		address    TEXT        NOT NULL,
		website    TEXT,
		run_id     UUID        NOT NULL,
		scraped_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (region, position)
	)`

// Store is the part of DB the repository needs.
type Store interface {
	Transaction(ctx context.Context, fn func(pgx.Tx) error) error
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ListingRepository mirrors each region's latest listings into Postgres.
type ListingRepository struct {
	db     Store
	now    func() time.Time
	logger *slog.Logger
}

func NewListingRepository(db Store, logger *slog.Logger) *ListingRepository {
	return &ListingRepository{
		db:     db,
		now:    time.Now,
		logger: logger.With("component", "listing_repository"),
	}
}

func (r *ListingRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createListingsTable); err != nil {
		return fmt.Errorf("failed to create chamber_listings: %w", err)
	}
	return nil
}

// SaveRegion replaces the stored rows of a region with result in one
// transaction, keeping listing order in the position column.
func (r *ListingRepository) SaveRegion(ctx context.Context, runID string, result models.RegionResult) error {
	scrapedAt := r.now().UTC()

	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM chamber_listings WHERE region = $1`, result.Region); err != nil {
			return fmt.Errorf("failed to clear region: %w", err)
		}

		for i, l := range result.Listings {
			_, err := tx.Exec(ctx, `
				INSERT INTO chamber_listings
				(region, position, name, address, website, run_id, scraped_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				result.Region, i, l.Name, l.Address, l.Website, runID, scrapedAt)
			if err != nil {
				return fmt.Errorf("failed to insert listing %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store region %s: %w", result.Region, err)
	}

	r.logger.Debug("region stored", "region", result.Region, "count", len(result.Listings), "run_id", runID)
	return nil
}
