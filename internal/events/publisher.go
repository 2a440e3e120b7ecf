package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/chamber-scraper/internal/models"
	"github.com/maltedev/chamber-scraper/internal/storage"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeRegionScraped is published after a region file has been written
	EventTypeRegionScraped EventType = "REGION_SCRAPED"
)

// RegionScrapedPayload is the data field of a REGION_SCRAPED stream entry.
type RegionScrapedPayload struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	Timestamp    time.Time `json:"timestamp"`
	RunID        string    `json:"run_id"`
	Region       string    `json:"region"`
	File         string    `json:"file"`
	ListingCount int       `json:"listing_count"`
	WithWebsite  int       `json:"with_website"`
	Source       string    `json:"source"`
}

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// Publisher announces finished regions on a Redis stream.
type Publisher struct {
	redis  RedisClient
	stream string
	now    func() time.Time
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	return &Publisher{
		redis:  client,
		stream: stream,
		now:    time.Now,
		logger: logger.With("component", "event_publisher"),
	}
}

func (p *Publisher) SaveRegion(ctx context.Context, runID string, result models.RegionResult) error {
	file, err := storage.FileName(result.Region)
	if err != nil {
		return fmt.Errorf("failed to name region file: %w", err)
	}

	payload := RegionScrapedPayload{
		EventID:      uuid.New().String(),
		EventType:    string(EventTypeRegionScraped),
		Timestamp:    p.now().UTC(),
		RunID:        runID,
		Region:       result.Region,
		File:         file,
		ListingCount: len(result.Listings),
		Source:       "chamber-scraper",
	}
	for _, l := range result.Listings {
		if l.Website != nil {
			payload.WithWebsite++
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":      string(data),
			"type":      payload.EventType,
			"event_id":  payload.EventID,
			"run_id":    runID,
			"region":    result.Region,
			"timestamp": fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
		},
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("event published",
		"stream", p.stream,
		"stream_id", id,
		"event_id", payload.EventID,
		"region", result.Region)
	return nil
}
