package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maltedev/chamber-scraper/internal/models"
)

const fileExt = ".json"

var (
	ErrEmptyFilename     = errors.New("region name sanitizes to an empty file name")
	ErrFilenameCollision = errors.New("file name already written for another region")
)

// JSONStore writes one <region>.json file per region into a directory.
type JSONStore struct {
	mu      sync.Mutex
	dir     string
	written map[string]string // file name -> region display name
	logger  *slog.Logger
}

func NewJSONStore(dir string, logger *slog.Logger) *JSONStore {
	return &JSONStore{
		dir:     dir,
		written: make(map[string]string),
		logger:  logger.With("component", "json_store"),
	}
}

func (s *JSONStore) Dir() string {
	return s.dir
}

// Prepare creates the output directory if it does not exist.
func (s *JSONStore) Prepare() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", s.dir, err)
	}
	return nil
}

// FileName returns the file a region is stored in.
func FileName(region string) (string, error) {
	safe := SanitizeFilename(region)
	if safe == "" {
		return "", ErrEmptyFilename
	}
	return safe + fileExt, nil
}

// SaveRegion writes the region's listings, replacing any existing file.
// Two different regions mapping to the same file within one store are
// refused with ErrFilenameCollision.
func (s *JSONStore) SaveRegion(ctx context.Context, result models.RegionResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, err := FileName(result.Region)
	if err != nil {
		return fmt.Errorf("%w: %q", err, result.Region)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.written[name]; ok && owner != result.Region {
		return fmt.Errorf("%w: %s (regions %q and %q)", ErrFilenameCollision, name, owner, result.Region)
	}

	data, err := encode(result)
	if err != nil {
		return fmt.Errorf("failed to encode region %s: %w", result.Region, err)
	}

	path := filepath.Join(s.dir, name)
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpFile, err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename %s: %w", tmpFile, err)
	}

	s.written[name] = result.Region
	s.logger.Info("saved region", "region", result.Region, "file", path, "count", len(result.Listings))
	return nil
}

// encode renders the file body: 4-space indentation, no HTML escaping.
func encode(result models.RegionResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadRegion reads a stored file by name, e.g. "Texas.json".
func (s *JSONStore) LoadRegion(name string) (*models.RegionResult, error) {
	if name != filepath.Base(name) || !strings.HasSuffix(name, fileExt) {
		return nil, fmt.Errorf("invalid region file name %q: %w", name, os.ErrNotExist)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}

	var result models.RegionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return &result, nil
}

// RegionFile summarises one stored region.
type RegionFile struct {
	File      string    `json:"file"`
	Region    string    `json:"region"`
	Listings  int       `json:"listings"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListRegions returns every readable region file sorted by file name.
// Files that fail to decode are logged and skipped.
func (s *JSONStore) ListRegions() ([]RegionFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.dir, err)
	}

	var files []RegionFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}

		result, err := s.LoadRegion(entry.Name())
		if err != nil {
			s.logger.Warn("skipping unreadable region file", "file", entry.Name(), "error", err)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("skipping region file", "file", entry.Name(), "error", err)
			continue
		}

		files = append(files, RegionFile{
			File:      entry.Name(),
			Region:    result.Region,
			Listings:  len(result.Listings),
			UpdatedAt: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].File < files[j].File })
	return files, nil
}
