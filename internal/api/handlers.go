package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/maltedev/chamber-scraper/internal/models"
	"github.com/maltedev/chamber-scraper/internal/storage"
)

// RegionReader is the read side of the JSON store.
type RegionReader interface {
	Dir() string
	ListRegions() ([]storage.RegionFile, error)
	LoadRegion(name string) (*models.RegionResult, error)
}

type Handlers struct {
	store  RegionReader
	logger *slog.Logger
}

func NewHandlers(store RegionReader, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:  store,
		logger: logger.With("component", "api"),
	}
}

// NewRouter wires the read-only results API.
func NewRouter(h *Handlers, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/regions", h.ListRegions)
		r.Get("/regions/{name}", h.GetRegion)
	})

	return r
}

// Health reports whether the output directory is readable.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":     "ok",
		"output_dir": h.store.Dir(),
	}

	if _, err := os.Stat(h.store.Dir()); err != nil {
		health["status"] = "error"
		health["message"] = "output directory not readable"
		h.respondJSON(w, http.StatusServiceUnavailable, health)
		return
	}

	h.respondJSON(w, http.StatusOK, health)
}

type regionsResponse struct {
	Count   int                  `json:"count"`
	Regions []storage.RegionFile `json:"regions"`
}

// ListRegions returns a summary of every stored region file.
func (h *Handlers) ListRegions(w http.ResponseWriter, r *http.Request) {
	files, err := h.store.ListRegions()
	if err != nil {
		h.logger.Error("failed to list regions", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list regions")
		return
	}

	if files == nil {
		files = []storage.RegionFile{}
	}
	h.respondJSON(w, http.StatusOK, regionsResponse{Count: len(files), Regions: files})
}

// GetRegion returns the stored file for a region display name, in the same
// shape as on disk.
func (h *Handlers) GetRegion(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid region name")
		return
	}

	file, err := storage.FileName(name)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid region name")
		return
	}

	result, err := h.store.LoadRegion(file)
	if errors.Is(err, os.ErrNotExist) || (err == nil && result.Region != name) {
		h.respondError(w, http.StatusNotFound, "region not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load region", "region", name, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load region")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
