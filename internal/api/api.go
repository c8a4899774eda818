// Package api serves saved reading positions read-only over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/v0xg/mangaprogress/internal/position"
	"github.com/v0xg/mangaprogress/internal/store"
)

// Positions is the read side of the bookmarker.
type Positions interface {
	List(ctx context.Context) ([]position.Record, error)
	Read(ctx context.Context, storeKey string) (position.Saved, error)
	Preview(ctx context.Context, storeKey string) ([]byte, error)
}

type Server struct {
	positions Positions
	logger    *slog.Logger
}

// NewRouter mounts the position routes.
//
//	GET /positions             all entries, ?page= filters by site
//	GET /positions/{key}       one entry
//	GET /positions/{key}/preview
//
// Keys may contain slashes (identifiers taken from hrefs), so everything
// after /positions/ is the key; a trailing /preview selects the image.
func NewRouter(p Positions, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{positions: p, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/positions", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/*", s.handleKey)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("api: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.positions.List(r.Context())
	if err != nil {
		s.logger.Error("api: list positions", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if page := r.URL.Query().Get("page"); page != "" {
		filtered := records[:0]
		for _, rec := range records {
			if rec.Key.Page == page {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	if records == nil {
		records = []position.Record{}
	}
	writeJSON(w, records)
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || key == "" {
		http.Error(w, "Position not found", http.StatusNotFound)
		return
	}
	if k, ok := strings.CutSuffix(key, "/preview"); ok {
		s.handlePreview(w, r, k)
		return
	}
	s.handleGet(w, r, key)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, key string) {
	saved, err := s.positions.Read(r.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Position not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("api: read position", "key", key, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"key":       key,
		"position":  saved,
		"completed": saved.Completed(),
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, key string) {
	img, err := s.positions.Preview(r.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Preview not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("api: read preview", "key", key, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(img)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
