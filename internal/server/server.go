// Package server exposes stored datasets over an HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/basinlabs/geoframe/internal/export"
	"github.com/basinlabs/geoframe/internal/store"
)

// Server serves dataset metadata and GeoJSON features from a Store.
type Server struct {
	store store.Store
	port  int
}

// New creates a Server over the given store.
func New(st store.Store, port int) *Server {
	return &Server{store: st, port: port}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/datasets", s.handleListDatasets)
	r.Get("/datasets/{id}", s.handleGetDataset)
	r.Get("/datasets/{id}/features", s.handleFeatures)

	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("server: listening", zap.Int("port", s.port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.store.ListDatasets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if datasets == nil {
		datasets = []store.Dataset{}
	}
	writeJSON(w, http.StatusOK, datasets)
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := s.store.GetDataset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	f, err := s.store.LoadFrame(r.Context(), chi.URLParam(r, "id"), filter)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := export.WriteGeoJSON(w, f); err != nil {
		zap.L().Error("server: write features", zap.Error(err))
	}
}

// filterFromQuery parses bbox, limit, and offset query parameters.
func filterFromQuery(r *http.Request) (store.FeatureFilter, error) {
	var filter store.FeatureFilter

	if bbox := r.URL.Query().Get("bbox"); bbox != "" {
		parts := strings.Split(bbox, ",")
		if len(parts) != 4 {
			return filter, eris.New("server: bbox must be minx,miny,maxx,maxy")
		}
		vals := make([]float64, 4)
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return filter, eris.Wrapf(err, "server: parse bbox component %q", p)
			}
			vals[i] = v
		}
		filter.BBox = geom.NewBounds(geom.XY).Set(vals[0], vals[1], vals[2], vals[3])
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		v, err := strconv.Atoi(limit)
		if err != nil || v < 0 {
			return filter, eris.Errorf("server: invalid limit %q", limit)
		}
		filter.Limit = v
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		v, err := strconv.Atoi(offset)
		if err != nil || v < 0 {
			return filter, eris.Errorf("server: invalid offset %q", offset)
		}
		filter.Offset = v
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
