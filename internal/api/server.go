// Package api serves the entity kinds over HTTP as JSON. Every response
// uses the safe serialization, so password hashes and salts never leave
// the process.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mesh-intelligence/pantry/internal/entity"
	"github.com/mesh-intelligence/pantry/pkg/record"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Server routes requests to the registry's kinds.
type Server struct {
	kinds  *entity.Registry
	logger *slog.Logger
}

// New returns a Server over kinds.
func New(kinds *entity.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{kinds: kinds, logger: logger}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "kinds": s.kinds.Names()})
	})
	r.Route("/{kind}", func(r chi.Router) {
		r.Get("/", s.list)
		r.Post("/", s.create)
		r.Get("/{id}", s.get)
		r.Patch("/{id}", s.update)
		r.Delete("/{id}", s.remove)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) kind(w http.ResponseWriter, r *http.Request) (entity.Kind, bool) {
	name := chi.URLParam(r, "kind")
	k, ok := s.kinds.Kind(name)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown kind "+name)
	}
	return k, ok
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	k, ok := s.kind(w, r)
	if !ok {
		return
	}
	var fields []string
	if f := r.URL.Query().Get("fields"); f != "" {
		fields = strings.Split(f, ",")
	}
	hs, err := k.List(r.Context(), fields...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]map[string]any, len(hs))
	for i, h := range hs {
		out[i] = k.Render(h)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	k, h, ok := s.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, k.Render(h))
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	k, ok := s.kind(w, r)
	if !ok {
		return
	}
	body, ok := decodeBody(w, r, k)
	if !ok {
		return
	}
	h, err := k.New()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := assignAll(k, h, body); err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := h.Insert(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, k.Render(h))
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	k, h, ok := s.load(w, r)
	if !ok {
		return
	}
	body, ok := decodeBody(w, r, k)
	if !ok {
		return
	}
	if err := assignAll(k, h, body); err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := h.Update(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if id == nil {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	respondJSON(w, http.StatusOK, k.Render(h))
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	_, h, ok := s.load(w, r)
	if !ok {
		return
	}
	n, err := h.Delete(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if n == 0 {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) (entity.Kind, record.Handle, bool) {
	k, ok := s.kind(w, r)
	if !ok {
		return k, nil, false
	}
	h, err := k.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return k, nil, false
	}
	if h == nil {
		respondError(w, http.StatusNotFound, "not found")
		return k, nil, false
	}
	return k, h, true
}

// decodeBody reads a JSON object of field values. The primary key is owned
// by the store and may not be set by clients.
func decodeBody(w http.ResponseWriter, r *http.Request, k entity.Kind) (map[string]any, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return nil, false
	}
	if _, ok := body[k.Schema.PrimaryKey]; ok {
		respondError(w, http.StatusBadRequest, k.Schema.PrimaryKey+" is assigned by the store")
		return nil, false
	}
	return body, true
}

func assignAll(k entity.Kind, h record.Handle, body map[string]any) error {
	for field, v := range body {
		if err := k.Assign(h, field, v); err != nil {
			return err
		}
	}
	return nil
}

// fail maps err to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, types.ErrUnknownField), errors.Is(err, types.ErrInvalidData):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrRecordDeleted):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
