// Package server serves the lead qualification form, the feedback form and
// a JSON lookup API behind a shared concurrency gate.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/monitoring"
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const maxBodyBytes = 64 * 1024

// Lookuper resolves addresses and records feedback.
type Lookuper interface {
	LookupOrFetch(ctx context.Context, addr model.Address) (*model.Lookup, error)
	RecordFeedback(ctx context.Context, addr model.Address, fb model.Feedback) (*model.Lookup, error)
}

// Config configures the HTTP surface.
type Config struct {
	MaxSearches     int64
	FeedbackEnabled bool
	AllowedOrigins  []string
}

// Server holds the HTTP handlers.
type Server struct {
	lookups Lookuper
	cfg     Config
	sem     *semaphore.Weighted
	metrics *monitoring.Metrics
}

// New creates a Server. A nil metrics disables the /metrics route.
func New(l Lookuper, cfg Config, m *monitoring.Metrics) *Server {
	if cfg.MaxSearches <= 0 {
		cfg.MaxSearches = 1
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Server{
		lookups: l,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(cfg.MaxSearches),
		metrics: m,
	}
}

// Handler returns the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.gate)
		r.Get("/", s.handleIndex)
		r.Post("/", s.handleSearch)
		if s.cfg.FeedbackEnabled {
			r.Post("/feedback", s.handleFeedback)
		}
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
		r.Use(s.gate)
		r.Post("/lookup", s.handleAPILookup)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, pageData{FeedbackEnabled: s.cfg.FeedbackEnabled})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	addr := s.formAddress(r)
	if missing := addr.Missing(); len(missing) > 0 {
		s.render(w, http.StatusBadRequest, pageData{
			Form:            addr,
			Error:           "Missing required fields: " + strings.Join(missing, ", "),
			FeedbackEnabled: s.cfg.FeedbackEnabled,
		})
		return
	}

	l, err := s.lookups.LookupOrFetch(r.Context(), addr)
	if err != nil {
		zap.L().Error("server: lookup failed", zap.String("address", addr.Key()), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, http.StatusOK, pageData{
		Form:            addr,
		Result:          newResultView(l),
		FeedbackEnabled: s.cfg.FeedbackEnabled,
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	addr, ok := s.feedbackAddress(r)
	fb := model.Feedback{
		Solar:   strings.TrimSpace(r.PostForm.Get("solar")),
		Repairs: strings.TrimSpace(r.PostForm.Get("repairs")),
	}
	if !ok || fb.Solar == "" || fb.Repairs == "" {
		http.Error(w, "address, solar and repairs are required", http.StatusBadRequest)
		return
	}

	l, err := s.lookups.RecordFeedback(r.Context(), addr, fb)
	if err != nil {
		zap.L().Error("server: feedback failed", zap.String("address", addr.Key()), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, http.StatusOK, pageData{
		Form:            addr,
		Result:          newResultView(l),
		FeedbackEnabled: s.cfg.FeedbackEnabled,
	})
}

type lookupRequest struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

func (s *Server) handleAPILookup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	addr := s.normalize(req.Street, req.City, req.State, req.Zip)
	if missing := addr.Missing(); len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields: " + strings.Join(missing, ", ")})
		return
	}

	l, err := s.lookups.LookupOrFetch(r.Context(), addr)
	if err != nil {
		zap.L().Error("server: lookup failed", zap.String("address", addr.Key()), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) formAddress(r *http.Request) model.Address {
	return s.normalize(
		r.PostForm.Get("street"),
		r.PostForm.Get("city"),
		r.PostForm.Get("state"),
		r.PostForm.Get("zip"),
	)
}

// feedbackAddress reads the structured address fields the result page
// posts back. A client that sends only the rendered "address" line is
// keyed on that line instead.
func (s *Server) feedbackAddress(r *http.Request) (model.Address, bool) {
	addr := s.formAddress(r)
	if len(addr.Missing()) == 0 {
		return addr, true
	}
	line := r.PostForm.Get("address")
	if len(addr.Missing()) < 4 || strings.TrimSpace(line) == "" {
		return model.Address{}, false
	}
	parsed, err := model.ParseAddress(line)
	if err != nil {
		return model.Address{}, false
	}
	return parsed, true
}

// normalize upper-cases the state and leaves the other fields as entered,
// so the cache key is the text the user typed. A Caser is not safe for
// concurrent use, so one is built per call.
func (s *Server) normalize(street, city, state, zip string) model.Address {
	return model.Address{
		Street: street,
		City:   city,
		State:  cases.Upper(language.Und).String(state),
		Zip:    zip,
	}
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	var buf strings.Builder
	if err := indexTmpl.Execute(&buf, data); err != nil {
		zap.L().Error("server: render template", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
