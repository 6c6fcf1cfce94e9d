package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"

	"github.com/signalnine/martingale/internal/config"
	"github.com/signalnine/martingale/internal/outcome"
	"github.com/signalnine/martingale/internal/runner"
)

var errTooMuchWork = errors.New("request exceeds the server work limit")

type Server struct {
	cfg    *config.Config
	router chi.Router
}

type SimulateRequest struct {
	Balance        float64       `json:"balance"`
	Bet            float64       `json:"bet"`
	Target         outcome.Label `json:"target"`
	MaxRounds      int           `json:"max_rounds"`
	Runs           int           `json:"runs"`
	Seed           uint64        `json:"seed"`
	IncludeHistory bool          `json:"include_history"`
}

type SimulateResponse struct {
	Summary   runner.BatchSummary `json:"summary"`
	LastTrial *runner.TrialResult `json:"last_trial,omitempty"`
}

type ScanRequest struct {
	Balance      runner.Range  `json:"balance"`
	Bet          runner.Range  `json:"bet"`
	RunsPerPoint int           `json:"runs_per_point"`
	Target       outcome.Label `json:"target"`
	MaxRounds    int           `json:"max_rounds"`
	Seed         uint64        `json:"seed"`
}

type ScanResponse struct {
	Points []runner.ScanPoint `json:"points"`
}

func NewServer(cfg *config.Config) *Server {
	s := &Server{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         60 * 15,
	}))

	r.Get("/outcomes", s.Outcomes)
	r.Post("/simulate", s.Simulate)
	r.Post("/scan", s.Scan)

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("Shutting down HTTP API")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) Outcomes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Distribution().Outcomes())
}

func (s *Server) Simulate(w http.ResponseWriter, r *http.Request) {
	req := SimulateRequest{
		Balance:   s.cfg.Simulate.Balance,
		Bet:       s.cfg.Simulate.Bet,
		Target:    outcome.Label(s.cfg.Target),
		MaxRounds: s.cfg.MaxRounds,
		Runs:      s.cfg.Simulate.Runs,
		Seed:      s.cfg.Seed,
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if exceedsWork(s.cfg.Server.MaxWork, int64(req.Runs), int64(req.MaxRounds)) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: %d runs x %d rounds", errTooMuchWork, req.Runs, req.MaxRounds))
		return
	}

	cfg := runner.TrialConfig{
		InitialBalance: req.Balance,
		InitialBet:     req.Bet,
		Target:         req.Target,
		MaxRounds:      req.MaxRounds,
	}
	sampler := outcome.NewSampler(s.cfg.Distribution(), outcome.NewSource(req.Seed))
	start := time.Now()
	batch, err := runner.RunBatch(sampler, cfg, req.Runs)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	log.WithFields(log.Fields{
		"runs":            req.Runs,
		"bankruptcy_rate": batch.Summary.BankruptcyRate,
		"duration_ms":     time.Since(start).Milliseconds(),
	}).Debug("Simulation completed")

	resp := SimulateResponse{Summary: batch.Summary}
	if req.IncludeHistory {
		resp.LastTrial = batch.Last()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) Scan(w http.ResponseWriter, r *http.Request) {
	req := ScanRequest{
		Balance:      s.cfg.Scan.Balance,
		Bet:          s.cfg.Scan.Bet,
		RunsPerPoint: s.cfg.Scan.RunsPerPoint,
		Target:       outcome.Label(s.cfg.Target),
		MaxRounds:    s.cfg.MaxRounds,
		Seed:         s.cfg.Seed,
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cells := int64(req.Balance.Len()) * int64(req.Bet.Len())
	if exceedsWork(s.cfg.Server.MaxWork, cells, int64(req.RunsPerPoint), int64(req.MaxRounds)) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: %d cells x %d runs x %d rounds", errTooMuchWork, cells, req.RunsPerPoint, req.MaxRounds))
		return
	}

	start := time.Now()
	points, err := runner.Scan(r.Context(), runner.ScanRequest{
		Balance:      req.Balance,
		Bet:          req.Bet,
		RunsPerPoint: req.RunsPerPoint,
		Target:       req.Target,
		MaxRounds:    req.MaxRounds,
		Distribution: s.cfg.Distribution(),
		Seed:         req.Seed,
		Workers:      s.cfg.Workers,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	log.WithFields(log.Fields{
		"points":      len(points),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Scan completed")

	writeJSON(w, http.StatusOK, ScanResponse{Points: points})
}

// exceedsWork reports whether the product of factors is above limit without
// computing an overflowing product. A non-positive factor means no work; the
// runner rejects negative counts itself.
func exceedsWork(limit int64, factors ...int64) bool {
	for _, f := range factors {
		if f <= 0 {
			return false
		}
	}
	product := int64(1)
	for _, f := range factors {
		if product > limit/f {
			return true
		}
		product *= f
	}
	return false
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, runner.ErrInvalidConfig), errors.Is(err, runner.ErrEmptyRange):
		return http.StatusBadRequest
	case errors.Is(err, runner.ErrNoFeasiblePoint):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Info("HTTP request")
	})
}
