// Package api provides the HTTP server for the multisig daemon.
// Queries are open; mutating endpoints act as the principal named in the
// X-Multisig-Caller header.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tutu-network/multisig/internal/app/counter"
	"github.com/tutu-network/multisig/internal/app/token"
	"github.com/tutu-network/multisig/internal/domain"
	"github.com/tutu-network/multisig/internal/health"
	"github.com/tutu-network/multisig/internal/infra/governance"
)

// CallerHeader names the principal a mutating request acts as.
const CallerHeader = "X-Multisig-Caller"

// Server is the multisig HTTP API server.
type Server struct {
	engine         *governance.Engine
	token          *token.Contract
	counter        *counter.Contract
	health         *health.Checker
	publicKey      string
	metricsEnabled bool
	log            zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(engine *governance.Engine, log zerolog.Logger) *Server {
	return &Server{engine: engine, log: log.With().Str("component", "api").Logger()}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetContracts exposes the example contracts' queries. Either may be nil.
func (s *Server) SetContracts(t *token.Contract, c *counter.Contract) {
	s.token = t
	s.counter = c
}

// SetHealth reports the checker's results on /health.
func (s *Server) SetHealth(h *health.Checker) { s.health = h }

// SetPublicKey publishes the key that verifies execution receipts.
func (s *Server) SetPublicKey(hexKey string) { s.publicKey = hexKey }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/identity", s.handleIdentity)
		r.Get("/threshold", s.handleThreshold)
		r.Get("/voters", s.handleListVoters)
		r.Get("/voters/{addr}", s.handleGetVoter)

		r.Route("/proposals", func(r chi.Router) {
			r.Get("/", s.handleListProposals)
			r.With(requireCaller).Post("/", s.handlePropose)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetProposal)
				r.Get("/votes", s.handleListVotes)
				r.Get("/votes/{voter}", s.handleGetVote)
				r.Get("/execution", s.handleGetExecution)

				r.Group(func(r chi.Router) {
					r.Use(requireCaller)
					r.Post("/votes", s.handleVote)
					r.Post("/execute", s.handleExecute)
					r.Post("/close", s.handleClose)
				})
			})
		})

		if s.token != nil {
			r.Get("/token/info", s.handleTokenInfo)
			r.Get("/token/balances/{addr}", s.handleTokenBalance)
		}
		if s.counter != nil {
			r.Get("/counter", s.handleCounter)
		}
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, identityResponse{
		Address:   s.engine.Identity(),
		PublicKey: s.publicKey,
		Block:     s.engine.Now(),
	})
}

// identityResponse names the multisig and the block its clock is at.
type identityResponse struct {
	Address   string           `json:"address"`
	PublicKey string           `json:"public_key"`
	Block     domain.BlockInfo `json:"block"`
}

// ─── Caller ─────────────────────────────────────────────────────────────────

type callerKey struct{}

// requireCaller rejects mutating requests that do not name a caller.
func requireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := r.Header.Get(CallerHeader)
		if caller == "" {
			writeError(w, http.StatusUnauthorized, CallerHeader+" header is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

func callerFrom(ctx context.Context) string {
	c, _ := ctx.Value(callerKey{}).(string)
	return c
}

// ─── Responses ──────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    http.StatusText(status),
		},
	})
}

// writeDomainError maps an engine error to its HTTP status.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeError(w, code, err.Error())
}

func statusFor(err error) int {
	switch {
	// Dispatch first: a contract refusal wraps its own kind.
	case errors.Is(err, domain.ErrDispatchFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrProposalNotFound),
		errors.Is(err, domain.ErrVoterNotFound),
		errors.Is(err, domain.ErrBallotNotFound),
		errors.Is(err, domain.ErrExecutionNotFound),
		errors.Is(err, domain.ErrUnknownContract):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrWrongStatus),
		errors.Is(err, domain.ErrNotExpired):
		return http.StatusConflict
	case errors.Is(err, domain.ErrExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrEmptyProposal),
		errors.Is(err, domain.ErrWrongExpiration),
		errors.Is(err, domain.ErrInvalidAction):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+CallerHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
