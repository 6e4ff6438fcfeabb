package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ─── Contract Queries ───────────────────────────────────────────────────────
// Read-only views of the example downstream contracts. They change only
// through executed proposals.

func (s *Server) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.token.Info(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	b, err := s.token.Balance(r.Context(), chi.URLParam(r, "addr"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleCounter(w http.ResponseWriter, r *http.Request) {
	st, err := s.counter.State(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
