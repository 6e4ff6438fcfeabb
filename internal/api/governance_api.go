package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tutu-network/multisig/internal/domain"
	"github.com/tutu-network/multisig/internal/infra/governance"
)

// ─── Governance API (/api/*) ────────────────────────────────────────────────

type proposeRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Msgs        []domain.Action    `json:"msgs"`
	Latest      *domain.Expiration `json:"latest,omitempty"`
}

type voteRequest struct {
	Vote *domain.VoteOption `json:"vote"`
}

// --- /api/proposals ---

func (s *Server) handlePropose(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.engine.Propose(r.Context(), callerFrom(r.Context()), governance.ProposeRequest{
		Title:       req.Title,
		Description: req.Description,
		Actions:     req.Msgs,
		Latest:      req.Latest,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProposalFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.engine.Proposals(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": list})
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	p, err := s.engine.Proposal(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- /api/proposals/{id}/votes ---

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Vote == nil {
		writeError(w, http.StatusBadRequest, "vote is required")
		return
	}

	p, err := s.engine.Vote(r.Context(), callerFrom(r.Context()), id, *req.Vote)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListVotes(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ballots, err := s.engine.Ballots(r.Context(), id, r.URL.Query().Get("start_after"), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"votes": ballots})
}

func (s *Server) handleGetVote(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	b, err := s.engine.Ballot(r.Context(), id, chi.URLParam(r, "voter"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// --- /api/proposals/{id}/execute, /close, /execution ---

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	res, err := s.engine.Execute(r.Context(), callerFrom(r.Context()), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	p, err := s.engine.Close(r.Context(), callerFrom(r.Context()), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	exec, err := s.engine.Execution(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

// --- /api/voters, /api/threshold ---

func (s *Server) handleListVoters(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"voters": s.engine.Voters(r.URL.Query().Get("start_after"), limit),
	})
}

func (s *Server) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.Voter(chi.URLParam(r, "addr"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleThreshold(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.ThresholdInfo())
}

// ─── Parameter Parsing ──────────────────────────────────────────────────────

func proposalID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid proposal id %q", raw))
		return 0, false
	}
	return id, true
}

func parseProposalFilter(r *http.Request) (domain.ProposalFilter, error) {
	q := r.URL.Query()
	var f domain.ProposalFilter

	if s := q.Get("status"); s != "" {
		st, err := domain.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = &st
	}
	var err error
	if f.StartAfter, err = uintParam(r, "start_after"); err != nil {
		return f, err
	}
	if f.StartBefore, err = uintParam(r, "start_before"); err != nil {
		return f, err
	}
	if f.Limit, err = intParam(r, "limit"); err != nil {
		return f, err
	}
	if s := q.Get("reverse"); s != "" {
		if f.Reverse, err = strconv.ParseBool(s); err != nil {
			return f, fmt.Errorf("invalid reverse %q", s)
		}
	}
	return f, nil
}

func uintParam(r *http.Request, name string) (uint64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

func intParam(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}
