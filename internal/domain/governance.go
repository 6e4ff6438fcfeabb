package domain

import (
	"fmt"
	"strings"
	"time"
)

// ─── Proposal Status ────────────────────────────────────────────────────────

// Status represents the lifecycle of a proposal.
// Open → {Passed, Rejected}; Passed → Executed. Rejected and Executed are terminal.
type Status int

const (
	StatusOpen     Status = iota // Accepting ballots
	StatusPassed                 // Threshold met, awaiting Execute
	StatusRejected               // Threshold unreachable, or closed after expiry
	StatusExecuted               // Actions dispatched exactly once
)

// String returns the lowercase wire name.
func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusPassed:
		return "passed"
	case StatusRejected:
		return "rejected"
	case StatusExecuted:
		return "executed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusExecuted
}

// ParseStatus parses a wire name (case-insensitive).
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return StatusOpen, nil
	case "passed":
		return StatusPassed, nil
	case "rejected":
		return StatusRejected, nil
	case "executed":
		return StatusExecuted, nil
	default:
		return 0, fmt.Errorf("unknown proposal status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ─── Vote Options ───────────────────────────────────────────────────────────

// VoteOption is a voter's choice on a proposal.
type VoteOption int

const (
	VoteYes     VoteOption = iota // Support
	VoteNo                        // Oppose
	VoteAbstain                   // Counted for quorum only
	VoteVeto                      // Separate pool; folded into No without a veto threshold
)

// String returns the lowercase wire name.
func (v VoteOption) String() string {
	switch v {
	case VoteYes:
		return "yes"
	case VoteNo:
		return "no"
	case VoteAbstain:
		return "abstain"
	case VoteVeto:
		return "veto"
	default:
		return "unknown"
	}
}

// ParseVoteOption parses a wire name (case-insensitive).
func ParseVoteOption(s string) (VoteOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return VoteYes, nil
	case "no":
		return VoteNo, nil
	case "abstain":
		return VoteAbstain, nil
	case "veto", "no_with_veto":
		return VoteVeto, nil
	default:
		return 0, fmt.Errorf("unknown vote option %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v VoteOption) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *VoteOption) UnmarshalText(b []byte) error {
	o, err := ParseVoteOption(string(b))
	if err != nil {
		return err
	}
	*v = o
	return nil
}

// ─── Voters & Tallies ───────────────────────────────────────────────────────

// Voter is a registered principal with a fixed weight.
type Voter struct {
	Addr   string `json:"addr"`
	Weight uint64 `json:"weight"`
}

// Tally is the weighted sum of ballots per option.
type Tally struct {
	Yes     uint64 `json:"yes"`
	No      uint64 `json:"no"`
	Abstain uint64 `json:"abstain"`
	Veto    uint64 `json:"veto"`
}

// Participating is the total weight of all recorded ballots.
func (t Tally) Participating() uint64 {
	return t.Yes + t.No + t.Abstain + t.Veto
}

// Add credits weight to an option.
func (t *Tally) Add(opt VoteOption, weight uint64) {
	switch opt {
	case VoteYes:
		t.Yes += weight
	case VoteNo:
		t.No += weight
	case VoteAbstain:
		t.Abstain += weight
	case VoteVeto:
		t.Veto += weight
	}
}

// Sub removes weight previously credited to an option.
func (t *Tally) Sub(opt VoteOption, weight uint64) {
	switch opt {
	case VoteYes:
		t.Yes -= weight
	case VoteNo:
		t.No -= weight
	case VoteAbstain:
		t.Abstain -= weight
	case VoteVeto:
		t.Veto -= weight
	}
}

// ─── Block Info ─────────────────────────────────────────────────────────────

// BlockInfo is the host-supplied "now": a monotonically non-decreasing
// height and the wall time of that height.
type BlockInfo struct {
	Height uint64    `json:"height"`
	Time   time.Time `json:"time"`
}

// ─── Proposals & Ballots ────────────────────────────────────────────────────

// Proposal is a bundled, ordered batch of actions pending authorization.
type Proposal struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Actions     []Action   `json:"actions"`
	Proposer    string     `json:"proposer"`
	SubmittedAt BlockInfo  `json:"submitted_at"`
	Expires     Expiration `json:"expires"`
	Threshold   Threshold  `json:"threshold"`
	TotalWeight uint64     `json:"total_weight"`
	Status      Status     `json:"status"`
	Tally       Tally      `json:"tally"`
	ClosedAt    *BlockInfo `json:"closed_at,omitempty"`
}

// Ballot is one voter's recorded choice on one proposal.
type Ballot struct {
	ProposalID uint64     `json:"proposal_id"`
	Voter      string     `json:"voter"`
	Option     VoteOption `json:"option"`
	Weight     uint64     `json:"weight"` // Voter weight at cast time
	CastAt     BlockInfo  `json:"cast_at"`
}

// Execution is the permanent record of a successful Execute.
type Execution struct {
	ID         string             `json:"id"`
	ProposalID uint64             `json:"proposal_id"`
	Executor   string             `json:"executor"`
	Sender     string             `json:"sender"` // Multisig identity the actions ran as
	Block      BlockInfo          `json:"block"`
	Responses  []DispatchResponse `json:"responses"`
	Signature  string             `json:"signature,omitempty"`
}

// ProposalFilter narrows and pages a proposal listing.
// Ascending by id unless Reverse; StartAfter/StartBefore are exclusive bounds.
type ProposalFilter struct {
	Status      *Status
	StartAfter  uint64
	StartBefore uint64
	Reverse     bool
	Limit       int
}
