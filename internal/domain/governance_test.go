package domain

import (
	"encoding/json"
	"testing"
)

// ─── Status Tests ───────────────────────────────────────────────────────────

func TestStatus_RoundTrip(t *testing.T) {
	for _, s := range []Status{StatusOpen, StatusPassed, StatusRejected, StatusExecuted} {
		got, err := ParseStatus(s.String())
		if err != nil || got != s {
			t.Errorf("ParseStatus(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseStatus("pending"); err == nil {
		t.Error("unknown status should fail")
	}
	if got, _ := ParseStatus(" PASSED "); got != StatusPassed {
		t.Errorf("case-insensitive parse = %v", got)
	}
}

func TestStatus_Terminal(t *testing.T) {
	tests := map[Status]bool{
		StatusOpen:     false,
		StatusPassed:   false,
		StatusRejected: true,
		StatusExecuted: true,
	}
	for s, want := range tests {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
}

func TestVoteOption_Parse(t *testing.T) {
	tests := map[string]VoteOption{
		"yes":          VoteYes,
		"No":           VoteNo,
		"abstain":      VoteAbstain,
		"veto":         VoteVeto,
		"no_with_veto": VoteVeto,
	}
	for in, want := range tests {
		got, err := ParseVoteOption(in)
		if err != nil || got != want {
			t.Errorf("ParseVoteOption(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseVoteOption("maybe"); err == nil {
		t.Error("unknown option should fail")
	}
}

// ─── Tally Tests ────────────────────────────────────────────────────────────

func TestTally_AddSub(t *testing.T) {
	var tally Tally
	tally.Add(VoteYes, 3)
	tally.Add(VoteNo, 2)
	tally.Add(VoteAbstain, 1)
	tally.Add(VoteVeto, 4)
	if p := tally.Participating(); p != 10 {
		t.Errorf("Participating() = %d, want 10", p)
	}

	// Changing a vote moves weight between options.
	tally.Sub(VoteNo, 2)
	tally.Add(VoteYes, 2)
	want := Tally{Yes: 5, Abstain: 1, Veto: 4}
	if tally != want {
		t.Errorf("tally = %+v, want %+v", tally, want)
	}
}

func TestProposal_JSON(t *testing.T) {
	p := Proposal{
		ID:        1,
		Title:     "pay",
		Actions:   []Action{{Contract: "token", Msg: json.RawMessage(`{"mint":{}}`)}},
		Expires:   AtHeight(10),
		Threshold: Threshold{Kind: AbsoluteCount, Weight: 2},
		Status:    StatusPassed,
		Tally:     Tally{Yes: 2},
	}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}

	var wire map[string]json.RawMessage
	if err := json.Unmarshal(b, &wire); err != nil {
		t.Fatal(err)
	}
	if string(wire["status"]) != `"passed"` {
		t.Errorf("status = %s", wire["status"])
	}
	if string(wire["expires"]) != `{"at_height":10}` {
		t.Errorf("expires = %s", wire["expires"])
	}
	if _, ok := wire["closed_at"]; ok {
		t.Error("closed_at should be omitted while unset")
	}
}
